package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"medimind/internal/schedule"
)

func TestSQLiteStorage(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "test_medimind.db")

	store, err := NewSQLiteStorage(dbFile)
	if err != nil {
		t.Fatalf("Failed to create SQLite storage: %v", err)
	}
	defer store.Close(context.Background())

	runStorageTests(t, store)
}

func TestSQLiteStoragePersistence(t *testing.T) {
	ctx := context.Background()
	dbFile := filepath.Join(t.TempDir(), "test_medimind_persist.db")

	store, err := NewSQLiteStorage(dbFile)
	if err != nil {
		t.Fatalf("Failed to create SQLite storage: %v", err)
	}

	u := testUser()
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	sc := testSchedule()
	if err := store.CreateSchedule(ctx, sc); err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}
	stamp := time.Date(2026, 2, 19, 21, 0, 0, 0, time.UTC)
	if err := store.StampReminderSent(ctx, sc.ID, stamp); err != nil {
		t.Fatalf("StampReminderSent failed: %v", err)
	}
	if err := store.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Reopen and verify everything survived, including the stamp.
	store2, err := NewSQLiteStorage(dbFile)
	if err != nil {
		t.Fatalf("Failed to reopen SQLite storage: %v", err)
	}
	defer store2.Close(ctx)

	got, err := store2.GetSchedule(ctx, sc.ID)
	if err != nil {
		t.Fatalf("GetSchedule after reopen failed: %v", err)
	}
	if got.MedicineName != "Metformin" || !got.Enabled {
		t.Errorf("schedule after reopen: %+v", got)
	}
	if got.LastReminderSent == nil || !got.LastReminderSent.Equal(stamp) {
		t.Errorf("stamp after reopen: got %v, want %v", got.LastReminderSent, stamp)
	}

	due, err := store2.ListDueSchedules(ctx, schedule.Evening)
	if err != nil || len(due) != 1 {
		t.Errorf("ListDueSchedules after reopen: got %d, %v, want 1", len(due), err)
	}
}
