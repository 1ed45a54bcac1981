package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"medimind/internal/schedule"
	"medimind/internal/user"
)

func testUser() *user.User {
	return &user.User{
		ID:        "usr1",
		Email:     "alice@example.com",
		FullName:  "Alice Doe",
		CreatedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
}

func testSchedule() *schedule.Schedule {
	return &schedule.Schedule{
		ID:             "sch1",
		UserID:         "usr1",
		PrescriptionID: "rx1",
		MedicineName:   "Metformin",
		Dosage:         "500mg",
		Timings:        []schedule.Period{schedule.Morning, schedule.Evening},
		Enabled:        true,
		CreatedAt:      time.Date(2026, 2, 1, 10, 5, 0, 0, time.UTC),
	}
}

func runStorageTests(t *testing.T, store Storage) {
	ctx := context.Background()

	// User CRUD
	u := testUser()
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	gotUser, err := store.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if gotUser.ID != u.ID || gotUser.Email != u.Email {
		t.Errorf("GetUser: got %+v, want %+v", gotUser, u)
	}
	gotUser, err = store.GetUserByEmail(ctx, u.Email)
	if err != nil || gotUser.ID != u.ID {
		t.Errorf("GetUserByEmail: got %+v, %v", gotUser, err)
	}
	if _, err := store.GetUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser(missing): got %v, want ErrNotFound", err)
	}

	// Schedule CRUD
	sc := testSchedule()
	if err := store.CreateSchedule(ctx, sc); err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}
	gotSched, err := store.GetSchedule(ctx, sc.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if gotSched.MedicineName != "Metformin" || gotSched.Dosage != "500mg" {
		t.Errorf("GetSchedule: got %+v", gotSched)
	}
	if len(gotSched.Timings) != 2 || gotSched.Timings[0] != schedule.Morning {
		t.Errorf("GetSchedule timings: got %v", gotSched.Timings)
	}
	if !gotSched.Enabled {
		t.Error("GetSchedule: expected enabled")
	}
	if gotSched.LastReminderSent != nil {
		t.Errorf("GetSchedule: expected nil LastReminderSent, got %v", gotSched.LastReminderSent)
	}

	list, err := store.ListSchedules(ctx, u.ID)
	if err != nil || len(list) != 1 {
		t.Errorf("ListSchedules: got %d, %v, want 1", len(list), err)
	}

	// Due matching: enabled + period tag
	due, err := store.ListDueSchedules(ctx, schedule.Morning)
	if err != nil || len(due) != 1 {
		t.Fatalf("ListDueSchedules(morning): got %d, %v, want 1", len(due), err)
	}
	due, err = store.ListDueSchedules(ctx, schedule.Afternoon)
	if err != nil || len(due) != 0 {
		t.Errorf("ListDueSchedules(afternoon): got %d, %v, want 0", len(due), err)
	}

	// Disabled schedules are invisible to the matcher
	if err := store.SetScheduleEnabled(ctx, sc.ID, false); err != nil {
		t.Fatalf("SetScheduleEnabled failed: %v", err)
	}
	due, err = store.ListDueSchedules(ctx, schedule.Morning)
	if err != nil || len(due) != 0 {
		t.Errorf("ListDueSchedules after disable: got %d, %v, want 0", len(due), err)
	}
	if err := store.SetScheduleEnabled(ctx, sc.ID, true); err != nil {
		t.Fatalf("SetScheduleEnabled failed: %v", err)
	}
	if err := store.SetScheduleEnabled(ctx, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetScheduleEnabled(missing): got %v, want ErrNotFound", err)
	}

	// Stamping
	stamp := time.Date(2026, 2, 19, 8, 0, 0, 0, time.UTC)
	if err := store.StampReminderSent(ctx, sc.ID, stamp); err != nil {
		t.Fatalf("StampReminderSent failed: %v", err)
	}
	gotSched, err = store.GetSchedule(ctx, sc.ID)
	if err != nil || gotSched.LastReminderSent == nil {
		t.Fatalf("GetSchedule after stamp: %+v, %v", gotSched, err)
	}
	if !gotSched.LastReminderSent.Equal(stamp) {
		t.Errorf("LastReminderSent: got %v, want %v", gotSched.LastReminderSent, stamp)
	}
	if err := store.StampReminderSent(ctx, "missing", stamp); !errors.Is(err, ErrNotFound) {
		t.Errorf("StampReminderSent(missing): got %v, want ErrNotFound", err)
	}

	// Update
	gotSched.Dosage = "1000mg"
	gotSched.Timings = []schedule.Period{schedule.Night}
	if err := store.UpdateSchedule(ctx, gotSched); err != nil {
		t.Fatalf("UpdateSchedule failed: %v", err)
	}
	updated, err := store.GetSchedule(ctx, sc.ID)
	if err != nil || updated.Dosage != "1000mg" || len(updated.Timings) != 1 {
		t.Errorf("UpdateSchedule: got %+v, %v", updated, err)
	}

	// Delete
	if err := store.DeleteSchedule(ctx, sc.ID); err != nil {
		t.Errorf("DeleteSchedule failed: %v", err)
	}
	if _, err := store.GetSchedule(ctx, sc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after DeleteSchedule, got %v", err)
	}
	if err := store.DeleteUser(ctx, u.ID); err != nil {
		t.Errorf("DeleteUser failed: %v", err)
	}
	if _, err := store.GetUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after DeleteUser, got %v", err)
	}

	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestMemoryStorage(t *testing.T) {
	store := NewMemoryStorage()
	runStorageTests(t, store)
}

func TestMemoryStorageGeneratesIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	sc := testSchedule()
	sc.ID = ""
	if err := store.CreateSchedule(ctx, sc); err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}
	if sc.ID == "" {
		t.Fatal("expected generated schedule ID")
	}
	if _, err := store.GetSchedule(ctx, sc.ID); err != nil {
		t.Errorf("GetSchedule by generated ID failed: %v", err)
	}

	u := testUser()
	u.ID = ""
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected generated user ID")
	}
}

func TestMemoryStorageReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	sc := testSchedule()
	if err := store.CreateSchedule(ctx, sc); err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}

	got, err := store.GetSchedule(ctx, sc.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	got.MedicineName = "mutated"
	got.Timings[0] = schedule.Night

	again, err := store.GetSchedule(ctx, sc.ID)
	if err != nil {
		t.Fatalf("GetSchedule failed: %v", err)
	}
	if again.MedicineName != "Metformin" || again.Timings[0] != schedule.Morning {
		t.Errorf("stored schedule was mutated through a returned copy: %+v", again)
	}
}
