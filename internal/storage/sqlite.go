package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"medimind/internal/schedule"
	"medimind/internal/user"
)

type SQLiteStorage struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	s := &SQLiteStorage{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

func (s *SQLiteStorage) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// createTables creates the necessary tables
func (s *SQLiteStorage) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			full_name TEXT,
			created_at TEXT NOT NULL -- ISO 8601 format
		)`,
		`CREATE TABLE IF NOT EXISTS schedules (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			prescription_id TEXT,
			medicine_name TEXT NOT NULL,
			dosage TEXT,
			timings TEXT NOT NULL, -- JSON array of period tags
			enabled BOOLEAN NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL, -- ISO 8601 format
			last_reminder_sent TEXT, -- ISO 8601 format, nullable
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %q: %w", query, err)
		}
	}
	return nil
}

// User operations

func (s *SQLiteStorage) CreateUser(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.ID = ensureID(u.ID)
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO users (id, email, full_name, created_at) VALUES (?, ?, ?, ?)",
		u.ID, u.Email, u.FullName, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) GetUser(ctx context.Context, id string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, email, full_name, created_at FROM users WHERE id = ?", id))
}

func (s *SQLiteStorage) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, email, full_name, created_at FROM users WHERE email = ?", email))
}

func (s *SQLiteStorage) scanUser(row *sql.Row) (*user.User, error) {
	var u user.User
	var createdAtStr string
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &createdAtStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u.CreatedAt, err = parseTimeString(createdAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return &u, nil
}

func (s *SQLiteStorage) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// Schedule operations

func (s *SQLiteStorage) CreateSchedule(ctx context.Context, sc *schedule.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc.ID = ensureID(sc.ID)
	timingsJSON, err := json.Marshal(sc.Timings)
	if err != nil {
		return fmt.Errorf("failed to marshal timings: %w", err)
	}

	var lastSentStr *string
	if sc.LastReminderSent != nil {
		str := sc.LastReminderSent.Format(time.RFC3339)
		lastSentStr = &str
	}

	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO schedules
		(id, user_id, prescription_id, medicine_name, dosage, timings, enabled, created_at, last_reminder_sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.UserID, sc.PrescriptionID, sc.MedicineName, sc.Dosage,
		string(timingsJSON), sc.Enabled, sc.CreatedAt.Format(time.RFC3339), lastSentStr)
	if err != nil {
		return fmt.Errorf("failed to create/update schedule: %w", err)
	}
	return nil
}

const scheduleColumns = `id, user_id, prescription_id, medicine_name, dosage, timings, enabled, created_at, last_reminder_sent`

func (s *SQLiteStorage) GetSchedule(ctx context.Context, id string) (*schedule.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+scheduleColumns+" FROM schedules WHERE id = ?", id)

	sc, err := scanSchedule(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return sc, err
}

func (s *SQLiteStorage) ListSchedules(ctx context.Context, userID string) ([]*schedule.Schedule, error) {
	return s.querySchedules(ctx,
		"SELECT "+scheduleColumns+" FROM schedules WHERE user_id = ?", userID)
}

// ListDueSchedules narrows on enabled server-side; period membership is
// checked client-side since timings is a JSON column.
func (s *SQLiteStorage) ListDueSchedules(ctx context.Context, p schedule.Period) ([]*schedule.Schedule, error) {
	enabled, err := s.querySchedules(ctx,
		"SELECT "+scheduleColumns+" FROM schedules WHERE enabled = 1")
	if err != nil {
		return nil, err
	}
	var due []*schedule.Schedule
	for _, sc := range enabled {
		if sc.HasPeriod(p) {
			due = append(due, sc)
		}
	}
	return due, nil
}

func (s *SQLiteStorage) querySchedules(ctx context.Context, query string, args ...any) ([]*schedule.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*schedule.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

// scanSchedule decodes one schedule row; scan is either sql.Row.Scan or
// sql.Rows.Scan.
func scanSchedule(scan func(dest ...any) error) (*schedule.Schedule, error) {
	var sc schedule.Schedule
	var timingsJSON string
	var createdAtStr string
	var lastSentStr *string

	err := scan(&sc.ID, &sc.UserID, &sc.PrescriptionID, &sc.MedicineName, &sc.Dosage,
		&timingsJSON, &sc.Enabled, &createdAtStr, &lastSentStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}

	if err := json.Unmarshal([]byte(timingsJSON), &sc.Timings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal timings: %w", err)
	}
	if sc.CreatedAt, err = parseTimeString(createdAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if lastSentStr != nil {
		t, err := parseTimeString(*lastSentStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse last_reminder_sent: %w", err)
		}
		sc.LastReminderSent = &t
	}
	return &sc, nil
}

func (s *SQLiteStorage) UpdateSchedule(ctx context.Context, sc *schedule.Schedule) error {
	if sc.ID == "" {
		return ErrNotFound
	}
	// INSERT OR REPLACE covers the update path.
	return s.CreateSchedule(ctx, sc)
}

func (s *SQLiteStorage) SetScheduleEnabled(ctx context.Context, id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"UPDATE schedules SET enabled = ? WHERE id = ?", enabled, id)
	if err != nil {
		return fmt.Errorf("failed to toggle schedule: %w", err)
	}
	return requireRow(result)
}

func (s *SQLiteStorage) DeleteSchedule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return requireRow(result)
}

func (s *SQLiteStorage) StampReminderSent(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"UPDATE schedules SET last_reminder_sent = ? WHERE id = ?",
		at.Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to stamp schedule: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// parseTimeString parses a time string in ISO 8601 format
func parseTimeString(timeStr string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time string: %s", timeStr)
}
