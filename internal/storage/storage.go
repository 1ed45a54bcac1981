package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"medimind/internal/schedule"
	"medimind/internal/user"
)

// ErrNotFound is returned when a record does not exist. The dispatch
// engine treats it as a skip condition, not a failure.
var ErrNotFound = errors.New("not found")

// Storage defines the interface for data persistence for users and
// medication schedules. It is shared between the HTTP handlers, the
// ingestion pipeline, and the reminder dispatch engine, so every
// implementation must be safe for concurrent use.
type Storage interface {
	// User operations
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	DeleteUser(ctx context.Context, id string) error

	// Schedule operations
	CreateSchedule(ctx context.Context, s *schedule.Schedule) error
	GetSchedule(ctx context.Context, id string) (*schedule.Schedule, error)
	ListSchedules(ctx context.Context, userID string) ([]*schedule.Schedule, error)
	// ListDueSchedules returns every enabled schedule tagged with the
	// given period. It is a pure read; order is unspecified and an
	// empty result is not an error.
	ListDueSchedules(ctx context.Context, p schedule.Period) ([]*schedule.Schedule, error)
	UpdateSchedule(ctx context.Context, s *schedule.Schedule) error
	SetScheduleEnabled(ctx context.Context, id string, enabled bool) error
	DeleteSchedule(ctx context.Context, id string) error
	// StampReminderSent records the timestamp of a successful delivery
	// on the schedule. It is a blind partial update: no read-modify-write,
	// and the prior value is never consulted.
	StampReminderSent(ctx context.Context, id string, at time.Time) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// ensureID assigns a fresh UUID when the caller did not supply one.
func ensureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}
