package notify

import (
	"context"

	"medimind/internal/schedule"
)

// Reminder is the payload for one medication reminder notification.
type Reminder struct {
	To           string
	MedicineName string
	Dosage       string
	Period       schedule.Period
}

// Notifier sends a single medication reminder. Implementations own their
// transport's timeout and retry behavior; the dispatch engine only cares
// about success or failure.
type Notifier interface {
	SendReminder(ctx context.Context, r Reminder) error
}
