package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier is used when email delivery is disabled: it logs what would
// have been sent and reports success, so the rest of the pipeline behaves
// normally in development.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) SendReminder(ctx context.Context, r Reminder) error {
	n.log.Info().
		Str("to", r.To).
		Str("medicine", r.MedicineName).
		Str("dosage", r.Dosage).
		Str("period", string(r.Period)).
		Msg("email disabled; reminder not sent")
	return nil
}
