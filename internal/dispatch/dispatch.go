package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"medimind/internal/notify"
	"medimind/internal/schedule"
	"medimind/internal/user"
)

// ScheduleSource is the slice of the store the dispatcher reads and stamps.
type ScheduleSource interface {
	ListDueSchedules(ctx context.Context, p schedule.Period) ([]*schedule.Schedule, error)
	StampReminderSent(ctx context.Context, id string, at time.Time) error
}

// UserSource resolves a schedule's owner to a contact address.
type UserSource interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
}

// Result summarizes one dispatch run for a single period. Counts always
// satisfy Sent+Skipped+Failed == Matched. It is kept only for the health
// surface, never persisted.
type Result struct {
	Period    schedule.Period `json:"period"`
	Matched   int             `json:"matched"`
	Sent      int             `json:"sent"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
}

// Dispatcher executes one match-and-send run per invocation. Per-schedule
// work fans out across a bounded worker pool; one schedule's failure never
// affects the others. The dispatcher itself carries no cross-run state, so
// two overlapping runs for the same period each send independently —
// serializing those is the scheduler's job.
type Dispatcher struct {
	schedules   ScheduleSource
	users       UserSource
	notifier    notify.Notifier
	log         zerolog.Logger
	workers     int
	sendTimeout time.Duration
}

type Option func(*Dispatcher)

// WithWorkers bounds the per-run fan-out. Defaults to 4.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithSendTimeout bounds each notification call so one stalled send
// cannot stall the batch. Defaults to 15s.
func WithSendTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.sendTimeout = t
		}
	}
}

func New(schedules ScheduleSource, users UserSource, notifier notify.Notifier, log zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		schedules:   schedules,
		users:       users,
		notifier:    notifier,
		log:         log.With().Str("component", "dispatch").Logger(),
		workers:     4,
		sendTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes one dispatch run for the given period. Only a failure of
// the matcher query is an error; per-schedule problems are absorbed into
// the counts.
func (d *Dispatcher) Run(ctx context.Context, p schedule.Period) (Result, error) {
	start := time.Now()

	due, err := d.schedules.ListDueSchedules(ctx, p)
	if err != nil {
		return Result{Period: p, StartedAt: start}, fmt.Errorf("list due schedules for %s: %w", p, err)
	}

	var sent, skipped, failed atomic.Int64

	jobs := make(chan *schedule.Schedule)
	workers := d.workers
	if workers > len(due) {
		workers = len(due)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sc := range jobs {
				switch d.dispatchOne(ctx, p, sc) {
				case outcomeSent:
					sent.Add(1)
				case outcomeSkipped:
					skipped.Add(1)
				case outcomeFailed:
					failed.Add(1)
				}
			}
		}()
	}
	for _, sc := range due {
		jobs <- sc
	}
	close(jobs)
	wg.Wait()

	res := Result{
		Period:    p,
		Matched:   len(due),
		Sent:      int(sent.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
		StartedAt: start,
		Duration:  time.Since(start),
	}
	d.log.Info().
		Str("period", string(p)).
		Int("matched", res.Matched).
		Int("sent", res.Sent).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Dur("dur", res.Duration).
		Msg("dispatch run finished")
	return res, nil
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeFailed
)

// dispatchOne handles a single schedule: resolve the owner, send, stamp.
// Resolution problems are skips; send errors are failures; a stamp error
// after a delivered notification is neither — the user already has the
// message.
func (d *Dispatcher) dispatchOne(ctx context.Context, p schedule.Period, sc *schedule.Schedule) outcome {
	u, err := d.users.GetUser(ctx, sc.UserID)
	if err != nil {
		// Covers the user being deleted between match and resolve.
		d.log.Warn().
			Str("schedule_id", sc.ID).
			Str("user_id", sc.UserID).
			Err(err).
			Msg("skipping schedule: owner not resolvable")
		return outcomeSkipped
	}
	if u.Email == "" {
		d.log.Warn().
			Str("schedule_id", sc.ID).
			Str("user_id", sc.UserID).
			Msg("skipping schedule: owner has no email")
		return outcomeSkipped
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	err = d.notifier.SendReminder(sendCtx, notify.Reminder{
		To:           u.Email,
		MedicineName: sc.MedicineName,
		Dosage:       sc.Dosage,
		Period:       p,
	})
	if err != nil {
		d.log.Warn().
			Str("schedule_id", sc.ID).
			Str("to", u.Email).
			Err(err).
			Msg("reminder send failed")
		return outcomeFailed
	}

	// Best effort: the notification is already delivered, so a stamp
	// failure is logged and the schedule still counts as sent.
	if err := d.schedules.StampReminderSent(ctx, sc.ID, time.Now().UTC()); err != nil {
		d.log.Warn().
			Str("schedule_id", sc.ID).
			Err(err).
			Msg("failed to stamp last_reminder_sent")
	}
	return outcomeSent
}
