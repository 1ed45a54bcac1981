package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"medimind/internal/dispatch"
	"medimind/internal/schedule"
)

// Runner executes one dispatch run for a period. *dispatch.Dispatcher
// satisfies it; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, p schedule.Period) (dispatch.Result, error)
}

// trigger pairs a period with the fixed local wall-clock time it fires
// at. Each time falls inside the period bucket it notifies for, so a run
// that classifies the clock fresh arrives at the same period.
type trigger struct {
	period schedule.Period
	hour   int
	minute int
}

var triggers = []trigger{
	{schedule.Morning, 8, 0},
	{schedule.Afternoon, 13, 0},
	{schedule.Evening, 18, 0},
	{schedule.Night, 21, 0},
}

// TriggerStatus describes one registered cron entry for the health surface.
type TriggerStatus struct {
	Period schedule.Period `json:"period"`
	Spec   string          `json:"spec"`
	Next   time.Time       `json:"next,omitempty"`
	Prev   time.Time       `json:"prev,omitempty"`
}

// Status is the scheduler's operational snapshot.
type Status struct {
	Running  bool            `json:"running"`
	Timezone string          `json:"timezone"`
	Triggers []TriggerStatus `json:"triggers"`
}

// Scheduler owns the four daily reminder triggers. It has an explicit
// start/stop lifecycle; a test harness can call Trigger directly without
// waiting for a timer. Runs for the same period are serialized by a
// per-period mutex, so a cron fire racing a manual invocation cannot
// double-send within the overlap; nothing deduplicates across
// non-overlapping runs, which is intended (the same schedule notifies
// every qualifying day).
type Scheduler struct {
	runner Runner
	log    zerolog.Logger
	loc    *time.Location

	runMu map[schedule.Period]*sync.Mutex

	mu          sync.Mutex
	cron        *cron.Cron
	entries     map[schedule.Period]cron.EntryID
	lastResults map[schedule.Period]dispatch.Result
	running     bool
	baseCtx     context.Context
}

func New(runner Runner, loc *time.Location, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	runMu := make(map[schedule.Period]*sync.Mutex, len(schedule.Periods))
	for _, p := range schedule.Periods {
		runMu[p] = &sync.Mutex{}
	}
	return &Scheduler{
		runner:      runner,
		log:         log.With().Str("component", "scheduler").Logger(),
		loc:         loc,
		runMu:       runMu,
		entries:     make(map[schedule.Period]cron.EntryID),
		lastResults: make(map[schedule.Period]dispatch.Result),
	}
}

// Start registers the four triggers and starts the cron loop. A
// registration failure is returned to the caller and is fatal to the
// hosting process; once started, run failures never unregister triggers.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New(cron.WithLocation(s.loc))
	for _, t := range triggers {
		p := t.period
		spec := fmt.Sprintf("%d %d * * *", t.minute, t.hour)
		id, err := c.AddFunc(spec, func() {
			// Errors are logged inside run; a failed run must never
			// reach the cron runner or cancel future fires.
			_, _ = s.run(s.currentBaseCtx(), p)
		})
		if err != nil {
			return fmt.Errorf("register %s trigger: %w", p, err)
		}
		s.entries[p] = id
	}
	c.Start()

	s.cron = c
	s.baseCtx = ctx
	s.running = true
	s.log.Info().
		Str("tz", s.loc.String()).
		Int("triggers", len(triggers)).
		Msg("reminder scheduler started")
	return nil
}

// Stop halts the cron loop and waits for any in-flight run, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	s.cron = nil
	s.running = false
	s.mu.Unlock()

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
		s.log.Info().Msg("reminder scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) currentBaseCtx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseCtx != nil {
		return s.baseCtx
	}
	return context.Background()
}

// run executes one dispatch for p. The per-period mutex serializes
// concurrent invocations of the same period for the duration of the run;
// different periods run independently.
func (s *Scheduler) run(ctx context.Context, p schedule.Period) (dispatch.Result, error) {
	mu := s.runMu[p]
	mu.Lock()
	defer mu.Unlock()

	res, err := s.runner.Run(ctx, p)
	if err != nil {
		// Systemic failure of this run; the next trigger proceeds
		// normally.
		s.log.Error().Str("period", string(p)).Err(err).Msg("dispatch run failed")
		return res, err
	}

	s.mu.Lock()
	s.lastResults[p] = res
	s.mu.Unlock()
	return res, nil
}

// Trigger runs the dispatch pipeline for an explicit period, outside the
// cron cadence. Used by the manual trigger endpoint and tests.
func (s *Scheduler) Trigger(ctx context.Context, p schedule.Period) (dispatch.Result, error) {
	if !p.Valid() {
		return dispatch.Result{}, fmt.Errorf("unknown period %q", p)
	}
	return s.run(ctx, p)
}

// TriggerNow classifies the current clock hour in the scheduler's
// location and runs that period, mirroring what a cron fire would do.
func (s *Scheduler) TriggerNow(ctx context.Context) (dispatch.Result, error) {
	p := schedule.PeriodForHour(time.Now().In(s.loc).Hour())
	return s.run(ctx, p)
}

// Status reports the running flag and, per trigger, its next and
// previous fire times.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:  s.running,
		Timezone: s.loc.String(),
	}
	for _, t := range triggers {
		ts := TriggerStatus{
			Period: t.period,
			Spec:   fmt.Sprintf("%d %d * * *", t.minute, t.hour),
		}
		if s.cron != nil {
			if id, ok := s.entries[t.period]; ok {
				e := s.cron.Entry(id)
				ts.Next = e.Next
				ts.Prev = e.Prev
			}
		}
		st.Triggers = append(st.Triggers, ts)
	}
	return st
}

// LastResults returns the most recent dispatch result per period, for
// diagnostics.
func (s *Scheduler) LastResults() map[schedule.Period]dispatch.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[schedule.Period]dispatch.Result, len(s.lastResults))
	for p, r := range s.lastResults {
		out[p] = r
	}
	return out
}
