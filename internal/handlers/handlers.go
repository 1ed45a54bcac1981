package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"medimind/internal/dispatch"
	"medimind/internal/schedule"
	"medimind/internal/scheduler"
	"medimind/internal/storage"
	"medimind/internal/user"
)

// Dispatch is the slice of the scheduler the HTTP surface needs.
// *scheduler.Scheduler satisfies it.
type Dispatch interface {
	Trigger(ctx context.Context, p schedule.Period) (dispatch.Result, error)
	TriggerNow(ctx context.Context) (dispatch.Result, error)
	Status() scheduler.Status
	LastResults() map[schedule.Period]dispatch.Result
}

// API bundles the dependencies of the HTTP handlers.
type API struct {
	store storage.Storage
	sched Dispatch
	log   zerolog.Logger
}

func New(store storage.Storage, sched Dispatch, log zerolog.Logger) *API {
	return &API{
		store: store,
		sched: sched,
		log:   log.With().Str("component", "http").Logger(),
	}
}

// Routes registers all handlers on r.
func (a *API) Routes(r *mux.Router) {
	r.HandleFunc("/health", a.HealthHandler).Methods("GET")
	r.HandleFunc("/api/trigger-reminders", a.TriggerRemindersHandler).Methods("POST")

	r.HandleFunc("/api/users", a.CreateUserHandler).Methods("POST")
	r.HandleFunc("/api/user/{id}", a.GetUserHandler).Methods("GET")

	r.HandleFunc("/api/schedules", a.CreateScheduleHandler).Methods("POST")
	r.HandleFunc("/api/user/{id}/schedules", a.ListUserSchedulesHandler).Methods("GET")
	r.HandleFunc("/api/toggle-schedule", a.ToggleScheduleHandler).Methods("POST")
	r.HandleFunc("/api/schedule/{id}", a.UpdateScheduleHandler).Methods("PUT")
	r.HandleFunc("/api/schedule/{id}", a.DeleteScheduleHandler).Methods("DELETE")
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Warn().Err(err).Msg("failed to encode response")
	}
}

func (a *API) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	a.log.Error().Str("path", r.URL.Path).Err(err).Msg("store error")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// HealthHandler reports store reachability, scheduler state, and the
// most recent dispatch result per period.
func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := a.store.Ping(ctx); err != nil {
		dbStatus = "error: " + err.Error()
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"database":      dbStatus,
		"scheduler":     a.sched.Status(),
		"last_dispatch": a.sched.LastResults(),
	})
}

// TriggerRemindersHandler manually runs the dispatch pipeline. With a
// "period" in the body that period runs; otherwise the current clock
// hour is classified. The run happens in the background so the response
// is immediate.
func (a *API) TriggerRemindersHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Period string `json:"period"`
	}
	// An empty body means "trigger for the current time".
	_ = json.NewDecoder(r.Body).Decode(&req)

	var p schedule.Period
	if req.Period != "" {
		var err error
		p, err = schedule.ParsePeriod(req.Period)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if p != "" {
			_, _ = a.sched.Trigger(ctx, p)
		} else {
			_, _ = a.sched.TriggerNow(ctx)
		}
	}()

	a.writeJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"message": "Reminder check triggered. Check logs for results.",
	})
}

// User handlers

func (a *API) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var u user.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if u.Email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if err := a.store.CreateUser(r.Context(), &u); err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, u)
}

func (a *API) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	u, err := a.store.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, u)
}

// Schedule handlers

// CreateScheduleHandler is the write path the ingestion pipeline uses
// after parsing a prescription. Timings are normalized: unknown tags are
// dropped, duplicates collapsed.
func (a *API) CreateScheduleHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID         string   `json:"user_id"`
		PrescriptionID string   `json:"prescription_id"`
		MedicineName   string   `json:"medicine_name"`
		Dosage         string   `json:"dosage"`
		Timings        []string `json:"timings"`
		Enabled        *bool    `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.MedicineName == "" {
		http.Error(w, "user_id and medicine_name are required", http.StatusBadRequest)
		return
	}
	if _, err := a.store.GetUser(r.Context(), req.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "user not found", http.StatusBadRequest)
			return
		}
		a.writeStoreError(w, r, err)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	sc := &schedule.Schedule{
		UserID:         req.UserID,
		PrescriptionID: req.PrescriptionID,
		MedicineName:   req.MedicineName,
		Dosage:         req.Dosage,
		Timings:        schedule.NormalizeTimings(req.Timings),
		Enabled:        enabled,
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.store.CreateSchedule(r.Context(), sc); err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, sc)
}

func (a *API) ListUserSchedulesHandler(w http.ResponseWriter, r *http.Request) {
	list, err := a.store.ListSchedules(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	if list == nil {
		list = []*schedule.Schedule{}
	}
	a.writeJSON(w, http.StatusOK, list)
}

func (a *API) ToggleScheduleHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScheduleID string `json:"schedule_id"`
		Enabled    bool   `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ScheduleID == "" {
		http.Error(w, "schedule_id is required", http.StatusBadRequest)
		return
	}
	if err := a.store.SetScheduleEnabled(r.Context(), req.ScheduleID, req.Enabled); err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"schedule_id": req.ScheduleID,
		"enabled":     req.Enabled,
	})
}

// UpdateScheduleHandler applies a partial update to medicine name,
// dosage, timings, or the enabled flag.
func (a *API) UpdateScheduleHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sc, err := a.store.GetSchedule(r.Context(), id)
	if err != nil {
		a.writeStoreError(w, r, err)
		return
	}

	var req struct {
		MedicineName *string  `json:"medicine_name"`
		Dosage       *string  `json:"dosage"`
		Timings      []string `json:"timings"`
		Enabled      *bool    `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if req.MedicineName != nil {
		sc.MedicineName = *req.MedicineName
	}
	if req.Dosage != nil {
		sc.Dosage = *req.Dosage
	}
	if req.Timings != nil {
		sc.Timings = schedule.NormalizeTimings(req.Timings)
	}
	if req.Enabled != nil {
		sc.Enabled = *req.Enabled
	}

	if err := a.store.UpdateSchedule(r.Context(), sc); err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"schedule": sc,
	})
}

func (a *API) DeleteScheduleHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.store.DeleteSchedule(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
