package storage

import (
	"context"
	"sync"
	"time"

	"medimind/internal/schedule"
	"medimind/internal/user"
)

// MemoryStorage keeps everything in process memory. Used for development
// and tests.
type MemoryStorage struct {
	users     map[string]*user.User
	schedules map[string]*schedule.Schedule
	mu        sync.Mutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:     make(map[string]*user.User),
		schedules: make(map[string]*schedule.Schedule),
	}
}

// User operations

func (m *MemoryStorage) CreateUser(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = ensureID(u.ID)
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStorage) GetUser(ctx context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStorage) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

// Schedule operations

func (m *MemoryStorage) CreateSchedule(ctx context.Context, s *schedule.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = ensureID(s.ID)
	m.schedules[s.ID] = copySchedule(s)
	return nil
}

func (m *MemoryStorage) GetSchedule(ctx context.Context, id string) (*schedule.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySchedule(s), nil
}

func (m *MemoryStorage) ListSchedules(ctx context.Context, userID string) ([]*schedule.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*schedule.Schedule
	for _, s := range m.schedules {
		if s.UserID == userID {
			list = append(list, copySchedule(s))
		}
	}
	return list, nil
}

func (m *MemoryStorage) ListDueSchedules(ctx context.Context, p schedule.Period) ([]*schedule.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*schedule.Schedule
	for _, s := range m.schedules {
		if s.Enabled && s.HasPeriod(p) {
			list = append(list, copySchedule(s))
		}
	}
	return list, nil
}

func (m *MemoryStorage) UpdateSchedule(ctx context.Context, s *schedule.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[s.ID]; !ok {
		return ErrNotFound
	}
	m.schedules[s.ID] = copySchedule(s)
	return nil
}

func (m *MemoryStorage) SetScheduleEnabled(ctx context.Context, id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return ErrNotFound
	}
	s.Enabled = enabled
	return nil
}

func (m *MemoryStorage) DeleteSchedule(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.schedules, id)
	return nil
}

func (m *MemoryStorage) StampReminderSent(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return ErrNotFound
	}
	t := at
	s.LastReminderSent = &t
	return nil
}

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

func (m *MemoryStorage) Close(ctx context.Context) error { return nil }

// copySchedule returns a deep enough copy that callers can't mutate the
// stored record (the dispatch engine reads schedules while handlers may
// be toggling them).
func copySchedule(s *schedule.Schedule) *schedule.Schedule {
	cp := *s
	if s.Timings != nil {
		cp.Timings = append([]schedule.Period(nil), s.Timings...)
	}
	if s.LastReminderSent != nil {
		t := *s.LastReminderSent
		cp.LastReminderSent = &t
	}
	return &cp
}
