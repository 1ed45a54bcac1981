package schedule

import "time"

// Schedule is one medication-time rule for one user: take this medicine,
// at this dosage, during these periods of the day. Schedules are created
// by the prescription ingestion pipeline and toggled or deleted by the
// user; the dispatch engine only reads them and stamps LastReminderSent.
type Schedule struct {
	ID             string     `json:"id" bson:"id"`
	UserID         string     `json:"user_id" bson:"user_id"`
	PrescriptionID string     `json:"prescription_id" bson:"prescription_id"`
	MedicineName   string     `json:"medicine_name" bson:"medicine_name"`
	Dosage         string     `json:"dosage" bson:"dosage"`
	Timings        []Period   `json:"timings" bson:"timings"`
	Enabled        bool       `json:"enabled" bson:"enabled"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
	// LastReminderSent is advisory only: it records the most recent
	// successful delivery and is never consulted to suppress a send.
	LastReminderSent *time.Time `json:"last_reminder_sent,omitempty" bson:"last_reminder_sent,omitempty"`
}

// HasPeriod reports whether the schedule is tagged with p. Tags outside
// the known enumeration simply never match, so a corrupt record cannot
// fail a dispatch run.
func (s *Schedule) HasPeriod(p Period) bool {
	for _, t := range s.Timings {
		if t == p {
			return true
		}
	}
	return false
}

// NormalizeTimings drops unknown tags and collapses duplicates, keeping
// first-seen order. A schedule left with no timings never fires.
func NormalizeTimings(tags []string) []Period {
	seen := make(map[Period]bool, len(tags))
	var out []Period
	for _, tag := range tags {
		p, err := ParsePeriod(tag)
		if err != nil || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
