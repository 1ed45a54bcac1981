package schedule

import (
	"fmt"
	"strings"
)

// Period is one of the four fixed daily buckets a schedule can be tagged
// with. The same values are used to classify the current wall-clock time,
// so a schedule tagged "morning" is matched by a dispatch run whose clock
// hour falls in the morning bucket.
type Period string

const (
	Morning   Period = "morning"
	Afternoon Period = "afternoon"
	Evening   Period = "evening"
	Night     Period = "night"
)

// Periods lists all valid periods in daily order.
var Periods = []Period{Morning, Afternoon, Evening, Night}

// ParsePeriod returns the Period for a tag string, case-insensitively.
// Unknown tags are an error; callers that read tags from the store should
// treat them as never-matching instead of failing the batch.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case Morning:
		return Morning, nil
	case Afternoon:
		return Afternoon, nil
	case Evening:
		return Evening, nil
	case Night:
		return Night, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Valid reports whether p is one of the four known periods.
func (p Period) Valid() bool {
	switch p {
	case Morning, Afternoon, Evening, Night:
		return true
	}
	return false
}

// PeriodForHour maps an hour of day (0-23) to its period:
//
//	[6,12)  morning
//	[12,17) afternoon
//	[17,21) evening
//	[21,24) and [0,6) night
//
// The boundaries are fixed; the trigger times in the scheduler are chosen
// to fall inside the bucket they notify for.
func PeriodForHour(hour int) Period {
	switch {
	case hour >= 6 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 21:
		return Evening
	default:
		return Night
	}
}
