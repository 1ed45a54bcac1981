package schedule

import (
	"reflect"
	"testing"
)

func TestHasPeriod(t *testing.T) {
	s := &Schedule{Timings: []Period{Morning, Evening}}
	if !s.HasPeriod(Morning) {
		t.Error("expected morning to match")
	}
	if !s.HasPeriod(Evening) {
		t.Error("expected evening to match")
	}
	if s.HasPeriod(Afternoon) {
		t.Error("afternoon should not match")
	}

	empty := &Schedule{}
	for _, p := range Periods {
		if empty.HasPeriod(p) {
			t.Errorf("schedule with no timings matched %q", p)
		}
	}

	// A tag outside the enumeration never matches any valid period.
	corrupt := &Schedule{Timings: []Period{"midday"}}
	for _, p := range Periods {
		if corrupt.HasPeriod(p) {
			t.Errorf("corrupt tag matched %q", p)
		}
	}
}

func TestNormalizeTimings(t *testing.T) {
	got := NormalizeTimings([]string{"Morning", "evening", "morning", "midday", ""})
	want := []Period{Morning, Evening}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeTimings: got %v, want %v", got, want)
	}

	if got := NormalizeTimings(nil); got != nil {
		t.Errorf("NormalizeTimings(nil): got %v, want nil", got)
	}
}
