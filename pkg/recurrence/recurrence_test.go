package recurrence

import (
	"testing"
	"time"

	"github.com/sonroyaalmerol/caldav-core/pkg/icalendar"
)

func mustRRule(t *testing.T, s string) *icalendar.RecurrenceRule {
	t.Helper()
	rr, err := icalendar.ParseRecurrenceRule(s, false, true)
	if err != nil {
		t.Fatal(err)
	}
	return rr
}

func TestExpandDailyWithinWindow(t *testing.T) {
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	m := Master{
		UID:      "e1",
		DTStart:  start,
		Duration: time.Hour,
		RRule:    mustRRule(t, "FREQ=DAILY;COUNT=5"),
	}
	res, err := Expand(m, nil, start, start.AddDate(0, 0, 10), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 5 {
		t.Fatalf("got %d occurrences", len(res.Occurrences))
	}
	if res.Truncated {
		t.Error("did not expect truncation")
	}
}

func TestExpandRespectsExdate(t *testing.T) {
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	excluded := time.Date(2025, 1, 3, 9, 0, 0, 0, time.UTC)
	m := Master{
		UID:      "e1",
		DTStart:  start,
		Duration: time.Hour,
		RRule:    mustRRule(t, "FREQ=DAILY;COUNT=5"),
		ExDates:  []time.Time{excluded},
	}
	res, err := Expand(m, nil, start, start.AddDate(0, 0, 10), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 4 {
		t.Fatalf("got %d occurrences", len(res.Occurrences))
	}
	for _, o := range res.Occurrences {
		if o.Start.Equal(excluded) {
			t.Error("excluded date still present")
		}
	}
}

func TestExpandAppliesOverride(t *testing.T) {
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	rid := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	newStart := time.Date(2025, 1, 2, 14, 0, 0, 0, time.UTC)
	m := Master{
		UID:      "e1",
		DTStart:  start,
		Duration: time.Hour,
		RRule:    mustRRule(t, "FREQ=DAILY;COUNT=5"),
	}
	overrides := []Override{{RecurrenceID: rid, DTStart: newStart, Duration: time.Hour}}
	res, err := Expand(m, overrides, start, start.AddDate(0, 0, 10), 0)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, o := range res.Occurrences {
		if o.RecurrenceID.Equal(rid) {
			found = true
			if !o.Start.Equal(newStart) || !o.Overridden {
				t.Errorf("override not applied: %+v", o)
			}
		}
	}
	if !found {
		t.Error("expected overridden occurrence present")
	}
}

func TestExpandTruncatesAtMax(t *testing.T) {
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	m := Master{
		UID:      "e1",
		DTStart:  start,
		Duration: time.Hour,
		RRule:    mustRRule(t, "FREQ=DAILY"),
	}
	res, err := Expand(m, nil, start, start.AddDate(5, 0, 0), 10)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Truncated {
		t.Error("expected truncation")
	}
	if len(res.Occurrences) > 10 {
		t.Fatalf("got %d occurrences, want <= 10", len(res.Occurrences))
	}
}

func TestExpandNonRecurringSingleOccurrence(t *testing.T) {
	start := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	m := Master{UID: "e1", DTStart: start, Duration: time.Hour}
	res, err := Expand(m, nil, start.AddDate(0, 0, -1), start.AddDate(0, 0, 1), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Occurrences) != 1 {
		t.Fatalf("got %d occurrences", len(res.Occurrences))
	}
}

func TestIsRecurring(t *testing.T) {
	m := Master{}
	if IsRecurring(m) {
		t.Error("expected false for plain master")
	}
	m.RDates = []time.Time{time.Now()}
	if !IsRecurring(m) {
		t.Error("expected true when RDates present")
	}
}
