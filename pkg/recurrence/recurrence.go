// Package recurrence expands an RFC 5545 recurring object into concrete
// occurrences. It owns EXDATE/RDATE/RECURRENCE-ID override semantics,
// the occurrence cap/window intersection, and truncation reporting
// itself, but delegates BYxxx expansion arithmetic to
// teambition/rrule-go by re-serializing pkg/icalendar's typed
// RecurrenceRule back into the "DTSTART:...\nRRULE:..." string form that
// library's StrToRRule parses — the same bridging idiom the teacher uses
// in pkg/ical/recurrence.go, generalized from the teacher's
// denormalized Event model to operate on pkg/icalendar components
// directly.
package recurrence

import (
	"fmt"
	"sort"
	"time"

	"github.com/sonroyaalmerol/caldav-core/pkg/icalendar"
	"github.com/teambition/rrule-go"
)

// DefaultMaxOccurrences bounds the number of occurrences a single
// expansion produces even when the request window or COUNT would
// otherwise generate more, protecting against unbounded or pathological
// RRULEs (e.g. SECONDLY for years).
const DefaultMaxOccurrences = 4000

// Master describes a recurring object's invariant (non-recurrence-aware)
// shape: its UID, the DTSTART (with timezone context already resolved to
// loc), its duration (or explicit DTEND, normalized to a duration since
// every occurrence shares it), and its RRULE/RDATE/EXDATE sets.
type Master struct {
	UID      string
	DTStart  time.Time
	AllDay   bool
	Duration time.Duration
	RRule    *icalendar.RecurrenceRule
	RDates   []time.Time
	ExDates  []time.Time
}

// Override is a RECURRENCE-ID-bearing instance that replaces the
// generated occurrence at RecurrenceID with its own content.
type Override struct {
	RecurrenceID time.Time
	DTStart      time.Time
	Duration     time.Duration
}

// Occurrence is one expanded instance: either the generated form (from
// RRULE/RDATE) or an applied Override.
type Occurrence struct {
	Start        time.Time
	End          time.Time
	RecurrenceID time.Time
	Overridden   bool
}

// Result carries the expanded occurrences plus whether the expansion was
// truncated by MaxOccurrences before the requested window was fully
// covered.
type Result struct {
	Occurrences []Occurrence
	Truncated   bool
}

// Expand produces every occurrence of m that overlaps [windowStart,
// windowEnd), applying overrides and excluding EXDATEs, capped at
// maxOccurrences (DefaultMaxOccurrences if 0).
func Expand(m Master, overrides []Override, windowStart, windowEnd time.Time, maxOccurrences int) (Result, error) {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}

	var starts []time.Time
	truncated := false

	if m.RRule != nil {
		rr, err := toRRuleGo(m)
		if err != nil {
			return Result{}, fmt.Errorf("recurrence: %w", err)
		}
		// rrule-go's Between is inclusive of both bounds when asked; widen
		// the start of the search window by the event duration so an
		// occurrence that starts before windowStart but overlaps it is
		// still found. The end needs no widening: an occurrence that ends
		// after windowEnd but starts before it already lies in the range.
		occurrences := rr.Between(windowStart.Add(-m.Duration), windowEnd, true)
		if m.RRule.Count == 0 && len(occurrences) >= maxOccurrences {
			truncated = true
			occurrences = occurrences[:maxOccurrences]
		}
		starts = append(starts, occurrences...)
	} else {
		starts = append(starts, m.DTStart)
	}

	starts = append(starts, m.RDates...)
	starts = excludeDates(starts, m.ExDates)
	starts = dedupe(starts)

	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	if len(starts) > maxOccurrences {
		starts = starts[:maxOccurrences]
		truncated = true
	}

	overrideByRID := make(map[int64]Override, len(overrides))
	for _, o := range overrides {
		overrideByRID[o.RecurrenceID.UTC().Unix()] = o
	}

	var out []Occurrence
	for _, s := range starts {
		end := s.Add(m.Duration)
		occ := Occurrence{Start: s, End: end, RecurrenceID: s}
		if ov, ok := overrideByRID[s.UTC().Unix()]; ok {
			occ.Start = ov.DTStart
			occ.End = ov.DTStart.Add(ov.Duration)
			occ.Overridden = true
		}
		if occ.Start.Before(windowEnd) && occ.End.After(windowStart) {
			out = append(out, occ)
		}
	}

	// Detached overrides (RECURRENCE-ID moved outside the generated set,
	// e.g. a THISANDFUTURE-style reschedule) still need to surface if
	// their own time overlaps the window even though their original slot
	// was excluded or never generated.
	for _, ov := range overrides {
		if _, ok := overrideByRID[ov.RecurrenceID.UTC().Unix()]; !ok {
			continue
		}
		found := false
		for _, o := range out {
			if o.RecurrenceID.Equal(ov.RecurrenceID) {
				found = true
				break
			}
		}
		if !found && ov.DTStart.Before(windowEnd) && ov.DTStart.Add(ov.Duration).After(windowStart) {
			out = append(out, Occurrence{
				Start: ov.DTStart, End: ov.DTStart.Add(ov.Duration),
				RecurrenceID: ov.RecurrenceID, Overridden: true,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return Result{Occurrences: out, Truncated: truncated}, nil
}

func toRRuleGo(m Master) (*rrule.RRule, error) {
	layout := "20060102T150405Z"
	start := m.DTStart.UTC()
	if m.AllDay {
		layout = "20060102"
	}
	str := "DTSTART:" + start.Format(layout) + "\nRRULE:" + icalendar.FormatRecurrenceRule(m.RRule)
	return rrule.StrToRRule(str)
}

func excludeDates(starts, exdates []time.Time) []time.Time {
	if len(exdates) == 0 {
		return starts
	}
	excluded := make(map[int64]bool, len(exdates))
	for _, e := range exdates {
		excluded[e.UTC().Unix()] = true
	}
	out := starts[:0:0]
	for _, s := range starts {
		if !excluded[s.UTC().Unix()] {
			out = append(out, s)
		}
	}
	return out
}

func dedupe(starts []time.Time) []time.Time {
	seen := make(map[int64]bool, len(starts))
	out := starts[:0:0]
	for _, s := range starts {
		k := s.UTC().Unix()
		if !seen[k] {
			seen[k] = true
			out = append(out, s)
		}
	}
	return out
}

// IsRecurring reports whether m produces more than its single base
// occurrence.
func IsRecurring(m Master) bool {
	return m.RRule != nil || len(m.RDates) > 0
}
