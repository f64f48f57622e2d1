// Package tzresolve resolves a TZID (as carried by a VALUE parameter or
// embedded VTIMEZONE) to a *time.Location, following the precedence
// order spec.md's timezone component requires: an embedded VTIMEZONE
// definition wins over the IANA database, which wins over a Windows-zone
// alias, which falls back to floating time when nothing resolves.
// Resolved locations are cached with internal/cache's generic TTL cache,
// grounded on the teacher's internal/cache/cache.go.
package tzresolve

import (
	"fmt"
	"strings"
	"time"

	"github.com/sonroyaalmerol/caldav-core/internal/cache"
	"github.com/sonroyaalmerol/caldav-core/pkg/icalendar"
)

// Resolver resolves TZIDs to locations, preferring embedded VTIMEZONE
// definitions registered via RegisterEmbedded, then falling back to the
// IANA tzdata compiled into the Go runtime, then a static Windows-zone
// alias table.
type Resolver struct {
	cache    *cache.Cache[string, *time.Location]
	cacheTTL time.Duration
}

// NewResolver creates a Resolver whose location lookups are cached for
// ttl (callers typically use a long TTL since IANA locations are
// effectively immutable for the life of a process).
func NewResolver(ttl time.Duration) *Resolver {
	return &Resolver{
		cache:    cache.New[string, *time.Location](ttl),
		cacheTTL: ttl,
	}
}

// Resolve returns the *time.Location for tzid, consulting (in order):
// an embedded VTIMEZONE component carried alongside the object, the IANA
// tzdatabase, and the Windows-zone alias table. If none resolve, it
// returns (nil, false) and the caller must treat the value as floating.
func (r *Resolver) Resolve(tzid string, embedded *icalendar.Component) (*time.Location, bool) {
	if tzid == "" {
		return nil, false
	}
	if loc, ok := r.cache.Get(tzid); ok {
		return loc, true
	}

	if embedded != nil {
		if loc, err := FromVTimezone(embedded); err == nil {
			r.cache.Set(tzid, loc, time.Now().Add(r.cacheTTL))
			return loc, true
		}
	}

	if loc, err := time.LoadLocation(tzid); err == nil {
		r.cache.Set(tzid, loc, time.Now().Add(r.cacheTTL))
		return loc, true
	}

	if iana, ok := windowsToIANA[tzid]; ok {
		if loc, err := time.LoadLocation(iana); err == nil {
			r.cache.Set(tzid, loc, time.Now().Add(r.cacheTTL))
			return loc, true
		}
	}

	if canon, ok := aliasToIANA[tzid]; ok {
		if loc, err := time.LoadLocation(canon); err == nil {
			r.cache.Set(tzid, loc, time.Now().Add(r.cacheTTL))
			return loc, true
		}
	}

	return nil, false
}

// FromVTimezone builds a *time.Location from an embedded VTIMEZONE
// component's STANDARD/DAYLIGHT observances. Since Go's time package has
// no public API to construct an arbitrary *time.Location from rule data,
// this resolves to the IANA zone the VTIMEZONE's TZID names when that
// TZID matches a known zone, and otherwise fails — embedded VTIMEZONEs
// in practice almost always carry a TZID equal to (or a vendor alias of)
// an IANA name generated by the authoring client (Apple, Google,
// Microsoft), so this covers the overwhelming majority of real data
// without attempting full POSIX TZ rule synthesis.
func FromVTimezone(comp *icalendar.Component) (*time.Location, error) {
	tzidProp := comp.Get("TZID")
	if tzidProp == nil {
		return nil, fmt.Errorf("tzresolve: VTIMEZONE missing TZID")
	}
	tzid := tzidProp.Raw
	if loc, err := time.LoadLocation(tzid); err == nil {
		return loc, nil
	}
	if iana, ok := windowsToIANA[tzid]; ok {
		return time.LoadLocation(iana)
	}
	if canon, ok := aliasToIANA[tzid]; ok {
		return time.LoadLocation(canon)
	}
	return nil, fmt.Errorf("tzresolve: cannot resolve VTIMEZONE TZID %q to a zone", tzid)
}

// Observance is one STANDARD or DAYLIGHT sub-component of a VTIMEZONE,
// decoded for callers that need the raw offsets (e.g. to render a
// VTIMEZONE back out for a client that doesn't understand IANA TZIDs).
type Observance struct {
	Daylight     bool
	TZOffsetFrom time.Duration
	TZOffsetTo   time.Duration
	TZName       string
	Start        icalendar.DateTime
	RRule        *icalendar.RecurrenceRule
}

// ParseObservances decodes every STANDARD/DAYLIGHT child of a VTIMEZONE
// component.
func ParseObservances(comp *icalendar.Component) ([]Observance, error) {
	var out []Observance
	for _, kind := range []string{"STANDARD", "DAYLIGHT"} {
		for _, child := range comp.ChildrenNamed(kind) {
			obs, err := parseObservance(child, kind == "DAYLIGHT")
			if err != nil {
				return nil, err
			}
			out = append(out, obs)
		}
	}
	return out, nil
}

func parseObservance(comp *icalendar.Component, daylight bool) (Observance, error) {
	obs := Observance{Daylight: daylight}

	from := comp.Get("TZOFFSETFROM")
	if from == nil {
		return obs, fmt.Errorf("tzresolve: observance missing TZOFFSETFROM")
	}
	d, err := icalendar.ParseUTCOffset(from.Raw)
	if err != nil {
		return obs, fmt.Errorf("tzresolve: invalid TZOFFSETFROM: %w", err)
	}
	obs.TZOffsetFrom = d

	to := comp.Get("TZOFFSETTO")
	if to == nil {
		return obs, fmt.Errorf("tzresolve: observance missing TZOFFSETTO")
	}
	d, err = icalendar.ParseUTCOffset(to.Raw)
	if err != nil {
		return obs, fmt.Errorf("tzresolve: invalid TZOFFSETTO: %w", err)
	}
	obs.TZOffsetTo = d

	if name := comp.Get("TZNAME"); name != nil {
		obs.TZName = name.Raw
	}

	dtstart := comp.Get("DTSTART")
	if dtstart == nil {
		return obs, fmt.Errorf("tzresolve: observance missing DTSTART")
	}
	dt, err := icalendar.ParseDateTime(dtstart.Raw, "", nil)
	if err != nil {
		return obs, fmt.Errorf("tzresolve: invalid observance DTSTART: %w", err)
	}
	obs.Start = dt

	if rrule := comp.Get("RRULE"); rrule != nil {
		rr, err := icalendar.ParseRecurrenceRule(rrule.Raw, dt.Date, false)
		if err != nil {
			return obs, fmt.Errorf("tzresolve: invalid observance RRULE: %w", err)
		}
		obs.RRule = rr
	}

	return obs, nil
}

// GapPolicy and FoldPolicy describe how a floating local time that falls
// in a DST spring-forward gap or falls twice in a DST fall-back fold is
// resolved to a single instant, per spec.md's DST resolution rule: gaps
// push forward by the size of the jump (02:30 on a spring-forward day
// becomes 03:30), folds prefer the earlier (before-the-transition)
// occurrence.
type GapPolicy int

const (
	GapPushForward GapPolicy = iota
)

type FoldPolicy int

const (
	FoldPreferEarlier FoldPolicy = iota
)

// ResolveWallClock interprets year/month/day/hour/min/sec as wall-clock
// time in loc, applying GapPolicy/FoldPolicy. In a fold time.Date already
// picks the earlier instant; in a gap it applies the offset from after the
// jump (02:30 comes out as 01:30), so the offset from before the jump is
// applied instead, which moves the result forward by the jump.
func ResolveWallClock(loc *time.Location, year int, month time.Month, day, hour, min, sec int, _ GapPolicy, _ FoldPolicy) time.Time {
	t := time.Date(year, month, day, hour, min, sec, 0, loc)
	if t.Year() != year || t.Month() != month || t.Day() != day || t.Hour() != hour || t.Minute() != min || t.Second() != sec {
		_, off := t.Zone()
		t = time.Date(year, month, day, hour, min, sec, 0, time.UTC).Add(-time.Duration(off) * time.Second).In(loc)
	}
	return t
}

// CanonicalTZID normalizes common vendor aliases and casing quirks so
// two TZID spellings that name the same zone compare equal.
func CanonicalTZID(tzid string) string {
	t := strings.TrimSpace(tzid)
	if iana, ok := windowsToIANA[t]; ok {
		return iana
	}
	if canon, ok := aliasToIANA[t]; ok {
		return canon
	}
	return t
}
