package filter

import (
	"time"

	"github.com/sonroyaalmerol/caldav-core/internal/caldaverr"
	"github.com/sonroyaalmerol/caldav-core/pkg/davxml"
	"github.com/sonroyaalmerol/caldav-core/pkg/icalendar"
	"github.com/sonroyaalmerol/caldav-core/pkg/recurrence"
)

// Occurrences resolves a recurring master's expansion for time-range
// matching. internal/dav supplies this — internal/filter has no
// knowledge of the object store or RECURRENCE-ID overrides beyond what
// is already embedded in the VCALENDAR tree being tested.
type Occurrences func(master *icalendar.Component, windowStart, windowEnd time.Time) ([]recurrence.Occurrence, error)

// MatchCalendar reports whether cal satisfies f's top-level comp-filter
// (always VCALENDAR per RFC 4791 §9.7.1), expanding recurrence through
// resolve when a time-range test needs it.
func MatchCalendar(f davxml.CalendarFilter, cal *icalendar.Calendar, resolve Occurrences) (bool, error) {
	return matchCompFilter(f.CompFilter, []*icalendar.Component{cal.Root}, resolve)
}

// matchCompFilter evaluates one comp-filter against the set of sibling
// components sharing its name (there is normally exactly one, but
// VCALENDAR may hold multiple VEVENTs when a master/override pair is
// stored together).
func matchCompFilter(cf davxml.CompFilter, comps []*icalendar.Component, resolve Occurrences) (bool, error) {
	var named []*icalendar.Component
	for _, c := range comps {
		if equalFoldASCII(c.Name, cf.Name) {
			named = append(named, c)
		}
		named = append(named, c.ChildrenNamed(cf.Name)...)
	}

	if cf.IsNotDefined != nil {
		return len(named) == 0, nil
	}
	if len(named) == 0 {
		return false, nil
	}

	for _, comp := range named {
		ok, err := matchOneComp(cf, comp, resolve)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func matchOneComp(cf davxml.CompFilter, comp *icalendar.Component, resolve Occurrences) (bool, error) {
	if cf.TimeRange != nil {
		ok, err := matchCompTimeRange(cf.TimeRange, comp, resolve)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	for _, pf := range cf.PropFilter {
		ok, err := matchPropFilterSingle(pf, comp)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	for _, child := range cf.CompFilter {
		ok, err := matchCompFilter(child, []*icalendar.Component{comp}, resolve)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// matchCompTimeRange implements RFC 4791 §9.9's component time-range
// test. A non-recurring component's effective interval is DTSTART..DTEND
// (or DTSTART..DTSTART+DURATION, or, absent both, DTSTART..DTSTART for a
// zero-length instant); a recurring one must have at least one expanded
// occurrence overlapping [start, end).
func matchCompTimeRange(tr *davxml.TimeRange, comp *icalendar.Component, resolve Occurrences) (bool, error) {
	start, end, err := parseTimeRangeBounds(tr)
	if err != nil {
		return false, err
	}

	if hasRecurrence(comp) && resolve != nil {
		occs, err := resolve(comp, start, end)
		if err != nil {
			return false, err
		}
		for _, o := range occs {
			if o.Start.Before(end) && o.End.After(start) {
				return true, nil
			}
		}
		return false, nil
	}

	dtstart, ok := propTime(comp, "DTSTART")
	if !ok {
		// VTODO/VJOURNAL without DTSTART: RFC 4791 §9.9 falls back to
		// DUE (VTODO) or treats the component as unbounded (VJOURNAL).
		if due, ok := propTime(comp, "DUE"); ok {
			return due.After(start) && due.Before(end) || due.Equal(start), nil
		}
		return true, nil
	}
	dtend, ok := propTime(comp, "DTEND")
	if !ok {
		if dur := comp.Get("DURATION"); dur != nil {
			d, err := icalendar.ParseDuration(dur.Raw)
			if err == nil {
				dtend = dtstart.Add(d)
				ok = true
			}
		}
	}
	if !ok {
		dtend = dtstart
	}
	return dtstart.Before(end) && dtend.After(start), nil
}

func hasRecurrence(comp *icalendar.Component) bool {
	return comp.Get("RRULE") != nil || comp.Get("RDATE") != nil
}

func propTime(comp *icalendar.Component, name string) (time.Time, bool) {
	p := comp.Get(name)
	if p == nil {
		return time.Time{}, false
	}
	dt, err := icalendar.ParseDateTime(p.Raw, p.Param("TZID"), nil)
	if err != nil {
		return time.Time{}, false
	}
	return dt.Time, true
}

func parseTimeRangeBounds(tr *davxml.TimeRange) (time.Time, time.Time, error) {
	start := time.Time{}
	end := maxTime
	var err error
	if tr.Start != "" {
		start, err = time.Parse("20060102T150405Z", tr.Start)
		if err != nil {
			return time.Time{}, time.Time{}, caldaverr.Precondition("valid-filter", "invalid time-range start")
		}
	}
	if tr.End != "" {
		end, err = time.Parse("20060102T150405Z", tr.End)
		if err != nil {
			return time.Time{}, time.Time{}, caldaverr.Precondition("valid-filter", "invalid time-range end")
		}
	}
	return start, end, nil
}

var maxTime = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// matchPropFilterSingle evaluates a single CalDAV prop-filter (is-defined
// implicit by default, is-not-defined, time-range, text-match, and any
// number of nested param-filters) against one property of comp.
func matchPropFilterSingle(pf davxml.PropFilter, comp *icalendar.Component) (bool, error) {
	props := comp.GetAll(pf.Name)

	if pf.IsNotDefined != nil {
		return len(props) == 0, nil
	}
	if len(props) == 0 {
		return false, nil
	}

	for _, p := range props {
		ok, err := matchOneCalProp(pf, p)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func matchOneCalProp(pf davxml.PropFilter, p *icalendar.Property) (bool, error) {
	if pf.TimeRange != nil {
		start, end, err := parseTimeRangeBounds(pf.TimeRange)
		if err != nil {
			return false, err
		}
		dt, err := icalendar.ParseDateTime(p.Raw, p.Param("TZID"), nil)
		if err != nil {
			return false, nil
		}
		inRange := (dt.Time.After(start) || dt.Time.Equal(start)) && dt.Time.Before(end)
		if !inRange {
			return false, nil
		}
	}
	if pf.TextMatch != nil {
		ok, err := evalTextMatch(*pf.TextMatch, decodedValue(p.Raw))
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	for _, paf := range pf.ParamFilter {
		ok, err := matchParamFilter(paf, p)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchParamFilter(paf davxml.ParamFilter, p *icalendar.Property) (bool, error) {
	vals := p.ParamValues(paf.Name)
	if paf.IsNotDefined != nil {
		return len(vals) == 0, nil
	}
	if len(vals) == 0 {
		return false, nil
	}
	if paf.TextMatch == nil {
		return true, nil
	}
	for _, v := range vals {
		ok, err := evalTextMatch(*paf.TextMatch, v)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// evalTextMatch evaluates a calendar-side text-match, defaulting its
// collation to i;ascii-casemap per RFC 4791 §9.3.2 when unspecified.
func evalTextMatch(tm davxml.TextMatch, value string) (bool, error) {
	return evalTextMatchDefault(tm, value, CollationASCIICasemap)
}

func evalTextMatchDefault(tm davxml.TextMatch, value string, def Collation) (bool, error) {
	c, err := ParseCollation(tm.Collation, def)
	if err != nil {
		return false, caldaverr.Precondition("supported-collation", err.Error())
	}
	mt, err := ParseMatchType(tm.MatchType)
	if err != nil {
		return false, caldaverr.Precondition("supported-filter", err.Error())
	}
	ok := MatchText(c, mt, value, tm.Value)
	if tm.Negated() {
		ok = !ok
	}
	return ok, nil
}

// decodedValue strips iCalendar backslash-escaping so text-match compares
// against the value a user would actually read, not its wire encoding.
func decodedValue(raw string) string {
	return icalendar.UnescapeText(raw)
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'a' <= ca && ca <= 'z' {
			ca -= 32
		}
		if 'a' <= cb && cb <= 'z' {
			cb -= 32
		}
		if ca != cb {
			return false
		}
	}
	return true
}
