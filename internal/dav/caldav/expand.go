package caldav

import (
	"strings"
	"time"

	"github.com/sonroyaalmerol/caldav-core/internal/filter"
	"github.com/sonroyaalmerol/caldav-core/pkg/davxml"
	"github.com/sonroyaalmerol/caldav-core/pkg/icalendar"
	"github.com/sonroyaalmerol/caldav-core/pkg/recurrence"
)

// masterComponentNames lists the calendar component types that can
// carry an RRULE/RDATE and therefore stand as a recurrence master.
var masterComponentNames = []string{"VEVENT", "VTODO", "VJOURNAL"}

// liveOccurrenceResolver expands a recurring master component directly
// against windowStart/windowEnd, bypassing the occurrence cache. It is
// passed to store.Query as the fallback filter.Occurrences the cached
// resolver calls once the cached rows for an instance run out — past
// the occurrence cache's row cap or beyond the horizon it was computed
// to, this keeps time-range matching correct instead of silently
// treating the uncached tail as a non-match.
func (h *Handler) liveOccurrenceResolver() filter.Occurrences {
	return func(master *icalendar.Component, windowStart, windowEnd time.Time) ([]recurrence.Occurrence, error) {
		dtstartProp := master.Get("DTSTART")
		if dtstartProp == nil {
			return nil, nil
		}
		tzid := dtstartProp.Param("TZID")
		loc, _ := h.resolver.Resolve(tzid, nil)

		dtstart, err := icalendar.ParseDateTime(dtstartProp.Raw, tzid, loc)
		if err != nil {
			return nil, err
		}
		allDay := dtstart.Date

		duration := time.Hour
		if dtendProp := master.Get("DTEND"); dtendProp != nil {
			if dtend, err := icalendar.ParseDateTime(dtendProp.Raw, tzid, loc); err == nil {
				duration = dtend.Time.Sub(dtstart.Time)
			}
		} else if durProp := master.Get("DURATION"); durProp != nil {
			if d, err := icalendar.ParseDuration(durProp.Raw); err == nil {
				duration = d
			}
		} else if allDay {
			duration = 24 * time.Hour
		}

		var rrule *icalendar.RecurrenceRule
		if rr := master.Get("RRULE"); rr != nil {
			rrule, err = icalendar.ParseRecurrenceRule(rr.Raw, allDay, dtstart.Form == icalendar.FormUTC)
			if err != nil {
				rrule = nil
			}
		}
		rdates := collectDateListLocal(master, "RDATE", tzid, loc)
		exdates := collectDateListLocal(master, "EXDATE", tzid, loc)
		if rrule == nil && len(rdates) == 0 {
			if dtstart.Time.Before(windowEnd) && dtstart.Time.Add(duration).After(windowStart) {
				return []recurrence.Occurrence{{Start: dtstart.Time, End: dtstart.Time.Add(duration)}}, nil
			}
			return nil, nil
		}

		uid := ""
		if uidProp := master.Get("UID"); uidProp != nil {
			uid = icalendar.UnescapeText(uidProp.Raw)
		}
		m := recurrence.Master{UID: uid, DTStart: dtstart.Time, AllDay: allDay, Duration: duration, RRule: rrule, RDates: rdates, ExDates: exdates}

		// this callback only ever receives the one master component
		// pulled out of the stored VCALENDAR, so RECURRENCE-ID overrides
		// living alongside it are invisible here; expansion runs without
		// them, same limitation the occurrence cache's own write-time
		// expansion has when overrides are absent.
		result, err := recurrence.Expand(m, nil, windowStart, windowEnd, recurrence.DefaultMaxOccurrences)
		if err != nil {
			return nil, err
		}
		return result.Occurrences, nil
	}
}

func collectDateListLocal(comp *icalendar.Component, name, tzid string, loc *time.Location) []time.Time {
	var out []time.Time
	for _, p := range comp.GetAll(name) {
		for _, v := range icalendar.SplitList(p.Raw) {
			dt, err := icalendar.ParseDateTime(v, tzid, loc)
			if err != nil {
				continue
			}
			out = append(out, dt.Time)
		}
	}
	return out
}

// parseUTCRange parses the start/end attributes expand and
// limit-recurrence-set both carry, in their fixed UTC DATE-TIME form.
func parseUTCRange(startStr, endStr string) (time.Time, time.Time, bool) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, false
	}
	start, err1 := time.Parse("20060102T150405Z", startStr)
	end, err2 := time.Parse("20060102T150405Z", endStr)
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func isMasterComponent(name string) bool {
	for _, n := range masterComponentNames {
		if strings.EqualFold(name, n) {
			return true
		}
	}
	return false
}

// applyLimitRecurrenceSet drops overridden instances (components
// carrying RECURRENCE-ID) whose instant falls outside [lrs.Start,
// lrs.End), per RFC 4791 §9.6.2. The master and any non-recurring
// components are always kept.
func applyLimitRecurrenceSet(cal *icalendar.Calendar, lrs *davxml.LimitRecurrenceSet) *icalendar.Calendar {
	if lrs == nil || cal == nil {
		return cal
	}
	start, end, ok := parseUTCRange(lrs.Start, lrs.End)
	if !ok {
		return cal
	}

	out := icalendar.NewComponent(cal.Root.Name)
	for _, p := range cal.Root.Properties {
		out.AddProperty(p)
	}
	for _, c := range cal.Root.Children {
		rid := c.Get("RECURRENCE-ID")
		if rid == nil {
			out.AddChild(c)
			continue
		}
		dt, err := icalendar.ParseDateTime(rid.Raw, rid.Param("TZID"), nil)
		if err != nil || withinHalfOpenRange(dt.Time, start, end) {
			out.AddChild(c)
		}
	}
	return &icalendar.Calendar{Root: out}
}

func withinHalfOpenRange(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// applyExpand materializes cal's recurring masters into one component
// per occurrence overlapping [exp.Start, exp.End) (RFC 4791 §9.6.5),
// each carrying a concrete UTC DTSTART/DTEND/RECURRENCE-ID and no
// RRULE/RDATE/EXDATE, so the client receives instances directly instead
// of having to expand the master itself.
func applyExpand(h *Handler, cal *icalendar.Calendar, exp *davxml.Expand) *icalendar.Calendar {
	if exp == nil || cal == nil {
		return cal
	}
	start, end, ok := parseUTCRange(exp.Start, exp.End)
	if !ok {
		return cal
	}

	out := icalendar.NewComponent(cal.Root.Name)
	for _, p := range cal.Root.Properties {
		out.AddProperty(p)
	}
	for _, name := range masterComponentNames {
		for _, master := range cal.Root.ChildrenNamed(name) {
			if master.Get("RECURRENCE-ID") != nil {
				continue // folded into the master's expansion below
			}
			h.expandMasterInto(out, cal, master, start, end)
		}
	}
	for _, c := range cal.Root.Children {
		if !isMasterComponent(c.Name) {
			out.AddChild(c)
		}
	}
	return &icalendar.Calendar{Root: out}
}

func (h *Handler) expandMasterInto(out *icalendar.Component, cal *icalendar.Calendar, master *icalendar.Component, start, end time.Time) {
	uid := ""
	if p := master.Get("UID"); p != nil {
		uid = icalendar.UnescapeText(p.Raw)
	}
	dtstartProp := master.Get("DTSTART")
	if dtstartProp == nil {
		out.AddChild(master)
		return
	}
	tzid := dtstartProp.Param("TZID")
	loc, _ := h.resolver.Resolve(tzid, findVTimezoneLocal(cal, tzid))
	dtstart, err := icalendar.ParseDateTime(dtstartProp.Raw, tzid, loc)
	if err != nil {
		out.AddChild(master)
		return
	}
	allDay := dtstart.Date

	duration := time.Hour
	if dtendProp := master.Get("DTEND"); dtendProp != nil {
		if dtend, err := icalendar.ParseDateTime(dtendProp.Raw, tzid, loc); err == nil {
			duration = dtend.Time.Sub(dtstart.Time)
		}
	} else if durProp := master.Get("DURATION"); durProp != nil {
		if d, err := icalendar.ParseDuration(durProp.Raw); err == nil {
			duration = d
		}
	} else if allDay {
		duration = 24 * time.Hour
	}

	var rrule *icalendar.RecurrenceRule
	if rr := master.Get("RRULE"); rr != nil {
		rrule, err = icalendar.ParseRecurrenceRule(rr.Raw, allDay, dtstart.Form == icalendar.FormUTC)
		if err != nil {
			rrule = nil
		}
	}
	rdates := collectDateListLocal(master, "RDATE", tzid, loc)
	exdates := collectDateListLocal(master, "EXDATE", tzid, loc)

	overridesByRID := map[time.Time]*icalendar.Component{}
	var overrides []recurrence.Override
	for _, name := range masterComponentNames {
		for _, c := range cal.Root.ChildrenNamed(name) {
			ridProp := c.Get("RECURRENCE-ID")
			if ridProp == nil {
				continue
			}
			if uidProp := c.Get("UID"); uidProp == nil || icalendar.UnescapeText(uidProp.Raw) != uid {
				continue
			}
			rid, err := icalendar.ParseDateTime(ridProp.Raw, ridProp.Param("TZID"), loc)
			if err != nil {
				continue
			}
			d := duration
			odtstart := rid.Time
			if odtstartProp := c.Get("DTSTART"); odtstartProp != nil {
				if dt, err := icalendar.ParseDateTime(odtstartProp.Raw, tzid, loc); err == nil {
					odtstart = dt.Time
					if odtendProp := c.Get("DTEND"); odtendProp != nil {
						if dtend, err := icalendar.ParseDateTime(odtendProp.Raw, tzid, loc); err == nil {
							d = dtend.Time.Sub(odtstart)
						}
					}
				}
			}
			overrides = append(overrides, recurrence.Override{RecurrenceID: rid.Time, DTStart: odtstart, Duration: d})
			overridesByRID[rid.Time.UTC()] = c
		}
	}

	if rrule == nil && len(rdates) == 0 {
		if dtstart.Time.Before(end) && dtstart.Time.Add(duration).After(start) {
			out.AddChild(materializeOccurrence(master, dtstart.Time, dtstart.Time.Add(duration), time.Time{}))
		}
		return
	}

	m := recurrence.Master{UID: uid, DTStart: dtstart.Time, AllDay: allDay, Duration: duration, RRule: rrule, RDates: rdates, ExDates: exdates}
	result, err := recurrence.Expand(m, overrides, start, end, recurrence.DefaultMaxOccurrences)
	if err != nil {
		out.AddChild(master)
		return
	}
	for _, o := range result.Occurrences {
		if o.Overridden {
			if oc, ok := overridesByRID[o.RecurrenceID.UTC()]; ok {
				out.AddChild(materializeOccurrence(oc, o.Start, o.End, o.RecurrenceID))
				continue
			}
		}
		out.AddChild(materializeOccurrence(master, o.Start, o.End, o.RecurrenceID))
	}
}

var expandDroppedProps = map[string]bool{
	"DTSTART": true, "DTEND": true, "DURATION": true,
	"RRULE": true, "RDATE": true, "EXDATE": true, "RECURRENCE-ID": true,
}

// materializeOccurrence clones src (either the master or its override
// for this instant) into a standalone component carrying a concrete,
// UTC-form DTSTART/DTEND/RECURRENCE-ID and no recurrence properties.
func materializeOccurrence(src *icalendar.Component, start, end, rid time.Time) *icalendar.Component {
	out := icalendar.NewComponent(src.Name)
	for _, p := range src.Properties {
		if expandDroppedProps[strings.ToUpper(p.Name)] {
			continue
		}
		out.AddProperty(p)
	}
	out.AddProperty(&icalendar.Property{Name: "DTSTART", Raw: formatUTCStamp(start)})
	out.AddProperty(&icalendar.Property{Name: "DTEND", Raw: formatUTCStamp(end)})
	if !rid.IsZero() {
		out.AddProperty(&icalendar.Property{Name: "RECURRENCE-ID", Raw: formatUTCStamp(rid)})
	}
	return out
}

func formatUTCStamp(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func findVTimezoneLocal(cal *icalendar.Calendar, tzid string) *icalendar.Component {
	if tzid == "" {
		return nil
	}
	for _, vt := range cal.Root.ChildrenNamed("VTIMEZONE") {
		if p := vt.Get("TZID"); p != nil && p.Raw == tzid {
			return vt
		}
	}
	return nil
}
