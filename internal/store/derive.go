package store

import (
	"fmt"
	"time"

	"github.com/sonroyaalmerol/caldav-core/pkg/icalendar"
	"github.com/sonroyaalmerol/caldav-core/pkg/recurrence"
	"github.com/sonroyaalmerol/caldav-core/pkg/tzresolve"
	"github.com/sonroyaalmerol/caldav-core/pkg/vcard"
)

// DefaultMaxOccurrenceRows bounds the occurrence cache per entity, per
// spec.md §3's derived occurrence cache definition.
const DefaultMaxOccurrenceRows = 1000

// masterComponents is the set of calendar component types the derived
// calendar index and occurrence cache are computed from.
var masterComponents = []string{"VEVENT", "VTODO", "VJOURNAL"}

// DeriveCalendarIndex computes the CalendarIndexRow and OccurrenceRows
// for one instance's VCALENDAR entity, resolving TZID through resolver
// and expanding recurrence through pkg/recurrence, bounded to maxRows.
// This is the write-time computation spec.md §4.4 step 6 requires
// ("replace derived calendar index rows, re-expand recurrence and
// replace occurrence cache rows") — it runs inside the same transaction
// as the entity/instance write in each backend's PutCalendarObject.
func DeriveCalendarIndex(instanceID string, cal *icalendar.Calendar, resolver *tzresolve.Resolver, maxRows int) (CalendarIndexRow, []OccurrenceRow, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxOccurrenceRows
	}

	var master *icalendar.Component
	for _, name := range masterComponents {
		children := cal.Root.ChildrenNamed(name)
		for _, c := range children {
			if c.Get("RECURRENCE-ID") == nil {
				master = c
				break
			}
		}
		if master != nil {
			break
		}
	}
	if master == nil {
		return CalendarIndexRow{}, nil, fmt.Errorf("store: no master VEVENT/VTODO/VJOURNAL component")
	}

	row := CalendarIndexRow{
		InstanceID:    instanceID,
		ComponentType: master.Name,
	}
	if uid := master.Get("UID"); uid != nil {
		row.UID = icalendar.UnescapeText(uid.Raw)
	}
	if org := master.Get("ORGANIZER"); org != nil {
		row.Organizer = icalendar.UnescapeText(org.Raw)
	}
	if sum := master.Get("SUMMARY"); sum != nil {
		row.Summary = icalendar.UnescapeText(sum.Raw)
	}
	if loc := master.Get("LOCATION"); loc != nil {
		row.Location = icalendar.UnescapeText(loc.Raw)
	}
	if rr := master.Get("RRULE"); rr != nil {
		row.RRuleText = rr.Raw
	}

	dtstartProp := master.Get("DTSTART")
	if dtstartProp == nil {
		return row, nil, nil
	}
	row.TZID = dtstartProp.Param("TZID")
	loc, _ := resolver.Resolve(row.TZID, findVTimezone(cal, row.TZID))

	dtstart, err := icalendar.ParseDateTime(dtstartProp.Raw, row.TZID, loc)
	if err != nil {
		return row, nil, fmt.Errorf("store: parsing DTSTART: %w", err)
	}
	row.AllDay = dtstart.Date
	row.DTStartUTC = ptr(dtstart.Time.UTC())

	duration := time.Hour
	if dtendProp := master.Get("DTEND"); dtendProp != nil {
		dtend, err := icalendar.ParseDateTime(dtendProp.Raw, row.TZID, loc)
		if err == nil {
			duration = dtend.Time.Sub(dtstart.Time)
			row.DTEndUTC = ptr(dtend.Time.UTC())
		}
	} else if durProp := master.Get("DURATION"); durProp != nil {
		if d, err := icalendar.ParseDuration(durProp.Raw); err == nil {
			duration = d
			row.DTEndUTC = ptr(dtstart.Time.Add(d).UTC())
		}
	} else if row.AllDay {
		duration = 24 * time.Hour
		row.DTEndUTC = ptr(dtstart.Time.Add(duration).UTC())
	} else {
		row.DTEndUTC = ptr(dtstart.Time.UTC())
		duration = 0
	}

	var rrule *icalendar.RecurrenceRule
	if rr := master.Get("RRULE"); rr != nil {
		rrule, err = icalendar.ParseRecurrenceRule(rr.Raw, row.AllDay, dtstart.Form == icalendar.FormUTC)
		if err != nil {
			rrule = nil
		}
	}
	rdates := collectDateList(master, "RDATE", row.TZID, loc)
	exdates := collectDateList(master, "EXDATE", row.TZID, loc)

	if rrule == nil && len(rdates) == 0 {
		return row, nil, nil
	}

	m := recurrence.Master{
		UID: row.UID, DTStart: dtstart.Time, AllDay: row.AllDay,
		Duration: duration, RRule: rrule, RDates: rdates, ExDates: exdates,
	}
	overrides := collectOverrides(cal, row.UID, row.TZID, loc, duration)

	windowEnd := dtstart.Time.AddDate(50, 0, 0)
	result, err := recurrence.Expand(m, overrides, dtstart.Time, windowEnd, maxRows)
	if err != nil {
		return row, nil, fmt.Errorf("store: expanding recurrence: %w", err)
	}
	row.Truncated = result.Truncated

	occs := make([]OccurrenceRow, 0, len(result.Occurrences))
	for i, o := range result.Occurrences {
		occs = append(occs, OccurrenceRow{
			InstanceID: instanceID, Seq: i,
			DTStartUTC: o.Start.UTC(), DTEndUTC: o.End.UTC(),
			RecurrenceID: o.RecurrenceID.UTC(), IsException: o.Overridden,
		})
	}
	return row, occs, nil
}

func collectOverrides(cal *icalendar.Calendar, uid, tzid string, loc *time.Location, duration time.Duration) []recurrence.Override {
	var out []recurrence.Override
	for _, name := range masterComponents {
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
			dtstartProp := c.Get("DTSTART")
			if dtstartProp == nil {
				continue
			}
			dtstart, err := icalendar.ParseDateTime(dtstartProp.Raw, tzid, loc)
			if err != nil {
				continue
			}
			d := duration
			if dtendProp := c.Get("DTEND"); dtendProp != nil {
				if dtend, err := icalendar.ParseDateTime(dtendProp.Raw, tzid, loc); err == nil {
					d = dtend.Time.Sub(dtstart.Time)
				}
			}
			out = append(out, recurrence.Override{RecurrenceID: rid.Time, DTStart: dtstart.Time, Duration: d})
		}
	}
	return out
}

func collectDateList(comp *icalendar.Component, name, tzid string, loc *time.Location) []time.Time {
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

func findVTimezone(cal *icalendar.Calendar, tzid string) *icalendar.Component {
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

func ptr(t time.Time) *time.Time { return &t }

// DeriveAddressIndex computes the AddressIndexRow for one instance's
// vCard entity.
func DeriveAddressIndex(instanceID string, card *vcard.Card) AddressIndexRow {
	row := AddressIndexRow{InstanceID: instanceID}
	if p := card.Get("UID"); p != nil {
		row.UID = vcard.UnescapeText(p.Raw)
	}
	if p := card.Get("FN"); p != nil {
		row.FN = vcard.UnescapeText(p.Raw)
	}
	if p := card.Get("N"); p != nil {
		parts := vcard.SplitStructured(p.Raw)
		if len(parts) > 0 {
			row.FamilyName = vcard.UnescapeText(parts[0])
		}
		if len(parts) > 1 {
			row.GivenName = vcard.UnescapeText(parts[1])
		}
	}
	if p := card.Get("ORG"); p != nil {
		row.Organization = vcard.UnescapeText(p.Raw)
	}
	if p := card.Get("TITLE"); p != nil {
		row.Title = vcard.UnescapeText(p.Raw)
	}
	for _, p := range card.GetAll("EMAIL") {
		row.Emails = append(row.Emails, vcard.UnescapeText(p.Raw))
	}
	for _, p := range card.GetAll("TEL") {
		row.Phones = append(row.Phones, vcard.UnescapeText(p.Raw))
	}
	return row
}
