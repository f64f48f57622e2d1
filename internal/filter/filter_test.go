package filter

import (
	"testing"
	"time"

	"github.com/sonroyaalmerol/caldav-core/pkg/davxml"
	"github.com/sonroyaalmerol/caldav-core/pkg/icalendar"
	"github.com/sonroyaalmerol/caldav-core/pkg/recurrence"
	"github.com/sonroyaalmerol/caldav-core/pkg/vcard"
)

const eventICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:event-1
DTSTAMP:20250101T000000Z
DTSTART:20250615T090000Z
DTEND:20250615T100000Z
SUMMARY:Team Standup
CATEGORIES:WORK,STANDUP
END:VEVENT
END:VCALENDAR
`

func mustParseCal(t *testing.T, data string) *icalendar.Calendar {
	t.Helper()
	cal, err := icalendar.Parse([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	return cal
}

func TestMatchCalendarTimeRangeOverlap(t *testing.T) {
	cal := mustParseCal(t, eventICS)
	f := davxml.CalendarFilter{CompFilter: davxml.CompFilter{
		Name: "VCALENDAR",
		CompFilter: []davxml.CompFilter{{
			Name:      "VEVENT",
			TimeRange: &davxml.TimeRange{Start: "20250615T000000Z", End: "20250616T000000Z"},
		}},
	}}
	ok, err := MatchCalendar(f, cal, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected overlap match")
	}
}

func TestMatchCalendarTimeRangeNoOverlap(t *testing.T) {
	cal := mustParseCal(t, eventICS)
	f := davxml.CalendarFilter{CompFilter: davxml.CompFilter{
		Name: "VCALENDAR",
		CompFilter: []davxml.CompFilter{{
			Name:      "VEVENT",
			TimeRange: &davxml.TimeRange{Start: "20250101T000000Z", End: "20250102T000000Z"},
		}},
	}}
	ok, err := MatchCalendar(f, cal, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("did not expect match")
	}
}

func TestMatchCalendarTextMatch(t *testing.T) {
	cal := mustParseCal(t, eventICS)
	f := davxml.CalendarFilter{CompFilter: davxml.CompFilter{
		Name: "VCALENDAR",
		CompFilter: []davxml.CompFilter{{
			Name: "VEVENT",
			PropFilter: []davxml.PropFilter{{
				Name:      "SUMMARY",
				TextMatch: &davxml.TextMatch{Value: "standup"},
			}},
		}},
	}}
	ok, err := MatchCalendar(f, cal, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected case-insensitive substring match under default ascii-casemap collation")
	}
}

func TestMatchCalendarTextMatchOctetCaseSensitive(t *testing.T) {
	cal := mustParseCal(t, eventICS)
	f := davxml.CalendarFilter{CompFilter: davxml.CompFilter{
		Name: "VCALENDAR",
		CompFilter: []davxml.CompFilter{{
			Name: "VEVENT",
			PropFilter: []davxml.PropFilter{{
				Name:      "SUMMARY",
				TextMatch: &davxml.TextMatch{Value: "standup", Collation: "i;octet"},
			}},
		}},
	}}
	ok, err := MatchCalendar(f, cal, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected no match: i;octet must not case-fold")
	}
}

func TestMatchCalendarNegatedTextMatch(t *testing.T) {
	cal := mustParseCal(t, eventICS)
	f := davxml.CalendarFilter{CompFilter: davxml.CompFilter{
		Name: "VCALENDAR",
		CompFilter: []davxml.CompFilter{{
			Name: "VEVENT",
			PropFilter: []davxml.PropFilter{{
				Name:      "SUMMARY",
				TextMatch: &davxml.TextMatch{Value: "lunch", NegateCondition: "yes"},
			}},
		}},
	}}
	ok, err := MatchCalendar(f, cal, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected negated text-match to succeed when substring absent")
	}
}

func TestMatchCalendarIsNotDefined(t *testing.T) {
	cal := mustParseCal(t, eventICS)
	f := davxml.CalendarFilter{CompFilter: davxml.CompFilter{
		Name: "VCALENDAR",
		CompFilter: []davxml.CompFilter{{
			Name: "VEVENT",
			PropFilter: []davxml.PropFilter{{
				Name:         "LOCATION",
				IsNotDefined: &struct{}{},
			}},
		}},
	}}
	ok, err := MatchCalendar(f, cal, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected is-not-defined to match absent LOCATION")
	}
}

func TestMatchCalendarRecurringUsesResolver(t *testing.T) {
	recurringICS := `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:event-2
DTSTAMP:20250101T000000Z
DTSTART:20250101T090000Z
DTEND:20250101T100000Z
RRULE:FREQ=DAILY;COUNT=30
SUMMARY:Daily sync
END:VEVENT
END:VCALENDAR
`
	cal := mustParseCal(t, recurringICS)
	var calledWith *icalendar.Component
	resolver := func(master *icalendar.Component, start, end time.Time) ([]recurrence.Occurrence, error) {
		calledWith = master
		return []recurrence.Occurrence{{
			Start: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		}}, nil
	}
	f := davxml.CalendarFilter{CompFilter: davxml.CompFilter{
		Name: "VCALENDAR",
		CompFilter: []davxml.CompFilter{{
			Name:      "VEVENT",
			TimeRange: &davxml.TimeRange{Start: "20250601T000000Z", End: "20250602T000000Z"},
		}},
	}}
	ok, err := MatchCalendar(f, cal, resolver)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected recurring match via resolver")
	}
	if calledWith == nil {
		t.Error("expected resolver to be invoked for recurring component")
	}
}

func TestMatchCardPropFilterAnyOf(t *testing.T) {
	card := &vcard.Card{}
	card.AddProperty(&vcard.Property{Name: "FN", Raw: "Jane Doe"})
	card.AddProperty(&vcard.Property{Name: "EMAIL", Raw: "jane@example.com"})

	f := davxml.AddressbookFilter{
		PropFilter: []davxml.PropFilter{
			{Name: "EMAIL", TextMatch: &davxml.TextMatch{Value: "example.com"}},
			{Name: "FN", TextMatch: &davxml.TextMatch{Value: "nonexistent"}},
		},
	}
	ok, err := MatchCard(f, card)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected anyof match on EMAIL")
	}
}

func TestMatchCardPropFilterAllOf(t *testing.T) {
	card := &vcard.Card{}
	card.AddProperty(&vcard.Property{Name: "FN", Raw: "Jane Doe"})
	card.AddProperty(&vcard.Property{Name: "EMAIL", Raw: "jane@example.com"})

	f := davxml.AddressbookFilter{
		Test: "allof",
		PropFilter: []davxml.PropFilter{
			{Name: "EMAIL", TextMatch: &davxml.TextMatch{Value: "example.com"}},
			{Name: "FN", TextMatch: &davxml.TextMatch{Value: "Jane"}},
		},
	}
	ok, err := MatchCard(f, card)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected allof match on both EMAIL and FN")
	}
}

func TestMatchCardIsNotDefined(t *testing.T) {
	card := &vcard.Card{}
	card.AddProperty(&vcard.Property{Name: "FN", Raw: "Jane Doe"})

	f := davxml.AddressbookFilter{
		PropFilter: []davxml.PropFilter{{Name: "NICKNAME", IsNotDefined: &struct{}{}}},
	}
	ok, err := MatchCard(f, card)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected is-not-defined match for absent NICKNAME")
	}
}

func TestMatchCardParamFilter(t *testing.T) {
	card := &vcard.Card{}
	tel := &vcard.Property{Name: "TEL", Raw: "+1-555-0100"}
	tel.Params = append(tel.Params, &vcard.Parameter{Name: "TYPE", Values: []string{"work"}})
	card.AddProperty(tel)

	f := davxml.AddressbookFilter{
		PropFilter: []davxml.PropFilter{{
			Name: "TEL",
			ParamFilter: []davxml.ParamFilter{{
				Name:      "TYPE",
				TextMatch: &davxml.TextMatch{Value: "work"},
			}},
		}},
	}
	ok, err := MatchCard(f, card)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected param-filter match on TYPE=work")
	}
}

func TestValidateCollationRejectsUnknown(t *testing.T) {
	if err := ValidateCollation("i;bogus", CollationASCIICasemap); err == nil {
		t.Error("expected error for unsupported collation")
	}
	if err := ValidateCollation("i;unicode-casemap", CollationASCIICasemap); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateCollation("", CollationASCIICasemap); err != nil {
		t.Errorf("unexpected error for empty collation (default): %v", err)
	}
}

func TestMatchTextMatchTypes(t *testing.T) {
	if !MatchText(CollationASCIICasemap, MatchStartsWith, "Standup Meeting", "standup") {
		t.Error("expected starts-with match")
	}
	if MatchText(CollationASCIICasemap, MatchStartsWith, "Team Standup", "standup") {
		t.Error("did not expect starts-with match mid-string")
	}
	if !MatchText(CollationASCIICasemap, MatchEndsWith, "Team Standup", "standup") {
		t.Error("expected ends-with match")
	}
	if !MatchText(CollationASCIICasemap, MatchEquals, "Standup", "STANDUP") {
		t.Error("expected case-folded equals match")
	}
}

func TestMatchCardDefaultCollationIsUnicodeCasemap(t *testing.T) {
	card := &vcard.Card{}
	card.AddProperty(&vcard.Property{Name: "FN", Raw: "Straße"})
	f := davxml.AddressbookFilter{
		PropFilter: []davxml.PropFilter{{
			Name:      "FN",
			TextMatch: &davxml.TextMatch{Value: "straße", MatchType: "equals"},
		}},
	}
	ok, err := MatchCard(f, card)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected unicode-casemap equals match under CardDAV's default collation")
	}
}

func TestCollationContainsAndEqual(t *testing.T) {
	if !Contains(CollationASCIICasemap, "HELLO World", "hello") {
		t.Error("expected ascii-casemap fold match")
	}
	if Contains(CollationOctet, "HELLO World", "hello") {
		t.Error("expected octet collation to be case-sensitive")
	}
	if !Equal(CollationUnicodeCasemap, "STRASSE", "strasse") {
		t.Error("expected unicode-casemap equality")
	}
}
