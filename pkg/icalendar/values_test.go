package icalendar

import (
	"testing"
	"time"
)

func TestParseDateTimeForms(t *testing.T) {
	d, err := ParseDateTime("20250630", "", nil)
	if err != nil || !d.Date {
		t.Fatalf("DATE parse failed: %v %+v", err, d)
	}

	u, err := ParseDateTime("20250630T120000Z", "", nil)
	if err != nil || u.Form != FormUTC {
		t.Fatalf("UTC parse failed: %v %+v", err, u)
	}

	f, err := ParseDateTime("20250630T120000", "", nil)
	if err != nil || f.Form != FormFloating {
		t.Fatalf("floating parse failed: %v %+v", err, f)
	}

	loc, _ := time.LoadLocation("America/New_York")
	z, err := ParseDateTime("20250630T120000", "America/New_York", loc)
	if err != nil || z.Form != FormZoned || z.TZID != "America/New_York" {
		t.Fatalf("zoned parse failed: %v %+v", err, z)
	}
}

func TestDateTimeRoundTrip(t *testing.T) {
	dt, err := ParseDateTime("20250630T120000Z", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := FormatDateTime(dt); got != "20250630T120000Z" {
		t.Errorf("got %q", got)
	}
}

func TestParseDurationNoYearMonth(t *testing.T) {
	if _, err := ParseDuration("P1Y"); err == nil {
		t.Error("expected error for Y designator")
	}
	d, err := ParseDuration("P1DT2H3M4S")
	if err != nil {
		t.Fatal(err)
	}
	want := 24*time.Hour + 2*time.Hour + 3*time.Minute + 4*time.Second
	if d != want {
		t.Errorf("got %v want %v", d, want)
	}
}

func TestParseDurationNegative(t *testing.T) {
	d, err := ParseDuration("-P1DT1H")
	if err != nil {
		t.Fatal(err)
	}
	want := -(24*time.Hour + time.Hour)
	if d != want {
		t.Errorf("got %v want %v", d, want)
	}
}

func TestFormatDurationRoundTrip(t *testing.T) {
	d := 90 * time.Minute
	s := FormatDuration(d)
	got, err := ParseDuration(s)
	if err != nil {
		t.Fatal(err)
	}
	if got != d {
		t.Errorf("round trip mismatch: %v != %v", got, d)
	}
}

func TestParseUTCOffset(t *testing.T) {
	d, err := ParseUTCOffset("-0500")
	if err != nil {
		t.Fatal(err)
	}
	if d != -5*time.Hour {
		t.Errorf("got %v", d)
	}
}

func TestParsePeriodExplicitEnd(t *testing.T) {
	p, err := ParsePeriod("20250101T000000Z/20250101T010000Z", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Explicit {
		t.Error("expected explicit end")
	}
}

func TestParsePeriodDuration(t *testing.T) {
	p, err := ParsePeriod("20250101T000000Z/PT1H", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Explicit || p.Duration != time.Hour {
		t.Errorf("got %+v", p)
	}
}

func TestParseRecurrenceRuleRequiresFreq(t *testing.T) {
	if _, err := ParseRecurrenceRule("COUNT=5", false, false); err == nil {
		t.Error("expected error for missing FREQ")
	}
}

func TestParseRecurrenceRuleCountUntilExclusive(t *testing.T) {
	_, err := ParseRecurrenceRule("FREQ=DAILY;COUNT=5;UNTIL=20250101", true, false)
	if err == nil {
		t.Error("expected error for COUNT+UNTIL")
	}
}

func TestParseRecurrenceRuleUntilFormMismatch(t *testing.T) {
	_, err := ParseRecurrenceRule("FREQ=DAILY;UNTIL=20250101T000000Z", true, false)
	if err == nil {
		t.Error("expected error: UNTIL is DATE-TIME but DTSTART is DATE")
	}
}

func TestParseRecurrenceRuleBasic(t *testing.T) {
	rr, err := ParseRecurrenceRule("FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE,FR;COUNT=10", false, false)
	if err != nil {
		t.Fatal(err)
	}
	if rr.Freq != "WEEKLY" || rr.Interval != 2 || rr.Count != 10 {
		t.Fatalf("got %+v", rr)
	}
	if len(rr.ByDay) != 3 {
		t.Fatalf("got %v", rr.ByDay)
	}
}

func TestFormatRecurrenceRuleRoundTrip(t *testing.T) {
	rr, err := ParseRecurrenceRule("FREQ=MONTHLY;BYMONTHDAY=1,15;COUNT=3", false, false)
	if err != nil {
		t.Fatal(err)
	}
	s := FormatRecurrenceRule(rr)
	rr2, err := ParseRecurrenceRule(s, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if rr2.Freq != rr.Freq || rr2.Count != rr.Count || len(rr2.ByMonthDay) != len(rr.ByMonthDay) {
		t.Fatalf("round trip mismatch: %+v vs %+v", rr, rr2)
	}
}
