package icalendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateTimeForm distinguishes the three RFC 5545 DATE-TIME forms.
type DateTimeForm int

const (
	// FormFloating carries no timezone: wall-clock time in whatever zone
	// the consumer is in.
	FormFloating DateTimeForm = iota
	FormUTC
	FormZoned
)

// DateTime is a decoded DATE or DATE-TIME value together with enough
// context (form, TZID) for the recurrence and timezone layers to resolve
// it without re-parsing text.
type DateTime struct {
	Time   time.Time
	Date   bool // true: this was a DATE value (no time-of-day component)
	Form   DateTimeForm
	TZID   string
}

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"
	utcLayout      = "20060102T150405Z"
)

// ParseDateTime decodes a DATE or DATE-TIME value. tzid is the VALUE
// parameter's TZID (empty if none/UTC/floating); loc, if non-nil, is the
// *time.Location already resolved for tzid by pkg/tzresolve — callers
// that haven't resolved a location yet may pass nil and receive a
// time.Time in time.UTC with the TZID recorded for later re-resolution.
func ParseDateTime(value, tzid string, loc *time.Location) (DateTime, error) {
	v := strings.TrimSpace(value)
	switch {
	case len(v) == 8:
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return DateTime{}, fmt.Errorf("invalid DATE %q: %w", value, err)
		}
		return DateTime{Time: t, Date: true, Form: FormFloating}, nil
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse(utcLayout, v)
		if err != nil {
			return DateTime{}, fmt.Errorf("invalid UTC DATE-TIME %q: %w", value, err)
		}
		return DateTime{Time: t, Form: FormUTC}, nil
	case tzid != "":
		zone := loc
		if zone == nil {
			zone = time.UTC
		}
		t, err := time.ParseInLocation(dateTimeLayout, v, zone)
		if err != nil {
			return DateTime{}, fmt.Errorf("invalid zoned DATE-TIME %q: %w", value, err)
		}
		return DateTime{Time: t, Form: FormZoned, TZID: tzid}, nil
	default:
		t, err := time.Parse(dateTimeLayout, v)
		if err != nil {
			return DateTime{}, fmt.Errorf("invalid floating DATE-TIME %q: %w", value, err)
		}
		return DateTime{Time: t, Form: FormFloating}, nil
	}
}

// FormatDateTime is the inverse of ParseDateTime for canonical output.
func FormatDateTime(dt DateTime) string {
	if dt.Date {
		return dt.Time.Format(dateLayout)
	}
	switch dt.Form {
	case FormUTC:
		return dt.Time.UTC().Format(utcLayout)
	default:
		return dt.Time.Format(dateTimeLayout)
	}
}

// ParseDateTimeList parses a COMMA-separated list of DATE or DATE-TIME
// values sharing one VALUE/TZID context, as used by EXDATE and RDATE.
func ParseDateTimeList(value, tzid string, loc *time.Location) ([]DateTime, error) {
	parts := strings.Split(value, ",")
	out := make([]DateTime, 0, len(parts))
	for _, p := range parts {
		dt, err := ParseDateTime(strings.TrimSpace(p), tzid, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, dt)
	}
	return out, nil
}

// ParseDuration decodes an RFC 5545 DURATION value. Y and M designators
// are not part of RFC 5545's DURATION grammar (unlike ISO 8601) and are
// rejected.
func ParseDuration(value string) (time.Duration, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, fmt.Errorf("empty DURATION")
	}
	neg := false
	if s[0] == '+' {
		s = s[1:]
	} else if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	if len(s) == 0 || s[0] != 'P' {
		return 0, fmt.Errorf("invalid DURATION %q: missing P", value)
	}
	s = s[1:]

	var total time.Duration
	inTime := false
	numStart := 0
	sawComponent := false

	i := 0
	for i < len(s) {
		c := s[i]
		if c == 'T' {
			inTime = true
			i++
			numStart = i
			continue
		}
		if c >= '0' && c <= '9' {
			i++
			continue
		}
		numStr := s[numStart:i]
		if numStr == "" {
			return 0, fmt.Errorf("invalid DURATION %q: expected digits", value)
		}
		n, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid DURATION %q: %w", value, err)
		}
		switch c {
		case 'W':
			total += time.Duration(n) * 7 * 24 * time.Hour
		case 'D':
			total += time.Duration(n) * 24 * time.Hour
		case 'H':
			if !inTime {
				return 0, fmt.Errorf("invalid DURATION %q: H before T", value)
			}
			total += time.Duration(n) * time.Hour
		case 'M':
			if !inTime {
				return 0, fmt.Errorf("invalid DURATION %q: M (minutes) requires T", value)
			}
			total += time.Duration(n) * time.Minute
		case 'S':
			if !inTime {
				return 0, fmt.Errorf("invalid DURATION %q: S before T", value)
			}
			total += time.Duration(n) * time.Second
		default:
			return 0, fmt.Errorf("invalid DURATION %q: unknown designator %q", value, string(c))
		}
		sawComponent = true
		i++
		numStart = i
	}
	if !sawComponent {
		return 0, fmt.Errorf("invalid DURATION %q: no components", value)
	}
	if neg {
		total = -total
	}
	return total, nil
}

// FormatDuration is the canonical inverse of ParseDuration.
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}
	b.WriteByte('P')
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	if days > 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	hours := d / time.Hour
	d -= hours * time.Hour
	mins := d / time.Minute
	d -= mins * time.Minute
	secs := d / time.Second
	if hours > 0 || mins > 0 || secs > 0 {
		b.WriteByte('T')
		if hours > 0 {
			fmt.Fprintf(&b, "%dH", hours)
		}
		if mins > 0 {
			fmt.Fprintf(&b, "%dM", mins)
		}
		if secs > 0 {
			fmt.Fprintf(&b, "%dS", secs)
		}
	}
	return b.String()
}

// ParseUTCOffset decodes a UTC-OFFSET value such as "-0500" or "+053000".
func ParseUTCOffset(value string) (time.Duration, error) {
	s := strings.TrimSpace(value)
	if len(s) != 5 && len(s) != 7 {
		return 0, fmt.Errorf("invalid UTC-OFFSET %q", value)
	}
	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("invalid UTC-OFFSET %q: missing sign", value)
	}
	hh, err := strconv.Atoi(s[1:3])
	if err != nil {
		return 0, fmt.Errorf("invalid UTC-OFFSET %q: %w", value, err)
	}
	mm, err := strconv.Atoi(s[3:5])
	if err != nil {
		return 0, fmt.Errorf("invalid UTC-OFFSET %q: %w", value, err)
	}
	ss := 0
	if len(s) == 7 {
		ss, err = strconv.Atoi(s[5:7])
		if err != nil {
			return 0, fmt.Errorf("invalid UTC-OFFSET %q: %w", value, err)
		}
	}
	total := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute + time.Duration(ss)*time.Second
	return time.Duration(sign) * total, nil
}

// ParseBoolean decodes a BOOLEAN value ("TRUE"/"FALSE").
func ParseBoolean(value string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	default:
		return false, fmt.Errorf("invalid BOOLEAN %q", value)
	}
}

// ParseInteger decodes an INTEGER value.
func ParseInteger(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid INTEGER %q: %w", value, err)
	}
	return n, nil
}

// ParseFloat decodes a FLOAT value.
func ParseFloat(value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid FLOAT %q: %w", value, err)
	}
	return f, nil
}

// Period is a PERIOD value: either an explicit end or an explicit
// duration, never both.
type Period struct {
	Start    DateTime
	End      DateTime
	Duration time.Duration
	Explicit bool // true: End is populated; false: Duration is populated
}

// ParsePeriod decodes a single PERIOD value "start/end" or
// "start/duration".
func ParsePeriod(value, tzid string, loc *time.Location) (Period, error) {
	parts := strings.SplitN(value, "/", 2)
	if len(parts) != 2 {
		return Period{}, fmt.Errorf("invalid PERIOD %q", value)
	}
	start, err := ParseDateTime(parts[0], tzid, loc)
	if err != nil {
		return Period{}, fmt.Errorf("invalid PERIOD start: %w", err)
	}
	if len(parts[1]) > 0 && (parts[1][0] == 'P' || parts[1][0] == '+' || parts[1][0] == '-') {
		dur, err := ParseDuration(parts[1])
		if err != nil {
			return Period{}, fmt.Errorf("invalid PERIOD duration: %w", err)
		}
		return Period{Start: start, Duration: dur}, nil
	}
	end, err := ParseDateTime(parts[1], tzid, loc)
	if err != nil {
		return Period{}, fmt.Errorf("invalid PERIOD end: %w", err)
	}
	return Period{Start: start, End: end, Explicit: true}, nil
}

// RecurrenceRule is the decoded, typed form of an RRULE value. Callers
// that need to expand occurrences hand this to pkg/recurrence, which
// re-serializes it into the "DTSTART:...\nRRULE:..." form that
// teambition/rrule-go's parser expects rather than re-implementing BYxxx
// expansion arithmetic here.
type RecurrenceRule struct {
	Freq       string
	Until      *DateTime
	Count      int
	Interval   int
	BySecond   []int
	ByMinute   []int
	ByHour     []int
	ByDay      []string
	ByMonthDay []int
	ByYearDay  []int
	ByWeekNo   []int
	ByMonth    []int
	BySetPos   []int
	WkSt       string
}

var validFreq = map[string]bool{
	"SECONDLY": true, "MINUTELY": true, "HOURLY": true,
	"DAILY": true, "WEEKLY": true, "MONTHLY": true, "YEARLY": true,
}

// ParseRecurrenceRule decodes an RRULE value's RULE-PART list, enforcing
// the structural invariants RFC 5545 §3.3.10 states in prose rather than
// ABNF: FREQ is mandatory and must appear, COUNT and UNTIL are mutually
// exclusive, and when present UNTIL must share DTSTART's value type (DATE
// vs DATE-TIME, and if DATE-TIME, UTC form) — dtstartIsDate/dtstartUTC
// describe that shared context.
func ParseRecurrenceRule(value string, dtstartIsDate, dtstartUTC bool) (*RecurrenceRule, error) {
	rr := &RecurrenceRule{Interval: 1}
	haveFreq := false
	haveUntil := false
	haveCount := false

	for _, part := range strings.Split(value, ";") {
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid RRULE part %q", part)
		}
		key, val := strings.ToUpper(kv[0]), kv[1]
		switch key {
		case "FREQ":
			if !validFreq[strings.ToUpper(val)] {
				return nil, fmt.Errorf("invalid RRULE FREQ %q", val)
			}
			rr.Freq = strings.ToUpper(val)
			haveFreq = true
		case "UNTIL":
			untilIsDate := len(val) == 8
			if untilIsDate != dtstartIsDate {
				return nil, fmt.Errorf("RRULE UNTIL value type must match DTSTART")
			}
			if !untilIsDate && dtstartUTC && !strings.HasSuffix(val, "Z") {
				return nil, fmt.Errorf("RRULE UNTIL must be UTC when DTSTART is UTC")
			}
			dt, err := ParseDateTime(val, "", nil)
			if err != nil {
				return nil, fmt.Errorf("invalid RRULE UNTIL: %w", err)
			}
			rr.Until = &dt
			haveUntil = true
		case "COUNT":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("invalid RRULE COUNT: %w", err)
			}
			rr.Count = n
			haveCount = true
		case "INTERVAL":
			n, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("invalid RRULE INTERVAL: %w", err)
			}
			rr.Interval = n
		case "BYSECOND":
			rr.BySecond = parseIntList(val)
		case "BYMINUTE":
			rr.ByMinute = parseIntList(val)
		case "BYHOUR":
			rr.ByHour = parseIntList(val)
		case "BYDAY":
			rr.ByDay = strings.Split(val, ",")
		case "BYMONTHDAY":
			rr.ByMonthDay = parseIntList(val)
		case "BYYEARDAY":
			rr.ByYearDay = parseIntList(val)
		case "BYWEEKNO":
			rr.ByWeekNo = parseIntList(val)
		case "BYMONTH":
			rr.ByMonth = parseIntList(val)
		case "BYSETPOS":
			rr.BySetPos = parseIntList(val)
		case "WKST":
			rr.WkSt = strings.ToUpper(val)
		default:
			// Unknown RULE-PART: ignored per RFC 5545's forward-compatibility
			// guidance rather than rejected outright.
		}
	}

	if !haveFreq {
		return nil, fmt.Errorf("RRULE missing required FREQ")
	}
	if haveUntil && haveCount {
		return nil, fmt.Errorf("RRULE UNTIL and COUNT are mutually exclusive")
	}
	return rr, nil
}

func parseIntList(s string) []int {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

// FormatRecurrenceRule serializes a RecurrenceRule back into RULE-PART
// text, used both for canonical round-trip and for feeding
// pkg/recurrence's rrule-go bridge.
func FormatRecurrenceRule(rr *RecurrenceRule) string {
	var parts []string
	parts = append(parts, "FREQ="+rr.Freq)
	if rr.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", rr.Interval))
	}
	if rr.Count > 0 {
		parts = append(parts, fmt.Sprintf("COUNT=%d", rr.Count))
	} else if rr.Until != nil {
		parts = append(parts, "UNTIL="+FormatDateTime(*rr.Until))
	}
	appendIntList := func(name string, vals []int) {
		if len(vals) == 0 {
			return
		}
		strs := make([]string, len(vals))
		for i, v := range vals {
			strs[i] = strconv.Itoa(v)
		}
		parts = append(parts, name+"="+strings.Join(strs, ","))
	}
	if len(rr.ByMonth) > 0 {
		appendIntList("BYMONTH", rr.ByMonth)
	}
	if len(rr.ByWeekNo) > 0 {
		appendIntList("BYWEEKNO", rr.ByWeekNo)
	}
	if len(rr.ByYearDay) > 0 {
		appendIntList("BYYEARDAY", rr.ByYearDay)
	}
	if len(rr.ByMonthDay) > 0 {
		appendIntList("BYMONTHDAY", rr.ByMonthDay)
	}
	if len(rr.ByDay) > 0 {
		parts = append(parts, "BYDAY="+strings.Join(rr.ByDay, ","))
	}
	if len(rr.ByHour) > 0 {
		appendIntList("BYHOUR", rr.ByHour)
	}
	if len(rr.ByMinute) > 0 {
		appendIntList("BYMINUTE", rr.ByMinute)
	}
	if len(rr.BySecond) > 0 {
		appendIntList("BYSECOND", rr.BySecond)
	}
	if len(rr.BySetPos) > 0 {
		appendIntList("BYSETPOS", rr.BySetPos)
	}
	if rr.WkSt != "" {
		parts = append(parts, "WKST="+rr.WkSt)
	}
	return strings.Join(parts, ";")
}
