package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

const recurringEvent = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:daily-standup@example.com
DTSTAMP:20260101T000000Z
DTSTART:20260105T090000Z
DTEND:20260105T093000Z
RRULE:FREQ=DAILY;COUNT=10
SUMMARY:Daily Standup
END:VEVENT
END:VCALENDAR
`

// TestCalendarQueryTimeRangeOnRecurringEvent covers spec.md §8 scenario
// 3: a calendar-query REPORT with a time-range filter must match a
// recurring master whose expanded occurrences (not its DTSTART) fall
// inside the requested window, per RFC 4791 §9.9.
func TestCalendarQueryTimeRangeOnRecurringEvent(t *testing.T) {
	srv, st := testServer(t)
	client := srv.Client()
	const principal = "lena"
	home := seedHome(t, st, principal)
	seedCalendar(t, st, home, "work")

	collURL := srv.URL + basePath + "/" + principal + "/work/"
	put := newRequest(t, http.MethodPut, collURL+"standup.ics", principal, recurringEvent)
	put.Header.Set("Content-Type", "text/calendar")
	putResp, err := client.Do(put)
	if err != nil {
		t.Fatalf("PUT recurring event: %v", err)
	}
	putResp.Body.Close()
	if putResp.StatusCode != http.StatusCreated {
		t.Fatalf("PUT recurring event status: %d", putResp.StatusCode)
	}

	// The 8th occurrence (COUNT=10, DAILY from 2026-01-05) lands on
	// 2026-01-12; a window around only that day must still match even
	// though DTSTART itself (2026-01-05) is outside it.
	queryBody := `<?xml version="1.0" encoding="utf-8" ?>
<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop><D:getetag/><C:calendar-data/></D:prop>
  <C:filter>
    <C:comp-filter name="VCALENDAR">
      <C:comp-filter name="VEVENT">
        <C:time-range start="20260112T000000Z" end="20260113T000000Z"/>
      </C:comp-filter>
    </C:comp-filter>
  </C:filter>
</C:calendar-query>`
	req := newRequest(t, "REPORT", collURL, principal, queryBody)
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Depth", "1")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("calendar-query REPORT: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 207 {
		t.Fatalf("calendar-query status: %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	ms, err := parseMultiStatus(raw)
	if err != nil {
		t.Fatalf("parse calendar-query multistatus: %v\n%s", err, raw)
	}
	if len(ms.Responses) != 1 || !strings.Contains(ms.Responses[0].Href, "standup.ics") {
		t.Fatalf("time-range query on a recurring master's occurrence expected 1 match, got %d: %s", len(ms.Responses), raw)
	}

	// A window entirely before DTSTART and every occurrence must match
	// nothing.
	missBody := `<?xml version="1.0" encoding="utf-8" ?>
<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop><D:getetag/></D:prop>
  <C:filter>
    <C:comp-filter name="VCALENDAR">
      <C:comp-filter name="VEVENT">
        <C:time-range start="20250101T000000Z" end="20250102T000000Z"/>
      </C:comp-filter>
    </C:comp-filter>
  </C:filter>
</C:calendar-query>`
	mreq := newRequest(t, "REPORT", collURL, principal, missBody)
	mreq.Header.Set("Content-Type", "application/xml")
	mreq.Header.Set("Depth", "1")
	mresp, err := client.Do(mreq)
	if err != nil {
		t.Fatalf("non-matching calendar-query REPORT: %v", err)
	}
	defer mresp.Body.Close()
	mraw, _ := io.ReadAll(mresp.Body)
	mms, err := parseMultiStatus(mraw)
	if err != nil {
		t.Fatalf("parse non-matching multistatus: %v\n%s", err, mraw)
	}
	if len(mms.Responses) != 0 {
		t.Fatalf("time-range query before every occurrence expected 0 matches, got %d: %s", len(mms.Responses), mraw)
	}
}
