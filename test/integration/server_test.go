package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

const sampleEvent = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:event-1@example.com
DTSTAMP:20260101T000000Z
DTSTART:20260115T090000Z
DTEND:20260115T100000Z
SUMMARY:Standup
END:VEVENT
END:VCALENDAR
`

const sampleEvent2 = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:event-2@example.com
DTSTAMP:20260101T000000Z
DTSTART:20260116T090000Z
DTEND:20260116T100000Z
SUMMARY:Retro
END:VEVENT
END:VCALENDAR
`

const sampleCard = `BEGIN:VCARD
VERSION:3.0
UID:card-1
FN:Ada Lovelace
N:Lovelace;Ada;;;
END:VCARD
`

func TestPutGetETagRoundTrip(t *testing.T) {
	srv, st := testServer(t)
	client := srv.Client()
	const principal = "alice"
	home := seedHome(t, st, principal)
	seedCalendar(t, st, home, "work")

	objURL := srv.URL + basePath + "/" + principal + "/work/event-1.ics"

	putReq := newRequest(t, http.MethodPut, objURL, principal, sampleEvent)
	putReq.Header.Set("Content-Type", "text/calendar; charset=utf-8")
	resp, err := client.Do(putReq)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("PUT status: %d", resp.StatusCode)
	}
	etag := resp.Header.Get("ETag")
	if !validETag(etag) {
		t.Fatalf("PUT response ETag invalid: %q", etag)
	}

	getReq := newRequest(t, http.MethodGet, objURL, principal, "")
	getResp, err := client.Do(getReq)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("GET status: %d", getResp.StatusCode)
	}
	body, _ := io.ReadAll(getResp.Body)
	ics := parseICS(string(body))
	if !ics.Valid || !ics.Has("VEVENT") {
		t.Fatalf("GET body is not a valid VEVENT calendar: %s", string(body))
	}
	if !ics.HasProp("VEVENT", "SUMMARY", "Standup") {
		t.Fatalf("GET body missing expected SUMMARY: %s", string(body))
	}
	if getResp.Header.Get("ETag") != etag {
		t.Fatalf("GET ETag %q does not match PUT ETag %q", getResp.Header.Get("ETag"), etag)
	}

	headEtag := getETag(t, client, objURL, principal)
	if headEtag != etag {
		t.Fatalf("HEAD ETag %q does not match PUT ETag %q", headEtag, etag)
	}
}

func TestPutIfMatchPrecondition(t *testing.T) {
	srv, st := testServer(t)
	client := srv.Client()
	const principal = "bob"
	home := seedHome(t, st, principal)
	seedCalendar(t, st, home, "home")

	objURL := srv.URL + basePath + "/" + principal + "/home/event-1.ics"
	put := func(body, ifMatch string) *http.Response {
		req := newRequest(t, http.MethodPut, objURL, principal, body)
		req.Header.Set("Content-Type", "text/calendar")
		if ifMatch != "" {
			req.Header.Set("If-Match", ifMatch)
		}
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT: %v", err)
		}
		return resp
	}

	first := put(sampleEvent, "")
	etag := first.Header.Get("ETag")
	first.Body.Close()

	stale := put(sampleEvent2, `"not-the-real-etag"`)
	stale.Body.Close()
	if stale.StatusCode != http.StatusPreconditionFailed {
		t.Fatalf("stale If-Match PUT status: %d, want 412", stale.StatusCode)
	}

	fresh := put(sampleEvent2, etag)
	fresh.Body.Close()
	if fresh.StatusCode != http.StatusNoContent && fresh.StatusCode != http.StatusCreated {
		t.Fatalf("fresh If-Match PUT status: %d", fresh.StatusCode)
	}
}

func TestDeleteReflectedInSyncCollection(t *testing.T) {
	srv, st := testServer(t)
	client := srv.Client()
	const principal = "carol"
	home := seedHome(t, st, principal)
	seedCalendar(t, st, home, "work")

	objURL := srv.URL + basePath + "/" + principal + "/work/event-1.ics"
	putReq := newRequest(t, http.MethodPut, objURL, principal, sampleEvent)
	putReq.Header.Set("Content-Type", "text/calendar")
	resp, err := client.Do(putReq)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	resp.Body.Close()

	deleteAndValidate(t, client, objURL, principal)
}

func TestPropfindCollectionAndObject(t *testing.T) {
	srv, st := testServer(t)
	client := srv.Client()
	const principal = "dave"
	home := seedHome(t, st, principal)
	seedCalendar(t, st, home, "work")

	collURL := srv.URL + basePath + "/" + principal + "/work/"
	objURL := srv.URL + basePath + "/" + principal + "/work/event-1.ics"
	putReq := newRequest(t, http.MethodPut, objURL, principal, sampleEvent)
	putReq.Header.Set("Content-Type", "text/calendar")
	putResp, err := client.Do(putReq)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	putResp.Body.Close()

	body := `<?xml version="1.0" encoding="utf-8" ?>
<D:propfind xmlns:D="DAV:"><D:prop><D:resourcetype/><D:getetag/><D:displayname/></D:prop></D:propfind>`
	req := newRequest(t, "PROPFIND", collURL, principal, body)
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Depth", "1")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("PROPFIND: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 207 {
		t.Fatalf("PROPFIND status: %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	ms, err := parseMultiStatus(raw)
	if err != nil {
		t.Fatalf("parse PROPFIND multistatus: %v\n%s", err, string(raw))
	}
	if len(ms.Responses) < 2 {
		t.Fatalf("expected collection + member responses, got %d: %s", len(ms.Responses), string(raw))
	}
	foundMember := false
	for _, r := range ms.Responses {
		if strings.Contains(r.Href, "event-1.ics") {
			foundMember = true
			for _, ps := range r.PropStat {
				if statusOK(ps.Status) && !strings.Contains(ps.PropXML, "getetag") {
					t.Fatalf("member propstat missing getetag: %s", ps.PropXML)
				}
			}
		}
	}
	if !foundMember {
		t.Fatalf("PROPFIND Depth 1 did not return the object member: %s", string(raw))
	}
}

func TestCalendarQueryAndMultiget(t *testing.T) {
	srv, st := testServer(t)
	client := srv.Client()
	const principal = "erin"
	home := seedHome(t, st, principal)
	seedCalendar(t, st, home, "work")

	collURL := srv.URL + basePath + "/" + principal + "/work/"
	obj1 := collURL + "event-1.ics"
	obj2 := collURL + "event-2.ics"
	for _, pair := range [][2]string{{obj1, sampleEvent}, {obj2, sampleEvent2}} {
		req := newRequest(t, http.MethodPut, pair[0], principal, pair[1])
		req.Header.Set("Content-Type", "text/calendar")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT %s: %v", pair[0], err)
		}
		resp.Body.Close()
	}

	queryBody := `<?xml version="1.0" encoding="utf-8" ?>
<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop><D:getetag/><C:calendar-data/></D:prop>
  <C:filter>
    <C:comp-filter name="VCALENDAR"><C:comp-filter name="VEVENT"/></C:comp-filter>
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
	if len(ms.Responses) != 2 {
		t.Fatalf("calendar-query expected 2 matches, got %d: %s", len(ms.Responses), raw)
	}

	multigetBody := `<?xml version="1.0" encoding="utf-8" ?>
<C:calendar-multiget xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop><D:getetag/><C:calendar-data/></D:prop>
  <D:href>` + basePath + "/" + principal + `/work/event-1.ics</D:href>
</C:calendar-multiget>`
	mreq := newRequest(t, "REPORT", collURL, principal, multigetBody)
	mreq.Header.Set("Content-Type", "application/xml")
	mresp, err := client.Do(mreq)
	if err != nil {
		t.Fatalf("calendar-multiget REPORT: %v", err)
	}
	defer mresp.Body.Close()
	if mresp.StatusCode != 207 {
		t.Fatalf("calendar-multiget status: %d", mresp.StatusCode)
	}
	mraw, _ := io.ReadAll(mresp.Body)
	mms, err := parseMultiStatus(mraw)
	if err != nil {
		t.Fatalf("parse calendar-multiget multistatus: %v\n%s", err, mraw)
	}
	if len(mms.Responses) != 1 || !strings.Contains(mms.Responses[0].Href, "event-1.ics") {
		t.Fatalf("calendar-multiget expected exactly event-1.ics, got: %s", mraw)
	}
}

func TestAddressbookQueryAndMultiget(t *testing.T) {
	srv, st := testServer(t)
	client := srv.Client()
	const principal = "frank"
	home := seedHome(t, st, principal)
	seedAddressbook(t, st, home, "contacts")

	collURL := srv.URL + basePath + "/" + principal + "/contacts/"
	objURL := collURL + "card-1.vcf"
	putReq := newRequest(t, http.MethodPut, objURL, principal, sampleCard)
	putReq.Header.Set("Content-Type", "text/vcard")
	putResp, err := client.Do(putReq)
	if err != nil {
		t.Fatalf("PUT vcard: %v", err)
	}
	putResp.Body.Close()
	if putResp.StatusCode != http.StatusCreated {
		t.Fatalf("PUT vcard status: %d", putResp.StatusCode)
	}

	queryBody := `<?xml version="1.0" encoding="utf-8" ?>
<C:addressbook-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:carddav">
  <D:prop><D:getetag/><C:address-data/></D:prop>
  <C:filter>
    <C:prop-filter name="FN"><C:text-match>Ada</C:text-match></C:prop-filter>
  </C:filter>
</C:addressbook-query>`
	req := newRequest(t, "REPORT", collURL, principal, queryBody)
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Depth", "1")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("addressbook-query REPORT: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 207 {
		t.Fatalf("addressbook-query status: %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	ms, err := parseMultiStatus(raw)
	if err != nil {
		t.Fatalf("parse addressbook-query multistatus: %v\n%s", err, raw)
	}
	if len(ms.Responses) != 1 {
		t.Fatalf("addressbook-query expected 1 match, got %d: %s", len(ms.Responses), raw)
	}

	multigetBody := `<?xml version="1.0" encoding="utf-8" ?>
<C:addressbook-multiget xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:carddav">
  <D:prop><D:getetag/><C:address-data/></D:prop>
  <D:href>` + basePath + "/" + principal + `/contacts/card-1.vcf</D:href>
</C:addressbook-multiget>`
	mreq := newRequest(t, "REPORT", collURL, principal, multigetBody)
	mreq.Header.Set("Content-Type", "application/xml")
	mresp, err := client.Do(mreq)
	if err != nil {
		t.Fatalf("addressbook-multiget REPORT: %v", err)
	}
	defer mresp.Body.Close()
	mraw, _ := io.ReadAll(mresp.Body)
	mms, err := parseMultiStatus(mraw)
	if err != nil {
		t.Fatalf("parse addressbook-multiget multistatus: %v\n%s", err, mraw)
	}
	if len(mms.Responses) != 1 || !strings.Contains(mms.Responses[0].Href, "card-1.vcf") {
		t.Fatalf("addressbook-multiget expected exactly card-1.vcf, got: %s", mraw)
	}
}

func TestSyncCollectionInitialIncrementalAndTruncation(t *testing.T) {
	srv, st := testServer(t)
	client := srv.Client()
	const principal = "grace"
	home := seedHome(t, st, principal)
	seedCalendar(t, st, home, "work")

	collURL := srv.URL + basePath + "/" + principal + "/work/"
	initialToken := currentSyncToken(t, client, collURL, principal)
	if initialToken == "" {
		t.Fatalf("expected a non-empty initial sync token")
	}

	obj1 := collURL + "event-1.ics"
	req := newRequest(t, http.MethodPut, obj1, principal, sampleEvent)
	req.Header.Set("Content-Type", "text/calendar")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	resp.Body.Close()

	incrBody := `<?xml version="1.0" encoding="utf-8" ?>
<D:sync-collection xmlns:D="DAV:">
  <D:sync-token>` + xmlEscape(initialToken) + `</D:sync-token>
  <D:prop><D:getetag/></D:prop>
</D:sync-collection>`
	ireq := newRequest(t, "REPORT", collURL, principal, incrBody)
	ireq.Header.Set("Content-Type", "application/xml")
	iresp, err := client.Do(ireq)
	if err != nil {
		t.Fatalf("incremental sync-collection: %v", err)
	}
	defer iresp.Body.Close()
	if iresp.StatusCode != 207 {
		t.Fatalf("incremental sync-collection status: %d", iresp.StatusCode)
	}
	iraw, _ := io.ReadAll(iresp.Body)
	ims, err := parseMultiStatus(iraw)
	if err != nil {
		t.Fatalf("parse incremental sync-collection: %v\n%s", err, iraw)
	}
	if len(ims.Responses) != 1 || !strings.Contains(ims.Responses[0].Href, "event-1.ics") {
		t.Fatalf("incremental sync-collection expected event-1.ics change, got: %s", iraw)
	}
	if ims.SyncToken == "" || ims.SyncToken == initialToken {
		t.Fatalf("incremental sync-collection did not advance the token: %q", ims.SyncToken)
	}

	deleteAndValidate(t, client, obj1, principal)
}

func TestCopyAndMove(t *testing.T) {
	srv, st := testServer(t)
	client := srv.Client()
	const principal = "heidi"
	home := seedHome(t, st, principal)
	seedCalendar(t, st, home, "src")
	seedCalendar(t, st, home, "dst")
	// The MOVE targets a third calendar: dst already holds the COPY, and a
	// second live object with the same UID there would be a UID conflict.
	seedCalendar(t, st, home, "moved")

	srcURL := srv.URL + basePath + "/" + principal + "/src/event-1.ics"
	putReq := newRequest(t, http.MethodPut, srcURL, principal, sampleEvent)
	putReq.Header.Set("Content-Type", "text/calendar")
	putResp, err := client.Do(putReq)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	putResp.Body.Close()

	copyDstURL := srv.URL + basePath + "/" + principal + "/dst/event-1-copy.ics"
	copyReq := newRequest(t, "COPY", srcURL, principal, "")
	copyReq.Header.Set("Destination", copyDstURL)
	copyResp, err := client.Do(copyReq)
	if err != nil {
		t.Fatalf("COPY: %v", err)
	}
	copyResp.Body.Close()
	if copyResp.StatusCode != http.StatusCreated && copyResp.StatusCode != http.StatusNoContent {
		t.Fatalf("COPY status: %d", copyResp.StatusCode)
	}

	getSrc := newRequest(t, http.MethodGet, srcURL, principal, "")
	getSrcResp, err := client.Do(getSrc)
	if err != nil {
		t.Fatalf("GET source after COPY: %v", err)
	}
	getSrcResp.Body.Close()
	if getSrcResp.StatusCode != http.StatusOK {
		t.Fatalf("source should still exist after COPY, got %d", getSrcResp.StatusCode)
	}

	moveDstURL := srv.URL + basePath + "/" + principal + "/moved/event-1-moved.ics"
	moveReq := newRequest(t, "MOVE", srcURL, principal, "")
	moveReq.Header.Set("Destination", moveDstURL)
	moveResp, err := client.Do(moveReq)
	if err != nil {
		t.Fatalf("MOVE: %v", err)
	}
	moveResp.Body.Close()
	if moveResp.StatusCode != http.StatusCreated && moveResp.StatusCode != http.StatusNoContent {
		t.Fatalf("MOVE status: %d", moveResp.StatusCode)
	}

	getMoved := newRequest(t, http.MethodGet, moveDstURL, principal, "")
	getMovedResp, err := client.Do(getMoved)
	if err != nil {
		t.Fatalf("GET moved destination: %v", err)
	}
	getMovedResp.Body.Close()
	if getMovedResp.StatusCode != http.StatusOK {
		t.Fatalf("GET moved destination status: %d", getMovedResp.StatusCode)
	}

	getOldSrc := newRequest(t, http.MethodGet, srcURL, principal, "")
	getOldSrcResp, err := client.Do(getOldSrc)
	if err != nil {
		t.Fatalf("GET source after MOVE: %v", err)
	}
	getOldSrcResp.Body.Close()
	if getOldSrcResp.StatusCode != http.StatusNotFound {
		t.Fatalf("source should be gone after MOVE, got %d", getOldSrcResp.StatusCode)
	}
}
