package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

// TestPutUIDConflict covers spec.md §8 scenario 2: PUTting a second
// object whose UID matches a live object already in the collection
// must fail with 409 and a DAV:no-uid-conflict body naming the
// conflicting member's href, per RFC 4791 §5.3.2.1.
func TestPutUIDConflict(t *testing.T) {
	srv, st := testServer(t)
	client := srv.Client()
	const principal = "ivan"
	home := seedHome(t, st, principal)
	seedCalendar(t, st, home, "work")

	collURL := srv.URL + basePath + "/" + principal + "/work/"
	first := newRequest(t, http.MethodPut, collURL+"event-1.ics", principal, sampleEvent)
	first.Header.Set("Content-Type", "text/calendar")
	firstResp, err := client.Do(first)
	if err != nil {
		t.Fatalf("PUT first: %v", err)
	}
	firstResp.Body.Close()
	if firstResp.StatusCode != http.StatusCreated {
		t.Fatalf("PUT first status: %d", firstResp.StatusCode)
	}

	duplicateUID := strings.Replace(sampleEvent2, "UID:event-2@example.com", "UID:event-1@example.com", 1)
	second := newRequest(t, http.MethodPut, collURL+"event-2.ics", principal, duplicateUID)
	second.Header.Set("Content-Type", "text/calendar")
	secondResp, err := client.Do(second)
	if err != nil {
		t.Fatalf("PUT second: %v", err)
	}
	defer secondResp.Body.Close()
	if secondResp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate-UID PUT status: %d, want 409", secondResp.StatusCode)
	}
	body, _ := io.ReadAll(secondResp.Body)
	if !strings.Contains(string(body), "no-uid-conflict>") {
		t.Fatalf("409 body missing exact no-uid-conflict element: %s", string(body))
	}
	if !strings.Contains(string(body), "event-1.ics") {
		t.Fatalf("409 body missing conflicting member's href: %s", string(body))
	}
}

// TestGetForbiddenNeedPrivileges covers spec.md §8 scenario 6: a
// principal with no grant on another principal's calendar gets a 403
// carrying a DAV:need-privileges body naming the denied resource's
// href and privilege, per RFC 3744 §7.1.1.
func TestGetForbiddenNeedPrivileges(t *testing.T) {
	srv, st := testServer(t)
	client := srv.Client()
	const owner = "judy"
	const intruder = "karl"
	home := seedHome(t, st, owner)
	seedCalendar(t, st, home, "private")

	objURL := srv.URL + basePath + "/" + owner + "/private/event-1.ics"
	put := newRequest(t, http.MethodPut, objURL, owner, sampleEvent)
	put.Header.Set("Content-Type", "text/calendar")
	putResp, err := client.Do(put)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	putResp.Body.Close()

	get := newRequest(t, http.MethodGet, objURL, intruder, "")
	resp, err := client.Do(get)
	if err != nil {
		t.Fatalf("GET as intruder: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("cross-principal GET status: %d, want 403", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "need-privileges") {
		t.Fatalf("403 body missing need-privileges element: %s", string(body))
	}
	if !strings.Contains(string(body), "/private/event-1.ics") {
		t.Fatalf("403 body missing denied resource href: %s", string(body))
	}
}
