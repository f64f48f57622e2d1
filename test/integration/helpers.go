// Package integration exercises the DAV surface end-to-end over real
// HTTP, against an in-process server backed by a temporary SQLite
// file. Grounded on the teacher's test/integration suite (multistatus
// parsing, ICS line assertions, sync-collection round-trip helpers),
// adapted from its exec'd-binary-plus-LDAP-login harness to an
// httptest.Server wrapping internal/router directly, since
// authentication is out of scope here and the principal is threaded in
// via the X-Remote-User header instead of a bearer/basic credential.
package integration

import (
	"bytes"
	"encoding/xml"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/caldav-core/internal/dav"
	"github.com/sonroyaalmerol/caldav-core/internal/router"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
	"github.com/sonroyaalmerol/caldav-core/internal/store/sqlite"
)

const basePath = "/dav"

// testServer starts an httptest.Server backed by a fresh SQLite file
// under t.TempDir, and returns it along with the store used to seed
// fixtures directly (bypassing MKCOL/MKCALENDAR, the way a deployment
// script would via cmd/caldav-bootstrap).
func testServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "caldav.db")
	st, err := sqlite.New(dbPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(st.Close)

	handlers := dav.NewHandlers(st, zerolog.Nop(), basePath, 0, 0)
	mux := router.New(handlers, zerolog.Nop(), basePath)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, st
}

// seedHome creates principal's home collection directly in the store.
func seedHome(t *testing.T, st store.Store, principal string) *store.Collection {
	t.Helper()
	col, err := st.CreateCollection(t.Context(), store.Collection{
		OwnerPrincipalID: principal,
		Kind:             store.KindPrincipalHome,
		Slug:             principal,
		DisplayName:      principal,
	})
	if err != nil {
		t.Fatalf("seed home for %s: %v", principal, err)
	}
	return col
}

// seedCalendar creates a calendar collection under home.
func seedCalendar(t *testing.T, st store.Store, home *store.Collection, slug string) *store.Collection {
	t.Helper()
	col, err := st.CreateCollection(t.Context(), store.Collection{
		OwnerPrincipalID:    home.OwnerPrincipalID,
		ParentID:            home.ID,
		Kind:                store.KindCalendar,
		Slug:                slug,
		DisplayName:         slug,
		SupportedComponents: []string{"VEVENT"},
	})
	if err != nil {
		t.Fatalf("seed calendar %s: %v", slug, err)
	}
	return col
}

// seedAddressbook creates an addressbook collection under home.
func seedAddressbook(t *testing.T, st store.Store, home *store.Collection, slug string) *store.Collection {
	t.Helper()
	col, err := st.CreateCollection(t.Context(), store.Collection{
		OwnerPrincipalID: home.OwnerPrincipalID,
		ParentID:         home.ID,
		Kind:             store.KindAddressbook,
		Slug:             slug,
		DisplayName:      slug,
	})
	if err != nil {
		t.Fatalf("seed addressbook %s: %v", slug, err)
	}
	return col
}

// Minimal Multi-Status parser sufficient for validations (RFC 4918 §13, RFC 6578 adds sync-token)
type multiStatus struct {
	XMLName   xml.Name     `xml:"multistatus"`
	Responses []msResponse `xml:"response"`
	SyncToken string       `xml:"sync-token"`
}
type msResponse struct {
	Href     string     `xml:"href"`
	PropStat []propStat `xml:"propstat"`
	Status   string     `xml:"status"`
}
type propStat struct {
	Status  string `xml:"status"`
	PropRaw anyXML `xml:"prop"`
	PropXML string `xml:"-"`
}
type anyXML struct {
	Inner string `xml:",innerxml"`
}

func parseMultiStatus(b []byte) (*multiStatus, error) {
	var ms multiStatus
	if err := xml.Unmarshal(b, &ms); err != nil {
		return nil, err
	}
	for i := range ms.Responses {
		for j := range ms.Responses[i].PropStat {
			ms.Responses[i].PropStat[j].PropXML = ms.Responses[i].PropStat[j].PropRaw.Inner
		}
	}
	return &ms, nil
}

func statusOK(s string) bool {
	return strings.Contains(s, " 200 ")
}

// Light-weight ICS structure checks (RFC 5545)
type icsInfo struct {
	Valid bool
	lines []string
}

func parseICS(s string) icsInfo {
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	var unfolded []string
	for i := 0; i < len(lines); i++ {
		l := lines[i]
		for i+1 < len(lines) && (strings.HasPrefix(lines[i+1], " ") || strings.HasPrefix(lines[i+1], "\t")) {
			l += strings.TrimLeft(lines[i+1], " \t")
			i++
		}
		unfolded = append(unfolded, strings.TrimRight(l, "\r"))
	}
	info := icsInfo{Valid: false, lines: unfolded}
	if !hasLine(unfolded, "BEGIN:VCALENDAR") || !hasLine(unfolded, "END:VCALENDAR") {
		return info
	}
	info.Valid = true
	return info
}

func (i icsInfo) Has(comp string) bool {
	return hasLine(i.lines, "BEGIN:"+comp) && hasLine(i.lines, "END:"+comp)
}

func (i icsInfo) HasProp(comp string, prop string, contains string) bool {
	inComp := false
	for _, l := range i.lines {
		if l == "BEGIN:"+comp {
			inComp = true
			continue
		}
		if l == "END:"+comp {
			inComp = false
			continue
		}
		if inComp {
			if strings.HasPrefix(strings.ToUpper(l), strings.ToUpper(prop)+":") ||
				strings.HasPrefix(strings.ToUpper(l), strings.ToUpper(prop)+";") {
				if contains == "" || strings.Contains(l, contains) {
					return true
				}
			}
		}
	}
	return false
}

func hasLine(lines []string, exact string) bool {
	for _, l := range lines {
		if l == exact {
			return true
		}
	}
	return false
}

var etagRe = regexp.MustCompile(`^(W/)?"[^"]+"$`)

func validETag(s string) bool {
	s = strings.TrimSpace(s)
	return etagRe.MatchString(s)
}

func innerText(xmlStr string, local string) string {
	open := "<" + local
	i := strings.Index(xmlStr, open)
	if i == -1 {
		return ""
	}
	j := strings.Index(xmlStr[i:], ">")
	if j == -1 {
		return ""
	}
	start := i + j + 1
	closeTag := "</" + local + ">"
	k := strings.Index(xmlStr[start:], closeTag)
	if k == -1 {
		return ""
	}
	return xmlStr[start : start+k]
}

func xmlEscape(s string) string {
	repl := strings.NewReplacer(
		`&`, "&amp;",
		`<`, "&lt;",
		`>`, "&gt;",
		`"`, "&quot;",
		`'`, "&apos;",
	)
	return repl.Replace(s)
}

func newRequest(t *testing.T, method, target, principal string, body string) *http.Request {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, target, r)
	if err != nil {
		t.Fatalf("new request %s %s: %v", method, target, err)
	}
	if principal != "" {
		req.Header.Set("X-Remote-User", principal)
	}
	return req
}

func getETag(t *testing.T, client *http.Client, resourceURL, principal string) string {
	t.Helper()
	req := newRequest(t, http.MethodHead, resourceURL, principal, "")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("HEAD for ETag %s: %v", resourceURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("HEAD for ETag status at %s: %d", resourceURL, resp.StatusCode)
	}
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag on HEAD for %s", resourceURL)
	}
	return etag
}

func currentSyncToken(t *testing.T, client *http.Client, collectionURL, principal string) string {
	t.Helper()
	body := `<?xml version="1.0" encoding="utf-8" ?>
<D:sync-collection xmlns:D="DAV:"><D:sync-token/></D:sync-collection>`
	req := newRequest(t, "REPORT", collectionURL, principal, body)
	req.Header.Set("Content-Type", "application/xml")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("sync-collection (get token) %s: %v", collectionURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 207 {
		t.Fatalf("sync-collection status at %s: %d", collectionURL, resp.StatusCode)
	}
	rb, _ := io.ReadAll(resp.Body)
	ms, err := parseMultiStatus(rb)
	if err != nil {
		t.Fatalf("parse sync token multistatus: %v", err)
	}
	if ms.SyncToken == "" {
		t.Fatalf("missing DAV:sync-token for %s", collectionURL)
	}
	return ms.SyncToken
}

func verifyDeletionReflectedInSync(t *testing.T, client *http.Client, collectionURL, principal, prevToken, deletedHref string) {
	t.Helper()
	body := `<?xml version="1.0" encoding="utf-8" ?>
<D:sync-collection xmlns:D="DAV:">
  <D:sync-token>` + xmlEscape(prevToken) + `</D:sync-token>
  <D:prop><D:getetag/></D:prop>
</D:sync-collection>`
	req := newRequest(t, "REPORT", collectionURL, principal, body)
	req.Header.Set("Content-Type", "application/xml")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("sync-collection after deletion: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 207 {
		t.Fatalf("sync-collection after deletion status: %d", resp.StatusCode)
	}
	rb, _ := io.ReadAll(resp.Body)
	ms, err := parseMultiStatus(rb)
	if err != nil {
		t.Fatalf("parse multistatus after deletion: %v\n%s", err, string(rb))
	}
	found := false
	for _, r := range ms.Responses {
		if strings.Contains(r.Href, deletedHref) {
			if strings.Contains(strings.ToLower(r.Status), "404") {
				found = true
				break
			}
			for _, ps := range r.PropStat {
				if strings.Contains(strings.ToLower(ps.Status), "404") {
					found = true
					break
				}
			}
		}
	}
	if !found {
		if !(strings.Contains(string(rb), deletedHref) && strings.Contains(string(rb), "404")) {
			t.Fatalf("deleted resource not reflected in sync-collection changes for %s\n%s", deletedHref, string(rb))
		}
	}
}

func parentCollectionURL(resourceURL string) (string, string) {
	u, err := url.Parse(resourceURL)
	if err != nil {
		return "", ""
	}
	path := u.Path
	if strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", ""
	}
	collPath := path[:i+1]
	href := path
	u.Path = collPath
	return u.String(), href
}

func deleteAndValidate(t *testing.T, client *http.Client, resourceURL, principal string) {
	t.Helper()
	collURL, href := parentCollectionURL(resourceURL)
	if collURL == "" || href == "" {
		t.Fatalf("cannot derive collection from %s", resourceURL)
	}
	prevToken := currentSyncToken(t, client, collURL, principal)
	etag := getETag(t, client, resourceURL, principal)
	req := newRequest(t, http.MethodDelete, resourceURL, principal, "")
	req.Header.Set("If-Match", etag)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("delete %s: %v", resourceURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("delete status at %s: %d body=%s", resourceURL, resp.StatusCode, string(b))
	}
	getReq := newRequest(t, http.MethodGet, resourceURL, principal, "")
	getResp, err := client.Do(getReq)
	if err != nil {
		t.Fatalf("get after delete %s: %v", resourceURL, err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", getResp.StatusCode)
	}
	verifyDeletionReflectedInSync(t, client, collURL, principal, prevToken, href)
}
