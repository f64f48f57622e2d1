package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/caldav-core/internal/caldaverr"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "caldav.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(st.Close)
	return st
}

// TestSyncExpiredTokenRejected covers spec.md §8 scenario 5: a baseline
// token issued before the collection's tombstone retention window must
// be rejected with a DAV:valid-sync-token precondition, even though its
// revision is not newer than the collection's current one.
func TestSyncExpiredTokenRejected(t *testing.T) {
	st := newTestStore(t)
	ctx := t.Context()

	col, err := st.CreateCollection(ctx, store.Collection{
		OwnerPrincipalID:   "mallory",
		Kind:               store.KindCalendar,
		Slug:               "work",
		DisplayName:        "work",
		TombstoneRetention: time.Second,
	})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	if _, err := st.PutCalendarObject(ctx, col.ID, "event-1.ics", []byte(sampleICS), store.PutPreconditions{}); err != nil {
		t.Fatalf("put object: %v", err)
	}
	fresh, err := st.GetCollection(ctx, col.ID)
	if err != nil {
		t.Fatalf("get collection: %v", err)
	}

	staleToken := store.SyncToken{Revision: fresh.SyncRevision, IssuedAt: time.Now().Add(-time.Hour).Unix()}.Encode()
	_, err = st.Sync(ctx, col.ID, staleToken, 0)
	if err == nil {
		t.Fatalf("expected an error for a sync token predating the retention window")
	}
	if !caldaverr.Is(err, caldaverr.KindSyncTokenExpired) {
		t.Fatalf("expected caldaverr.KindSyncTokenExpired, got %v", err)
	}
	ce, ok := err.(*caldaverr.Error)
	if !ok || ce.Precondition != "valid-sync-token" {
		t.Fatalf("expected valid-sync-token precondition, got %#v", err)
	}

	// A token issued within the retention window, at the same
	// revision, must still be accepted (no changes reported).
	freshToken := store.SyncToken{Revision: fresh.SyncRevision, IssuedAt: time.Now().Unix()}.Encode()
	result, err := st.Sync(ctx, col.ID, freshToken, 0)
	if err != nil {
		t.Fatalf("sync with a fresh token: %v", err)
	}
	if len(result.Changes) != 0 {
		t.Fatalf("expected no changes for a baseline at the current revision, got %d", len(result.Changes))
	}
}

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:sync-test-1@example.com
DTSTAMP:20260101T000000Z
DTSTART:20260115T090000Z
DTEND:20260115T100000Z
SUMMARY:Standup
END:VEVENT
END:VCALENDAR
`
