package sqlite

import (
	"testing"

	"github.com/sonroyaalmerol/caldav-core/internal/caldaverr"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
)

func seedTestCalendar(t *testing.T, st *Store, owner, slug string) *store.Collection {
	t.Helper()
	col, err := st.CreateCollection(t.Context(), store.Collection{
		OwnerPrincipalID:    owner,
		Kind:                store.KindCalendar,
		Slug:                slug,
		DisplayName:         slug,
		SupportedComponents: []string{"VEVENT"},
	})
	if err != nil {
		t.Fatalf("create calendar %s: %v", slug, err)
	}
	return col
}

// TestPutIdenticalContentDoesNotAdvanceRevision covers spec.md §8's
// universal invariant: re-PUTting byte-identical content must not bump
// the collection's sync revision, since nothing actually changed.
func TestPutIdenticalContentDoesNotAdvanceRevision(t *testing.T) {
	st := newTestStore(t)
	ctx := t.Context()
	col := seedTestCalendar(t, st, "nina", "work")

	first, err := st.PutCalendarObject(ctx, col.ID, "event-1.ics", []byte(sampleICS), store.PutPreconditions{})
	if err != nil {
		t.Fatalf("first PUT: %v", err)
	}
	if !first.Created {
		t.Fatalf("expected first PUT to create the instance")
	}
	afterFirst, err := st.GetCollection(ctx, col.ID)
	if err != nil {
		t.Fatalf("get collection after first PUT: %v", err)
	}

	second, err := st.PutCalendarObject(ctx, col.ID, "event-1.ics", []byte(sampleICS), store.PutPreconditions{})
	if err != nil {
		t.Fatalf("second identical PUT: %v", err)
	}
	if second.ETag != first.ETag {
		t.Fatalf("identical content PUT changed the ETag: %q -> %q", first.ETag, second.ETag)
	}
	afterSecond, err := st.GetCollection(ctx, col.ID)
	if err != nil {
		t.Fatalf("get collection after second PUT: %v", err)
	}
	if afterSecond.SyncRevision != afterFirst.SyncRevision {
		t.Fatalf("identical content PUT advanced sync_revision: %d -> %d", afterFirst.SyncRevision, afterSecond.SyncRevision)
	}

	third, err := st.PutCalendarObject(ctx, col.ID, "event-1.ics", []byte(
		`BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:sync-test-1@example.com
DTSTAMP:20260101T000000Z
DTSTART:20260115T090000Z
DTEND:20260115T100000Z
SUMMARY:Standup (updated)
END:VEVENT
END:VCALENDAR
`), store.PutPreconditions{})
	if err != nil {
		t.Fatalf("third (changed) PUT: %v", err)
	}
	if third.ETag == first.ETag {
		t.Fatalf("changed content PUT did not produce a new ETag")
	}
	afterThird, err := st.GetCollection(ctx, col.ID)
	if err != nil {
		t.Fatalf("get collection after third PUT: %v", err)
	}
	if afterThird.SyncRevision <= afterFirst.SyncRevision {
		t.Fatalf("changed content PUT did not advance sync_revision: %d -> %d", afterFirst.SyncRevision, afterThird.SyncRevision)
	}
}

// TestPutUIDConflictRejected covers spec.md §8 scenario 2 directly
// against the store: a second slug reusing a live UID in the same
// collection must fail with a no-uid-conflict precondition naming the
// existing member.
func TestPutUIDConflictRejected(t *testing.T) {
	st := newTestStore(t)
	ctx := t.Context()
	col := seedTestCalendar(t, st, "oscar", "work")

	if _, err := st.PutCalendarObject(ctx, col.ID, "event-1.ics", []byte(sampleICS), store.PutPreconditions{}); err != nil {
		t.Fatalf("put first object: %v", err)
	}

	conflictingICS := `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:sync-test-1@example.com
DTSTAMP:20260101T000000Z
DTSTART:20260116T090000Z
DTEND:20260116T100000Z
SUMMARY:Different slug, same UID
END:VEVENT
END:VCALENDAR
`
	_, err := st.PutCalendarObject(ctx, col.ID, "event-2.ics", []byte(conflictingICS), store.PutPreconditions{})
	if err == nil {
		t.Fatalf("expected a no-uid-conflict error")
	}
	ce, ok := err.(*caldaverr.Error)
	if !ok || ce.Precondition != "no-uid-conflict" {
		t.Fatalf("expected no-uid-conflict precondition, got %#v", err)
	}
	if ce.Href != "event-1.ics" {
		t.Fatalf("expected conflicting href event-1.ics, got %q", ce.Href)
	}
}

// TestPutConditionalPreconditions covers the If-None-Match: * and
// If-Match conditional-request rules PUT must enforce.
func TestPutConditionalPreconditions(t *testing.T) {
	st := newTestStore(t)
	ctx := t.Context()
	col := seedTestCalendar(t, st, "peter", "work")

	created, err := st.PutCalendarObject(ctx, col.ID, "event-1.ics", []byte(sampleICS), store.PutPreconditions{IfNoneMatchAny: true})
	if err != nil {
		t.Fatalf("create-only PUT on empty slug: %v", err)
	}
	if !created.Created {
		t.Fatalf("expected Created true for the first PUT")
	}

	_, err = st.PutCalendarObject(ctx, col.ID, "event-1.ics", []byte(sampleICS), store.PutPreconditions{IfNoneMatchAny: true})
	if !caldaverr.Is(err, caldaverr.KindConditional) {
		t.Fatalf("expected a conditional-request failure for If-None-Match: * against an existing resource, got %v", err)
	}

	_, err = st.PutCalendarObject(ctx, col.ID, "event-1.ics", []byte(sampleICS), store.PutPreconditions{IfMatchETag: `"not-the-real-etag"`})
	if !caldaverr.Is(err, caldaverr.KindConditional) {
		t.Fatalf("expected a conditional-request failure for a stale If-Match, got %v", err)
	}

	if _, err := st.PutCalendarObject(ctx, col.ID, "event-1.ics", []byte(sampleICS), store.PutPreconditions{IfMatchETag: created.ETag}); err != nil {
		t.Fatalf("PUT with the correct If-Match: %v", err)
	}
}

// TestCopyAndMoveObject covers COPY/MOVE directly against the store:
// COPY leaves the source live and creates an independent destination
// instance; MOVE removes the source and leaves a tombstone behind.
func TestCopyAndMoveObject(t *testing.T) {
	st := newTestStore(t)
	ctx := t.Context()
	src := seedTestCalendar(t, st, "quinn", "src")
	dst := seedTestCalendar(t, st, "quinn", "dst")

	if _, err := st.PutCalendarObject(ctx, src.ID, "event-1.ics", []byte(sampleICS), store.PutPreconditions{}); err != nil {
		t.Fatalf("seed source object: %v", err)
	}

	if _, err := st.CopyObject(ctx, src.ID, "event-1.ics", dst.ID, "event-1-copy.ics", false); err != nil {
		t.Fatalf("copy object: %v", err)
	}
	if _, err := st.GetObject(ctx, src.ID, "event-1.ics"); err != nil {
		t.Fatalf("source object missing after COPY: %v", err)
	}
	if _, err := st.GetObject(ctx, dst.ID, "event-1-copy.ics"); err != nil {
		t.Fatalf("copy destination missing: %v", err)
	}

	if _, err := st.MoveObject(ctx, src.ID, "event-1.ics", dst.ID, "event-1-moved.ics", false); err != nil {
		t.Fatalf("move object: %v", err)
	}
	if _, err := st.GetObject(ctx, dst.ID, "event-1-moved.ics"); err != nil {
		t.Fatalf("move destination missing: %v", err)
	}
	if _, err := st.GetObject(ctx, src.ID, "event-1.ics"); !caldaverr.Is(err, caldaverr.KindNotFound) {
		t.Fatalf("expected source to be gone after MOVE, got %v", err)
	}

	// MOVE without overwrite onto an existing destination must fail,
	// leaving both the source and the pre-existing destination intact.
	if _, err := st.PutCalendarObject(ctx, dst.ID, "event-1-moved-again.ics", []byte(sampleICS), store.PutPreconditions{}); err != nil {
		t.Fatalf("seed second source: %v", err)
	}
	_, err := st.MoveObject(ctx, dst.ID, "event-1-moved-again.ics", dst.ID, "event-1-moved.ics", false)
	if !caldaverr.Is(err, caldaverr.KindConditional) && !caldaverr.Is(err, caldaverr.KindConflict) {
		t.Fatalf("expected MOVE without overwrite onto an existing destination to fail, got %v", err)
	}
	if _, err := st.GetObject(ctx, dst.ID, "event-1-moved-again.ics"); err != nil {
		t.Fatalf("source of failed MOVE should still exist: %v", err)
	}
}
