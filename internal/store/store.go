// Package store defines the object store's domain types and the Store
// interface every backend (internal/store/postgres,
// internal/store/sqlite) implements: collection/entity/instance/
// tombstone persistence, derived indexes, sync-revision bookkeeping,
// and ACL policy storage. Grounded on the teacher's internal/storage
// package (Store interface shape, Calendar/Object/Change types,
// withTx/RecordChange idioms), generalized from the teacher's single
// denormalized calendar_objects row to the entity/instance separation
// spec.md §3 requires (content shared across instances, membership and
// ETag/sync-revision kept per instance).
package store

import (
	"context"
	"time"

	"github.com/sonroyaalmerol/caldav-core/internal/authz"
	"github.com/sonroyaalmerol/caldav-core/internal/filter"
	"github.com/sonroyaalmerol/caldav-core/pkg/davxml"
	"github.com/sonroyaalmerol/caldav-core/pkg/icalendar"
	"github.com/sonroyaalmerol/caldav-core/pkg/vcard"
)

// CollectionKind is the kind of container, per spec.md §3.
type CollectionKind string

const (
	KindCalendar       CollectionKind = "calendar"
	KindAddressbook    CollectionKind = "addressbook"
	KindPrincipalHome  CollectionKind = "principal-home"
	KindPlain          CollectionKind = "plain"
)

// ContentKind distinguishes the two object wire formats an Entity holds.
type ContentKind string

const (
	ContentICalendar ContentKind = "icalendar"
	ContentVCard     ContentKind = "vcard"
)

// Collection is a container resource: a calendar, addressbook,
// principal home, or plain collection.
type Collection struct {
	ID                  string
	OwnerPrincipalID    string
	ParentID            string // "" for a root collection
	Kind                CollectionKind
	Slug                string
	DisplayName         string
	Description         string
	SupportedComponents []string // calendars only: subset of VEVENT/VTODO/VJOURNAL
	SyncRevision        int64
	TombstoneRetention  time.Duration
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Entity is canonical object content, shared across every Instance that
// references it.
type Entity struct {
	ID            string
	LogicalUID    string
	ContentKind   ContentKind
	CanonicalData []byte
	ContentHash   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Instance is one collection's membership of an Entity: its slug, ETag,
// and the sync revision at which it last changed.
type Instance struct {
	ID           string
	CollectionID string
	EntityID     string
	Slug         string
	ETag         string
	SyncRevision int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Tombstone marks a removed instance's slug until the collection's
// retention window expires.
type Tombstone struct {
	CollectionID string
	Slug         string
	SyncRevision int64
	DeletedAt    time.Time
}

// CalendarIndexRow is the derived per-instance index used to
// short-circuit non-recurring time-range queries without re-parsing the
// entity.
type CalendarIndexRow struct {
	InstanceID    string
	UID           string
	ComponentType string
	DTStartUTC    *time.Time
	DTEndUTC      *time.Time
	AllDay        bool
	RRuleText     string
	Organizer     string
	Summary       string
	Location      string
	TZID          string

	// Truncated marks that recurrence expansion hit the occurrence cache's
	// row cap before reaching the expansion window's end, so occurrences
	// past the cached tail must fall back to live expansion rather than
	// being treated as authoritative absence.
	Truncated bool
}

// OccurrenceRow is one expanded occurrence produced by recurrence
// expansion at write time, bounded to at most N rows per entity.
type OccurrenceRow struct {
	InstanceID     string
	Seq            int
	DTStartUTC     time.Time
	DTEndUTC       time.Time
	RecurrenceID   time.Time
	IsException    bool
}

// AddressIndexRow is the derived per-instance vCard index used by
// addressbook-query filters that only need summary fields.
type AddressIndexRow struct {
	InstanceID   string
	UID          string
	FN           string
	FamilyName   string
	GivenName    string
	Organization string
	Title        string
	Emails       []string
	Phones       []string
}

// ObjectResult is what GetObject/Query return: the parsed entity tree
// plus the instance metadata clients observe (ETag, Last-Modified).
type ObjectResult struct {
	Instance     Instance
	Entity       Entity
	Calendar     *icalendar.Calendar // populated when Entity.ContentKind == ContentICalendar
	Card         *vcard.Card         // populated when Entity.ContentKind == ContentVCard
	Occurrences  []OccurrenceRow
	// RecurrenceTruncated mirrors CalendarIndexRow.Truncated: the stored
	// occurrence cache stopped short of the expansion window's end
	// (occurrence row cap reached), so Occurrences is not exhaustive
	// past its last row and time-range matching must fall back to live
	// expansion for this entity.
	RecurrenceTruncated bool
}

// PutPreconditions carries the conditional-request state a PUT must
// honor, per spec.md §4.4 step 5.
type PutPreconditions struct {
	IfNoneMatchAny bool   // If-None-Match: * — create-only
	IfMatchETag    string // If-Match: <etag> — "" means not asserted
}

// PutResult reports whether the PUT created a new instance (201) or
// replaced an existing one (204), plus its resulting ETag.
type PutResult struct {
	Created  bool
	ETag     string
	Location string
}

// Change is one sync-collection entry: either a live instance update or
// (via a paired Tombstone slug) a removal.
type Change struct {
	Slug     string
	Deleted  bool
	Instance *Instance // nil when Deleted
}

// SyncResult is the sync-collection REPORT's domain-level response.
type SyncResult struct {
	Changes   []Change
	NewToken  string
	Truncated bool
}

// QueryOptions parameterizes Query: the filter tree to evaluate and an
// optional recurrence-expansion window for <expand>.
type QueryOptions struct {
	CalendarFilter    *davxml.CalendarFilter
	AddressbookFilter *davxml.AddressbookFilter
	ExpandWindow      *TimeWindow
}

// TimeWindow is a half-open [Start, End) instant range.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Store is the object store's full operation surface, named per
// spec.md §4.4.
type Store interface {
	Close()

	CreateCollection(ctx context.Context, c Collection) (*Collection, error)
	GetCollection(ctx context.Context, id string) (*Collection, error)
	GetCollectionBySlugPath(ctx context.Context, segments []string) (*Collection, error)
	ListChildren(ctx context.Context, collectionID string, depth int) ([]Collection, []Instance, error)
	DeleteCollection(ctx context.Context, id string) error

	PutCalendarObject(ctx context.Context, collectionID, slug string, data []byte, pre PutPreconditions) (*PutResult, error)
	PutVCardObject(ctx context.Context, collectionID, slug string, data []byte, pre PutPreconditions) (*PutResult, error)
	GetObject(ctx context.Context, collectionID, slug string) (*ObjectResult, error)
	DeleteObject(ctx context.Context, collectionID, slug string, ifMatchETag string) error
	CopyObject(ctx context.Context, srcCollectionID, srcSlug, dstCollectionID, dstSlug string, overwrite bool) (*PutResult, error)
	MoveObject(ctx context.Context, srcCollectionID, srcSlug, dstCollectionID, dstSlug string, overwrite bool) (*PutResult, error)

	Query(ctx context.Context, collectionID string, resolve filter.Occurrences, opts QueryOptions) ([]ObjectResult, error)
	Sync(ctx context.Context, collectionID, baselineToken string, limit int) (*SyncResult, error)

	// CollectionUsage sums the canonical byte size of every live entity
	// a collection's instances reference, for DAV:quota-used-bytes.
	CollectionUsage(ctx context.Context, collectionID string) (int64, error)

	GetACL(ctx context.Context, idPath string) ([]authz.Policy, error)

	// authz.GroupResolver and authz.PolicyProvider are satisfied by the
	// same Store so internal/dav can wire authorization without a
	// separate backing service, per spec.md §4.6's "no LDAP" decision.
	authz.GroupResolver
	authz.PolicyProvider
}
