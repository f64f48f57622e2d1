package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sonroyaalmerol/caldav-core/internal/caldaverr"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
	"github.com/sonroyaalmerol/caldav-core/pkg/icalendar"
	"github.com/sonroyaalmerol/caldav-core/pkg/tzresolve"
	"github.com/sonroyaalmerol/caldav-core/pkg/vcard"
)

const instanceColumns = `id, collection_id, entity_id, slug, etag, sync_revision, created_at, updated_at, deleted_at`

func scanInstance(row interface{ Scan(...any) error }) (store.Instance, error) {
	var inst store.Instance
	var deletedAt *time.Time
	if err := row.Scan(&inst.ID, &inst.CollectionID, &inst.EntityID, &inst.Slug, &inst.ETag,
		&inst.SyncRevision, &inst.CreatedAt, &inst.UpdatedAt, &deletedAt); err != nil {
		return store.Instance{}, err
	}
	inst.DeletedAt = deletedAt
	return inst, nil
}

func (s *Store) liveInstance(ctx context.Context, tx pgx.Tx, collectionID, slug string) (*store.Instance, error) {
	row := tx.QueryRow(ctx, `SELECT `+instanceColumns+` FROM instances WHERE collection_id = $1 AND slug = $2 AND deleted_at IS NULL`, collectionID, slug)
	inst, err := scanInstance(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// PutCalendarObject implements the PUT contract for iCalendar content:
// parse+validate, component-allowlist check, UID-uniqueness check,
// conditional-request preconditions, then a single transaction replacing
// the entity, instance, calendar index, and occurrence cache, and
// bumping both sync revisions.
func (s *Store) PutCalendarObject(ctx context.Context, collectionID, slug string, data []byte, pre store.PutPreconditions) (*store.PutResult, error) {
	cal, err := icalendar.Parse(data)
	if err != nil {
		return nil, caldaverr.Precondition("valid-calendar-data", err.Error())
	}
	if len(cal.Root.ChildrenNamed("VCALENDAR")) > 0 {
		return nil, caldaverr.Precondition("valid-calendar-data", "nested VCALENDAR not allowed")
	}

	col, err := s.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if len(col.SupportedComponents) > 0 {
		allowed := make(map[string]bool, len(col.SupportedComponents))
		for _, c := range col.SupportedComponents {
			allowed[c] = true
		}
		for _, name := range masterComponentNames {
			for _, child := range cal.Root.ChildrenNamed(name) {
				if !allowed[child.Name] {
					return nil, caldaverr.Precondition("supported-calendar-component", fmt.Sprintf("component %s not supported by this calendar", child.Name))
				}
			}
		}
	}

	uid := masterUID(cal)
	if uid == "" {
		return nil, caldaverr.Precondition("valid-calendar-data", "missing UID")
	}

	var result store.PutResult
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		existing, err := s.liveInstance(ctx, tx, collectionID, slug)
		if err != nil {
			return fmt.Errorf("postgres: lookup instance: %w", err)
		}

		if conflictSlug, err := conflictingUID(ctx, tx, collectionID, uid, slug); err != nil {
			return err
		} else if conflictSlug != "" {
			return caldaverr.PreconditionHref("no-uid-conflict", conflictSlug, "UID already used by another object in this collection")
		}

		if pre.IfNoneMatchAny && existing != nil {
			return caldaverr.Conditional("If-None-Match: * but resource exists")
		}
		if pre.IfMatchETag != "" {
			if existing == nil || existing.ETag != pre.IfMatchETag {
				return caldaverr.Conditional("If-Match precondition failed")
			}
		}

		now := time.Now().UTC()
		canonical := icalendar.Serialize(cal)
		contentHash := store.ContentHash(canonical)

		if existing != nil {
			prevHash, err := entityContentHash(ctx, tx, existing.EntityID)
			if err != nil {
				return fmt.Errorf("postgres: lookup entity hash: %w", err)
			}
			if prevHash == contentHash {
				result.ETag = existing.ETag
				return nil
			}
		}

		entityID := uuid.NewString()
		if _, err := tx.Exec(ctx, `
			INSERT INTO entities (id, logical_uid, content_kind, canonical_data, content_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			entityID, uid, string(store.ContentICalendar), canonical, contentHash, now, now); err != nil {
			return fmt.Errorf("insert entity: %w", err)
		}

		colFresh, err := s.getCollectionTx(ctx, tx, collectionID)
		if err != nil {
			return err
		}
		newRevision := colFresh.SyncRevision + 1
		var instanceID string
		if existing == nil {
			instanceID = uuid.NewString()
			result.ETag = store.ComputeETag(contentHash, instanceID)
			if _, err := tx.Exec(ctx, `
				INSERT INTO instances (id, collection_id, entity_id, slug, etag, sync_revision, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				instanceID, collectionID, entityID, slug, result.ETag, newRevision, now, now); err != nil {
				return fmt.Errorf("insert instance: %w", err)
			}
			result.Created = true
		} else {
			instanceID = existing.ID
			result.ETag = store.ComputeETag(contentHash, instanceID)
			if _, err := tx.Exec(ctx, `
				UPDATE instances SET entity_id = $1, etag = $2, sync_revision = $3, updated_at = $4 WHERE id = $5`,
				entityID, result.ETag, newRevision, now, instanceID); err != nil {
				return fmt.Errorf("update instance: %w", err)
			}
		}

		if err := replaceCalendarIndex(ctx, tx, s.resolver, instanceID, cal); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE collections SET sync_revision = $1 WHERE id = $2`, newRevision, collectionID); err != nil {
			return fmt.Errorf("bump collection revision: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// PutVCardObject mirrors PutCalendarObject for vCard content.
func (s *Store) PutVCardObject(ctx context.Context, collectionID, slug string, data []byte, pre store.PutPreconditions) (*store.PutResult, error) {
	card, err := vcard.Parse(data)
	if err != nil {
		return nil, caldaverr.Precondition("valid-address-data", err.Error())
	}

	if _, err := s.GetCollection(ctx, collectionID); err != nil {
		return nil, err
	}

	uidProp := card.Get("UID")
	if uidProp == nil {
		return nil, caldaverr.Precondition("valid-address-data", "missing UID")
	}
	uid := vcard.UnescapeText(uidProp.Raw)

	var result store.PutResult
	err = s.withTx(ctx, func(tx pgx.Tx) error {
		existing, err := s.liveInstance(ctx, tx, collectionID, slug)
		if err != nil {
			return fmt.Errorf("postgres: lookup instance: %w", err)
		}

		if conflictSlug, err := conflictingUID(ctx, tx, collectionID, uid, slug); err != nil {
			return err
		} else if conflictSlug != "" {
			return caldaverr.PreconditionHref("no-uid-conflict", conflictSlug, "UID already used by another object in this addressbook")
		}

		if pre.IfNoneMatchAny && existing != nil {
			return caldaverr.Conditional("If-None-Match: * but resource exists")
		}
		if pre.IfMatchETag != "" {
			if existing == nil || existing.ETag != pre.IfMatchETag {
				return caldaverr.Conditional("If-Match precondition failed")
			}
		}

		now := time.Now().UTC()
		canonical := vcard.Serialize(card)
		contentHash := store.ContentHash(canonical)

		if existing != nil {
			prevHash, err := entityContentHash(ctx, tx, existing.EntityID)
			if err != nil {
				return fmt.Errorf("postgres: lookup entity hash: %w", err)
			}
			if prevHash == contentHash {
				result.ETag = existing.ETag
				return nil
			}
		}

		entityID := uuid.NewString()
		if _, err := tx.Exec(ctx, `
			INSERT INTO entities (id, logical_uid, content_kind, canonical_data, content_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			entityID, uid, string(store.ContentVCard), canonical, contentHash, now, now); err != nil {
			return fmt.Errorf("insert entity: %w", err)
		}

		colFresh, err := s.getCollectionTx(ctx, tx, collectionID)
		if err != nil {
			return err
		}
		newRevision := colFresh.SyncRevision + 1
		var instanceID string
		if existing == nil {
			instanceID = uuid.NewString()
			result.ETag = store.ComputeETag(contentHash, instanceID)
			if _, err := tx.Exec(ctx, `
				INSERT INTO instances (id, collection_id, entity_id, slug, etag, sync_revision, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				instanceID, collectionID, entityID, slug, result.ETag, newRevision, now, now); err != nil {
				return fmt.Errorf("insert instance: %w", err)
			}
			result.Created = true
		} else {
			instanceID = existing.ID
			result.ETag = store.ComputeETag(contentHash, instanceID)
			if _, err := tx.Exec(ctx, `
				UPDATE instances SET entity_id = $1, etag = $2, sync_revision = $3, updated_at = $4 WHERE id = $5`,
				entityID, result.ETag, newRevision, now, instanceID); err != nil {
				return fmt.Errorf("update instance: %w", err)
			}
		}

		if err := replaceAddressIndex(ctx, tx, instanceID, card); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE collections SET sync_revision = $1 WHERE id = $2`, newRevision, collectionID); err != nil {
			return fmt.Errorf("bump collection revision: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Store) getCollectionTx(ctx context.Context, tx pgx.Tx, id string) (*store.Collection, error) {
	row := tx.QueryRow(ctx, `SELECT `+collectionColumns+` FROM collections WHERE id = $1 FOR UPDATE`, id)
	c, err := scanCollection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, caldaverr.NotFound("collection not found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// entityContentHash fetches an entity's stored content hash, used to
// detect a byte-identical re-PUT so it can be treated as a no-op
// instead of advancing the sync revision.
func entityContentHash(ctx context.Context, tx pgx.Tx, entityID string) (string, error) {
	var hash string
	if err := tx.QueryRow(ctx, `SELECT content_hash FROM entities WHERE id = $1`, entityID).Scan(&hash); err != nil {
		return "", err
	}
	return hash, nil
}

var masterComponentNames = []string{"VEVENT", "VTODO", "VJOURNAL"}

func masterUID(cal *icalendar.Calendar) string {
	for _, name := range masterComponentNames {
		for _, c := range cal.Root.ChildrenNamed(name) {
			if p := c.Get("UID"); p != nil {
				return icalendar.UnescapeText(p.Raw)
			}
		}
	}
	return ""
}

// conflictingUID returns the slug of another live instance in the same
// collection sharing uid, or "" if none.
func conflictingUID(ctx context.Context, tx pgx.Tx, collectionID, uid, excludeSlug string) (string, error) {
	var slug string
	err := tx.QueryRow(ctx, `
		SELECT i.slug FROM instances i
		JOIN calendar_index ci ON ci.instance_id = i.id
		WHERE i.collection_id = $1 AND ci.uid = $2 AND i.slug != $3 AND i.deleted_at IS NULL
		UNION
		SELECT i.slug FROM instances i
		JOIN address_index ai ON ai.instance_id = i.id
		WHERE i.collection_id = $1 AND ai.uid = $2 AND i.slug != $3 AND i.deleted_at IS NULL
		LIMIT 1`,
		collectionID, uid, excludeSlug).Scan(&slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("postgres: check uid conflict: %w", err)
	}
	return slug, nil
}

// GetObject loads a live instance's entity and parses it back into its
// typed tree.
func (s *Store) GetObject(ctx context.Context, collectionID, slug string) (*store.ObjectResult, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT i.id, i.collection_id, i.entity_id, i.slug, i.etag, i.sync_revision, i.created_at, i.updated_at, i.deleted_at,
			e.id, e.logical_uid, e.content_kind, e.canonical_data, e.content_hash, e.created_at, e.updated_at
		FROM instances i JOIN entities e ON e.id = i.entity_id
		WHERE i.collection_id = $1 AND i.slug = $2 AND i.deleted_at IS NULL`, collectionID, slug)

	var inst store.Instance
	var ent store.Entity
	var deletedAt *time.Time
	if err := row.Scan(&inst.ID, &inst.CollectionID, &inst.EntityID, &inst.Slug, &inst.ETag, &inst.SyncRevision,
		&inst.CreatedAt, &inst.UpdatedAt, &deletedAt,
		&ent.ID, &ent.LogicalUID, &ent.ContentKind, &ent.CanonicalData, &ent.ContentHash, &ent.CreatedAt, &ent.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, caldaverr.NotFound("object not found")
		}
		return nil, fmt.Errorf("postgres: get object: %w", err)
	}
	inst.DeletedAt = deletedAt

	result := &store.ObjectResult{Instance: inst, Entity: ent}
	switch store.ContentKind(ent.ContentKind) {
	case store.ContentICalendar:
		cal, err := icalendar.Parse(ent.CanonicalData)
		if err != nil {
			return nil, fmt.Errorf("postgres: parse stored entity: %w", err)
		}
		result.Calendar = cal
		if err := s.pool.QueryRow(ctx, `SELECT occurrence_truncated FROM calendar_index WHERE instance_id = $1`, inst.ID).Scan(&result.RecurrenceTruncated); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("postgres: load calendar index: %w", err)
		}
		occRows, err := s.pool.Query(ctx, `SELECT instance_id, seq, dtstart_utc, dtend_utc, recurrence_id_utc, is_exception FROM occurrence_cache WHERE instance_id = $1 ORDER BY seq`, inst.ID)
		if err != nil {
			return nil, fmt.Errorf("postgres: load occurrence cache: %w", err)
		}
		defer occRows.Close()
		for occRows.Next() {
			var o store.OccurrenceRow
			if err := occRows.Scan(&o.InstanceID, &o.Seq, &o.DTStartUTC, &o.DTEndUTC, &o.RecurrenceID, &o.IsException); err != nil {
				return nil, fmt.Errorf("postgres: scan occurrence: %w", err)
			}
			result.Occurrences = append(result.Occurrences, o)
		}
	case store.ContentVCard:
		card, err := vcard.Parse(ent.CanonicalData)
		if err != nil {
			return nil, fmt.Errorf("postgres: parse stored entity: %w", err)
		}
		result.Card = card
	}
	return result, nil
}

// DeleteObject soft-deletes the live instance at slug, records a
// tombstone, and bumps the collection's sync revision.
func (s *Store) DeleteObject(ctx context.Context, collectionID, slug string, ifMatchETag string) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		existing, err := s.liveInstance(ctx, tx, collectionID, slug)
		if err != nil {
			return fmt.Errorf("postgres: lookup instance: %w", err)
		}
		if existing == nil {
			return caldaverr.NotFound("object not found")
		}
		if ifMatchETag != "" && existing.ETag != ifMatchETag {
			return caldaverr.Conditional("If-Match precondition failed")
		}

		col, err := s.getCollectionTx(ctx, tx, collectionID)
		if err != nil {
			return err
		}
		newRevision := col.SyncRevision + 1
		now := time.Now().UTC()

		if _, err := tx.Exec(ctx, `UPDATE instances SET deleted_at = $1, sync_revision = $2 WHERE id = $3`, now, newRevision, existing.ID); err != nil {
			return fmt.Errorf("soft-delete instance: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO tombstones (id, collection_id, slug, sync_revision, deleted_at)
			VALUES ($1, $2, $3, $4, $5)`, uuid.NewString(), collectionID, slug, newRevision, now); err != nil {
			return fmt.Errorf("insert tombstone: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE collections SET sync_revision = $1 WHERE id = $2`, newRevision, collectionID); err != nil {
			return fmt.Errorf("bump collection revision: %w", err)
		}
		return nil
	})
}

// CopyObject clones the source instance's current entity content into a
// new (or overwritten) instance at the destination, per the
// clone-for-safety decision for cross-collection moves/copies.
func (s *Store) CopyObject(ctx context.Context, srcCollectionID, srcSlug, dstCollectionID, dstSlug string, overwrite bool) (*store.PutResult, error) {
	obj, err := s.GetObject(ctx, srcCollectionID, srcSlug)
	if err != nil {
		return nil, err
	}
	pre := store.PutPreconditions{}
	if !overwrite {
		pre.IfNoneMatchAny = true
	}
	switch store.ContentKind(obj.Entity.ContentKind) {
	case store.ContentICalendar:
		return s.PutCalendarObject(ctx, dstCollectionID, dstSlug, obj.Entity.CanonicalData, pre)
	case store.ContentVCard:
		return s.PutVCardObject(ctx, dstCollectionID, dstSlug, obj.Entity.CanonicalData, pre)
	default:
		return nil, fmt.Errorf("postgres: unknown content kind %q", obj.Entity.ContentKind)
	}
}

// MoveObject copies the source to the destination, then deletes the
// source, as one caller-visible operation (not one DB transaction,
// since PUT and DELETE each perform their own index/revision
// bookkeeping independently).
func (s *Store) MoveObject(ctx context.Context, srcCollectionID, srcSlug, dstCollectionID, dstSlug string, overwrite bool) (*store.PutResult, error) {
	result, err := s.CopyObject(ctx, srcCollectionID, srcSlug, dstCollectionID, dstSlug, overwrite)
	if err != nil {
		return nil, err
	}
	if err := s.DeleteObject(ctx, srcCollectionID, srcSlug, ""); err != nil {
		return nil, err
	}
	return result, nil
}

func replaceCalendarIndex(ctx context.Context, tx pgx.Tx, resolver *tzresolve.Resolver, instanceID string, cal *icalendar.Calendar) error {
	row, occs, err := store.DeriveCalendarIndex(instanceID, cal, resolver, store.DefaultMaxOccurrenceRows)
	if err != nil {
		return caldaverr.Precondition("valid-calendar-data", err.Error())
	}

	if _, err := tx.Exec(ctx, `DELETE FROM calendar_index WHERE instance_id = $1`, instanceID); err != nil {
		return fmt.Errorf("clear calendar index: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM occurrence_cache WHERE instance_id = $1`, instanceID); err != nil {
		return fmt.Errorf("clear occurrence cache: %w", err)
	}

	var dtstart, dtend any
	if row.DTStartUTC != nil {
		dtstart = *row.DTStartUTC
	}
	if row.DTEndUTC != nil {
		dtend = *row.DTEndUTC
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO calendar_index (instance_id, uid, component_type, dtstart_utc, dtend_utc, all_day, rrule_text, organizer, summary, location, tzid, occurrence_truncated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		instanceID, row.UID, row.ComponentType, dtstart, dtend, row.AllDay, row.RRuleText, row.Organizer, row.Summary, row.Location, row.TZID, row.Truncated); err != nil {
		return fmt.Errorf("insert calendar index: %w", err)
	}

	for _, o := range occs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO occurrence_cache (instance_id, seq, dtstart_utc, dtend_utc, recurrence_id_utc, is_exception)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			o.InstanceID, o.Seq, o.DTStartUTC, o.DTEndUTC, o.RecurrenceID, o.IsException); err != nil {
			return fmt.Errorf("insert occurrence: %w", err)
		}
	}
	return nil
}

func replaceAddressIndex(ctx context.Context, tx pgx.Tx, instanceID string, card *vcard.Card) error {
	row := store.DeriveAddressIndex(instanceID, card)

	if _, err := tx.Exec(ctx, `DELETE FROM address_index WHERE instance_id = $1`, instanceID); err != nil {
		return fmt.Errorf("clear address index: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM address_index_emails WHERE instance_id = $1`, instanceID); err != nil {
		return fmt.Errorf("clear address emails: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM address_index_phones WHERE instance_id = $1`, instanceID); err != nil {
		return fmt.Errorf("clear address phones: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO address_index (instance_id, uid, fn, family_name, given_name, organization, title)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		instanceID, row.UID, row.FN, row.FamilyName, row.GivenName, row.Organization, row.Title); err != nil {
		return fmt.Errorf("insert address index: %w", err)
	}
	for _, email := range row.Emails {
		if _, err := tx.Exec(ctx, `INSERT INTO address_index_emails (instance_id, email) VALUES ($1, $2)`, instanceID, email); err != nil {
			return fmt.Errorf("insert address email: %w", err)
		}
	}
	for _, phone := range row.Phones {
		if _, err := tx.Exec(ctx, `INSERT INTO address_index_phones (instance_id, phone) VALUES ($1, $2)`, instanceID, phone); err != nil {
			return fmt.Errorf("insert address phone: %w", err)
		}
	}
	return nil
}
