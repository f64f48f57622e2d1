package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/sonroyaalmerol/caldav-core/internal/filter"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
	"github.com/sonroyaalmerol/caldav-core/pkg/icalendar"
	"github.com/sonroyaalmerol/caldav-core/pkg/recurrence"
	"github.com/sonroyaalmerol/caldav-core/pkg/vcard"
)

// Query evaluates opts' filter against every live object in
// collectionID, using the occurrence cache to resolve recurring
// components instead of re-expanding RRULEs per request.
func (s *Store) Query(ctx context.Context, collectionID string, resolve filter.Occurrences, opts store.QueryOptions) ([]store.ObjectResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.collection_id, i.entity_id, i.slug, i.etag, i.sync_revision, i.created_at, i.updated_at, i.deleted_at,
			e.id, e.logical_uid, e.content_kind, e.canonical_data, e.content_hash, e.created_at, e.updated_at
		FROM instances i JOIN entities e ON e.id = i.entity_id
		WHERE i.collection_id = $1 AND i.deleted_at IS NULL`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: query objects: %w", err)
	}
	defer rows.Close()

	var results []store.ObjectResult
	for rows.Next() {
		var inst store.Instance
		var ent store.Entity
		var deletedAt *time.Time
		if err := rows.Scan(&inst.ID, &inst.CollectionID, &inst.EntityID, &inst.Slug, &inst.ETag, &inst.SyncRevision,
			&inst.CreatedAt, &inst.UpdatedAt, &deletedAt,
			&ent.ID, &ent.LogicalUID, &ent.ContentKind, &ent.CanonicalData, &ent.ContentHash, &ent.CreatedAt, &ent.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan query row: %w", err)
		}
		inst.DeletedAt = deletedAt

		switch store.ContentKind(ent.ContentKind) {
		case store.ContentICalendar:
			if opts.CalendarFilter == nil {
				continue
			}
			cal, err := icalendar.Parse(ent.CanonicalData)
			if err != nil {
				continue
			}
			cacheResolver := s.cachedOccurrenceResolver(ctx, inst.ID, resolve)
			ok, err := filter.MatchCalendar(*opts.CalendarFilter, cal, cacheResolver)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			results = append(results, store.ObjectResult{Instance: inst, Entity: ent, Calendar: cal})
		case store.ContentVCard:
			if opts.AddressbookFilter == nil {
				continue
			}
			card, err := vcard.Parse(ent.CanonicalData)
			if err != nil {
				continue
			}
			ok, err := filter.MatchCard(*opts.AddressbookFilter, card)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			results = append(results, store.ObjectResult{Instance: inst, Entity: ent, Card: card})
		}
	}
	return results, rows.Err()
}

// cachedOccurrenceResolver serves a filter.Occurrences callback from the
// occurrence cache populated at write time, falling back to live
// expansion (via the resolver the caller supplied) only when none of this
// instance's cached rows overlap the window (e.g. a window past the
// cached horizon).
func (s *Store) cachedOccurrenceResolver(ctx context.Context, instanceID string, fallback filter.Occurrences) filter.Occurrences {
	return func(master *icalendar.Component, windowStart, windowEnd time.Time) ([]recurrence.Occurrence, error) {
		rows, err := s.pool.Query(ctx, `
			SELECT dtstart_utc, dtend_utc, recurrence_id_utc, is_exception FROM occurrence_cache
			WHERE instance_id = $1 AND dtstart_utc < $2 AND dtend_utc > $3
			ORDER BY seq`, instanceID, windowEnd, windowStart)
		if err != nil {
			return nil, fmt.Errorf("postgres: load occurrence cache: %w", err)
		}
		defer rows.Close()

		var out []recurrence.Occurrence
		for rows.Next() {
			var o recurrence.Occurrence
			if err := rows.Scan(&o.Start, &o.End, &o.RecurrenceID, &o.Overridden); err != nil {
				return nil, fmt.Errorf("postgres: scan occurrence cache: %w", err)
			}
			out = append(out, o)
		}
		if len(out) == 0 && fallback != nil {
			return fallback(master, windowStart, windowEnd)
		}
		return out, nil
	}
}
