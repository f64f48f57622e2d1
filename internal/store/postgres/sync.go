package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sonroyaalmerol/caldav-core/internal/caldaverr"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
)

type changeRow struct {
	slug     string
	revision int64
	deleted  bool
	instance *store.Instance
}

// Sync implements the sync-collection REPORT's change enumeration: every
// instance and tombstone whose sync_revision exceeds the baseline token's
// revision, truncated to limit with DAV:number-of-matches-within-limits
// semantics left to internal/dav to render.
func (s *Store) Sync(ctx context.Context, collectionID, baselineToken string, limit int) (*store.SyncResult, error) {
	baseline, err := store.ParseSyncToken(baselineToken)
	if err != nil {
		return nil, caldaverr.SyncTokenExpired(err.Error())
	}

	col, err := s.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if baseline.Revision > col.SyncRevision {
		return nil, caldaverr.SyncTokenExpired("sync token is newer than the collection's current state")
	}
	if (baseline.Revision != 0 || baseline.IssuedAt != 0) && col.TombstoneRetention > 0 {
		issuedAt := time.Unix(baseline.IssuedAt, 0)
		if time.Since(issuedAt) > col.TombstoneRetention {
			return nil, caldaverr.SyncTokenExpired("sync token predates the collection's tombstone retention window")
		}
	}

	var rows []changeRow

	instRows, err := s.pool.Query(ctx, `
		SELECT `+instanceColumns+` FROM instances
		WHERE collection_id = $1 AND sync_revision > $2 AND deleted_at IS NULL
		ORDER BY sync_revision`, collectionID, baseline.Revision)
	if err != nil {
		return nil, fmt.Errorf("postgres: sync instances: %w", err)
	}
	for instRows.Next() {
		inst, err := scanInstance(instRows)
		if err != nil {
			instRows.Close()
			return nil, fmt.Errorf("postgres: scan sync instance: %w", err)
		}
		inst := inst
		rows = append(rows, changeRow{slug: inst.Slug, revision: inst.SyncRevision, instance: &inst})
	}
	instRows.Close()

	tombRows, err := s.pool.Query(ctx, `
		SELECT slug, sync_revision FROM tombstones
		WHERE collection_id = $1 AND sync_revision > $2
		ORDER BY sync_revision`, collectionID, baseline.Revision)
	if err != nil {
		return nil, fmt.Errorf("postgres: sync tombstones: %w", err)
	}
	for tombRows.Next() {
		var slug string
		var rev int64
		if err := tombRows.Scan(&slug, &rev); err != nil {
			tombRows.Close()
			return nil, fmt.Errorf("postgres: scan tombstone: %w", err)
		}
		rows = append(rows, changeRow{slug: slug, revision: rev, deleted: true})
	}
	tombRows.Close()

	sort.Slice(rows, func(i, j int) bool { return rows[i].revision < rows[j].revision })

	truncated := false
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
		truncated = true
	}

	result := &store.SyncResult{Truncated: truncated}
	newRevision := baseline.Revision
	for _, r := range rows {
		result.Changes = append(result.Changes, store.Change{Slug: r.slug, Deleted: r.deleted, Instance: r.instance})
		if r.revision > newRevision {
			newRevision = r.revision
		}
	}
	if !truncated {
		newRevision = col.SyncRevision
	}

	result.NewToken = store.SyncToken{Revision: newRevision, IssuedAt: time.Now().Unix()}.Encode()
	return result, nil
}
