package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sonroyaalmerol/caldav-core/internal/caldaverr"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
)

const collectionColumns = `id, owner_principal_id, parent_id, kind, slug, display_name,
	description, supported_components, sync_revision, tombstone_retention_seconds,
	created_at, updated_at`

func scanCollection(row interface{ Scan(...any) error }) (store.Collection, error) {
	var c store.Collection
	var parentID *string
	var components string
	var retentionSeconds int64
	if err := row.Scan(&c.ID, &c.OwnerPrincipalID, &parentID, &c.Kind, &c.Slug, &c.DisplayName,
		&c.Description, &components, &c.SyncRevision, &retentionSeconds, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return store.Collection{}, err
	}
	if parentID != nil {
		c.ParentID = *parentID
	}
	if components != "" {
		c.SupportedComponents = strings.Split(components, ",")
	}
	c.TombstoneRetention = time.Duration(retentionSeconds) * time.Second
	return c, nil
}

// CreateCollection inserts a new collection, generating an id when none
// is supplied.
func (s *Store) CreateCollection(ctx context.Context, c store.Collection) (*store.Collection, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	var parentID any
	if c.ParentID != "" {
		parentID = c.ParentID
	}
	retention := c.TombstoneRetention
	if retention == 0 {
		retention = 90 * 24 * time.Hour
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO collections (id, owner_principal_id, parent_id, kind, slug, display_name,
			description, supported_components, sync_revision, tombstone_retention_seconds,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11)`,
		c.ID, c.OwnerPrincipalID, parentID, c.Kind, c.Slug, c.DisplayName, c.Description,
		strings.Join(c.SupportedComponents, ","), int64(retention.Seconds()), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: create collection: %w", err)
	}
	c.TombstoneRetention = retention
	return &c, nil
}

// GetCollection loads a collection by id.
func (s *Store) GetCollection(ctx context.Context, id string) (*store.Collection, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+collectionColumns+` FROM collections WHERE id = $1`, id)
	c, err := scanCollection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, caldaverr.NotFound("collection not found")
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get collection: %w", err)
	}
	return &c, nil
}

// GetCollectionBySlugPath resolves a slash-separated path of slugs
// starting at the forest root (collections with no parent).
func (s *Store) GetCollectionBySlugPath(ctx context.Context, segments []string) (*store.Collection, error) {
	var parentID string
	haveParent := false
	var current store.Collection
	found := false
	for _, seg := range segments {
		var row pgx.Row
		if haveParent {
			row = s.pool.QueryRow(ctx, `SELECT `+collectionColumns+` FROM collections WHERE parent_id = $1 AND slug = $2`, parentID, seg)
		} else {
			row = s.pool.QueryRow(ctx, `SELECT `+collectionColumns+` FROM collections WHERE parent_id IS NULL AND slug = $1`, seg)
		}
		c, err := scanCollection(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, caldaverr.NotFound("collection not found")
		}
		if err != nil {
			return nil, fmt.Errorf("postgres: resolve slug path: %w", err)
		}
		current = c
		parentID = c.ID
		haveParent = true
		found = true
	}
	if !found {
		return nil, caldaverr.NotFound("collection not found")
	}
	return &current, nil
}

// ListChildren returns a collection's direct child collections and live
// instances; depth > 0 additionally recurses into child collections
// (used by PROPFIND Depth: infinity on a principal home).
func (s *Store) ListChildren(ctx context.Context, collectionID string, depth int) ([]store.Collection, []store.Instance, error) {
	var collections []store.Collection
	var instances []store.Instance

	childRows, err := s.pool.Query(ctx, `SELECT `+collectionColumns+` FROM collections WHERE parent_id = $1 ORDER BY slug`, collectionID)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: list child collections: %w", err)
	}
	var childIDs []string
	for childRows.Next() {
		c, err := scanCollection(childRows)
		if err != nil {
			childRows.Close()
			return nil, nil, fmt.Errorf("postgres: scan child collection: %w", err)
		}
		collections = append(collections, c)
		childIDs = append(childIDs, c.ID)
	}
	childRows.Close()

	instRows, err := s.pool.Query(ctx, `SELECT `+instanceColumns+` FROM instances WHERE collection_id = $1 AND deleted_at IS NULL ORDER BY slug`, collectionID)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: list instances: %w", err)
	}
	for instRows.Next() {
		inst, err := scanInstance(instRows)
		if err != nil {
			instRows.Close()
			return nil, nil, fmt.Errorf("postgres: scan instance: %w", err)
		}
		instances = append(instances, inst)
	}
	instRows.Close()

	if depth > 0 {
		for _, childID := range childIDs {
			subCollections, subInstances, err := s.ListChildren(ctx, childID, depth-1)
			if err != nil {
				return nil, nil, err
			}
			collections = append(collections, subCollections...)
			instances = append(instances, subInstances...)
		}
	}

	return collections, instances, nil
}

// CollectionUsage sums the canonical byte size of every live entity this
// collection's instances reference.
func (s *Store) CollectionUsage(ctx context.Context, collectionID string) (int64, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(octet_length(e.canonical_data)), 0)
		FROM (SELECT DISTINCT entity_id FROM instances WHERE collection_id = $1 AND deleted_at IS NULL) i
		JOIN entities e ON e.id = i.entity_id`, collectionID)
	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("postgres: collection usage: %w", err)
	}
	return total, nil
}

// DeleteCollection removes a collection and (via ON DELETE CASCADE) its
// descendants, instances, and derived index rows.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return caldaverr.NotFound("collection not found")
	}
	return nil
}
