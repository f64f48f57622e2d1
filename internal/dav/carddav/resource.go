package carddav

import (
	"context"

	"github.com/sonroyaalmerol/caldav-core/internal/store"
)

// Get loads slug inside collectionID for a GET/HEAD response.
func (h *Handler) Get(ctx context.Context, collectionID, slug string) (*store.ObjectResult, error) {
	return h.store.GetObject(ctx, collectionID, slug)
}

// Put stores data as slug inside collectionID, enforcing pre.
func (h *Handler) Put(ctx context.Context, collectionID, slug string, data []byte, pre store.PutPreconditions) (*store.PutResult, error) {
	return h.store.PutVCardObject(ctx, collectionID, slug, data, pre)
}

// Delete removes slug inside collectionID, enforcing ifMatchETag.
func (h *Handler) Delete(ctx context.Context, collectionID, slug, ifMatchETag string) error {
	return h.store.DeleteObject(ctx, collectionID, slug, ifMatchETag)
}

// Copy clones src into dst, re-parsing and re-validating the canonical
// bytes rather than re-pointing at the shared entity.
func (h *Handler) Copy(ctx context.Context, srcCollectionID, srcSlug, dstCollectionID, dstSlug string, overwrite bool) (*store.PutResult, error) {
	return h.store.CopyObject(ctx, srcCollectionID, srcSlug, dstCollectionID, dstSlug, overwrite)
}

// Move copies then deletes the source, as two independent store
// operations.
func (h *Handler) Move(ctx context.Context, srcCollectionID, srcSlug, dstCollectionID, dstSlug string, overwrite bool) (*store.PutResult, error) {
	return h.store.MoveObject(ctx, srcCollectionID, srcSlug, dstCollectionID, dstSlug, overwrite)
}

// CreateAddressbook creates a new addressbook collection.
func (h *Handler) CreateAddressbook(ctx context.Context, parentID, ownerPrincipalID, slug, displayName, description string) (*store.Collection, error) {
	return h.store.CreateCollection(ctx, store.Collection{
		OwnerPrincipalID: ownerPrincipalID,
		ParentID:         parentID,
		Kind:             store.KindAddressbook,
		Slug:             slug,
		DisplayName:      displayName,
		Description:      description,
	})
}
