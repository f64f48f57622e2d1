package caldav

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
	return h.store.PutCalendarObject(ctx, collectionID, slug, data, pre)
}

// Delete removes slug inside collectionID, enforcing ifMatchETag.
func (h *Handler) Delete(ctx context.Context, collectionID, slug, ifMatchETag string) error {
	return h.store.DeleteObject(ctx, collectionID, slug, ifMatchETag)
}

// Copy clones src into dst, re-parsing and re-validating the canonical
// bytes rather than re-pointing at the shared entity, per spec.md
// §4.5's "clone for safety" MOVE/COPY semantics.
func (h *Handler) Copy(ctx context.Context, srcCollectionID, srcSlug, dstCollectionID, dstSlug string, overwrite bool) (*store.PutResult, error) {
	return h.store.CopyObject(ctx, srcCollectionID, srcSlug, dstCollectionID, dstSlug, overwrite)
}

// Move copies then deletes the source, as two independent store
// operations.
func (h *Handler) Move(ctx context.Context, srcCollectionID, srcSlug, dstCollectionID, dstSlug string, overwrite bool) (*store.PutResult, error) {
	return h.store.MoveObject(ctx, srcCollectionID, srcSlug, dstCollectionID, dstSlug, overwrite)
}

// CreateCalendar creates a new calendar collection from the display
// name, description and component set the caller passes in; an empty
// comps defaults to VEVENT only.
func (h *Handler) CreateCalendar(ctx context.Context, parentID, ownerPrincipalID, slug, displayName, description string, comps []string) (*store.Collection, error) {
	if len(comps) == 0 {
		comps = []string{"VEVENT"}
	}
	return h.store.CreateCollection(ctx, store.Collection{
		OwnerPrincipalID:    ownerPrincipalID,
		ParentID:            parentID,
		Kind:                store.KindCalendar,
		Slug:                slug,
		DisplayName:         displayName,
		Description:         description,
		SupportedComponents: comps,
	})
}
