// Package carddav implements the addressbook-collection-specific HTTP
// surface: PROPFIND property rendering, MKCOL-with-resourcetype
// addressbook creation, GET/PUT/DELETE content negotiation, and the
// addressbook-query/addressbook-multiget/sync-collection REPORTs.
// Grounded on the teacher's internal/dav/carddav package, adapted to
// internal/store.Store's Entity/Instance model and pkg/vcard's Card
// type.
package carddav

import (
	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/caldav-core/internal/store"
)

// ContentType is the MIME type every addressbook object PUT/GET
// negotiates, per RFC 6352 §6.1.
const ContentType = "text/vcard; charset=utf-8"

// Handler serves every method internal/dav's dispatcher routes to an
// addressbook collection or object within one.
type Handler struct {
	store    store.Store
	logger   zerolog.Logger
	basePath string
}

func NewHandler(st store.Store, logger zerolog.Logger, basePath string) *Handler {
	return &Handler{store: st, logger: logger, basePath: basePath}
}
