// Package caldav implements the calendar-collection-specific HTTP
// surface: PROPFIND property rendering, MKCALENDAR, GET/PUT/DELETE
// content negotiation, and the calendar-query/calendar-multiget/
// sync-collection REPORTs. Grounded on the teacher's
// internal/dav/caldav package (handler.go/methods.go/propfind.go/
// reports.go), adapted from the teacher's storage.Store/ical.Event
// model to internal/store.Store's Entity/Instance model and
// pkg/icalendar's component tree.
package caldav

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/caldav-core/internal/store"
	"github.com/sonroyaalmerol/caldav-core/pkg/tzresolve"
)

// ContentType is the MIME type every calendar object PUT/GET negotiates,
// per RFC 4791 §4.2.
const ContentType = "text/calendar; charset=utf-8"

// Handler serves every method internal/dav's dispatcher routes to a
// calendar collection or object within one.
type Handler struct {
	store    store.Store
	logger   zerolog.Logger
	basePath string
	resolver *tzresolve.Resolver
}

func NewHandler(st store.Store, logger zerolog.Logger, basePath string) *Handler {
	return &Handler{store: st, logger: logger, basePath: basePath, resolver: tzresolve.NewResolver(24 * time.Hour)}
}
