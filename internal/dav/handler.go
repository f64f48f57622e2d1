// Package dav wires HTTP methods (OPTIONS, PROPFIND, PROPPATCH, MKCOL,
// GET, HEAD, PUT, DELETE, COPY, MOVE, REPORT) onto internal/store and
// internal/authz. Grounded on the teacher's internal/dav/handler.go and
// methods.go (Handlers struct holding the store/directory/ACL provider,
// a single ServeHTTP-style dispatch per method), adapted to resolve
// collections generically by slug path instead of the teacher's
// calendars/{owner}/{uri} two-segment scheme, since this store supports
// arbitrarily nested collections.
package dav

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/caldav-core/internal/authz"
	"github.com/sonroyaalmerol/caldav-core/internal/caldaverr"
	"github.com/sonroyaalmerol/caldav-core/internal/dav/caldav"
	"github.com/sonroyaalmerol/caldav-core/internal/dav/carddav"
	"github.com/sonroyaalmerol/caldav-core/internal/dav/common"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
)

// Handlers is the top-level HTTP entry point for the CalDAV/CardDAV
// surface. BasePath is the URL prefix under which every collection and
// principal resource is mounted (e.g. "/dav").
type Handlers struct {
	Store       store.Store
	Logger      zerolog.Logger
	BasePath    string
	MaxICSBytes int64
	MaxVCFBytes int64

	cal  *caldav.Handler
	card *carddav.Handler
}

// NewHandlers wires st behind the CalDAV/CardDAV HTTP surface. A
// maxICSBytes/maxVCFBytes of 0 falls back to a 1 MiB PUT body cap for
// the corresponding content kind.
func NewHandlers(st store.Store, logger zerolog.Logger, basePath string, maxICSBytes, maxVCFBytes int64) *Handlers {
	if maxICSBytes <= 0 {
		maxICSBytes = 1 << 20
	}
	if maxVCFBytes <= 0 {
		maxVCFBytes = 1 << 20
	}
	return &Handlers{
		Store:       st,
		Logger:      logger,
		BasePath:    basePath,
		MaxICSBytes: maxICSBytes,
		MaxVCFBytes: maxVCFBytes,
		cal:         caldav.NewHandler(st, logger, basePath),
		card:        carddav.NewHandler(st, logger, basePath),
	}
}

type principalKey struct{}

// ContextWithPrincipal attaches the authenticated principal ID to r's
// context; the surrounding auth middleware calls this before handing
// the request to Handlers.ServeHTTP, since authentication itself is out
// of this package's scope.
func ContextWithPrincipal(r *http.Request, principalID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), principalKey{}, principalID))
}

func principalFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(principalKey{}).(string)
	return v, ok && v != ""
}

func (h *Handlers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principalID, ok := principalFrom(r.Context())
	if !ok {
		principalID = authz.PublicPrincipalID
	}

	segments := common.SplitPath(h.BasePath, r.URL.Path)

	if r.Method == http.MethodOptions {
		h.handleOptions(w)
		return
	}

	rt, err := h.resolve(r, segments)
	if err != nil {
		common.WriteError(w, err)
		return
	}

	switch r.Method {
	case "PROPFIND":
		rt.propfind(w, r, principalID)
	case "PROPPATCH":
		rt.proppatch(w, r, principalID)
	case "MKCOL", "MKCALENDAR":
		rt.mkcol(w, r, principalID, r.Method == "MKCALENDAR")
	case http.MethodGet, http.MethodHead:
		rt.get(w, r, principalID, r.Method == http.MethodHead)
	case http.MethodPut:
		rt.put(w, r, principalID)
	case http.MethodDelete:
		rt.delete(w, r, principalID)
	case "COPY", "MOVE":
		rt.copyMove(w, r, principalID, r.Method == "MOVE")
	case "REPORT":
		rt.report(w, r, principalID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) handleOptions(w http.ResponseWriter) {
	w.Header().Set("DAV", "1, 3, access-control, calendar-access, addressbook, sync-collection")
	w.Header().Set("Allow", strings.Join([]string{
		http.MethodOptions, "PROPFIND", "PROPPATCH", "MKCOL", "MKCALENDAR",
		http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete,
		"COPY", "MOVE", "REPORT",
	}, ", "))
	w.WriteHeader(http.StatusOK)
}

// resolvedTarget is either a collection (objectSlug == "") or an object
// inside one.
type resolvedTarget struct {
	h          *Handlers
	segments   []string
	collection *store.Collection
	objectSlug string
}

// resolve walks segments against the store's collection tree, trying
// the full path as a collection first and, failing that, its parent as
// a collection with the final segment as an object slug — so a PUT to
// a not-yet-existing object still resolves its containing collection.
func (h *Handlers) resolve(r *http.Request, segments []string) (*resolvedTarget, error) {
	if len(segments) == 0 {
		return nil, caldaverr.NotFound("no collection at root")
	}
	if col, err := h.Store.GetCollectionBySlugPath(r.Context(), segments); err == nil {
		return &resolvedTarget{h: h, segments: segments, collection: col}, nil
	} else if !caldaverr.Is(err, caldaverr.KindNotFound) {
		return nil, err
	}
	if len(segments) == 1 {
		return nil, caldaverr.NotFound("collection not found")
	}
	parentSegs := segments[:len(segments)-1]
	col, err := h.Store.GetCollectionBySlugPath(r.Context(), parentSegs)
	if err != nil {
		return nil, err
	}
	return &resolvedTarget{h: h, segments: parentSegs, collection: col, objectSlug: segments[len(segments)-1]}, nil
}
