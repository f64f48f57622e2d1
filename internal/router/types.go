// Package router wraps internal/dav.Handlers with the HTTP-level
// concerns that sit in front of it: request logging, method
// registration for the WebDAV verbs chi doesn't know about natively,
// and threading a principal ID (handed to us by whatever
// authentication sits upstream — authentication itself is out of
// scope) into the request context. Grounded on the teacher's
// internal/router package for the structured-logging shape, and on
// jw6ventures-calcard's internal/http/router.go for the chi-based verb
// registration and well-known redirect pattern.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/caldav-core/internal/dav"
)

func init() {
	for _, method := range []string{"PROPFIND", "PROPPATCH", "MKCOL", "MKCALENDAR", "REPORT", "COPY", "MOVE"} {
		chi.RegisterMethod(method)
	}
}

// Router wraps a *dav.Handlers with logging and the well-known/healthz
// surface.
type Router struct {
	handlers *dav.Handlers
	logger   zerolog.Logger
	basePath string
}

// remoteUserHeader is the header a reverse-proxy-terminated
// authentication layer is expected to set once it has verified the
// caller, per the "authentication is out of scope" boundary.
const remoteUserHeader = "X-Remote-User"

// New builds the top-level http.Handler for the server: /healthz,
// /.well-known redirects to basePath, and the DAV surface itself at
// basePath, each request wrapped in one structured log line.
func New(h *dav.Handlers, logger zerolog.Logger, basePath string) http.Handler {
	rt := &Router{handlers: h, logger: logger, basePath: basePath}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(rt.logMiddleware)

	r.Get("/healthz", rt.handleHealth)
	r.Get("/.well-known/caldav", rt.handleWellKnown)
	r.MethodFunc("PROPFIND", "/.well-known/caldav", rt.handleWellKnown)
	r.Get("/.well-known/carddav", rt.handleWellKnown)
	r.MethodFunc("PROPFIND", "/.well-known/carddav", rt.handleWellKnown)

	methods := []string{
		http.MethodOptions, "PROPFIND", "PROPPATCH", "MKCOL", "MKCALENDAR",
		http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete,
		"COPY", "MOVE", "REPORT",
	}
	for _, method := range methods {
		r.MethodFunc(method, basePath, rt.handleDAV)
		r.MethodFunc(method, basePath+"/*", rt.handleDAV)
	}

	return r
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Router) handleWellKnown(w http.ResponseWriter, req *http.Request) {
	http.Redirect(w, req, r.basePath+"/", http.StatusMovedPermanently)
}

func (r *Router) handleDAV(w http.ResponseWriter, req *http.Request) {
	principalID := req.Header.Get(remoteUserHeader)
	req = dav.ContextWithPrincipal(req, principalID)
	r.handlers.ServeHTTP(w, req)
}

// logMiddleware emits one structured event per request: debug level for
// read-heavy methods, info level for mutating ones, matching the
// teacher's routeDAVMethod split.
func (r *Router) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()

		next.ServeHTTP(rec, req)

		dur := time.Since(start)
		var ev *zerolog.Event
		switch req.Method {
		case "PROPFIND", "REPORT", http.MethodGet, http.MethodHead:
			ev = r.logger.Debug()
		default:
			ev = r.logger.Info()
		}
		ev.Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", statusOrDefault(rec.status)).
			Int("bytes", rec.bytes).
			Float64("duration_ms", float64(dur.Microseconds())/1000.0).
			Str("ip", realIP(req)).
			Str("user_agent", req.Header.Get("User-Agent")).
			Str("principal", req.Header.Get(remoteUserHeader)).
			Str("request_id", middleware.GetReqID(req.Context())).
			Msg("http request")
	})
}
