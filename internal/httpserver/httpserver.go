// Package httpserver assembles the storage backend, the DAV handlers,
// and the router into a runnable *http.Server. Grounded on the
// teacher's internal/httpserver/httpserver.go (storage backend switch,
// cleanup closure, Start/Shutdown wrapper).
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/caldav-core/internal/config"
	"github.com/sonroyaalmerol/caldav-core/internal/dav"
	"github.com/sonroyaalmerol/caldav-core/internal/router"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
	"github.com/sonroyaalmerol/caldav-core/internal/store/postgres"
	"github.com/sonroyaalmerol/caldav-core/internal/store/sqlite"
)

type Server struct {
	http   *http.Server
	logger zerolog.Logger
}

// NewServer opens the configured storage backend, wires it behind
// internal/dav and internal/router, and returns a *Server along with a
// cleanup closure the caller must run on shutdown.
func NewServer(cfg *config.Config, logger zerolog.Logger) (*Server, func(), error) {
	st, err := openStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	handlers := dav.NewHandlers(st, logger, cfg.HTTP.BasePath, cfg.HTTP.MaxICSBytes, cfg.HTTP.MaxVCFBytes)
	mux := router.New(handlers, logger, cfg.HTTP.BasePath)

	srv := &Server{
		http: &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
	cleanup := func() { st.Close() }
	logger.Info().Msgf("listening on %s (storage=%s)", cfg.HTTP.Addr, cfg.Storage.Type)
	return srv, cleanup, nil
}

func openStore(cfg *config.Config, logger zerolog.Logger) (store.Store, error) {
	switch cfg.Storage.Type {
	case "postgres":
		return postgres.New(cfg.Storage.PostgresURL, logger)
	case "sqlite":
		return sqlite.New(cfg.Storage.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
