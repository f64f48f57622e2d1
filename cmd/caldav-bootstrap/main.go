// Command caldav-bootstrap provisions a calendar or addressbook for a
// principal outside the HTTP surface (e.g. from a deployment script,
// before the owner's client ever issues a MKCALENDAR). Grounded on the
// teacher's cmd/ldap-dav-bootstrap, adapted from its Calendar-struct/
// backend-type-assertion approach to internal/store.Store's generic
// CreateCollection.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/caldav-core/internal/caldaverr"
	"github.com/sonroyaalmerol/caldav-core/internal/config"
	"github.com/sonroyaalmerol/caldav-core/internal/logging"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
	"github.com/sonroyaalmerol/caldav-core/internal/store/postgres"
	"github.com/sonroyaalmerol/caldav-core/internal/store/sqlite"
)

func main() {
	var (
		owner       string
		slug        string
		kind        string
		displayName string
		desc        string
	)
	flag.StringVar(&owner, "owner", "", "owner principal ID (required)")
	flag.StringVar(&slug, "slug", "", "collection slug, unique under the owner's home (required)")
	flag.StringVar(&kind, "kind", "calendar", "collection kind: calendar | addressbook")
	flag.StringVar(&displayName, "display", "", "display name (optional; defaults to slug)")
	flag.StringVar(&desc, "desc", "", "description (optional)")
	flag.Parse()

	if owner == "" || slug == "" {
		fmt.Fprintln(os.Stderr, "usage: caldav-bootstrap -owner <principal-id> -slug <uri> [-kind calendar|addressbook] [-display <name>] [-desc <description>]")
		os.Exit(2)
	}
	if displayName == "" {
		displayName = slug
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel).With().Str("component", "bootstrap").Logger()

	st, err := openStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage init: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	home, err := ensurePrincipalHome(ctx, st, owner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "principal home: %v\n", err)
		os.Exit(1)
	}

	col := store.Collection{
		OwnerPrincipalID: owner,
		ParentID:         home.ID,
		Slug:             slug,
		DisplayName:      displayName,
		Description:      desc,
	}
	switch kind {
	case "calendar":
		col.Kind = store.KindCalendar
		col.SupportedComponents = []string{"VEVENT"}
	case "addressbook":
		col.Kind = store.KindAddressbook
	default:
		fmt.Fprintf(os.Stderr, "unknown kind: %s\n", kind)
		os.Exit(2)
	}

	created, err := st.CreateCollection(ctx, col)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create collection: %v\n", err)
		os.Exit(1)
	}

	logger.Info().Str("owner", owner).Str("slug", slug).Str("kind", kind).Msg("collection created")
	fmt.Printf("created %s owner=%s slug=%s id=%s\n", kind, owner, slug, created.ID)
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

// ensurePrincipalHome finds owner's top-level home collection, creating
// one if absent. Home collections are plain, unowned-by-ACL containers;
// every calendar/addressbook bootstrap creates under them.
func ensurePrincipalHome(ctx context.Context, st store.Store, owner string) (*store.Collection, error) {
	home, err := st.GetCollectionBySlugPath(ctx, []string{owner})
	if err == nil {
		return home, nil
	}
	if !caldaverr.Is(err, caldaverr.KindNotFound) {
		return nil, err
	}
	return st.CreateCollection(ctx, store.Collection{
		OwnerPrincipalID: owner,
		Kind:             store.KindPrincipalHome,
		Slug:             owner,
		DisplayName:      owner,
	})
}
