package authz

import (
	"context"
	"fmt"
	"strings"
)

// PathResolver maps a client-visible slug path to the stable internal
// id path used for policy matching, and back for rendering hrefs. The
// default implementation (internal/store) resolves segments through
// the collection/entity tables; this interface lets internal/authz and
// internal/dav depend on the operation without depending on storage.
type PathResolver interface {
	SlugToID(ctx context.Context, slugSegments []string) (idPath string, ok bool, err error)
	IDToSlug(ctx context.Context, idPath string) (slugPath string, err error)
}

// ErrNoSuchResource is returned by SlugToID when a path segment does
// not resolve, which callers render as a 404 per spec.md §4.6.
var ErrNoSuchResource = fmt.Errorf("authz: no such resource")

// JoinIDPath builds the canonical "/cal/<principal-id>/<collection-id>"
// shape (or its addressbook/object-suffixed variants) from components.
func JoinIDPath(parts ...string) string {
	return "/" + strings.Join(parts, "/")
}

// SplitIDPath is the inverse of JoinIDPath.
func SplitIDPath(idPath string) []string {
	idPath = strings.Trim(idPath, "/")
	if idPath == "" {
		return nil
	}
	return strings.Split(idPath, "/")
}
