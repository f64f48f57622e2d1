package common

import (
	"context"

	"github.com/sonroyaalmerol/caldav-core/internal/authz"
	"github.com/sonroyaalmerol/caldav-core/internal/caldaverr"
	"github.com/sonroyaalmerol/caldav-core/internal/store"
)

// ResolveRole computes a principal's effective authz.Role on col,
// walking the collection's ancestor chain from the root down so a
// child's grant is evaluated against its parent's (never lower) role,
// per spec.md §4.6, and folding in authz.EvaluateOwner at the leaf.
func ResolveRole(ctx context.Context, st store.Store, principalID string, col *store.Collection) (authz.Role, error) {
	var chain []*store.Collection
	cur := col
	for cur != nil {
		chain = append([]*store.Collection{cur}, chain...)
		if cur.ParentID == "" {
			break
		}
		parent, err := st.GetCollection(ctx, cur.ParentID)
		if err != nil {
			if caldaverr.Is(err, caldaverr.KindNotFound) {
				break
			}
			return authz.RoleNone, err
		}
		cur = parent
	}

	role := authz.RoleNone
	for _, c := range chain {
		r, err := authz.Evaluate(ctx, st, st, principalID, c.ID, role)
		if err != nil {
			return authz.RoleNone, err
		}
		role = r
	}
	if ownerRole, ok := authz.EvaluateOwner(col.OwnerPrincipalID, principalID); ok {
		role = authz.Max(role, ownerRole)
	}
	return role, nil
}

// RequirePrivilege enforces that role grants the capability fn selects,
// returning a caldaverr.Forbidden naming priv for the DAV:need-privileges
// rendering if not.
func RequirePrivilege(role authz.Role, href, priv string, granted func(authz.Privileges) bool) error {
	if granted(authz.Project(role)) {
		return nil
	}
	return caldaverr.Forbidden(href, priv)
}
