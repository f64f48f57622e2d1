package authz

import "context"

// Policy is a single ACL grant: (principal subject, resource glob
// pattern, role). Policies are read-only from the DAV surface per
// spec.md §3 — mutation is an out-of-band concern this package does not
// provide.
type Policy struct {
	Subject string // principal id, or PublicPrincipalID
	Glob    string
	Role    Role
}

// PolicyProvider supplies the policies to evaluate, generalizing the
// teacher's acl.Provider interface (which fetched LDAP-group-attribute
// ACLs scoped to one calendar) to glob-scoped policies spanning any
// resource subtree.
type PolicyProvider interface {
	PoliciesFor(ctx context.Context, principalIDs []string) ([]Policy, error)
}

// Evaluate computes the effective Role an authenticated principal holds
// on idPath, generalizing the teacher's Effective-struct OR-combination
// (acl.go's Effective/VisibleCalendars) from boolean-flag-OR to
// highest-role-wins: for every principal in the caller's effective set,
// find policies whose glob matches idPath, and take the maximum Role
// across all matches. parentRole is the resolved role on idPath's
// containing collection (RoleNone at the root); the final result is
// never lower than it, since a per-item grant must never reduce
// inherited access.
func Evaluate(ctx context.Context, resolver GroupResolver, policies PolicyProvider, principalID, idPath string, parentRole Role) (Role, error) {
	effective, err := EffectivePrincipals(ctx, resolver, principalID)
	if err != nil {
		return RoleNone, err
	}
	grants, err := policies.PoliciesFor(ctx, effective)
	if err != nil {
		return RoleNone, err
	}
	role := parentRole
	for _, g := range grants {
		if MatchGlob(g.Glob, idPath) {
			role = Max(role, g.Role)
		}
	}
	return role, nil
}

// EvaluateOwner grants RoleOwner unconditionally to a resource's owning
// principal, per spec.md §4.6's "owner" role always applying regardless
// of any explicit policy — owners are not required to hold a matching
// grant over their own resources.
func EvaluateOwner(ownerID, principalID string) (Role, bool) {
	if ownerID != "" && ownerID == principalID {
		return RoleOwner, true
	}
	return RoleNone, false
}
