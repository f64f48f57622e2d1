package authz

import "context"

// PrincipalKind mirrors spec.md §3's principal role taxonomy.
type PrincipalKind int

const (
	PrincipalUser PrincipalKind = iota
	PrincipalGroup
	PrincipalPublic
	PrincipalResource
)

// PublicPrincipalID is the pseudo-principal every effective set
// implicitly includes, matching policies written against "anyone".
const PublicPrincipalID = "public"

// Principal is an authenticated identity handle as seen by the core —
// authentication itself happens upstream, so this is purely the
// resolved shape the core is handed.
type Principal struct {
	ID          string
	Kind        PrincipalKind
	DisplayName string
}

// GroupResolver resolves a principal's direct group memberships. It is
// the generalization of the teacher's directory.Directory interface: the
// teacher's UserGroupsACL walked LDAP group attributes, but
// authentication/directory sync is out of scope here, so the default
// implementation (internal/store) resolves group edges from the
// object store's own principal_groups table instead of LDAP.
type GroupResolver interface {
	DirectGroups(ctx context.Context, principalID string) ([]string, error)
}

// EffectivePrincipals computes {self} ∪ transitive groups ∪ {public},
// per spec.md §4.6, walking the group graph breadth-first and guarding
// against cycles (group membership graphs are not guaranteed acyclic by
// the store's write path, only by policy).
func EffectivePrincipals(ctx context.Context, resolver GroupResolver, principalID string) ([]string, error) {
	seen := map[string]bool{principalID: true, PublicPrincipalID: true}
	queue := []string{principalID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		groups, err := resolver.DirectGroups(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			if !seen[g] {
				seen[g] = true
				queue = append(queue, g)
			}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out, nil
}
