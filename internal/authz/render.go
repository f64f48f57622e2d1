package authz

import "github.com/sonroyaalmerol/caldav-core/pkg/davxml"

// PrivilegeTokens returns the plain privilege name tokens davxml.RenderPrivilege
// accepts for a Privileges projection, used to build both
// current-user-privilege-set and need-privileges bodies from one source
// of truth.
func PrivilegeTokens(p Privileges) []string {
	var out []string
	if p.Read {
		out = append(out, "read")
	}
	if p.ReadFreeBusy {
		out = append(out, "read-free-busy")
	}
	if p.WriteContent {
		out = append(out, "write-content")
	}
	if p.WriteProps {
		out = append(out, "write-properties")
	}
	if p.ReadACL {
		out = append(out, "read-acl")
	}
	if len(out) == 0 {
		return out
	}
	return out
}

// RenderCurrentUserPrivilegeSet builds the DAV:current-user-privilege-set
// property body for the resolved role r.
func RenderCurrentUserPrivilegeSet(r Role) davxml.PrivilegeSet {
	tokens := PrivilegeTokens(Project(r))
	privs := make([]davxml.Privilege, 0, len(tokens))
	for _, t := range tokens {
		privs = append(privs, davxml.RenderPrivilege(t))
	}
	return davxml.PrivilegeSet{Privilege: privs}
}

// RenderNeedPrivileges builds the DAV:error/need-privileges body for a
// 403 denial, naming the client-visible slug href (never the internal id
// path) and the single privilege that would have authorized the request,
// per spec.md §4.6.
func RenderNeedPrivileges(slugHref, missingPrivilege string) *davxml.DAVError {
	return &davxml.DAVError{
		NeedPrivileges: &davxml.NeedPrivileges{
			Resources: []davxml.NeedPrivilegeResource{{
				Href:      slugHref,
				Privilege: davxml.RenderPrivilege(missingPrivilege),
			}},
		},
	}
}

// RenderACL projects policies back to DAV:acl ACEs, marking every entry
// DAV:protected (ACL mutation is out-of-band per spec.md §4.6) and
// rendering the principal as a plain href. Inherited-from-parent
// policies are not distinguished, since Policy carries no provenance
// flag: no ACE is rendered with DAV:inherited.
func RenderACL(policies []Policy, principalHref func(subject string) string) davxml.AclProp {
	aces := make([]davxml.Ace, 0, len(policies))
	for _, p := range policies {
		tokens := PrivilegeTokens(Project(p.Role))
		privs := make([]davxml.Privilege, 0, len(tokens))
		for _, t := range tokens {
			privs = append(privs, davxml.RenderPrivilege(t))
		}
		aces = append(aces, davxml.Ace{
			Principal: davxml.Href{Value: principalHref(p.Subject)},
			Grant:     davxml.Grant{Privs: privs},
			Protected: &struct{}{},
		})
	}
	return davxml.AclProp{ACE: aces}
}
