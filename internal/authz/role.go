// Package authz implements the ReBAC authorization layer: principal
// expansion, slug/id path resolution, glob-pattern policy matching, and
// role-to-privilege projection. Grounded on the teacher's internal/acl
// package (Effective struct, Provider interface, the "OR together every
// matching grant's booleans" combination pattern), generalized from
// LDAP-group-attribute-sourced boolean ACLs to an ordered Role enum over
// glob-pattern policies, since an ordered total order is required so a
// child resource's own grant can never reduce access inherited from its
// containing collection.
package authz

// Role is a point in the fixed total order freebusy < read < read-share <
// write < write-share < manage < owner. Declaration order is the order
// of privilege, so comparisons use plain integer comparison.
type Role int

const (
	RoleNone Role = iota
	RoleFreeBusy
	RoleRead
	RoleReadShare
	RoleWrite
	RoleWriteShare
	RoleManage
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleFreeBusy:
		return "freebusy"
	case RoleRead:
		return "read"
	case RoleReadShare:
		return "read-share"
	case RoleWrite:
		return "write"
	case RoleWriteShare:
		return "write-share"
	case RoleManage:
		return "manage"
	case RoleOwner:
		return "owner"
	default:
		return "none"
	}
}

// ParseRole converts a policy's stored role token back to a Role, used
// when loading policies from the store.
func ParseRole(s string) Role {
	switch s {
	case "freebusy":
		return RoleFreeBusy
	case "read":
		return RoleRead
	case "read-share":
		return RoleReadShare
	case "write":
		return RoleWrite
	case "write-share":
		return RoleWriteShare
	case "manage":
		return RoleManage
	case "owner":
		return RoleOwner
	default:
		return RoleNone
	}
}

// Max returns the greater of a and b, implementing the total order's
// "a per-item grant never reduces inherited access" rule when combined
// with a parent collection's own role.
func Max(a, b Role) Role {
	if a > b {
		return a
	}
	return b
}

// Privileges is the projection of a Role onto the RFC 3744 privilege
// set spec.md §4.6's fixed table defines, plus the set of roles this
// role is permitted to grant to others (its share ceiling).
type Privileges struct {
	Read           bool
	ReadFreeBusy   bool
	WriteContent   bool
	WriteProps     bool // limited: displayname/description only, never content
	ShareCeiling   []Role
	ReadACL        bool
	WriteACL       bool // always false; ACL mutation is out-of-band per spec.md §4.6
}

// Project returns the privilege set a Role confers, per spec.md §4.6's
// role -> privilege table.
func Project(r Role) Privileges {
	switch r {
	case RoleFreeBusy:
		return Privileges{ReadFreeBusy: true}
	case RoleRead:
		return Privileges{Read: true, ReadFreeBusy: true}
	case RoleReadShare:
		return Privileges{Read: true, ReadFreeBusy: true, ShareCeiling: []Role{RoleRead}}
	case RoleWrite:
		return Privileges{Read: true, ReadFreeBusy: true, WriteContent: true, WriteProps: true}
	case RoleWriteShare:
		return Privileges{
			Read: true, ReadFreeBusy: true, WriteContent: true, WriteProps: true,
			ShareCeiling: []Role{RoleRead, RoleWrite},
		}
	case RoleManage:
		return Privileges{
			Read: true, ReadFreeBusy: true, WriteContent: true, WriteProps: true, ReadACL: true,
			ShareCeiling: []Role{RoleRead, RoleReadShare, RoleWrite, RoleWriteShare},
		}
	case RoleOwner:
		return Privileges{
			Read: true, ReadFreeBusy: true, WriteContent: true, WriteProps: true, ReadACL: true,
			ShareCeiling: []Role{RoleFreeBusy, RoleRead, RoleReadShare, RoleWrite, RoleWriteShare, RoleManage, RoleOwner},
		}
	default:
		return Privileges{}
	}
}

// CanGrant reports whether a role r is permitted to create a policy
// granting target — r's own privilege set never exceeds its share
// ceiling, so it can never hand out more access than it holds.
func (p Privileges) CanGrant(target Role) bool {
	for _, ceil := range p.ShareCeiling {
		if ceil == target {
			return true
		}
	}
	return false
}
