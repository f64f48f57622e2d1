package authz

import (
	"context"
	"testing"
)

type fakeGroups map[string][]string

func (f fakeGroups) DirectGroups(_ context.Context, principalID string) ([]string, error) {
	return f[principalID], nil
}

func TestEffectivePrincipalsTransitive(t *testing.T) {
	groups := fakeGroups{
		"alice":    {"team-eng"},
		"team-eng": {"all-staff"},
	}
	out, err := EffectivePrincipals(context.Background(), groups, "alice")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"alice": true, "team-eng": true, "all-staff": true, PublicPrincipalID: true}
	if len(out) != len(want) {
		t.Fatalf("got %v", out)
	}
	for _, id := range out {
		if !want[id] {
			t.Errorf("unexpected principal %q", id)
		}
	}
}

func TestEffectivePrincipalsCycleSafe(t *testing.T) {
	groups := fakeGroups{
		"alice": {"team-eng"},
		"team-eng": {"alice"},
	}
	out, err := EffectivePrincipals(context.Background(), groups, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("expected cycle to terminate with 3 principals, got %v", out)
	}
}

func TestMatchGlobDoubleStar(t *testing.T) {
	cases := []struct {
		pattern, path string
		want          bool
	}{
		{"/cal/alice/work/**", "/cal/alice/work/e1", true},
		{"/cal/alice/work/**", "/cal/alice/work/sub/e1", true},
		{"/cal/alice/work/**", "/cal/alice/work", false},
		{"/cal/alice/*", "/cal/alice/work", true},
		{"/cal/alice/*", "/cal/alice/work/e1", false},
		{"/cal/alice/work", "/cal/alice/work", true},
	}
	for _, c := range cases {
		got := MatchGlob(c.pattern, c.path)
		if got != c.want {
			t.Errorf("MatchGlob(%q, %q) = %v, want %v", c.pattern, c.path, got, c.want)
		}
	}
}

type fakePolicies []Policy

func (f fakePolicies) PoliciesFor(_ context.Context, principalIDs []string) ([]Policy, error) {
	byID := make(map[string]bool, len(principalIDs))
	for _, id := range principalIDs {
		byID[id] = true
	}
	var out []Policy
	for _, p := range f {
		if byID[p.Subject] {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestEvaluateHighestRoleWins(t *testing.T) {
	groups := fakeGroups{"bob": {"team-eng"}}
	policies := fakePolicies{
		{Subject: "team-eng", Glob: "/cal/alice/work/**", Role: RoleRead},
		{Subject: "bob", Glob: "/cal/alice/work/e1", Role: RoleWrite},
	}
	role, err := Evaluate(context.Background(), groups, policies, "bob", "/cal/alice/work/e1", RoleNone)
	if err != nil {
		t.Fatal(err)
	}
	if role != RoleWrite {
		t.Errorf("expected write (higher of read/write), got %v", role)
	}
}

func TestEvaluateParentRoleNeverReduced(t *testing.T) {
	groups := fakeGroups{}
	policies := fakePolicies{
		{Subject: "carol", Glob: "/cal/alice/work/e1", Role: RoleFreeBusy},
	}
	role, err := Evaluate(context.Background(), groups, policies, "carol", "/cal/alice/work/e1", RoleWrite)
	if err != nil {
		t.Fatal(err)
	}
	if role != RoleWrite {
		t.Errorf("expected inherited write role preserved, got %v", role)
	}
}

func TestEvaluateOwnerUnconditional(t *testing.T) {
	role, ok := EvaluateOwner("alice", "alice")
	if !ok || role != RoleOwner {
		t.Errorf("expected owner role, got %v ok=%v", role, ok)
	}
	if _, ok := EvaluateOwner("alice", "bob"); ok {
		t.Error("expected no owner grant for non-owner")
	}
}

func TestProjectShareCeiling(t *testing.T) {
	p := Project(RoleManage)
	if !p.CanGrant(RoleWriteShare) {
		t.Error("manage should be able to grant write-share")
	}
	if p.CanGrant(RoleManage) {
		t.Error("manage should not be able to grant manage to others")
	}
	if !p.Read || !p.WriteContent || !p.ReadACL {
		t.Errorf("unexpected manage privileges: %+v", p)
	}
}

func TestProjectFreeBusyOnly(t *testing.T) {
	p := Project(RoleFreeBusy)
	if p.Read || p.WriteContent {
		t.Error("freebusy role must not grant read or write")
	}
	if !p.ReadFreeBusy {
		t.Error("freebusy role must grant read-free-busy")
	}
}

func TestRoleOrderTotal(t *testing.T) {
	order := []Role{RoleNone, RoleFreeBusy, RoleRead, RoleReadShare, RoleWrite, RoleWriteShare, RoleManage, RoleOwner}
	for i := 1; i < len(order); i++ {
		if order[i] <= order[i-1] {
			t.Errorf("role order violated between %v and %v", order[i-1], order[i])
		}
	}
}

func TestRenderCurrentUserPrivilegeSet(t *testing.T) {
	set := RenderCurrentUserPrivilegeSet(RoleWrite)
	if len(set.Privilege) == 0 {
		t.Error("expected privileges rendered for write role")
	}
}

func TestRenderNeedPrivileges(t *testing.T) {
	derr := RenderNeedPrivileges("/cal/alice/work/e1.ics", "read")
	if derr.NeedPrivileges == nil || len(derr.NeedPrivileges.Resources) != 1 {
		t.Fatal("expected one need-privileges resource")
	}
	if derr.NeedPrivileges.Resources[0].Href != "/cal/alice/work/e1.ics" {
		t.Errorf("expected slug href preserved, got %q", derr.NeedPrivileges.Resources[0].Href)
	}
}

func TestRenderACLMarksProtected(t *testing.T) {
	policies := []Policy{{Subject: "bob", Glob: "/cal/alice/work/**", Role: RoleRead}}
	acl := RenderACL(policies, func(subject string) string { return "/principals/users/" + subject + "/" })
	if len(acl.ACE) != 1 {
		t.Fatal("expected one ACE")
	}
	if acl.ACE[0].Protected == nil {
		t.Error("expected ACE marked protected")
	}
	if acl.ACE[0].Principal.Value != "/principals/users/bob/" {
		t.Errorf("got %q", acl.ACE[0].Principal.Value)
	}
}
