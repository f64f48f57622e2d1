package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/sonroyaalmerol/caldav-core/internal/authz"
)

// GetACL returns every policy whose glob matches idPath, for rendering
// the DAV:acl property on that resource.
func (s *Store) GetACL(ctx context.Context, idPath string) ([]authz.Policy, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT subject, glob, role FROM acl_policies`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load acl policies: %w", err)
	}
	defer rows.Close()

	var out []authz.Policy
	for rows.Next() {
		var p authz.Policy
		var role string
		if err := rows.Scan(&p.Subject, &p.Glob, &role); err != nil {
			return nil, fmt.Errorf("sqlite: scan acl policy: %w", err)
		}
		p.Role = authz.ParseRole(role)
		if authz.MatchGlob(p.Glob, idPath) {
			out = append(out, p)
		}
	}
	return out, nil
}

// DirectGroups implements authz.GroupResolver from the principal_groups
// table.
func (s *Store) DirectGroups(ctx context.Context, principalID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT group_id FROM principal_groups WHERE principal_id = ?`, principalID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load direct groups: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("sqlite: scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, nil
}

// PoliciesFor implements authz.PolicyProvider: every policy whose
// subject is one of principalIDs (the caller's effective principal set).
func (s *Store) PoliciesFor(ctx context.Context, principalIDs []string) ([]authz.Policy, error) {
	if len(principalIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(principalIDs)), ",")
	args := make([]any, len(principalIDs))
	for i, id := range principalIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `SELECT subject, glob, role FROM acl_policies WHERE subject IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load policies for principals: %w", err)
	}
	defer rows.Close()

	var out []authz.Policy
	for rows.Next() {
		var p authz.Policy
		var role string
		if err := rows.Scan(&p.Subject, &p.Glob, &role); err != nil {
			return nil, fmt.Errorf("sqlite: scan policy: %w", err)
		}
		p.Role = authz.ParseRole(role)
		out = append(out, p)
	}
	return out, nil
}
