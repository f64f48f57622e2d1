package postgres

import (
	"context"
	"fmt"

	"github.com/sonroyaalmerol/caldav-core/internal/authz"
)

// GetACL returns every policy whose glob matches idPath, for rendering
// the DAV:acl property on that resource.
func (s *Store) GetACL(ctx context.Context, idPath string) ([]authz.Policy, error) {
	rows, err := s.pool.Query(ctx, `SELECT subject, glob, role FROM acl_policies`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load acl policies: %w", err)
	}
	defer rows.Close()

	var out []authz.Policy
	for rows.Next() {
		var p authz.Policy
		var role string
		if err := rows.Scan(&p.Subject, &p.Glob, &role); err != nil {
			return nil, fmt.Errorf("postgres: scan acl policy: %w", err)
		}
		p.Role = authz.ParseRole(role)
		if authz.MatchGlob(p.Glob, idPath) {
			out = append(out, p)
		}
	}
	return out, rows.Err()
}

// DirectGroups implements authz.GroupResolver from the principal_groups
// table.
func (s *Store) DirectGroups(ctx context.Context, principalID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT group_id FROM principal_groups WHERE principal_id = $1`, principalID)
	if err != nil {
		return nil, fmt.Errorf("postgres: load direct groups: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("postgres: scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// PoliciesFor implements authz.PolicyProvider: every policy whose
// subject is one of principalIDs (the caller's effective principal set).
func (s *Store) PoliciesFor(ctx context.Context, principalIDs []string) ([]authz.Policy, error) {
	if len(principalIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT subject, glob, role FROM acl_policies WHERE subject = ANY($1)`, principalIDs)
	if err != nil {
		return nil, fmt.Errorf("postgres: load policies for principals: %w", err)
	}
	defer rows.Close()

	var out []authz.Policy
	for rows.Next() {
		var p authz.Policy
		var role string
		if err := rows.Scan(&p.Subject, &p.Glob, &role); err != nil {
			return nil, fmt.Errorf("postgres: scan policy: %w", err)
		}
		p.Role = authz.ParseRole(role)
		out = append(out, p)
	}
	return out, rows.Err()
}
