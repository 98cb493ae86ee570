package rbac

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GrantStore loads role grants that extend the built-in defaults.
type GrantStore interface {
	PermissionsForRoles(ctx context.Context, roles []string) ([]string, error)
	ListGrants(ctx context.Context) ([]Grant, error)
	ReplaceRole(ctx context.Context, role string, permissions []string) error
}

// PGStore keeps grants in the role_permissions table.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// PermissionsForRoles returns the stored permissions of the given roles.
func (s *PGStore) PermissionsForRoles(ctx context.Context, roles []string) ([]string, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT permission FROM role_permissions WHERE role = ANY($1) ORDER BY permission`, roles)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// ListGrants returns every stored grant.
func (s *PGStore) ListGrants(ctx context.Context) ([]Grant, error) {
	rows, err := s.pool.Query(ctx, `SELECT role, permission FROM role_permissions ORDER BY role, permission`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Grant, error) {
		var g Grant
		err := row.Scan(&g.Role, &g.Permission)
		return g, err
	})
}

// ReplaceRole swaps the stored grants of a role atomically.
func (s *PGStore) ReplaceRole(ctx context.Context, role string, permissions []string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role = $1`, role); err != nil {
			return err
		}
		for _, perm := range permissions {
			if _, err := tx.Exec(ctx, `INSERT INTO role_permissions (role, permission) VALUES ($1, $2) ON CONFLICT DO NOTHING`, role, perm); err != nil {
				return err
			}
		}
		return nil
	})
}
