package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutoria-app/tutoria/internal/shared"
)

// Repository provides the PostgreSQL backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindPrincipal loads account type and directly assigned role ids.
func (r *Repository) FindPrincipal(ctx context.Context, userID int64) (Principal, error) {
	var p Principal
	p.ID = userID
	err := r.pool.QueryRow(ctx, `SELECT type FROM users WHERE id = $1`, userID).Scan(&p.Type)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, fmt.Errorf("rbac: user %d: %w", userID, shared.ErrNotFound)
		}
		return Principal{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT role_id FROM user_roles WHERE user_id = $1 ORDER BY role_id`, userID)
	if err != nil {
		return Principal{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var roleID int64
		if err := rows.Scan(&roleID); err != nil {
			return Principal{}, err
		}
		p.RoleIDs = append(p.RoleIDs, roleID)
	}
	if err := rows.Err(); err != nil {
		return Principal{}, err
	}
	return p, nil
}

// RolePermissions returns the deduplicated permission keys across the
// given roles.
func (r *Repository) RolePermissions(ctx context.Context, roleIDs []int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT lower(perm) FROM roles, unnest(permissions) AS perm WHERE id = ANY($1)`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// ListRoleEdges returns the parent-pointer snapshot of every role.
func (r *Repository) ListRoleEdges(ctx context.Context) ([]RoleEdge, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, COALESCE(parent_id, 0) FROM roles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var edges []RoleEdge
	for rows.Next() {
		var e RoleEdge
		if err := rows.Scan(&e.ID, &e.ParentID); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// RoleExists reports whether the role id is present.
func (r *Repository) RoleExists(ctx context.Context, roleID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM roles WHERE id = $1)`, roleID).Scan(&exists)
	return exists, err
}

// AddRoleToUser adds the assignment, idempotent on repeats.
func (r *Repository) AddRoleToUser(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_roles (user_id, role_id, created_at) VALUES ($1, $2, NOW()) ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
	return err
}

// RemoveRoleFromUser removes the assignment, idempotent on repeats.
func (r *Repository) RemoveRoleFromUser(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	return err
}
