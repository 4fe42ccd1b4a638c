package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutoria-app/tutoria/internal/platform/db"
	"github.com/tutoria-app/tutoria/internal/rbac"
	"github.com/tutoria-app/tutoria/internal/shared"
)

const roleColumns = `id, name, color, COALESCE(parent_id, 0), permissions, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// txRepo serves reads and writes inside one RepeatableRead transaction
// so the cycle predicate and the parent write see a single snapshot.
type txRepo struct {
	tx pgx.Tx
}

// WithTx runs fn against a transactional repository view.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// List returns all roles.
func (r *Repository) List(ctx context.Context) ([]Role, error) {
	return listRoles(ctx, r.pool)
}

// Get fetches a role by id.
func (r *Repository) Get(ctx context.Context, id int64) (Role, error) {
	return getRole(ctx, r.pool, id)
}

// Create inserts a new role. Duplicate names map to ErrConflict.
func (r *Repository) Create(ctx context.Context, role Role) (Role, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, color, parent_id, permissions, created_at, updated_at)
		 VALUES ($1, $2, NULLIF($3, 0), $4, NOW(), NOW())
		 RETURNING `+roleColumns,
		role.Name, role.Color, role.ParentID, role.Permissions)
	created, err := scanRole(row)
	if err != nil {
		return Role{}, mapRoleWriteError(err)
	}
	return created, nil
}

// Delete removes a role by id.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("roles: role %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// RoleName resolves just the display name of a role.
func (r *Repository) RoleName(ctx context.Context, id int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM roles WHERE id = $1`, id).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("roles: role %d: %w", id, shared.ErrNotFound)
		}
		return "", err
	}
	return name, nil
}

// HasChildren reports whether any role points at id as its parent.
func (r *Repository) HasChildren(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM roles WHERE parent_id = $1)`, id).Scan(&exists)
	return exists, err
}

// AssignedToUsers reports whether any user holds the role.
func (r *Repository) AssignedToUsers(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM user_roles WHERE role_id = $1)`, id).Scan(&exists)
	return exists, err
}

// Get fetches a role inside the transaction.
func (t *txRepo) Get(ctx context.Context, id int64) (Role, error) {
	return getRole(ctx, t.tx, id)
}

// ListEdges returns the parent-pointer snapshot inside the transaction.
func (t *txRepo) ListEdges(ctx context.Context) ([]rbac.RoleEdge, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, COALESCE(parent_id, 0) FROM roles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var edges []rbac.RoleEdge
	for rows.Next() {
		var e rbac.RoleEdge
		if err := rows.Scan(&e.ID, &e.ParentID); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// SetParent rewrites the parent pointer. parentID zero clears it.
func (t *txRepo) SetParent(ctx context.Context, roleID, parentID int64) (Role, error) {
	row := t.tx.QueryRow(ctx,
		`UPDATE roles SET parent_id = NULLIF($2, 0), updated_at = NOW() WHERE id = $1 RETURNING `+roleColumns,
		roleID, parentID)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("roles: role %d: %w", roleID, shared.ErrNotFound)
		}
		return Role{}, err
	}
	return role, nil
}

// Update replaces name/color/permissions/parent outright.
func (t *txRepo) Update(ctx context.Context, role Role) (Role, error) {
	row := t.tx.QueryRow(ctx,
		`UPDATE roles SET name = $2, color = $3, parent_id = NULLIF($4, 0), permissions = $5, updated_at = NOW()
		 WHERE id = $1 RETURNING `+roleColumns,
		role.ID, role.Name, role.Color, role.ParentID, role.Permissions)
	updated, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("roles: role %d: %w", role.ID, shared.ErrNotFound)
		}
		return Role{}, mapRoleWriteError(err)
	}
	return updated, nil
}

func listRoles(ctx context.Context, q querier) ([]Role, error) {
	rows, err := q.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func getRole(ctx context.Context, q querier, id int64) (Role, error) {
	row := q.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("roles: role %d: %w", id, shared.ErrNotFound)
		}
		return Role{}, err
	}
	return role, nil
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.Color, &role.ParentID, &role.Permissions, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, err
	}
	return role, nil
}

func mapRoleWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("roles: name already exists: %w", shared.ErrConflict)
	}
	return err
}
