package bundles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutoria-app/tutoria/internal/shared"
)

const bundleColumns = `id, code, title, client_name, hours, hours_used, price_cents, status, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for bundles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns one page of bundles plus the unfiltered total. Search
// matches title and client name, case-insensitively.
func (r *Repository) List(ctx context.Context, search string, status Status, limit, offset int) ([]Bundle, int, error) {
	where := `WHERE ($1 = '' OR title ILIKE '%' || $1 || '%' OR client_name ILIKE '%' || $1 || '%')
		AND ($2 = '' OR status = $2)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bundles `+where, search, string(status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bundles: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+bundleColumns+` FROM bundles `+where+` ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`,
		search, string(status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list bundles: %w", err)
	}
	defer rows.Close()

	var result []Bundle
	for rows.Next() {
		b, err := scanBundle(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, b)
	}
	return result, total, rows.Err()
}

// Get fetches a single bundle by id.
func (r *Repository) Get(ctx context.Context, id int64) (Bundle, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bundleColumns+` FROM bundles WHERE id = $1`, id)
	b, err := scanBundle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bundle{}, fmt.Errorf("bundle %d: %w", id, shared.ErrNotFound)
		}
		return Bundle{}, err
	}
	return b, nil
}

// Create inserts a bundle and returns the stored row.
func (r *Repository) Create(ctx context.Context, b Bundle) (Bundle, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO bundles (code, title, client_name, hours, hours_used, price_cents, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 0, $5, $6, NOW(), NOW())
		 RETURNING `+bundleColumns,
		b.Code, b.Title, b.ClientName, b.Hours, b.PriceCents, string(b.Status))
	created, err := scanBundle(row)
	if err != nil {
		return Bundle{}, mapBundleWriteError(err)
	}
	return created, nil
}

// Update rewrites the mutable bundle fields.
func (r *Repository) Update(ctx context.Context, b Bundle) (Bundle, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE bundles SET title = $2, client_name = $3, hours = $4, price_cents = $5, status = $6, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+bundleColumns,
		b.ID, b.Title, b.ClientName, b.Hours, b.PriceCents, string(b.Status))
	updated, err := scanBundle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bundle{}, fmt.Errorf("bundle %d: %w", b.ID, shared.ErrNotFound)
		}
		return Bundle{}, mapBundleWriteError(err)
	}
	return updated, nil
}

// ConsumeHours atomically adds used hours, flipping the status to
// exhausted when the allowance runs out. The guard in the WHERE clause
// rejects overdrawing under concurrent consumption.
func (r *Repository) ConsumeHours(ctx context.Context, id int64, hours int) (Bundle, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE bundles
		 SET hours_used = hours_used + $2,
		     status = CASE WHEN hours_used + $2 >= hours THEN 'exhausted' ELSE status END,
		     updated_at = NOW()
		 WHERE id = $1 AND status = 'active' AND hours_used + $2 <= hours
		 RETURNING `+bundleColumns,
		id, hours)
	b, err := scanBundle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bundle{}, fmt.Errorf("bundle %d has insufficient hours: %w", id, shared.ErrConflict)
		}
		return Bundle{}, err
	}
	return b, nil
}

// Delete removes a bundle.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bundles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bundle %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func scanBundle(row pgx.Row) (Bundle, error) {
	var b Bundle
	err := row.Scan(&b.ID, &b.Code, &b.Title, &b.ClientName, &b.Hours, &b.HoursUsed, &b.PriceCents, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func mapBundleWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("bundle code already exists: %w", shared.ErrConflict)
	}
	return err
}
