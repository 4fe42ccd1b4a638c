package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutoria-app/tutoria/internal/shared"
)

const notificationColumns = `id, code, user_id, kind, title, body, read, status, created_at, delivered_at`

// Repository provides PostgreSQL backed persistence for notifications.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending notification and returns the stored row.
func (r *Repository) Create(ctx context.Context, n Notification) (Notification, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO notifications (code, user_id, kind, title, body, read, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, FALSE, $6, NOW())
		 RETURNING `+notificationColumns,
		n.Code, n.UserID, string(n.Kind), n.Title, n.Body, string(StatusPending))
	return scanNotification(row)
}

// Get fetches one notification.
func (r *Repository) Get(ctx context.Context, id int64) (Notification, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Notification{}, fmt.Errorf("notification %d: %w", id, shared.ErrNotFound)
		}
		return Notification{}, err
	}
	return n, nil
}

// ListForUser returns the newest notifications addressed to userID.
func (r *Repository) ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

// UnreadCount counts unread notifications for userID.
func (r *Repository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID).Scan(&count)
	return count, err
}

// MarkRead flips the read flag on one notification owned by userID.
func (r *Repository) MarkRead(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// MarkAllRead flips the read flag on every notification of userID.
func (r *Repository) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	return err
}

// MarkDelivered stamps a notification as delivered out of band.
func (r *Repository) MarkDelivered(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET status = $2, delivered_at = NOW() WHERE id = $1`, id, string(StatusDelivered))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

// DeleteReadBefore prunes read notifications older than the cutoff.
func (r *Repository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM notifications WHERE read = TRUE AND created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.Code, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.Read, &n.Status, &n.CreatedAt, &n.DeliveredAt)
	return n, err
}
