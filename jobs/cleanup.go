package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutoria-app/tutoria/internal/notifications"
)

// CleanupJob removes expired sessions and prunes read notifications.
type CleanupJob struct {
	pool          *pgxpool.Pool
	notifications *notifications.Service
	logger        *slog.Logger
}

// NewCleanupJob constructs the job.
func NewCleanupJob(pool *pgxpool.Pool, svc *notifications.Service, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{pool: pool, notifications: svc, logger: logger}
}

// Handle processes TaskMaintenanceCleanup tasks.
func (j *CleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload CleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetentionHours <= 0 {
		payload.RetentionHours = 24 * 30
	}
	retention := time.Duration(payload.RetentionHours) * time.Hour

	tag, err := j.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		j.logger.Warn("prune sessions", slog.Any("error", err))
		return err
	}
	pruned, err := j.notifications.PruneRead(ctx, retention)
	if err != nil {
		j.logger.Warn("prune notifications", slog.Any("error", err))
		return err
	}
	j.logger.Info("cleanup done",
		slog.Int64("sessions_removed", tag.RowsAffected()),
		slog.Int64("notifications_removed", pruned))
	return nil
}
