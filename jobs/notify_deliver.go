package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/tutoria-app/tutoria/internal/notifications"
)

// NotifyDeliverJob hands queued notifications to the delivery path.
type NotifyDeliverJob struct {
	service *notifications.Service
	logger  *slog.Logger
}

// NewNotifyDeliverJob constructs the job.
func NewNotifyDeliverJob(service *notifications.Service, logger *slog.Logger) *NotifyDeliverJob {
	return &NotifyDeliverJob{service: service, logger: logger}
}

// Handle processes TaskNotifyDeliver tasks.
func (j *NotifyDeliverJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload NotifyDeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := j.service.Deliver(ctx, payload.NotificationID); err != nil {
		j.logger.Warn("deliver notification", slog.Int64("id", payload.NotificationID), slog.Any("error", err))
		return err
	}
	return nil
}
