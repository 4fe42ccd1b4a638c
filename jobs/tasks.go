package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNotifyDeliver delivers one notification out of band.
	TaskNotifyDeliver = "notify:deliver"
	// TaskMaintenanceCleanup prunes expired sessions and read notifications.
	TaskMaintenanceCleanup = "maintenance:cleanup"
)

// NotifyDeliverPayload identifies the notification to deliver.
type NotifyDeliverPayload struct {
	NotificationID int64 `json:"notification_id"`
}

// NewNotifyDeliverTask constructs an Asynq task.
func NewNotifyDeliverTask(payload NotifyDeliverPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifyDeliver, data), nil
}

// CleanupPayload bounds the retention window in hours.
type CleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewCleanupTask constructs an Asynq task.
func NewCleanupTask(payload CleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMaintenanceCleanup, data), nil
}
