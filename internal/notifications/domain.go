package notifications

import "time"

// Kind classifies a notification.
type Kind string

const (
	KindRoleGranted  Kind = "role_granted"
	KindPayslipReady Kind = "payslip_ready"
	KindMessage      Kind = "message"
)

// Status tracks out-of-band delivery, not in-app visibility.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
)

// Notification is an in-app message addressed to one user.
type Notification struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	UserID      int64      `json:"user_id"`
	Kind        Kind       `json:"kind"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Read        bool       `json:"read"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}
