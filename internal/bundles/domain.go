package bundles

import "time"

// Status tracks the lifecycle of a tutoring bundle.
type Status string

const (
	StatusActive    Status = "active"
	StatusExhausted Status = "exhausted"
	StatusArchived  Status = "archived"
)

// Bundle is a block of tutoring hours sold to a client.
type Bundle struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Title      string    `json:"title"`
	ClientName string    `json:"client_name"`
	Hours      int       `json:"hours"`
	HoursUsed  int       `json:"hours_used"`
	PriceCents int64     `json:"price_cents"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Remaining returns the hours still available on the bundle.
func (b Bundle) Remaining() int {
	if b.HoursUsed >= b.Hours {
		return 0
	}
	return b.Hours - b.HoursUsed
}
