package users

import (
	"time"

	"github.com/tutoria-app/tutoria/internal/rbac"
)

// User represents a user account for management. RoleIDs are the
// directly assigned roles; permissions are never stored on the user.
type User struct {
	ID        int64         `json:"id"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Type      rbac.UserType `json:"type"`
	IsActive  bool          `json:"is_active"`
	RoleIDs   []int64       `json:"role_ids"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
