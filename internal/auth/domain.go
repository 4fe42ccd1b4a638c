package auth

import (
	"time"

	"github.com/tutoria-app/tutoria/internal/rbac"
)

// User is the credential-bearing view of an account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Type         rbac.UserType
	IsActive     bool
	CreatedAt    time.Time
}
