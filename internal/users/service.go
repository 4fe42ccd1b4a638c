package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tutoria-app/tutoria/internal/rbac"
	"github.com/tutoria-app/tutoria/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, user User, passwordHash string) (User, error)
}

// CreateInput carries the writable fields for a new account.
type CreateInput struct {
	Email    string
	Name     string
	Password string
	Type     rbac.UserType
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new account. New accounts start with no roles;
// assignments go through the delegation guard afterwards.
func (s *Service) Create(ctx context.Context, input CreateInput) (User, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		return User{}, fmt.Errorf("users: email required: %w", shared.ErrValidation)
	}
	if len(input.Password) < 8 {
		return User{}, fmt.Errorf("users: password must be at least 8 characters: %w", shared.ErrValidation)
	}
	userType := input.Type
	if userType == "" {
		userType = rbac.UserTypeStandard
	}
	if userType != rbac.UserTypeStandard && userType != rbac.UserTypeAdministrator {
		return User{}, fmt.Errorf("users: unknown account type %q: %w", userType, shared.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	return s.repo.Create(ctx, User{
		Email:    email,
		Name:     strings.TrimSpace(input.Name),
		Type:     userType,
		IsActive: true,
	}, string(hash))
}
