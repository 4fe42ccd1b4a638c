package users

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tutoria-app/tutoria/internal/rbac"
	"github.com/tutoria-app/tutoria/internal/shared"
)

type memoryRepo struct {
	users  map[int64]User
	hashes map[int64]string
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]User), hashes: make(map[int64]string)}
}

func (r *memoryRepo) List(ctx context.Context) ([]User, error) {
	var out []User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, fmt.Errorf("users: user %d: %w", id, shared.ErrNotFound)
	}
	return u, nil
}

func (r *memoryRepo) Create(ctx context.Context, user User, passwordHash string) (User, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return User{}, fmt.Errorf("users: email already registered: %w", shared.ErrConflict)
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.RoleIDs = []int64{}
	r.users[user.ID] = user
	r.hashes[user.ID] = passwordHash
	return user, nil
}

func TestCreateUser(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateInput{Email: " Jo@Example.COM ", Name: "Jo", Password: "correcthorse"})
	require.NoError(t, err)
	require.Equal(t, "jo@example.com", user.Email)
	require.Equal(t, rbac.UserTypeStandard, user.Type)
	require.True(t, user.IsActive)
	require.Empty(t, user.RoleIDs)

	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[user.ID]), []byte("correcthorse")))
}

func TestCreateUserValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Email: "", Password: "correcthorse"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateInput{Email: "jo@example.com", Password: "short"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, CreateInput{Email: "jo@example.com", Password: "correcthorse", Type: "owner"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Email: "jo@example.com", Name: "Jo", Password: "correcthorse"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Email: "jo@example.com", Name: "Jo2", Password: "correcthorse"})
	require.ErrorIs(t, err, shared.ErrConflict)
}
