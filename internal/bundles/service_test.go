package bundles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tutoria-app/tutoria/internal/shared"
	_ "github.com/tutoria-app/tutoria/testing"
)

type memoryRepo struct {
	nextID  int64
	bundles map[int64]Bundle
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, bundles: make(map[int64]Bundle)}
}

func (m *memoryRepo) List(ctx context.Context, search string, status Status, limit, offset int) ([]Bundle, int, error) {
	var all []Bundle
	for _, b := range m.bundles {
		if search != "" && !strings.Contains(strings.ToLower(b.Title), strings.ToLower(search)) {
			continue
		}
		if status != "" && b.Status != status {
			continue
		}
		all = append(all, b)
	}
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Bundle, error) {
	b, ok := m.bundles[id]
	if !ok {
		return Bundle{}, fmt.Errorf("bundle %d: %w", id, shared.ErrNotFound)
	}
	return b, nil
}

func (m *memoryRepo) Create(ctx context.Context, b Bundle) (Bundle, error) {
	b.ID = m.nextID
	m.nextID++
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	m.bundles[b.ID] = b
	return b, nil
}

func (m *memoryRepo) Update(ctx context.Context, b Bundle) (Bundle, error) {
	if _, ok := m.bundles[b.ID]; !ok {
		return Bundle{}, fmt.Errorf("bundle %d: %w", b.ID, shared.ErrNotFound)
	}
	b.UpdatedAt = time.Now()
	m.bundles[b.ID] = b
	return b, nil
}

func (m *memoryRepo) ConsumeHours(ctx context.Context, id int64, hours int) (Bundle, error) {
	b, ok := m.bundles[id]
	if !ok || b.Status != StatusActive || b.HoursUsed+hours > b.Hours {
		return Bundle{}, fmt.Errorf("bundle %d has insufficient hours: %w", id, shared.ErrConflict)
	}
	b.HoursUsed += hours
	if b.HoursUsed >= b.Hours {
		b.Status = StatusExhausted
	}
	m.bundles[id] = b
	return b, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.bundles[id]; !ok {
		return fmt.Errorf("bundle %d: %w", id, shared.ErrNotFound)
	}
	delete(m.bundles, id)
	return nil
}

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	return NewService(repo, nil, nil), repo
}

func TestCreateBundle(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create(context.Background(), 1, BundleInput{
		Title: "Math 10h", ClientName: "Dupont", Hours: 10, PriceCents: 40000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.Code)
	require.Equal(t, StatusActive, created.Status)
	require.Equal(t, 10, created.Remaining())
}

func TestCreateBundleValidation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []BundleInput{
		{Title: "", ClientName: "Dupont", Hours: 10},
		{Title: "Math", ClientName: "", Hours: 10},
		{Title: "Math", ClientName: "Dupont", Hours: 0},
		{Title: "Math", ClientName: "Dupont", Hours: 10, PriceCents: -1},
	}
	for _, input := range cases {
		_, err := svc.Create(context.Background(), 1, input)
		require.ErrorIs(t, err, shared.ErrValidation)
	}
}

func TestConsumeHoursExhaustsBundle(t *testing.T) {
	svc, _ := newTestService(t)
	created, err := svc.Create(context.Background(), 1, BundleInput{Title: "Math", ClientName: "Dupont", Hours: 4})
	require.NoError(t, err)

	b, err := svc.Consume(context.Background(), 1, created.ID, 3)
	require.NoError(t, err)
	require.Equal(t, StatusActive, b.Status)
	require.Equal(t, 1, b.Remaining())

	b, err = svc.Consume(context.Background(), 1, created.ID, 1)
	require.NoError(t, err)
	require.Equal(t, StatusExhausted, b.Status)

	_, err = svc.Consume(context.Background(), 1, created.ID, 1)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestConsumeOverdrawRejected(t *testing.T) {
	svc, _ := newTestService(t)
	created, err := svc.Create(context.Background(), 1, BundleInput{Title: "Math", ClientName: "Dupont", Hours: 4})
	require.NoError(t, err)

	_, err = svc.Consume(context.Background(), 1, created.ID, 5)
	require.ErrorIs(t, err, shared.ErrConflict)

	b, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 0, b.HoursUsed)
}

func TestUpdateBundleBelowConsumedHours(t *testing.T) {
	svc, _ := newTestService(t)
	created, err := svc.Create(context.Background(), 1, BundleInput{Title: "Math", ClientName: "Dupont", Hours: 10})
	require.NoError(t, err)
	_, err = svc.Consume(context.Background(), 1, created.ID, 6)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), 1, created.ID, BundleInput{Title: "Math", ClientName: "Dupont", Hours: 5})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteConsumedBundleRefused(t *testing.T) {
	svc, _ := newTestService(t)
	created, err := svc.Create(context.Background(), 1, BundleInput{Title: "Math", ClientName: "Dupont", Hours: 10})
	require.NoError(t, err)
	_, err = svc.Consume(context.Background(), 1, created.ID, 1)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), 1, created.ID)
	require.ErrorIs(t, err, shared.ErrConflict)

	archived, err := svc.Archive(context.Background(), 1, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusArchived, archived.Status)
}

func TestDeleteUnknownBundle(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Delete(context.Background(), 1, 42)
	require.True(t, errors.Is(err, shared.ErrNotFound))
}
