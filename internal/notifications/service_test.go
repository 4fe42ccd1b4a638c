package notifications

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tutoria-app/tutoria/internal/shared"
	_ "github.com/tutoria-app/tutoria/testing"
)

type memoryRepo struct {
	nextID int64
	items  map[int64]Notification
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, items: make(map[int64]Notification)}
}

func (m *memoryRepo) Create(ctx context.Context, n Notification) (Notification, error) {
	n.ID = m.nextID
	m.nextID++
	n.Status = StatusPending
	n.CreatedAt = time.Now()
	m.items[n.ID] = n
	return n, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Notification, error) {
	n, ok := m.items[id]
	if !ok {
		return Notification{}, fmt.Errorf("notification %d: %w", id, shared.ErrNotFound)
	}
	return n, nil
}

func (m *memoryRepo) ListForUser(ctx context.Context, userID int64, limit int) ([]Notification, error) {
	var result []Notification
	for _, n := range m.items {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *memoryRepo) UnreadCount(ctx context.Context, userID int64) (int, error) {
	count := 0
	for _, n := range m.items {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *memoryRepo) MarkRead(ctx context.Context, userID, id int64) error {
	n, ok := m.items[id]
	if !ok || n.UserID != userID {
		return fmt.Errorf("notification %d: %w", id, shared.ErrNotFound)
	}
	n.Read = true
	m.items[id] = n
	return nil
}

func (m *memoryRepo) MarkAllRead(ctx context.Context, userID int64) error {
	for id, n := range m.items {
		if n.UserID == userID {
			n.Read = true
			m.items[id] = n
		}
	}
	return nil
}

func (m *memoryRepo) MarkDelivered(ctx context.Context, id int64) error {
	n, ok := m.items[id]
	if !ok {
		return fmt.Errorf("notification %d: %w", id, shared.ErrNotFound)
	}
	n.Status = StatusDelivered
	now := time.Now()
	n.DeliveredAt = &now
	m.items[id] = n
	return nil
}

func (m *memoryRepo) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	for id, n := range m.items {
		if n.Read && n.CreatedAt.Before(cutoff) {
			delete(m.items, id)
			removed++
		}
	}
	return removed, nil
}

type recordingQueue struct {
	enqueued []int64
}

func (q *recordingQueue) EnqueueNotifyDeliver(ctx context.Context, id int64) error {
	q.enqueued = append(q.enqueued, id)
	return nil
}

type staticNamer map[int64]string

func (n staticNamer) RoleName(ctx context.Context, roleID int64) (string, error) {
	name, ok := n[roleID]
	if !ok {
		return "", fmt.Errorf("role %d: %w", roleID, shared.ErrNotFound)
	}
	return name, nil
}

func TestRoleGrantedNotification(t *testing.T) {
	repo := newMemoryRepo()
	queue := &recordingQueue{}
	svc := NewService(repo, queue, staticNamer{2: "Manager"}, nil)

	require.NoError(t, svc.RoleGranted(context.Background(), 10, 2))

	items, err := svc.ListForUser(context.Background(), 10, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, KindRoleGranted, items[0].Kind)
	require.Contains(t, items[0].Body, "Manager")
	require.NotEmpty(t, items[0].Code)
	require.Equal(t, []int64{items[0].ID}, queue.enqueued)
}

func TestRoleGrantedFallsBackToRoleID(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, staticNamer{}, nil)

	require.NoError(t, svc.RoleGranted(context.Background(), 10, 7))

	items, err := svc.ListForUser(context.Background(), 10, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Contains(t, items[0].Body, "#7")
}

func TestPayslipReadyFormatsAmount(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	require.NoError(t, svc.PayslipReady(context.Background(), 10, "2026-07", 123450))

	items, err := svc.ListForUser(context.Background(), 10, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, KindPayslipReady, items[0].Kind)
	require.Contains(t, items[0].Body, "2026-07")
	require.True(t, strings.Contains(items[0].Body, "1,234.50"), "body: %s", items[0].Body)
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	first, err := svc.Send(context.Background(), 10, "Hello", "First")
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), 10, "Hello", "Second")
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), 20, "Hello", "Other user")
	require.NoError(t, err)

	count, err := svc.UnreadCount(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, svc.MarkRead(context.Background(), 10, first.ID))
	count, err = svc.UnreadCount(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.NoError(t, svc.MarkAllRead(context.Background(), 10))
	count, err = svc.UnreadCount(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestMarkReadOtherUsersNotification(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	n, err := svc.Send(context.Background(), 10, "Hello", "Body")
	require.NoError(t, err)

	err = svc.MarkRead(context.Background(), 20, n.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeliverIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	n, err := svc.Send(context.Background(), 10, "Hello", "Body")
	require.NoError(t, err)

	require.NoError(t, svc.Deliver(context.Background(), n.ID))
	stored, err := repo.Get(context.Background(), n.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, stored.Status)
	require.NotNil(t, stored.DeliveredAt)

	require.NoError(t, svc.Deliver(context.Background(), n.ID))
}
