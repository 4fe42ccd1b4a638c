package rbac

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tutoria-app/tutoria/internal/shared"
)

type memoryStore struct {
	principals map[int64]*Principal
	perms      map[int64][]string
	edges      []RoleEdge
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		principals: make(map[int64]*Principal),
		perms:      make(map[int64][]string),
	}
}

func (m *memoryStore) addRole(id, parentID int64, perms ...string) {
	m.edges = append(m.edges, RoleEdge{ID: id, ParentID: parentID})
	m.perms[id] = perms
}

func (m *memoryStore) addUser(id int64, typ UserType, roleIDs ...int64) {
	m.principals[id] = &Principal{ID: id, Type: typ, RoleIDs: roleIDs}
}

func (m *memoryStore) FindPrincipal(ctx context.Context, userID int64) (Principal, error) {
	p, ok := m.principals[userID]
	if !ok {
		return Principal{}, fmt.Errorf("rbac: user %d: %w", userID, shared.ErrNotFound)
	}
	return *p, nil
}

func (m *memoryStore) RolePermissions(ctx context.Context, roleIDs []int64) ([]string, error) {
	var perms []string
	for _, id := range roleIDs {
		perms = append(perms, m.perms[id]...)
	}
	return perms, nil
}

func (m *memoryStore) ListRoleEdges(ctx context.Context) ([]RoleEdge, error) {
	out := make([]RoleEdge, len(m.edges))
	copy(out, m.edges)
	return out, nil
}

func (m *memoryStore) RoleExists(ctx context.Context, roleID int64) (bool, error) {
	_, ok := m.perms[roleID]
	return ok, nil
}

func (m *memoryStore) AddRoleToUser(ctx context.Context, userID, roleID int64) error {
	p := m.principals[userID]
	for _, id := range p.RoleIDs {
		if id == roleID {
			return nil
		}
	}
	p.RoleIDs = append(p.RoleIDs, roleID)
	return nil
}

func (m *memoryStore) RemoveRoleFromUser(ctx context.Context, userID, roleID int64) error {
	p := m.principals[userID]
	kept := p.RoleIDs[:0]
	for _, id := range p.RoleIDs {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	p.RoleIDs = kept
	return nil
}

type recordingNotifier struct {
	grants []int64
}

func (n *recordingNotifier) RoleGranted(ctx context.Context, userID, roleID int64) error {
	n.grants = append(n.grants, roleID)
	return nil
}

// root(1) -> manager(2) -> tutor(3); user 10 holds manager, user 20
// holds nothing, user 99 is an administrator.
func delegationFixture() *memoryStore {
	store := newMemoryStore()
	store.addRole(1, 0, shared.PermRolesEdit, shared.PermUsersEdit)
	store.addRole(2, 1, shared.PermBundlesView, shared.PermBundlesEdit)
	store.addRole(3, 2, shared.PermBundlesView)
	store.addUser(10, UserTypeStandard, 2)
	store.addUser(20, UserTypeStandard)
	store.addUser(99, UserTypeAdministrator)
	return store
}

func TestEffectivePermissionsUnion(t *testing.T) {
	store := delegationFixture()
	store.addUser(11, UserTypeStandard, 2, 3)
	svc := NewService(store, nil, nil, nil)

	perms, err := svc.EffectivePermissions(context.Background(), 11)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{shared.PermBundlesView, shared.PermBundlesEdit}, perms)
}

func TestEffectivePermissionsNoRoles(t *testing.T) {
	svc := NewService(delegationFixture(), nil, nil, nil)
	perms, err := svc.EffectivePermissions(context.Background(), 20)
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestAuthorizeAllVsAny(t *testing.T) {
	store := delegationFixture()
	svc := NewService(store, nil, nil, nil)
	ctx := context.Background()
	user, err := svc.Principal(ctx, 10)
	require.NoError(t, err)

	required := []string{shared.PermBundlesView, shared.PermRolesEdit}

	allowed, err := svc.Authorize(ctx, user, required, true)
	require.NoError(t, err)
	require.False(t, allowed, "requireAll with one missing permission must deny")

	allowed, err = svc.Authorize(ctx, user, required, false)
	require.NoError(t, err)
	require.True(t, allowed, "requireAny with one held permission must allow")
}

func TestAuthorizeDeniesWithoutRoles(t *testing.T) {
	store := delegationFixture()
	svc := NewService(store, nil, nil, nil)
	ctx := context.Background()
	user, err := svc.Principal(ctx, 20)
	require.NoError(t, err)

	allowed, err := svc.Authorize(ctx, user, []string{shared.PermBundlesView}, true)
	require.NoError(t, err)
	require.False(t, allowed)
}

func TestAdministratorBypass(t *testing.T) {
	store := delegationFixture()
	svc := NewService(store, nil, nil, nil)
	ctx := context.Background()
	admin, err := svc.Principal(ctx, 99)
	require.NoError(t, err)

	allowed, err := svc.Authorize(ctx, admin, []string{"does.not.exist"}, true)
	require.NoError(t, err)
	require.True(t, allowed)

	can, err := svc.CanDelegate(ctx, admin, 1)
	require.NoError(t, err)
	require.True(t, can)
}

func TestDelegationBoundary(t *testing.T) {
	store := delegationFixture()
	svc := NewService(store, nil, nil, nil)
	ctx := context.Background()
	manager, err := svc.Principal(ctx, 10)
	require.NoError(t, err)

	// Manager may delegate its own role and the tutor role below it.
	for _, roleID := range []int64{2, 3} {
		can, err := svc.CanDelegate(ctx, manager, roleID)
		require.NoError(t, err)
		require.True(t, can, "role %d", roleID)
	}

	// Root sits above the manager and is out of reach.
	can, err := svc.CanDelegate(ctx, manager, 1)
	require.NoError(t, err)
	require.False(t, can)

	_, err = svc.AssignRole(ctx, manager, 20, 1)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestAssignRoleIdempotent(t *testing.T) {
	store := delegationFixture()
	notifier := &recordingNotifier{}
	svc := NewService(store, notifier, nil, nil)
	ctx := context.Background()
	manager, err := svc.Principal(ctx, 10)
	require.NoError(t, err)

	target, err := svc.AssignRole(ctx, manager, 20, 3)
	require.NoError(t, err)
	require.Equal(t, []int64{3}, target.RoleIDs)

	target, err = svc.AssignRole(ctx, manager, 20, 3)
	require.NoError(t, err)
	require.Equal(t, []int64{3}, target.RoleIDs, "second assignment must not duplicate")

	first, err := svc.EffectivePermissions(ctx, 20)
	require.NoError(t, err)
	second, err := svc.EffectivePermissions(ctx, 20)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, []int64{3, 3}, notifier.grants, "each grant call notifies")
}

func TestRemoveRoleIdempotent(t *testing.T) {
	store := delegationFixture()
	svc := NewService(store, nil, nil, nil)
	ctx := context.Background()
	manager, err := svc.Principal(ctx, 10)
	require.NoError(t, err)

	_, err = svc.AssignRole(ctx, manager, 20, 3)
	require.NoError(t, err)

	target, err := svc.RemoveRole(ctx, manager, 20, 3)
	require.NoError(t, err)
	require.Empty(t, target.RoleIDs)

	target, err = svc.RemoveRole(ctx, manager, 20, 3)
	require.NoError(t, err)
	require.Empty(t, target.RoleIDs)
}

func TestAssignRoleUnknownTargets(t *testing.T) {
	store := delegationFixture()
	svc := NewService(store, nil, nil, nil)
	ctx := context.Background()
	manager, err := svc.Principal(ctx, 10)
	require.NoError(t, err)

	_, err = svc.AssignRole(ctx, manager, 404, 3)
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.AssignRole(ctx, manager, 20, 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
