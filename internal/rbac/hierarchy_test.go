package rbac

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func chainEdges() []RoleEdge {
	// root(1) -> manager(2) -> tutor(3), plus a second root(4).
	return []RoleEdge{
		{ID: 1, ParentID: 0},
		{ID: 2, ParentID: 1},
		{ID: 3, ParentID: 2},
		{ID: 4, ParentID: 0},
	}
}

func TestDescendantIDsIncludesRoots(t *testing.T) {
	got := DescendantIDs(chainEdges(), []int64{3})
	require.Len(t, got, 1)
	require.Contains(t, got, int64(3))
}

func TestDescendantIDsTransitive(t *testing.T) {
	got := DescendantIDs(chainEdges(), []int64{1})
	require.Len(t, got, 3)
	for _, id := range []int64{1, 2, 3} {
		require.Contains(t, got, id)
	}
	require.NotContains(t, got, int64(4))
}

func TestDescendantIDsMultipleRoots(t *testing.T) {
	got := DescendantIDs(chainEdges(), []int64{2, 4})
	require.Len(t, got, 3)
	require.Contains(t, got, int64(2))
	require.Contains(t, got, int64(3))
	require.Contains(t, got, int64(4))
}

func TestWouldCreateCycle(t *testing.T) {
	edges := chainEdges()

	require.True(t, WouldCreateCycle(edges, 1, 1), "self parent")
	require.True(t, WouldCreateCycle(edges, 1, 3), "ancestor to descendant")
	require.True(t, WouldCreateCycle(edges, 2, 3), "parent to own child")
	require.False(t, WouldCreateCycle(edges, 3, 4), "move to other tree")
	require.False(t, WouldCreateCycle(edges, 4, 3), "new leaf parent")
}

// Reparent operations that individually pass the cycle predicate must
// keep the graph a forest.
func TestReparentSurvivorsStayAcyclic(t *testing.T) {
	const roles = 20
	rng := rand.New(rand.NewSource(42))

	edges := make([]RoleEdge, roles)
	for i := range edges {
		edges[i] = RoleEdge{ID: int64(i + 1)}
	}

	for i := 0; i < 500; i++ {
		roleID := int64(rng.Intn(roles) + 1)
		parentID := int64(rng.Intn(roles) + 1)
		if WouldCreateCycle(edges, roleID, parentID) {
			continue
		}
		for j := range edges {
			if edges[j].ID == roleID {
				edges[j].ParentID = parentID
			}
		}
		requireForest(t, edges)
	}
}

func requireForest(t *testing.T, edges []RoleEdge) {
	t.Helper()
	parents := make(map[int64]int64, len(edges))
	for _, e := range edges {
		parents[e.ID] = e.ParentID
	}
	for _, e := range edges {
		visited := map[int64]struct{}{}
		for current := e.ID; current != 0; current = parents[current] {
			if _, seen := visited[current]; seen {
				t.Fatalf("cycle through role %d", e.ID)
			}
			visited[current] = struct{}{}
		}
	}
}
