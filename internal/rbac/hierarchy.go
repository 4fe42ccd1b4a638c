package rbac

// DescendantIDs returns every role reachable from rootIDs by following
// parent->child edges transitively, including the roots themselves.
// Unknown root ids are still included: the caller decides whether a
// dangling id matters.
func DescendantIDs(edges []RoleEdge, rootIDs []int64) map[int64]struct{} {
	children := make(map[int64][]int64, len(edges))
	for _, e := range edges {
		if e.ParentID != 0 {
			children[e.ParentID] = append(children[e.ParentID], e.ID)
		}
	}

	result := make(map[int64]struct{}, len(rootIDs))
	queue := make([]int64, 0, len(rootIDs))
	for _, id := range rootIDs {
		if _, seen := result[id]; seen {
			continue
		}
		result[id] = struct{}{}
		queue = append(queue, id)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range children[id] {
			if _, seen := result[child]; seen {
				continue
			}
			result[child] = struct{}{}
			queue = append(queue, child)
		}
	}
	return result
}

// WouldCreateCycle reports whether setting proposedParent as roleID's
// parent would make roleID its own ancestor. It walks proposedParent's
// ancestor chain; a visited set guards against already-corrupt graphs.
// Pure predicate: it never errors, callers reject the mutation on true.
func WouldCreateCycle(edges []RoleEdge, roleID, proposedParent int64) bool {
	if roleID == proposedParent {
		return true
	}
	parents := make(map[int64]int64, len(edges))
	for _, e := range edges {
		parents[e.ID] = e.ParentID
	}
	visited := make(map[int64]struct{})
	for current := proposedParent; current != 0; current = parents[current] {
		if current == roleID {
			return true
		}
		if _, seen := visited[current]; seen {
			return false
		}
		visited[current] = struct{}{}
	}
	return false
}
