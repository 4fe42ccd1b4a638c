// Package roles manages the role hierarchy: CRUD over role nodes,
// forest assembly for presentation and parent reassignment under the
// no-cycle invariant.
package roles

import (
	"sort"
	"time"
)

// Role is a named permission bundle with an optional parent. ParentID
// zero marks a forest root.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	ParentID    int64     `json:"parent_id,omitempty"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleNode is a role with its children populated, for tree rendering.
type RoleNode struct {
	Role
	Children []*RoleNode `json:"children"`
}

// BuildTree assembles the forest from the flat parent-pointer
// representation. Roles whose parent is absent (or dangling) become
// roots. Siblings are ordered by name for stable output.
func BuildTree(roles []Role) []*RoleNode {
	nodes := make(map[int64]*RoleNode, len(roles))
	for _, role := range roles {
		nodes[role.ID] = &RoleNode{Role: role, Children: []*RoleNode{}}
	}

	var forest []*RoleNode
	for _, role := range roles {
		node := nodes[role.ID]
		if parent, ok := nodes[role.ParentID]; ok && role.ParentID != role.ID {
			parent.Children = append(parent.Children, node)
			continue
		}
		forest = append(forest, node)
	}

	var sortChildren func(list []*RoleNode)
	sortChildren = func(list []*RoleNode) {
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
		for _, n := range list {
			sortChildren(n.Children)
		}
	}
	sortChildren(forest)
	return forest
}
