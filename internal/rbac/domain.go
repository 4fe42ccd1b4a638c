// Package rbac implements the hierarchical role-based access-control
// engine: permission resolution over directly assigned roles, the
// authorization gate, and the delegation guard bounding which roles an
// actor may grant to others.
package rbac

// UserType distinguishes ordinary accounts from administrators.
type UserType string

const (
	// UserTypeStandard is an ordinary account subject to permission checks.
	UserTypeStandard UserType = "standard"
	// UserTypeAdministrator bypasses all permission and delegation checks.
	UserTypeAdministrator UserType = "administrator"
)

// Principal describes the authenticated actor as the engine sees it:
// account type plus directly assigned role ids. Business attributes
// live in the users package.
type Principal struct {
	ID      int64
	Type    UserType
	RoleIDs []int64
}

// IsAdministrator reports whether the principal bypasses checks.
func (p Principal) IsAdministrator() bool {
	return p.Type == UserTypeAdministrator
}

// RoleEdge is the parent-pointer view of a role used for graph
// traversal. ParentID is zero for forest roots.
type RoleEdge struct {
	ID       int64
	ParentID int64
}
