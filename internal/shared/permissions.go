package shared

import "strings"

// Platform permissions. The catalog is closed: role writes refuse any
// key not listed here.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermBundlesView = "bundles.view"
	PermBundlesEdit = "bundles.edit"

	PermMissionsView = "missions.view"
	PermMissionsEdit = "missions.edit"

	PermPayslipsView = "payslips.view"
	PermPayslipsEdit = "payslips.edit"

	PermExtraWorkView = "extrawork.view"
	PermExtraWorkEdit = "extrawork.edit"

	PermNotificationsSend = "notifications.send"
)

// AllPermissions lists every permission key known to the platform.
func AllPermissions() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermBundlesView,
		PermBundlesEdit,
		PermMissionsView,
		PermMissionsEdit,
		PermPayslipsView,
		PermPayslipsEdit,
		PermExtraWorkView,
		PermExtraWorkEdit,
		PermNotificationsSend,
	}
}

var permissionCatalog = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range AllPermissions() {
		set[p] = struct{}{}
	}
	return set
}()

// ValidPermission reports whether key belongs to the closed catalog.
// Keys are case-insensitive and compared trimmed.
func ValidPermission(key string) bool {
	_, ok := permissionCatalog[strings.TrimSpace(strings.ToLower(key))]
	return ok
}
