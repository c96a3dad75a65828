package auth

// Admin role constants.
const (
	RoleViewer     = "viewer"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// ReadRoles may list accounts and rounds.
func ReadRoles() []string {
	return []string{RoleViewer, RoleAdmin, RoleSuperAdmin}
}

// WriteRoles may open, fund and ban accounts.
func WriteRoles() []string {
	return []string{RoleAdmin, RoleSuperAdmin}
}

// ValidRole reports whether role is a known admin role.
func ValidRole(role string) bool {
	for _, r := range ReadRoles() {
		if r == role {
			return true
		}
	}
	return false
}
