package rbac

import "strings"

// Role names. Keep these stable; they are part of auth/RBAC contracts and
// match the role values the API stores on user records.
const (
	RoleUser       = "USER"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
)

// AdminRoles may enter the admin area.
var AdminRoles = []string{RoleAdmin, RoleSuperAdmin}

func IsSuperAdmin(role string) bool { return strings.EqualFold(role, RoleSuperAdmin) }

func IsValidRole(role string) bool {
	switch strings.ToUpper(role) {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}
