// ABOUTME: Pure role and permission evaluation over a User
// ABOUTME: Client-side gate for UI affordances; the server independently authorizes every call

package identity

import "strings"

// HasRole returns true if the user holds the named role.
func HasRole(user *User, role string) bool {
	if user == nil {
		return false
	}
	for _, r := range user.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole returns true if the user holds at least one of the named roles.
func HasAnyRole(user *User, roles []string) bool {
	for _, r := range roles {
		if HasRole(user, r) {
			return true
		}
	}
	return false
}

// IsSuperuser returns true if the user carries the superuser flag.
func IsSuperuser(user *User) bool {
	return user != nil && user.IsSuperuser
}

// IsAdmin returns true for superusers and holders of the admin role.
func IsAdmin(user *User) bool {
	if user == nil {
		return false
	}
	return user.IsSuperuser || HasRole(user, "admin")
}

// HasPermission evaluates a resource:action permission key against the user.
//
// Superusers are granted everything. Admins are granted everything except
// role deletion, which is reserved to superusers (system-role protection).
// Other roles are denied: fine-grained role-to-permission mapping is resolved
// server-side, not in this client.
func HasPermission(user *User, permission string) bool {
	if user == nil || len(user.Roles) == 0 {
		return false
	}

	if user.IsSuperuser {
		return true
	}

	if HasRole(user, "admin") {
		if strings.Contains(permission, "role:") && strings.Contains(permission, "delete") {
			return false
		}
		return true
	}

	return false
}

// HasAnyPermission returns true if any of the permission keys is granted.
func HasAnyPermission(user *User, permissions []string) bool {
	for _, p := range permissions {
		if HasPermission(user, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions returns true if every permission key is granted.
func HasAllPermissions(user *User, permissions []string) bool {
	for _, p := range permissions {
		if !HasPermission(user, p) {
			return false
		}
	}
	return true
}

// GroupPermissionsByResource buckets permissions by their resource segment.
func GroupPermissionsByResource(permissions []Permission) map[string][]Permission {
	grouped := make(map[string][]Permission)
	for _, p := range permissions {
		grouped[p.Resource] = append(grouped[p.Resource], p)
	}
	return grouped
}

// FormatPermissionName renders a resource:action key for display.
func FormatPermissionName(key string) string {
	return strings.Replace(key, ":", " - ", 1)
}
