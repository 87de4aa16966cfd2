// ABOUTME: Tests for role and permission evaluation
// ABOUTME: Covers the superuser/admin/operator authorization matrix and nil users

package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func superuser() *User {
	return &User{ID: 1, Username: "root", IsSuperuser: true, Roles: []string{"super_admin"}}
}

func admin() *User {
	return &User{ID: 2, Username: "alice", Roles: []string{"admin"}}
}

func operator() *User {
	return &User{ID: 3, Username: "bob", Roles: []string{"operator"}}
}

func TestHasRole(t *testing.T) {
	assert.True(t, HasRole(admin(), "admin"))
	assert.False(t, HasRole(admin(), "operator"))
	assert.False(t, HasRole(nil, "admin"))
	assert.False(t, HasRole(&User{}, "admin"))
}

func TestHasAnyRole(t *testing.T) {
	assert.True(t, HasAnyRole(operator(), []string{"admin", "operator"}))
	assert.False(t, HasAnyRole(operator(), []string{"admin", "viewer"}))
	assert.False(t, HasAnyRole(nil, []string{"admin"}))
	assert.False(t, HasAnyRole(admin(), nil))
}

func TestIsSuperuserAndIsAdmin(t *testing.T) {
	assert.True(t, IsSuperuser(superuser()))
	assert.False(t, IsSuperuser(admin()))
	assert.False(t, IsSuperuser(nil))

	assert.True(t, IsAdmin(superuser()))
	assert.True(t, IsAdmin(admin()))
	assert.False(t, IsAdmin(operator()))
	assert.False(t, IsAdmin(nil))
}

func TestHasPermission_Matrix(t *testing.T) {
	tests := []struct {
		name       string
		user       *User
		permission string
		want       bool
	}{
		{"superuser may delete roles", superuser(), "role:delete", true},
		{"superuser gets everything", superuser(), "camera:write", true},
		{"admin denied role deletion", admin(), "role:delete", false},
		{"admin granted other writes", admin(), "camera:write", true},
		{"admin granted reads", admin(), "user:read", true},
		{"operator denied reads", operator(), "camera:read", false},
		{"operator denied writes", operator(), "event:write", false},
		{"nil user denied", nil, "camera:read", false},
		{"user without roles denied", &User{ID: 9, Username: "ghost"}, "camera:read", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(tt.user, tt.permission))
		})
	}
}

func TestHasAnyPermission(t *testing.T) {
	assert.True(t, HasAnyPermission(admin(), []string{"role:delete", "camera:write"}))
	assert.False(t, HasAnyPermission(operator(), []string{"camera:read", "camera:write"}))
	assert.False(t, HasAnyPermission(nil, []string{"camera:read"}))
}

func TestHasAllPermissions(t *testing.T) {
	assert.True(t, HasAllPermissions(superuser(), []string{"role:delete", "camera:write"}))
	assert.False(t, HasAllPermissions(admin(), []string{"role:delete", "camera:write"}))
	assert.True(t, HasAllPermissions(admin(), nil))
}

func TestGroupPermissionsByResource(t *testing.T) {
	perms := []Permission{
		{ID: 1, Resource: "camera", Action: "read"},
		{ID: 2, Resource: "camera", Action: "write"},
		{ID: 3, Resource: "role", Action: "delete"},
	}

	grouped := GroupPermissionsByResource(perms)
	assert.Len(t, grouped, 2)
	assert.Len(t, grouped["camera"], 2)
	assert.Len(t, grouped["role"], 1)
}

func TestFormatPermissionName(t *testing.T) {
	assert.Equal(t, "camera - read", FormatPermissionName("camera:read"))
	assert.Equal(t, "events", FormatPermissionName("events"))
}
