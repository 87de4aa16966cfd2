// ABOUTME: Domain types for the ATMS identity and administration API
// ABOUTME: Defines User, TokenPair, Role, Permission, Service and request payloads

package identity

import "time"

// User is the authenticated principal as returned by the identity API.
// The client holds a cached copy; the backend owns the record.
type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	FullName    string    `json:"full_name,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Department  string    `json:"department,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsVerified  bool      `json:"is_verified"`
	IsSuperuser bool      `json:"is_superuser"`
	Roles       []string  `json:"roles"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TokenPair is the token response from the login and refresh endpoints.
// Access token is short-lived; refresh token is exchanged for new pairs.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LoginRequest carries credentials for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest carries the refresh token for POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RegisterRequest creates a new user account.
type RegisterRequest struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	FullName   string `json:"full_name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Department string `json:"department,omitempty"`
}

// UserUpdate is the self-service profile update payload.
type UserUpdate struct {
	FullName   *string `json:"full_name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Department *string `json:"department,omitempty"`
}

// AdminUserUpdate is the administrative user update payload.
type AdminUserUpdate struct {
	FullName   *string  `json:"full_name,omitempty"`
	Phone      *string  `json:"phone,omitempty"`
	Department *string  `json:"department,omitempty"`
	Notes      *string  `json:"notes,omitempty"`
	IsActive   *bool    `json:"is_active,omitempty"`
	IsVerified *bool    `json:"is_verified,omitempty"`
	Roles      []string `json:"roles,omitempty"`
}

// PasswordChange rotates the caller's own password.
type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Permission is a single resource:action grant.
type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PermissionCreate creates a new permission.
type PermissionCreate struct {
	Name        string `json:"name"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// PermissionUpdate partially updates a permission.
type PermissionUpdate struct {
	Name        *string `json:"name,omitempty"`
	Resource    *string `json:"resource,omitempty"`
	Action      *string `json:"action,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// Role bundles permissions under a name. System roles cannot be deleted
// by admins, only by superusers.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	IsSystem    bool         `json:"is_system"`
	IsActive    bool         `json:"is_active"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// RoleCreate creates a new role.
type RoleCreate struct {
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	PermissionIDs []int64 `json:"permission_ids,omitempty"`
	IsSystem      *bool   `json:"is_system,omitempty"`
}

// RoleUpdate partially updates a role.
type RoleUpdate struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	PermissionIDs []int64 `json:"permission_ids,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

// Service is a downstream ATMS service gated by role access.
type Service struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	BaseURL     string    `json:"base_url"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ServiceCreate creates a new service entry.
type ServiceCreate struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	BaseURL     string `json:"base_url"`
}

// ServiceUpdate partially updates a service entry.
type ServiceUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	BaseURL     *string `json:"base_url,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// RoleServiceAccess grants or revokes a role's access to a service.
type RoleServiceAccess struct {
	RoleID    int64  `json:"role_id"`
	ServiceID int64  `json:"service_id"`
	CanAccess bool   `json:"can_access"`
	Notes     string `json:"notes,omitempty"`
}
