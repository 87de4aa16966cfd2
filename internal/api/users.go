// ABOUTME: User endpoints: current-user profile, listing and administration
// ABOUTME: Admin operations are gated server-side; the client only shapes the requests

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openatms/atms-console/internal/identity"
)

// CurrentUser fetches the authenticated user's profile.
func (c *Client) CurrentUser(ctx context.Context) (*identity.User, error) {
	var u identity.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateCurrentUser updates the caller's own profile fields.
func (c *Client) UpdateCurrentUser(ctx context.Context, update identity.UserUpdate) (*identity.User, error) {
	var u identity.User
	if err := c.do(ctx, http.MethodPut, "/users/me", update, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword rotates the caller's own password.
func (c *Client) ChangePassword(ctx context.Context, change identity.PasswordChange) error {
	return c.do(ctx, http.MethodPost, "/users/me/change-password", change, nil)
}

// ListUsers returns all users.
func (c *Client) ListUsers(ctx context.Context) ([]identity.User, error) {
	var users []identity.User
	if err := c.do(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser returns one user by id.
func (c *Client) GetUser(ctx context.Context, id int64) (*identity.User, error) {
	var u identity.User
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser applies an administrative update to a user.
func (c *Client) UpdateUser(ctx context.Context, id int64, update identity.AdminUserUpdate) (*identity.User, error) {
	var u identity.User
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), update, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetUserRoles replaces a user's role assignments.
func (c *Client) SetUserRoles(ctx context.Context, id int64, roles []string) (*identity.User, error) {
	var u identity.User
	body := struct {
		Roles []string `json:"roles"`
	}{Roles: roles}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d/roles", id), body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
