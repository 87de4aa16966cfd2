// ABOUTME: Role endpoints: CRUD and per-service access grants
// ABOUTME: Role deletion is superuser-only; the server enforces, the identity package pre-gates

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openatms/atms-console/internal/identity"
)

// ListRoles returns all roles.
func (c *Client) ListRoles(ctx context.Context) ([]identity.Role, error) {
	var roles []identity.Role
	if err := c.do(ctx, http.MethodGet, "/roles", nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRole returns one role with its permissions.
func (c *Client) GetRole(ctx context.Context, id int64) (*identity.Role, error) {
	var role identity.Role
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/roles/%d", id), nil, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// CreateRole creates a role.
func (c *Client) CreateRole(ctx context.Context, req identity.RoleCreate) (*identity.Role, error) {
	var role identity.Role
	if err := c.do(ctx, http.MethodPost, "/roles", req, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// UpdateRole partially updates a role.
func (c *Client) UpdateRole(ctx context.Context, id int64, update identity.RoleUpdate) (*identity.Role, error) {
	var role identity.Role
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/roles/%d", id), update, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

// DeleteRole removes a role.
func (c *Client) DeleteRole(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/roles/%d", id), nil, nil)
}

// SetRoleServiceAccess grants or revokes a role's access to a service.
func (c *Client) SetRoleServiceAccess(ctx context.Context, roleID, serviceID int64, canAccess bool, notes string) (*identity.RoleServiceAccess, error) {
	var access identity.RoleServiceAccess
	body := struct {
		CanAccess bool   `json:"can_access"`
		Notes     string `json:"notes,omitempty"`
	}{CanAccess: canAccess, Notes: notes}
	path := fmt.Sprintf("/roles/%d/services/%d", roleID, serviceID)
	if err := c.do(ctx, http.MethodPut, path, body, &access); err != nil {
		return nil, err
	}
	return &access, nil
}
