// ABOUTME: Permission endpoints: CRUD over resource:action grants

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openatms/atms-console/internal/identity"
)

// ListPermissions returns all permissions.
func (c *Client) ListPermissions(ctx context.Context) ([]identity.Permission, error) {
	var perms []identity.Permission
	if err := c.do(ctx, http.MethodGet, "/permissions", nil, &perms); err != nil {
		return nil, err
	}
	return perms, nil
}

// GetPermission returns one permission by id.
func (c *Client) GetPermission(ctx context.Context, id int64) (*identity.Permission, error) {
	var p identity.Permission
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/permissions/%d", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePermission creates a permission.
func (c *Client) CreatePermission(ctx context.Context, req identity.PermissionCreate) (*identity.Permission, error) {
	var p identity.Permission
	if err := c.do(ctx, http.MethodPost, "/permissions", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePermission partially updates a permission.
func (c *Client) UpdatePermission(ctx context.Context, id int64, update identity.PermissionUpdate) (*identity.Permission, error) {
	var p identity.Permission
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/permissions/%d", id), update, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePermission removes a permission.
func (c *Client) DeletePermission(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/permissions/%d", id), nil, nil)
}
