// ABOUTME: Service endpoints: CRUD over downstream ATMS service entries

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openatms/atms-console/internal/identity"
)

// ListServices returns all registered services.
func (c *Client) ListServices(ctx context.Context) ([]identity.Service, error) {
	var services []identity.Service
	if err := c.do(ctx, http.MethodGet, "/services", nil, &services); err != nil {
		return nil, err
	}
	return services, nil
}

// GetService returns one service by id.
func (c *Client) GetService(ctx context.Context, id int64) (*identity.Service, error) {
	var s identity.Service
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/services/%d", id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateService registers a service.
func (c *Client) CreateService(ctx context.Context, req identity.ServiceCreate) (*identity.Service, error) {
	var s identity.Service
	if err := c.do(ctx, http.MethodPost, "/services", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateService partially updates a service.
func (c *Client) UpdateService(ctx context.Context, id int64, update identity.ServiceUpdate) (*identity.Service, error) {
	var s identity.Service
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/services/%d", id), update, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteService removes a service.
func (c *Client) DeleteService(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/services/%d", id), nil, nil)
}
