// ABOUTME: Authentication endpoints: login, register, logout and logout-all
// ABOUTME: Token persistence stays with the session layer; these calls return raw responses

package api

import (
	"context"
	"net/http"

	"github.com/openatms/atms-console/internal/identity"
)

// Login exchanges credentials for a token pair. The caller persists the
// pair; a failed login surfaces the backend's message via *Error.
func (c *Client) Login(ctx context.Context, creds identity.LoginRequest) (*identity.TokenPair, error) {
	var pair identity.TokenPair
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Register creates a new user account.
func (c *Client) Register(ctx context.Context, req identity.RegisterRequest) (*identity.User, error) {
	var u identity.User
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout invalidates the current session server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// LogoutAll invalidates every session of the current user server-side.
func (c *Client) LogoutAll(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout-all", nil, nil)
}
