// ABOUTME: Single-flight token refresh coordinator shared by all refresh call sites
// ABOUTME: At most one network refresh is in flight; concurrent callers share its outcome

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/openatms/atms-console/internal/identity"
	"github.com/openatms/atms-console/internal/keystore"
)

// ErrNoRefreshToken is returned when a refresh is requested but no refresh
// token is stored.
var ErrNoRefreshToken = errors.New("no refresh token")

// refreshResult is the shared outcome delivered to every waiter. On failure
// it carries a per-flight sync.Once so session teardown runs a single time no
// matter how many queued requests observe the same failed refresh.
type refreshResult struct {
	accessToken string
	err         error
	expireOnce  *sync.Once
}

// refresher serializes token refreshes. Waiters enqueued while a refresh is
// in flight each receive the single outcome on a buffered channel, so every
// pending continuation is released exactly once.
type refresher struct {
	mu       sync.Mutex
	inFlight bool
	waiters  []chan refreshResult
}

// Refresh forces a coordinated token refresh. The proactive scheduler calls
// this; any reactive 401-triggered refresh racing it joins the same flight,
// so at most one network refresh is ever outstanding.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refreshAccessToken(ctx).err
}

// refreshAccessToken exchanges the stored refresh token for a new token pair,
// persisting it on success. Both the reactive 401 path and the proactive
// scheduler call this; the coordinator guarantees a single network refresh
// regardless of how many callers race.
func (c *Client) refreshAccessToken(ctx context.Context) refreshResult {
	c.refresh.mu.Lock()
	if c.refresh.inFlight {
		ch := make(chan refreshResult, 1)
		c.refresh.waiters = append(c.refresh.waiters, ch)
		c.refresh.mu.Unlock()

		select {
		case res := <-ch:
			return res
		case <-ctx.Done():
			// The buffered channel still receives the outcome; only this
			// caller gives up waiting for it.
			return refreshResult{err: ctx.Err()}
		}
	}
	c.refresh.inFlight = true
	c.refresh.mu.Unlock()

	accessToken, err := c.performRefresh(ctx)
	res := refreshResult{accessToken: accessToken, err: err}
	if err != nil {
		res.expireOnce = new(sync.Once)
	}

	c.refresh.mu.Lock()
	waiters := c.refresh.waiters
	c.refresh.waiters = nil
	c.refresh.inFlight = false
	c.refresh.mu.Unlock()

	for _, ch := range waiters {
		ch <- res
	}
	return res
}

// performRefresh does the actual network exchange. Only the coordinator's
// leader runs this.
func (c *Client) performRefresh(ctx context.Context) (string, error) {
	refreshToken, err := c.tokens.RefreshToken(ctx)
	if errors.Is(err, keystore.ErrNotFound) || (err == nil && refreshToken == "") {
		return "", ErrNoRefreshToken
	}
	if err != nil {
		return "", fmt.Errorf("reading refresh token: %w", err)
	}

	var pair identity.TokenPair
	// The refresh request itself carries no bearer credential and must not
	// re-enter the 401 handling path.
	if err := c.send(ctx, http.MethodPost, "/auth/refresh",
		mustJSON(identity.RefreshRequest{RefreshToken: refreshToken}),
		"", uuid.New().String(), &pair); err != nil {
		c.logger.Warn("token refresh failed", "error", err)
		return "", fmt.Errorf("refreshing token: %w", err)
	}

	if err := c.tokens.SetTokenPair(ctx, &pair); err != nil {
		return "", fmt.Errorf("persisting refreshed tokens: %w", err)
	}

	c.logger.Debug("access token refreshed")
	return pair.AccessToken, nil
}
