// ABOUTME: HTTP client for the ATMS identity and administration API
// ABOUTME: Attaches bearer credentials and recovers from 401s via coordinated token refresh

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openatms/atms-console/internal/keystore"
	"github.com/openatms/atms-console/internal/token"
)

// DefaultTimeout applies to every request unless overridden.
const DefaultTimeout = 30 * time.Second

// Client is the gateway to the remote API. Every call attaches the stored
// access token as a bearer credential and, on a 401, joins the single-flight
// refresh coordinator before replaying the original request exactly once.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  *token.Store
	logger  *slog.Logger

	// onSessionExpired is invoked after an irrecoverable refresh failure,
	// once local tokens have been cleared. The CLI uses it to prompt for a
	// new login; a UI would navigate to its login surface.
	onSessionExpired func()

	refresh refresher
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithSessionExpiredHook registers the callback invoked when the session
// cannot be recovered by a token refresh.
func WithSessionExpiredHook(fn func()) Option {
	return func(c *Client) { c.onSessionExpired = fn }
}

// NewClient creates a gateway client for the given base URL.
func NewClient(baseURL string, tokens *token.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		tokens:  tokens,
		logger:  slog.Default().With("component", "api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues a JSON request and decodes the response into out (which may be
// nil). A 401 response triggers at most one coordinated refresh-and-replay.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	bearer, err := c.tokens.AccessToken(ctx)
	if err != nil && !errors.Is(err, keystore.ErrNotFound) {
		return fmt.Errorf("reading access token: %w", err)
	}

	requestID := uuid.New().String()
	apiErr := c.send(ctx, method, path, payload, bearer, requestID, out)
	if apiErr == nil {
		return nil
	}

	var httpErr *Error
	if !errors.As(apiErr, &httpErr) || httpErr.Status != http.StatusUnauthorized {
		return apiErr
	}
	if bearer == "" {
		// No session credential was attached, so there is no session to
		// recover. Login failures land here.
		return apiErr
	}

	// Reactive refresh: one network refresh at a time, one replay per request.
	res := c.refreshAccessToken(ctx)
	if res.err != nil {
		if errors.Is(res.err, context.Canceled) || errors.Is(res.err, context.DeadlineExceeded) {
			// The caller stopped waiting; the refresh itself may still
			// succeed, so the session stays intact.
			return res.err
		}
		// One teardown per failed flight, however many requests were queued
		// behind it.
		if res.expireOnce != nil {
			res.expireOnce.Do(func() { c.expireSession(ctx) })
		}
		if errors.Is(res.err, ErrNoRefreshToken) {
			// No recovery possible; surface the original failure.
			return apiErr
		}
		return res.err
	}

	c.logger.Debug("replaying request after token refresh",
		"method", method, "path", path, "request_id", requestID)
	return c.send(ctx, method, path, payload, res.accessToken, requestID, out)
}

// send performs a single HTTP exchange. Non-2xx responses come back as *Error.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, bearer, requestID string, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{
			Status:    resp.StatusCode,
			Message:   ExtractErrorMessage(respBody),
			RequestID: requestID,
		}
		if resp.StatusCode != http.StatusUnauthorized {
			c.logger.Warn("api error",
				"method", method, "path", path,
				"status", resp.StatusCode, "request_id", requestID)
		}
		return apiErr
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding response body: %w", err)
		}
	}
	return nil
}

// mustJSON marshals v, panicking on failure. Only used for payloads built
// from our own request types, which always marshal.
func mustJSON(v any) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("api: marshaling %T: %v", v, err))
	}
	return payload
}

// expireSession tears down local credentials after an irrecoverable refresh
// failure. The reactive 401 path is the only caller; the proactive scheduler
// leaves tokens in place and lets this path recover on the next request.
func (c *Client) expireSession(ctx context.Context) {
	if err := c.tokens.ClearTokens(ctx); err != nil {
		c.logger.Warn("clearing tokens after session expiry", "error", err)
	}
	c.logger.Info("session expired, cleared local credentials")
	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}
