// ABOUTME: Process-wide authenticated-session state machine
// ABOUTME: Composes the token store, gateway client and authorization evaluator

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openatms/atms-console/internal/api"
	"github.com/openatms/atms-console/internal/identity"
	"github.com/openatms/atms-console/internal/keystore"
	"github.com/openatms/atms-console/internal/token"
)

// GenericLoginError is shown when no message can be extracted from a
// login failure.
const GenericLoginError = "Login failed. Please check your credentials."

// DefaultRefreshInterval is how often the proactive scheduler checks
// token freshness.
const DefaultRefreshInterval = 5 * time.Minute

// Manager owns the session state: the current user, the loading flag and
// the last login error. It moves between Unauthenticated and Authenticated
// through Login/Logout and tears itself down when the backend invalidates
// the session. Safe for concurrent use.
type Manager struct {
	client *api.Client
	tokens *token.Store
	logger *slog.Logger

	refreshThreshold time.Duration
	refreshInterval  time.Duration

	mu      sync.RWMutex
	user    *identity.User
	loading bool
	errMsg  string

	schedulerStop context.CancelFunc
	schedulerDone chan struct{}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithRefreshThreshold sets how close to expiry a token triggers a
// proactive refresh.
func WithRefreshThreshold(d time.Duration) ManagerOption {
	return func(m *Manager) { m.refreshThreshold = d }
}

// WithRefreshInterval sets the proactive scheduler period. Zero or
// negative disables the scheduler.
func WithRefreshInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.refreshInterval = d }
}

// NewManager creates a session manager over the given gateway client and
// token store.
func NewManager(client *api.Client, tokens *token.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		client:           client,
		tokens:           tokens,
		logger:           slog.Default().With("component", "session"),
		refreshThreshold: token.DefaultRefreshThreshold,
		refreshInterval:  DefaultRefreshInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init restores a persisted session on process start. A cached user plus a
// stored access token are applied optimistically, then verified against the
// backend; verification failure tears the session down rather than failing
// Init. The loading flag is set for the duration.
func (m *Manager) Init(ctx context.Context) error {
	m.setLoading(true)
	defer m.setLoading(false)

	// Restore a login error persisted across restarts
	if msg, err := m.tokens.LoginError(ctx); err == nil {
		m.setError(msg)
	}

	cached, userErr := m.tokens.User(ctx)
	access, tokenErr := m.tokens.AccessToken(ctx)
	if userErr != nil || tokenErr != nil || access == "" {
		if userErr != nil && !errors.Is(userErr, keystore.ErrNotFound) {
			return fmt.Errorf("reading cached session: %w", userErr)
		}
		return nil
	}

	// Optimistic: trust the cache while the profile fetch is in flight
	m.setUser(cached)

	fresh, err := m.client.CurrentUser(ctx)
	if err != nil {
		m.logger.Warn("cached session rejected by backend", "error", err)
		m.teardown(ctx)
		return nil
	}

	if err := m.tokens.SetUser(ctx, fresh); err != nil {
		return fmt.Errorf("caching user profile: %w", err)
	}
	m.setUser(fresh)
	m.startScheduler()
	return nil
}

// Login authenticates with the given credentials. On failure the extracted
// error message is retained (durably) until cleared or a later login
// succeeds, matching the inline-error lifecycle of the login surface.
func (m *Manager) Login(ctx context.Context, creds identity.LoginRequest) error {
	m.setLoading(true)
	defer m.setLoading(false)

	// A new attempt supersedes any previously shown error
	m.clearErrorState(ctx)

	pair, err := m.client.Login(ctx, creds)
	if err != nil {
		return m.failLogin(ctx, err)
	}

	if err := m.tokens.SetTokenPair(ctx, pair); err != nil {
		return fmt.Errorf("persisting tokens: %w", err)
	}

	user, err := m.client.CurrentUser(ctx)
	if err != nil {
		return m.failLogin(ctx, err)
	}

	if err := m.tokens.SetUser(ctx, user); err != nil {
		return fmt.Errorf("caching user profile: %w", err)
	}
	m.setUser(user)
	m.startScheduler()
	m.logger.Info("login succeeded", "username", user.Username, "roles", user.Roles)
	return nil
}

// failLogin records the failure message, clears any partial credentials and
// propagates the error.
func (m *Manager) failLogin(ctx context.Context, cause error) error {
	msg := GenericLoginError
	var apiErr *api.Error
	if errors.As(cause, &apiErr) && apiErr.Message != "" && apiErr.Message != api.GenericErrorMessage {
		msg = apiErr.Message
	}

	m.setError(msg)
	if err := m.tokens.SetLoginError(ctx, msg); err != nil {
		m.logger.Warn("persisting login error", "error", err)
	}
	if err := m.tokens.ClearTokens(ctx); err != nil {
		m.logger.Warn("clearing tokens after failed login", "error", err)
	}
	m.logger.Warn("login failed", "reason", msg)
	return fmt.Errorf("login: %w", cause)
}

// Logout ends the current session. The server call is best effort: a
// network failure is logged but never blocks local teardown.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.client.Logout(ctx); err != nil {
		m.logger.Warn("logout request failed", "error", err)
	}
	m.teardown(ctx)
	m.clearErrorState(ctx)
}

// LogoutAll ends every session of the current user. Best effort like Logout.
func (m *Manager) LogoutAll(ctx context.Context) {
	if err := m.client.LogoutAll(ctx); err != nil {
		m.logger.Warn("logout-all request failed", "error", err)
	}
	m.teardown(ctx)
	m.clearErrorState(ctx)
}

// RefreshUser refetches the current-user profile. A failure means the
// session is no longer valid and tears it down.
func (m *Manager) RefreshUser(ctx context.Context) error {
	user, err := m.client.CurrentUser(ctx)
	if err != nil {
		m.logger.Warn("profile refresh failed, ending session", "error", err)
		m.teardown(ctx)
		return fmt.Errorf("refreshing user: %w", err)
	}

	if err := m.tokens.SetUser(ctx, user); err != nil {
		return fmt.Errorf("caching user profile: %w", err)
	}
	m.setUser(user)
	return nil
}

// SessionExpired drops the local session after the gateway reports an
// irrecoverable refresh failure. Wire it to api.WithSessionExpiredHook.
func (m *Manager) SessionExpired() {
	m.setUser(nil)
	m.stopScheduler()
}

// ClearError clears the login error without other side effects.
func (m *Manager) ClearError(ctx context.Context) {
	m.clearErrorState(ctx)
}

// Close stops the proactive refresh scheduler. The session state in the
// keystore is left as is.
func (m *Manager) Close() {
	m.stopScheduler()
}

// teardown clears tokens and the in-memory user, and stops the scheduler.
func (m *Manager) teardown(ctx context.Context) {
	if err := m.tokens.ClearTokens(ctx); err != nil {
		m.logger.Warn("clearing tokens", "error", err)
	}
	m.setUser(nil)
	m.stopScheduler()
}

// clearErrorState clears the error both in memory and in the keystore.
func (m *Manager) clearErrorState(ctx context.Context) {
	m.setError("")
	if err := m.tokens.ClearLoginError(ctx); err != nil {
		m.logger.Warn("clearing login error", "error", err)
	}
}

// CurrentUser returns the authenticated user, or nil.
func (m *Manager) CurrentUser() *identity.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// IsAuthenticated reports whether a user is present.
func (m *Manager) IsAuthenticated() bool {
	return m.CurrentUser() != nil
}

// IsLoading reports whether an auth operation is in flight.
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Error returns the last login failure message, or empty.
func (m *Manager) Error() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errMsg
}

// HasPermission evaluates a resource:action key against the current user.
func (m *Manager) HasPermission(permission string) bool {
	return identity.HasPermission(m.CurrentUser(), permission)
}

// HasRole reports whether the current user holds the role.
func (m *Manager) HasRole(role string) bool {
	return identity.HasRole(m.CurrentUser(), role)
}

// HasAnyRole reports whether the current user holds any of the roles.
func (m *Manager) HasAnyRole(roles []string) bool {
	return identity.HasAnyRole(m.CurrentUser(), roles)
}

// IsSuperuser reports whether the current user is a superuser.
func (m *Manager) IsSuperuser() bool {
	return identity.IsSuperuser(m.CurrentUser())
}

// IsAdmin reports whether the current user is an admin or superuser.
func (m *Manager) IsAdmin() bool {
	return identity.IsAdmin(m.CurrentUser())
}

func (m *Manager) setUser(u *identity.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = u
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = v
}

func (m *Manager) setError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errMsg = msg
}
