// ABOUTME: Tests for the session state machine: init, login, logout and error lifecycle
// ABOUTME: Uses an httptest identity backend and the in-memory keystore

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openatms/atms-console/internal/api"
	"github.com/openatms/atms-console/internal/identity"
	"github.com/openatms/atms-console/internal/keystore"
	"github.com/openatms/atms-console/internal/token"
)

// identityBackend fakes the login/profile/logout endpoints.
type identityBackend struct {
	password     string
	accessToken  string
	refreshToken string
	user         identity.User
	loginCalls   atomic.Int64
	logoutCalls  atomic.Int64
	refreshCalls atomic.Int64
}

func newIdentityBackend() *identityBackend {
	return &identityBackend{
		password:     "s3cret",
		accessToken:  "access-1",
		refreshToken: "refresh-1",
		user: identity.User{
			ID:       1,
			Email:    "alice@example.com",
			Username: "alice",
			IsActive: true,
			Roles:    []string{"admin"},
		},
	}
}

func (b *identityBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		b.loginCalls.Add(1)
		var req identity.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Username != b.user.Username || req.Password != b.password {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"detail": "Invalid credentials"}`)
			return
		}
		json.NewEncoder(w).Encode(identity.TokenPair{
			AccessToken:  b.accessToken,
			RefreshToken: b.refreshToken,
			TokenType:    "bearer",
			ExpiresIn:    1800,
		})
	})

	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+b.accessToken {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"detail": "Not authenticated"}`)
			return
		}
		json.NewEncoder(w).Encode(b.user)
	})

	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		b.refreshCalls.Add(1)
		json.NewEncoder(w).Encode(identity.TokenPair{
			AccessToken:  b.accessToken,
			RefreshToken: b.refreshToken,
			TokenType:    "bearer",
			ExpiresIn:    1800,
		})
	})

	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		b.logoutCalls.Add(1)
	})
	mux.HandleFunc("/auth/logout-all", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		b.logoutCalls.Add(1)
	})

	return mux
}

// newTestManager wires a manager over the fake backend with the scheduler
// disabled; scheduler behavior is covered separately.
func newTestManager(t *testing.T, backend *identityBackend) (*Manager, *token.Store) {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	tokens := token.NewStore(keystore.NewMemory())
	client := api.NewClient(srv.URL, tokens)
	m := NewManager(client, tokens, WithRefreshInterval(0))
	t.Cleanup(m.Close)
	return m, tokens
}

func TestInit_NoStoredSession(t *testing.T) {
	m, _ := newTestManager(t, newIdentityBackend())

	require.NoError(t, m.Init(context.Background()))
	assert.False(t, m.IsAuthenticated())
	assert.False(t, m.IsLoading())
	assert.Empty(t, m.Error())
}

func TestInit_RestoresAndVerifiesSession(t *testing.T) {
	backend := newIdentityBackend()
	m, tokens := newTestManager(t, backend)
	ctx := context.Background()

	// Stale cached profile; backend has the fresh one
	require.NoError(t, tokens.SetAccessToken(ctx, backend.accessToken))
	require.NoError(t, tokens.SetUser(ctx, &identity.User{ID: 1, Username: "alice", Roles: []string{"operator"}}))

	require.NoError(t, m.Init(ctx))

	require.True(t, m.IsAuthenticated())
	assert.Equal(t, []string{"admin"}, m.CurrentUser().Roles, "cache replaced by fresh profile")

	cached, err := tokens.User(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, cached.Roles)
}

func TestInit_InvalidSessionTornDown(t *testing.T) {
	backend := newIdentityBackend()
	m, tokens := newTestManager(t, backend)
	ctx := context.Background()

	// Token the backend no longer accepts, and no refresh token
	require.NoError(t, tokens.SetAccessToken(ctx, "revoked"))
	require.NoError(t, tokens.SetUser(ctx, &backend.user))

	require.NoError(t, m.Init(ctx))

	assert.False(t, m.IsAuthenticated())
	_, err := tokens.AccessToken(ctx)
	assert.ErrorIs(t, err, keystore.ErrNotFound)
}

func TestLogin_Success(t *testing.T) {
	backend := newIdentityBackend()
	m, tokens := newTestManager(t, backend)
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, identity.LoginRequest{Username: "alice", Password: "s3cret"}))

	require.True(t, m.IsAuthenticated())
	assert.Equal(t, "alice", m.CurrentUser().Username)
	assert.Empty(t, m.Error())
	assert.False(t, m.IsLoading())

	access, err := tokens.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-1", access)
	refresh, err := tokens.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", refresh)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	backend := newIdentityBackend()
	m, tokens := newTestManager(t, backend)
	ctx := context.Background()

	err := m.Login(ctx, identity.LoginRequest{Username: "alice", Password: "wrong"})
	require.Error(t, err)

	assert.Equal(t, "Invalid credentials", m.Error())
	assert.False(t, m.IsAuthenticated())
	assert.False(t, m.IsLoading())

	_, tokErr := tokens.AccessToken(ctx)
	assert.ErrorIs(t, tokErr, keystore.ErrNotFound)
}

func TestLogin_ErrorLifecycle(t *testing.T) {
	backend := newIdentityBackend()
	m, _ := newTestManager(t, backend)
	ctx := context.Background()

	require.Error(t, m.Login(ctx, identity.LoginRequest{Username: "alice", Password: "wrong"}))
	assert.Equal(t, "Invalid credentials", m.Error())

	// ClearError removes it without other side effects
	m.ClearError(ctx)
	assert.Empty(t, m.Error())

	// Fails again, then a successful login leaves no error behind
	require.Error(t, m.Login(ctx, identity.LoginRequest{Username: "alice", Password: "wrong"}))
	assert.Equal(t, "Invalid credentials", m.Error())
	require.NoError(t, m.Login(ctx, identity.LoginRequest{Username: "alice", Password: "s3cret"}))
	assert.Empty(t, m.Error())
}

func TestLogin_ErrorSurvivesRestart(t *testing.T) {
	backend := newIdentityBackend()
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	kv := keystore.NewMemory()
	tokens := token.NewStore(kv)
	client := api.NewClient(srv.URL, tokens)

	first := NewManager(client, tokens, WithRefreshInterval(0))
	require.Error(t, first.Login(context.Background(), identity.LoginRequest{Username: "alice", Password: "wrong"}))
	first.Close()

	// A fresh manager over the same keystore still shows the error
	second := NewManager(client, tokens, WithRefreshInterval(0))
	defer second.Close()
	require.NoError(t, second.Init(context.Background()))
	assert.Equal(t, "Invalid credentials", second.Error())
}

func TestLogout_UnreachableBackendStillTearsDown(t *testing.T) {
	backend := newIdentityBackend()
	srv := httptest.NewServer(backend.handler())

	tokens := token.NewStore(keystore.NewMemory())
	client := api.NewClient(srv.URL, tokens)
	m := NewManager(client, tokens, WithRefreshInterval(0))
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, identity.LoginRequest{Username: "alice", Password: "s3cret"}))
	require.True(t, m.IsAuthenticated())

	// Network goes away before logout
	srv.Close()
	m.Logout(ctx)

	assert.False(t, m.IsAuthenticated())
	_, err := tokens.AccessToken(ctx)
	assert.ErrorIs(t, err, keystore.ErrNotFound)
	_, err = tokens.RefreshToken(ctx)
	assert.ErrorIs(t, err, keystore.ErrNotFound)
	_, err = tokens.User(ctx)
	assert.ErrorIs(t, err, keystore.ErrNotFound)
}

func TestLogoutAll(t *testing.T) {
	backend := newIdentityBackend()
	m, tokens := newTestManager(t, backend)
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, identity.LoginRequest{Username: "alice", Password: "s3cret"}))
	m.LogoutAll(ctx)

	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, int64(1), backend.logoutCalls.Load())
	_, err := tokens.AccessToken(ctx)
	assert.ErrorIs(t, err, keystore.ErrNotFound)
}

func TestRefreshUser(t *testing.T) {
	backend := newIdentityBackend()
	m, _ := newTestManager(t, backend)
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, identity.LoginRequest{Username: "alice", Password: "s3cret"}))

	backend.user.Roles = []string{"admin", "auditor"}
	require.NoError(t, m.RefreshUser(ctx))
	assert.Equal(t, []string{"admin", "auditor"}, m.CurrentUser().Roles)
}

func TestRefreshUser_FailureEndsSession(t *testing.T) {
	backend := newIdentityBackend()
	m, tokens := newTestManager(t, backend)
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, identity.LoginRequest{Username: "alice", Password: "s3cret"}))

	// Backend starts rejecting the session and its refresh token
	backend.accessToken = "rotated-elsewhere"
	require.NoError(t, tokens.ClearTokens(ctx))
	require.NoError(t, tokens.SetAccessToken(ctx, "stale"))

	require.Error(t, m.RefreshUser(ctx))
	assert.False(t, m.IsAuthenticated())
}

func TestPermissionDelegates(t *testing.T) {
	backend := newIdentityBackend()
	m, _ := newTestManager(t, backend)
	ctx := context.Background()

	// Unauthenticated: everything denied
	assert.False(t, m.HasPermission("camera:read"))
	assert.False(t, m.HasRole("admin"))
	assert.False(t, m.IsAdmin())
	assert.False(t, m.IsSuperuser())

	require.NoError(t, m.Login(ctx, identity.LoginRequest{Username: "alice", Password: "s3cret"}))

	assert.True(t, m.HasRole("admin"))
	assert.True(t, m.HasAnyRole([]string{"operator", "admin"}))
	assert.True(t, m.IsAdmin())
	assert.False(t, m.IsSuperuser())
	assert.True(t, m.HasPermission("camera:write"))
	assert.False(t, m.HasPermission("role:delete"))
}

// mintFutureToken builds a decodable access token expiring in an hour.
func mintFutureToken(t *testing.T) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  "alice",
		"type": "access",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestScheduler_RefreshesExpiringToken(t *testing.T) {
	backend := newIdentityBackend()
	// The backend accepts the opaque token, so Init verification succeeds
	// without the reactive path; only the scheduler triggers the refresh.
	backend.accessToken = "opaque-stale-token"
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	tokens := token.NewStore(keystore.NewMemory())
	client := api.NewClient(srv.URL, tokens)
	m := NewManager(client, tokens,
		WithRefreshInterval(10*time.Millisecond),
		WithRefreshThreshold(token.DefaultRefreshThreshold))
	defer m.Close()
	ctx := context.Background()

	// An opaque (undecodable) token counts as expiring soon, so the first
	// scheduler pass refreshes it.
	require.NoError(t, tokens.SetAccessToken(ctx, "opaque-stale-token"))
	require.NoError(t, tokens.SetRefreshToken(ctx, "refresh-1"))
	require.NoError(t, tokens.SetUser(ctx, &backend.user))

	require.NoError(t, m.Init(ctx))
	require.True(t, m.IsAuthenticated())

	assert.Eventually(t, func() bool {
		return backend.refreshCalls.Load() >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_NoRefreshWhenTokenFresh(t *testing.T) {
	backend := newIdentityBackend()
	freshJWT := mintFutureToken(t)
	backend.accessToken = freshJWT
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	tokens := token.NewStore(keystore.NewMemory())
	client := api.NewClient(srv.URL, tokens)
	m := NewManager(client, tokens,
		WithRefreshInterval(10*time.Millisecond),
		// Zero threshold: only an undecodable or expired token triggers
		WithRefreshThreshold(0))
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, tokens.SetAccessToken(ctx, freshJWT))
	require.NoError(t, tokens.SetRefreshToken(ctx, "refresh-1"))
	require.NoError(t, tokens.SetUser(ctx, &backend.user))

	require.NoError(t, m.Init(ctx))
	require.True(t, m.IsAuthenticated())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(0), backend.refreshCalls.Load())
}
