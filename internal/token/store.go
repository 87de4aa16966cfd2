// ABOUTME: Token store persisting session credentials through the keystore port
// ABOUTME: Sole owner of the access token, refresh token and cached-user entries

package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openatms/atms-console/internal/identity"
	"github.com/openatms/atms-console/internal/keystore"
)

// Keystore keys, namespaced to this application.
const (
	keyAccessToken  = "atms_access_token"
	keyRefreshToken = "atms_refresh_token"
	keyUser         = "atms_user"
	keyLoginError   = "atms_login_error"
)

// Store owns all session entries in the underlying keystore. No other
// component writes these keys, preventing torn updates.
type Store struct {
	kv keystore.Store
}

// NewStore creates a token store over the given keystore.
func NewStore(kv keystore.Store) *Store {
	return &Store{kv: kv}
}

// AccessToken returns the stored access token, or keystore.ErrNotFound.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.kv.Get(ctx, keyAccessToken)
}

// SetAccessToken persists the access token.
func (s *Store) SetAccessToken(ctx context.Context, tok string) error {
	return s.kv.Set(ctx, keyAccessToken, tok)
}

// RefreshToken returns the stored refresh token, or keystore.ErrNotFound.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.kv.Get(ctx, keyRefreshToken)
}

// SetRefreshToken persists the refresh token.
func (s *Store) SetRefreshToken(ctx context.Context, tok string) error {
	return s.kv.Set(ctx, keyRefreshToken, tok)
}

// SetTokenPair persists a token pair from the login or refresh endpoint.
// The refresh endpoint may rotate the refresh token or omit it; an absent
// refresh token leaves the stored one in place.
func (s *Store) SetTokenPair(ctx context.Context, pair *identity.TokenPair) error {
	if err := s.SetAccessToken(ctx, pair.AccessToken); err != nil {
		return err
	}
	if pair.RefreshToken != "" {
		return s.SetRefreshToken(ctx, pair.RefreshToken)
	}
	return nil
}

// User returns the cached user profile, or keystore.ErrNotFound.
func (s *Store) User(ctx context.Context) (*identity.User, error) {
	raw, err := s.kv.Get(ctx, keyUser)
	if err != nil {
		return nil, err
	}
	var u identity.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("decoding cached user: %w", err)
	}
	return &u, nil
}

// SetUser caches the user profile.
func (s *Store) SetUser(ctx context.Context, u *identity.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	return s.kv.Set(ctx, keyUser, string(raw))
}

// ClearTokens removes the access token, refresh token and cached user.
// Missing entries are ignored so teardown is idempotent.
func (s *Store) ClearTokens(ctx context.Context) error {
	var errs []error
	for _, key := range []string{keyAccessToken, keyRefreshToken, keyUser} {
		if err := s.kv.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoginError returns the persisted login failure message, or keystore.ErrNotFound.
// The message is durable so a restart between a failed login and the next
// attempt still surfaces it.
func (s *Store) LoginError(ctx context.Context) (string, error) {
	return s.kv.Get(ctx, keyLoginError)
}

// SetLoginError persists the login failure message.
func (s *Store) SetLoginError(ctx context.Context, msg string) error {
	return s.kv.Set(ctx, keyLoginError, msg)
}

// ClearLoginError removes the persisted login failure message.
func (s *Store) ClearLoginError(ctx context.Context) error {
	return s.kv.Delete(ctx, keyLoginError)
}
