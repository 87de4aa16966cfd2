// ABOUTME: Token expiry policy evaluated from decoded claims
// ABOUTME: Undecodable tokens are treated as expired, failing safe toward re-authentication

package token

import "time"

// DefaultRefreshThreshold is how far ahead of expiry a token counts as
// expiring soon.
const DefaultRefreshThreshold = 5 * time.Minute

// nowFunc returns the current time. It can be overridden in tests.
var nowFunc = time.Now

// IsExpired returns true if the token's exp claim has passed, is absent,
// or the token cannot be decoded.
func IsExpired(tokenString string) bool {
	claims, ok := DecodeClaims(tokenString)
	if !ok || claims.ExpiresAt.IsZero() {
		return true
	}
	return !nowFunc().Before(claims.ExpiresAt)
}

// IsExpiringSoon returns true if the token expires within threshold,
// has no exp claim, or cannot be decoded.
func IsExpiringSoon(tokenString string, threshold time.Duration) bool {
	claims, ok := DecodeClaims(tokenString)
	if !ok || claims.ExpiresAt.IsZero() {
		return true
	}
	return claims.ExpiresAt.Sub(nowFunc()) <= threshold
}

// TimeUntilExpiry returns the remaining lifetime of the token, floored at
// zero. Returns false if the token cannot be decoded or has no exp claim.
func TimeUntilExpiry(tokenString string) (time.Duration, bool) {
	claims, ok := DecodeClaims(tokenString)
	if !ok || claims.ExpiresAt.IsZero() {
		return 0, false
	}
	remaining := claims.ExpiresAt.Sub(nowFunc())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
