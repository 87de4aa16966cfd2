// ABOUTME: Unverified JWT claims decoding for expiry inspection
// ABOUTME: Decodes the payload segment only; never establishes trust in the token

package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the decoded payload fields of an access token.
// ExpiresAt is the zero time when the token carries no exp claim.
type Claims struct {
	Subject   string
	Type      string
	ExpiresAt time.Time
}

// rawClaims maps the wire payload. The type claim distinguishes access
// from refresh tokens on this backend.
type rawClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// DecodeClaims decodes a token's claims without verifying its signature.
// Returns false on malformed input (wrong segment count, invalid base64,
// invalid JSON). This is for expiry inspection only — the server remains
// the authority on token validity.
func DecodeClaims(tokenString string) (*Claims, bool) {
	var rc rawClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &rc); err != nil {
		return nil, false
	}

	claims := &Claims{
		Subject: rc.Subject,
		Type:    rc.Type,
	}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Time
	}
	return claims, true
}
