package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Info holds claims decoded from an access token for diagnostics.
// The session never trusts these for expiry decisions; the authoritative
// expiry is the server-reported TTL captured at issuance.
type Info struct {
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer,omitempty"`
	IssuedAt  time.Time `json:"issued_at,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Inspect decodes an access token's registered claims without verifying
// the signature. The backend holds the signing key; the client can only
// read what the token says about itself.
func Inspect(tokenString string) (*Info, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(tokenString, &jwt.RegisteredClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	info := &Info{
		Subject: claims.Subject,
		Issuer:  claims.Issuer,
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}

	return info, nil
}
