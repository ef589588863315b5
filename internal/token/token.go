package token

import (
	"time"
)

// Pair represents the access and refresh token pair owned by a session.
// ExpiresAt is always derived as issuance time plus the server-reported
// TTL, never recomputed from the access token's own claims.
type Pair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Grant is a token issuance as returned over the wire by the backend's
// login and refresh operations. ExpiresIn carries the server-reported TTL.
type Grant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// TokenType constants
const (
	TokenTypeBearer = "Bearer"
)

// Pair builds the persisted token pair from a grant issued at the given time
func (g *Grant) Pair(issuedAt time.Time) *Pair {
	return &Pair{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		ExpiresAt:    issuedAt.Add(g.ExpiresIn),
	}
}

// Valid reports whether the pair is usable at the given time
func (p *Pair) Valid(now time.Time) bool {
	if p == nil || p.AccessToken == "" || p.RefreshToken == "" {
		return false
	}
	return now.Before(p.ExpiresAt)
}

// ExpiresWithin reports whether the pair expires within the given margin
func (p *Pair) ExpiresWithin(now time.Time, margin time.Duration) bool {
	return !now.Add(margin).Before(p.ExpiresAt)
}
