package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/JHMR18/truck-drive/internal/token"
	"github.com/JHMR18/truck-drive/internal/user"
	apperrors "github.com/JHMR18/truck-drive/pkg/errors"
)

// AuthClient talks to the backend's auth endpoints. These are the only
// requests that run outside the bearer-decorated transport.
type AuthClient struct {
	client *Client
}

// NewAuthClient creates a new auth endpoint client
func NewAuthClient(client *Client) *AuthClient {
	return &AuthClient{client: client}
}

// grantResponse is the wire shape of a login/refresh issuance.
// Expires is the access token TTL in milliseconds.
type grantResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Expires      int64  `json:"expires"`
}

func (g *grantResponse) grant() *token.Grant {
	return &token.Grant{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		ExpiresIn:    time.Duration(g.Expires) * time.Millisecond,
	}
}

// Login exchanges credentials for a token grant.
// POST /auth/login
func (a *AuthClient) Login(ctx context.Context, email, password string) (*token.Grant, error) {
	body := map[string]string{"email": email, "password": password}

	var resp grantResponse
	if err := a.client.do(ctx, "POST", "/auth/login", nil, body, &resp, ""); err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Status >= 400 && appErr.Status < 500 {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	return resp.grant(), nil
}

// Refresh exchanges a refresh token for a new grant.
// POST /auth/refresh
func (a *AuthClient) Refresh(ctx context.Context, refreshToken string) (*token.Grant, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var resp grantResponse
	if err := a.client.do(ctx, "POST", "/auth/refresh", nil, body, &resp, ""); err != nil {
		return nil, err
	}

	return resp.grant(), nil
}

// Logout asks the backend to revoke the refresh token.
// POST /auth/logout
func (a *AuthClient) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refresh_token": refreshToken}
	return a.client.do(ctx, "POST", "/auth/logout", nil, body, nil, "")
}

// meResponse decodes the current-user payload. The role field may come
// back as an expanded object or as a bare role ID string.
type meResponse struct {
	ID          string          `json:"id"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Email       string          `json:"email"`
	PhoneNumber string          `json:"phone_number"`
	Status      string          `json:"status"`
	Role        json.RawMessage `json:"role"`
}

func (m *meResponse) identity() *user.Identity {
	identity := &user.Identity{
		ID:          m.ID,
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		Email:       m.Email,
		PhoneNumber: m.PhoneNumber,
		Status:      m.Status,
	}

	var expanded struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(m.Role, &expanded); err == nil && expanded.Name != "" {
		identity.Role = user.Role(expanded.Name)
	}

	return identity
}

// Me fetches the authenticated user with the role name expanded.
// GET /users/me?fields=*,role.name
func (a *AuthClient) Me(ctx context.Context, accessToken string) (*user.Identity, error) {
	query := url.Values{}
	query.Set("fields", "*,role.name")

	var resp meResponse
	if err := a.client.do(ctx, "GET", "/users/me", query, nil, &resp, accessToken); err != nil {
		return nil, err
	}

	return resp.identity(), nil
}
