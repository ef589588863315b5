package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/JHMR18/truck-drive/internal/token"
)

// Session row keys. All three are written together and cleared together;
// partial presence is treated as no valid session.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyTokenExpires = "token_expires"
)

// SaveSession stores the token pair, replacing any previous session.
// The expiry is stored as epoch milliseconds.
func (s *Store) SaveSession(ctx context.Context, pair *token.Pair) error {
	access, err := s.cipher.seal(pair.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to seal access token: %w", err)
	}
	refresh, err := s.cipher.seal(pair.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to seal refresh token: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows := map[string]string{
		keyAccessToken:  access,
		keyRefreshToken: refresh,
		keyTokenExpires: strconv.FormatInt(pair.ExpiresAt.UnixMilli(), 10),
	}
	for key, value := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		); err != nil {
			return fmt.Errorf("failed to store session key %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// LoadSession returns the stored token pair, or nil when no session is
// stored. A missing key, an unparsable expiry, or a value that fails to
// decrypt all mean "no valid session".
func (s *Store) LoadSession(ctx context.Context) (*token.Pair, error) {
	access, ok, err := s.sessionValue(ctx, keyAccessToken)
	if err != nil || !ok {
		return nil, err
	}
	refresh, ok, err := s.sessionValue(ctx, keyRefreshToken)
	if err != nil || !ok {
		return nil, err
	}
	expiresRaw, ok, err := s.sessionValue(ctx, keyTokenExpires)
	if err != nil || !ok {
		return nil, err
	}

	accessToken, err := s.cipher.open(access)
	if err != nil {
		return nil, nil
	}
	refreshToken, err := s.cipher.open(refresh)
	if err != nil {
		return nil, nil
	}
	expiresMillis, err := strconv.ParseInt(expiresRaw, 10, 64)
	if err != nil {
		return nil, nil
	}

	return &token.Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.UnixMilli(expiresMillis),
	}, nil
}

// ClearSession removes all session keys
func (s *Store) ClearSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *Store) sessionValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM session WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session key %s: %w", key, err)
	}
	return value, true, nil
}
