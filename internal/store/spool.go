package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JHMR18/truck-drive/internal/fleet"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// QueuedLocation is a location log waiting to be delivered
type QueuedLocation struct {
	ID  string
	Log fleet.LocationLog
}

// EnqueueLocation spools a location log that could not be delivered.
// When the spool exceeds limit, the oldest entries are dropped first;
// stale positions are worth less than recent ones.
func (s *Store) EnqueueLocation(ctx context.Context, log fleet.LocationLog, limit int) (string, error) {
	payload, err := json.Marshal(log)
	if err != nil {
		return "", fmt.Errorf("failed to encode location log: %w", err)
	}

	id := uuid.New().String()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO location_spool (id, payload, created_at) VALUES (?, ?, ?)`,
		id, string(payload), time.Now().UnixMilli(),
	); err != nil {
		return "", fmt.Errorf("failed to spool location log: %w", err)
	}

	if limit > 0 {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM location_spool WHERE id NOT IN (
				SELECT id FROM location_spool ORDER BY created_at DESC LIMIT ?
			)`, limit,
		); err != nil {
			return "", fmt.Errorf("failed to trim location spool: %w", err)
		}
	}

	return id, nil
}

// PendingLocations returns up to limit spooled logs, oldest first
func (s *Store) PendingLocations(ctx context.Context, limit int) ([]QueuedLocation, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT id, payload FROM location_spool ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read location spool: %w", err)
	}
	defer rows.Close()

	var queued []QueuedLocation
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan spooled location: %w", err)
		}

		var log fleet.LocationLog
		if err := json.Unmarshal([]byte(payload), &log); err != nil {
			// Unreadable rows are dropped rather than blocking the spool
			continue
		}
		queued = append(queued, QueuedLocation{ID: id, Log: log})
	}

	return queued, rows.Err()
}

// RemoveLocations deletes delivered logs from the spool
func (s *Store) RemoveLocations(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`DELETE FROM location_spool WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to build spool delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to remove spooled locations: %w", err)
	}
	return nil
}

// SpoolDepth returns the number of spooled location logs
func (s *Store) SpoolDepth(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM location_spool`); err != nil {
		return 0, fmt.Errorf("failed to count location spool: %w", err)
	}
	return count, nil
}
