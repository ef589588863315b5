package agent

import (
	"context"
	"sync"
	"time"

	"github.com/JHMR18/truck-drive/internal/config"
	"github.com/JHMR18/truck-drive/internal/fleet"
	"github.com/JHMR18/truck-drive/internal/metrics"
	"github.com/JHMR18/truck-drive/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocationPoster delivers a location log to the backend
type LocationPoster interface {
	Create(ctx context.Context, log fleet.LocationLog) error
}

// Spool is the local store-and-forward queue for undelivered logs
type Spool interface {
	EnqueueLocation(ctx context.Context, log fleet.LocationLog, limit int) (string, error)
	PendingLocations(ctx context.Context, limit int) ([]store.QueuedLocation, error)
	RemoveLocations(ctx context.Context, ids []string) error
	SpoolDepth(ctx context.Context) (int, error)
}

const flushBatchSize = 100

// Stats is a snapshot of the tracker's recent activity
type Stats struct {
	LastReportAt time.Time `json:"last_report_at,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	Delivered    int       `json:"delivered"`
	Spooled      int       `json:"spooled"`
}

// Tracker periodically reports the device position, tagged with the
// configured vehicle and/or driver
type Tracker struct {
	provider PositionProvider
	poster   LocationPoster
	spool    Spool
	cfg      config.AgentConfig
	logger   *zap.Logger

	mu    sync.Mutex
	stats Stats
}

// NewTracker creates a new location tracker
func NewTracker(provider PositionProvider, poster LocationPoster, spool Spool, cfg config.AgentConfig, logger *zap.Logger) *Tracker {
	return &Tracker{
		provider: provider,
		poster:   poster,
		spool:    spool,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run reports the current position immediately and then on every tick
// until the context is cancelled
func (t *Tracker) Run(ctx context.Context) error {
	t.ReportOnce(ctx)

	ticker := time.NewTicker(t.cfg.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.ReportOnce(ctx)
		}
	}
}

// ReportOnce reads the latest fix and posts it. Delivery failures spool
// the log locally; a successful delivery flushes the spool.
func (t *Tracker) ReportOnce(ctx context.Context) {
	pos, err := t.provider.Current(ctx)
	if err != nil {
		t.logger.Warn("no position to report", zap.Error(err))
		t.setError(err)
		return
	}

	// Client-generated ID so a spooled redelivery cannot duplicate a
	// report that did land
	log := fleet.LocationLog{
		ID:        uuid.New().String(),
		VehicleID: t.cfg.VehicleID,
		DriverID:  t.cfg.DriverID,
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Speed:     pos.Speed,
		Heading:   pos.Heading,
		Timestamp: pos.Timestamp.UTC().Format(time.RFC3339),
	}

	start := time.Now()
	if err := t.poster.Create(ctx, log); err != nil {
		metrics.RecordLocationPost("failure", time.Since(start))
		t.logger.Warn("failed to deliver location log", zap.Error(err))
		t.setError(err)

		if _, err := t.spool.EnqueueLocation(ctx, log, t.cfg.SpoolLimit); err != nil {
			t.logger.Error("failed to spool location log", zap.Error(err))
		} else {
			metrics.RecordLocationPost("spooled", 0)
			t.bumpSpooled()
		}
		t.updateSpoolDepth(ctx)
		return
	}

	metrics.RecordLocationPost("success", time.Since(start))
	t.bumpDelivered(pos.Timestamp)

	t.flushSpool(ctx)
	t.updateSpoolDepth(ctx)
}

// flushSpool redelivers queued logs, oldest first, stopping at the first
// failure so ordering is preserved
func (t *Tracker) flushSpool(ctx context.Context) {
	pending, err := t.spool.PendingLocations(ctx, flushBatchSize)
	if err != nil {
		t.logger.Warn("failed to read location spool", zap.Error(err))
		return
	}
	if len(pending) == 0 {
		return
	}

	var delivered []string
	for _, queued := range pending {
		if err := t.poster.Create(ctx, queued.Log); err != nil {
			t.logger.Warn("spool flush stopped", zap.Error(err), zap.Int("remaining", len(pending)-len(delivered)))
			break
		}
		delivered = append(delivered, queued.ID)
	}

	if len(delivered) > 0 {
		if err := t.spool.RemoveLocations(ctx, delivered); err != nil {
			t.logger.Warn("failed to prune delivered logs from spool", zap.Error(err))
		}
		t.logger.Info("flushed spooled location logs", zap.Int("count", len(delivered)))
	}
}

// Stats returns a snapshot of the tracker's activity
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

func (t *Tracker) setError(err error) {
	t.mu.Lock()
	t.stats.LastError = err.Error()
	t.mu.Unlock()
}

func (t *Tracker) bumpDelivered(at time.Time) {
	t.mu.Lock()
	t.stats.Delivered++
	t.stats.LastReportAt = at
	t.stats.LastError = ""
	t.mu.Unlock()
}

func (t *Tracker) bumpSpooled() {
	t.mu.Lock()
	t.stats.Spooled++
	t.mu.Unlock()
}

func (t *Tracker) updateSpoolDepth(ctx context.Context) {
	depth, err := t.spool.SpoolDepth(ctx)
	if err != nil {
		return
	}
	metrics.SetSpoolDepth(depth)
}
