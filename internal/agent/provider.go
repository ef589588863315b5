// Package agent implements the on-vehicle location reporter: it reads
// device fixes from a position provider and posts them to the backend's
// location_logs collection on a fixed interval.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Position is a device fix
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Speed     *float64  `json:"speed,omitempty"`
	Heading   *float64  `json:"heading,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// PositionProvider yields the most recent device fix
type PositionProvider interface {
	Current(ctx context.Context) (*Position, error)
}

// StaticProvider always returns the same position. Useful for depot
// units and for exercising the reporting path without a receiver.
type StaticProvider struct {
	Position Position
}

// Current returns the fixed position
func (s *StaticProvider) Current(ctx context.Context) (*Position, error) {
	pos := s.Position
	if pos.Timestamp.IsZero() {
		pos.Timestamp = time.Now()
	}
	return &pos, nil
}

// FileProvider reads fixes from a JSON file maintained by an external
// GPS receiver process, picking up rewrites via fsnotify.
type FileProvider struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	mu     sync.RWMutex
	latest *Position

	done chan struct{}
}

// NewFileProvider creates a provider watching the given position file.
// The file may not exist yet; the provider reports fixes once it appears.
func NewFileProvider(path string, logger *zap.Logger) (*FileProvider, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory: receivers typically replace the file
	// atomically, which shows up as create/rename events.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	p := &FileProvider{
		path:    path,
		watcher: watcher,
		logger:  logger,
		done:    make(chan struct{}),
	}
	p.reload()

	go p.watch()
	return p, nil
}

// Current returns the latest fix read from the file
func (p *FileProvider) Current(ctx context.Context) (*Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return nil, fmt.Errorf("no position fix available yet")
	}
	pos := *p.latest
	return &pos, nil
}

// Close stops watching the position file
func (p *FileProvider) Close() error {
	close(p.done)
	return p.watcher.Close()
}

func (p *FileProvider) watch() {
	for {
		select {
		case <-p.done:
			return
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if event.Name != p.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				p.reload()
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("position watcher error", zap.Error(err))
		}
	}
}

func (p *FileProvider) reload() {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		if !os.IsNotExist(err) {
			p.logger.Warn("failed to read position file", zap.Error(err))
		}
		return
	}

	var pos Position
	if err := json.Unmarshal(raw, &pos); err != nil {
		p.logger.Warn("failed to parse position file", zap.Error(err))
		return
	}
	if pos.Timestamp.IsZero() {
		pos.Timestamp = time.Now()
	}

	p.mu.Lock()
	p.latest = &pos
	p.mu.Unlock()
}
