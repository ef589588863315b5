// Package session owns the access/refresh token pair for the client: it
// signs in and out, restores a persisted session at startup, renews the
// pair ahead of expiry, and exposes the authenticated identity and role.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JHMR18/truck-drive/internal/metrics"
	"github.com/JHMR18/truck-drive/internal/token"
	"github.com/JHMR18/truck-drive/internal/user"
	apperrors "github.com/JHMR18/truck-drive/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultRenewalMargin is how early the proactive refresh fires before
// token expiry. It must be smaller than the shortest token TTL the
// backend issues or every restore renews immediately.
const DefaultRenewalMargin = 5 * time.Minute

const requestTimeout = 15 * time.Second

// State represents the session lifecycle state
type State int

// Session states
const (
	StateRestoring State = iota
	StateUnauthenticated
	StateAuthenticated
	StateRenewing
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateRestoring:
		return "restoring"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateRenewing:
		return "renewing"
	}
	return "unknown"
}

// AuthAPI is the backend auth surface the manager depends on
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*token.Grant, error)
	Refresh(ctx context.Context, refreshToken string) (*token.Grant, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, accessToken string) (*user.Identity, error)
}

// Store persists the token pair across restarts. Load returns nil when no
// complete session is stored.
type Store interface {
	LoadSession(ctx context.Context) (*token.Pair, error)
	SaveSession(ctx context.Context, pair *token.Pair) error
	ClearSession(ctx context.Context) error
}

// Manager maintains a valid bearer token for as long as the refresh token
// holds, and implements oauth2.TokenSource so resource clients can attach
// it to outgoing requests.
type Manager struct {
	auth   AuthAPI
	store  Store
	clock  Clock
	sched  Scheduler
	logger *zap.Logger
	margin time.Duration

	// onSignedOut is the headless stand-in for navigation to the login
	// view; it fires on sign-out and on fatal renewal failure.
	onSignedOut func()

	mu          sync.Mutex
	state       State
	loading     bool
	pair        *token.Pair
	identity    *user.Identity
	gen         uint64
	cancelTimer func()
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides the clock
func WithClock(clock Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithScheduler overrides the renewal scheduler
func WithScheduler(sched Scheduler) Option {
	return func(m *Manager) { m.sched = sched }
}

// WithRenewalMargin overrides the proactive renewal margin
func WithRenewalMargin(margin time.Duration) Option {
	return func(m *Manager) { m.margin = margin }
}

// WithSignOutHook registers a callback fired whenever the session ends
func WithSignOutHook(fn func()) Option {
	return func(m *Manager) { m.onSignedOut = fn }
}

// NewManager creates a new session manager
func NewManager(auth AuthAPI, store Store, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		auth:        auth,
		store:       store,
		clock:       systemClock{},
		sched:       timerScheduler{},
		logger:      logger,
		margin:      DefaultRenewalMargin,
		onSignedOut: func() {},
		state:       StateRestoring,
		loading:     true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SignIn authenticates with email and password. On failure no state is
// mutated and the error propagates to the caller for display. Field
// format validation is the caller's job.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	grant, err := m.auth.Login(ctx, email, password)
	if err != nil {
		metrics.RecordSignIn("failure")
		return err
	}

	pair := grant.Pair(m.clock.Now())

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.pair = pair
	m.state = StateAuthenticated
	m.scheduleRenewalLocked(pair.ExpiresAt)
	m.mu.Unlock()

	if err := m.store.SaveSession(ctx, pair); err != nil {
		m.logger.Warn("failed to persist session", zap.Error(err))
	}

	if err := m.fetchIdentity(ctx, gen, pair.AccessToken); err != nil {
		// An access token that cannot retrieve its own owner is assumed
		// invalid; the session is torn down rather than left half-open.
		m.failSession(gen, false, fmt.Errorf("identity fetch after sign-in: %w", err))
		metrics.RecordSignIn("failure")
		return nil
	}

	metrics.RecordSignIn("success")
	metrics.SetAuthenticated(true)
	return nil
}

// SignOut ends the session. The backend revocation call is best effort;
// local state is always cleared, so sign-out never fails and is safe to
// call when already unauthenticated.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	var refreshToken string
	if m.pair != nil {
		refreshToken = m.pair.RefreshToken
	}
	m.gen++
	m.pair = nil
	m.identity = nil
	m.state = StateUnauthenticated
	m.loading = false
	m.cancelTimerLocked()
	m.mu.Unlock()

	if refreshToken != "" {
		if err := m.auth.Logout(ctx, refreshToken); err != nil {
			m.logger.Warn("logout revocation failed", zap.Error(err))
		}
	}

	if err := m.store.ClearSession(ctx); err != nil {
		m.logger.Warn("failed to clear stored session", zap.Error(err))
	}

	metrics.SetAuthenticated(false)
	m.onSignedOut()
	return nil
}

// Restore resumes a persisted session. It runs once at process start: a
// missing or partial stored pair resolves to unauthenticated, a live pair
// is used as-is with a renewal scheduled, and an expired pair is renewed
// immediately before the identity fetch.
func (m *Manager) Restore(ctx context.Context) error {
	pair, err := m.store.LoadSession(ctx)
	if err != nil {
		m.logger.Warn("failed to load stored session", zap.Error(err))
	}
	if pair == nil {
		m.mu.Lock()
		m.state = StateUnauthenticated
		m.loading = false
		m.mu.Unlock()
		return nil
	}

	now := m.clock.Now()

	if now.Before(pair.ExpiresAt) {
		m.mu.Lock()
		m.gen++
		gen := m.gen
		m.pair = pair
		m.scheduleRenewalLocked(pair.ExpiresAt)
		m.mu.Unlock()

		if err := m.fetchIdentity(ctx, gen, pair.AccessToken); err != nil {
			m.failSession(gen, false, fmt.Errorf("identity fetch on restore: %w", err))
			m.finishLoading()
			return nil
		}

		metrics.SetAuthenticated(true)
		m.finishLoading()
		return nil
	}

	// Expired on load: renew exactly once before fetching identity
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.pair = pair
	m.state = StateRenewing
	m.mu.Unlock()

	if err := m.renewOnce(ctx, gen, pair.RefreshToken); err != nil {
		m.finishLoading()
		return nil
	}

	m.mu.Lock()
	accessToken := ""
	if m.gen == gen && m.pair != nil {
		accessToken = m.pair.AccessToken
	}
	m.mu.Unlock()
	if accessToken == "" {
		m.finishLoading()
		return nil
	}

	if err := m.fetchIdentity(ctx, gen, accessToken); err != nil {
		m.failSession(gen, false, fmt.Errorf("identity fetch after renewal: %w", err))
		m.finishLoading()
		return nil
	}

	metrics.SetAuthenticated(true)
	m.finishLoading()
	return nil
}

// Identity returns the current identity, or nil when unauthenticated
func (m *Manager) Identity() *user.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

// Role returns the current role, or the empty role when unauthenticated
func (m *Manager) Role() user.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return ""
	}
	return m.identity.Role
}

// Loading reports whether session restoration has not yet resolved
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Token implements oauth2.TokenSource, supplying the bearer token for
// authenticated resource requests.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pair == nil {
		return nil, apperrors.ErrNotAuthenticated
	}
	return &oauth2.Token{
		AccessToken: m.pair.AccessToken,
		TokenType:   token.TokenTypeBearer,
		Expiry:      m.pair.ExpiresAt,
	}, nil
}

// scheduleRenewalLocked arms the renewal timer at margin before expiry,
// replacing any pending timer so at most one is ever outstanding. A
// nonpositive delay fires the renewal immediately.
func (m *Manager) scheduleRenewalLocked(expiresAt time.Time) {
	m.cancelTimerLocked()

	delay := expiresAt.Sub(m.clock.Now()) - m.margin
	if delay < 0 {
		delay = 0
	}
	m.cancelTimer = m.sched.Schedule(delay, m.renewFromTimer)
}

func (m *Manager) cancelTimerLocked() {
	if m.cancelTimer != nil {
		m.cancelTimer()
		m.cancelTimer = nil
	}
}

// renewFromTimer is the timer callback for proactive renewal
func (m *Manager) renewFromTimer() {
	m.mu.Lock()
	if m.pair == nil {
		m.mu.Unlock()
		return
	}
	gen := m.gen
	refreshToken := m.pair.RefreshToken
	m.state = StateRenewing
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	_ = m.renewOnce(ctx, gen, refreshToken)
}

// renewOnce performs a single refresh attempt. Failure is fatal for the
// session: no retry, no backoff, the user signs in again.
func (m *Manager) renewOnce(ctx context.Context, gen uint64, refreshToken string) error {
	grant, err := m.auth.Refresh(ctx, refreshToken)
	if err != nil {
		metrics.RecordRenewal("failure")
		m.failSession(gen, true, fmt.Errorf("token renewal: %w", err))
		return err
	}

	pair := grant.Pair(m.clock.Now())

	m.mu.Lock()
	if m.gen != gen {
		// A newer sign-in, sign-out, or renewal already replaced this
		// session; a stale grant must not clobber it.
		m.mu.Unlock()
		metrics.RecordRenewal("stale")
		return nil
	}
	m.pair = pair
	m.state = StateAuthenticated
	m.scheduleRenewalLocked(pair.ExpiresAt)
	m.mu.Unlock()

	if err := m.store.SaveSession(ctx, pair); err != nil {
		m.logger.Warn("failed to persist renewed session", zap.Error(err))
	}

	metrics.RecordRenewal("success")
	return nil
}

// fetchIdentity replaces the identity from the current-user endpoint,
// discarding the result if the session generation moved on meanwhile
func (m *Manager) fetchIdentity(ctx context.Context, gen uint64, accessToken string) error {
	identity, err := m.auth.Me(ctx, accessToken)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return nil
	}
	m.identity = identity
	m.state = StateAuthenticated
	return nil
}

// failSession tears the session down: clears tokens and identity, cancels
// any pending renewal, and optionally fires the signed-out hook (renewal
// failures redirect to login; restore failures resolve quietly).
func (m *Manager) failSession(gen uint64, notify bool, cause error) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.pair = nil
	m.identity = nil
	m.state = StateUnauthenticated
	m.cancelTimerLocked()
	m.mu.Unlock()

	m.logger.Warn("session ended", zap.Error(cause))

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := m.store.ClearSession(ctx); err != nil {
		m.logger.Warn("failed to clear stored session", zap.Error(err))
	}

	metrics.SetAuthenticated(false)
	if notify {
		m.onSignedOut()
	}
}

func (m *Manager) finishLoading() {
	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
}
