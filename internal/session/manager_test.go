package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JHMR18/truck-drive/internal/token"
	"github.com/JHMR18/truck-drive/internal/user"
	apperrors "github.com/JHMR18/truck-drive/pkg/errors"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeTimer struct {
	delay     time.Duration
	fn        func()
	cancelled bool
	fired     bool
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) Schedule(delay time.Duration, fn func()) func() {
	s.mu.Lock()
	t := &fakeTimer{delay: delay, fn: fn}
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		t.cancelled = true
		s.mu.Unlock()
	}
}

// pending returns the timers that are armed but not yet fired
func (s *fakeScheduler) pending() []*fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTimer
	for _, t := range s.timers {
		if !t.cancelled && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fire runs the single pending timer and fails the test otherwise
func (s *fakeScheduler) fire(t *testing.T) {
	t.Helper()
	pending := s.pending()
	if len(pending) != 1 {
		t.Fatalf("expected exactly one pending timer, have %d", len(pending))
	}
	s.mu.Lock()
	pending[0].fired = true
	s.mu.Unlock()
	pending[0].fn()
}

type fakeAuth struct {
	mu sync.Mutex

	loginGrant   *token.Grant
	loginErr     error
	refreshGrant *token.Grant
	refreshErr   error
	logoutErr    error
	identity     *user.Identity
	meErr        error

	refreshHook func()

	calls            []string
	lastRefreshToken string
	lastMeToken      string
}

func (a *fakeAuth) record(call string) {
	a.mu.Lock()
	a.calls = append(a.calls, call)
	a.mu.Unlock()
}

func (a *fakeAuth) callCount(call string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (a *fakeAuth) Login(ctx context.Context, email, password string) (*token.Grant, error) {
	a.record("login")
	if a.loginErr != nil {
		return nil, a.loginErr
	}
	return a.loginGrant, nil
}

func (a *fakeAuth) Refresh(ctx context.Context, refreshToken string) (*token.Grant, error) {
	a.record("refresh")
	a.mu.Lock()
	a.lastRefreshToken = refreshToken
	hook := a.refreshHook
	a.mu.Unlock()
	if hook != nil {
		hook()
	}
	if a.refreshErr != nil {
		return nil, a.refreshErr
	}
	return a.refreshGrant, nil
}

func (a *fakeAuth) Logout(ctx context.Context, refreshToken string) error {
	a.record("logout")
	return a.logoutErr
}

func (a *fakeAuth) Me(ctx context.Context, accessToken string) (*user.Identity, error) {
	a.record("me")
	a.mu.Lock()
	a.lastMeToken = accessToken
	a.mu.Unlock()
	if a.meErr != nil {
		return nil, a.meErr
	}
	return a.identity, nil
}

type memStore struct {
	mu         sync.Mutex
	pair       *token.Pair
	loadErr    error
	saveCalls  int
	clearCalls int
}

func (s *memStore) LoadSession(ctx context.Context) (*token.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.pair, nil
}

func (s *memStore) SaveSession(ctx context.Context, pair *token.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	s.saveCalls++
	return nil
}

func (s *memStore) ClearSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = nil
	s.clearCalls++
	return nil
}

func (s *memStore) stored() *token.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair
}

var testIdentity = &user.Identity{
	ID:        "u-1",
	FirstName: "Elena",
	LastName:  "Reyes",
	Email:     "elena@example.org",
	Role:      user.RoleDispatcher,
}

func grant(ttl time.Duration) *token.Grant {
	return &token.Grant{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresIn: ttl}
}

type harness struct {
	manager   *Manager
	auth      *fakeAuth
	store     *memStore
	clock     *fakeClock
	sched     *fakeScheduler
	signedOut *int
}

func newHarness(t *testing.T, auth *fakeAuth, store *memStore) *harness {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	sched := &fakeScheduler{}
	signedOut := 0
	m := NewManager(auth, store, zap.NewNop(),
		WithClock(clock),
		WithScheduler(sched),
		WithSignOutHook(func() { signedOut++ }),
	)
	return &harness{manager: m, auth: auth, store: store, clock: clock, sched: sched, signedOut: &signedOut}
}

func TestSignInStoresDerivedExpiry(t *testing.T) {
	auth := &fakeAuth{loginGrant: grant(15 * time.Minute), identity: testIdentity}
	h := newHarness(t, auth, &memStore{})

	if err := h.manager.SignIn(context.Background(), "elena@example.org", "pw"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	stored := h.store.stored()
	if stored == nil {
		t.Fatal("no session persisted after sign-in")
	}
	want := h.clock.Now().Add(15 * time.Minute)
	if !stored.ExpiresAt.Equal(want) {
		t.Errorf("stored ExpiresAt = %v, want issuance time + server TTL = %v", stored.ExpiresAt, want)
	}
	if h.manager.State() != StateAuthenticated {
		t.Errorf("state = %v, want authenticated", h.manager.State())
	}
	if id := h.manager.Identity(); id == nil || id.ID != "u-1" {
		t.Errorf("identity = %+v", id)
	}
	if !h.manager.Role().IsAdminClass() {
		t.Errorf("role %q should be admin class", h.manager.Role())
	}
}

func TestSignInFailureMutatesNothing(t *testing.T) {
	auth := &fakeAuth{loginErr: apperrors.ErrInvalidCredentials}
	h := newHarness(t, auth, &memStore{})

	err := h.manager.SignIn(context.Background(), "elena@example.org", "bad")
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Fatalf("SignIn() error = %v, want credential rejection", err)
	}
	if h.store.saveCalls != 0 {
		t.Error("failed sign-in must not persist tokens")
	}
	if len(h.sched.pending()) != 0 {
		t.Error("failed sign-in must not schedule renewal")
	}
	if _, err := h.manager.Token(); err == nil {
		t.Error("Token() should fail while unauthenticated")
	}
}

func TestRenewalTimerFiresAtMarginBeforeExpiry(t *testing.T) {
	tests := []struct {
		name      string
		ttl       time.Duration
		wantDelay time.Duration
	}{
		{"comfortable ttl", 15 * time.Minute, 10 * time.Minute},
		{"ttl equal to margin", 5 * time.Minute, 0},
		{"ttl below margin", 3 * time.Minute, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{loginGrant: grant(tt.ttl), identity: testIdentity}
			h := newHarness(t, auth, &memStore{})

			if err := h.manager.SignIn(context.Background(), "e@x.org", "pw"); err != nil {
				t.Fatalf("SignIn() error = %v", err)
			}

			pending := h.sched.pending()
			if len(pending) != 1 {
				t.Fatalf("pending timers = %d, want 1", len(pending))
			}
			if pending[0].delay != tt.wantDelay {
				t.Errorf("timer delay = %v, want %v", pending[0].delay, tt.wantDelay)
			}
		})
	}
}

func TestAtMostOneRenewalTimer(t *testing.T) {
	auth := &fakeAuth{loginGrant: grant(time.Hour), identity: testIdentity}
	h := newHarness(t, auth, &memStore{})

	ctx := context.Background()
	if err := h.manager.SignIn(ctx, "e@x.org", "pw"); err != nil {
		t.Fatalf("first SignIn() error = %v", err)
	}
	if err := h.manager.SignIn(ctx, "e@x.org", "pw"); err != nil {
		t.Fatalf("second SignIn() error = %v", err)
	}

	if pending := h.sched.pending(); len(pending) != 1 {
		t.Errorf("pending timers = %d, want exactly 1 (the newest)", len(pending))
	}
}

func TestTimerRenewalReplacesPairAndReschedules(t *testing.T) {
	auth := &fakeAuth{loginGrant: grant(time.Hour), identity: testIdentity}
	auth.refreshGrant = &token.Grant{AccessToken: "access-2", RefreshToken: "refresh-2", ExpiresIn: time.Hour}
	h := newHarness(t, auth, &memStore{})

	if err := h.manager.SignIn(context.Background(), "e@x.org", "pw"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	h.clock.Advance(55 * time.Minute)
	h.sched.fire(t)

	if auth.lastRefreshToken != "refresh-1" {
		t.Errorf("refresh used token %q, want refresh-1", auth.lastRefreshToken)
	}
	stored := h.store.stored()
	if stored == nil || stored.AccessToken != "access-2" {
		t.Fatalf("stored pair = %+v, want renewed access-2", stored)
	}
	if want := h.clock.Now().Add(time.Hour); !stored.ExpiresAt.Equal(want) {
		t.Errorf("renewed ExpiresAt = %v, want %v", stored.ExpiresAt, want)
	}
	if pending := h.sched.pending(); len(pending) != 1 || pending[0].delay != 55*time.Minute {
		t.Errorf("expected one rescheduled timer at 55m, got %+v", pending)
	}
	if h.manager.State() != StateAuthenticated {
		t.Errorf("state = %v after renewal", h.manager.State())
	}
}

func TestFatalRefreshClearsEverything(t *testing.T) {
	auth := &fakeAuth{loginGrant: grant(time.Hour), identity: testIdentity}
	auth.refreshErr = apperrors.NewAppError(apperrors.ErrCodeSessionExpired, "refresh token rejected", 401)
	h := newHarness(t, auth, &memStore{})

	if err := h.manager.SignIn(context.Background(), "e@x.org", "pw"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	h.sched.fire(t)

	if h.manager.State() != StateUnauthenticated {
		t.Errorf("state = %v, want unauthenticated", h.manager.State())
	}
	if h.manager.Identity() != nil {
		t.Error("identity should be cleared after fatal refresh")
	}
	if _, err := h.manager.Token(); err == nil {
		t.Error("token pair should be cleared after fatal refresh")
	}
	if h.store.stored() != nil {
		t.Error("stored session should be cleared after fatal refresh")
	}
	if *h.signedOut != 1 {
		t.Errorf("signed-out hook fired %d times, want 1 (redirect to login)", *h.signedOut)
	}
	if pending := h.sched.pending(); len(pending) != 0 {
		t.Errorf("pending timers = %d after fatal refresh, want 0", len(pending))
	}
	if auth.callCount("refresh") != 1 {
		t.Errorf("refresh attempts = %d, want 1 (no retry)", auth.callCount("refresh"))
	}
}

func TestSignOutIdempotent(t *testing.T) {
	auth := &fakeAuth{}
	h := newHarness(t, auth, &memStore{})

	if err := h.manager.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() when unauthenticated error = %v", err)
	}
	if h.manager.State() != StateUnauthenticated {
		t.Errorf("state = %v", h.manager.State())
	}
	if auth.callCount("logout") != 0 {
		t.Error("no revocation call expected without a refresh token")
	}

	// And again
	if err := h.manager.SignOut(context.Background()); err != nil {
		t.Fatalf("second SignOut() error = %v", err)
	}
}

func TestSignOutSwallowsNetworkFailure(t *testing.T) {
	auth := &fakeAuth{loginGrant: grant(time.Hour), identity: testIdentity}
	auth.logoutErr = errors.New("backend unreachable")
	h := newHarness(t, auth, &memStore{})

	if err := h.manager.SignIn(context.Background(), "e@x.org", "pw"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if err := h.manager.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error = %v, revocation failures must be swallowed", err)
	}

	if auth.callCount("logout") != 1 {
		t.Errorf("logout calls = %d, want 1", auth.callCount("logout"))
	}
	if h.manager.State() != StateUnauthenticated || h.manager.Identity() != nil {
		t.Error("local state must be cleared regardless of network outcome")
	}
	if h.store.clearCalls == 0 {
		t.Error("stored session must be cleared")
	}
	if *h.signedOut != 1 {
		t.Errorf("signed-out hook fired %d times, want 1", *h.signedOut)
	}
	if pending := h.sched.pending(); len(pending) != 0 {
		t.Error("renewal timer must be cancelled on sign-out")
	}
}

func TestRestoreWithoutStoredSession(t *testing.T) {
	auth := &fakeAuth{}
	h := newHarness(t, auth, &memStore{})

	if !h.manager.Loading() {
		t.Error("Loading() should be true before restoration resolves")
	}
	if err := h.manager.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if h.manager.Loading() {
		t.Error("Loading() should be false after restoration")
	}
	if h.manager.State() != StateUnauthenticated {
		t.Errorf("state = %v", h.manager.State())
	}
	if auth.callCount("refresh") != 0 || auth.callCount("me") != 0 {
		t.Error("no network calls expected without a stored session")
	}
}

func TestRestoreValidSessionWithoutRefresh(t *testing.T) {
	// Sign in, then simulate a process restart one minute later with the
	// persisted tokens still valid.
	auth := &fakeAuth{loginGrant: grant(time.Hour), identity: testIdentity}
	first := newHarness(t, auth, &memStore{})
	if err := first.manager.SignIn(context.Background(), "e@x.org", "pw"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	restartAuth := &fakeAuth{identity: testIdentity}
	h := newHarness(t, restartAuth, first.store)
	h.clock.Advance(time.Minute)

	if err := h.manager.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if h.manager.State() != StateAuthenticated {
		t.Errorf("state = %v, want authenticated", h.manager.State())
	}
	if restartAuth.callCount("refresh") != 0 {
		t.Errorf("refresh calls = %d, want 0 for a still-valid session", restartAuth.callCount("refresh"))
	}
	if restartAuth.callCount("me") != 1 {
		t.Errorf("me calls = %d, want 1", restartAuth.callCount("me"))
	}
	// Renewal scheduled at expiry - elapsed - margin = 60m - 1m - 5m
	if pending := h.sched.pending(); len(pending) != 1 || pending[0].delay != 54*time.Minute {
		t.Errorf("expected one timer at 54m, got %+v", pending)
	}
}

func TestRestoreExpiredSessionRefreshesOnce(t *testing.T) {
	auth := &fakeAuth{identity: testIdentity}
	auth.refreshGrant = &token.Grant{AccessToken: "access-2", RefreshToken: "refresh-2", ExpiresIn: time.Hour}
	store := &memStore{}
	h := newHarness(t, auth, store)

	store.pair = &token.Pair{
		AccessToken:  "access-stale",
		RefreshToken: "refresh-stale",
		ExpiresAt:    h.clock.Now().Add(-time.Minute),
	}

	if err := h.manager.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if auth.callCount("refresh") != 1 {
		t.Fatalf("refresh calls = %d, want exactly 1", auth.callCount("refresh"))
	}
	auth.mu.Lock()
	calls := append([]string(nil), auth.calls...)
	lastMe := auth.lastMeToken
	auth.mu.Unlock()
	if len(calls) != 2 || calls[0] != "refresh" || calls[1] != "me" {
		t.Errorf("call order = %v, want refresh before me", calls)
	}
	if lastMe != "access-2" {
		t.Errorf("identity fetched with %q, want the renewed access token", lastMe)
	}
	if h.manager.State() != StateAuthenticated {
		t.Errorf("state = %v", h.manager.State())
	}
	if h.manager.Loading() {
		t.Error("Loading() should be false after restoration")
	}
}

func TestRestoreExpiredSessionRefreshFails(t *testing.T) {
	auth := &fakeAuth{refreshErr: errors.New("refresh token rejected")}
	store := &memStore{}
	h := newHarness(t, auth, store)

	store.pair = &token.Pair{
		AccessToken:  "access-stale",
		RefreshToken: "refresh-stale",
		ExpiresAt:    h.clock.Now().Add(-time.Hour),
	}

	if err := h.manager.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if h.manager.State() != StateUnauthenticated {
		t.Errorf("state = %v", h.manager.State())
	}
	if store.stored() != nil {
		t.Error("stored session should be cleared after failed renewal")
	}
	if auth.callCount("me") != 0 {
		t.Error("identity must not be fetched after a failed renewal")
	}
	if h.manager.Loading() {
		t.Error("Loading() should resolve even on failure")
	}
}

func TestRestoreIdentityFetchFailureClearsSession(t *testing.T) {
	auth := &fakeAuth{meErr: errors.New("users/me returned 401")}
	store := &memStore{}
	h := newHarness(t, auth, store)

	store.pair = &token.Pair{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    h.clock.Now().Add(time.Hour),
	}

	if err := h.manager.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if h.manager.State() != StateUnauthenticated {
		t.Errorf("state = %v, want unauthenticated", h.manager.State())
	}
	if store.stored() != nil {
		t.Error("stored session should be cleared when the token cannot fetch its owner")
	}
	if pending := h.sched.pending(); len(pending) != 0 {
		t.Error("renewal timer should be cancelled")
	}
}

func TestStaleRenewalDoesNotClobberNewerState(t *testing.T) {
	auth := &fakeAuth{loginGrant: grant(time.Hour), identity: testIdentity}
	auth.refreshGrant = &token.Grant{AccessToken: "access-stale", RefreshToken: "refresh-stale", ExpiresIn: time.Hour}
	h := newHarness(t, auth, &memStore{})

	if err := h.manager.SignIn(context.Background(), "e@x.org", "pw"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	// Sign out while the refresh request is in flight; the grant that
	// comes back belongs to a dead generation and must be discarded.
	auth.refreshHook = func() {
		_ = h.manager.SignOut(context.Background())
	}
	h.sched.fire(t)

	if h.manager.State() != StateUnauthenticated {
		t.Errorf("state = %v, stale renewal must not resurrect the session", h.manager.State())
	}
	if _, err := h.manager.Token(); err == nil {
		t.Error("no token expected after sign-out, even with a late grant")
	}
	if h.store.stored() != nil {
		t.Errorf("stored pair = %+v, want nil", h.store.stored())
	}
}

func TestTokenSource(t *testing.T) {
	auth := &fakeAuth{loginGrant: grant(time.Hour), identity: testIdentity}
	h := newHarness(t, auth, &memStore{})

	if _, err := h.manager.Token(); !errors.Is(err, apperrors.ErrNotAuthenticated) {
		t.Errorf("Token() error = %v, want not authenticated", err)
	}

	if err := h.manager.SignIn(context.Background(), "e@x.org", "pw"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	tok, err := h.manager.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.AccessToken != "access-1" || tok.TokenType != "Bearer" {
		t.Errorf("token = %+v", tok)
	}
	if want := h.clock.Now().Add(time.Hour); !tok.Expiry.Equal(want) {
		t.Errorf("token expiry = %v, want %v", tok.Expiry, want)
	}
}
