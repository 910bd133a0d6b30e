// Package session owns the authenticated-user state of the client: it restores
// a cached session at startup, follows provider notifications, keeps the
// cached record in local storage in step with memory and exposes the
// retry-wrapped account operations.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/acreage/domain"
	"github.com/fastygo/acreage/pkg/retry"
	"github.com/fastygo/acreage/repository"
	"github.com/fastygo/acreage/usecase"
)

const (
	defaultCacheKey = "acreage.auth.session"
	storageTimeout  = 5 * time.Second
)

// Config controls caching and the retry limits of the remote operations.
type Config struct {
	CacheKey    string
	RedirectURL string

	// AuthPolicy covers sign up, sign in, profile update and password reset.
	AuthPolicy    retry.Policy
	SignOutPolicy retry.Policy

	// SkipRejectedRetries stops retrying once the provider has refused a
	// request (bad credentials, validation). Off by default: every failure
	// is retried.
	SkipRejectedRetries bool
}

// DefaultConfig returns the default retry limits.
func DefaultConfig() Config {
	return Config{
		CacheKey: defaultCacheKey,
		AuthPolicy: retry.Policy{
			MaxAttempts: 3,
			Delay:       2 * time.Second,
			Timeout:     15 * time.Second,
		},
		SignOutPolicy: retry.Policy{
			MaxAttempts: 2,
			Delay:       time.Second,
			Timeout:     8 * time.Second,
		},
	}
}

// Listener is notified with a snapshot after every state change. Listeners may
// run concurrently with each other and must not block.
type Listener func(state domain.AuthState)

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.metrics = r
		}
	}
}

// WithRetryOptions appends options to every retried remote call.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(m *Manager) {
		m.retryOpts = append(m.retryOpts, opts...)
	}
}

// Manager is the single source of truth for who is signed in.
type Manager struct {
	provider  usecase.IdentityProvider
	store     repository.KeyValueStore
	cfg       Config
	logger    *zap.Logger
	metrics   Recorder
	now       func() time.Time
	retryOpts []retry.Option

	// effectMu makes a storage write and its state update one step.
	effectMu sync.Mutex

	mu       sync.RWMutex
	state    domain.AuthState
	version  uint64
	inflight int
	started  bool
	stopped  bool
	sub      usecase.Subscription

	listenersMu sync.Mutex
	listeners   map[uint64]Listener
	nextID      uint64
	delivered   uint64
}

// New builds a manager. The startup restore counts as in flight until Start
// resolves it, so the initial state is loading and uninitialized.
func New(provider usecase.IdentityProvider, store repository.KeyValueStore, cfg Config, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if cfg.CacheKey == "" {
		cfg.CacheKey = defaults.CacheKey
	}
	if cfg.AuthPolicy.MaxAttempts <= 0 {
		cfg.AuthPolicy = defaults.AuthPolicy
	}
	if cfg.SignOutPolicy.MaxAttempts <= 0 {
		cfg.SignOutPolicy = defaults.SignOutPolicy
	}

	m := &Manager{
		provider:  provider,
		store:     store,
		cfg:       cfg,
		logger:    logger.Named("session"),
		metrics:   nopRecorder{},
		now:       time.Now,
		state:     domain.AuthState{Loading: true},
		inflight:  1,
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start subscribes to provider notifications and restores the cached session.
// It always leaves the manager initialized, whatever fails along the way.
// Calling Start more than once, or after Stop, does nothing.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started || m.stopped {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	// Subscribe first so no notification is lost while storage is read.
	m.subscribe()
	m.restore(ctx)
}

// Stop unsubscribes from the provider. Any completion arriving afterwards,
// including events, restores and retried operations, leaves state and
// storage untouched.
func (m *Manager) Stop() {
	m.effectMu.Lock()
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		m.effectMu.Unlock()
		return
	}
	m.stopped = true
	sub := m.sub
	m.sub = nil
	m.mu.Unlock()
	m.effectMu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	m.logger.Debug("session manager stopped")
}

// State returns a snapshot of the current auth state.
func (m *Manager) State() domain.AuthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

// IsAuthenticated reports whether a user is currently signed in.
func (m *Manager) IsAuthenticated() bool {
	return m.State().IsAuthenticated()
}

// Subscribe registers l and returns a function removing it.
func (m *Manager) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}
	m.listenersMu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = l
	m.listenersMu.Unlock()

	return func() {
		m.listenersMu.Lock()
		delete(m.listeners, id)
		m.listenersMu.Unlock()
	}
}

// SetUser overwrites only the visible user, for optimistic profile edits made
// elsewhere. The session and the cached record keep the provider's copy.
func (m *Manager) SetUser(user *domain.User) {
	if !m.mutate(func(s *domain.AuthState) {
		s.User = user.Clone()
	}) {
		return
	}
	m.publish()
}

func (m *Manager) subscribe() {
	sub, err := m.provider.OnAuthStateChange(m.handleEvent)
	if err != nil {
		m.logger.Error("auth state subscription failed, continuing without live updates", zap.Error(err))
		return
	}
	if sub == nil {
		return
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	m.sub = sub
	m.mu.Unlock()
}

func (m *Manager) restore(ctx context.Context) {
	cached := m.loadCachedSession(ctx)

	m.effectMu.Lock()
	applied := m.mutate(func(s *domain.AuthState) {
		s.Session = cached
		s.User = nil
		if cached != nil {
			s.User = cached.User.Clone()
		}
		s.Initialized = true
		m.inflight--
		s.Loading = m.inflight > 0
	})
	m.effectMu.Unlock()
	if !applied {
		return
	}

	m.metrics.ObserveTransition(domain.EventInitialSession)
	m.logger.Debug("startup restore resolved", zap.Bool("authenticated", cached != nil))
	m.publish()

	if cached == nil {
		return
	}
	m.hydrate(ctx, cached)
}

// hydrate hands the restored tokens to the provider so its refresh logic owns
// them. It is skipped when an event replaced the session after the restore.
func (m *Manager) hydrate(ctx context.Context, cached *domain.Session) {
	m.effectMu.Lock()
	defer m.effectMu.Unlock()

	m.mu.RLock()
	current := !m.stopped && m.state.Session != nil && m.state.Session.AccessToken == cached.AccessToken
	m.mu.RUnlock()
	if !current {
		m.logger.Debug("skipping provider hydration, session changed since restore")
		return
	}
	if err := m.provider.SetSession(ctx, cached.Clone()); err != nil {
		m.logger.Warn("provider hydration from cached session failed", zap.Error(err))
	}
}

// handleEvent is the provider subscription callback.
func (m *Manager) handleEvent(event domain.AuthEvent, session *domain.Session) {
	m.applyEffect(event, session)
}

// applyEffect persists or evicts the record and then updates state, as one
// step. It is a no-op once the manager is stopped.
func (m *Manager) applyEffect(event domain.AuthEvent, session *domain.Session) {
	if event == domain.EventSignedOut {
		session = nil
	}
	session = session.Clone()

	m.effectMu.Lock()
	if !m.alive() {
		m.effectMu.Unlock()
		m.logger.Debug("dropping auth event after stop", zap.String("event", string(event)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	if session != nil {
		m.persist(ctx, session)
	} else {
		m.evict(ctx)
	}
	cancel()

	applied := m.mutate(func(s *domain.AuthState) {
		s.Session = session
		s.User = nil
		if session != nil {
			s.User = session.User.Clone()
		}
		s.Initialized = true
		s.Loading = m.inflight > 0
	})
	m.effectMu.Unlock()
	if !applied {
		return
	}

	m.metrics.ObserveTransition(event)
	m.logger.Debug("auth state changed",
		zap.String("event", string(event)),
		zap.Bool("authenticated", session != nil))
	m.publish()
}

// clearLocal drops the session from memory and storage ahead of a remote sign out.
func (m *Manager) clearLocal() {
	m.effectMu.Lock()
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	m.evict(ctx)
	cancel()
	applied := m.mutate(func(s *domain.AuthState) {
		s.Session = nil
		s.User = nil
	})
	m.effectMu.Unlock()
	if applied {
		m.metrics.ObserveTransition(domain.EventSignedOut)
		m.publish()
	}
}

func (m *Manager) beginOp() {
	if m.mutate(func(s *domain.AuthState) {
		m.inflight++
		s.Loading = true
	}) {
		m.publish()
	}
}

func (m *Manager) endOp() {
	if m.mutate(func(s *domain.AuthState) {
		if m.inflight > 0 {
			m.inflight--
		}
		s.Loading = m.inflight > 0
	}) {
		m.publish()
	}
}

func (m *Manager) currentSession() *domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Session.Clone()
}

func (m *Manager) alive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.stopped
}

// mutate applies fn under the state lock unless the manager is stopped.
func (m *Manager) mutate(fn func(s *domain.AuthState)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	fn(&m.state)
	m.version++
	return true
}

// publish delivers the latest snapshot. A snapshot older than one already
// delivered is skipped so listeners never move backwards.
func (m *Manager) publish() {
	m.mu.RLock()
	snapshot := m.state.Clone()
	version := m.version
	m.mu.RUnlock()

	m.listenersMu.Lock()
	if version <= m.delivered {
		m.listenersMu.Unlock()
		return
	}
	m.delivered = version
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.listenersMu.Unlock()

	for _, l := range listeners {
		l(snapshot.Clone())
	}
}
