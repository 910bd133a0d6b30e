package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/acreage/domain"
	"github.com/fastygo/acreage/repository"
)

const probeKey = "acreage.monitor.probe"

// ProviderHealth is implemented by the identity provider client.
type ProviderHealth interface {
	Health(ctx context.Context) error
}

// ProbeObserver receives every probe result, e.g. for metrics.
type ProbeObserver interface {
	ObserveProbe(probe string, ok bool)
}

type Monitor struct {
	provider ProviderHealth
	store    repository.KeyValueStore
	observer ProbeObserver

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(provider ProviderHealth, store repository.KeyValueStore, observer ProbeObserver, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		provider: provider,
		store:    store,
		observer: observer,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger.Named("monitor"),
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsOnline reports whether the identity provider answered the last probe.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Provider
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh()
	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh runs every probe once and stores the result.
func (m *Monitor) Refresh() Status {
	status := Status{
		Provider:  m.checkProvider(),
		Storage:   m.checkStorage(),
		LastCheck: time.Now(),
	}
	if m.observer != nil {
		m.observer.ObserveProbe("provider", status.Provider)
		m.observer.ObserveProbe("storage", status.Storage)
	}

	m.mu.Lock()
	prev := m.status
	m.status = status
	m.mu.Unlock()

	if !prev.LastCheck.IsZero() && prev.Provider != status.Provider {
		m.logger.Info("identity provider connectivity changed", zap.Bool("online", status.Provider))
	}
	return status
}

func (m *Monitor) checkProvider() bool {
	if m.provider == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.provider.Health(ctx); err != nil {
		m.logger.Debug("provider probe failed", zap.Error(err))
		return false
	}
	return true
}

// checkStorage reads a key that never exists; a miss proves the store answers.
func (m *Monitor) checkStorage() bool {
	if m.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := m.store.Get(ctx, probeKey)
	if err != nil && !errors.Is(err, domain.ErrRecordNotFound) {
		m.logger.Warn("storage probe failed", zap.Error(err))
		return false
	}
	return true
}
