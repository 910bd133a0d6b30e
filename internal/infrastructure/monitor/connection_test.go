package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/acreage/repository/memory"
)

type providerFunc func(ctx context.Context) error

func (f providerFunc) Health(ctx context.Context) error { return f(ctx) }

type brokenStore struct {
	*memory.KeyValueRepository
}

func (brokenStore) Get(context.Context, string) (string, error) {
	return "", errors.New("database not open")
}

type probeLog struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (p *probeLog) ObserveProbe(probe string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen[probe] = ok
}

func TestRefresh(t *testing.T) {
	healthy := providerFunc(func(context.Context) error { return nil })
	down := providerFunc(func(context.Context) error { return errors.New("503") })

	tests := []struct {
		name     string
		provider ProviderHealth
		store    bool
		broken   bool
		want     Status
	}{
		{name: "all healthy", provider: healthy, store: true, want: Status{Provider: true, Storage: true}},
		{name: "provider down", provider: down, store: true, want: Status{Storage: true}},
		{name: "storage broken", provider: healthy, store: true, broken: true, want: Status{Provider: true}},
		{name: "nothing wired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m *Monitor
			log := &probeLog{seen: map[string]bool{}}
			switch {
			case tt.broken:
				m = New(tt.provider, brokenStore{memory.NewKeyValueRepository()}, log, time.Minute, nil)
			case tt.store:
				m = New(tt.provider, memory.NewKeyValueRepository(), log, time.Minute, nil)
			default:
				m = New(nil, nil, log, time.Minute, nil)
			}

			got := m.Refresh()
			assert.Equal(t, tt.want.Provider, got.Provider)
			assert.Equal(t, tt.want.Storage, got.Storage)
			assert.Equal(t, tt.want.Provider && tt.want.Storage, got.Healthy())
			assert.False(t, got.LastCheck.IsZero())
			assert.Equal(t, got, m.GetStatus())
			assert.Equal(t, tt.want.Provider, m.IsOnline())
			assert.Equal(t, map[string]bool{"provider": tt.want.Provider, "storage": tt.want.Storage}, log.seen)
		})
	}
}

func TestStartStop(t *testing.T) {
	probed := make(chan struct{}, 1)
	m := New(providerFunc(func(context.Context) error {
		select {
		case probed <- struct{}{}:
		default:
		}
		return nil
	}), memory.NewKeyValueRepository(), nil, time.Hour, nil)

	m.Start()
	select {
	case <-probed:
	case <-time.After(2 * time.Second):
		require.Fail(t, "monitor did not probe on start")
	}
	m.Stop()
	m.Stop()
}
