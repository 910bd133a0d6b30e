package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdown_RunsHooksInReverseOnce(t *testing.T) {
	m := New(time.Second, nil)
	var order []string
	boom := errors.New("close failed")

	m.Register("storage", func(context.Context) error {
		order = append(order, "storage")
		return nil
	})
	m.RegisterStop("session", func() { order = append(order, "session") })
	m.Register("http", func(context.Context) error {
		order = append(order, "http")
		return boom
	})
	m.Register("nil", nil)
	m.RegisterStop("nil-stop", nil)

	err := m.Shutdown(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"http", "session", "storage"}, order)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Len(t, order, 3)
}

func TestShutdown_HooksSeeDeadline(t *testing.T) {
	m := New(50*time.Millisecond, nil)
	var deadline time.Time
	m.Register("probe", func(ctx context.Context) error {
		deadline, _ = ctx.Deadline()
		return nil
	})

	require.NoError(t, m.Shutdown(context.Background()))
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, time.Second)
}
