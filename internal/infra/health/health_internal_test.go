package health

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	name string
	err  error
}

func (p *fakePinger) Name() string { return p.name }

func (p *fakePinger) Ping(_ context.Context) error { return p.err }

func newTestRegistry() *Registry {
	return New(slog.New(slog.DiscardHandler), time.Now())
}

func TestStateTransitions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("init through running to terminating", func(t *testing.T) {
		t.Parallel()

		reg := newTestRegistry()
		require.Equal(t, StateInit, reg.State())

		require.NoError(t, reg.SetStarting(ctx))
		require.Equal(t, StateStarting, reg.State())

		require.NoError(t, reg.SetRunning(ctx))
		require.Equal(t, StateRunning, reg.State())

		reg.SetTerminating(ctx)
		require.Equal(t, StateTerminating, reg.State())
	})

	t.Run("skipping starting is rejected", func(t *testing.T) {
		t.Parallel()

		reg := newTestRegistry()

		err := reg.SetRunning(ctx)
		require.ErrorIs(t, err, ErrInvalidStateTransition)
	})

	t.Run("double starting is rejected", func(t *testing.T) {
		t.Parallel()

		reg := newTestRegistry()
		require.NoError(t, reg.SetStarting(ctx))

		err := reg.SetStarting(ctx)
		require.ErrorIs(t, err, ErrInvalidStateTransition)
	})
}

func TestRegister(t *testing.T) {
	t.Parallel()

	t.Run("duplicate names are rejected", func(t *testing.T) {
		t.Parallel()

		reg := newTestRegistry()

		require.NoError(t, reg.Register(&fakePinger{name: "ledger"}))

		err := reg.Register(&fakePinger{name: "ledger"})
		require.ErrorIs(t, err, ErrAlreadyRegistered)
	})

	t.Run("nil pinger is rejected", func(t *testing.T) {
		t.Parallel()

		reg := newTestRegistry()

		require.Error(t, reg.Register(nil))
	})
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("not ready before running", func(t *testing.T) {
		t.Parallel()

		reg := newTestRegistry()
		require.False(t, reg.IsReady(ctx))

		require.NoError(t, reg.SetStarting(ctx))
		require.False(t, reg.IsReady(ctx))
	})

	t.Run("ready when running and all probes pass", func(t *testing.T) {
		t.Parallel()

		reg := newTestRegistry()
		require.NoError(t, reg.Register(&fakePinger{name: "ledger"}))
		require.NoError(t, reg.Register(&fakePinger{name: "alert-engine"}))

		require.NoError(t, reg.SetStarting(ctx))
		require.NoError(t, reg.SetRunning(ctx))

		require.True(t, reg.IsReady(ctx))
	})

	t.Run("one failing probe blocks readiness", func(t *testing.T) {
		t.Parallel()

		reg := newTestRegistry()
		require.NoError(t, reg.Register(&fakePinger{name: "ledger"}))
		require.NoError(t, reg.Register(&fakePinger{name: "alert-engine", err: errors.New("not ready")}))

		require.NoError(t, reg.SetStarting(ctx))
		require.NoError(t, reg.SetRunning(ctx))

		require.False(t, reg.IsReady(ctx))
	})

	t.Run("not ready while terminating", func(t *testing.T) {
		t.Parallel()

		reg := newTestRegistry()
		require.NoError(t, reg.SetStarting(ctx))
		require.NoError(t, reg.SetRunning(ctx))

		reg.SetTerminating(ctx)

		require.False(t, reg.IsReady(ctx))
	})
}

func TestProbe(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry()
	require.NoError(t, reg.Register(&fakePinger{name: "ledger"}))
	require.NoError(t, reg.Register(&fakePinger{name: "alert-engine", err: errors.New("stale cycle")}))

	results := reg.Probe(context.Background())
	require.Len(t, results, 2)

	require.Equal(t, "ledger", results[0].Component)
	require.True(t, results[0].Healthy)
	require.Empty(t, results[0].Error)

	require.Equal(t, "alert-engine", results[1].Component)
	require.False(t, results[1].Healthy)
	require.Equal(t, "stale cycle", results[1].Error)
}

func TestHealthyAndUptime(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	reg := newTestRegistry()
	require.False(t, reg.IsHealthy())

	require.NoError(t, reg.SetStarting(ctx))
	require.True(t, reg.IsHealthy())

	reg.SetTerminating(ctx)
	require.True(t, reg.IsHealthy())

	require.GreaterOrEqual(t, reg.Uptime(), time.Duration(0))
}
