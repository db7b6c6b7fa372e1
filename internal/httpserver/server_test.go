package httpserver_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ec2keeper/ec2keeper/internal/httpserver"
	"github.com/ec2keeper/ec2keeper/internal/infra/cache"
	"github.com/ec2keeper/ec2keeper/internal/infra/health"
	"github.com/ec2keeper/ec2keeper/internal/logic/alerting"
	"github.com/ec2keeper/ec2keeper/internal/logic/control"
)

type fakeController struct{}

func (f *fakeController) GetStateQuery(_ context.Context, _ string) (*control.Instance, error) {
	return nil, control.ErrInstanceNotFound
}

func (f *fakeController) ListManagedQuery(_ context.Context) ([]control.Instance, error) {
	return nil, nil
}

func (f *fakeController) StartCommand(_ context.Context, _, _ string) (*control.StateChange, error) {
	return nil, control.ErrInstanceNotFound
}

func (f *fakeController) StopCommand(_ context.Context, _, _ string) (*control.StopResult, error) {
	return nil, control.ErrInstanceNotFound
}

func (f *fakeController) RebootCommand(_ context.Context, _, _ string) error {
	return nil
}

func (f *fakeController) DailyReportQuery(_ context.Context, _ string, _ time.Time) (*control.UptimeReport, error) {
	return nil, control.ErrInstanceNotFound
}

func (f *fakeController) MonthlyReportQuery(_ context.Context, _ string, _, _ int) (*control.UptimeReport, error) {
	return nil, control.ErrInstanceNotFound
}

func (f *fakeController) CacheStatsQuery() map[string]cache.Stats {
	return nil
}

type fakeAlerter struct{}

func (f *fakeAlerter) ConfigsQuery(_ context.Context, _ bool) ([]alerting.AlertConfig, error) {
	return nil, nil
}

func (f *fakeAlerter) CreateConfigCommand(_ context.Context, _ alerting.AlertConfig) (int64, error) {
	return 1, nil
}

func (f *fakeAlerter) UpdateConfigCommand(_ context.Context, _ int64, _ alerting.ConfigPatch) (bool, error) {
	return true, nil
}

func newTestServer(port string) *httpserver.Server {
	logger := slog.New(slog.DiscardHandler)
	registry := health.New(logger, time.Now())

	return httpserver.New(logger, registry, &fakeController{}, &fakeAlerter{}, port)
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("empty port uses default", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer("")
		require.NotNil(t, srv)
	})

	t.Run("non-empty port is used", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer("9090")
		require.NotNil(t, srv)
	})
}

func TestServer_Name(t *testing.T) {
	t.Parallel()

	require.Equal(t, "http-server", newTestServer("").Name())
}

func TestServer_Ping(t *testing.T) {
	t.Parallel()

	t.Run("before ready returns error", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer("")

		err := srv.Ping(t.Context())
		require.Error(t, err)
	})

	t.Run("after ready returns nil", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer("0")

		ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)

		defer cancel()

		require.NoError(t, srv.Start(ctx))

		select {
		case <-srv.Ready():
		case <-time.After(1 * time.Second):
			t.Fatal("server did not become ready")
		}

		require.NoError(t, srv.Ping(t.Context()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()

		_ = srv.Shutdown(shutdownCtx)
	})
}
