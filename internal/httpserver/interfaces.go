package httpserver

import (
	"context"
	"time"

	"github.com/ec2keeper/ec2keeper/internal/infra/cache"
	"github.com/ec2keeper/ec2keeper/internal/infra/health"
	"github.com/ec2keeper/ec2keeper/internal/logic/alerting"
	"github.com/ec2keeper/ec2keeper/internal/logic/control"
)

// appstater is an internal interface for application state management
type appstater interface {
	State() health.State
	IsHealthy() bool
	IsReady(ctx context.Context) bool
	Uptime() time.Duration
	StartTime() time.Time
	Probe(ctx context.Context) []health.ProbeResult
}

// controller is the instance control surface exposed over the API
type controller interface {
	GetStateQuery(ctx context.Context, instanceID string) (*control.Instance, error)
	ListManagedQuery(ctx context.Context) ([]control.Instance, error)
	StartCommand(ctx context.Context, actor, instanceID string) (*control.StateChange, error)
	StopCommand(ctx context.Context, actor, instanceID string) (*control.StopResult, error)
	RebootCommand(ctx context.Context, actor, instanceID string) error
	DailyReportQuery(ctx context.Context, instanceID string, day time.Time) (*control.UptimeReport, error)
	MonthlyReportQuery(ctx context.Context, instanceID string, year, month int) (*control.UptimeReport, error)
	CacheStatsQuery() map[string]cache.Stats
}

// alerter is the alert configuration surface exposed over the API
type alerter interface {
	ConfigsQuery(ctx context.Context, enabledOnly bool) ([]alerting.AlertConfig, error)
	CreateConfigCommand(ctx context.Context, cfg alerting.AlertConfig) (int64, error)
	UpdateConfigCommand(ctx context.Context, id int64, patch alerting.ConfigPatch) (bool, error)
}
