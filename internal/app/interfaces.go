package app

import (
	"context"
	"time"

	"github.com/ec2keeper/ec2keeper/internal/infra/health"
	"github.com/ec2keeper/ec2keeper/internal/infra/shutdown"
)

// appstater defines the interface for application state management
type appstater interface {
	Register(pinger health.Pinger) error
	SetStarting(ctx context.Context) error
	SetRunning(ctx context.Context) error
	SetTerminating(ctx context.Context)
	State() health.State
	Uptime() time.Duration
	StartTime() time.Time
	IsHealthy() bool
	IsReady(ctx context.Context) bool
	Probe(ctx context.Context) []health.ProbeResult
}

type appServer interface {
	health.Pinger
	Start(ctx context.Context) error
	Ready() <-chan struct{}
	shutdown.Shutdowner
}
