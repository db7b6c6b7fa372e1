package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/ec2keeper/ec2keeper/internal/adapters/outbound/awsec2"
	"github.com/ec2keeper/ec2keeper/internal/adapters/outbound/ledgerstore"
	"github.com/ec2keeper/ec2keeper/internal/adapters/outbound/webhook"
	"github.com/ec2keeper/ec2keeper/internal/config"
	"github.com/ec2keeper/ec2keeper/internal/httpserver"
	"github.com/ec2keeper/ec2keeper/internal/infra/cache"
	"github.com/ec2keeper/ec2keeper/internal/infra/health"
	"github.com/ec2keeper/ec2keeper/internal/infra/retry"
	"github.com/ec2keeper/ec2keeper/internal/infra/shutdown"
	"github.com/ec2keeper/ec2keeper/internal/ledger"
	"github.com/ec2keeper/ec2keeper/internal/logic/alerting"
	"github.com/ec2keeper/ec2keeper/internal/logic/control"
)

const readyTimeout = 30 * time.Second

type App struct {
	logger   *slog.Logger
	cfg      *config.Config
	appState appstater
	signals  <-chan os.Signal
}

// New creates a new application instance. Wiring happens in Run so every
// dependency sees the run context.
func New(logger *slog.Logger, cfg *config.Config, appState appstater, signals <-chan os.Signal) *App {
	return &App{
		logger:   logger,
		cfg:      cfg,
		appState: appState,
		signals:  signals,
	}
}

// Run wires all components, starts them, and blocks until a termination
// signal arrives, then shuts down in reverse start order.
func (a *App) Run(originCtx context.Context) error {
	ctx, cancel := context.WithCancel(originCtx)
	defer cancel()

	if err := a.appState.SetStarting(ctx); err != nil {
		return fmt.Errorf("set starting application state: %w", err)
	}

	signalHandler := shutdown.New(a.logger, signalSource{ch: a.signals})

	go signalHandler.HandleSignals(ctx, cancel)

	// Uptime ledger
	db, err := ledger.Open(a.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	if err := ledger.Migrate(db); err != nil {
		_ = db.Close()

		return fmt.Errorf("migrate ledger: %w", err)
	}

	uptimeLedger := ledger.New(db)

	if err := a.seedAlerts(ctx, uptimeLedger); err != nil {
		_ = db.Close()

		return err
	}

	// EC2 control plane
	awsCfg, err := a.loadAWSConfig(ctx)
	if err != nil {
		_ = db.Close()

		return fmt.Errorf("load aws config: %w", err)
	}

	invoker := retry.New(a.logger, a.cfg.MaxRetries)
	cloud := awsec2.New(
		a.logger,
		ec2.NewFromConfig(awsCfg),
		invoker,
		awsCfg.Region,
		a.cfg.ManagedTagKey,
		a.cfg.ManagedTagValue,
	)

	// Control service with its caches
	stateCache := cache.New[control.Instance](a.cfg.CacheTTL)
	listCache := cache.New[[]control.Instance](a.cfg.CacheTTL)

	controlService := control.New(
		a.logger,
		cloud,
		uptimeLedger,
		stateCache,
		listCache,
		a.cfg.ManagedTagKey,
		a.cfg.ManagedTagValue,
	)

	sweeper, err := cache.NewSweeper(a.logger, multiCache{stateCache, listCache}, a.cfg.SweepSchedule)
	if err != nil {
		_ = db.Close()

		return fmt.Errorf("create cache sweeper: %w", err)
	}

	go sweeper.Run(ctx)

	// Sessions may have been orphaned by a crash or out-of-band operator
	// action. An unreachable control plane only delays the next reconcile.
	if err := controlService.ReconcileSessionsCommand(ctx); err != nil {
		a.logger.WarnContext(ctx, "startup session reconcile failed", "reason", err)
	}

	// Alert engine
	alertService := alerting.New(
		a.logger,
		cloud,
		ledgerstore.New(uptimeLedger),
		webhook.New(a.logger, a.cfg.WebhookURL),
		a.cfg.AlertInterval,
	)

	// HTTP surfaces
	httpServer := httpserver.New(a.logger, a.appState, controlService, alertService, a.cfg.HTTPPort)
	metricsServer := httpserver.NewMetricsServer(a.logger, a.cfg.MetricsPort)

	for _, pinger := range []health.Pinger{uptimeLedger, controlService, alertService, httpServer, metricsServer} {
		if err := a.appState.Register(pinger); err != nil {
			_ = db.Close()

			return fmt.Errorf("register pinger: %w", err)
		}
	}

	servers := []appServer{metricsServer, httpServer, alertService}

	readyChans := make([]<-chan struct{}, 0, len(servers))

	for _, server := range servers {
		if err := server.Start(ctx); err != nil {
			_ = db.Close()

			return fmt.Errorf("start %s: %w", server.Name(), err)
		}

		readyChans = append(readyChans, server.Ready())
	}

	readyCtx, readyCancel := context.WithTimeout(ctx, readyTimeout)
	defer readyCancel()

	select {
	case <-allChannelsClose(readyCtx, a.logger, readyChans...):
	case <-readyCtx.Done():
		a.logger.WarnContext(ctx, "components not ready before timeout, continuing")
	}

	if err := a.appState.SetRunning(ctx); err != nil {
		return fmt.Errorf("set running application state: %w", err)
	}

	a.logger.InfoContext(ctx, "application running",
		"httpPort", a.cfg.HTTPPort,
		"metricsPort", a.cfg.MetricsPort,
		"alertInterval", a.cfg.AlertInterval,
	)

	<-ctx.Done()

	shutdowners := []shutdown.Shutdowner{uptimeLedger, metricsServer, httpServer, alertService}

	return shutdown.GracefulShutdown(ctx, a.logger, a.appState, shutdowners)
}

func (a *App) loadAWSConfig(ctx context.Context) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{}

	if a.cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(a.cfg.AWSRegion))
	}

	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// seedAlerts inserts alert configs from the seed file, matched by name so
// operator edits over the API survive restarts.
func (a *App) seedAlerts(ctx context.Context, uptimeLedger *ledger.Ledger) error {
	seeds, err := config.LoadAlertSeeds(a.cfg.AlertsFile)
	if err != nil {
		return fmt.Errorf("load alert seeds: %w", err)
	}

	if len(seeds) == 0 {
		return nil
	}

	configs := make([]ledger.AlertConfig, 0, len(seeds))

	for _, seed := range seeds {
		enabled := true
		if seed.Enabled != nil {
			enabled = *seed.Enabled
		}

		configs = append(configs, ledger.AlertConfig{
			Name:                  seed.Name,
			ThresholdHours:        seed.ThresholdHours,
			ReminderIntervalHours: seed.ReminderIntervalHours,
			Enabled:               enabled,
			Destination:           seed.Destination,
		})
	}

	if err := uptimeLedger.SeedAlertConfigsCommand(ctx, configs); err != nil {
		return fmt.Errorf("seed alert configs: %w", err)
	}

	a.logger.InfoContext(ctx, "alert configs seeded", "count", len(configs))

	return nil
}

// allChannelsClose returns a channel that closes once every input channel
// has closed, or the context is done.
func allChannelsClose(ctx context.Context, logger *slog.Logger, chans ...<-chan struct{}) <-chan struct{} {
	out := make(chan struct{})

	go func() {
		defer close(out)

		for _, ch := range chans {
			select {
			case <-ch:
			case <-ctx.Done():
				logger.WarnContext(ctx, "context done while waiting for components")

				return
			}
		}
	}()

	return out
}

// multiCache fans a sweep out over all cache instantiations.
type multiCache []interface{ Sweep() int }

func (m multiCache) Sweep() int {
	total := 0

	for _, c := range m {
		total += c.Sweep()
	}

	return total
}

type signalSource struct {
	ch <-chan os.Signal
}

func (s signalSource) Quit() <-chan os.Signal {
	return s.ch
}
