package alerting

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ec2keeper/ec2keeper/internal/infra/metrics"
)

const secondsPerHour = 3600

// Service evaluates managed instances against the configured uptime
// thresholds on a fixed period and notifies on crossings and reminder
// boundaries. Per (instance, config) the effective state machine is
// below-threshold -> triggered -> reminding, reset by the instance stopping.
type Service struct {
	logger           *slog.Logger
	cloud            Cloud
	store            Store
	notifier         Notifier
	interval         time.Duration
	now              func() time.Time
	ready            chan struct{}
	doneCh           chan struct{}
	inShutdown       atomic.Bool
	mu               sync.RWMutex
	lastCycleEndTime time.Time
}

// New creates a new alert engine service.
func New(
	logger *slog.Logger,
	cloud Cloud,
	store Store,
	notifier Notifier,
	interval time.Duration,
) *Service {
	return &Service{
		logger:   logger,
		cloud:    cloud,
		store:    store,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
		ready:    make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Name returns the name of the alert engine component.
func (s *Service) Name() string {
	return "alert-engine"
}

// Start launches the evaluation loop.
func (s *Service) Start(ctx context.Context) error {
	if s.inShutdown.Load() {
		s.logger.InfoContext(ctx, "alert engine is shutting down, skipping start")

		return nil
	}

	go s.RunCommand(ctx)

	return nil
}

// Ping reports readiness and staleness of the evaluation loop.
func (s *Service) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ready:
		lastCycleAge := s.lastCycleAge()
		if lastCycleAge > 2*s.interval {
			return fmt.Errorf("last evaluation cycle was too long ago: %s", lastCycleAge.Round(time.Second).String())
		}

		return nil
	default:
		return fmt.Errorf("alert engine is not ready")
	}
}

// Shutdown waits for the evaluation loop to exit.
func (s *Service) Shutdown(ctx context.Context) error {
	if !s.inShutdown.CompareAndSwap(false, true) {
		s.logger.ErrorContext(ctx, "alert engine is already shutting down, skipping shutdown")

		return nil
	}

	s.logger.InfoContext(ctx, "shutting down alert engine")

	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context done before alert loop exited: %w", ctx.Err())
	case <-s.doneCh:
		s.logger.InfoContext(ctx, "alert loop exited")
	}

	return nil
}

// RunCommand runs evaluation cycles with the configured interval until the
// context is cancelled. Cycles drift under load; that is accepted.
func (s *Service) RunCommand(ctx context.Context) {
	defer close(s.doneCh)

	logger := s.logger.With("component", "alert-engine")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	close(s.ready)

	for {
		err := s.EvaluateCommand(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "evaluation cycle error", "reason", err)
		}

		s.setLastCycleEndTime()

		select {
		case <-ticker.C:
		case <-ctx.Done():
			logger.InfoContext(ctx, "terminating alert evaluation loop")

			return
		}
	}
}

// EvaluateCommand runs one evaluation cycle. A failure on one instance
// never aborts evaluation of the remaining instances; shutdown is honored
// between instances, never mid-call.
func (s *Service) EvaluateCommand(ctx context.Context) error {
	logger := s.logger.With("component", "alert-engine")

	configs, err := s.store.ConfigsQuery(ctx, true)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadConfigs, err)
	}

	instances, err := s.cloud.ManagedInstancesQuery(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrListInstances, err)
	}

	logger.DebugContext(ctx, "starting evaluation cycle",
		"instances", len(instances),
		"configs", len(configs),
	)

	fired := 0

	for i := range instances {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "context done, stopping evaluation cycle")

			return nil
		default:
		}

		n, err := s.evaluateInstance(ctx, logger, &instances[i], configs)
		if err != nil {
			logger.ErrorContext(ctx, "evaluate instance error",
				"instance", instances[i].ID,
				"reason", err,
			)

			continue
		}

		fired += n
	}

	metrics.RecordAlertCycle()

	logger.InfoContext(ctx, "evaluation cycle complete",
		"instances", len(instances),
		"fired", fired,
	)

	return nil
}

func (s *Service) evaluateInstance(
	ctx context.Context,
	logger *slog.Logger,
	inst *Instance,
	configs []AlertConfig,
) (int, error) {
	logger = logger.With("instance", inst.ID)

	if err := s.store.SaveInstanceSnapshotCommand(ctx, *inst); err != nil {
		logger.WarnContext(ctx, "save instance snapshot failed", "reason", err)
	}

	if !inst.Running {
		return 0, nil
	}

	if inst.LaunchTime == nil {
		logger.WarnContext(ctx, "running instance without launch time, skipping")

		return 0, nil
	}

	uptimeHours := s.now().Sub(*inst.LaunchTime).Seconds() / secondsPerHour

	fired := 0

	// Configs arrive ordered by ascending threshold and are evaluated
	// independently: crossing several thresholds in one cycle fires each.
	for _, cfg := range configs {
		if uptimeHours < float64(cfg.ThresholdHours) {
			continue
		}

		kind, err := s.pendingFiringKind(ctx, inst.ID, cfg)
		if err != nil {
			return fired, err
		}

		if kind == "" {
			continue
		}

		if err := s.fire(ctx, logger, inst, cfg, uptimeHours, kind); err != nil {
			return fired, err
		}

		fired++
	}

	return fired, nil
}

// pendingFiringKind decides whether (instance, config) is due: "initial"
// on the first crossing, "reminder" once the reminder interval elapsed
// since the last firing, "" otherwise.
func (s *Service) pendingFiringKind(ctx context.Context, instanceID string, cfg AlertConfig) (string, error) {
	last, err := s.store.LastFiringQuery(ctx, instanceID, cfg.ID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFiringHistory, err)
	}

	if last == nil {
		return "initial", nil
	}

	if cfg.ReminderIntervalHours <= 0 {
		return "", nil
	}

	hoursSinceLast := s.now().Sub(last.TriggeredAt).Seconds() / secondsPerHour
	if hoursSinceLast >= float64(cfg.ReminderIntervalHours) {
		return "reminder", nil
	}

	return "", nil
}

// fire delivers the notification and records the firing regardless of the
// delivery outcome: the delivered flag carries the sink's verdict and the
// next reminder boundary naturally re-attempts, avoiding a retry storm.
func (s *Service) fire(
	ctx context.Context,
	logger *slog.Logger,
	inst *Instance,
	cfg AlertConfig,
	uptimeHours float64,
	kind string,
) error {
	payload := Payload{
		AlertName:             cfg.Name,
		InstanceID:            inst.ID,
		InstanceType:          inst.Type,
		PublicIP:              inst.PublicIP,
		UptimeHours:           uptimeHours,
		ThresholdHours:        cfg.ThresholdHours,
		ReminderIntervalHours: cfg.ReminderIntervalHours,
		Destination:           cfg.Destination,
	}

	deliverErr := s.notifier.DeliverCommand(ctx, payload)
	if deliverErr != nil {
		metrics.RecordAlertDeliveryFailure()

		logger.WarnContext(ctx, "alert delivery failed",
			"alert", cfg.Name,
			"reason", deliverErr,
		)
	}

	firing := Firing{
		InstanceID:  inst.ID,
		ConfigID:    cfg.ID,
		TriggeredAt: s.now(),
		UptimeHours: uptimeHours,
		Delivered:   deliverErr == nil,
	}

	if err := s.store.RecordFiringCommand(ctx, firing); err != nil {
		return fmt.Errorf("%w: %w", ErrRecordFiring, err)
	}

	metrics.RecordAlertFiring(kind)

	logger.InfoContext(ctx, "alert fired",
		"alert", cfg.Name,
		"kind", kind,
		"uptimeHours", fmt.Sprintf("%.3f", uptimeHours),
		"delivered", deliverErr == nil,
	)

	return nil
}

// ConfigsQuery lists alert configurations for the management API.
func (s *Service) ConfigsQuery(ctx context.Context, enabledOnly bool) ([]AlertConfig, error) {
	configs, err := s.store.ConfigsQuery(ctx, enabledOnly)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfigs, err)
	}

	return configs, nil
}

// CreateConfigCommand creates an alert configuration.
func (s *Service) CreateConfigCommand(ctx context.Context, cfg AlertConfig) (int64, error) {
	id, err := s.store.CreateConfigCommand(ctx, cfg)
	if err != nil {
		return 0, fmt.Errorf("create alert config: %w", err)
	}

	return id, nil
}

// UpdateConfigCommand patches an alert configuration; false means the id
// does not exist.
func (s *Service) UpdateConfigCommand(ctx context.Context, id int64, patch ConfigPatch) (bool, error) {
	updated, err := s.store.UpdateConfigCommand(ctx, id, patch)
	if err != nil {
		return false, fmt.Errorf("update alert config: %w", err)
	}

	return updated, nil
}

// Ready returns a channel closed once the evaluation loop has started.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

func (s *Service) lastCycleAge() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return time.Since(s.lastCycleEndTime)
}

func (s *Service) setLastCycleEndTime() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastCycleEndTime = time.Now()
}
