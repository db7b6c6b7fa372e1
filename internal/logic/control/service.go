package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ec2keeper/ec2keeper/internal/infra/cache"
	"github.com/ec2keeper/ec2keeper/internal/infra/metrics"
)

// Service executes instance control commands and serves cached reads.
// Reads go through the state cache; mutations invalidate the affected keys
// synchronously so the next read refreshes from ground truth.
type Service struct {
	logger     *slog.Logger
	cloud      Cloud
	ledger     Ledger
	stateCache *cache.Cache[Instance]
	listCache  *cache.Cache[[]Instance]
	tagKey     string
	tagValue   string
	now        func() time.Time
}

// New creates a new control service.
func New(
	logger *slog.Logger,
	cloud Cloud,
	ledger Ledger,
	stateCache *cache.Cache[Instance],
	listCache *cache.Cache[[]Instance],
	tagKey,
	tagValue string,
) *Service {
	return &Service{
		logger:     logger,
		cloud:      cloud,
		ledger:     ledger,
		stateCache: stateCache,
		listCache:  listCache,
		tagKey:     tagKey,
		tagValue:   tagValue,
		now:        time.Now,
	}
}

// Name returns the name of the control service component.
func (s *Service) Name() string {
	return "instance-control"
}

// Ping verifies control plane reachability with a cheap managed-instance
// describe.
func (s *Service) Ping(ctx context.Context) error {
	if _, err := s.cloud.DescribeManagedQuery(ctx); err != nil {
		return fmt.Errorf("control plane unreachable: %w", err)
	}

	return nil
}

// GetStateQuery returns the instance descriptor, served from the cache when
// fresh.
func (s *Service) GetStateQuery(ctx context.Context, instanceID string) (*Instance, error) {
	inst, err := s.stateCache.GetOrSet(ctx, stateKey(instanceID), 0, func(ctx context.Context) (Instance, error) {
		described, err := s.cloud.DescribeInstanceQuery(ctx, instanceID)
		if err != nil {
			return Instance{}, err
		}

		return *described, nil
	})
	if err != nil {
		return nil, s.classify(ErrDescribeInstance, err)
	}

	return &inst, nil
}

// ListManagedQuery returns all bot-managed instances (matched by tag),
// served from the cache when fresh.
func (s *Service) ListManagedQuery(ctx context.Context) ([]Instance, error) {
	instances, err := s.listCache.GetOrSet(ctx, s.listKey(), 0, func(ctx context.Context) ([]Instance, error) {
		return s.cloud.DescribeManagedQuery(ctx)
	})
	if err != nil {
		return nil, s.classify(ErrDescribeInstance, err)
	}

	return instances, nil
}

// StartCommand starts the instance and opens an uptime session unless the
// instance was already running.
func (s *Service) StartCommand(ctx context.Context, actor, instanceID string) (*StateChange, error) {
	change, err := s.cloud.StartCommand(ctx, instanceID)

	s.audit(ctx, actor, "start", instanceID, err)
	metrics.RecordControlCommand("start", err == nil)

	if err != nil {
		return nil, s.classify(ErrStartInstance, err)
	}

	s.invalidate(instanceID)

	if change.Previous != StateRunning {
		if _, err := s.ledger.StartSessionCommand(ctx, instanceID); err != nil {
			// The instance is already starting; losing the session only
			// costs historical accuracy, so log and move on.
			s.logger.ErrorContext(ctx, "open uptime session failed",
				"instance", instanceID,
				"reason", err,
			)
		}
	}

	return change, nil
}

// StopCommand stops the instance and closes its open uptime session.
// StopResult.SessionSeconds is nil when the bot never saw the start.
func (s *Service) StopCommand(ctx context.Context, actor, instanceID string) (*StopResult, error) {
	change, err := s.cloud.StopCommand(ctx, instanceID)

	s.audit(ctx, actor, "stop", instanceID, err)
	metrics.RecordControlCommand("stop", err == nil)

	if err != nil {
		return nil, s.classify(ErrStopInstance, err)
	}

	s.invalidate(instanceID)

	duration, err := s.ledger.EndSessionCommand(ctx, instanceID)
	if err != nil {
		s.logger.ErrorContext(ctx, "close uptime session failed",
			"instance", instanceID,
			"reason", err,
		)
	}

	return &StopResult{
		Change:         *change,
		SessionSeconds: duration,
	}, nil
}

// RebootCommand reboots the instance. The session stays open: a reboot does
// not end billed uptime.
func (s *Service) RebootCommand(ctx context.Context, actor, instanceID string) error {
	err := s.cloud.RebootCommand(ctx, instanceID)

	s.audit(ctx, actor, "reboot", instanceID, err)
	metrics.RecordControlCommand("reboot", err == nil)

	if err != nil {
		return s.classify(ErrRebootInstance, err)
	}

	s.invalidate(instanceID)

	return nil
}

// DailyReportQuery sums the ledger's closed sessions for the UTC day and,
// when the day is today and the instance is running, adds the live
// session's elapsed time from the ground-truth launch time.
func (s *Service) DailyReportQuery(ctx context.Context, instanceID string, day time.Time) (*UptimeReport, error) {
	date := day.UTC().Format("2006-01-02")

	closed, err := s.ledger.DailyUptimeQuery(ctx, instanceID, date)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUptimeReport, err)
	}

	report := &UptimeReport{
		InstanceID:    instanceID,
		Scope:         "daily",
		Date:          date,
		ClosedSeconds: closed,
	}

	if date == s.now().UTC().Format("2006-01-02") {
		report.LiveSeconds = s.liveSeconds(ctx, instanceID)
	}

	report.TotalSeconds = report.ClosedSeconds + report.LiveSeconds

	return report, nil
}

// MonthlyReportQuery is DailyReportQuery over the half-open month range.
func (s *Service) MonthlyReportQuery(ctx context.Context, instanceID string, year, month int) (*UptimeReport, error) {
	closed, err := s.ledger.MonthlyUptimeQuery(ctx, instanceID, year, month)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUptimeReport, err)
	}

	report := &UptimeReport{
		InstanceID:    instanceID,
		Scope:         "monthly",
		Year:          year,
		Month:         month,
		ClosedSeconds: closed,
	}

	now := s.now().UTC()
	if now.Year() == year && int(now.Month()) == month {
		report.LiveSeconds = s.liveSeconds(ctx, instanceID)
	}

	report.TotalSeconds = report.ClosedSeconds + report.LiveSeconds

	return report, nil
}

// ReconcileSessionsCommand aligns ledger sessions with observed ground truth
// after a process restart: open sessions for instances now stopped are
// closed, and running instances without a session get one opened.
func (s *Service) ReconcileSessionsCommand(ctx context.Context) error {
	instances, err := s.cloud.DescribeManagedQuery(ctx)
	if err != nil {
		return s.classify(ErrDescribeInstance, err)
	}

	for i := range instances {
		inst := &instances[i]

		open, err := s.ledger.HasOpenSessionQuery(ctx, inst.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "session reconcile query failed",
				"instance", inst.ID,
				"reason", err,
			)

			continue
		}

		switch {
		case inst.State == StateRunning && !open:
			if _, err := s.ledger.StartSessionCommand(ctx, inst.ID); err != nil {
				s.logger.ErrorContext(ctx, "session reconcile open failed",
					"instance", inst.ID,
					"reason", err,
				)
			}
		case inst.State != StateRunning && inst.State != StatePending && open:
			if _, err := s.ledger.EndSessionCommand(ctx, inst.ID); err != nil {
				s.logger.ErrorContext(ctx, "session reconcile close failed",
					"instance", inst.ID,
					"reason", err,
				)
			}
		}
	}

	return nil
}

// CacheStatsQuery returns per-cache counters for the status endpoint.
func (s *Service) CacheStatsQuery() map[string]cache.Stats {
	return map[string]cache.Stats{
		"state":     s.stateCache.Stats(),
		"instances": s.listCache.Stats(),
	}
}

// liveSeconds returns the running session's elapsed seconds from the
// ground-truth launch time, 0 when the instance is not running or cannot
// be described. Reports degrade to ledger data rather than hard-failing.
func (s *Service) liveSeconds(ctx context.Context, instanceID string) int64 {
	inst, err := s.cloud.DescribeInstanceQuery(ctx, instanceID)
	if err != nil {
		s.logger.WarnContext(ctx, "live uptime unavailable, reporting closed sessions only",
			"instance", instanceID,
			"reason", err,
		)

		return 0
	}

	if inst.State != StateRunning || inst.LaunchTime == nil {
		return 0
	}

	return int64(s.now().Sub(*inst.LaunchTime) / time.Second)
}

func (s *Service) invalidate(instanceID string) {
	s.stateCache.Delete(stateKey(instanceID))
	s.listCache.Delete(s.listKey())
}

func (s *Service) audit(ctx context.Context, actor, command, instanceID string, cmdErr error) {
	errMsg := ""
	if cmdErr != nil {
		errMsg = cmdErr.Error()
	}

	if err := s.ledger.AuditCommand(ctx, actor, command, instanceID, cmdErr == nil, errMsg); err != nil {
		s.logger.ErrorContext(ctx, "command audit failed",
			"command", command,
			"instance", instanceID,
			"reason", err,
		)
	}
}

func (s *Service) classify(op error, err error) error {
	var target notFound
	if errors.As(err, &target) {
		return fmt.Errorf("%w: %w", op, ErrInstanceNotFound)
	}

	return fmt.Errorf("%w: %w", op, err)
}

func stateKey(instanceID string) string {
	return "state:" + instanceID
}

func (s *Service) listKey() string {
	return "instances:" + s.tagKey + ":" + s.tagValue
}
