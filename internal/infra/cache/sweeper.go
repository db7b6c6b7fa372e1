package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	cron "github.com/netresearch/go-cron"
)

var _parser = cron.MustNewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// sweepable lets the sweeper drive any cache instantiation without caring
// about the value type.
type sweepable interface {
	Sweep() int
}

// Sweeper periodically evicts expired entries on a cron schedule.
type Sweeper struct {
	logger   *slog.Logger
	target   sweepable
	schedule cron.Schedule
	doneCh   chan struct{}
}

// NewSweeper creates a sweeper for target driven by the cron spec
// (e.g. "*/5 * * * *"). The schedule is evaluated in UTC unless the spec
// carries its own CRON_TZ prefix.
func NewSweeper(logger *slog.Logger, target sweepable, spec string) (*Sweeper, error) {
	if !strings.HasPrefix(spec, "CRON_TZ=") && !strings.HasPrefix(spec, "TZ=") {
		spec = "CRON_TZ=UTC " + spec
	}

	schedule, err := _parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse sweep cron spec %q: %w", spec, err)
	}

	return &Sweeper{
		logger:   logger,
		target:   target,
		schedule: schedule,
		doneCh:   make(chan struct{}),
	}, nil
}

// Name returns the name of the sweeper component.
func (s *Sweeper) Name() string {
	return "cache-sweeper"
}

// Run drives sweeps until the context is cancelled. Sweeps are scheduled
// from the end of the previous sweep, so drift under load is possible and
// accepted.
func (s *Sweeper) Run(ctx context.Context) {
	defer close(s.doneCh)

	logger := s.logger.With("component", "cache-sweeper")

	for {
		next := s.schedule.Next(time.Now())

		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.InfoContext(ctx, "terminating sweep loop")

			return
		case <-timer.C:
		}

		swept := s.target.Sweep()
		if swept > 0 {
			logger.DebugContext(ctx, "swept expired cache entries", "count", swept)
		}
	}
}

// Done is closed when the sweep loop has exited.
func (s *Sweeper) Done() <-chan struct{} {
	return s.doneCh
}
