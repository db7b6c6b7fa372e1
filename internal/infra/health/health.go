// Package health tracks the application lifecycle state and probes the
// registered components on demand.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State represents the application state.
type State string

const (
	// StateInit is the initial state when the application is created
	StateInit State = "init"

	// StateStarting is the state when the application is starting up
	StateStarting State = "starting"

	// StateRunning is the state when the application is running normally
	StateRunning State = "running"

	// StateTerminating is the state when the application is shutting down
	StateTerminating State = "terminating"
)

const defaultPingTimeout = 1 * time.Second

// Pinger is the contract health-checked components implement.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// ProbeResult is the outcome of one component probe.
type ProbeResult struct {
	Component string `json:"component"`
	Healthy   bool   `json:"healthy"`
	Error     string `json:"error,omitempty"`
}

// Registry manages the application state and the registered pingers with
// thread-safe operations.
type Registry struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	startedAt time.Time
	state     State
	pingers   []Pinger
}

// New creates a new registry in the init state.
func New(logger *slog.Logger, appStart time.Time) *Registry {
	return &Registry{
		logger:    logger,
		startedAt: appStart,
		state:     StateInit,
	}
}

// Register adds a component to the probe set. Duplicate names are rejected.
func (r *Registry) Register(pinger Pinger) error {
	if pinger == nil {
		return fmt.Errorf("register pinger: pinger cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.pingers {
		if existing.Name() == pinger.Name() {
			return fmt.Errorf("register pinger %s: %w", pinger.Name(), ErrAlreadyRegistered)
		}
	}

	r.pingers = append(r.pingers, pinger)

	return nil
}

// SetStarting transitions the state from Init to Starting.
func (r *Registry) SetStarting(ctx context.Context) error {
	return r.transition(ctx, StateInit, StateStarting)
}

// SetRunning transitions the state from Starting to Running.
func (r *Registry) SetRunning(ctx context.Context) error {
	return r.transition(ctx, StateStarting, StateRunning)
}

// SetTerminating marks the application as shutting down. Valid from any
// state; readiness fails from here on.
func (r *Registry) SetTerminating(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.InfoContext(ctx, "application state transition",
		"from", r.state,
		"to", StateTerminating,
	)

	r.state = StateTerminating
}

// State returns the current application state.
func (r *Registry) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state
}

// Uptime returns the time since application start.
func (r *Registry) Uptime() time.Duration {
	return time.Since(r.startedAt)
}

// StartTime returns the application start time.
func (r *Registry) StartTime() time.Time {
	return r.startedAt
}

// IsReady reports whether the application accepts work: state is running
// and every registered component answers its probe.
func (r *Registry) IsReady(ctx context.Context) bool {
	if r.State() != StateRunning {
		return false
	}

	for _, result := range r.Probe(ctx) {
		if !result.Healthy {
			return false
		}
	}

	return true
}

// IsHealthy reports liveness: anything but init is alive, terminating
// included, so shutdown never triggers a restart.
func (r *Registry) IsHealthy() bool {
	return r.State() != StateInit
}

// Probe pings every registered component with a bounded timeout and
// returns per-component results in registration order.
func (r *Registry) Probe(ctx context.Context) []ProbeResult {
	r.mu.RLock()
	pingers := make([]Pinger, len(r.pingers))
	copy(pingers, r.pingers)
	r.mu.RUnlock()

	results := make([]ProbeResult, 0, len(pingers))

	for _, pinger := range pingers {
		pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)

		err := pinger.Ping(pingCtx)

		cancel()

		result := ProbeResult{
			Component: pinger.Name(),
			Healthy:   err == nil,
		}

		if err != nil {
			result.Error = err.Error()

			r.logger.WarnContext(ctx, "component probe failed",
				"component", pinger.Name(),
				"reason", err,
			)
		}

		results = append(results, result)
	}

	return results
}

func (r *Registry) transition(ctx context.Context, from, to State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != from {
		return fmt.Errorf("transition %s to %s from %s: %w", from, to, r.state, ErrInvalidStateTransition)
	}

	r.logger.InfoContext(ctx, "application state transition",
		"from", from,
		"to", to,
	)

	r.state = to

	return nil
}
