package control

import "time"

// LifecycleState is the control plane lifecycle state of an instance.
type LifecycleState string

const (
	StatePending      LifecycleState = "pending"
	StateRunning      LifecycleState = "running"
	StateStopping     LifecycleState = "stopping"
	StateStopped      LifecycleState = "stopped"
	StateShuttingDown LifecycleState = "shutting-down"
	StateTerminated   LifecycleState = "terminated"
)

// Instance is an immutable descriptor snapshot. It is replaced wholesale on
// refresh, never patched field by field.
type Instance struct {
	ID         string            `json:"instanceId"`
	State      LifecycleState    `json:"state"`
	Type       string            `json:"instanceType"`
	Region     string            `json:"region"`
	PublicIP   string            `json:"publicIp,omitempty"`
	PrivateIP  string            `json:"privateIp,omitempty"`
	LaunchTime *time.Time        `json:"launchTime,omitempty"` // present only while not stopped
	Tags       map[string]string `json:"tags,omitempty"`
}

// StateChange is the control plane's previous/current state pair returned
// by start and stop.
type StateChange struct {
	Previous LifecycleState `json:"previousState"`
	Current  LifecycleState `json:"currentState"`
}

// StopResult pairs the state change with the closed uptime session's
// duration. SessionSeconds is nil when the ledger had no open session,
// e.g. an instance started out of band.
type StopResult struct {
	Change         StateChange `json:"change"`
	SessionSeconds *int64      `json:"sessionSeconds,omitempty"`
}

// UptimeReport aggregates ledger totals with the live running session.
type UptimeReport struct {
	InstanceID    string `json:"instanceId"`
	Scope         string `json:"scope"` // "daily" or "monthly"
	Date          string `json:"date,omitempty"`
	Year          int    `json:"year,omitempty"`
	Month         int    `json:"month,omitempty"`
	ClosedSeconds int64  `json:"closedSeconds"`
	LiveSeconds   int64  `json:"liveSeconds"`
	TotalSeconds  int64  `json:"totalSeconds"`
}
