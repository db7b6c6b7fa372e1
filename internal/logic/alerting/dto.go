package alerting

import "time"

// Instance is the ground-truth snapshot the engine evaluates. LaunchTime is
// authoritative from the control plane; ledger sessions may not align with
// out-of-band starts and are never used for alerting uptime.
type Instance struct {
	ID         string
	Type       string
	Region     string
	PublicIP   string
	Running    bool
	LaunchTime *time.Time
	Tags       map[string]string
}

// AlertConfig is an operator-defined uptime threshold, read-only to the
// engine.
type AlertConfig struct {
	ID                    int64  `json:"id"`
	Name                  string `json:"name"`
	ThresholdHours        int    `json:"thresholdHours"`
	ReminderIntervalHours int    `json:"reminderIntervalHours"` // 0 = no reminders
	Enabled               bool   `json:"enabled"`
	Destination           string `json:"destination,omitempty"`
}

// ConfigPatch carries optional config updates; nil fields stay untouched.
type ConfigPatch struct {
	Enabled               *bool `json:"enabled,omitempty"`
	ThresholdHours        *int  `json:"thresholdHours,omitempty"`
	ReminderIntervalHours *int  `json:"reminderIntervalHours,omitempty"`
}

// Firing is one append-only history row, initial crossing or reminder alike.
type Firing struct {
	InstanceID  string
	ConfigID    int64
	TriggeredAt time.Time
	UptimeHours float64
	Delivered   bool
}

// Payload is the notification contract with the sink.
type Payload struct {
	AlertName             string  `json:"alertName"`
	InstanceID            string  `json:"instanceId"`
	InstanceType          string  `json:"instanceType"`
	PublicIP              string  `json:"publicIp,omitempty"`
	UptimeHours           float64 `json:"uptimeHours"`
	ThresholdHours        int     `json:"thresholdHours"`
	ReminderIntervalHours int     `json:"reminderIntervalHours"`
	Destination           string  `json:"-"`
}
