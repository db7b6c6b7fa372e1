package ledger

import "time"

// Session is one continuous interval an instance was observed running.
// At most one session per instance has a nil StopTime at any moment.
type Session struct {
	ID              int64
	InstanceID      string
	Date            string // UTC calendar day of session start, YYYY-MM-DD
	StartTime       time.Time
	StopTime        *time.Time
	DurationSeconds *int64
}

// AlertConfig is an operator-managed uptime alert definition. The alert
// engine only reads these.
type AlertConfig struct {
	ID                    int64
	Name                  string
	ThresholdHours        int
	ReminderIntervalHours int // 0 = no reminders after the initial firing
	Enabled               bool
	Destination           string // optional notification destination override
	CreatedAt             time.Time
}

// AlertConfigPatch carries optional field updates; nil fields are untouched.
type AlertConfigPatch struct {
	Enabled               *bool
	ThresholdHours        *int
	ReminderIntervalHours *int
}

// AlertFiring is one row of append-only firing history (initial or reminder).
type AlertFiring struct {
	ID          int64
	InstanceID  string
	ConfigID    int64
	TriggeredAt time.Time
	UptimeHours float64
	Delivered   bool
}

// InstanceMetadata is the persisted descriptor snapshot for reporting when
// the control plane is unreachable.
type InstanceMetadata struct {
	InstanceID   string
	InstanceType string
	Region       string
	LaunchTime   *time.Time
	Tags         map[string]string
	LastUpdated  time.Time
}
