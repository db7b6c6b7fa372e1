package alerting

import "context"

// Cloud is the port for ground-truth instance state. Implementations must
// not serve cached data: the engine alerts on what the control plane says
// now, not on what a cache remembers.
type Cloud interface {
	ManagedInstancesQuery(ctx context.Context) ([]Instance, error)
}

// Store is the port for alert configuration and firing history, backed by
// the uptime ledger.
type Store interface {
	ConfigsQuery(ctx context.Context, enabledOnly bool) ([]AlertConfig, error)

	CreateConfigCommand(ctx context.Context, cfg AlertConfig) (int64, error)

	UpdateConfigCommand(ctx context.Context, id int64, patch ConfigPatch) (bool, error)

	LastFiringQuery(ctx context.Context, instanceID string, configID int64) (*Firing, error)

	RecordFiringCommand(ctx context.Context, firing Firing) error

	SaveInstanceSnapshotCommand(ctx context.Context, inst Instance) error
}

// Notifier is the delivery contract with the notification sink.
type Notifier interface {
	DeliverCommand(ctx context.Context, payload Payload) error
}
