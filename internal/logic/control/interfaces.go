package control

import "context"

// Cloud is the port interface for control plane operations.
// Implementations are provided by adapters in the outbound layer and are
// expected to retry transient failures internally.
type Cloud interface {
	DescribeInstanceQuery(ctx context.Context, instanceID string) (*Instance, error)

	DescribeManagedQuery(ctx context.Context) ([]Instance, error)

	StartCommand(ctx context.Context, instanceID string) (*StateChange, error)

	StopCommand(ctx context.Context, instanceID string) (*StateChange, error)

	RebootCommand(ctx context.Context, instanceID string) error
}

// Ledger is the port interface for durable uptime bookkeeping.
type Ledger interface {
	StartSessionCommand(ctx context.Context, instanceID string) (int64, error)

	EndSessionCommand(ctx context.Context, instanceID string) (*int64, error)

	HasOpenSessionQuery(ctx context.Context, instanceID string) (bool, error)

	DailyUptimeQuery(ctx context.Context, instanceID, date string) (int64, error)

	MonthlyUptimeQuery(ctx context.Context, instanceID string, year, month int) (int64, error)

	AuditCommand(ctx context.Context, actor, command, instanceID string, success bool, errMsg string) error
}

// notFound is a private interface for checking "not found" errors
// without importing the adapter package.
type notFound interface {
	IsNotFound()
}
