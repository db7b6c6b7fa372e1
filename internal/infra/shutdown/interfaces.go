package shutdown

import (
	"context"
	"os"
)

// Shutdowner is the interface that components must implement for graceful shutdown
type Shutdowner interface {
	Name() string
	Shutdown(ctx context.Context) error
}

// terminater marks the application as shutting down before components stop
type terminater interface {
	SetTerminating(ctx context.Context)
}

type quiter interface {
	Quit() <-chan os.Signal
}
