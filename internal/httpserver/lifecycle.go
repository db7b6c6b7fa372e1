package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	readTimeout       = 3 * time.Second
	readHeaderTimeout = 3 * time.Second
	writeTimeout      = 5 * time.Second
	idleTimeout       = 60 * time.Second
	maxHeaderBytes    = 1 << 12 // 4kb
)

// lifecycle carries the start/ready/shutdown machinery shared by the API
// and metrics servers.
type lifecycle struct {
	logger     *slog.Logger
	name       string
	port       string
	server     *http.Server
	ready      chan struct{}
	inShutdown atomic.Bool
}

func newLifecycle(logger *slog.Logger, name, port string) lifecycle {
	return lifecycle{
		logger: logger,
		name:   name,
		port:   port,
		ready:  make(chan struct{}),
	}
}

// Name returns the component name.
func (l *lifecycle) Name() string {
	return l.name
}

// Ping returns nil once the listener is accepting connections.
func (l *lifecycle) Ping(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ready:
		return nil
	default:
		return fmt.Errorf("%s is not ready", l.name)
	}
}

// Ready returns a channel that is closed when the listener is accepting
// connections.
func (l *lifecycle) Ready() <-chan struct{} {
	return l.ready
}

// serve binds the listener synchronously so port conflicts surface as a
// start error, then serves in a goroutine and closes the ready channel.
func (l *lifecycle) serve(ctx context.Context, handler http.Handler) error {
	if l.inShutdown.Load() {
		l.logger.InfoContext(ctx, "shutting down, skipping start", "component", l.name)

		return nil
	}

	addr := ":" + l.port
	l.server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}

	lc := &net.ListenConfig{
		KeepAliveConfig: net.KeepAliveConfig{
			Enable: true,
		},
	}

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%s listen tcp: %w", l.name, err)
	}

	l.logger.InfoContext(ctx, "listening", "component", l.name, "addr", listener.Addr().String())

	go func() {
		close(l.ready)

		if err := l.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			l.logger.ErrorContext(ctx, "serve error", "component", l.name, "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully drains the server. Safe to call more than once.
func (l *lifecycle) Shutdown(ctx context.Context) error {
	if !l.inShutdown.CompareAndSwap(false, true) {
		l.logger.ErrorContext(ctx, "already shutting down, skipping shutdown", "component", l.name)

		return nil
	}

	l.logger.InfoContext(ctx, "shutting down", "component", l.name)

	if l.server == nil {
		return nil
	}

	if err := l.server.Shutdown(ctx); err != nil {
		l.logger.ErrorContext(ctx, "shutdown error", "component", l.name, "error", err)

		return fmt.Errorf("%s shutdown: %w", l.name, err)
	}

	l.logger.InfoContext(ctx, "closed properly", "component", l.name)

	return nil
}
