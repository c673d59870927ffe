// Package engine runs the generator under process signal handling.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const defaultShutdownTimeout = 30 * time.Second

// ErrShutdownTimeout is returned when the runner does not return within the
// shutdown timeout after a signal.
var ErrShutdownTimeout = errors.New("shutdown timeout expired")

// Runner is a blocking unit of work that returns once ctx is canceled.
type Runner interface {
	Run(ctx context.Context) error
}

// RunWithGracefulShutdown starts r and handles SIGTERM/SIGINT for graceful shutdown.
// It blocks until r completes or the shutdown timeout expires.
func RunWithGracefulShutdown(ctx context.Context, r Runner, timeout time.Duration) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	return runUntilSignal(ctx, r, timeout, sigCh)
}

func runUntilSignal(ctx context.Context, r Runner, timeout time.Duration, sigCh <-chan os.Signal) error {
	if timeout == 0 {
		timeout = defaultShutdownTimeout
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Run in a separate goroutine so signals are handled while it blocks.
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()

	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
		cancel()

		// Wait for graceful drain with timeout.
		select {
		case err := <-errCh:
			return err
		case <-time.After(timeout):
			slog.Warn("shutdown timeout expired, forcing exit", "timeout", timeout)
			return ErrShutdownTimeout
		}

	case err := <-errCh:
		return err
	}
}
