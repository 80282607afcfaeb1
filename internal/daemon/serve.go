package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hearthsh/voxd/internal/config"
	"github.com/hearthsh/voxd/internal/ipc"
)

// Serve runs the persistent, single-instance, per-user background service:
// it acquires the single-instance lock, binds the control socket, signals
// readiness to stdout for a spawning client's handshake, and blocks serving
// requests until ctx is cancelled.
func Serve(ctx context.Context, cfg config.Config, logger *slog.Logger, stdout io.Writer) error {
	lockPath, err := ipc.RuntimeLockPath()
	if err != nil {
		return fmt.Errorf("resolve runtime lock path: %w", err)
	}
	lock, err := ipc.AcquireLock(lockPath)
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	defer lock.Release()

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return fmt.Errorf("resolve runtime socket path: %w", err)
	}

	d, err := New(cfg, logger)
	if err != nil {
		return fmt.Errorf("construct daemon: %w", err)
	}
	defer func() {
		d.ShutdownSweep()
		d.Close()
	}()

	probeTimeout := time.Duration(cfg.Timeouts.ClientConnectMS) * time.Millisecond
	listener, err := ipc.Acquire(ctx, socketPath, probeTimeout, 3, nil)
	if err != nil {
		return fmt.Errorf("bind control socket: %w", err)
	}
	defer func() {
		_ = listener.Close()
		_ = ipc.Unbind(socketPath)
	}()

	if _, err := io.WriteString(stdout, "READY\n"); err != nil {
		logger.Warn("failed to write daemon ready handshake", "error", err.Error())
	}
	logger.Info("daemon ready", "socket", socketPath)

	handler := ipc.HandlerFunc(d.Handle)
	if err := ipc.Serve(ctx, listener, handler, 0, logger); err != nil {
		return fmt.Errorf("serve control socket: %w", err)
	}

	logger.Info("daemon shutting down")
	return nil
}
