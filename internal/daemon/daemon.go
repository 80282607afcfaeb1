// Package daemon implements the long-lived, single-instance, per-user
// background service: the persistent connection server that owns the
// runtime state machine, both hold-session managers, the execution queue,
// and the wake-word trigger coordinator for the process's entire lifetime.
package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/hearthsh/voxd/internal/config"
	"github.com/hearthsh/voxd/internal/fsm"
	"github.com/hearthsh/voxd/internal/indicator"
	"github.com/hearthsh/voxd/internal/ipc"
	"github.com/hearthsh/voxd/internal/output"
	"github.com/hearthsh/voxd/internal/procident"
	"github.com/hearthsh/voxd/internal/queue"
	"github.com/hearthsh/voxd/internal/session"
	"github.com/hearthsh/voxd/internal/transcribe"
	"github.com/hearthsh/voxd/internal/wake"
)

// Daemon is the process-wide runtime core: one instance is constructed at
// daemon startup and lives until shutdown, dispatching every IPC action
// against shared, long-lived dependencies.
type Daemon struct {
	logger *slog.Logger
	cfg    config.Config

	machine    *fsm.Machine
	dictateMgr *session.Manager
	commandMgr *session.Manager
	registry   *session.Registry

	queue       *queue.Queue
	wakeCoord   *wake.Coordinator
	wakeWatcher *wake.StateWatcher

	transcriber *transcribe.Transcriber
	committer   *output.Committer
	indicator   indicator.Controller
	ident       procident.Identity

	stateDir      string
	wakeStatePath string
}

// New constructs the daemon core and starts its execution queue and
// wakeword state watcher, wiring every component SPEC_FULL.md's Runtime
// State Machine, Execution Queue, Session Manager, Endpointed Capture, and
// Wake Trigger Coordinator components describe.
func New(cfg config.Config, logger *slog.Logger) (*Daemon, error) {
	stateDir, err := wake.StateDir()
	if err != nil {
		return nil, err
	}

	machine := fsm.New()
	registry := session.NewRegistry()
	transcriber := transcribe.NewTranscriber(cfg, logger)
	committer := output.NewCommitter(cfg, logger)
	indicatorCtl := indicator.NewHyprNotify(cfg.Indicator, logger)
	ident := procident.ProcFS{}

	dictateMgr := session.NewManager(session.KindDictate, cfg, logger, machine, transcriber, committer, indicatorCtl, ident, registry, stateDir)
	commandMgr := session.NewManager(session.KindCommand, cfg, logger, machine, transcriber, committer, indicatorCtl, ident, registry, stateDir)

	q := queue.New(cfg.Queue.Capacity, logger)

	wakeCoord := wake.NewCoordinator(
		time.Duration(cfg.Timeouts.WakeCooldownMS)*time.Millisecond,
		time.Duration(cfg.Timeouts.WakeNoSpeechRearmMS)*time.Millisecond,
		time.Duration(cfg.Timeouts.WakeErrorRearmMS)*time.Millisecond,
		logger,
	)

	wakeStatePath := wake.StatePath(stateDir)
	d := &Daemon{
		logger:        logger,
		cfg:           cfg,
		machine:       machine,
		dictateMgr:    dictateMgr,
		commandMgr:    commandMgr,
		registry:      registry,
		queue:         q,
		wakeCoord:     wakeCoord,
		transcriber:   transcriber,
		committer:     committer,
		indicator:     indicatorCtl,
		ident:         ident,
		stateDir:      stateDir,
		wakeStatePath: wakeStatePath,
	}

	watcher, err := wake.WatchState(wakeStatePath, logger, func(st wake.State) {
		logger.Info("wakeword state changed externally", "enabled", st.Enabled)
	})
	if err != nil {
		logger.Warn("wakeword state watch unavailable", "error", err.Error())
	} else {
		d.wakeWatcher = watcher
	}

	return d, nil
}

// Close stops the queue supervisor and the wakeword state watcher. Active
// captures are left to ShutdownSweep, invoked separately so callers can
// order it before or after other teardown steps.
func (d *Daemon) Close() {
	d.queue.Close()
	if d.wakeWatcher != nil {
		_ = d.wakeWatcher.Close()
	}
}

// ShutdownSweep stops any still-active hold session capture in both
// managers without transcribing or committing, for use during daemon
// shutdown so a signalled daemon never leaks an ffmpeg subprocess.
func (d *Daemon) ShutdownSweep() {
	d.dictateMgr.ShutdownSweep()
	d.commandMgr.ShutdownSweep()
}

// Handle dispatches one allow-listed IPC action against the daemon's
// long-lived components.
func (d *Daemon) Handle(ctx context.Context, action ipc.Action) ipc.Response {
	switch action {
	case ipc.ActionDictateStart:
		return d.dictateMgr.Start(ctx, d.cfg.ASR.LanguageCode)
	case ipc.ActionDictateStop:
		return d.dictateMgr.Stop(ctx)
	case ipc.ActionCommandStart:
		return d.commandMgr.Start(ctx, d.cfg.ASR.LanguageCode)
	case ipc.ActionCommandStop:
		return d.commandMgr.Stop(ctx)
	case ipc.ActionCancel:
		return d.handleCancel(ctx)

	case ipc.ActionCommandAuto:
		return d.handleOneShot(ctx, "command-auto", nil)
	case ipc.ActionDictate:
		return d.handleOneShot(ctx, "dictate", nil)
	case ipc.ActionVoice:
		return d.handleOneShot(ctx, "voice", nil)
	case ipc.ActionWakeStart:
		return d.handleWakeStart(ctx)

	case ipc.ActionWakewordEnable:
		return d.setWakeword(true)
	case ipc.ActionWakewordDisable:
		return d.setWakeword(false)
	case ipc.ActionWakewordToggle:
		return d.toggleWakeword()
	case ipc.ActionWakewordStatus:
		return d.statusResponse()

	case ipc.ActionRuntimeStatus, ipc.ActionRuntimeStatusJSON:
		return d.statusResponse()

	default:
		return ipc.Response{RC: 2, Status: &ipc.Status{State: string(d.machine.State())}}
	}
}

// handleCancel cancels whichever hold session is currently active, command
// taking precedence since it can only ever be the more recently started of
// the two (both share the same runtime state machine, which admits only
// one hold at a time).
func (d *Daemon) handleCancel(ctx context.Context) ipc.Response {
	if d.commandMgr.Active() {
		return d.commandMgr.Cancel(ctx)
	}
	if d.dictateMgr.Active() {
		return d.dictateMgr.Cancel(ctx)
	}
	return ipc.Response{RC: 1, Status: &ipc.Status{State: string(d.machine.State())}}
}

func (d *Daemon) manualCaptureActive() bool {
	return d.dictateMgr.Active() || d.commandMgr.Active()
}
