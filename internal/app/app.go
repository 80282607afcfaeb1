package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/hearthsh/voxd/internal/audio"
	"github.com/hearthsh/voxd/internal/cli"
	"github.com/hearthsh/voxd/internal/config"
	"github.com/hearthsh/voxd/internal/daemon"
	"github.com/hearthsh/voxd/internal/doctor"
	"github.com/hearthsh/voxd/internal/fsm"
	"github.com/hearthsh/voxd/internal/ipc"
	"github.com/hearthsh/voxd/internal/logging"
	"github.com/hearthsh/voxd/internal/session"
	"github.com/hearthsh/voxd/internal/version"
	"github.com/hearthsh/voxd/internal/wake"
)

// Runner holds process-level dependencies used by command handlers.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Execute is the package entrypoint used by cmd/voxd/main.go.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute parses CLI arguments, loads config/logging, and dispatches a command.
func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("voxd"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("voxd"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	if speechPlan, _, err := config.BuildSpeechPhrases(cfgLoaded.Config); err == nil {
		logger.Debug("speech context plan", "phrase_count", len(speechPlan), "phrases", speechPlan)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	if parsed.Daemon {
		if err := daemon.Serve(ctx, cfgLoaded.Config, logger, r.Stdout); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			logger.Error("daemon exited with error", "error", err.Error())
			return 1
		}
		return 0
	}

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.commandStop(ctx)
	case cli.CommandCancel:
		return r.commandCancel(ctx)
	case cli.CommandWakeStart:
		return r.forwardSimple(ctx, ipc.ActionWakeStart, "no daemon available to accept wake-start")
	case cli.CommandWakewordToggle:
		return r.commandWakewordToggle()
	case cli.CommandToggle, cli.CommandDictate:
		return r.commandSession(ctx, cfgLoaded.Config, logger, session.KindDictate)
	case cli.CommandCommand:
		return r.commandSession(ctx, cfgLoaded.Config, logger, session.KindCommand)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandDevices prints discovered input devices and key availability metadata.
func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

// commandStatus queries the active owner (if any) and prints session state.
func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.ActionRuntimeStatusJSON)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		state := "idle"
		if resp.Status != nil && resp.Status.State != "" {
			state = resp.Status.State
		}
		fmt.Fprintln(r.Stdout, state)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

// commandStop resolves the active hold session's kind and forwards its
// matching stop action.
func (r Runner) commandStop(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	statusResp, handled, err := tryForward(ctx, socketPath, ipc.ActionRuntimeStatusJSON)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active voxd session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	var state string
	if statusResp.Status != nil {
		state = statusResp.Status.State
	}

	stopAction, ok := stopActionForState(state)
	if !ok {
		fmt.Fprintf(r.Stderr, "error: no active hold session to stop\n")
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, stopAction)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active voxd session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return responseExitCode(resp)
}

// commandCancel forwards a cancel request to whichever hold session the
// active owner is currently running.
func (r Runner) commandCancel(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.ActionCancel)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active voxd session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return responseExitCode(resp)
}

// forwardSimple forwards a single action to an existing owner, failing with
// msg when no owner is present to handle it.
func (r Runner) forwardSimple(ctx context.Context, action ipc.Action, msg string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, action)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: %s\n", msg)
		return 2
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return responseExitCode(resp)
}

// commandWakewordToggle flips the persisted wakeword enabled flag. This is
// a plain file toggle, not a daemon action: a running wake listener picks
// up the change via its own file watch, so no owner needs to be reachable.
func (r Runner) commandWakewordToggle() int {
	dir, err := wake.StateDir()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	enabled, err := wake.Toggle(wake.StatePath(dir), time.Now().Unix())
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintf(r.Stdout, "wakeword enabled=%t\n", enabled)
	return 0
}

// commandSession starts a new hold session of kind, or forwards the
// matching stop action when the daemon already has one running. It ensures
// the persistent daemon is reachable (spawning it once if needed) before
// either request, since there is no longer any ephemeral per-command owner.
func (r Runner) commandSession(ctx context.Context, cfg config.Config, logger *slog.Logger, kind session.Kind) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	startAction := ipc.ActionDictateStart
	stopAction := ipc.ActionDictateStop
	if kind == session.KindCommand {
		startAction = ipc.ActionCommandStart
		stopAction = ipc.ActionCommandStop
	}

	resp, handled, err := tryForward(ctx, socketPath, stopAction)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		return r.printSessionResponse(resp)
	}

	connectTimeout := time.Duration(cfg.Timeouts.ClientConnectMS) * time.Millisecond
	readyTimeout := time.Duration(cfg.Timeouts.DaemonReadyMS) * time.Millisecond
	if err := daemon.EnsureReachable(ctx, socketPath, connectTimeout, readyTimeout, logger); err != nil {
		fmt.Fprintf(r.Stderr, "error: start daemon: %v\n", err)
		return 1
	}

	resp, err = ipc.Send(ctx, socketPath, startAction, connectTimeout)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return r.printSessionResponse(resp)
}

// printSessionResponse writes any committed transcript the daemon attached
// to resp and maps its rc onto the process exit code.
func (r Runner) printSessionResponse(resp ipc.Response) int {
	if resp.Status != nil && strings.TrimSpace(resp.Status.Transcript) != "" {
		fmt.Fprintln(r.Stdout, strings.TrimSpace(resp.Status.Transcript))
	}
	if resp.RC == 4 {
		fmt.Fprintln(r.Stdout, "cancelled")
	}
	return responseExitCode(resp)
}

// stopActionForState maps a reported runtime state onto its matching stop
// action, or reports false when no hold session is active.
func stopActionForState(state string) (ipc.Action, bool) {
	switch fsm.State(state) {
	case fsm.StateDictateHold:
		return ipc.ActionDictateStop, true
	case fsm.StateCommandHold:
		return ipc.ActionCommandStop, true
	default:
		return "", false
	}
}

// responseExitCode maps a forwarded response's rc onto the process exit
// code, per the daemon's documented exit-code taxonomy.
func responseExitCode(resp ipc.Response) int {
	switch resp.RC {
	case 0:
		return 0
	case 2, 3, 4:
		return resp.RC
	default:
		return 1
	}
}

// tryForward attempts to send an action to an existing owner and classifies outcome.
//
// handled=false means there was no active owner to handle the request.
func tryForward(ctx context.Context, socketPath string, action ipc.Action) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, action, 220*time.Millisecond)
	if err == nil {
		return resp, true, nil
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward action %q: %w", action, err)
}

// isSocketMissing reports whether forwarding failed because the owner socket is absent.
func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

// isConnectionRefused reports whether forwarding failed because no owner is listening.
func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
