// Package session coordinates hold-session lifecycle state, capture
// subprocess ownership, and commit flow for both dictation and command
// sessions.
package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hearthsh/voxd/internal/config"
	"github.com/hearthsh/voxd/internal/fsm"
	"github.com/hearthsh/voxd/internal/ipc"
	"github.com/hearthsh/voxd/internal/procident"
)

// Kind distinguishes a dictation hold session from a command hold session;
// they share transition shape but use distinct FSM actions and hold states.
type Kind string

const (
	KindDictate Kind = "dictate"
	KindCommand Kind = "command"
)

type kindActions struct {
	start        fsm.Action
	stop         fsm.Action
	stopComplete fsm.Action
	startFailed  fsm.Action
	holdState    fsm.State
}

func actionsFor(kind Kind) kindActions {
	switch kind {
	case KindCommand:
		return kindActions{
			start:        fsm.ActionCommandStart,
			stop:         fsm.ActionCommandStop,
			stopComplete: fsm.ActionCommandStopComplete,
			startFailed:  fsm.ActionCommandStartFailed,
			holdState:    fsm.StateCommandHold,
		}
	default:
		return kindActions{
			start:        fsm.ActionDictateStart,
			stop:         fsm.ActionDictateStop,
			stopComplete: fsm.ActionDictateStopComplete,
			startFailed:  fsm.ActionDictateStartFailed,
			holdState:    fsm.StateDictateHold,
		}
	}
}

// Result is the outcome of one completed Stop or Cancel call, used for
// structured daemon logging.
type Result struct {
	Kind           Kind
	State          fsm.State
	Transcript     string
	Cancelled      bool
	Err            error
	ASRLatency     time.Duration
	StartedAt      time.Time
	FinishedAt     time.Time
	FocusedMonitor string
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowRecording(context.Context)
	ShowTranscribing(context.Context)
	ShowError(context.Context, string)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	CueWake(context.Context)
	Hide(context.Context)
	FocusedMonitor() string
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)     {}
func (noopIndicator) ShowTranscribing(context.Context)  {}
func (noopIndicator) ShowError(context.Context, string) {}
func (noopIndicator) CueStop(context.Context)           {}
func (noopIndicator) CueComplete(context.Context)       {}
func (noopIndicator) CueCancel(context.Context)         {}
func (noopIndicator) CueWake(context.Context)           {}
func (noopIndicator) Hide(context.Context)              {}
func (noopIndicator) FocusedMonitor() string            { return "" }

// activeCapture is one in-flight (or crash-recovered) hold session's
// descriptor and its on-disk location.
type activeCapture struct {
	descriptor Descriptor
	path       string
}

// Manager owns one kind's hold-session lifecycle end to end: spawning its
// capture subprocess, persisting and recovering its descriptor, escalating
// signals to stop it, and driving the transcribe/commit pipeline. The
// daemon constructs one Manager per kind and keeps it for the process's
// entire lifetime.
type Manager struct {
	logger      *slog.Logger
	kind        Kind
	acts        kindActions
	cfg         config.Config
	machine     *fsm.Machine
	transcriber FileTranscriber
	commit      Committer
	indicator   Indicator
	ident       procident.Identity
	registry    *Registry
	stateDir    string

	startCapture captureStarter

	mu     sync.Mutex
	active *activeCapture
}

// NewManager constructs a hold-session manager for kind. machine is the
// process-wide runtime state machine shared across both kinds and the wake
// coordinator; registry is shared across both kinds so daemon shutdown can
// sweep every leftover capture subprocess.
func NewManager(
	kind Kind,
	cfg config.Config,
	logger *slog.Logger,
	machine *fsm.Machine,
	transcriber FileTranscriber,
	committer Committer,
	indicator Indicator,
	ident procident.Identity,
	registry *Registry,
	stateDir string,
) *Manager {
	if transcriber == nil {
		transcriber = PlaceholderFileTranscriber{}
	}
	if committer == nil {
		committer = CommitFunc(func(context.Context, string) error { return nil })
	}
	if indicator == nil {
		indicator = noopIndicator{}
	}
	if ident == nil {
		ident = procident.ProcFS{}
	}
	if registry == nil {
		registry = NewRegistry()
	}

	return &Manager{
		logger:       logger,
		kind:         kind,
		acts:         actionsFor(kind),
		cfg:          cfg,
		machine:      machine,
		transcriber:  transcriber,
		commit:       committer,
		indicator:    indicator,
		ident:        ident,
		registry:     registry,
		stateDir:     stateDir,
		startCapture: spawnCapture,
	}
}

// State returns the shared runtime state machine's current state.
func (m *Manager) State() fsm.State {
	return m.machine.State()
}

// Active reports whether this manager currently owns a running hold session.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

func (m *Manager) descriptorPath() string {
	return DescriptorPath(m.stateDir, m.kind)
}

// Start begins a new hold session, preempting any session already active
// under this kind first (mirroring the original hotkey daemon's detected-
// existing-session preemption).
func (m *Manager) Start(ctx context.Context, languageTag string) ipc.Response {
	m.mu.Lock()
	defer m.mu.Unlock()

	if active := m.recoverActiveLocked(); active != nil {
		m.logger.Info("hold session preempting existing session", "kind", string(m.kind))
		m.active = active
		m.stopLocked(ctx)
	}

	start := m.machine.Transition(m.acts.start)
	if !start.Allowed {
		return ipc.Response{RC: 1, Status: &ipc.Status{State: string(start.PreviousState)}}
	}

	sessionMax := time.Duration(m.cfg.Timeouts.SessionMaxMS) * time.Millisecond
	pid, tmpdir, audioPath, err := m.startCapture(m.cfg, m.kind, sessionMax)
	if err != nil {
		m.logger.Error("hold session capture start failed", "kind", string(m.kind), "error", err.Error())
		m.indicator.ShowError(context.Background(), "Unable to start recording")
		m.machine.Transition(m.acts.startFailed)
		return ipc.Response{RC: 1, Status: &ipc.Status{State: string(m.State())}}
	}

	descriptor := Descriptor{
		Kind:                  m.kind,
		CapturePID:            pid,
		Tmpdir:                tmpdir,
		AudioPath:             audioPath,
		PIDRequiredSubstrings: []string{"ffmpeg", audioPath},
		LanguageTag:           languageTag,
		StartedAtWall:         time.Now(),
	}

	path := m.descriptorPath()
	if err := writeDescriptor(path, descriptor); err != nil {
		m.logger.Error("hold session descriptor write failed", "kind", string(m.kind), "error", err.Error())
	}

	m.registry.Register(pid, descriptor.PIDRequiredSubstrings)
	m.active = &activeCapture{descriptor: descriptor, path: path}

	m.indicator.ShowRecording(context.Background())
	m.logger.Info("hold session started", "kind", string(m.kind), "pid", pid, "audio_path", audioPath)

	return ipc.Response{RC: 0, Status: &ipc.Status{State: string(m.State())}}
}

// Stop ends the active hold session, transcribing and committing its
// captured audio. rc follows the documented exit-code taxonomy: 0 ok,
// 1 failure, 3 no speech.
func (m *Manager) Stop(ctx context.Context) ipc.Response {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp, _ := m.stopLocked(ctx)
	return resp
}

// stopLocked performs the stop and returns both the response and the
// session.Result, for callers (Stop, and Start's preemption path) that need
// different views of the same outcome.
func (m *Manager) stopLocked(ctx context.Context) (ipc.Response, Result) {
	started := time.Now()
	active := m.recoverActiveLocked()
	if active == nil {
		return ipc.Response{RC: 0, Status: &ipc.Status{State: string(m.State())}}, Result{}
	}
	m.active = nil

	stop := m.machine.Transition(m.acts.stop)
	if !stop.Allowed {
		m.machine.Transition(m.acts.startFailed)
		m.cleanup(active)
		result := Result{Kind: m.kind, State: m.State(), StartedAt: started, FinishedAt: time.Now()}
		return ipc.Response{RC: 1, Status: &ipc.Status{State: string(m.State())}}, result
	}

	m.indicator.ShowTranscribing(context.Background())

	descriptor := active.descriptor
	stopCapturePID(m.ident, descriptor.CapturePID, descriptor.PIDRequiredSubstrings, m.cfg.Timeouts)
	m.registry.Reap(descriptor.CapturePID)

	pollTimeout := time.Duration(m.cfg.Timeouts.AudioReadyPollMS) * time.Millisecond
	ready := waitAudioReady(descriptor.AudioPath, pollTimeout)
	m.indicator.CueStop(context.Background())

	defer m.cleanup(active)
	defer m.indicator.Hide(context.Background())

	result := Result{Kind: m.kind, StartedAt: started}
	finish := func(rc int, err error, transcript string) (ipc.Response, Result) {
		result.Err = err
		result.Transcript = transcript
		result.FinishedAt = time.Now()
		result.FocusedMonitor = m.indicator.FocusedMonitor()
		result.State = m.State()
		return ipc.Response{RC: rc, Status: &ipc.Status{State: string(result.State), Transcript: transcript}}, result
	}

	if !ready {
		m.indicator.ShowError(context.Background(), "No speech captured")
		m.machine.Transition(m.acts.startFailed)
		return finish(3, ErrEmptyTranscript, "")
	}

	transcript, latency, err := m.transcriber.TranscribeFile(ctx, descriptor.AudioPath)
	result.ASRLatency = latency
	if err != nil {
		if IsPipelineUnavailable(err) || errors.Is(err, ErrEmptyTranscript) {
			m.indicator.ShowError(context.Background(), "No speech detected")
			m.machine.Transition(m.acts.startFailed)
			return finish(3, err, "")
		}
		m.logger.Error("hold session transcription failed", "kind", string(m.kind), "error", err.Error())
		m.indicator.ShowError(context.Background(), "Speech recognition failed")
		m.machine.Transition(m.acts.startFailed)
		return finish(1, err, "")
	}

	if strings.TrimSpace(transcript) == "" {
		m.indicator.ShowError(context.Background(), "No speech detected")
		m.machine.Transition(m.acts.startFailed)
		return finish(3, ErrEmptyTranscript, transcript)
	}

	if err := m.commit.Commit(ctx, transcript); err != nil {
		m.logger.Error("hold session commit failed", "kind", string(m.kind), "error", err.Error())
		m.indicator.ShowError(context.Background(), "Output dispatch failed")
		m.machine.Transition(m.acts.startFailed)
		return finish(1, err, transcript)
	}

	m.indicator.CueComplete(context.Background())
	m.machine.Transition(m.acts.stopComplete)
	m.logger.Info("hold session committed", "kind", string(m.kind), "transcript_length", len(transcript))
	return finish(0, nil, transcript)
}

// Cancel discards the active hold session's capture without transcribing.
func (m *Manager) Cancel(_ context.Context) ipc.Response {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.recoverActiveLocked()
	if active == nil {
		return ipc.Response{RC: 0, Status: &ipc.Status{State: string(m.State())}}
	}
	m.active = nil

	m.machine.Transition(m.acts.stop)

	descriptor := active.descriptor
	stopCapturePID(m.ident, descriptor.CapturePID, descriptor.PIDRequiredSubstrings, m.cfg.Timeouts)
	m.registry.Reap(descriptor.CapturePID)

	m.indicator.CueCancel(context.Background())
	m.indicator.Hide(context.Background())
	m.cleanup(active)
	m.machine.Transition(m.acts.startFailed)

	return ipc.Response{RC: 4, Status: &ipc.Status{State: string(m.State())}}
}

// ShutdownSweep stops this manager's active capture (if any) without
// transcribing or committing, for use during daemon shutdown.
func (m *Manager) ShutdownSweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.recoverActiveLocked()
	if active == nil {
		return
	}
	m.active = nil

	descriptor := active.descriptor
	stopCapturePID(m.ident, descriptor.CapturePID, descriptor.PIDRequiredSubstrings, m.cfg.Timeouts)
	m.registry.Reap(descriptor.CapturePID)
	m.cleanup(active)
}

// recoverActiveLocked returns the in-memory active capture, or recovers one
// from a persisted descriptor left by a prior daemon crash, validating that
// its paths do not escape the system temp root and that it is not older
// than timeouts.state_max_age_ms before trusting it.
func (m *Manager) recoverActiveLocked() *activeCapture {
	if m.active != nil {
		return m.active
	}

	path := m.descriptorPath()
	descriptor, err := readDescriptor(path)
	if err != nil {
		return nil
	}

	if err := validateDescriptorPaths(descriptor); err != nil {
		m.logger.Warn("rejecting untrusted session descriptor", "kind", string(m.kind), "error", err.Error())
		removeDescriptor(path)
		return nil
	}

	maxAge := time.Duration(m.cfg.Timeouts.StateMaxAgeMS) * time.Millisecond
	if maxAge > 0 && !descriptor.StartedAtWall.IsZero() && time.Since(descriptor.StartedAtWall) > maxAge {
		m.logger.Warn("discarding stale session descriptor", "kind", string(m.kind), "age", time.Since(descriptor.StartedAtWall).String())
		stopCapturePID(m.ident, descriptor.CapturePID, descriptor.PIDRequiredSubstrings, m.cfg.Timeouts)
		removeDescriptor(path)
		_ = os.RemoveAll(descriptor.Tmpdir)
		return nil
	}

	return &activeCapture{descriptor: descriptor, path: path}
}

// cleanup removes the persisted descriptor and the capture tmpdir.
func (m *Manager) cleanup(active *activeCapture) {
	if active == nil {
		return
	}
	removeDescriptor(active.path)
	if active.descriptor.Tmpdir != "" {
		_ = os.RemoveAll(active.descriptor.Tmpdir)
	}
}
