package daemon

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hearthsh/voxd/internal/audio"
	"github.com/hearthsh/voxd/internal/endpoint"
	"github.com/hearthsh/voxd/internal/fsm"
	"github.com/hearthsh/voxd/internal/ipc"
	"github.com/hearthsh/voxd/internal/session"
	"github.com/hearthsh/voxd/internal/wake"
)

// handleOneShot runs a queued VAD-endpointed capture for command-auto,
// dictate, and voice: actions that record one utterance and commit it
// without the explicit start/stop pair a hold session uses.
func (d *Daemon) handleOneShot(ctx context.Context, name string, preroll []byte) ipc.Response {
	if d.machine.State() != fsm.StateIdle {
		return ipc.Response{RC: 1, Status: &ipc.Status{State: string(d.machine.State())}}
	}

	sessionMax := time.Duration(d.cfg.Timeouts.SessionMaxMS) * time.Millisecond
	startSpeechTimeout := time.Duration(d.cfg.Timeouts.WakeStartSpeechMS) * time.Millisecond

	var transcript string
	future, ok := d.queue.Submit(name, func(cancel <-chan struct{}) int {
		rc, text := d.runOneShotCapture(ctx, cancel, sessionMax, startSpeechTimeout, preroll)
		transcript = text
		return rc
	})
	if !ok {
		return ipc.Response{RC: 1, Status: &ipc.Status{State: string(d.machine.State())}}
	}

	rc, _, _ := future.Wait()
	return ipc.Response{RC: rc, Status: &ipc.Status{State: string(d.machine.State()), Transcript: transcript}}
}

// runOneShotCapture drives one VAD-endpointed capture to completion,
// honoring cooperative cancellation from the queue, and transcribes and
// commits whatever speech was captured.
func (d *Daemon) runOneShotCapture(ctx context.Context, cancel <-chan struct{}, sessionMax, startSpeechTimeout time.Duration, preroll []byte) (int, string) {
	jobCtx, jobCancel := context.WithCancel(ctx)
	defer jobCancel()
	go func() {
		select {
		case <-cancel:
			jobCancel()
		case <-jobCtx.Done():
		}
	}()

	selection, err := audio.SelectDevice(jobCtx, d.cfg.Audio.Input, d.cfg.Audio.Fallback)
	if err != nil {
		d.logger.Error("one-shot capture device selection failed", "error", err.Error())
		return 1, ""
	}

	source, err := audio.StartCapture(jobCtx, selection.Device)
	if err != nil {
		d.logger.Error("one-shot capture start failed", "error", err.Error())
		return 1, ""
	}
	defer source.Close()

	vad := endpoint.NewVAD(d.cfg.Wake.FrameMS, int(d.cfg.Wake.RMSThreshold), d.cfg.Wake.MinSpeechMS, d.cfg.Wake.EndSilenceMS)
	capture := endpoint.NewCapture(vad, sessionMax, startSpeechTimeout)
	result := capture.Run(jobCtx, source, preroll)

	switch result.Outcome {
	case endpoint.OutcomeCancelled:
		return 4, ""
	case endpoint.OutcomeNoSpeech, endpoint.OutcomeSessionMax, endpoint.OutcomeStreamEnded:
		if len(result.PCM) == 0 {
			return 3, ""
		}
	}

	transcript, _, err := d.transcriber.TranscribePCM(jobCtx, result.PCM)
	if err != nil {
		if session.IsPipelineUnavailable(err) || errors.Is(err, session.ErrEmptyTranscript) {
			return 3, ""
		}
		d.logger.Error("one-shot transcription failed", "error", err.Error())
		return 1, ""
	}
	if strings.TrimSpace(transcript) == "" {
		return 3, ""
	}

	if err := d.committer.Commit(jobCtx, transcript); err != nil {
		d.logger.Error("one-shot commit failed", "error", err.Error())
		return 1, ""
	}

	return 0, transcript
}

// handleWakeStart runs a wake-word-triggered capture gated through the wake
// trigger coordinator: ShouldTrigger must allow it (respecting cooldown,
// rearm, the wakeword enabled toggle, and any concurrently active manual
// hold session) before a capture is attempted at all.
func (d *Daemon) handleWakeStart(ctx context.Context) ipc.Response {
	enabled := d.wakewordEnabled()
	now := time.Now()

	if !d.wakeCoord.ShouldTrigger(now, enabled, d.manualCaptureActive()) {
		return ipc.Response{RC: 2, Status: &ipc.Status{State: string(d.machine.State())}}
	}

	transition := d.machine.Transition(fsm.ActionWakeStart)
	if !transition.Allowed {
		return ipc.Response{RC: 2, Status: &ipc.Status{State: string(transition.PreviousState)}}
	}

	d.indicator.CueWake(ctx)

	sessionMax := time.Duration(d.cfg.Timeouts.WakeSessionMaxMS) * time.Millisecond
	startSpeechTimeout := time.Duration(d.cfg.Timeouts.WakeStartSpeechMS) * time.Millisecond
	preroll, _ := endpoint.FreshPreroll(wake.PrerollPath(d.stateDir), time.Duration(d.cfg.Wake.PrerollMaxAgeMS)*time.Millisecond)

	var transcript string
	future, ok := d.queue.Submit("wake-start", func(cancel <-chan struct{}) int {
		rc, text := d.runOneShotCapture(ctx, cancel, sessionMax, startSpeechTimeout, preroll)
		transcript = text
		return rc
	})

	var rc int
	if !ok {
		rc = 1
	} else {
		rc, _, _ = future.Wait()
	}

	if rc == 0 {
		d.machine.Transition(fsm.ActionWakeComplete)
	} else {
		d.machine.Transition(fsm.ActionWakeFailed)
	}

	reason := d.wakeCoord.RecordOutcome(time.Now(), rc)
	d.logger.Info("wake trigger handled", "rc", rc, "reason", string(reason))

	return ipc.Response{RC: rc, Status: &ipc.Status{State: string(d.machine.State()), Transcript: transcript}}
}

func (d *Daemon) wakewordEnabled() bool {
	st, err := wake.ReadState(d.wakeStatePath)
	if err != nil {
		return false
	}
	return st.Enabled
}
