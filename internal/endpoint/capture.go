package endpoint

import (
	"bytes"
	"context"
	"os"
	"time"
)

// FrameSource streams fixed-size PCM16LE mono frames until Stop is called
// or the underlying producer exits, closing Chunks().
type FrameSource interface {
	Chunks() <-chan []byte
	Stop() error
}

// Outcome classifies why a capture ended.
type Outcome int

const (
	// OutcomeEndpointed means the VAD observed speech start and then end.
	OutcomeEndpointed Outcome = iota
	// OutcomeCancelled means the caller's context was cancelled mid-capture.
	OutcomeCancelled
	// OutcomeNoSpeech means the start-speech timeout elapsed with no
	// confirmed speech onset.
	OutcomeNoSpeech
	// OutcomeSessionMax means the overall session timeout elapsed.
	OutcomeSessionMax
	// OutcomeStreamEnded means the frame source closed its channel.
	OutcomeStreamEnded
)

// Result is the accumulated capture output.
type Result struct {
	PCM     []byte
	Outcome Outcome
}

// Capture drives one VAD-endpointed recording: it reads frames from a
// FrameSource, merges an optional pre-roll in front of the accumulated
// buffer, and stops on endpoint, cancellation, no-speech timeout, or
// session-max timeout.
type Capture struct {
	vad                *VAD
	sessionMax         time.Duration
	startSpeechTimeout time.Duration
}

// NewCapture constructs an endpointed capture driver bound to vad.
func NewCapture(vad *VAD, sessionMax, startSpeechTimeout time.Duration) *Capture {
	return &Capture{vad: vad, sessionMax: sessionMax, startSpeechTimeout: startSpeechTimeout}
}

// Run consumes frames from source until termination, returning the
// accumulated PCM (with preroll, if any, prepended) and the reason the
// capture ended.
func (c *Capture) Run(ctx context.Context, source FrameSource, preroll []byte) Result {
	var buf bytes.Buffer
	if len(preroll) > 0 {
		buf.Write(preroll)
	}

	sessionDeadline := time.Now().Add(c.sessionMax)
	speechDeadline := time.Now().Add(c.startSpeechTimeout)
	frames := source.Chunks()

	for {
		remaining := time.Until(sessionDeadline)
		if remaining <= 0 {
			_ = source.Stop()
			return Result{PCM: buf.Bytes(), Outcome: OutcomeSessionMax}
		}

		select {
		case <-ctx.Done():
			_ = source.Stop()
			return Result{PCM: buf.Bytes(), Outcome: OutcomeCancelled}

		case frame, ok := <-frames:
			if !ok {
				return Result{PCM: buf.Bytes(), Outcome: OutcomeStreamEnded}
			}
			buf.Write(frame)

			hasStarted, endpointed, _ := c.vad.Update(frame)
			if endpointed {
				_ = source.Stop()
				return Result{PCM: buf.Bytes(), Outcome: OutcomeEndpointed}
			}
			if !hasStarted && time.Now().After(speechDeadline) {
				_ = source.Stop()
				return Result{PCM: buf.Bytes(), Outcome: OutcomeNoSpeech}
			}

		case <-time.After(remaining):
			_ = source.Stop()
			return Result{PCM: buf.Bytes(), Outcome: OutcomeSessionMax}
		}
	}
}

// FreshPreroll reads path's contents when its modification time is within
// maxAge of now, matching the wake pre-roll freshness invariant. A stat or
// read failure, or a stale file, reports ok=false.
func FreshPreroll(path string, maxAge time.Duration) (data []byte, ok bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > maxAge {
		return nil, false
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return contents, true
}
