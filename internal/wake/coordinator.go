package wake

import (
	"log/slog"
	"time"
)

// Reason names why a wake trigger request ended the way it did, matching
// the daemon's exit code taxonomy.
type Reason string

const (
	ReasonOK          Reason = "ok"
	ReasonNoSpeech    Reason = "no_speech"
	ReasonCancelled   Reason = "cancelled"
	ReasonStaleDaemon Reason = "stale_daemon"
	ReasonBusyOrError Reason = "busy_or_error"
)

// ClassifyRC maps a wake-start daemon exit code to a trigger outcome
// reason.
func ClassifyRC(rc int) Reason {
	switch rc {
	case 0:
		return ReasonOK
	case 3:
		return ReasonNoSpeech
	case 4:
		return ReasonCancelled
	case 2:
		return ReasonStaleDaemon
	default:
		return ReasonBusyOrError
	}
}

// Coordinator paces wake-word trigger requests: it enforces a cooldown
// between triggers and a rearm delay after a no-speech or error outcome,
// and tallies outcomes by reason for observability.
type Coordinator struct {
	cooldown      time.Duration
	noSpeechRearm time.Duration
	errorRearm    time.Duration
	logger        *slog.Logger

	lastTriggerAt time.Time
	rearmUntil    time.Time
	counts        map[Reason]int
}

// NewCoordinator constructs a Coordinator with the given pacing durations.
func NewCoordinator(cooldown, noSpeechRearm, errorRearm time.Duration, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		cooldown:      cooldown,
		noSpeechRearm: noSpeechRearm,
		errorRearm:    errorRearm,
		logger:        logger,
		counts:        make(map[Reason]int),
	}
}

// ShouldTrigger reports whether a wake detection at now should be acted on:
// false while rearming, within cooldown of the last trigger, while the
// wakeword toggle is disabled, or while a manual dictate/command/wake
// session is already active.
func (c *Coordinator) ShouldTrigger(now time.Time, enabled, manualCaptureActive bool) bool {
	if manualCaptureActive {
		return false
	}
	if now.Before(c.rearmUntil) {
		return false
	}
	if !c.lastTriggerAt.IsZero() && now.Sub(c.lastTriggerAt) < c.cooldown {
		return false
	}
	if !enabled {
		return false
	}
	return true
}

// RecordOutcome applies the result of a wake-start request: it updates
// lastTriggerAt/rearmUntil per the classified reason, increments the
// reason's counter, and returns the classified reason.
func (c *Coordinator) RecordOutcome(now time.Time, rc int) Reason {
	reason := ClassifyRC(rc)
	c.counts[reason]++

	switch reason {
	case ReasonNoSpeech:
		c.lastTriggerAt = now
		c.rearmUntil = now.Add(c.noSpeechRearm)
		c.logger.Info("wake trigger no speech, rearming", "rearm_ms", c.noSpeechRearm.Milliseconds(), "count", c.counts[reason])
	case ReasonCancelled:
		c.rearmUntil = now.Add(c.errorRearm)
		c.logger.Info("wake trigger cancelled, rearming", "rearm_ms", c.errorRearm.Milliseconds(), "count", c.counts[reason])
	case ReasonOK:
		c.lastTriggerAt = now
		c.logger.Info("wake trigger ok", "count", c.counts[reason])
	default:
		c.rearmUntil = now.Add(c.errorRearm)
		c.logger.Warn("wake trigger failed", "rc", rc, "reason", string(reason), "rearm_ms", c.errorRearm.Milliseconds(), "count", c.counts[reason])
	}

	return reason
}

// Counts returns a snapshot of per-reason outcome counters.
func (c *Coordinator) Counts() map[Reason]int {
	snapshot := make(map[Reason]int, len(c.counts))
	for k, v := range c.counts {
		snapshot[k] = v
	}
	return snapshot
}
