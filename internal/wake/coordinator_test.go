package wake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassifyRC(t *testing.T) {
	cases := map[int]Reason{
		0: ReasonOK,
		3: ReasonNoSpeech,
		4: ReasonCancelled,
		2: ReasonStaleDaemon,
		1: ReasonBusyOrError,
		9: ReasonBusyOrError,
	}
	for rc, want := range cases {
		require.Equal(t, want, ClassifyRC(rc))
	}
}

func TestShouldTriggerBlocksWhileManualCaptureActive(t *testing.T) {
	c := NewCoordinator(time.Second, time.Second, time.Second, nil)
	require.False(t, c.ShouldTrigger(time.Now(), true, true))
}

func TestShouldTriggerBlocksWhenDisabled(t *testing.T) {
	c := NewCoordinator(time.Second, time.Second, time.Second, nil)
	require.False(t, c.ShouldTrigger(time.Now(), false, false))
}

func TestShouldTriggerRespectsCooldown(t *testing.T) {
	c := NewCoordinator(100*time.Millisecond, time.Second, time.Second, nil)
	now := time.Now()
	c.RecordOutcome(now, 0)

	require.False(t, c.ShouldTrigger(now.Add(50*time.Millisecond), true, false))
	require.True(t, c.ShouldTrigger(now.Add(150*time.Millisecond), true, false))
}

func TestShouldTriggerRespectsNoSpeechRearm(t *testing.T) {
	c := NewCoordinator(0, 200*time.Millisecond, time.Second, nil)
	now := time.Now()
	reason := c.RecordOutcome(now, 3)
	require.Equal(t, ReasonNoSpeech, reason)

	require.False(t, c.ShouldTrigger(now.Add(100*time.Millisecond), true, false))
	require.True(t, c.ShouldTrigger(now.Add(250*time.Millisecond), true, false))
}

func TestRecordOutcomeCancelledRearmsWithoutAdvancingLastTrigger(t *testing.T) {
	c := NewCoordinator(0, time.Second, 150*time.Millisecond, nil)
	now := time.Now()

	reason := c.RecordOutcome(now, 4)
	require.Equal(t, ReasonCancelled, reason)
	require.False(t, c.ShouldTrigger(now.Add(50*time.Millisecond), true, false))
	require.True(t, c.ShouldTrigger(now.Add(200*time.Millisecond), true, false))
}

func TestRecordOutcomeCountsByReason(t *testing.T) {
	c := NewCoordinator(0, time.Millisecond, time.Millisecond, nil)
	now := time.Now()

	c.RecordOutcome(now, 0)
	c.RecordOutcome(now, 3)
	c.RecordOutcome(now, 3)
	c.RecordOutcome(now, 1)

	counts := c.Counts()
	require.Equal(t, 1, counts[ReasonOK])
	require.Equal(t, 2, counts[ReasonNoSpeech])
	require.Equal(t, 1, counts[ReasonBusyOrError])
}

func TestRecordOutcomeStaleDaemonRearms(t *testing.T) {
	c := NewCoordinator(0, time.Second, 100*time.Millisecond, nil)
	now := time.Now()

	reason := c.RecordOutcome(now, 2)
	require.Equal(t, ReasonStaleDaemon, reason)
	require.False(t, c.ShouldTrigger(now.Add(10*time.Millisecond), true, false))
}
