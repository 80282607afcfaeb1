package endpoint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func toneFrame(amplitude int16, samples int) []byte {
	frame := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := uint16(amplitude)
		frame[i*2] = byte(v)
		frame[i*2+1] = byte(v >> 8)
	}
	return frame
}

func silenceFrame(samples int) []byte {
	return make([]byte, samples*2)
}

func TestVADStartsAfterMinSpeechMS(t *testing.T) {
	v := NewVAD(20, 500, 60, 300)
	loud := toneFrame(1000, 160)

	started, endpointed, _ := v.Update(loud)
	require.False(t, started)
	require.False(t, endpointed)

	started, endpointed, _ = v.Update(loud)
	require.False(t, started)
	require.False(t, endpointed)

	started, endpointed, _ = v.Update(loud)
	require.True(t, started)
	require.False(t, endpointed)
}

func TestVADEndpointsAfterEndSilenceMS(t *testing.T) {
	v := NewVAD(20, 500, 20, 60)
	loud := toneFrame(1000, 160)
	quiet := silenceFrame(160)

	_, _, _ = v.Update(loud)
	require.True(t, v.HasStarted())

	_, endpointed, _ := v.Update(quiet)
	require.False(t, endpointed)
	endpointed2 := false
	_, endpointed2, _ = v.Update(quiet)
	require.False(t, endpointed2)
	_, endpointed3, _ := v.Update(quiet)
	require.True(t, endpointed3)
}

func TestVADBriefSpeechAroundSilenceDoesNotStart(t *testing.T) {
	v := NewVAD(20, 500, 100, 300)
	loud := toneFrame(1000, 160)
	quiet := silenceFrame(160)

	_, _, _ = v.Update(loud)
	require.False(t, v.HasStarted())
	_, _, _ = v.Update(quiet)
	require.False(t, v.HasStarted())
	// The quiet frame neither resets nor adds to speechMS before start, and
	// two loud frames in total are still short of minSpeechMS.
	started, _, _ := v.Update(loud)
	require.False(t, started)
}

func TestVADReset(t *testing.T) {
	v := NewVAD(20, 500, 20, 40)
	loud := toneFrame(1000, 160)
	_, _, _ = v.Update(loud)
	require.True(t, v.HasStarted())

	v.Reset()
	require.False(t, v.HasStarted())
	require.Equal(t, 0, v.LastRMS())
}

func TestVADClampsDegenerateTuning(t *testing.T) {
	v := NewVAD(0, 0, 0, 0)
	require.GreaterOrEqual(t, v.frameMS, 10)
	require.GreaterOrEqual(t, v.rmsThreshold, 1)
	require.GreaterOrEqual(t, v.minSpeechMS, v.frameMS)
	require.GreaterOrEqual(t, v.endSilenceMS, v.frameMS)
}

func TestVADIgnoresShortFrame(t *testing.T) {
	v := NewVAD(20, 500, 20, 40)
	started, endpointed, rms := v.Update([]byte{0x01})
	require.False(t, started)
	require.False(t, endpointed)
	require.Equal(t, 0, rms)
}
