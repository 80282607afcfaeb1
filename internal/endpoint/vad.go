// Package endpoint implements VAD-driven endpointed capture: accumulating
// PCM16 frames until speech has clearly started and then clearly ended.
package endpoint

import "math"

// VAD tracks speech/silence accumulators over a stream of fixed-duration
// PCM16 mono frames and reports when a capture has started and ended.
type VAD struct {
	frameMS      int
	rmsThreshold int
	minSpeechMS  int
	endSilenceMS int

	speechMS   int
	silenceMS  int
	hasStarted bool
	lastRMS    int
}

// NewVAD constructs a VAD with the given tuning, clamping degenerate values
// the same way the reference endpointer does.
func NewVAD(frameMS, rmsThreshold, minSpeechMS, endSilenceMS int) *VAD {
	if frameMS < 10 {
		frameMS = 10
	}
	if rmsThreshold < 1 {
		rmsThreshold = 1
	}
	if minSpeechMS < frameMS {
		minSpeechMS = frameMS
	}
	if endSilenceMS < frameMS {
		endSilenceMS = frameMS
	}
	return &VAD{
		frameMS:      frameMS,
		rmsThreshold: rmsThreshold,
		minSpeechMS:  minSpeechMS,
		endSilenceMS: endSilenceMS,
	}
}

// HasStarted reports whether accumulated speech has crossed min_speech_ms.
func (v *VAD) HasStarted() bool { return v.hasStarted }

// LastRMS returns the RMS computed for the most recently processed frame.
func (v *VAD) LastRMS() int { return v.lastRMS }

// Update processes one PCM16LE mono frame and returns the updated
// has_started flag, whether this frame closed the endpoint, and the
// frame's RMS.
func (v *VAD) Update(frame []byte) (hasStarted bool, endpointed bool, rms int) {
	if len(frame) < 2 {
		return v.hasStarted, false, 0
	}

	sampleCount := len(frame) / 2
	var sumSquares float64
	for i := 0; i+1 < len(frame); i += 2 {
		sample := int16(uint16(frame[i]) | uint16(frame[i+1])<<8)
		f := float64(sample)
		sumSquares += f * f
	}
	rms = int(math.Sqrt(sumSquares / float64(sampleCount)))
	v.lastRMS = rms

	isSpeech := rms >= v.rmsThreshold
	if isSpeech {
		v.speechMS += v.frameMS
		v.silenceMS = 0
	} else if v.hasStarted {
		v.silenceMS += v.frameMS
	}

	if !v.hasStarted && v.speechMS >= v.minSpeechMS {
		v.hasStarted = true
	}

	endpointed = v.hasStarted && v.silenceMS >= v.endSilenceMS
	return v.hasStarted, endpointed, rms
}

// Reset clears all accumulators for reuse across captures.
func (v *VAD) Reset() {
	v.speechMS = 0
	v.silenceMS = 0
	v.hasStarted = false
	v.lastRMS = 0
}
