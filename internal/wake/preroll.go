package wake

import (
	"fmt"
	"path/filepath"
)

// PrerollPath returns the fixed on-disk path for the wake-word listener's
// preroll buffer under dir, matching the state/lock file naming convention.
func PrerollPath(dir string) string {
	return filepath.Join(dir, "voxd-wake-preroll.pcm")
}

// PrerollRing accumulates the most recent frames up to a fixed byte budget,
// mirroring the bounded deque the wake-word listener keeps so it can hand a
// few hundred milliseconds of audio preceding a trigger to the capture that
// follows it.
type PrerollRing struct {
	maxBytes int
	frames   [][]byte
	size     int
}

// NewPrerollRing constructs a ring bounded at maxBytes of total frame data.
func NewPrerollRing(maxBytes int) *PrerollRing {
	if maxBytes < 0 {
		maxBytes = 0
	}
	return &PrerollRing{maxBytes: maxBytes}
}

// Push appends frame, evicting the oldest frames once the byte budget is
// exceeded.
func (r *PrerollRing) Push(frame []byte) {
	if len(frame) == 0 {
		return
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	r.frames = append(r.frames, cp)
	r.size += len(cp)

	for r.size > r.maxBytes && len(r.frames) > 0 {
		r.size -= len(r.frames[0])
		r.frames = r.frames[1:]
	}
}

// Bytes concatenates all retained frames in order.
func (r *PrerollRing) Bytes() []byte {
	out := make([]byte, 0, r.size)
	for _, f := range r.frames {
		out = append(out, f...)
	}
	return out
}

// WritePreroll persists the ring's contents to path using the same
// atomic-write helper as the wakeword state file.
func WritePreroll(path string, ring *PrerollRing) error {
	if ring == nil {
		return fmt.Errorf("nil preroll ring")
	}
	return writePrivateFile(path, ring.Bytes())
}
