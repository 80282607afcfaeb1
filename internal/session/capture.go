package session

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/hearthsh/voxd/internal/config"
	"github.com/hearthsh/voxd/internal/procident"
)

// captureStarter launches a hold session's capture subprocess. Tests
// substitute a fake so Manager.Start never has to exec a real ffmpeg.
type captureStarter func(cfg config.Config, kind Kind, sessionMax time.Duration) (pid int, tmpdir, audioPath string, err error)

// spawnCapture starts the ffmpeg subprocess that owns one hold session's
// microphone capture, writing 16kHz mono PCM into a fresh prefix-tagged
// tmpdir, grounded on the original hotkey daemon's direct ffmpeg Popen.
func spawnCapture(cfg config.Config, kind Kind, sessionMax time.Duration) (pid int, tmpdir, audioPath string, err error) {
	tmpdir, err = os.MkdirTemp("", fmt.Sprintf("voxd-%s-hold-", kind))
	if err != nil {
		return 0, "", "", fmt.Errorf("create capture tmpdir: %w", err)
	}
	audioPath = filepath.Join(tmpdir, "capture.wav")

	seconds := int(sessionMax.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 12
	}
	backend := cfg.Audio.Backend
	if backend == "" {
		backend = "pulse"
	}
	source := cfg.Audio.Input
	if source == "" {
		source = "default"
	}

	cmd := exec.Command("ffmpeg",
		"-y", "-loglevel", "error",
		"-f", backend, "-i", source,
		"-t", strconv.Itoa(seconds),
		"-ac", "1", "-ar", "16000",
		audioPath,
	)
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		os.RemoveAll(tmpdir)
		return 0, "", "", fmt.Errorf("start capture subprocess: %w", err)
	}
	go func() { _ = cmd.Wait() }()

	return cmd.Process.Pid, tmpdir, audioPath, nil
}

// stopCapturePID escalates SIGINT, then SIGTERM, then SIGKILL against pid,
// gated on procident identity so a recycled pid that no longer matches the
// recorded cmdline substrings is never signalled.
func stopCapturePID(ident procident.Identity, pid int, requiredSubstrings []string, timeouts config.TimeoutsConfig) {
	if pid <= 0 || !identityHolds(ident, pid, requiredSubstrings) {
		return
	}

	escalate(ident, pid, requiredSubstrings, syscall.SIGINT, time.Duration(timeouts.StopSIGINTMS)*time.Millisecond)
	if !identityHolds(ident, pid, requiredSubstrings) {
		return
	}

	escalate(ident, pid, requiredSubstrings, syscall.SIGTERM, time.Duration(timeouts.StopSIGTERMMS)*time.Millisecond)
	if !identityHolds(ident, pid, requiredSubstrings) {
		return
	}

	escalate(ident, pid, requiredSubstrings, syscall.SIGKILL, time.Duration(timeouts.StopSIGKILLMS)*time.Millisecond)
}

func identityHolds(ident procident.Identity, pid int, requiredSubstrings []string) bool {
	if !ident.Alive(pid) {
		return false
	}
	if len(requiredSubstrings) == 0 {
		return true
	}
	return ident.CmdlineContainsAll(pid, requiredSubstrings)
}

func escalate(ident procident.Identity, pid int, requiredSubstrings []string, sig syscall.Signal, wait time.Duration) {
	if err := syscall.Kill(pid, sig); err != nil {
		return
	}

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if !identityHolds(ident, pid, requiredSubstrings) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// waitAudioReady polls path until it is non-empty or pollTimeout elapses.
func waitAudioReady(path string, pollTimeout time.Duration) bool {
	deadline := time.Now().Add(pollTimeout)
	for {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
}
