// Package transcribe implements the default Transcriber by shelling out to a
// configurable external speech-to-text command, replacing the teacher's
// network ASR client with an opaque subprocess boundary.
package transcribe

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hearthsh/voxd/internal/config"
	"github.com/hearthsh/voxd/internal/session"
	"github.com/hearthsh/voxd/internal/transcript"
)

// runCommandFunc lets tests substitute a fake ASR command invocation.
type runCommandFunc func(ctx context.Context, argv []string, stdin []byte) (string, error)

// Transcriber runs the configured external ASR command against a completed
// WAV payload and assembles its output into a transcript. It owns no
// capture state: callers (hold sessions and queued one-shot captures alike)
// hand it a finished audio payload, by file or by raw PCM.
type Transcriber struct {
	cfg    config.Config
	logger *slog.Logger

	runCommand runCommandFunc
}

// NewTranscriber constructs a transcriber from runtime config.
func NewTranscriber(cfg config.Config, logger *slog.Logger) *Transcriber {
	return &Transcriber{
		cfg:        cfg,
		logger:     logger,
		runCommand: runExternalCommand,
	}
}

// TranscribeFile reads a completed capture WAV file from disk and runs it
// through the configured ASR command. Used by hold sessions, whose capture
// subprocess writes directly to a file.
func (t *Transcriber) TranscribeFile(ctx context.Context, path string) (string, time.Duration, error) {
	if len(t.cfg.Transcriber.Cmd.Argv) == 0 {
		return "", 0, session.ErrPipelineUnavailable
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("read capture file %s: %w", path, err)
	}
	if len(data) == 0 {
		return "", 0, session.ErrEmptyTranscript
	}

	t.writeDebugWAV(data)
	return t.runASR(ctx, data)
}

// TranscribePCM encodes raw little-endian 16kHz mono PCM16 as WAV and runs
// it through the configured ASR command. Used by queued one-shot captures,
// whose VAD-endpointed audio accumulates in memory.
func (t *Transcriber) TranscribePCM(ctx context.Context, pcm []byte) (string, time.Duration, error) {
	if len(t.cfg.Transcriber.Cmd.Argv) == 0 {
		return "", 0, session.ErrPipelineUnavailable
	}
	if len(pcm) == 0 {
		return "", 0, session.ErrEmptyTranscript
	}

	var wav bytes.Buffer
	if err := writePCM16WAV(&wav, pcm, 16000, 1); err != nil {
		return "", 0, fmt.Errorf("encode wav for transcriber: %w", err)
	}

	t.writeDebugWAV(wav.Bytes())
	return t.runASR(ctx, wav.Bytes())
}

func (t *Transcriber) runASR(ctx context.Context, wavBytes []byte) (string, time.Duration, error) {
	argv := append([]string(nil), t.cfg.Transcriber.Cmd.Argv...)

	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	started := time.Now()
	output, err := t.runCommand(runCtx, argv, wavBytes)
	latency := time.Since(started)
	if err != nil {
		return "", latency, fmt.Errorf("run transcriber command: %w", err)
	}

	segments := splitNonEmptyLines(output)
	text := transcript.Assemble(segments, transcript.Options{
		TrailingSpace:       t.cfg.Transcript.TrailingSpace,
		CapitalizeSentences: t.cfg.Transcript.CapitalizeSentences,
	})
	if text == "" {
		return "", latency, session.ErrEmptyTranscript
	}
	return text, latency, nil
}

func (t *Transcriber) logWarn(message string) {
	if t.logger == nil {
		return
	}
	t.logger.Warn(message)
}

// writeDebugWAV persists a copy of the final WAV payload handed to the ASR
// command when debug.audio_dump is enabled.
func (t *Transcriber) writeDebugWAV(data []byte) {
	if !t.cfg.Debug.EnableAudioDump || len(data) == 0 {
		return
	}

	file, err := createDebugFile("audio", "wav")
	if err != nil {
		t.logWarn(fmt.Sprintf("unable to create debug audio dump: %v", err))
		return
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		t.logWarn(fmt.Sprintf("unable to write debug audio dump: %v", err))
	}
}

// runExternalCommand pipes WAV bytes to argv's stdin and returns its stdout
// unmodified.
func runExternalCommand(ctx context.Context, argv []string, stdin []byte) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("transcriber_cmd is not configured")
	}

	cmd, stdoutBuf, stderrBuf := buildCommand(ctx, argv, stdin)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", argv[0], err, strings.TrimSpace(stderrBuf.String()))
	}
	return stdoutBuf.String(), nil
}

func splitNonEmptyLines(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// createDebugFile creates timestamped debug artifacts under state/voxd/debug.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return nil, err
	}
	debugDir := filepath.Join(stateDir, "voxd", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

// resolveStateDir returns XDG_STATE_HOME fallback path for debug artifacts.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}

// writePCM16WAV writes raw little-endian PCM bytes with a minimal WAV header.
func writePCM16WAV(w interface{ Write([]byte) (int, error) }, pcm []byte, sampleRate int, channels int) error {
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	chunkSize := uint32(36 + len(pcm))
	subChunk2Size := uint32(len(pcm))

	header := make([]byte, 44)
	copy(header[0:4], []byte("RIFF"))
	binary.LittleEndian.PutUint32(header[4:8], chunkSize)
	copy(header[8:12], []byte("WAVE"))
	copy(header[12:16], []byte("fmt "))
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], []byte("data"))
	binary.LittleEndian.PutUint32(header[40:44], subChunk2Size)

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}
