package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Descriptor is the persisted on-disk record of one active hold session's
// capture subprocess: enough for a restarted daemon (or an operator) to
// recover, validate, or forcibly stop it.
type Descriptor struct {
	Kind                  Kind      `json:"kind"`
	CapturePID            int       `json:"capture_pid"`
	Tmpdir                string    `json:"tmpdir"`
	AudioPath             string    `json:"audio_path"`
	PIDRequiredSubstrings []string  `json:"pid_required_substrings"`
	LanguageTag           string    `json:"language_tag"`
	StartedAtWall         time.Time `json:"started_at_wall"`
}

// DescriptorPath returns the fixed on-disk path for kind's descriptor file
// under stateDir.
func DescriptorPath(stateDir string, kind Kind) string {
	return filepath.Join(stateDir, fmt.Sprintf("voxd-%s.json", kind))
}

func writeDescriptor(path string, d Descriptor) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal session descriptor: %w", err)
	}
	return writePrivateFile(path, data)
}

func readDescriptor(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, err
	}
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("parse session descriptor %s: %w", path, err)
	}
	return d, nil
}

func removeDescriptor(path string) {
	_ = os.Remove(path)
}

// writePrivateFile atomically persists data to path: write to a sibling
// temp file, fsync, chmod 0600, then rename over the destination. Mirrors
// the wakeword state file's write pattern.
func writePrivateFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("ensure state dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp descriptor file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp descriptor file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync temp descriptor file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp descriptor file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("chmod temp descriptor file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename descriptor file into place: %w", err)
	}
	return nil
}

// validateDescriptorPaths rejects a descriptor whose tmpdir escapes the
// system temp root, or whose audio_path escapes its own tmpdir — a crafted
// or stale descriptor pointing at an attacker-controlled path.
func validateDescriptorPaths(d Descriptor) error {
	root := os.TempDir()
	if err := requireDescendant(root, d.Tmpdir); err != nil {
		return fmt.Errorf("session tmpdir rejected: %w", err)
	}
	if err := requireDescendant(d.Tmpdir, d.AudioPath); err != nil {
		return fmt.Errorf("session audio_path rejected: %w", err)
	}
	return nil
}

// requireDescendant reports an error unless candidate resolves to a path
// under root, resolving symlinks where possible so a symlink swap cannot be
// used to escape the root after the check runs.
func requireDescendant(root, candidate string) error {
	resolvedRoot := filepath.Clean(root)
	if r, err := filepath.EvalSymlinks(resolvedRoot); err == nil {
		resolvedRoot = r
	}

	resolvedCandidate := filepath.Clean(candidate)
	if r, err := filepath.EvalSymlinks(resolvedCandidate); err == nil {
		resolvedCandidate = r
	} else if r, err := filepath.EvalSymlinks(filepath.Dir(resolvedCandidate)); err == nil {
		resolvedCandidate = filepath.Join(r, filepath.Base(resolvedCandidate))
	}

	rel, err := filepath.Rel(resolvedRoot, resolvedCandidate)
	if err != nil {
		return fmt.Errorf("%q is not under %q", candidate, root)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%q escapes %q", candidate, root)
	}
	return nil
}
