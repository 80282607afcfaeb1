// Package wake implements the wake-word trigger coordinator: cooldown and
// rearm pacing around wake-start requests, outcome classification, and the
// small persisted enabled/disabled toggle a separate wake-word listener
// process consults.
package wake

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StateDir resolves the user state directory under which wake-word's
// persisted files live: XDG_STATE_HOME/voxd, falling back to
// ~/.local/state/voxd.
func StateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "voxd"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for state dir fallback")
	}
	return filepath.Join(home, ".local", "state", "voxd"), nil
}

// State is the persisted wakeword enabled/disabled toggle.
type State struct {
	Enabled   bool  `json:"enabled"`
	UpdatedAt int64 `json:"updated_at"`
}

// StatePath returns the path to voxd-wakeword.json under dir.
func StatePath(dir string) string {
	return filepath.Join(dir, "voxd-wakeword.json")
}

// ReadState loads the persisted toggle, defaulting to disabled when the
// file is absent or unparsable.
func ReadState(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{Enabled: false}, nil
		}
		return State{}, fmt.Errorf("read wakeword state %s: %w", path, err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{Enabled: false}, nil
	}
	return st, nil
}

// WriteState atomically persists st to path: write to a sibling temp file,
// fsync, chmod 0600, then rename over the destination.
func WriteState(path string, st State, nowEpochS int64) error {
	st.UpdatedAt = nowEpochS
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal wakeword state: %w", err)
	}
	return writePrivateFile(path, data)
}

func writePrivateFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("ensure state dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename state file into place: %w", err)
	}
	return nil
}

// Toggle flips the persisted enabled flag and returns the new value.
func Toggle(path string, nowEpochS int64) (bool, error) {
	st, err := ReadState(path)
	if err != nil {
		return false, err
	}
	st.Enabled = !st.Enabled
	if err := WriteState(path, st, nowEpochS); err != nil {
		return false, err
	}
	return st.Enabled, nil
}
