package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.conf location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "voxd", "config.conf"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "voxd", "config.conf"), nil
}

// legacyPathFor derives the pre-JSONC flat config path that a resolved
// config.conf location supersedes, so Load can fall back to it when the
// resolved path has nothing written yet.
func legacyPathFor(resolvedPath string) string {
	dir := filepath.Dir(resolvedPath)
	parent := filepath.Dir(dir)
	if parent == "" || parent == "." {
		return ""
	}
	return filepath.Join(parent, "voxd.conf")
}
