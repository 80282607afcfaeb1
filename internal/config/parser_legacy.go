package config

import (
	"fmt"
	"strconv"
	"strings"
)

// parseLegacy reads the deprecated flat "key = value" / "section.key = value"
// format kept for compatibility with configs predating JSONC support.
func parseLegacy(content string, base Config) (Config, []Warning, error) {
	cfg := base

	lines := strings.Split(content, "\n")
	for lineNo, rawLine := range lines {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		idx := strings.Index(line, "=")
		if idx < 0 {
			return Config{}, nil, fmt.Errorf("line %d: expected key = value", lineNo+1)
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" {
			return Config{}, nil, fmt.Errorf("line %d: empty key", lineNo+1)
		}

		if err := applyLegacyKey(&cfg, key, value); err != nil {
			return Config{}, nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, validatedWarnings, nil
}

func applyLegacyKey(cfg *Config, key, value string) error {
	switch key {
	case "audio.input":
		cfg.Audio.Input = value
	case "audio.fallback":
		cfg.Audio.Fallback = value
	case "audio.backend":
		cfg.Audio.Backend = value
	case "paste.enable":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid paste.enable: %w", err)
		}
		cfg.Paste.Enable = b
	case "paste.shortcut":
		cfg.Paste.Shortcut = value
	case "asr.automatic_punctuation":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid asr.automatic_punctuation: %w", err)
		}
		cfg.ASR.AutomaticPunctuation = b
	case "asr.language_code":
		cfg.ASR.LanguageCode = value
	case "asr.model":
		cfg.ASR.Model = value
	case "transcript.trailing_space":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid transcript.trailing_space: %w", err)
		}
		cfg.Transcript.TrailingSpace = b
	case "transcript.capitalize_sentences":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid transcript.capitalize_sentences: %w", err)
		}
		cfg.Transcript.CapitalizeSentences = b
	case "indicator.enable":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid indicator.enable: %w", err)
		}
		cfg.Indicator.Enable = b
	case "indicator.backend":
		cfg.Indicator.Backend = value
	case "indicator.desktop_app_name":
		cfg.Indicator.DesktopAppName = value
	case "indicator.sound_enable":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid indicator.sound_enable: %w", err)
		}
		cfg.Indicator.SoundEnable = b
	case "indicator.height":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid indicator.height: %w", err)
		}
		cfg.Indicator.Height = n
	case "indicator.error_timeout_ms":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid indicator.error_timeout_ms: %w", err)
		}
		cfg.Indicator.ErrorTimeoutMS = n
	case "clipboard_cmd":
		argv, err := parseArgv(value)
		if err != nil {
			return fmt.Errorf("invalid clipboard_cmd: %w", err)
		}
		cfg.Clipboard = CommandConfig{Raw: value, Argv: argv}
	case "paste_cmd":
		argv, err := parseArgv(value)
		if err != nil {
			return fmt.Errorf("invalid paste_cmd: %w", err)
		}
		cfg.PasteCmd = CommandConfig{Raw: value, Argv: argv}
	case "transcriber_cmd":
		argv, err := parseArgv(value)
		if err != nil {
			return fmt.Errorf("invalid transcriber_cmd: %w", err)
		}
		cfg.Transcriber.Cmd = CommandConfig{Raw: value, Argv: argv}
	case "queue.capacity":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid queue.capacity: %w", err)
		}
		cfg.Queue.Capacity = n
	case "wake.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid wake.enabled: %w", err)
		}
		cfg.Wake.Enabled = b
	case "vocab.max_phrases":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid vocab.max_phrases: %w", err)
		}
		cfg.Vocab.MaxPhrases = n
	case "debug.audio_dump":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid debug.audio_dump: %w", err)
		}
		cfg.Debug.EnableAudioDump = b
	case "debug.grpc_dump":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid debug.grpc_dump: %w", err)
		}
		cfg.Debug.EnableGRPCDump = b
	default:
		return fmt.Errorf("unknown legacy key %q", key)
	}
	return nil
}
