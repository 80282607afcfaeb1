package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Audio      *jsoncAudio      `json:"audio"`
	Paste      *jsoncPaste      `json:"paste"`
	ASR        *jsoncASR        `json:"asr"`
	Transcript *jsoncTranscript `json:"transcript"`
	Indicator  *jsoncIndicator  `json:"indicator"`
	Queue      *jsoncQueue      `json:"queue"`
	Timeouts   *jsoncTimeouts   `json:"timeouts"`
	Wake       *jsoncWake       `json:"wake"`

	ClipboardCmd   *string     `json:"clipboard_cmd"`
	PasteCmd       *string     `json:"paste_cmd"`
	TranscriberCmd *string     `json:"transcriber_cmd"`
	Vocab          *jsoncVocab `json:"vocab"`
	Debug          *jsoncDebug `json:"debug"`
}

type jsoncQueue struct {
	Capacity *int `json:"capacity"`
}

type jsoncTimeouts struct {
	ClientConnectMS     *int `json:"client_connect_ms"`
	ClientResponseMS    *int `json:"client_response_ms"`
	DaemonReadyMS        *int `json:"daemon_ready_ms"`
	StopSIGINTMS         *int `json:"stop_sigint_ms"`
	StopSIGTERMMS        *int `json:"stop_sigterm_ms"`
	StopSIGKILLMS        *int `json:"stop_sigkill_ms"`
	AudioReadyPollMS     *int `json:"audio_ready_poll_ms"`
	SessionMaxMS         *int `json:"session_max_ms"`
	WakeSessionMaxMS     *int `json:"wake_session_max_ms"`
	WakeStartSpeechMS    *int `json:"wake_start_speech_ms"`
	WakeNoSpeechRearmMS  *int `json:"wake_no_speech_rearm_ms"`
	WakeErrorRearmMS     *int `json:"wake_error_rearm_ms"`
	WakeCooldownMS       *int `json:"wake_cooldown_ms"`
	StateMaxAgeMS        *int `json:"state_max_age_ms"`
}

type jsoncWake struct {
	Enabled         *bool    `json:"enabled"`
	FrameMS         *int     `json:"frame_ms"`
	RMSThreshold    *float64 `json:"rms_threshold"`
	MinSpeechMS     *int     `json:"min_speech_ms"`
	EndSilenceMS    *int     `json:"end_silence_ms"`
	PrerollMS       *int     `json:"preroll_ms"`
	PrerollMaxAgeMS *int     `json:"preroll_max_age_ms"`
	MinConsecutive  *int     `json:"min_consecutive"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
	Backend  *string `json:"backend"`
}

type jsoncPaste struct {
	Enable   *bool   `json:"enable"`
	Shortcut *string `json:"shortcut"`
}

type jsoncASR struct {
	AutomaticPunctuation *bool   `json:"automatic_punctuation"`
	LanguageCode         *string `json:"language_code"`
	Model                *string `json:"model"`
}

type jsoncTranscript struct {
	TrailingSpace       *bool `json:"trailing_space"`
	CapitalizeSentences *bool `json:"capitalize_sentences"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
	Height         *int    `json:"height"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
}

type jsoncVocab struct {
	Global     *jsoncStringList         `json:"global"`
	MaxPhrases *int                     `json:"max_phrases"`
	Sets       map[string]jsoncVocabSet `json:"sets"`
}

type jsoncVocabSet struct {
	Boost   *float64 `json:"boost"`
	Phrases []string `json:"phrases"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
	GRPCDump  *bool `json:"grpc_dump"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		parts := strings.Split(single, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
		*l = out
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
		if payload.Audio.Backend != nil {
			cfg.Audio.Backend = strings.TrimSpace(*payload.Audio.Backend)
		}
	}

	if payload.Paste != nil {
		if payload.Paste.Enable != nil {
			cfg.Paste.Enable = *payload.Paste.Enable
		}
		if payload.Paste.Shortcut != nil {
			cfg.Paste.Shortcut = strings.TrimSpace(*payload.Paste.Shortcut)
		}
	}

	if payload.ASR != nil {
		if payload.ASR.AutomaticPunctuation != nil {
			cfg.ASR.AutomaticPunctuation = *payload.ASR.AutomaticPunctuation
		}
		if payload.ASR.LanguageCode != nil {
			cfg.ASR.LanguageCode = *payload.ASR.LanguageCode
		}
		if payload.ASR.Model != nil {
			cfg.ASR.Model = *payload.ASR.Model
		}
	}

	if payload.Transcript != nil && payload.Transcript.TrailingSpace != nil {
		cfg.Transcript.TrailingSpace = *payload.Transcript.TrailingSpace
	}
	if payload.Transcript != nil && payload.Transcript.CapitalizeSentences != nil {
		cfg.Transcript.CapitalizeSentences = *payload.Transcript.CapitalizeSentences
	}

	if payload.Indicator != nil {
		if payload.Indicator.Enable != nil {
			cfg.Indicator.Enable = *payload.Indicator.Enable
		}
		if payload.Indicator.Backend != nil {
			cfg.Indicator.Backend = strings.TrimSpace(*payload.Indicator.Backend)
		}
		if payload.Indicator.DesktopAppName != nil {
			cfg.Indicator.DesktopAppName = strings.TrimSpace(*payload.Indicator.DesktopAppName)
		}
		if payload.Indicator.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *payload.Indicator.SoundEnable
		}
		if payload.Indicator.Height != nil {
			cfg.Indicator.Height = *payload.Indicator.Height
		}
		if payload.Indicator.ErrorTimeoutMS != nil {
			cfg.Indicator.ErrorTimeoutMS = *payload.Indicator.ErrorTimeoutMS
		}
	}

	if payload.ClipboardCmd != nil {
		raw := *payload.ClipboardCmd
		argv, err := parseArgv(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid clipboard_cmd: %w", err)
		}
		cfg.Clipboard = CommandConfig{Raw: raw, Argv: argv}
	}

	if payload.PasteCmd != nil {
		raw := *payload.PasteCmd
		argv, err := parseArgv(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid paste_cmd: %w", err)
		}
		cfg.PasteCmd = CommandConfig{Raw: raw, Argv: argv}
	}

	if payload.TranscriberCmd != nil {
		raw := *payload.TranscriberCmd
		argv, err := parseArgv(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid transcriber_cmd: %w", err)
		}
		cfg.Transcriber.Cmd = CommandConfig{Raw: raw, Argv: argv}
	}

	if payload.Queue != nil && payload.Queue.Capacity != nil {
		cfg.Queue.Capacity = *payload.Queue.Capacity
	}

	if payload.Timeouts != nil {
		applyTimeouts(payload.Timeouts, &cfg.Timeouts)
	}

	if payload.Wake != nil {
		w := payload.Wake
		if w.Enabled != nil {
			cfg.Wake.Enabled = *w.Enabled
		}
		if w.FrameMS != nil {
			cfg.Wake.FrameMS = *w.FrameMS
		}
		if w.RMSThreshold != nil {
			cfg.Wake.RMSThreshold = *w.RMSThreshold
		}
		if w.MinSpeechMS != nil {
			cfg.Wake.MinSpeechMS = *w.MinSpeechMS
		}
		if w.EndSilenceMS != nil {
			cfg.Wake.EndSilenceMS = *w.EndSilenceMS
		}
		if w.PrerollMS != nil {
			cfg.Wake.PrerollMS = *w.PrerollMS
		}
		if w.PrerollMaxAgeMS != nil {
			cfg.Wake.PrerollMaxAgeMS = *w.PrerollMaxAgeMS
		}
		if w.MinConsecutive != nil {
			cfg.Wake.MinConsecutive = *w.MinConsecutive
		}
	}

	if payload.Vocab != nil {
		if payload.Vocab.Global != nil {
			cfg.Vocab.GlobalSets = cfg.Vocab.GlobalSets[:0]
			for _, name := range *payload.Vocab.Global {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				cfg.Vocab.GlobalSets = append(cfg.Vocab.GlobalSets, name)
			}
		}
		if payload.Vocab.MaxPhrases != nil {
			cfg.Vocab.MaxPhrases = *payload.Vocab.MaxPhrases
		}
		if payload.Vocab.Sets != nil {
			if cfg.Vocab.Sets == nil {
				cfg.Vocab.Sets = make(map[string]VocabSet)
			}
			for name, set := range payload.Vocab.Sets {
				trimmedName := strings.TrimSpace(name)
				if trimmedName == "" {
					return nil, fmt.Errorf("vocab.sets contains an empty set name")
				}

				phrases := make([]string, 0, len(set.Phrases))
				phrases = append(phrases, set.Phrases...)

				entry := VocabSet{Name: trimmedName, Phrases: phrases}
				if set.Boost != nil {
					entry.Boost = *set.Boost
				}
				cfg.Vocab.Sets[trimmedName] = entry
			}
		}
	}

	if payload.Debug != nil {
		if payload.Debug.AudioDump != nil {
			cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
		}
		if payload.Debug.GRPCDump != nil {
			cfg.Debug.EnableGRPCDump = *payload.Debug.GRPCDump
		}
	}

	return warnings, nil
}

func applyTimeouts(src *jsoncTimeouts, dst *TimeoutsConfig) {
	if src.ClientConnectMS != nil {
		dst.ClientConnectMS = *src.ClientConnectMS
	}
	if src.ClientResponseMS != nil {
		dst.ClientResponseMS = *src.ClientResponseMS
	}
	if src.DaemonReadyMS != nil {
		dst.DaemonReadyMS = *src.DaemonReadyMS
	}
	if src.StopSIGINTMS != nil {
		dst.StopSIGINTMS = *src.StopSIGINTMS
	}
	if src.StopSIGTERMMS != nil {
		dst.StopSIGTERMMS = *src.StopSIGTERMMS
	}
	if src.StopSIGKILLMS != nil {
		dst.StopSIGKILLMS = *src.StopSIGKILLMS
	}
	if src.AudioReadyPollMS != nil {
		dst.AudioReadyPollMS = *src.AudioReadyPollMS
	}
	if src.SessionMaxMS != nil {
		dst.SessionMaxMS = *src.SessionMaxMS
	}
	if src.WakeSessionMaxMS != nil {
		dst.WakeSessionMaxMS = *src.WakeSessionMaxMS
	}
	if src.WakeStartSpeechMS != nil {
		dst.WakeStartSpeechMS = *src.WakeStartSpeechMS
	}
	if src.WakeNoSpeechRearmMS != nil {
		dst.WakeNoSpeechRearmMS = *src.WakeNoSpeechRearmMS
	}
	if src.WakeErrorRearmMS != nil {
		dst.WakeErrorRearmMS = *src.WakeErrorRearmMS
	}
	if src.WakeCooldownMS != nil {
		dst.WakeCooldownMS = *src.WakeCooldownMS
	}
	if src.StateMaxAgeMS != nil {
		dst.StateMaxAgeMS = *src.StateMaxAgeMS
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
