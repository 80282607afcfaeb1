// Package config resolves, parses, validates, and defaults voxd configuration.
package config

// Config is the fully materialized runtime configuration used by voxd.
type Config struct {
	Transcriber TranscriberConfig
	Audio       AudioConfig
	Paste       PasteConfig
	ASR         ASRConfig
	Transcript  TranscriptConfig
	Indicator   IndicatorConfig
	Clipboard   CommandConfig
	PasteCmd    CommandConfig
	Vocab       VocabConfig
	Debug       DebugConfig
	Queue       QueueConfig
	Timeouts    TimeoutsConfig
	Wake        WakeConfig
}

// TranscriberConfig names the external speech-to-text command the daemon
// shells out to for each completed capture.
type TranscriberConfig struct {
	Cmd CommandConfig
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
	// Backend is the ffmpeg `-f` input format used by hold-session capture
	// subprocesses (e.g. "pulse", "alsa").
	Backend string
}

// PasteConfig controls post-commit paste behavior.
type PasteConfig struct {
	Enable   bool
	Shortcut string
}

// ASRConfig controls request-level hints passed to the transcriber.
type ASRConfig struct {
	AutomaticPunctuation bool
	LanguageCode         string
	Model                string
}

// TranscriptConfig controls transcript assembly formatting.
type TranscriptConfig struct {
	TrailingSpace       bool
	CapitalizeSentences bool
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	Backend           string
	DesktopAppName    string
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundCancelFile   string
	SoundWakeFile     string
	Height            int
	TextRecording     string
	TextProcessing    string
	TextError         string
	ErrorTimeoutMS    int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// VocabConfig controls enabled speech phrase sets and dedupe limits.
type VocabConfig struct {
	GlobalSets []string
	Sets       map[string]VocabSet
	MaxPhrases int
}

// VocabSet is one named phrase group with a shared boost value.
type VocabSet struct {
	Name    string
	Boost   float64
	Phrases []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
	EnableGRPCDump  bool
}

// QueueConfig controls the execution queue's admission bound.
type QueueConfig struct {
	Capacity int
}

// TimeoutsConfig materializes the configurable timeouts table governing
// client/daemon handshakes, stop escalation, and wake session pacing.
type TimeoutsConfig struct {
	ClientConnectMS     int
	ClientResponseMS    int
	DaemonReadyMS       int
	StopSIGINTMS        int
	StopSIGTERMMS       int
	StopSIGKILLMS       int
	AudioReadyPollMS    int
	SessionMaxMS        int
	WakeSessionMaxMS    int
	WakeStartSpeechMS   int
	WakeNoSpeechRearmMS int
	WakeErrorRearmMS    int
	WakeCooldownMS      int
	// StateMaxAgeMS bounds how old a recovered hold-session descriptor file
	// may be before it is treated as stale (crashed daemon leftover) rather
	// than a session to resume control of.
	StateMaxAgeMS int
}

// WakeConfig controls wake-word endpointing and trigger pacing.
type WakeConfig struct {
	Enabled        bool
	FrameMS        int
	RMSThreshold   float64
	MinSpeechMS    int
	EndSilenceMS   int
	PrerollMS      int
	PrerollMaxAgeMS int
	MinConsecutive int
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// SpeechPhrase is the normalized phrase payload sent to ASR adapters.
type SpeechPhrase struct {
	Phrase string
	Boost  float32
}
