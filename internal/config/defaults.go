package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"

	return Config{
		Transcriber: TranscriberConfig{
			Cmd: CommandConfig{},
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
			Backend:  "pulse",
		},
		Paste: PasteConfig{Enable: true, Shortcut: "CTRL,V"},
		ASR: ASRConfig{
			AutomaticPunctuation: true,
			LanguageCode:         "en-US",
			Model:                "",
		},
		Transcript: TranscriptConfig{
			TrailingSpace:       true,
			CapitalizeSentences: true,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "voxd-indicator",
			SoundEnable:    true,
			Height:         28,
			ErrorTimeoutMS: 1600,
		},
		Clipboard: CommandConfig{Raw: clipboard, Argv: mustParseArgv(clipboard)},
		Vocab: VocabConfig{
			GlobalSets: nil,
			Sets:       map[string]VocabSet{},
			MaxPhrases: 1024,
		},
		Debug: DebugConfig{},
		Queue: QueueConfig{Capacity: 8},
		Timeouts: TimeoutsConfig{
			ClientConnectMS:     400,
			ClientResponseMS:    180_000,
			DaemonReadyMS:       60_000,
			StopSIGINTMS:        1500,
			StopSIGTERMMS:       1000,
			StopSIGKILLMS:       500,
			AudioReadyPollMS:    2000,
			SessionMaxMS:        12_000,
			WakeSessionMaxMS:    8000,
			WakeStartSpeechMS:   7000,
			WakeNoSpeechRearmMS: 5000,
			WakeErrorRearmMS:    1200,
			WakeCooldownMS:      1500,
			StateMaxAgeMS:       30_000,
		},
		Wake: WakeConfig{
			Enabled:         false,
			FrameMS:         20,
			RMSThreshold:    400,
			MinSpeechMS:     150,
			EndSilenceMS:    600,
			PrerollMS:       800,
			PrerollMaxAgeMS: 2000,
			MinConsecutive:  2,
		},
	}
}
