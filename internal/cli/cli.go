package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandToggle         Command = "toggle"
	CommandDictate        Command = "dictate"
	CommandCommand        Command = "command"
	CommandWakeStart      Command = "wake-start"
	CommandWakewordToggle Command = "wakeword-toggle"
	CommandStop           Command = "stop"
	CommandCancel         Command = "cancel"
	CommandStatus         Command = "status"
	CommandDevices        Command = "devices"
	CommandDoctor         Command = "doctor"
	CommandVersion        Command = "version"
	CommandHelp           Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandToggle:         {},
	CommandDictate:        {},
	CommandCommand:        {},
	CommandWakeStart:      {},
	CommandWakewordToggle: {},
	CommandStop:           {},
	CommandCancel:         {},
	CommandStatus:         {},
	CommandDevices:        {},
	CommandDoctor:         {},
	CommandVersion:        {},
	CommandHelp:           {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	// Daemon is set by the hidden --daemon flag used to re-exec this binary
	// as the persistent background service; it is never listed in help
	// text or accepted alongside a positional command.
	Daemon bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--daemon":
			parsed.ShowHelp = false
			parsed.Daemon = true
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  toggle           Start dictation or stop+commit when already recording
  dictate          Same as toggle: start or stop a dictation hold session
  command          Start or stop a voice-command hold session
  wake-start       Forward a wake-trigger capture request to the daemon
  wakeword-toggle  Enable or disable the wake-word listener
  stop             Stop the active hold session and commit its transcript
  cancel           Cancel the active hold session and discard its transcript
  status           Print current state
  devices          List available input devices
  doctor           Run configuration and environment checks
  version          Print version information
  help             Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/voxd/config.conf)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
