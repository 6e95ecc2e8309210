package domain

// CommandType classifies a line typed in headless mode.
type CommandType int

const (
	CommandUnknown CommandType = iota
	CommandSpeak
	CommandSilence
	CommandToggleClock
	CommandFormat   // payload: new template
	CommandVoice    // payload: selection index
	CommandSet      // payload: "<control-id> <value>"
	CommandVoices   // list the voice catalog
	CommandParams   // dump the time parts as JSON
	CommandStatus   // print time string, clock state and voice
	CommandCheck    // speak and recognise the stamp
	CommandHistory  // payload: optional count
	CommandHelp
	CommandQuit
)

// String returns the snake_case name of the command.
func (c CommandType) String() string {
	for name, t := range commandNames {
		if t == c {
			return name
		}
	}
	return "unknown"
}

// Command is a parsed headless-mode instruction.
type Command struct {
	Type    CommandType
	Payload string
}

var commandNames = map[string]CommandType{
	"speak":        CommandSpeak,
	"silence":      CommandSilence,
	"toggle_clock": CommandToggleClock,
	"format":       CommandFormat,
	"voice":        CommandVoice,
	"set":          CommandSet,
	"voices":       CommandVoices,
	"params":       CommandParams,
	"status":       CommandStatus,
	"check":        CommandCheck,
	"history":      CommandHistory,
	"help":         CommandHelp,
	"quit":         CommandQuit,
	"unknown":      CommandUnknown,
}

// CommandFromString converts a snake_case command name to a CommandType.
// Returns CommandUnknown for unrecognized names.
func CommandFromString(name string) CommandType {
	if t, ok := commandNames[name]; ok {
		return t
	}
	return CommandUnknown
}
