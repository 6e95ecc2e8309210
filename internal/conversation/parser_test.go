package conversation

import (
	"context"
	"testing"

	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/logger"
)

func TestKeywordParser(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	parser := NewKeywordParser(log)
	ctx := context.Background()

	tests := []struct {
		input       string
		wantType    domain.CommandType
		wantPayload string
	}{
		// Speak
		{"speak", domain.CommandSpeak, ""},
		{"Say", domain.CommandSpeak, ""},
		{"s", domain.CommandSpeak, ""},

		// Silence
		{"silence", domain.CommandSilence, ""},
		{"shhh", domain.CommandSilence, ""},

		// Clock
		{"toggle", domain.CommandToggleClock, ""},
		{"clock", domain.CommandToggleClock, ""},
		{"stop", domain.CommandToggleClock, ""},

		// Format keeps the template verbatim
		{"format ${hour}:${minute} Zulu", domain.CommandFormat, "${hour}:${minute} Zulu"},
		{"fmt   ${weekday}  ", domain.CommandFormat, "${weekday}"},

		// Voice
		{"voice 3", domain.CommandVoice, "3"},
		{"v 0", domain.CommandVoice, "0"},
		{"12", domain.CommandVoice, "12"},

		// Set
		{"set speech-rate 1.5", domain.CommandSet, "speech-rate 1.5"},
		{"set display-clock_color #ff0000", domain.CommandSet, "display-clock_color #ff0000"},

		// Listings
		{"voices", domain.CommandVoices, ""},
		{"params", domain.CommandParams, ""},
		{"status", domain.CommandStatus, ""},
		{"check", domain.CommandCheck, ""},
		{"verify", domain.CommandCheck, ""},
		{"history", domain.CommandHistory, ""},
		{"log 5", domain.CommandHistory, "5"},

		// Help / Quit
		{"help", domain.CommandHelp, ""},
		{"?", domain.CommandHelp, ""},
		{"quit", domain.CommandQuit, ""},
		{"exit", domain.CommandQuit, ""},
		{"q", domain.CommandQuit, ""},

		// Unknown
		{"voice three", domain.CommandUnknown, "voice three"},
		{"set speech-rate", domain.CommandUnknown, "set speech-rate"},
		{"format", domain.CommandUnknown, "format"},
		{"", domain.CommandUnknown, ""},
		{"   ", domain.CommandUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, err := parser.Parse(ctx, tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd.Type != tt.wantType {
				t.Errorf("Parse(%q).Type = %s, want %s", tt.input, cmd.Type, tt.wantType)
			}
			if cmd.Payload != tt.wantPayload {
				t.Errorf("Parse(%q).Payload = %q, want %q", tt.input, cmd.Payload, tt.wantPayload)
			}
		})
	}
}
