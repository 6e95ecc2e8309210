// Package conversation drives headless mode: it parses typed lines into
// commands, runs them against the engine and reports back on a notifier.
package conversation

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/logger"
)

// KeywordParser matches input lines to commands using keywords and simple
// patterns.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
}

type patternRule struct {
	regex   *regexp.Regexp
	command domain.CommandType
	payload bool // first capture group is the payload
}

// NewKeywordParser creates a keyword-based command parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^(speak|say|announce|now|s)$`), domain.CommandSpeak, false},
		{regexp.MustCompile(`(?i)^(silence|hush|shh+|cancel|x)$`), domain.CommandSilence, false},
		{regexp.MustCompile(`(?i)^(toggle|clock|start|stop|t)$`), domain.CommandToggleClock, false},
		{regexp.MustCompile(`(?i)^(voices|list|ls)$`), domain.CommandVoices, false},
		{regexp.MustCompile(`(?i)^(params|parts|json)$`), domain.CommandParams, false},
		{regexp.MustCompile(`(?i)^(status|time|info)$`), domain.CommandStatus, false},
		{regexp.MustCompile(`(?i)^(check|verify)$`), domain.CommandCheck, false},
		{regexp.MustCompile(`(?i)^(help|h|\?)$`), domain.CommandHelp, false},
		{regexp.MustCompile(`(?i)^(quit|exit|q)$`), domain.CommandQuit, false},
		// The template is kept verbatim, spaces and case included.
		{regexp.MustCompile(`(?is)^(?:format|template|fmt)\s+(.+)$`), domain.CommandFormat, true},
		{regexp.MustCompile(`(?i)^(?:voice|v|use)\s+(\d+)$`), domain.CommandVoice, true},
		{regexp.MustCompile(`(?i)^(\d+)$`), domain.CommandVoice, true},
		{regexp.MustCompile(`(?i)^set\s+(\S+\s+\S+)$`), domain.CommandSet, true},
		{regexp.MustCompile(`(?i)^(?:history|log|recent)(?:\s+(\d+))?$`), domain.CommandHistory, true},
	}
	return p
}

// Parse converts one line into a command.
func (p *KeywordParser) Parse(_ context.Context, input string) (*domain.Command, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return &domain.Command{Type: domain.CommandUnknown}, nil
	}

	p.log.Debug("parsing input: %q", trimmed)

	for _, rule := range p.patterns {
		m := rule.regex.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		p.log.Debug("matched command: %s", rule.command)
		if rule.payload {
			return &domain.Command{Type: rule.command, Payload: strings.TrimSpace(m[1])}, nil
		}
		return &domain.Command{Type: rule.command}, nil
	}

	p.log.Debug("no match, returning unknown command")
	return &domain.Command{Type: domain.CommandUnknown, Payload: trimmed}, nil
}
