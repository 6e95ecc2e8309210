package conversation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hammamikhairi/talkytime/internal/clock"
	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/engine"
	"github.com/hammamikhairi/talkytime/internal/logger"
	"github.com/hammamikhairi/talkytime/internal/voices"
)

// Controller is the part of the engine the shell drives.
type Controller interface {
	Speak(ctx context.Context) (string, error)
	Silence()
	ToggleClock() clock.State
	SetTemplate(tmpl string)
	SelectVoice(i int) error
	SetControl(id string, v any) error
	VoiceGroups() voices.Groups
	SelectedVoice() int
	ParamsJSON() ([]byte, error)
	State() engine.State
	Verify(ctx context.Context) (engine.VerifyResult, error)
	History(ctx context.Context, n int) ([]domain.Announcement, error)
}

var _ Controller = (*engine.Engine)(nil)

// Shell runs typed commands against the engine and reports on a notifier.
type Shell struct {
	ctl    Controller
	parser *KeywordParser
	out    domain.Notifier
	log    *logger.Logger
}

// NewShell creates a line-command shell.
func NewShell(ctl Controller, out domain.Notifier, log *logger.Logger) *Shell {
	return &Shell{ctl: ctl, parser: NewKeywordParser(log), out: out, log: log}
}

// Lines feeds r line by line into a channel that closes at EOF.
func Lines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}

// Run handles lines until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if s.Handle(ctx, line) {
				return nil
			}
		}
	}
}

// Handle runs a single line and reports whether the shell should exit.
func (s *Shell) Handle(ctx context.Context, line string) (quit bool) {
	cmd, err := s.parser.Parse(ctx, line)
	if err != nil {
		s.log.Error("parsing input: %v", err)
		return false
	}
	s.log.Debug("command: %s (payload=%q)", cmd.Type, cmd.Payload)

	switch cmd.Type {
	case domain.CommandSpeak:
		if _, err := s.ctl.Speak(ctx); err != nil {
			s.fail(ctx, err)
			return false
		}
		s.say(ctx, "Speaking: %s", s.ctl.State().TimeString)
	case domain.CommandSilence:
		s.ctl.Silence()
		s.say(ctx, "Silenced.")
	case domain.CommandToggleClock:
		st := s.ctl.ToggleClock()
		s.say(ctx, "Clock %s.", st)
	case domain.CommandFormat:
		s.ctl.SetTemplate(cmd.Payload)
		s.say(ctx, "%s", s.ctl.State().TimeString)
	case domain.CommandVoice:
		s.selectVoice(ctx, cmd.Payload)
	case domain.CommandSet:
		s.set(ctx, cmd.Payload)
	case domain.CommandVoices:
		s.listVoices(ctx)
	case domain.CommandParams:
		b, err := s.ctl.ParamsJSON()
		if err != nil {
			s.fail(ctx, err)
			return false
		}
		s.say(ctx, "%s", b)
	case domain.CommandStatus:
		s.status(ctx)
	case domain.CommandCheck:
		s.check(ctx)
	case domain.CommandHistory:
		s.history(ctx, cmd.Payload)
	case domain.CommandHelp:
		s.help(ctx)
	case domain.CommandQuit:
		s.ctl.Silence()
		return true
	case domain.CommandUnknown:
		if cmd.Payload != "" {
			s.urgent(ctx, "Unknown command %q. Type help for the list.", cmd.Payload)
		}
	}
	return false
}

func (s *Shell) say(ctx context.Context, format string, a ...any) {
	_ = s.out.Notify(ctx, fmt.Sprintf(format, a...))
}

func (s *Shell) urgent(ctx context.Context, format string, a ...any) {
	_ = s.out.NotifyUrgent(ctx, fmt.Sprintf(format, a...))
}

func (s *Shell) fail(ctx context.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNoVoice):
		s.urgent(ctx, "No voice selected. Type voices, then voice <n>.")
	case errors.Is(err, domain.ErrRecorderDisabled):
		s.urgent(ctx, "No microphone transcriber configured.")
	case errors.Is(err, domain.ErrNoTimestamp):
		s.urgent(ctx, "Could not hear a timestamp: %v", err)
	default:
		s.urgent(ctx, "Error: %v", err)
	}
}

func (s *Shell) selectVoice(ctx context.Context, payload string) {
	i, err := strconv.Atoi(payload)
	if err != nil {
		s.urgent(ctx, "Voice must be a number, got %q.", payload)
		return
	}
	if err := s.ctl.SelectVoice(i); err != nil {
		s.fail(ctx, err)
		return
	}
	if v, ok := voiceAt(s.ctl.VoiceGroups(), i); ok {
		s.say(ctx, "Voice: %s", v.Label())
	}
}

func (s *Shell) set(ctx context.Context, payload string) {
	id, raw, _ := strings.Cut(payload, " ")
	var v any = raw
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		v = f
	}
	if err := s.ctl.SetControl(id, v); err != nil {
		s.fail(ctx, err)
		return
	}
	s.say(ctx, "%s = %s", id, raw)
}

func (s *Shell) listVoices(ctx context.Context) {
	g := s.ctl.VoiceGroups()
	if g.Len() == 0 {
		s.urgent(ctx, "No voices available.")
		return
	}
	sel := s.ctl.SelectedVoice()
	for i, v := range g.All() {
		mark := " "
		if i == sel {
			mark = "*"
		}
		if i == len(g.Defaults) && len(g.Defaults) > 0 {
			s.say(ctx, "  ──────────")
		}
		s.say(ctx, "%s %2d  %s", mark, i, v.Label())
	}
}

func (s *Shell) status(ctx context.Context) {
	st := s.ctl.State()
	s.say(ctx, "%s", st.TimeString)
	clk := "stopped"
	if st.Running {
		clk = fmt.Sprintf("running every %gms", st.IntervalMS)
	}
	voice := "none"
	if v, ok := voiceAt(st.Voices, st.Selected); ok {
		voice = v.Label()
	}
	s.say(ctx, "clock %s | voice %s | backend %s | speaking %t", clk, voice, st.Backend, st.Speaking)
}

func (s *Shell) check(ctx context.Context) {
	s.say(ctx, "Listening...")
	res, err := s.ctl.Verify(ctx)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	if res.Match {
		s.say(ctx, "Heard %s, matches %s.", res.Stamp, res.Expected)
		return
	}
	s.urgent(ctx, "Heard %s (%q), expected %s.", res.Stamp, res.Heard, res.Expected)
}

const defaultHistory = 10

func (s *Shell) history(ctx context.Context, payload string) {
	n := defaultHistory
	if payload != "" {
		n, _ = strconv.Atoi(payload)
	}
	items, err := s.ctl.History(ctx, n)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	if len(items) == 0 {
		s.say(ctx, "Nothing announced yet.")
		return
	}
	for _, a := range items {
		s.say(ctx, "%s  %-9s %s (%s)", a.Stamp, a.Status, a.Text, a.Voice.Name)
	}
}

func (s *Shell) help(ctx context.Context) {
	s.say(ctx, "Commands:")
	s.say(ctx, "  speak / s          Announce the current time")
	s.say(ctx, "  silence / shh      Stop speaking")
	s.say(ctx, "  toggle / clock     Start or stop the clock")
	s.say(ctx, "  format <template>  Change the time format, e.g. format ${hour}:${minute}")
	s.say(ctx, "  voices             List voices")
	s.say(ctx, "  voice <n> / <n>    Select a voice")
	s.say(ctx, "  set <id> <value>   Change a setting, e.g. set speech-rate 1.2")
	s.say(ctx, "  params             Show settings and time parts as JSON")
	s.say(ctx, "  status             Show time, clock and voice")
	s.say(ctx, "  check              Speak and listen back for the timestamp")
	s.say(ctx, "  history [n]        Show the last announcements")
	s.say(ctx, "  help               Show this message")
	s.say(ctx, "  quit / exit        Exit")
}

func voiceAt(g voices.Groups, i int) (domain.Voice, bool) {
	all := g.All()
	if i < 0 || i >= len(all) {
		return domain.Voice{}, false
	}
	return all[i], true
}
