package conversation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hammamikhairi/talkytime/internal/clock"
	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/engine"
	"github.com/hammamikhairi/talkytime/internal/logger"
	"github.com/hammamikhairi/talkytime/internal/voices"
)

type fakeController struct {
	spoke    int
	silenced int
	running  bool
	template string
	selected int
	set      map[string]any
	speakErr error
	groups   voices.Groups
}

func newFakeController() *fakeController {
	return &fakeController{
		selected: -1,
		set:      map[string]any{},
		groups: voices.Groups{
			Defaults: []domain.Voice{{ID: "a", Name: "Ava", Lang: "en-US", Default: true}},
			Others:   []domain.Voice{{ID: "b", Name: "Hans", Lang: "de-DE"}},
		},
	}
}

func (f *fakeController) Speak(context.Context) (string, error) {
	if f.speakErr != nil {
		return "", f.speakErr
	}
	f.spoke++
	return "id", nil
}
func (f *fakeController) Silence() { f.silenced++ }
func (f *fakeController) ToggleClock() clock.State {
	f.running = !f.running
	if f.running {
		return clock.Running
	}
	return clock.Stopped
}
func (f *fakeController) SetTemplate(tmpl string) { f.template = tmpl }
func (f *fakeController) SelectVoice(i int) error {
	if i < 0 || i >= f.groups.Len() {
		return fmt.Errorf("%w: %d", domain.ErrNoVoice, i)
	}
	f.selected = i
	return nil
}
func (f *fakeController) SetControl(id string, v any) error {
	if !strings.HasPrefix(id, "speech-") {
		return domain.ErrUnknownControl
	}
	f.set[id] = v
	return nil
}
func (f *fakeController) VoiceGroups() voices.Groups  { return f.groups }
func (f *fakeController) SelectedVoice() int          { return f.selected }
func (f *fakeController) ParamsJSON() ([]byte, error) { return []byte(`{"template":"x"}`), nil }
func (f *fakeController) State() engine.State {
	return engine.State{TimeString: "16:30 zulu", Running: f.running, Voices: f.groups, Selected: f.selected}
}
func (f *fakeController) History(_ context.Context, n int) ([]domain.Announcement, error) {
	all := []domain.Announcement{
		{ID: "2", Text: "16:31 zulu", Status: domain.StatusCached, Stamp: "20261016-163100-Fri", Voice: domain.Voice{Name: "Ava"}},
		{ID: "1", Text: "16:30 zulu", Status: domain.StatusOK, Stamp: "20261016-163000-Fri", Voice: domain.Voice{Name: "Ava"}},
	}
	if n > 0 && n < len(all) {
		all = all[:n]
	}
	return all, nil
}

func (f *fakeController) Verify(context.Context) (engine.VerifyResult, error) {
	return engine.VerifyResult{Stamp: "20261016-163000-Fri", Expected: "20261016-163005-Fri", Match: true}, nil
}

type recordingNotifier struct {
	normal []string
	urgent []string
}

func (n *recordingNotifier) Notify(_ context.Context, m string) error {
	n.normal = append(n.normal, m)
	return nil
}

func (n *recordingNotifier) NotifyUrgent(_ context.Context, m string) error {
	n.urgent = append(n.urgent, m)
	return nil
}

func newTestShell() (*Shell, *fakeController, *recordingNotifier) {
	ctl := newFakeController()
	out := &recordingNotifier{}
	return NewShell(ctl, out, logger.New(logger.LevelOff, nil)), ctl, out
}

func TestShellCommands(t *testing.T) {
	sh, ctl, out := newTestShell()
	ctx := context.Background()

	for _, line := range []string{"speak", "toggle", "format ${hour}", "1", "set speech-rate 1.5", "set speech-pitch low", "silence"} {
		if sh.Handle(ctx, line) {
			t.Fatalf("%q requested quit", line)
		}
	}

	if ctl.spoke != 1 || !ctl.running || ctl.template != "${hour}" || ctl.selected != 1 || ctl.silenced != 1 {
		t.Fatalf("unexpected controller state: %+v", ctl)
	}
	if ctl.set["speech-rate"] != 1.5 {
		t.Fatalf("numeric set = %#v", ctl.set["speech-rate"])
	}
	if ctl.set["speech-pitch"] != "low" {
		t.Fatalf("text set = %#v", ctl.set["speech-pitch"])
	}
	if len(out.urgent) != 0 {
		t.Fatalf("unexpected errors: %v", out.urgent)
	}
	if !strings.Contains(strings.Join(out.normal, "\n"), "Hans (de-DE)") {
		t.Fatalf("voice selection not reported: %v", out.normal)
	}
}

func TestShellErrors(t *testing.T) {
	sh, ctl, out := newTestShell()
	ctx := context.Background()
	ctl.speakErr = domain.ErrNoVoice

	sh.Handle(ctx, "speak")
	sh.Handle(ctx, "voice 9")
	sh.Handle(ctx, "set bogus 1")
	sh.Handle(ctx, "dance")

	if len(out.urgent) != 4 {
		t.Fatalf("urgent = %d (%v), want 4", len(out.urgent), out.urgent)
	}
	if !strings.Contains(out.urgent[0], "No voice selected") {
		t.Fatalf("no-voice message = %q", out.urgent[0])
	}
	if !strings.Contains(out.urgent[3], `"dance"`) {
		t.Fatalf("unknown message = %q", out.urgent[3])
	}
}

func TestShellListsVoicesWithSeparator(t *testing.T) {
	sh, ctl, out := newTestShell()
	ctl.selected = 0
	sh.Handle(context.Background(), "voices")

	if len(out.normal) != 3 {
		t.Fatalf("lines = %v", out.normal)
	}
	if !strings.HasPrefix(out.normal[0], "*") || !strings.Contains(out.normal[0], "DEFAULT") {
		t.Fatalf("first line = %q", out.normal[0])
	}
	if !strings.Contains(out.normal[1], "──") {
		t.Fatalf("missing separator: %q", out.normal[1])
	}
}

func TestShellHistory(t *testing.T) {
	sh, _, out := newTestShell()
	sh.Handle(context.Background(), "history 1")

	if len(out.normal) != 1 {
		t.Fatalf("lines = %v", out.normal)
	}
	if !strings.HasPrefix(out.normal[0], "20261016-163100-Fri") || !strings.Contains(out.normal[0], "16:31 zulu (Ava)") {
		t.Fatalf("history line = %q", out.normal[0])
	}
}

func TestShellRunStopsOnQuit(t *testing.T) {
	sh, ctl, _ := newTestShell()
	lines := Lines(strings.NewReader("speak\nquit\nspeak\n"))

	if err := sh.Run(context.Background(), lines); err != nil {
		t.Fatalf("run: %v", err)
	}
	if ctl.spoke != 1 {
		t.Fatalf("spoke %d times, want 1", ctl.spoke)
	}
	if ctl.silenced != 1 {
		t.Fatal("quit should silence")
	}
}

func TestShellRunStopsAtEOF(t *testing.T) {
	sh, ctl, _ := newTestShell()
	if err := sh.Run(context.Background(), Lines(strings.NewReader("toggle\n"))); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !ctl.running {
		t.Fatal("toggle not applied")
	}
}

func TestShellRunCancelled(t *testing.T) {
	sh, _, _ := newTestShell()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sh.Run(ctx, make(chan string)); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
