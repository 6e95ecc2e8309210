package display

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/engine"
	"github.com/hammamikhairi/talkytime/internal/voices"
)

// Section identifiers, one per element of the page.
const (
	SectionTimeFormat = "time-format"
	SectionTimeString = "time-string"
	SectionSpeak      = "speak-button"
	SectionSilence    = "silence-button"
	SectionRunClock   = "run-clock-button"
	SectionVoices     = "voice-selector"
	SectionControls   = "config-control"
	SectionParams     = "params-json"
)

const (
	defaultPanelWidth = 72
	sliderWidth       = 20
	voiceWindow       = 8
)

type focus int

const (
	focusFormat focus = iota
	focusButtons
	focusVoices
	focusControls
	focusCount
)

// Messages.
type (
	stateMsg struct{ event engine.Event }
	flashMsg struct {
		text   string
		urgent bool
	}
	verifyMsg struct {
		res engine.VerifyResult
		err error
	}
)

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	ctx  context.Context
	page Page
	exec func(action)

	state engine.State
	focus  focus
	button int // cursor over the buttons
	ctrl   int // cursor over the controls

	format  textinput.Model
	editor  textinput.Model
	editing string // id of the control whose value is being typed

	showParams bool
	params     string

	flash     string
	urgent    bool
	listening bool

	keys  keyMap
	help  help.Model
	width int
}

func newModel(ctx context.Context, page Page, exec func(action)) model {
	st := page.State()

	ti := textinput.New()
	// Plain prompts keep the textinput width math correct.
	ti.Prompt = ""
	ti.Placeholder = "${hour}:${minute} zulu"
	ti.CharLimit = 500
	ti.Width = defaultPanelWidth - 4
	ti.SetValue(st.Template)

	ed := textinput.New()
	ed.Prompt = "= "
	ed.PromptStyle = promptStyle
	ed.CharLimit = 32
	ed.Width = 16

	return model{
		ctx:    ctx,
		page:   page,
		exec:   exec,
		state:  st,
		focus:  focusButtons,
		format: ti,
		editor: ed,
		keys:   newKeyMap(),
		help:   help.New(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.SetWindowTitle("TalkyTime")
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.format.Width = m.panelWidth() - 4
		return m, nil

	case stateMsg:
		m.state = m.page.State()
		if !m.format.Focused() {
			m.format.SetValue(m.state.Template)
		}
		if m.showParams {
			m.loadParams()
		}
		if n := len(m.controls()); m.ctrl >= n {
			m.ctrl = max(n-1, 0)
		}
		return m, nil

	case flashMsg:
		m.flash, m.urgent = msg.text, msg.urgent
		return m, nil

	case verifyMsg:
		m.listening = false
		m.flash, m.urgent = verifyText(msg.res, msg.err)
		return m, nil
	}

	var cmd tea.Cmd
	if m.editing != "" {
		m.editor, cmd = m.editor.Update(msg)
	} else if m.format.Focused() {
		m.format, cmd = m.format.Update(msg)
	}
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.editing != "" {
		return m.handleEditorKey(msg)
	}
	if m.focus == focusFormat {
		return m.handleFormatKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		m.exec(func(context.Context) error { m.page.Silence(); return nil })
		return m, tea.Quit
	case key.Matches(msg, m.keys.speak):
		m.press(SectionSpeak)
	case key.Matches(msg, m.keys.silence):
		m.press(SectionSilence)
	case key.Matches(msg, m.keys.clock):
		m.press(SectionRunClock)
	case key.Matches(msg, m.keys.check):
		if m.listening {
			return m, nil
		}
		m.listening = true
		m.flash, m.urgent = "Listening...", false
		return m, m.verifyCmd()
	case key.Matches(msg, m.keys.params):
		m.showParams = !m.showParams
		if m.showParams {
			m.loadParams()
		}
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.nextFocus):
		return m.setFocus((m.focus + 1) % focusCount)
	case key.Matches(msg, m.keys.prevFocus):
		return m.setFocus((m.focus + focusCount - 1) % focusCount)
	case m.focus == focusButtons:
		m.handleButtonKey(msg)
	case m.focus == focusVoices:
		m.handleVoiceKey(msg)
	case m.focus == focusControls:
		return m.handleControlKey(msg)
	}
	return m, nil
}

func (m model) handleFormatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.nextFocus):
		return m.setFocus(focusButtons)
	case key.Matches(msg, m.keys.prevFocus):
		return m.setFocus(focusControls)
	case key.Matches(msg, m.keys.cancel), key.Matches(msg, m.keys.edit):
		return m.setFocus(focusButtons)
	}

	before := m.format.Value()
	var cmd tea.Cmd
	m.format, cmd = m.format.Update(msg)
	if tmpl := m.format.Value(); tmpl != before {
		m.exec(func(context.Context) error { m.page.SetTemplate(tmpl); return nil })
	}
	return m, cmd
}

var buttonOrder = []string{SectionSpeak, SectionSilence, SectionRunClock}

func (m *model) handleButtonKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.less):
		if m.button > 0 {
			m.button--
		}
	case key.Matches(msg, m.keys.more):
		if m.button < len(buttonOrder)-1 {
			m.button++
		}
	case key.Matches(msg, m.keys.edit):
		m.press(buttonOrder[m.button])
	}
}

// press runs the action behind one of the page buttons.
func (m model) press(button string) {
	switch button {
	case SectionSpeak:
		m.exec(func(ctx context.Context) error {
			_, err := m.page.Speak(ctx)
			return err
		})
	case SectionSilence:
		m.exec(func(context.Context) error { m.page.Silence(); return nil })
	case SectionRunClock:
		m.exec(func(context.Context) error { m.page.ToggleClock(); return nil })
	}
}

func (m *model) handleVoiceKey(msg tea.KeyMsg) {
	n := m.state.Voices.Len()
	switch {
	case key.Matches(msg, m.keys.up):
		if n > 0 && m.state.Selected > 0 {
			m.selectVoice(m.state.Selected - 1)
		}
	case key.Matches(msg, m.keys.down):
		if m.state.Selected < n-1 {
			m.selectVoice(m.state.Selected + 1)
		}
	case key.Matches(msg, m.keys.refresh):
		m.exec(func(ctx context.Context) error { return m.page.RefreshVoices(ctx) })
	}
}

func (m *model) selectVoice(i int) {
	// Move the cursor now so fast key repeats walk the list.
	m.state.Selected = i
	m.exec(func(context.Context) error { return m.page.SelectVoice(i) })
}

func (m model) handleControlKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrls := m.controls()
	if len(ctrls) == 0 {
		return m, nil
	}
	c := ctrls[m.ctrl]
	switch {
	case key.Matches(msg, m.keys.up):
		if m.ctrl > 0 {
			m.ctrl--
		}
	case key.Matches(msg, m.keys.down):
		if m.ctrl < len(ctrls)-1 {
			m.ctrl++
		}
	case key.Matches(msg, m.keys.less):
		m.nudge(c, -1)
	case key.Matches(msg, m.keys.more):
		m.nudge(c, 1)
	case key.Matches(msg, m.keys.edit):
		m.editing = c.ID
		m.editor.SetValue(c.Text)
		m.editor.CursorEnd()
		return m, m.editor.Focus()
	}
	return m, nil
}

func (m model) nudge(c *engine.ControlState, n int) {
	if c.Kind == "color" {
		return
	}
	id := c.ID
	m.exec(func(context.Context) error { return m.page.NudgeControl(id, n) })
}

func (m model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.edit):
		id, v := m.editing, m.editor.Value()
		m.exec(func(context.Context) error { return m.page.SetControl(id, v) })
		fallthrough
	case key.Matches(msg, m.keys.cancel):
		m.editing = ""
		m.editor.Blur()
		m.editor.Reset()
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m model) setFocus(f focus) (tea.Model, tea.Cmd) {
	m.focus = f
	if f == focusFormat {
		return m, m.format.Focus()
	}
	m.format.Blur()
	return m, nil
}

func (m model) verifyCmd() tea.Cmd {
	ctx, page := m.ctx, m.page
	return func() tea.Msg {
		res, err := page.Verify(ctx)
		return verifyMsg{res: res, err: err}
	}
}

func verifyText(res engine.VerifyResult, err error) (string, bool) {
	switch {
	case err != nil:
		return describe(err), true
	case res.Match:
		return fmt.Sprintf("Heard %s, matches %s.", res.Stamp, res.Expected), false
	case res.Mismatch:
		return fmt.Sprintf("Heard %s but the weekday is wrong (%q).", res.Stamp, res.Heard), true
	default:
		return fmt.Sprintf("Heard %s, expected %s.", res.Stamp, res.Expected), true
	}
}

func (m *model) loadParams() {
	b, err := m.page.ParamsJSON()
	if err != nil {
		m.params = err.Error()
		return
	}
	m.params = string(b)
}

func (m model) controls() []*engine.ControlState {
	var out []*engine.ControlState
	for _, r := range m.state.Controls {
		if r.Control != nil {
			out = append(out, r.Control)
		}
	}
	return out
}

// panelWidth follows the panel size setting, capped by the terminal.
func (m model) panelWidth() int {
	w := m.state.Style.PanelSize
	if w <= 0 {
		w = defaultPanelWidth
	}
	if m.width > 0 && w > m.width {
		w = m.width
	}
	return w
}

// ── View ─────────────────────────────────────────────────────────

func (m model) View() string {
	w := m.panelWidth()
	text := fg(m.state.Style.Color("text_color", fallbackTextColor))

	var b strings.Builder
	b.WriteString(RenderBanner(w))
	b.WriteByte('\n')

	m.section(&b, SectionTimeFormat, m.focus == focusFormat)
	b.WriteString("  " + m.format.View() + "\n\n")

	m.section(&b, SectionTimeString, false)
	clockColor := m.state.Style.Color("clock_color", fallbackClockColor)
	b.WriteString("  " + fg(clockColor).Bold(true).Render(m.state.TimeString) + "\n")
	b.WriteString("  " + secondaryStyle.Render(m.state.Stamp) + "\n\n")

	b.WriteString(m.buttonSections())
	b.WriteString("  " + m.buttons() + "\n\n")

	m.section(&b, SectionVoices, m.focus == focusVoices)
	b.WriteString(m.voiceList(text))
	b.WriteByte('\n')

	m.section(&b, SectionControls, m.focus == focusControls)
	b.WriteString(m.controlRows(text))

	if m.showParams {
		b.WriteByte('\n')
		m.section(&b, SectionParams, false)
		for _, l := range strings.Split(m.params, "\n") {
			b.WriteString("  " + secondaryStyle.Render(l) + "\n")
		}
	}

	b.WriteByte('\n')
	if m.flash != "" {
		style := flashStyle
		if m.urgent {
			style = urgentStyle
		}
		b.WriteString("  " + style.Render(m.flash) + "\n")
	}
	b.WriteString(m.help.View(m.keys))
	return lipgloss.NewStyle().MaxWidth(w).Render(b.String())
}

func (m model) section(b *strings.Builder, name string, focused bool) {
	style := sectionStyle
	if focused {
		style = focusedSectionStyle
	}
	b.WriteString(style.Render(name) + "\n")
}

// buttonSections names the button row, the focused button highlighted.
func (m model) buttonSections() string {
	names := make([]string, len(buttonOrder))
	for i, id := range buttonOrder {
		style := sectionStyle
		if m.focus == focusButtons && i == m.button {
			style = focusedSectionStyle
		}
		names[i] = style.Render(id)
	}
	return strings.Join(names, sepStyle.Render(" · ")) + "\n"
}

func (m model) buttons() string {
	labels := map[string]string{
		SectionSpeak:    "Speak",
		SectionSilence:  "Silence",
		SectionRunClock: m.state.ClockLabel,
	}
	active := map[string]bool{
		SectionSpeak:    m.state.Speaking,
		SectionRunClock: m.state.Running,
	}

	parts := make([]string, 0, 2*len(buttonOrder)+1)
	for i, id := range buttonOrder {
		label := labels[id]
		if m.focus == focusButtons && i == m.button {
			label = "▸ " + label
		}
		style := buttonStyle
		if active[id] {
			style = activeButtonStyle
		}
		parts = append(parts, style.Render(label), " ")
	}
	info := secondaryStyle.Render(m.state.Backend)
	if m.listening {
		info = flashStyle.Render("listening")
	}
	parts = append(parts, " ", info)
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m model) voiceList(text lipgloss.Style) string {
	g := m.state.Voices
	if g.Len() == 0 {
		return "  " + secondaryStyle.Render("(no voices)") + "\n"
	}

	all := g.All()
	lo, hi := window(m.state.Selected, len(all), voiceWindow)

	var b strings.Builder
	if lo > 0 {
		b.WriteString("    " + secondaryStyle.Render(fmt.Sprintf("↑ %d more", lo)) + "\n")
	}
	for i := lo; i < hi; i++ {
		if i == 0 && len(g.Defaults) > 0 {
			b.WriteString("  " + headingStyle.Render(voices.DefaultsTitle) + "\n")
		}
		if i == len(g.Defaults) && len(g.Others) > 0 {
			if i > 0 {
				b.WriteString("  " + sepStyle.Render(strings.Repeat("─", 24)) + "\n")
			}
			b.WriteString("  " + headingStyle.Render(voices.OthersTitle) + "\n")
		}
		b.WriteString(m.voiceLine(all[i], i, text))
	}
	if hi < len(all) {
		b.WriteString("    " + secondaryStyle.Render(fmt.Sprintf("↓ %d more", len(all)-hi)) + "\n")
	}
	return b.String()
}

func (m model) voiceLine(v domain.Voice, i int, text lipgloss.Style) string {
	if i == m.state.Selected {
		return "  " + cursorStyle.Render("▸ "+v.Label()) + "\n"
	}
	return "    " + text.Render(v.Label()) + "\n"
}

// window returns [lo, hi) of at most size items keeping sel visible.
func window(sel, n, size int) (int, int) {
	if n <= size {
		return 0, n
	}
	lo := max(sel-size/2, 0)
	hi := lo + size
	if hi > n {
		hi = n
		lo = n - size
	}
	return lo, hi
}

func (m model) controlRows(text lipgloss.Style) string {
	var b strings.Builder
	idx := 0
	for _, r := range m.state.Controls {
		indent := strings.Repeat("  ", r.Depth+1)
		if r.Control == nil {
			if r.Heading != "" {
				b.WriteString(indent + headingStyle.Render(r.Heading) + "\n")
			}
			continue
		}
		c := r.Control
		selected := m.focus == focusControls && idx == m.ctrl
		idx++

		label := text.Render(fmt.Sprintf("%-12s", c.Label))
		if selected {
			label = cursorStyle.Render(fmt.Sprintf("%-12s", c.Label))
		}

		var value string
		switch {
		case m.editing == c.ID:
			value = m.editor.View()
		case c.Kind == "color":
			value = swatch(c.Color) + " " + text.Render(c.Color)
		case c.Bounded:
			value = slider(c.Fraction, m.state.Style.Color("clock_color", fallbackClockColor)) + " " + text.Render(c.Text)
		default:
			value = text.Render(c.Text)
		}
		b.WriteString(indent + label + " " + value + "\n")
	}
	return b.String()
}

// slider draws a bar filled to fraction f.
func slider(f float64, color string) string {
	f = math.Max(0, math.Min(1, f))
	filled := int(math.Round(f * sliderWidth))
	return fg(color).Render(strings.Repeat("━", filled)) +
		sliderEmptyStyle.Render(strings.Repeat("━", sliderWidth-filled))
}
