// Package engine owns the application state behind the page: the settings
// tree and its controls, the clock, the time template and the last rendered
// time, the voice catalog and the announcer. Every surface (TUI, HTTP,
// line commands) goes through its methods.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/talkytime/internal/clock"
	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/logger"
	"github.com/hammamikhairi/talkytime/internal/observe"
	"github.com/hammamikhairi/talkytime/internal/settings"
	"github.com/hammamikhairi/talkytime/internal/timefmt"
	"github.com/hammamikhairi/talkytime/internal/voices"
)

// Settings paths the engine reads directly.
var (
	pathRate     = settings.ParsePath("speech.rate")
	pathPitch    = settings.ParsePath("speech.pitch")
	pathVolume   = settings.ParsePath("speech.volume")
	pathInterval = settings.ParsePath("clock.interval_ms")
)

// Speaker is the announcer as seen by the engine.
type Speaker interface {
	Announce(ctx context.Context, u domain.Utterance) string
	Cancel()
	Speaking() bool
	Backend() string
}

// Option configures the engine.
type Option func(*Engine)

// WithTemplate sets the initial time format.
func WithTemplate(tmpl string) Option {
	return func(e *Engine) { e.template = tmpl }
}

// WithFormatter replaces the time formatter, for tests.
func WithFormatter(f *timefmt.Formatter) Option {
	return func(e *Engine) { e.formatter = f }
}

// WithClockOptions passes options through to the clock.
func WithClockOptions(opts ...clock.Option) Option {
	return func(e *Engine) { e.clockOpts = append(e.clockOpts, opts...) }
}

// WithRecorder enables Verify.
func WithRecorder(r domain.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithVerifyWindow sets how long Verify listens and how long it waits
// before speaking.
func WithVerifyWindow(listen, lead time.Duration) Option {
	return func(e *Engine) {
		e.verifyListen = listen
		e.verifyLead = lead
	}
}

// WithHistory exposes the announcement history through History.
func WithHistory(store domain.AnnouncementStore) Option {
	return func(e *Engine) { e.history = store }
}

// WithMetrics records clock activity.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine is the page controller. It is safe for concurrent use.
type Engine struct {
	log       *logger.Logger
	metrics   *observe.Metrics
	formatter *timefmt.Formatter
	clock     *clock.Clock
	clockOpts []clock.Option
	speaker   Speaker
	catalog   *voices.Catalog
	recorder  domain.Recorder
	history   domain.AnnouncementStore

	verifyListen time.Duration
	verifyLead   time.Duration

	mu         sync.Mutex
	ctx        context.Context
	root       *settings.Node
	panel      *settings.Panel
	template   string
	timeString string
	parts      timefmt.Parts
	style      Style
	lastVerify *VerifyResult

	subMu sync.Mutex
	subs  []func(Event)
}

// New builds the settings panel over root and wires every control to its
// redraw handler. Each control fires once during construction.
func New(root *settings.Node, speaker Speaker, catalog *voices.Catalog, log *logger.Logger, opts ...Option) (*Engine, error) {
	e := &Engine{
		log:          log,
		formatter:    timefmt.New(),
		speaker:      speaker,
		catalog:      catalog,
		root:         root,
		template:     timefmt.DefaultTemplate,
		ctx:          context.Background(),
		verifyListen: 8 * time.Second,
		verifyLead:   500 * time.Millisecond,
		style:        defaultStyle(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics != nil {
		e.clockOpts = append(e.clockOpts, clock.WithMetrics(e.metrics))
	}
	e.clock = clock.New(e.RefreshTime, log, e.clockOpts...)

	d := settings.NewDispatcher(root, e.redrawTable(), log)
	e.panel = settings.NewPanel(d)
	b := &settings.Builder{
		Descriptors: settings.DefaultDescriptors,
		SizeID:      settings.SizeControlID,
		OnResize:    e.resize,
	}

	e.mu.Lock()
	err := b.Build(e.panel, root)
	e.recomputeLocked()
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("building settings panel: %w", err)
	}

	e.log.Info("engine ready: %d controls, backend=%s", len(e.panel.Controls()), speaker.Backend())
	return e, nil
}

// Start loads the voice catalog and starts the clock. ctx bounds the clock
// and anything else the engine starts on its own.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()

	if err := e.catalog.Refresh(ctx); err != nil {
		e.log.Warn("voice catalog: %v", err)
	}
	e.clock.Start(ctx)
	e.notify(EventClock)
}

// Stop halts the clock and any speech.
func (e *Engine) Stop() {
	e.clock.Stop()
	e.speaker.Cancel()
}

// ── time ─────────────────────────────────────────────────────────

// RefreshTime recomputes the time parts and the rendered time string.
func (e *Engine) RefreshTime() {
	e.mu.Lock()
	e.recomputeLocked()
	e.mu.Unlock()
	e.notify(EventTime)
}

func (e *Engine) recomputeLocked() {
	e.parts = e.formatter.Now()
	e.timeString = timefmt.Render(e.template, e.parts)
}

// SetTemplate replaces the time format and re-renders.
func (e *Engine) SetTemplate(tmpl string) {
	e.mu.Lock()
	e.template = tmpl
	e.recomputeLocked()
	e.mu.Unlock()
	e.log.Debug("template set to %q", tmpl)
	e.notify(EventTime)
}

// Template returns the current time format.
func (e *Engine) Template() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.template
}

// TimeString returns the last rendered time.
func (e *Engine) TimeString() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeString
}

// Parts returns the parts of the last refresh.
func (e *Engine) Parts() timefmt.Parts {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.parts
}

// ── speech ───────────────────────────────────────────────────────

// Speak announces the current time with the selected voice and the
// current prosody. Without a selectable voice nothing happens and
// ErrNoVoice is returned.
func (e *Engine) Speak(ctx context.Context) (string, error) {
	voice, ok := e.catalog.Selected()
	if !ok {
		e.log.Debug("speak suppressed: no voice selected")
		return "", domain.ErrNoVoice
	}

	e.mu.Lock()
	e.recomputeLocked()
	u := domain.Utterance{
		Text:    e.timeString,
		Voice:   voice,
		Prosody: e.prosodyLocked(),
		At:      e.parts.At,
	}
	e.mu.Unlock()
	e.notify(EventTime)

	id := e.speaker.Announce(ctx, u)
	e.log.Info("speaking %q as %s (%s)", u.Text, voice.Name, id)
	e.notify(EventSpeech)
	return id, nil
}

func (e *Engine) prosodyLocked() domain.Prosody {
	def := domain.DefaultProsody
	return domain.Prosody{
		Rate:   settings.GetNumber(e.root, pathRate, def.Rate),
		Pitch:  settings.GetNumber(e.root, pathPitch, def.Pitch),
		Volume: settings.GetNumber(e.root, pathVolume, def.Volume),
	}
}

// Silence cancels any utterance in progress.
func (e *Engine) Silence() {
	e.speaker.Cancel()
	e.log.Debug("silenced")
	e.notify(EventSpeech)
}

// Speaking reports whether an utterance is live.
func (e *Engine) Speaking() bool { return e.speaker.Speaking() }

// SpeechFinished tells subscribers an utterance has ended. Pass it to
// speech.WithOnFinish.
func (e *Engine) SpeechFinished(a domain.Announcement) {
	e.log.Debug("announcement %s finished: %s", a.ID, a.Status)
	e.notify(EventSpeech)
}

// History returns up to n recent announcements, newest first.
func (e *Engine) History(ctx context.Context, n int) ([]domain.Announcement, error) {
	if e.history == nil {
		return nil, fmt.Errorf("announcement history: %w", domain.ErrNotImplemented)
	}
	return e.history.Recent(ctx, n)
}

// ── clock ────────────────────────────────────────────────────────

// ToggleClock starts or stops the clock and returns the new state.
func (e *Engine) ToggleClock() clock.State {
	e.mu.Lock()
	ctx := e.ctx
	e.mu.Unlock()

	s := e.clock.Toggle(ctx)
	e.notify(EventClock)
	return s
}

// ClockLabel is the run-clock button text.
func (e *Engine) ClockLabel() string { return e.clock.Label() }

// ClockRunning reports whether the clock ticks.
func (e *Engine) ClockRunning() bool { return e.clock.Running() }

// ── voices ───────────────────────────────────────────────────────

// VoiceGroups returns the partitioned voice catalog.
func (e *Engine) VoiceGroups() voices.Groups { return e.catalog.Groups() }

// SelectedVoice returns the selector index, -1 when there is none.
func (e *Engine) SelectedVoice() int { return e.catalog.SelectedIndex() }

// SelectVoice moves the selector.
func (e *Engine) SelectVoice(i int) error {
	v, err := e.catalog.Select(i)
	if err != nil {
		return err
	}
	e.log.Debug("voice %d selected: %s", i, v.Label())
	e.notify(EventVoices)
	return nil
}

// RefreshVoices reloads the catalog from the backend.
func (e *Engine) RefreshVoices(ctx context.Context) error {
	if err := e.catalog.Refresh(ctx); err != nil {
		return err
	}
	e.notify(EventVoices)
	return nil
}

// VoicesChanged tells subscribers the catalog was rebuilt elsewhere, e.g.
// by its watcher. Pass it to voices.WithOnChange.
func (e *Engine) VoicesChanged() { e.notify(EventVoices) }

// ── controls ─────────────────────────────────────────────────────

// Controls returns a snapshot of the settings panel in display order.
func (e *Engine) Controls() []Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rowsLocked()
}

// EditControl applies fn to a control and dispatches the change.
func (e *Engine) EditControl(id string, fn func(*settings.Control) error) error {
	e.mu.Lock()
	err := e.panel.Edit(id, fn)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.notify(EventControls)
	return nil
}

// SetControl sets a control's value. Numbers go to the precise number box;
// strings are parsed as a number or taken as a hex color depending on the
// control's kind.
func (e *Engine) SetControl(id string, v any) error {
	return e.EditControl(id, func(c *settings.Control) error {
		switch x := v.(type) {
		case float64:
			return c.SetNumber(x)
		case int:
			return c.SetNumber(float64(x))
		case string:
			return c.SetText(x)
		default:
			return fmt.Errorf("%w: %T for %s", domain.ErrInvalidValue, v, id)
		}
	})
}

// SetSlider moves a control's slider, snapping to its step.
func (e *Engine) SetSlider(id string, v float64) error {
	return e.EditControl(id, func(c *settings.Control) error { return c.SetSlider(v) })
}

// NudgeControl moves a control n steps.
func (e *Engine) NudgeControl(id string, n int) error {
	return e.EditControl(id, func(c *settings.Control) error { return c.Nudge(n) })
}

// Style returns the display settings.
func (e *Engine) Style() Style {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.style.clone()
}

// ParamsJSON dumps the settings tree, the last time parts and the template.
func (e *Engine) ParamsJSON() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return json.MarshalIndent(struct {
		Settings *settings.Node `json:"settings"`
		Parts    timefmt.Parts  `json:"parts"`
		Template string         `json:"template"`
	}{e.root, e.parts, e.template}, "", "  ")
}

// ── verify ───────────────────────────────────────────────────────

// VerifyResult is the outcome of a round trip through the microphone.
type VerifyResult struct {
	Announced string         `json:"announced"`
	Expected  string         `json:"expected_stamp"`
	Heard     string         `json:"heard"`
	Stamp     string         `json:"stamp,omitempty"`
	Mismatch  bool           `json:"weekday_mismatch"`
	Match     bool           `json:"match"`
	Spoken    timefmt.Spoken `json:"-"`
}

// Verify listens on the microphone while announcing the time, then parses
// what was heard back into a timestamp.
func (e *Engine) Verify(ctx context.Context) (VerifyResult, error) {
	if e.recorder == nil {
		return VerifyResult{}, domain.ErrRecorderDisabled
	}
	if _, ok := e.catalog.Selected(); !ok {
		return VerifyResult{}, domain.ErrNoVoice
	}

	type heard struct {
		text string
		err  error
	}
	ch := make(chan heard, 1)
	go func() {
		text, err := e.recorder.Record(ctx, e.verifyListen)
		ch <- heard{text, err}
	}()

	select {
	case <-time.After(e.verifyLead):
	case <-ctx.Done():
		return VerifyResult{}, ctx.Err()
	}
	if _, err := e.Speak(ctx); err != nil {
		return VerifyResult{}, err
	}

	e.mu.Lock()
	at := e.parts.At
	res := VerifyResult{Announced: e.timeString, Expected: timefmt.Stamp(at)}
	e.mu.Unlock()

	h := <-ch
	if h.err != nil {
		return res, fmt.Errorf("recording: %w", h.err)
	}
	res.Heard = h.text

	sp, err := timefmt.ParseSpoken(h.text)
	if err != nil {
		e.storeVerify(res)
		return res, err
	}
	res.Spoken = sp
	res.Stamp = sp.Stamp()
	res.Mismatch = sp.WeekdayMismatch
	diff := at.Sub(sp.Time)
	res.Match = diff >= 0 && diff < time.Minute && !sp.WeekdayMismatch
	e.storeVerify(res)

	e.log.Info("verify: heard %q -> %s (match=%t)", h.text, res.Stamp, res.Match)
	return res, nil
}

func (e *Engine) storeVerify(r VerifyResult) {
	e.mu.Lock()
	e.lastVerify = &r
	e.mu.Unlock()
	e.notify(EventVerify)
}

// LastVerify returns the most recent Verify outcome.
func (e *Engine) LastVerify() (VerifyResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastVerify == nil {
		return VerifyResult{}, false
	}
	return *e.lastVerify, true
}
