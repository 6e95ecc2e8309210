// Package display is the terminal page built on Bubble Tea.
//
// The [UI] draws the sections of the page (time format, time string, the
// speak / silence / run-clock buttons, the voice selector, the generated
// settings controls and the params dump) from engine snapshots. Engine
// calls never run inside Update: they are queued to a single worker so
// they apply in order and so engine notifications, which Send back into
// the program, cannot deadlock the event loop.
package display

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hammamikhairi/talkytime/internal/clock"
	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/engine"
	"github.com/hammamikhairi/talkytime/internal/logger"
)

// Page is the engine as seen by the display.
type Page interface {
	State() engine.State
	Speak(ctx context.Context) (string, error)
	Silence()
	ToggleClock() clock.State
	SetTemplate(tmpl string)
	SelectVoice(i int) error
	RefreshVoices(ctx context.Context) error
	SetControl(id string, v any) error
	NudgeControl(id string, n int) error
	ParamsJSON() ([]byte, error)
	Verify(ctx context.Context) (engine.VerifyResult, error)
}

var (
	_ Page            = (*engine.Engine)(nil)
	_ domain.Notifier = (*UI)(nil)
)

// action is an engine call queued by the model.
type action func(ctx context.Context) error

const actionQueue = 32

// Option configures the UI.
type Option func(*UI)

// WithProgramOptions passes extra options to the Bubble Tea program, after
// the defaults.
func WithProgramOptions(opts ...tea.ProgramOption) Option {
	return func(u *UI) { u.progOpts = append(u.progOpts, opts...) }
}

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI], subscribe [UI.Refresh] to the engine, then [UI.Run]
// (blocking). Refresh and the notifier methods may be called from any
// goroutine at any time; messages sent before Run or after quit are dropped.
type UI struct {
	page     Page
	log      *logger.Logger
	progOpts []tea.ProgramOption
	program  atomic.Pointer[tea.Program]
	actions  chan action
	done     atomic.Bool
}

// NewUI creates the display. Call Run() to start.
func NewUI(page Page, log *logger.Logger, opts ...Option) *UI {
	u := &UI{
		page:    page,
		log:     log,
		actions: make(chan action, actionQueue),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Run starts the Bubble Tea event loop. It blocks until the user quits or
// ctx is done.
func (u *UI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go u.work(ctx)

	m := newModel(ctx, u.page, u.enqueue)
	opts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, u.progOpts...)
	p := tea.NewProgram(m, opts...)
	u.program.Store(p)
	_, err := p.Run()
	u.done.Store(true)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// Refresh tells the page to redraw from a new engine snapshot. It is meant
// to be passed to engine.Subscribe. Safe to call before Run or after quit.
func (u *UI) Refresh(ev engine.Event) {
	u.send(stateMsg{event: ev})
}

// Notify shows a message on the status line.
func (u *UI) Notify(_ context.Context, message string) error {
	u.send(flashMsg{text: message})
	return nil
}

// NotifyUrgent shows an error on the status line.
func (u *UI) NotifyUrgent(_ context.Context, message string) error {
	u.send(flashMsg{text: message, urgent: true})
	return nil
}

func (u *UI) send(msg tea.Msg) {
	if p := u.program.Load(); p != nil && !u.done.Load() {
		p.Send(msg)
	}
}

func (u *UI) enqueue(a action) {
	select {
	case u.actions <- a:
	default:
		u.log.Warn("display: action queue full, dropping input")
	}
}

func (u *UI) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-u.actions:
			if err := a(ctx); err != nil {
				u.log.Debug("display action: %v", err)
				u.send(flashMsg{text: describe(err), urgent: true})
			}
		}
	}
}

// describe turns an engine error into a status line.
func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoVoice):
		return "No voice selected."
	case errors.Is(err, domain.ErrRecorderDisabled):
		return "No microphone transcriber configured."
	case errors.Is(err, domain.ErrNoTimestamp):
		return fmt.Sprintf("Could not hear a timestamp: %v", err)
	case errors.Is(err, domain.ErrInvalidValue), errors.Is(err, domain.ErrUnknownControl):
		return err.Error()
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
