// Package clock implements the STOPPED/RUNNING time refresher: while
// running it calls a refresh function once immediately and then on every
// tick of a fixed interval.
package clock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/logger"
	"github.com/hammamikhairi/talkytime/internal/observe"
)

// DefaultInterval is the refresh period used until the user changes it.
const DefaultInterval = 1000 * time.Millisecond

// Labels of the run-clock button.
const (
	LabelStart = "Start Time"
	LabelStop  = "Stop Time"
)

// State of the clock.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Ticker is the subset of *time.Ticker the clock needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewStdTicker wraps time.NewTicker.
func NewStdTicker(d time.Duration) Ticker { return stdTicker{time.NewTicker(d)} }

// Option configures the clock.
type Option func(*Clock)

// WithInterval sets the initial refresh period.
func WithInterval(d time.Duration) Option {
	return func(c *Clock) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithTickerFunc replaces the ticker factory, for tests.
func WithTickerFunc(fn TickerFunc) Option {
	return func(c *Clock) { c.newTicker = fn }
}

// WithMetrics records ticks and transitions.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Clock) { c.metrics = m }
}

// Clock owns at most one live ticker.
type Clock struct {
	refresh   func()
	log       *logger.Logger
	metrics   *observe.Metrics
	newTicker TickerFunc

	mu       sync.Mutex
	state    State
	interval time.Duration
	ticker   Ticker
	cancel   context.CancelFunc
	parent   context.Context
}

// New creates a stopped clock that calls refresh while running.
func New(refresh func(), log *logger.Logger, opts ...Option) *Clock {
	c := &Clock{
		refresh:   refresh,
		log:       log,
		newTicker: NewStdTicker,
		interval:  DefaultInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start moves to RUNNING. The first refresh happens right away on the tick
// goroutine, later ones on every interval. Non-blocking.
func (c *Clock) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Running {
		c.log.Debug("clock already running")
		return
	}
	c.startLocked(ctx)
	c.metrics.RecordClockState(ctx, Running.String())
	c.log.Info("clock started (interval=%s)", c.interval)
}

func (c *Clock) startLocked(ctx context.Context) {
	c.parent = ctx
	childCtx, cancel := context.WithCancel(ctx)
	t := c.newTicker(c.interval)

	c.cancel = cancel
	c.ticker = t
	c.state = Running

	go c.loop(childCtx, t)
}

// Stop moves to STOPPED and clears the ticker handle.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Running {
		return
	}
	c.stopLocked()
	c.metrics.RecordClockState(context.Background(), Stopped.String())
	c.log.Info("clock stopped")
}

func (c *Clock) stopLocked() {
	c.ticker.Stop()
	c.cancel()
	c.ticker = nil
	c.cancel = nil
	c.state = Stopped
}

// Toggle flips the state and returns the new one.
func (c *Clock) Toggle(ctx context.Context) State {
	if c.State() == Running {
		c.Stop()
		return Stopped
	}
	c.Start(ctx)
	return Running
}

// Restart replaces the live ticker with one at the current interval. A
// stopped clock stays stopped.
func (c *Clock) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Running {
		return
	}
	parent := c.parent
	c.stopLocked()
	c.startLocked(parent)
	c.log.Debug("clock restarted (interval=%s)", c.interval)
}

// SetInterval changes the refresh period, restarting a running clock.
func (c *Clock) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: clock interval %s", domain.ErrInvalidValue, d)
	}
	c.mu.Lock()
	changed := c.interval != d
	c.interval = d
	c.mu.Unlock()

	if changed {
		c.Restart()
	}
	return nil
}

// Interval returns the refresh period.
func (c *Clock) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// State returns the current state.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Running reports whether a ticker is live.
func (c *Clock) Running() bool { return c.State() == Running }

// Label is the run-clock button text for the current state.
func (c *Clock) Label() string {
	if c.Running() {
		return LabelStop
	}
	return LabelStart
}

func (c *Clock) loop(ctx context.Context, t Ticker) {
	c.refresh()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			if ctx.Err() != nil {
				return
			}
			c.refresh()
			c.metrics.RecordTick(ctx)
		}
	}
}
