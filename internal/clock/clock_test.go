package clock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/logger"
)

// fakeTicker is driven by the test through its channel.
type fakeTicker struct {
	d  time.Duration
	ch chan time.Time

	mu      sync.Mutex
	stopped bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeTicker) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type tickerFactory struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (tf *tickerFactory) new(d time.Duration) Ticker {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	t := &fakeTicker{d: d, ch: make(chan time.Time)}
	tf.tickers = append(tf.tickers, t)
	return t
}

func (tf *tickerFactory) active() []*fakeTicker {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	var out []*fakeTicker
	for _, t := range tf.tickers {
		if !t.isStopped() {
			out = append(out, t)
		}
	}
	return out
}

type refreshCounter struct {
	calls chan struct{}
}

func newRefreshCounter() *refreshCounter {
	return &refreshCounter{calls: make(chan struct{}, 64)}
}

func (r *refreshCounter) refresh() { r.calls <- struct{}{} }

func (r *refreshCounter) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refresh")
	}
}

func TestToggleTwiceReturnsToStopped(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	tf := &tickerFactory{}
	rc := newRefreshCounter()
	c := New(rc.refresh, log, WithTickerFunc(tf.new))

	if c.Label() != LabelStart || c.State() != Stopped {
		t.Fatalf("initial state %s, label %q", c.State(), c.Label())
	}

	if got := c.Toggle(context.Background()); got != Running {
		t.Fatalf("first toggle = %s, want running", got)
	}
	if c.Label() != LabelStop {
		t.Fatalf("label = %q, want %q", c.Label(), LabelStop)
	}
	rc.wait(t) // immediate refresh

	if got := c.Toggle(context.Background()); got != Stopped {
		t.Fatalf("second toggle = %s, want stopped", got)
	}
	if c.Label() != LabelStart {
		t.Fatalf("label = %q, want %q", c.Label(), LabelStart)
	}
	if c.ticker != nil || c.cancel != nil {
		t.Fatal("ticker handle not cleared")
	}
	if n := len(tf.active()); n != 0 {
		t.Fatalf("%d tickers still active", n)
	}
}

func TestTicksRefresh(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	tf := &tickerFactory{}
	rc := newRefreshCounter()
	c := New(rc.refresh, log, WithTickerFunc(tf.new))

	c.Start(context.Background())
	defer c.Stop()
	rc.wait(t)

	tk := tf.active()[0]
	tk.ch <- time.Now()
	rc.wait(t)
	tk.ch <- time.Now()
	rc.wait(t)
}

func TestIntervalChangeKeepsOneTicker(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	tf := &tickerFactory{}
	rc := newRefreshCounter()
	c := New(rc.refresh, log, WithTickerFunc(tf.new))

	c.Start(context.Background())
	defer c.Stop()

	for _, ms := range []int{500, 250, 2000} {
		if err := c.SetInterval(time.Duration(ms) * time.Millisecond); err != nil {
			t.Fatalf("SetInterval: %v", err)
		}
		active := tf.active()
		if len(active) != 1 {
			t.Fatalf("after %dms: %d active tickers, want 1", ms, len(active))
		}
		if active[0].d != time.Duration(ms)*time.Millisecond {
			t.Fatalf("active ticker interval = %s", active[0].d)
		}
	}
	if !c.Running() {
		t.Fatal("restart left the clock stopped")
	}
}

func TestIntervalChangeWhileStopped(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	tf := &tickerFactory{}
	c := New(func() {}, log, WithTickerFunc(tf.new))

	if err := c.SetInterval(250 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if c.Running() || len(tf.tickers) != 0 {
		t.Fatal("interval change started a stopped clock")
	}
	if c.Interval() != 250*time.Millisecond {
		t.Fatalf("interval = %s", c.Interval())
	}

	if err := c.SetInterval(0); !errors.Is(err, domain.ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

func TestParentCancelStopsTicks(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	tf := &tickerFactory{}
	rc := newRefreshCounter()
	c := New(rc.refresh, log, WithTickerFunc(tf.new))

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	rc.wait(t)
	cancel()

	tk := tf.tickers[0]
	select {
	case tk.ch <- time.Now():
		// The loop may still have been selecting; it must not refresh.
	case <-time.After(100 * time.Millisecond):
	}
	select {
	case <-rc.calls:
		t.Fatal("refresh after cancellation")
	case <-time.After(50 * time.Millisecond):
	}
	c.Stop()
}
