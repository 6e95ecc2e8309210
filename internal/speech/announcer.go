package speech

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/logger"
	"github.com/hammamikhairi/talkytime/internal/observe"
	"github.com/hammamikhairi/talkytime/internal/timefmt"
)

// AnnouncerOption configures the Announcer.
type AnnouncerOption func(*Announcer)

// WithCacheDir sets the filesystem directory used for persistent audio
// caching. If empty, the disk layer is disabled (pure in-memory).
func WithCacheDir(dir string) AnnouncerOption {
	return func(a *Announcer) {
		a.cacheDir = dir
	}
}

// WithDiskWrite controls whether new cache entries are written to disk.
// Even when false, existing on-disk entries are still read.
func WithDiskWrite(enabled bool) AnnouncerOption {
	return func(a *Announcer) {
		a.diskWrite = enabled
	}
}

// WithAnnouncerMetrics counts announcements and failures.
func WithAnnouncerMetrics(m *observe.Metrics) AnnouncerOption {
	return func(a *Announcer) {
		a.metrics = m
	}
}

// WithHistory records every finished utterance in store.
func WithHistory(store domain.AnnouncementStore) AnnouncerOption {
	return func(a *Announcer) {
		a.history = store
	}
}

// WithOnFinish registers a callback run after each utterance ends, on the
// announcer's goroutine.
func WithOnFinish(fn func(domain.Announcement)) AnnouncerOption {
	return func(a *Announcer) {
		a.onFinish = fn
	}
}

// Announcer speaks utterances one at a time. Submitting a new one cancels
// the live one and waits for it to wind down before starting, so there is
// never more than one utterance synthesizing or playing.
type Announcer struct {
	synth   domain.Synthesizer
	sink    domain.AudioSink
	log     *logger.Logger
	metrics *observe.Metrics
	cache   *AudioCache
	history domain.AnnouncementStore

	onFinish func(domain.Announcement)

	cacheDir  string
	diskWrite bool

	submit sync.Mutex // serialises Announce and Cancel

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	current domain.Utterance
}

// NewAnnouncer creates an announcer over a backend and an audio sink.
func NewAnnouncer(synth domain.Synthesizer, sink domain.AudioSink, log *logger.Logger, opts ...AnnouncerOption) *Announcer {
	a := &Announcer{
		synth: synth,
		sink:  sink,
		log:   log,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.cache = NewAudioCache(synth.Name(), a.cacheDir, a.diskWrite, log)
	return a
}

// Announce cancels any live utterance, assigns u a fresh ID and starts
// speaking it in the background. The utterance outlives ctx's cancellation
// but keeps its values. Returns the assigned ID.
func (a *Announcer) Announce(ctx context.Context, u domain.Utterance) string {
	a.submit.Lock()
	defer a.submit.Unlock()

	a.cancelLocked()

	u.ID = uuid.NewString()
	uctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	a.mu.Lock()
	a.cancel = cancel
	a.done = done
	a.current = u
	a.mu.Unlock()

	a.log.Debug("announce %s: %q (voice=%s rate=%.2f pitch=%.2f volume=%.2f)",
		u.ID, u.Text, u.Voice.ID, u.Prosody.Rate, u.Prosody.Pitch, u.Prosody.Volume)

	go a.run(uctx, u, done)
	return u.ID
}

// Cancel stops the live utterance, if any, and waits for it to end.
func (a *Announcer) Cancel() {
	a.submit.Lock()
	defer a.submit.Unlock()
	a.cancelLocked()
}

func (a *Announcer) cancelLocked() {
	a.mu.Lock()
	cancel, done, id := a.cancel, a.done, a.current.ID
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	a.sink.Stop()
	<-done
	a.log.Debug("announce %s: cancelled", id)
}

// Speaking reports whether an utterance is synthesizing or playing.
func (a *Announcer) Speaking() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// Current returns the live utterance.
func (a *Announcer) Current() (domain.Utterance, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current, a.cancel != nil
}

// Backend is the synthesizer's name.
func (a *Announcer) Backend() string { return a.synth.Name() }

// Cache returns the audio cache. Useful for stats.
func (a *Announcer) Cache() *AudioCache { return a.cache }

// Wait blocks until the live utterance, if any, has ended.
func (a *Announcer) Wait(ctx context.Context) error {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Announcer) run(ctx context.Context, u domain.Utterance, done chan struct{}) {
	backend := a.synth.Name()
	status := a.speak(ctx, u)

	a.mu.Lock()
	if a.done == done {
		a.cancel = nil
		a.current = domain.Utterance{}
	}
	a.mu.Unlock()
	close(done)

	mctx := context.WithoutCancel(ctx)
	a.metrics.RecordAnnouncement(mctx, backend, status)
	a.log.Debug("announce %s: %s", u.ID, status)
	a.finish(mctx, domain.Announcement{
		ID:       u.ID,
		Text:     u.Text,
		Voice:    u.Voice,
		Backend:  backend,
		Status:   status,
		At:       u.At,
		Finished: time.Now(),
	})
}

func (a *Announcer) finish(ctx context.Context, rec domain.Announcement) {
	if !rec.At.IsZero() {
		rec.Stamp = timefmt.Stamp(rec.At)
	}
	if a.history != nil {
		if err := a.history.Save(ctx, rec); err != nil {
			a.log.Warn("announce %s: saving history: %v", rec.ID, err)
		}
	}
	if a.onFinish != nil {
		a.onFinish(rec)
	}
}

// speak synthesizes (or reuses) the audio and plays it. Errors are logged
// and counted, never returned.
func (a *Announcer) speak(ctx context.Context, u domain.Utterance) string {
	backend := a.synth.Name()
	mctx := context.WithoutCancel(ctx)

	audio, cached := a.cache.Get(u)
	if !cached {
		start := time.Now()
		var err error
		audio, err = a.synth.Synthesize(ctx, u)
		switch {
		case ctx.Err() != nil:
			return domain.StatusCancelled
		case errors.Is(err, domain.ErrSpeechDisabled):
			a.log.Info("speech disabled, would say %q", u.Text)
			return domain.StatusDisabled
		case err != nil:
			a.metrics.RecordSpeechError(mctx, backend, "synth")
			a.log.Error("announce %s: synthesis failed: %v", u.ID, err)
			return domain.StatusError
		}
		a.metrics.RecordSynth(mctx, backend, time.Since(start).Seconds())
		a.cache.Put(u, audio)
	}

	if ctx.Err() != nil {
		return domain.StatusCancelled
	}

	errc := make(chan error, 1)
	go func() { errc <- a.sink.Play(audio) }()

	select {
	case err := <-errc:
		if err != nil {
			a.metrics.RecordSpeechError(mctx, backend, "play")
			a.log.Error("announce %s: playback failed: %v", u.ID, err)
			return domain.StatusError
		}
	case <-ctx.Done():
		// Stop may land before playback registered; repeat until Play returns.
		for {
			a.sink.Stop()
			select {
			case <-errc:
				return domain.StatusCancelled
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
	if cached {
		return domain.StatusCached
	}
	return domain.StatusOK
}
