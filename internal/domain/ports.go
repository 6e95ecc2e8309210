package domain

import (
	"context"
	"time"
)

// Synthesizer turns an utterance into WAV audio. Implementations can be a
// cloud REST service, a local command-line engine, or a no-op.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, u Utterance) ([]byte, error)
	Voices(ctx context.Context) ([]Voice, error)
}

// AudioSink plays WAV audio. Play blocks until playback ends or Stop is
// called from another goroutine.
type AudioSink interface {
	Play(wav []byte) error
	Stop()
}

// VoiceSource lists the voices currently offered by the speech backend.
type VoiceSource interface {
	Voices(ctx context.Context) ([]Voice, error)
}

// Notifier delivers messages to the user. Implementations can write to
// stdout or to the TUI scrollback.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}

// Recorder captures the microphone for a bounded time and returns what was
// heard as text.
type Recorder interface {
	Record(ctx context.Context, d time.Duration) (string, error)
}

// AnnouncementStore keeps the outcome of finished announcements.
type AnnouncementStore interface {
	Save(ctx context.Context, a Announcement) error
	Load(ctx context.Context, id string) (Announcement, error)
	Recent(ctx context.Context, n int) ([]Announcement, error)
}
