// Package speech holds the speech backends, the audio player and the
// announcer that keeps at most one utterance alive.
package speech

import (
	"context"

	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/logger"
)

var (
	_ domain.Synthesizer = (*NoOp)(nil)
	_ domain.AudioSink   = (*Discard)(nil)
)

// NoOp is a synthesizer that produces nothing. Used when no backend is
// available; announcements are only logged.
type NoOp struct {
	log *logger.Logger
}

// NewNoOp creates a no-op synthesizer.
func NewNoOp(log *logger.Logger) *NoOp {
	return &NoOp{log: log}
}

// Name identifies the backend.
func (n *NoOp) Name() string { return BackendNoOp }

// Synthesize returns ErrSpeechDisabled.
func (n *NoOp) Synthesize(_ context.Context, u domain.Utterance) ([]byte, error) {
	n.log.Debug("speech no-op: would say %q", u.Text)
	return nil, domain.ErrSpeechDisabled
}

// Voices offers a single placeholder voice so the selector is usable.
func (n *NoOp) Voices(context.Context) ([]domain.Voice, error) {
	return []domain.Voice{{ID: "silent", Name: "Silent", Lang: "en-US", Default: true, Local: true}}, nil
}

// Discard is an audio sink for machines without an audio device.
type Discard struct{}

func (Discard) Play([]byte) error { return nil }
func (Discard) Stop()             {}
