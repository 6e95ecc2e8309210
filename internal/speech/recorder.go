package speech

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/logger"
)

var _ domain.Recorder = (*Recorder)(nil)

// envAnnotation matches whisper environmental annotations like
// "(piano playing)" or "[music]".
var envAnnotation = regexp.MustCompile(`[\(\[][a-zA-Z][a-zA-Z\s_]*[\)\]]`)

// RecorderOption configures the Recorder.
type RecorderOption func(*Recorder)

// WithTempDir sets the directory for temporary WAV files.
func WithTempDir(dir string) RecorderOption {
	return func(r *Recorder) { r.tempDir = dir }
}

// Recorder captures the microphone and transcribes it with a local Whisper
// model. It is used to check that an announcement can be heard back as a
// timestamp.
type Recorder struct {
	whisperBin string
	modelPath  string
	tempDir    string
	log        *logger.Logger

	mu sync.Mutex // one recording at a time
}

// NewRecorder creates a whisper-backed recorder.
//
//   - whisperBin: path to the whisper-cli executable
//   - modelPath:  path to the GGML model file
func NewRecorder(whisperBin, modelPath string, log *logger.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		whisperBin: whisperBin,
		modelPath:  modelPath,
		tempDir:    ".talkytime-stt",
		log:        log,
	}
	for _, opt := range opts {
		opt(r)
	}

	if _, err := exec.LookPath(r.whisperBin); err != nil {
		log.Error("recorder: whisper binary %q not found in PATH: %v", r.whisperBin, err)
	}
	return r
}

// Record listens for d (or until ctx is done) and returns the cleaned
// transcription.
func (r *Recorder) Record(ctx context.Context, d time.Duration) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result string
	var wg sync.WaitGroup
	wg.Add(1)

	callback := func(text string) {
		result = text
		wg.Done()
	}

	verbose := r.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(
		r.whisperBin,
		r.modelPath,
		r.tempDir,
		"wav",
		callback,
		verbose,
	)
	if err != nil {
		return "", fmt.Errorf("transcriber init: %w", err)
	}

	if err := t.Start(); err != nil {
		return "", fmt.Errorf("recording start: %w", err)
	}
	r.log.Debug("recorder: listening for %s", d)

	select {
	case <-time.After(d):
	case <-ctx.Done():
		t.Stop()
		wg.Wait()
		return "", ctx.Err()
	}

	t.Stop()
	wg.Wait()

	text := cleanTranscription(result)
	r.log.Debug("recorder: heard %q", text)
	return text, nil
}

// ── Transcription cleanup ────────────────────────────────────────

// cleanTranscription normalizes whitespace and strips whisper artifacts
// such as "[BLANK_AUDIO]", sound annotations and timestamp prefixes.
func cleanTranscription(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)

	// Strip whisper timestamp prefixes like "[00:00:00.000 --> 00:00:05.000]".
	s = timestampPrefix.ReplaceAllString(s, " ")

	s = strings.ReplaceAll(s, "[BLANK_AUDIO]", " ")
	s = envAnnotation.ReplaceAllString(s, " ")

	s = strings.Join(strings.Fields(s), " ")

	// If what remains is just a known hallucination, discard entirely.
	lower := strings.ToLower(s)
	for _, h := range hallucinations {
		if h == lower {
			return ""
		}
	}
	return s
}

var timestampPrefix = regexp.MustCompile(`\[\d{2}:\d{2}:\d{2}\.\d{3} --> \d{2}:\d{2}:\d{2}\.\d{3}\]`)

var hallucinations = []string{
	"...",
	"you",
	"thank you.",
	"thanks for watching!",
	"thank you for watching.",
	"bye.",
	"the end.",
}
