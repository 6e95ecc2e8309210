package speech

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/logger"
)

var _ domain.Synthesizer = (*Espeak)(nil)

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// espeak's own defaults, which a multiplier of 1.0 maps to.
const (
	espeakWPM       = 175
	espeakPitch     = 50
	espeakAmplitude = 100
)

// EspeakOption configures the espeak backend.
type EspeakOption func(*Espeak)

// WithEspeakBinary overrides the executable name or path.
func WithEspeakBinary(bin string) EspeakOption {
	return func(e *Espeak) { e.bin = bin }
}

// WithEspeakVoice sets the voice flagged as the backend default.
func WithEspeakVoice(voice string) EspeakOption {
	return func(e *Espeak) { e.voice = voice }
}

// WithRunner replaces command execution, for tests.
func WithRunner(r Runner) EspeakOption {
	return func(e *Espeak) { e.run = r }
}

// Espeak synthesizes locally by shelling out to espeak-ng (or espeak) with
// --stdout, which writes a WAV file.
type Espeak struct {
	bin   string
	voice string
	run   Runner
	log   *logger.Logger
}

// NewEspeak creates the local backend.
func NewEspeak(log *logger.Logger, opts ...EspeakOption) *Espeak {
	e := &Espeak{
		bin:   "espeak-ng",
		voice: DefaultEspeakVoice,
		run:   execRunner,
		log:   log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LookEspeak returns the first espeak executable found in PATH.
func LookEspeak() (string, bool) {
	for _, bin := range []string{"espeak-ng", "espeak"} {
		if p, err := exec.LookPath(bin); err == nil {
			return p, true
		}
	}
	return "", false
}

// Name identifies the backend.
func (e *Espeak) Name() string { return BackendEspeak }

// Synthesize runs espeak for one utterance.
func (e *Espeak) Synthesize(ctx context.Context, u domain.Utterance) ([]byte, error) {
	voice := u.Voice.ID
	if voice == "" {
		voice = e.voice
	}
	args := espeakArgs(voice, u.Prosody, u.Text)
	e.log.Debug("espeak: %s %s", e.bin, strings.Join(args[:len(args)-1], " "))

	wav, err := e.run(ctx, e.bin, args...)
	if err != nil {
		return nil, fmt.Errorf("espeak synthesis: %w", err)
	}
	if len(wav) == 0 {
		return nil, fmt.Errorf("espeak synthesis: empty output")
	}
	return wav, nil
}

func espeakArgs(voice string, p domain.Prosody, text string) []string {
	return []string{
		"-v", voice,
		"-s", strconv.Itoa(scale(p.Rate, espeakWPM, 80, 500)),
		"-p", strconv.Itoa(scale(p.Pitch, espeakPitch, 0, 99)),
		"-a", strconv.Itoa(scale(p.Volume, espeakAmplitude, 0, 200)),
		"--stdout",
		text,
	}
}

func scale(mult float64, base, lo, hi int) int {
	v := int(math.Round(mult * float64(base)))
	return max(lo, min(hi, v))
}

// Voices parses the table printed by --voices:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  en-gb           --/M      English_(Great_Britain) gmw/en
func (e *Espeak) Voices(ctx context.Context) ([]domain.Voice, error) {
	out, err := e.run(ctx, e.bin, "--voices")
	if err != nil {
		return nil, fmt.Errorf("listing espeak voices: %w", err)
	}
	return parseEspeakVoices(out, e.voice), nil
}

func parseEspeakVoices(out []byte, def string) []domain.Voice {
	var voices []domain.Voice
	seen := make(map[string]bool)

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) < 4 || f[0] == "Pty" {
			continue
		}
		if _, err := strconv.Atoi(f[0]); err != nil {
			continue
		}
		lang := f[1]
		if seen[lang] {
			continue
		}
		seen[lang] = true
		voices = append(voices, domain.Voice{
			ID:      lang,
			Name:    strings.ReplaceAll(f[3], "_", " "),
			Lang:    lang,
			Default: strings.EqualFold(lang, def),
			Local:   true,
		})
	}
	return voices
}
