package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/logger"
)

var _ domain.AudioSink = (*Player)(nil)

// Player handles audio playback of WAV data via oto. Input that is not
// 16-bit mono at SampleRate is converted first.
type Player struct {
	ctx    *oto.Context
	log    *logger.Logger
	mu     sync.Mutex
	active *oto.Player // currently playing, nil when idle
}

// NewPlayer creates an audio player. Initializes the system audio context.
// Returns an error if the audio device is unavailable.
func NewPlayer(log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("audio player initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, log: log}, nil
}

// Play plays WAV audio data synchronously. Blocks until playback finishes
// or Stop is called.
func (p *Player) Play(wavData []byte) error {
	w, err := decodeWAV(wavData)
	if err != nil {
		return err
	}
	pcm, err := w.toOutput()
	if err != nil {
		return err
	}

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))

	p.mu.Lock()
	p.active = player
	p.mu.Unlock()

	player.Play()
	p.log.Debug("audio player: playing %d bytes of PCM (source %d Hz, %d ch)", len(pcm), w.rate, w.channels)

	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}

	p.mu.Lock()
	p.active = nil
	p.mu.Unlock()

	return player.Close()
}

// Stop interrupts the currently playing audio, if any. Safe to call
// concurrently and when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.Pause()
		p.log.Debug("audio player: interrupted")
	}
}

// ── WAV decoding ─────────────────────────────────────────────────

type wav struct {
	rate     int
	channels int
	bits     int
	data     []byte
}

// decodeWAV walks the RIFF chunks for fmt and data. espeak writes a data
// chunk size of 0xFFFFFFFF when streaming to stdout, so the size is capped
// at what is actually there.
func decodeWAV(b []byte) (wav, error) {
	var w wav
	if len(b) < 44 {
		return w, errors.New("wav data too short")
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return w, errors.New("not a valid WAV file")
	}

	haveFmt := false
	pos := 12
	for pos <= len(b)-8 {
		id := string(b[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(b[pos+4 : pos+8]))
		start := pos + 8
		end := start + size
		if end > len(b) || end < start {
			end = len(b)
		}

		switch id {
		case "fmt ":
			if end-start < 16 {
				return w, errors.New("wav fmt chunk too short")
			}
			if tag := binary.LittleEndian.Uint16(b[start:]); tag != 1 {
				return w, fmt.Errorf("unsupported wav encoding %d", tag)
			}
			w.channels = int(binary.LittleEndian.Uint16(b[start+2:]))
			w.rate = int(binary.LittleEndian.Uint32(b[start+4:]))
			w.bits = int(binary.LittleEndian.Uint16(b[start+14:]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return w, errors.New("wav data chunk before fmt")
			}
			w.data = b[start:end]
			return w, nil
		}

		pos = end
		// Chunks are word-aligned.
		if size%2 != 0 {
			pos++
		}
	}
	return w, errors.New("data chunk not found in WAV")
}

// toOutput converts to signed 16-bit little-endian mono at SampleRate.
func (w wav) toOutput() ([]byte, error) {
	if w.bits != BitDepth {
		return nil, fmt.Errorf("unsupported wav bit depth %d", w.bits)
	}
	if w.channels < 1 {
		return nil, errors.New("wav has no channels")
	}
	if w.channels == ChannelCount && w.rate == SampleRate {
		return w.data, nil
	}

	frames := len(w.data) / (2 * w.channels)
	mono := make([]int16, frames)
	for i := range frames {
		var sum int
		for ch := range w.channels {
			off := (i*w.channels + ch) * 2
			sum += int(int16(binary.LittleEndian.Uint16(w.data[off:])))
		}
		mono[i] = int16(sum / w.channels)
	}

	out := resample(mono, w.rate, SampleRate)
	buf := make([]byte, len(out)*2)
	for i, s := range out {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf, nil
}

// resample converts by linear interpolation.
func resample(in []int16, from, to int) []int16 {
	if from == to || len(in) == 0 || from <= 0 {
		return in
	}
	n := int(int64(len(in)) * int64(to) / int64(from))
	out := make([]int16, n)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = int16(float64(in[j])*(1-frac) + float64(in[j+1])*frac)
	}
	return out
}
