package domain

import (
	"fmt"
	"time"
)

// Voice is one entry of a synthesis backend's voice list.
type Voice struct {
	ID      string `json:"id"`      // backend identifier passed back on synthesis
	Name    string `json:"name"`    // human-readable name
	Lang    string `json:"lang"`    // BCP-47-ish tag as reported by the backend
	Default bool   `json:"default"` // backend-flagged default voice
	Local   bool   `json:"local"`   // synthesized on this machine
}

// Label is the text shown in the voice selector.
func (v Voice) Label() string {
	s := fmt.Sprintf("%s (%s)", v.Name, v.Lang)
	if v.Default {
		s += " — DEFAULT"
	}
	return s
}

// Prosody carries the speech parameters from the settings tree. Rate and
// pitch are multipliers around 1.0; volume ranges over 0..1.
type Prosody struct {
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

// DefaultProsody is the neutral setting.
var DefaultProsody = Prosody{Rate: 1, Pitch: 1, Volume: 1}

// Utterance is a single request to speak.
type Utterance struct {
	ID      string
	Text    string
	Voice   Voice
	Prosody Prosody
	At      time.Time // the instant the text announces; zero if none
}
