package engine

import (
	"github.com/hammamikhairi/talkytime/internal/settings"
	"github.com/hammamikhairi/talkytime/internal/timefmt"
	"github.com/hammamikhairi/talkytime/internal/voices"
)

// ControlState is a read-only copy of a settings control.
type ControlState struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Kind     string  `json:"kind"`
	Number   float64 `json:"number"`
	Slider   float64 `json:"slider"`
	Fraction float64 `json:"-"`
	Color    string  `json:"color,omitempty"`
	Text     string  `json:"text"`
	Bounded  bool    `json:"bounded"`
	Min      float64 `json:"min,omitempty"`
	Max      float64 `json:"max,omitempty"`
	Step     float64 `json:"step,omitempty"`
}

// Row is one line of the settings panel: a heading or a control.
type Row struct {
	Heading string        `json:"heading,omitempty"`
	Depth   int           `json:"depth"`
	Control *ControlState `json:"control,omitempty"`
}

func (e *Engine) rowsLocked() []Row {
	rows := make([]Row, 0, len(e.panel.Items))
	for _, it := range e.panel.Items {
		r := Row{Heading: it.Heading, Depth: it.Depth}
		if c := it.Control; c != nil {
			r.Control = &ControlState{
				ID:       c.ID,
				Label:    c.Label,
				Kind:     c.Kind.String(),
				Text:     c.Text(),
				Bounded:  c.Bounded,
				Fraction: c.Fraction(),
			}
			if c.Kind == settings.KindColor {
				r.Control.Color = c.Color()
			} else {
				r.Control.Number = c.Number()
				r.Control.Slider = c.Slider()
				r.Control.Min, r.Control.Max, r.Control.Step = c.Desc.Min, c.Desc.Max, c.Desc.Step
			}
		}
		rows = append(rows, r)
	}
	return rows
}

// State is everything a view needs to draw the page.
type State struct {
	Template   string        `json:"template"`
	TimeString string        `json:"time_string"`
	Stamp      string        `json:"stamp"`
	Parts      timefmt.Parts `json:"parts"`
	ClockLabel string        `json:"clock_label"`
	Running    bool          `json:"running"`
	IntervalMS float64       `json:"interval_ms"`
	Speaking   bool          `json:"speaking"`
	Backend    string        `json:"backend"`
	Voices     voices.Groups `json:"voices"`
	Selected   int           `json:"selected_voice"`
	Style      Style         `json:"style"`
	Controls   []Row         `json:"controls"`
	Verify     *VerifyResult `json:"verify,omitempty"`
}

// State returns a consistent snapshot of the page.
func (e *Engine) State() State {
	e.mu.Lock()
	s := State{
		Template:   e.template,
		TimeString: e.timeString,
		Stamp:      timefmt.Stamp(e.parts.At),
		Parts:      e.parts,
		IntervalMS: settings.GetNumber(e.root, pathInterval, 0),
		Style:      e.style.clone(),
		Controls:   e.rowsLocked(),
	}
	if e.lastVerify != nil {
		v := *e.lastVerify
		s.Verify = &v
	}
	e.mu.Unlock()

	s.ClockLabel = e.clock.Label()
	s.Running = e.clock.Running()
	s.Speaking = e.speaker.Speaking()
	s.Backend = e.speaker.Backend()
	s.Voices = e.catalog.Groups()
	s.Selected = e.catalog.SelectedIndex()
	return s
}
