package engine

import (
	"maps"
	"time"

	"github.com/hammamikhairi/talkytime/internal/settings"
)

// Style is what the display settings control.
type Style struct {
	PanelSize int               `json:"panel_size"`
	Colors    map[string]string `json:"colors"` // by leaf key, e.g. "clock_color"
}

// Color returns the color for key or fallback.
func (s Style) Color(key, fallback string) string {
	if c, ok := s.Colors[key]; ok {
		return c
	}
	return fallback
}

func (s Style) clone() Style {
	s.Colors = maps.Clone(s.Colors)
	return s
}

func defaultStyle() Style {
	return Style{PanelSize: 72, Colors: map[string]string{}}
}

// redrawTable routes each settings subtree to what has to be refreshed when
// one of its leaves changes. Handlers run with e.mu held.
func (e *Engine) redrawTable() *settings.Route {
	return settings.NewTable().
		Handle("speech.*", e.speechChanged).
		Handle("clock.interval_ms", e.intervalChanged).
		Handle("display.*", e.restyle).
		Handle(settings.Wildcard, e.unrouted)
}

// Prosody is read from the tree at speak time.
func (e *Engine) speechChanged(c *settings.Control) {
	e.log.Debug("speech parameter %s = %s", c.Path, c.Text())
}

func (e *Engine) intervalChanged(c *settings.Control) {
	d := time.Duration(c.Number()) * time.Millisecond
	if err := e.clock.SetInterval(d); err != nil {
		e.log.Warn("clock interval: %v", err)
	}
}

func (e *Engine) restyle(c *settings.Control) {
	if c.Kind == settings.KindColor {
		e.style.Colors[c.Label] = c.Color()
	}
}

func (e *Engine) resize(c *settings.Control) {
	e.style.PanelSize = int(c.Slider())
}

func (e *Engine) unrouted(c *settings.Control) {
	e.log.Debug("no specific redraw for %s", c.Path)
}
