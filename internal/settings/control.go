package settings

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hammamikhairi/talkytime/internal/domain"
)

// Descriptor holds the input constraints for one leaf suffix.
type Descriptor struct {
	Min  float64
	Max  float64
	Step float64
}

// DefaultDescriptors are the bounds used for the known suffixes. Suffixes
// missing from the table get a plain number box without a slider.
var DefaultDescriptors = map[string]Descriptor{
	"rate":   {Min: 0.1, Max: 10, Step: 0.1},
	"pitch":  {Min: 0, Max: 2, Step: 0.1},
	"volume": {Min: 0, Max: 1, Step: 0.05},
	"ms":     {Min: 100, Max: 60000, Step: 100},
	"size":   {Min: 40, Max: 200, Step: 1},
}

// Control is one generated input. Numeric controls expose a precise number
// box and a bounded slider over the same value; color controls expose a
// single picker.
type Control struct {
	ID      string
	Path    Path
	Label   string
	Kind    Kind
	Desc    Descriptor
	Bounded bool // Desc came from the table, so a slider is shown
	Depth   int

	number float64
	color  string

	resize func(*Control)
}

// Number returns the value shown in the number box.
func (c *Control) Number() float64 { return c.number }

// Slider returns the value shown by the slider, clamped to its bounds.
func (c *Control) Slider() float64 {
	if !c.Bounded {
		return c.number
	}
	return clamp(c.number, c.Desc.Min, c.Desc.Max)
}

// Fraction is the slider position in [0,1]; 0 for unbounded controls.
func (c *Control) Fraction() float64 {
	if !c.Bounded || c.Desc.Max <= c.Desc.Min {
		return 0
	}
	return (c.Slider() - c.Desc.Min) / (c.Desc.Max - c.Desc.Min)
}

// Color returns the current color of a color control.
func (c *Control) Color() string { return c.color }

// Value returns the control's value in the form Set expects.
func (c *Control) Value() any {
	if c.Kind == KindColor {
		return c.color
	}
	return c.number
}

// Text renders the value for display and for the number box.
func (c *Control) Text() string {
	if c.Kind == KindColor {
		return c.color
	}
	return formatNumber(c.number, c.Desc.Step)
}

// SetNumber stores a value typed into the number box. The box is precise:
// the value is kept as typed, only the slider view is clamped.
func (c *Control) SetNumber(v float64) error {
	if c.Kind != KindNumber {
		return fmt.Errorf("%w: %s is not numeric", domain.ErrInvalidValue, c.ID)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidValue, c.ID, v)
	}
	c.number = v
	return nil
}

// SetSlider stores a value coming from the slider: clamped to the bounds
// and snapped to the step.
func (c *Control) SetSlider(v float64) error {
	if c.Kind != KindNumber {
		return fmt.Errorf("%w: %s is not numeric", domain.ErrInvalidValue, c.ID)
	}
	if c.Bounded {
		v = snap(clamp(v, c.Desc.Min, c.Desc.Max), c.Desc.Min, c.Desc.Step)
	}
	c.number = v
	return nil
}

// Nudge moves the slider by n steps.
func (c *Control) Nudge(n int) error {
	step := c.Desc.Step
	if step <= 0 {
		step = 1
	}
	return c.SetSlider(c.Slider() + float64(n)*step)
}

// SetColor stores a color picked for a color control.
func (c *Control) SetColor(hex string) error {
	if c.Kind != KindColor {
		return fmt.Errorf("%w: %s is not a color", domain.ErrInvalidValue, c.ID)
	}
	if !ValidColor(hex) {
		return fmt.Errorf("%w: %q is not a hex color", domain.ErrInvalidValue, hex)
	}
	c.color = hex
	return nil
}

// SetText parses s according to the control's kind: a color for color
// controls, otherwise a number for the number box.
func (c *Control) SetText(s string) error {
	s = strings.TrimSpace(s)
	if c.Kind == KindColor {
		return c.SetColor(s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", domain.ErrInvalidValue, s)
	}
	return c.SetNumber(v)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func snap(v, origin, step float64) float64 {
	if step <= 0 {
		return v
	}
	n := math.Round((v - origin) / step)
	return roundTo(origin+n*step, decimals(step))
}

func decimals(step float64) int {
	s := strconv.FormatFloat(step, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func formatNumber(v, step float64) string {
	if step > 0 {
		if d := decimals(step); roundTo(v, d) == v {
			return strconv.FormatFloat(v, 'f', d, 64)
		}
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
