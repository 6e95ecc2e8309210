// Package timefmt turns an instant into named parts and renders
// ${name} templates from them. The formatter is pinned to 24-hour time,
// millisecond precision, UTC and en-US names so the spoken output never
// depends on the machine's locale.
package timefmt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DefaultTemplate is the announcement template shown at startup.
const DefaultTemplate = "${hour}:${minute} zulu. ${weekday}. ${month} ${day}, ${year}"

// Locale is the fixed locale of the formatter.
const Locale = "en-US"

// Part names, matching the field types of a formatToParts result.
const (
	PartWeekday          = "weekday"
	PartYear             = "year"
	PartMonth            = "month"
	PartDay              = "day"
	PartHour             = "hour"
	PartMinute           = "minute"
	PartSecond           = "second"
	PartFractionalSecond = "fractionalSecond"
	PartLiteral          = "literal"
)

// Part is one (type, value) pair in formatter order.
type Part struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Parts is the decomposition of a single instant.
type Parts struct {
	At    time.Time
	Order []Part
	byKey map[string]string
}

// Lookup returns the value for a part name. Repeated types (literals) keep
// the last value seen.
func (p Parts) Lookup(name string) (string, bool) {
	v, ok := p.byKey[name]
	return v, ok
}

// Map returns a copy of the name to value mapping.
func (p Parts) Map() map[string]string {
	out := make(map[string]string, len(p.byKey))
	for k, v := range p.byKey {
		out[k] = v
	}
	return out
}

// MarshalJSON dumps the mapping, which is what the diagnostics view shows.
func (p Parts) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.byKey)
}

// FromMap builds Parts directly from a mapping; order is unspecified.
func FromMap(m map[string]string) Parts {
	p := Parts{byKey: make(map[string]string, len(m))}
	for k, v := range m {
		p.byKey[k] = v
		p.Order = append(p.Order, Part{Type: k, Value: v})
	}
	return p
}

// Formatter decomposes instants. The zero value is not usable; use New.
type Formatter struct {
	loc *time.Location
	now func() time.Time
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Formatter) { f.now = now }
}

// New creates a UTC formatter.
func New(opts ...Option) *Formatter {
	f := &Formatter{loc: time.UTC, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Now decomposes the current instant.
func (f *Formatter) Now() Parts { return f.Parts(f.now()) }

// Parts decomposes t as "Sunday, October 16, 2026 at 16:30:05.123".
func (f *Formatter) Parts(t time.Time) Parts {
	t = t.In(f.loc)
	order := []Part{
		{PartWeekday, t.Weekday().String()},
		{PartLiteral, ", "},
		{PartMonth, t.Month().String()},
		{PartLiteral, " "},
		{PartDay, strconv.Itoa(t.Day())},
		{PartLiteral, ", "},
		{PartYear, strconv.Itoa(t.Year())},
		{PartLiteral, " at "},
		{PartHour, fmt.Sprintf("%02d", t.Hour())},
		{PartLiteral, ":"},
		{PartMinute, fmt.Sprintf("%02d", t.Minute())},
		{PartLiteral, ":"},
		{PartSecond, fmt.Sprintf("%02d", t.Second())},
		{PartLiteral, "."},
		{PartFractionalSecond, fmt.Sprintf("%03d", t.Nanosecond()/int(time.Millisecond))},
	}
	p := Parts{At: t, Order: order, byKey: make(map[string]string, 9)}
	for _, part := range order {
		p.byKey[part.Type] = part.Value
	}
	return p
}

var placeholder = regexp.MustCompile(`\$\{([^}]*)\}`)

// UnknownKey is the marker left in place of a placeholder with no part.
func UnknownKey(name string) string {
	return fmt.Sprintf("[unknown key: %s]", name)
}

// Render substitutes every ${name} in tmpl. Names without a part are
// replaced by the UnknownKey marker so typos stay visible.
func Render(tmpl string, p Parts) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[2 : len(m)-1]
		if v, ok := p.Lookup(name); ok {
			return v
		}
		return UnknownKey(name)
	})
}

// Stamp renders the archive stamp used when naming recordings, e.g.
// "20261016-163005-Fri".
func Stamp(t time.Time) string {
	return t.Format("20060102-150405-Mon")
}
