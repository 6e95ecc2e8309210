// Package voices keeps the voice selector's catalog: the backend's voices
// split into the ones matching the user's preferred languages and the rest.
package voices

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hammamikhairi/talkytime/internal/domain"
	"github.com/hammamikhairi/talkytime/internal/logger"
	"github.com/hammamikhairi/talkytime/internal/observe"
)

// Group titles as shown in the selector.
const (
	DefaultsTitle = "Defaults"
	OthersTitle   = "Others"
)

// Groups is the partitioned catalog. Selection indices run over Defaults
// first, then Others.
type Groups struct {
	Defaults []domain.Voice `json:"defaults"`
	Others   []domain.Voice `json:"others"`
}

// All flattens the groups in selection order.
func (g Groups) All() []domain.Voice {
	out := make([]domain.Voice, 0, len(g.Defaults)+len(g.Others))
	out = append(out, g.Defaults...)
	return append(out, g.Others...)
}

// Len is the number of selectable voices.
func (g Groups) Len() int { return len(g.Defaults) + len(g.Others) }

// Partition splits voices into Defaults and Others. Defaults holds, per
// preferred language in order, every matching voice in backend order,
// followed by the backend's default voice if it is not already there.
// Others keeps the remaining voices in backend order.
func Partition(all []domain.Voice, preferred []string) Groups {
	var g Groups
	taken := make([]bool, len(all))

	for _, lang := range preferred {
		for i, v := range all {
			if !taken[i] && Matches(v.Lang, lang) {
				taken[i] = true
				g.Defaults = append(g.Defaults, v)
			}
		}
	}
	for i, v := range all {
		if v.Default && !taken[i] {
			taken[i] = true
			g.Defaults = append(g.Defaults, v)
			break
		}
	}
	for i, v := range all {
		if !taken[i] {
			g.Others = append(g.Others, v)
		}
	}
	return g
}

// Matches reports whether a voice language satisfies a preferred language.
// Comparison ignores case and treats "_" like "-". A preferred tag with a
// region ("en-US") must match exactly; a bare language ("en") matches as a
// prefix.
func Matches(voiceLang, preferred string) bool {
	v := normalise(voiceLang)
	p := normalise(preferred)
	if p == "" {
		return false
	}
	if strings.Contains(p, "-") {
		return v == p
	}
	return strings.HasPrefix(v, p)
}

func normalise(tag string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"))
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithPreferred sets the preferred languages, most preferred first.
func WithPreferred(langs []string) Option {
	return func(c *Catalog) { c.preferred = append([]string(nil), langs...) }
}

// WithMetrics counts catalog rebuilds.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Catalog) { c.metrics = m }
}

// WithOnChange registers a callback run after every rebuild.
func WithOnChange(fn func()) Option {
	return func(c *Catalog) { c.onChange = fn }
}

// Catalog holds the partitioned voices and the selected index. It is
// rebuilt wholesale on every refresh; only the index survives.
type Catalog struct {
	src       domain.VoiceSource
	log       *logger.Logger
	metrics   *observe.Metrics
	preferred []string
	onChange  func()

	mu          sync.Mutex
	groups      Groups
	selected    int
	fingerprint string
}

// New creates an empty catalog. Call Refresh to populate it.
func New(src domain.VoiceSource, log *logger.Logger, opts ...Option) *Catalog {
	c := &Catalog{
		src:       src,
		log:       log,
		preferred: []string{"en-US"},
		selected:  -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh re-reads the voice list and rebuilds the groups. On error the
// previous catalog is kept.
func (c *Catalog) Refresh(ctx context.Context) error {
	all, err := c.src.Voices(ctx)
	if err != nil {
		return fmt.Errorf("listing voices: %w", err)
	}
	c.rebuild(ctx, all)
	return nil
}

func (c *Catalog) rebuild(ctx context.Context, all []domain.Voice) {
	c.mu.Lock()
	idx := c.selected
	if idx < 0 {
		idx = 0
	}
	c.groups = Partition(all, c.preferred)
	c.fingerprint = fingerprint(all)
	if c.groups.Len() == 0 {
		c.selected = -1
	} else {
		c.selected = idx
	}
	n, sel := c.groups.Len(), c.selected
	onChange := c.onChange
	c.mu.Unlock()

	c.metrics.RecordVoiceRefresh(ctx)
	c.log.Debug("voice catalog rebuilt: %d voices, selected=%d", n, sel)
	if onChange != nil {
		onChange()
	}
}

// Groups returns a copy of the current partition.
func (c *Catalog) Groups() Groups {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Groups{
		Defaults: append([]domain.Voice(nil), c.groups.Defaults...),
		Others:   append([]domain.Voice(nil), c.groups.Others...),
	}
}

// SelectedIndex returns the selector index, -1 when nothing is selectable.
func (c *Catalog) SelectedIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Selected returns the selected voice. ok is false when the index does not
// point at a voice.
func (c *Catalog) Selected() (domain.Voice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at(c.selected)
}

func (c *Catalog) at(i int) (domain.Voice, bool) {
	if i < 0 {
		return domain.Voice{}, false
	}
	if i < len(c.groups.Defaults) {
		return c.groups.Defaults[i], true
	}
	i -= len(c.groups.Defaults)
	if i < len(c.groups.Others) {
		return c.groups.Others[i], true
	}
	return domain.Voice{}, false
}

// Select sets the selector index.
func (c *Catalog) Select(i int) (domain.Voice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.at(i)
	if !ok {
		return domain.Voice{}, fmt.Errorf("%w: index %d of %d", domain.ErrNoVoice, i, c.groups.Len())
	}
	c.selected = i
	return v, nil
}

// Watch polls the backend every interval and rebuilds the catalog when the
// voice list changes. It blocks until ctx is done.
func (c *Catalog) Watch(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			all, err := c.src.Voices(ctx)
			if err != nil {
				c.log.Warn("voice watch: %v", err)
				continue
			}
			fp := fingerprint(all)
			c.mu.Lock()
			same := fp == c.fingerprint
			c.mu.Unlock()
			if same {
				continue
			}
			c.log.Info("voice list changed, rebuilding catalog")
			c.rebuild(ctx, all)
		}
	}
}

func fingerprint(all []domain.Voice) string {
	var b strings.Builder
	for _, v := range all {
		fmt.Fprintf(&b, "%s|%s|%t|%t\n", v.ID, v.Lang, v.Default, v.Local)
	}
	return b.String()
}
