package settings

import (
	"fmt"
	"strings"

	"github.com/hammamikhairi/talkytime/internal/domain"
)

// SizeControlID is the reserved control that resizes the panel itself. It
// is placed above everything else so it stays put while the layout changes.
const SizeControlID = "display-panel_size"

// Item is one row of a Panel: a group heading or a control.
type Item struct {
	Heading string // non-empty for group titles
	Depth   int
	Control *Control
}

// Panel is the container the builder fills, in display order.
type Panel struct {
	Items []Item
	byID  map[string]*Control
	disp  *Dispatcher
}

// NewPanel creates an empty panel whose controls report to d.
func NewPanel(d *Dispatcher) *Panel {
	return &Panel{byID: make(map[string]*Control), disp: d}
}

// Controls returns the controls in display order.
func (p *Panel) Controls() []*Control {
	out := make([]*Control, 0, len(p.byID))
	for _, it := range p.Items {
		if it.Control != nil {
			out = append(out, it.Control)
		}
	}
	return out
}

// Control looks up a control by identifier.
func (p *Panel) Control(id string) (*Control, bool) {
	c, ok := p.byID[id]
	return c, ok
}

// Edit applies fn to the control and dispatches the change.
func (p *Panel) Edit(id string, fn func(*Control) error) error {
	c, ok := p.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownControl, id)
	}
	if err := fn(c); err != nil {
		return err
	}
	return p.disp.Dispatch(c)
}

// Builder turns a settings tree into panel rows.
type Builder struct {
	Descriptors map[string]Descriptor
	SizeID      string
	OnResize    Handler
}

// Build fills panel with one heading per group and one control per leaf
// found below root, keeping key order. Every control is bound and fires an
// initial change right after creation.
func (b *Builder) Build(panel *Panel, root *Node) error {
	v := &buildVisitor{b: b, panel: panel}
	Walk(root, v)
	return v.err
}

type buildVisitor struct {
	b     *Builder
	panel *Panel
	err   error
}

func (v *buildVisitor) EnterGroup(path Path, n *Node) {
	v.panel.Items = append(v.panel.Items, Item{Heading: title(n.Key), Depth: len(path) - 1})
}

func (v *buildVisitor) LeaveGroup(Path, *Node) {}

func (v *buildVisitor) Leaf(path Path, n *Node) {
	if v.err != nil {
		return
	}
	c := &Control{
		ID:    path.ID(),
		Path:  path,
		Label: n.Key,
		Kind:  n.Kind,
		Depth: len(path) - 1,
	}
	switch n.Kind {
	case KindColor:
		c.color = n.Color
	default:
		c.number = n.Number
		if d, ok := v.b.Descriptors[Suffix(n.Key)]; ok {
			c.Desc, c.Bounded = d, true
		} else {
			c.Desc = Descriptor{Step: 1}
		}
	}

	item := Item{Control: c, Depth: c.Depth}
	if c.ID == v.b.SizeID {
		c.resize = v.b.OnResize
		item.Depth = 0
		v.panel.Items = append([]Item{item}, v.panel.Items...)
	} else {
		v.panel.Items = append(v.panel.Items, item)
	}
	v.panel.byID[c.ID] = c

	v.panel.disp.Bind(c)
	if err := v.panel.disp.Dispatch(c); err != nil {
		v.err = err
	}
}

// title turns "speech_engine" into "Speech engine".
func title(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
