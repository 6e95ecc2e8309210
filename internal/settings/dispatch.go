package settings

import (
	"fmt"
	"strings"

	"github.com/hammamikhairi/talkytime/internal/logger"
)

// Wildcard matches any path segment that has no specific route.
const Wildcard = "*"

// Handler refreshes whatever depends on a control's value.
type Handler func(c *Control)

// Route is one node of the redraw table. The table mirrors the shape of the
// settings tree; the first node with a Handler along a path wins.
type Route struct {
	Handler  Handler
	Children map[string]*Route
}

// NewTable returns an empty redraw table.
func NewTable() *Route { return &Route{} }

// Handle registers h at a dotted pattern such as "clock.interval_ms" or
// "display.*". It returns the table for chaining.
func (r *Route) Handle(pattern string, h Handler) *Route {
	node := r
	for _, seg := range strings.Split(pattern, ".") {
		if node.Children == nil {
			node.Children = make(map[string]*Route)
		}
		next, ok := node.Children[seg]
		if !ok {
			next = &Route{}
			node.Children[seg] = next
		}
		node = next
	}
	node.Handler = h
	return r
}

// Resolve walks the table along path, substituting the wildcard for any
// segment without its own entry. It returns the first handler met, or nil.
func (r *Route) Resolve(path Path) Handler {
	node := r
	for _, seg := range path {
		next, ok := node.Children[seg]
		if !ok {
			next, ok = node.Children[Wildcard]
		}
		if !ok {
			return nil
		}
		if next.Handler != nil {
			return next.Handler
		}
		node = next
	}
	return nil
}

// Dispatcher writes control edits back into the settings tree and invokes
// the matching redraw handler. Handlers are resolved once per control at
// bind time; an unresolvable control is a programming error and panics.
type Dispatcher struct {
	root  *Node
	table *Route
	log   *logger.Logger
	bound map[string]Handler
}

// NewDispatcher creates a dispatcher over root using table.
func NewDispatcher(root *Node, table *Route, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		root:  root,
		table: table,
		log:   log,
		bound: make(map[string]Handler),
	}
}

// Bind resolves the handler for c.
func (d *Dispatcher) Bind(c *Control) {
	h := d.table.Resolve(c.Path)
	if h == nil {
		panic(fmt.Sprintf("settings: no redraw handler for control %q (path %s)", c.ID, c.Path))
	}
	d.bound[c.ID] = h
}

// Dispatch writes c's value into the tree and runs its handler, plus the
// resize callback for the size control.
func (d *Dispatcher) Dispatch(c *Control) error {
	h, ok := d.bound[c.ID]
	if !ok {
		panic(fmt.Sprintf("settings: control %q dispatched before Bind", c.ID))
	}
	if err := Set(d.root, c.Path, c.Value()); err != nil {
		return fmt.Errorf("writing %s: %w", c.Path, err)
	}
	d.log.Debug("settings: %s = %s", c.Path, c.Text())
	h(c)
	if c.resize != nil {
		c.resize(c)
	}
	return nil
}
