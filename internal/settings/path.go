package settings

import (
	"fmt"
	"strings"

	"github.com/hammamikhairi/talkytime/internal/domain"
)

// Path is a sequence of keys from the root to a node.
type Path []string

// ParsePath splits a dotted path like "speech.rate".
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

// String joins the path with dots.
func (p Path) String() string { return strings.Join(p, ".") }

// ID is the control identifier generated from the path.
func (p Path) ID() string { return strings.Join(p, "-") }

// Get returns the node at path below root.
func Get(root *Node, path Path) (*Node, error) {
	n := root
	for i, key := range path {
		if n.IsLeaf() {
			return nil, fmt.Errorf("%w: %s is a leaf", domain.ErrUnknownControl, Path(path[:i]))
		}
		next := n.Child(key)
		if next == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownControl, Path(path[:i+1]))
		}
		n = next
	}
	return n, nil
}

// GetNumber returns the numeric leaf at path, or fallback when the path is
// missing or not numeric.
func GetNumber(root *Node, path Path, fallback float64) float64 {
	n, err := Get(root, path)
	if err != nil || n.Kind != KindNumber {
		return fallback
	}
	return n.Number
}

// GetColor returns the color leaf at path, or fallback.
func GetColor(root *Node, path Path, fallback string) string {
	n, err := Get(root, path)
	if err != nil || n.Kind != KindColor {
		return fallback
	}
	return n.Color
}

// Set writes value into the leaf at path. Numbers accept float64 or int;
// colors accept a hex string.
func Set(root *Node, path Path, value any) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty path", domain.ErrUnknownControl)
	}
	n, err := Get(root, path)
	if err != nil {
		return err
	}
	switch n.Kind {
	case KindNumber:
		switch v := value.(type) {
		case float64:
			n.Number = v
		case int:
			n.Number = float64(v)
		default:
			return fmt.Errorf("%w: %s wants a number, got %T", domain.ErrInvalidValue, path, value)
		}
	case KindColor:
		s, ok := value.(string)
		if !ok || !ValidColor(s) {
			return fmt.Errorf("%w: %s wants a hex color, got %v", domain.ErrInvalidValue, path, value)
		}
		n.Color = s
	default:
		return fmt.Errorf("%w: %s is a group", domain.ErrInvalidValue, path)
	}
	return nil
}
