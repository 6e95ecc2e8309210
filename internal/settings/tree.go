// Package settings holds the nested settings tree behind the configuration
// panel: the tree itself, path get/set, the control builder that turns the
// tree into input controls, and the dispatcher that routes control edits to
// refresh callbacks.
package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind tags a Node as a group or one of the leaf types.
type Kind int

const (
	KindGroup Kind = iota
	KindNumber
	KindColor
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindNumber:
		return "number"
	case KindColor:
		return "color"
	default:
		return "unknown"
	}
}

// Node is one entry of the settings tree. Groups carry ordered children;
// leaves carry either a number or a color string depending on Kind.
type Node struct {
	Key      string
	Kind     Kind
	Number   float64
	Color    string
	Children []*Node
}

// Suffix returns the part of key after the last underscore, or the whole
// key when it has none.
func Suffix(key string) string {
	if i := strings.LastIndexByte(key, '_'); i >= 0 {
		return key[i+1:]
	}
	return key
}

// LeafKind infers a leaf's type from its key suffix.
func LeafKind(key string) Kind {
	if Suffix(key) == "color" {
		return KindColor
	}
	return KindNumber
}

// Group builds a group node.
func Group(key string, children ...*Node) *Node {
	return &Node{Key: key, Kind: KindGroup, Children: children}
}

// Number builds a numeric leaf.
func Number(key string, v float64) *Node {
	return &Node{Key: key, Kind: KindNumber, Number: v}
}

// Color builds a color leaf.
func Color(key, hex string) *Node {
	return &Node{Key: key, Kind: KindColor, Color: hex}
}

// IsLeaf reports whether n holds a value rather than children.
func (n *Node) IsLeaf() bool { return n.Kind != KindGroup }

// Child returns the direct child with the given key, or nil.
func (n *Node) Child(key string) *Node {
	for _, c := range n.Children {
		if c.Key == key {
			return c
		}
	}
	return nil
}

// Value returns the leaf value as float64 or string; nil for groups.
func (n *Node) Value() any {
	switch n.Kind {
	case KindNumber:
		return n.Number
	case KindColor:
		return n.Color
	}
	return nil
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	cp := *n
	if n.Children != nil {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = c.Clone()
		}
	}
	return &cp
}

// MarshalJSON writes groups as objects with keys in tree order.
func (n *Node) MarshalJSON() ([]byte, error) {
	switch n.Kind {
	case KindNumber:
		return []byte(strconv.FormatFloat(n.Number, 'f', -1, 64)), nil
	case KindColor:
		return json.Marshal(n.Color)
	}
	var b bytes.Buffer
	b.WriteByte('{')
	for i, c := range n.Children {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(c.Key)
		b.Write(k)
		b.WriteByte(':')
		v, err := c.MarshalJSON()
		if err != nil {
			return nil, err
		}
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidColor reports whether s is a #rgb or #rrggbb hex color.
func ValidColor(s string) bool { return hexColor.MatchString(s) }

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty settings key")
	}
	if strings.ContainsAny(key, ".-* ") {
		return fmt.Errorf("settings key %q must not contain '.', '-', '*' or spaces", key)
	}
	return nil
}
