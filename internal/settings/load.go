package settings

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults returns a fresh copy of the built-in settings tree.
func Defaults() *Node {
	root, err := Parse(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("settings: embedded defaults are invalid: %v", err))
	}
	return root
}

// Load reads a YAML settings file. The file only provides initial values;
// nothing is ever written back.
func Load(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("settings: read %q: %w", path, err)
	}
	root, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("settings: parse %q: %w", path, err)
	}
	return root, nil
}

// Parse decodes a YAML mapping into a settings tree, keeping key order.
func Parse(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty settings document")
	}
	root := &Node{Kind: KindGroup}
	if err := fromYAML(root, doc.Content[0]); err != nil {
		return nil, err
	}
	return root, nil
}

func fromYAML(group *Node, m *yaml.Node) error {
	if m.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", m.Line)
	}
	seen := make(map[string]bool, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i], m.Content[i+1]
		key := k.Value
		if err := validateKey(key); err != nil {
			return fmt.Errorf("line %d: %w", k.Line, err)
		}
		if seen[key] {
			return fmt.Errorf("line %d: duplicate key %q", k.Line, key)
		}
		seen[key] = true

		switch v.Kind {
		case yaml.MappingNode:
			child := Group(key)
			if err := fromYAML(child, v); err != nil {
				return err
			}
			group.Children = append(group.Children, child)
		case yaml.ScalarNode:
			leaf, err := leafFromScalar(key, v)
			if err != nil {
				return err
			}
			group.Children = append(group.Children, leaf)
		default:
			return fmt.Errorf("line %d: %q must be a number, a color or a mapping", v.Line, key)
		}
	}
	return nil
}

func leafFromScalar(key string, v *yaml.Node) (*Node, error) {
	if LeafKind(key) == KindColor {
		if !ValidColor(v.Value) {
			return nil, fmt.Errorf("line %d: %q is not a hex color: %q", v.Line, key, v.Value)
		}
		return Color(key, v.Value), nil
	}
	f, err := strconv.ParseFloat(v.Value, 64)
	if err != nil {
		return nil, fmt.Errorf("line %d: %q is not a number: %q", v.Line, key, v.Value)
	}
	return Number(key, f), nil
}
