// Package bindings loads variable bindings into a formula context from
// external sources: YAML documents and SQL result sets.
//
// # Example
//
//	vars := types.NewContext()
//	f, _ := os.Open("vars.yaml")
//	defer f.Close()
//	n, err := bindings.LoadYAML(f, vars)
package bindings

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandrolain/goformula/pkg/types"
)

// ErrNotMapping is returned when a YAML document is not a mapping of
// variable names to values.
var ErrNotMapping = errors.New("bindings: document is not a mapping")

// LoadYAML reads a YAML mapping of variable names to values and binds every
// entry into vars. It returns the number of variables bound.
//
// Scalars map to Number, Text and Boolean values, null to Empty, sequences
// to Array and timestamps (plain or tagged !!timestamp) to Date. Nested
// mappings are rejected. An empty document binds nothing.
func LoadYAML(r io.Reader, vars *types.Context) (int, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("bindings: decode yaml: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return 0, fmt.Errorf("%w (line %d)", ErrNotMapping, root.Line)
	}

	values := make(map[string]types.Value, len(root.Content)/2)
	names := make([]string, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, node := root.Content[i], root.Content[i+1]
		v, err := yamlValue(node)
		if err != nil {
			return 0, fmt.Errorf("bindings: %q (line %d): %w", key.Value, node.Line, err)
		}
		if _, dup := values[key.Value]; !dup {
			names = append(names, key.Value)
		}
		values[key.Value] = v
	}

	for _, name := range names {
		vars.Set(name, values[name])
	}
	return len(names), nil
}

func yamlValue(node *yaml.Node) (types.Value, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return yamlValue(node.Alias)
	case yaml.MappingNode:
		return types.Empty(), errors.New("nested mappings are not supported")
	case yaml.SequenceNode:
		elems := make([]types.Value, len(node.Content))
		for i, el := range node.Content {
			v, err := yamlValue(el)
			if err != nil {
				return types.Empty(), fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = v
		}
		return types.Array(elems), nil
	}

	if node.ShortTag() == "!!timestamp" {
		var t time.Time
		if err := node.Decode(&t); err != nil {
			return types.Empty(), err
		}
		return types.Date(t), nil
	}
	var x any
	if err := node.Decode(&x); err != nil {
		return types.Empty(), err
	}
	return types.FromGo(x)
}
