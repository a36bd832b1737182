package yaml_adapter

import (
	"fmt"
	"math"
	"strconv"

	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// nodeToCty converts a YAML node into the cty value HCL would produce for
// the equivalent literal: mappings become objects, sequences tuples.
func nodeToCty(n *yaml.Node) (cty.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return cty.NullVal(cty.DynamicPseudoType), nil
		}
		return nodeToCty(n.Content[0])
	case yaml.AliasNode:
		return nodeToCty(n.Alias)
	case yaml.ScalarNode:
		return scalarToCty(n)
	case yaml.SequenceNode:
		vals := make([]cty.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeToCty(c)
			if err != nil {
				return cty.NilVal, err
			}
			vals = append(vals, v)
		}
		return cty.TupleVal(vals), nil
	case yaml.MappingNode:
		attrs := make(map[string]cty.Value, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return cty.NilVal, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			cv, err := nodeToCty(v)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k.Value] = cv
		}
		return cty.ObjectVal(attrs), nil
	default:
		return cty.NilVal, fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}
}

func scalarToCty(n *yaml.Node) (cty.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return cty.NullVal(cty.DynamicPseudoType), nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			var yb bool
			if derr := n.Decode(&yb); derr != nil {
				return cty.NilVal, fmt.Errorf("line %d: invalid boolean %q", n.Line, n.Value)
			}
			b = yb
		}
		return cty.BoolVal(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return cty.NilVal, fmt.Errorf("line %d: invalid integer %q: %w", n.Line, n.Value, err)
		}
		return cty.NumberIntVal(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return cty.NilVal, fmt.Errorf("line %d: invalid number %q: %w", n.Line, n.Value, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return cty.NilVal, fmt.Errorf("line %d: %q is not a finite number", n.Line, n.Value)
		}
		return cty.NumberFloatVal(f), nil
	default:
		return cty.StringVal(n.Value), nil
	}
}
