package registry

import (
	"fmt"
	"maps"
	"slices"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

func defaultsValue[A any](defaults A) (cty.Value, error) {
	ty, err := gocty.ImpliedType(defaults)
	if err != nil {
		return cty.NilVal, fmt.Errorf("could not imply argument type: %w", err)
	}
	if !ty.IsObjectType() {
		return cty.NilVal, fmt.Errorf("arguments must be a struct with cty tags, got %s", ty.FriendlyName())
	}
	return gocty.ToCtyValue(defaults, ty)
}

// Decode merges args over defaults and converts the result into A. Unknown
// argument names and values that cannot be converted to the field type are
// errors.
func Decode[A any](defaults A, args cty.Value) (A, error) {
	out := defaults
	if args == cty.NilVal || args.IsNull() {
		return out, nil
	}
	if !args.Type().IsObjectType() && !args.Type().IsMapType() {
		return out, fmt.Errorf("arguments must be an object, got %s", args.Type().FriendlyName())
	}
	if !args.IsWhollyKnown() {
		return out, fmt.Errorf("arguments must be known values")
	}

	defVal, err := defaultsValue(defaults)
	if err != nil {
		return out, err
	}
	ty := defVal.Type()
	attrs := defVal.AsValueMap()
	if attrs == nil {
		attrs = make(map[string]cty.Value)
	}

	given := args.AsValueMap()
	for _, name := range slices.Sorted(maps.Keys(given)) {
		if !ty.HasAttribute(name) {
			return out, fmt.Errorf("unknown argument '%s'", name)
		}
		v, err := convert.Convert(given[name], ty.AttributeType(name))
		if err != nil {
			return out, fmt.Errorf("argument '%s': %w", name, err)
		}
		if v.IsNull() {
			return out, fmt.Errorf("argument '%s' must not be null", name)
		}
		attrs[name] = v
	}

	if err := gocty.FromCtyValue(cty.ObjectVal(attrs), &out); err != nil {
		return out, fmt.Errorf("decoding arguments: %w", err)
	}
	return out, nil
}
