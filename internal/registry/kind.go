package registry

import (
	"fmt"

	"github.com/vk/dosgrid/internal/port"
)

// Kinds lists the value kinds a generic client can be configured for.
var Kinds = []string{"float", "int", "string", "bool"}

// SpecFor returns a port spec carrying values of the named kind. "int" maps
// to int64 and "float" to float64.
func SpecFor(kind, name string) (port.Spec, error) {
	switch kind {
	case "float", "":
		return port.Of[float64](name), nil
	case "int":
		return port.Of[int64](name), nil
	case "string":
		return port.Of[string](name), nil
	case "bool":
		return port.Of[bool](name), nil
	default:
		return port.Spec{}, fmt.Errorf("unknown value kind '%s', expected one of %v", kind, Kinds)
	}
}
