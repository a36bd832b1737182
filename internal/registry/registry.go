package registry

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/vk/dosgrid/internal/actor"
	"github.com/zclconf/go-cty/cty"
)

// Module is the interface that all client modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Env is what a constructor knows about the actor it builds a client for.
type Env struct {
	// Name is the actor name.
	Name string
	// Out receives human-facing output, such as printed values.
	Out io.Writer
	// TelemetryPath is the default database path of telemetry sinks.
	TelemetryPath string
}

// Factory builds a client from raw arguments. args is an object value or
// cty.NilVal.
type Factory func(env Env, args cty.Value) (actor.Client, error)

// Registration describes one client type.
type Registration struct {
	Name        string
	Description string
	// Defaults lists the accepted arguments with their default values.
	Defaults cty.Value
	factory  Factory
}

// Registry holds the registered client types of a single application
// instance.
type Registry struct {
	types map[string]*Registration
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{types: make(map[string]*Registration)}
}

// RegisterFactory registers an untyped factory. It panics if the name is
// already taken, since that is a programming error.
func (r *Registry) RegisterFactory(name, description string, defaults cty.Value, f Factory) {
	if _, exists := r.types[name]; exists {
		panic(fmt.Sprintf("client type '%s' already registered", name))
	}
	slog.Debug("Registering client type.", "name", name)
	r.types[name] = &Registration{Name: name, Description: description, Defaults: defaults, factory: f}
}

// Register registers a client type whose arguments decode into A. defaults
// provides the value of every argument the description leaves out.
func Register[A any](r *Registry, name, description string, defaults A, ctor func(env Env, args A) (actor.Client, error)) {
	defVal, err := defaultsValue(defaults)
	if err != nil {
		panic(fmt.Sprintf("client type '%s': %v", name, err))
	}
	r.RegisterFactory(name, description, defVal, func(env Env, args cty.Value) (actor.Client, error) {
		a, err := Decode(defaults, args)
		if err != nil {
			return nil, err
		}
		return ctor(env, a)
	})
}

// New builds a client of the given type.
func (r *Registry) New(env Env, typ string, args cty.Value) (actor.Client, error) {
	reg, ok := r.types[typ]
	if !ok {
		return nil, fmt.Errorf("unknown client type '%s'", typ)
	}
	c, err := reg.factory(env, args)
	if err != nil {
		return nil, fmt.Errorf("client '%s' of type '%s': %w", env.Name, typ, err)
	}
	return c, nil
}

// Lookup returns the registration of a client type.
func (r *Registry) Lookup(typ string) (*Registration, bool) {
	reg, ok := r.types[typ]
	return reg, ok
}

// Types returns every registration sorted by name.
func (r *Registry) Types() []*Registration {
	out := make([]*Registration, 0, len(r.types))
	for _, name := range slices.Sorted(maps.Keys(r.types)) {
		out = append(out, r.types[name])
	}
	return out
}
