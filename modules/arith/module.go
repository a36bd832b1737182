// Package arith provides float processing clients: gain, sum and integrator.
package arith

import (
	"context"

	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/port"
	"github.com/vk/dosgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

var (
	floatIn  = []port.Spec{port.Of[float64]("in")}
	floatOut = []port.Spec{port.Of[float64]("out")}
)

// GainArgs defines the arguments of the gain client.
type GainArgs struct {
	Factor float64 `cty:"factor"`
	Offset float64 `cty:"offset"`
}

// Gain emits factor*in + offset.
type Gain struct {
	args GainArgs
}

func (g *Gain) Inputs() []port.Spec  { return floatIn }
func (g *Gain) Outputs() []port.Spec { return floatOut }

func (g *Gain) Compute(_ context.Context, in actor.Frame) (actor.Frame, error) {
	return actor.Frame{g.args.Factor*actor.Get[float64](in, 0) + g.args.Offset}, nil
}

// SumArgs defines the weights of the sum client. The defaults compute a - b,
// the error term of a feedback loop.
type SumArgs struct {
	GainA float64 `cty:"gain_a"`
	GainB float64 `cty:"gain_b"`
}

// Sum emits gain_a*a + gain_b*b.
type Sum struct {
	args SumArgs
}

func (s *Sum) Inputs() []port.Spec {
	return []port.Spec{port.Of[float64]("a"), port.Of[float64]("b")}
}
func (s *Sum) Outputs() []port.Spec { return floatOut }

func (s *Sum) Compute(_ context.Context, in actor.Frame) (actor.Frame, error) {
	a, b := actor.Get[float64](in, 0), actor.Get[float64](in, 1)
	return actor.Frame{s.args.GainA*a + s.args.GainB*b}, nil
}

// IntegratorArgs defines the arguments of the integrator.
type IntegratorArgs struct {
	Gain    float64 `cty:"gain"`
	Initial float64 `cty:"initial"`
}

// Integrator accumulates gain*in and emits the running total.
type Integrator struct {
	gain float64
	mem  float64
}

func (i *Integrator) Inputs() []port.Spec  { return floatIn }
func (i *Integrator) Outputs() []port.Spec { return floatOut }

func (i *Integrator) Compute(_ context.Context, in actor.Frame) (actor.Frame, error) {
	i.mem += i.gain * actor.Get[float64](in, 0)
	return actor.Frame{i.mem}, nil
}

// Register registers the arithmetic clients with the registry.
func (m *Module) Register(r *registry.Registry) {
	registry.Register(r, "gain", "scales and offsets a float signal", GainArgs{Factor: 1},
		func(_ registry.Env, a GainArgs) (actor.Client, error) {
			return &Gain{args: a}, nil
		})

	registry.Register(r, "sum", "weighted sum of inputs a and b, a - b by default", SumArgs{GainA: 1, GainB: -1},
		func(_ registry.Env, a SumArgs) (actor.Client, error) {
			return &Sum{args: a}, nil
		})

	registry.Register(r, "integrator", "running sum of gain * input", IntegratorArgs{Gain: 1},
		func(_ registry.Env, a IntegratorArgs) (actor.Client, error) {
			return &Integrator{gain: a.Gain, mem: a.Initial}, nil
		})
}
