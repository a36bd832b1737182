// Package signal provides source clients generating float and integer
// sequences: constant, ramp, sine, noise and counter.
package signal

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"

	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/port"
	"github.com/vk/dosgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

var floatOut = []port.Spec{port.Of[float64]("out")}

// ConstantArgs defines the arguments of the constant source.
type ConstantArgs struct {
	Value float64 `cty:"value"`
}

// Constant emits the same value on every activation.
type Constant struct {
	value float64
}

func (c *Constant) Inputs() []port.Spec  { return nil }
func (c *Constant) Outputs() []port.Spec { return floatOut }

func (c *Constant) Compute(context.Context, actor.Frame) (actor.Frame, error) {
	return actor.Frame{c.value}, nil
}

// RampArgs defines the arguments of the ramp source.
type RampArgs struct {
	Start float64 `cty:"start"`
	Step  float64 `cty:"step"`
}

// Ramp emits start, start+step, start+2*step, ...
type Ramp struct {
	args RampArgs
	n    int
}

func (r *Ramp) Inputs() []port.Spec  { return nil }
func (r *Ramp) Outputs() []port.Spec { return floatOut }

func (r *Ramp) Compute(context.Context, actor.Frame) (actor.Frame, error) {
	v := r.args.Start + float64(r.n)*r.args.Step
	r.n++
	return actor.Frame{v}, nil
}

// SineArgs defines the arguments of the sine source. Frequency is in Hz and
// SamplePeriod in seconds per activation.
type SineArgs struct {
	Amplitude    float64 `cty:"amplitude"`
	Frequency    float64 `cty:"frequency"`
	Phase        float64 `cty:"phase"`
	SamplePeriod float64 `cty:"sample_period"`
}

// Sine emits amplitude * sin(2*pi*frequency*n*sample_period + phase).
type Sine struct {
	args SineArgs
	n    int
}

func (s *Sine) Inputs() []port.Spec  { return nil }
func (s *Sine) Outputs() []port.Spec { return floatOut }

func (s *Sine) Compute(context.Context, actor.Frame) (actor.Frame, error) {
	t := float64(s.n) * s.args.SamplePeriod
	s.n++
	return actor.Frame{s.args.Amplitude * math.Sin(2*math.Pi*s.args.Frequency*t+s.args.Phase)}, nil
}

// NoiseArgs defines the arguments of the gaussian noise source. A fixed seed
// makes runs reproducible.
type NoiseArgs struct {
	Seed   int64   `cty:"seed"`
	Mean   float64 `cty:"mean"`
	StdDev float64 `cty:"stddev"`
}

// Noise emits normally distributed values.
type Noise struct {
	args NoiseArgs
	rng  *rand.Rand
}

func (n *Noise) Inputs() []port.Spec  { return nil }
func (n *Noise) Outputs() []port.Spec { return floatOut }

func (n *Noise) Compute(context.Context, actor.Frame) (actor.Frame, error) {
	return actor.Frame{n.args.Mean + n.args.StdDev*n.rng.NormFloat64()}, nil
}

// CounterArgs defines the arguments of the integer counter.
type CounterArgs struct {
	Start int64 `cty:"start"`
	Step  int64 `cty:"step"`
	// Stop ends the stream once the counter would pass it; 0 never stops.
	Stop int64 `cty:"stop"`
}

// Counter emits int64 values start, start+step, ...
type Counter struct {
	args CounterArgs
	next int64
}

func (c *Counter) Inputs() []port.Spec  { return nil }
func (c *Counter) Outputs() []port.Spec { return []port.Spec{port.Of[int64]("out")} }

func (c *Counter) Compute(context.Context, actor.Frame) (actor.Frame, error) {
	v := c.next
	if c.args.Stop != 0 && ((c.args.Step > 0 && v > c.args.Stop) || (c.args.Step < 0 && v < c.args.Stop)) {
		return nil, actor.ErrEndOfStream
	}
	c.next += c.args.Step
	return actor.Frame{v}, nil
}

// Register registers the signal sources with the registry.
func (m *Module) Register(r *registry.Registry) {
	registry.Register(r, "constant", "emits a constant float", ConstantArgs{},
		func(_ registry.Env, a ConstantArgs) (actor.Client, error) {
			return &Constant{value: a.Value}, nil
		})

	registry.Register(r, "ramp", "emits a linear float ramp", RampArgs{Step: 1},
		func(_ registry.Env, a RampArgs) (actor.Client, error) {
			return &Ramp{args: a}, nil
		})

	registry.Register(r, "sine", "emits a sampled sine wave", SineArgs{Amplitude: 1, Frequency: 1, SamplePeriod: 0.01},
		func(_ registry.Env, a SineArgs) (actor.Client, error) {
			if a.SamplePeriod <= 0 {
				return nil, errors.New("sample_period must be positive")
			}
			return &Sine{args: a}, nil
		})

	registry.Register(r, "noise", "emits gaussian noise", NoiseArgs{Seed: 1, StdDev: 1},
		func(_ registry.Env, a NoiseArgs) (actor.Client, error) {
			if a.StdDev < 0 {
				return nil, errors.New("stddev must not be negative")
			}
			return &Noise{args: a, rng: rand.New(rand.NewPCG(uint64(a.Seed), 0))}, nil
		})

	registry.Register(r, "counter", "emits an int64 sequence", CounterArgs{Step: 1},
		func(_ registry.Env, a CounterArgs) (actor.Client, error) {
			if a.Step == 0 {
				return nil, errors.New("step must not be zero")
			}
			return &Counter{args: a, next: a.Start}, nil
		})
}
