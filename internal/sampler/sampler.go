// Package sampler provides the rate-transition adapters that bridge actors
// running at different rates.
//
// Rates are integer numbers of base ticks per activation. A producer that is
// faster than its consumer (smaller rate) is decimated: the adapter consumes
// k values and forwards one of them, the last one by default (sample and
// hold). A slower producer is upsampled: every value is repeated k times.
// Non-integer ratios cannot be bridged.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/port"
)

// ErrRatio is returned when two rates are not integer multiples of each other.
var ErrRatio = errors.New("rates are not integer multiples")

// Mode selects the direction of a transition.
type Mode int

const (
	// None passes values through unchanged.
	None Mode = iota
	// Downsample consumes Factor values per emitted value.
	Downsample
	// Upsample emits each consumed value Factor times.
	Upsample
)

func (m Mode) String() string {
	switch m {
	case None:
		return "none"
	case Downsample:
		return "downsample"
	case Upsample:
		return "upsample"
	default:
		return "unknown"
	}
}

// Policy selects which value of a decimation window is forwarded.
type Policy int

const (
	// KeepLast forwards the most recent value of each window.
	KeepLast Policy = iota
	// KeepFirst forwards the oldest value of each window.
	KeepFirst
)

func (p Policy) String() string {
	if p == KeepFirst {
		return "first"
	}
	return "last"
}

// ParsePolicy reads "last" (or "") and "first".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "last":
		return KeepLast, nil
	case "first":
		return KeepFirst, nil
	default:
		return KeepLast, fmt.Errorf("unknown decimation policy '%s': must be 'last' or 'first'", s)
	}
}

// Transition describes one rate change.
type Transition struct {
	Mode   Mode
	Factor int
	Policy Policy
}

// Validate checks the factor against the mode.
func (t Transition) Validate() error {
	switch t.Mode {
	case None:
		return nil
	case Downsample, Upsample:
		if t.Factor < 1 {
			return fmt.Errorf("%s factor must be a positive integer, got %d", t.Mode, t.Factor)
		}
		return nil
	default:
		return fmt.Errorf("unknown transition mode %d", t.Mode)
	}
}

// Resolve returns the transition that turns values produced every rp ticks
// into values consumed every rc ticks.
func Resolve(rp, rc int, policy Policy) (Transition, error) {
	if rp < 1 || rc < 1 {
		return Transition{}, fmt.Errorf("rates must be positive, got %d and %d", rp, rc)
	}
	switch {
	case rp == rc:
		return Transition{Mode: None, Factor: 1, Policy: policy}, nil
	case rc%rp == 0:
		return Transition{Mode: Downsample, Factor: rc / rp, Policy: policy}, nil
	case rp%rc == 0:
		return Transition{Mode: Upsample, Factor: rp / rc, Policy: policy}, nil
	default:
		return Transition{}, fmt.Errorf("producer rate %d and consumer rate %d: %w", rp, rc, ErrRatio)
	}
}

// OutRate returns the rate of the adapter output given its input rate.
func (t Transition) OutRate(inRate int) (int, error) {
	switch t.Mode {
	case Downsample:
		return inRate * t.Factor, nil
	case Upsample:
		if inRate%t.Factor != 0 {
			return 0, fmt.Errorf("cannot upsample rate %d by %d: %w", inRate, t.Factor, ErrRatio)
		}
		return inRate / t.Factor, nil
	default:
		return inRate, nil
	}
}

// Window returns the actor loop shape implementing the transition.
func (t Transition) Window() actor.Window {
	switch t.Mode {
	case Downsample:
		return actor.Window{Collect: t.Factor, KeepFirst: t.Policy == KeepFirst}
	case Upsample:
		return actor.Window{Repeat: t.Factor}
	default:
		return actor.Window{}
	}
}

func (t Transition) String() string {
	switch t.Mode {
	case Downsample:
		return fmt.Sprintf("downsample x%d keep %s", t.Factor, t.Policy)
	case Upsample:
		return fmt.Sprintf("upsample x%d", t.Factor)
	default:
		return "pass-through"
	}
}

// Hold is the pass-through client run by adapters. Its single input and
// single output carry the type of the port it was built from.
type Hold struct {
	in  port.Spec
	out port.Spec
}

// NewHold returns a pass-through client for values of the given port type.
func NewHold(spec port.Spec) *Hold {
	return &Hold{in: spec.Rename("in"), out: spec.Rename("out")}
}

func (h *Hold) Inputs() []port.Spec  { return []port.Spec{h.in} }
func (h *Hold) Outputs() []port.Spec { return []port.Spec{h.out} }

// Compute forwards the input unchanged.
func (h *Hold) Compute(_ context.Context, in actor.Frame) (actor.Frame, error) {
	return actor.Frame{in[0]}, nil
}

// NewAdapter builds an actor running a Hold client with the given transition.
// inRate is the producer's rate; the adapter publishes at the consumer's rate.
func NewAdapter(name string, spec port.Spec, inRate int, t Transition) (*actor.Actor, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("sampler '%s': %w", name, err)
	}
	outRate, err := t.OutRate(inRate)
	if err != nil {
		return nil, fmt.Errorf("sampler '%s': %w", name, err)
	}
	return actor.New(actor.Config{
		Name:   name,
		Client: NewHold(spec),
		Rate:   outRate,
		InRate: inRate,
		Window: t.Window(),
	})
}
