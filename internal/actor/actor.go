// Package actor couples a Client with its ports and rate and runs the
// read, compute, write loop that drives it.
package actor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/vk/dosgrid/internal/ctxlog"
	"github.com/vk/dosgrid/internal/port"
)

// Config describes an actor before it is wired.
type Config struct {
	Name   string
	Client Client
	// Rate is the number of base ticks between two publications.
	Rate int
	// InRate is the rate at which inputs are consumed. Zero means Rate; it
	// only differs for rate-transition adapters.
	InRate int
	// Horizon bounds the number of activations. Zero means unbounded.
	Horizon int
	Window  Window
}

// Actor is a Client with ports and a scheduling loop.
type Actor struct {
	name    string
	client  Client
	rate    int
	inRate  int
	horizon int
	window  Window

	inputs  []port.Reader
	outputs []port.Writer

	state       atomic.Int32
	activations atomic.Int64
	bound       bool
}

// New validates cfg and returns an unwired actor.
func New(cfg Config) (*Actor, error) {
	if cfg.Name == "" {
		return nil, errors.New("actor name cannot be empty")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("actor '%s': client is required", cfg.Name)
	}
	if cfg.Rate < 1 {
		return nil, fmt.Errorf("actor '%s': rate must be a positive integer, got %d", cfg.Name, cfg.Rate)
	}
	if cfg.InRate < 0 {
		return nil, fmt.Errorf("actor '%s': input rate must be a positive integer, got %d", cfg.Name, cfg.InRate)
	}
	if cfg.Horizon < 0 {
		return nil, fmt.Errorf("actor '%s': horizon cannot be negative, got %d", cfg.Name, cfg.Horizon)
	}
	inRate := cfg.InRate
	if inRate == 0 {
		inRate = cfg.Rate
	}
	return &Actor{
		name:    cfg.Name,
		client:  cfg.Client,
		rate:    cfg.Rate,
		inRate:  inRate,
		horizon: cfg.Horizon,
		window:  cfg.Window,
	}, nil
}

func (a *Actor) Name() string               { return a.name }
func (a *Actor) Client() Client             { return a.client }
func (a *Actor) Rate() int                  { return a.rate }
func (a *Actor) InRate() int                { return a.inRate }
func (a *Actor) Horizon() int               { return a.horizon }
func (a *Actor) Window() Window             { return a.window }
func (a *Actor) Inputs() []port.Spec        { return a.client.Inputs() }
func (a *Actor) Outputs() []port.Spec       { return a.client.Outputs() }
func (a *Actor) IsSource() bool             { return len(a.client.Inputs()) == 0 }
func (a *Actor) State() State               { return State(a.state.Load()) }
func (a *Actor) Activations() int64         { return a.activations.Load() }
func (a *Actor) OutputPorts() []port.Writer { return a.outputs }

func (a *Actor) setState(s State) {
	a.state.Store(int32(s))
}

// Bind attaches the channel ends allocated by the network builder. inputs and
// outputs follow the order of the client's port declarations.
func (a *Actor) Bind(inputs []port.Reader, outputs []port.Writer) error {
	if a.bound {
		return fmt.Errorf("actor '%s' is already bound", a.name)
	}
	if len(inputs) != len(a.client.Inputs()) {
		return fmt.Errorf("actor '%s': %d inputs bound, client declares %d", a.name, len(inputs), len(a.client.Inputs()))
	}
	if len(outputs) != len(a.client.Outputs()) {
		return fmt.Errorf("actor '%s': %d outputs bound, client declares %d", a.name, len(outputs), len(a.client.Outputs()))
	}
	a.inputs = inputs
	a.outputs = outputs
	a.bound = true
	return nil
}

// Run drives the actor until one of its inputs ends, its horizon is reached,
// its client fails or stops, or every consumer has gone away. Sources also
// stop when ctx is cancelled; other actors only ever stop through their
// inputs. On return the actor is Terminated and all of its outputs are closed.
//
// The returned error is nil for every clean termination and a
// *ClientComputeError otherwise.
func (a *Actor) Run(ctx context.Context) (err error) {
	if !a.bound {
		return fmt.Errorf("actor '%s' is not bound", a.name)
	}
	logger := ctxlog.FromContext(ctx).With("actor", a.name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Actor started.", "inputs", len(a.inputs), "outputs", len(a.outputs), "rate", a.rate, "horizon", a.horizon)

	defer func() {
		if cerr := a.terminate(); cerr != nil && err == nil {
			err = &ClientComputeError{Actor: a.name, Activation: a.activations.Load(), Err: cerr}
		}
		if err != nil {
			logger.Error("Actor terminated with error.", "error", err, "activations", a.activations.Load())
			return
		}
		logger.Info("Actor terminated.", "activations", a.activations.Load())
	}()

	a.setState(Idle)
	for {
		frame, more, err := a.cycle(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		live, err := a.publish(frame)
		if err != nil {
			return err
		}
		if !live {
			logger.Debug("All consumers detached, stopping.")
			return nil
		}
		a.setState(Idle)
	}
}

// cycle runs one window of activations and returns the frame to publish.
// more is false when the actor must stop without publishing.
func (a *Actor) cycle(ctx context.Context) (Frame, bool, error) {
	logger := ctxlog.FromContext(ctx)
	var kept Frame
	for i := 0; i < a.window.collect(); i++ {
		if a.horizon > 0 && a.activations.Load() >= int64(a.horizon) {
			logger.Debug("Horizon reached.", "horizon", a.horizon)
			return nil, false, nil
		}
		if len(a.inputs) == 0 && ctx.Err() != nil {
			logger.Debug("Source cancelled.", "reason", ctx.Err())
			return nil, false, nil
		}

		a.setState(Activating)
		in, ok := a.read()
		if !ok {
			logger.Debug("Input closed, shutting down.")
			return nil, false, nil
		}

		out, err := a.compute(ctx, in)
		if errors.Is(err, ErrEndOfStream) {
			logger.Debug("Client reported end of stream.")
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		if i == 0 || !a.window.KeepFirst {
			kept = out
		}
	}
	return kept, true, nil
}

// read collects one value from every input in declaration order.
func (a *Actor) read() (Frame, bool) {
	a.setState(Reading)
	if len(a.inputs) == 0 {
		return nil, true
	}
	in := make(Frame, len(a.inputs))
	for i, r := range a.inputs {
		v, ok := r.Receive()
		if !ok {
			return nil, false
		}
		in[i] = v
	}
	return in, true
}

func (a *Actor) compute(ctx context.Context, in Frame) (out Frame, err error) {
	a.setState(Computing)
	activation := a.activations.Add(1)
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &ClientComputeError{Actor: a.name, Activation: activation, Err: fmt.Errorf("client panicked: %v", r)}
		}
	}()

	out, err = a.client.Compute(ctx, in)
	if errors.Is(err, ErrEndOfStream) {
		return nil, err
	}
	if err != nil {
		return nil, &ClientComputeError{Actor: a.name, Activation: activation, Err: err}
	}
	if len(out) != len(a.outputs) {
		return nil, &ClientComputeError{
			Actor:      a.name,
			Activation: activation,
			Err:        fmt.Errorf("client returned %d values for %d outputs", len(out), len(a.outputs)),
		}
	}
	return out, nil
}

// publish writes the frame Repeat times. live is false once every output
// that has links lost all of its consumers.
func (a *Actor) publish(frame Frame) (bool, error) {
	if len(a.outputs) == 0 {
		return true, nil
	}
	a.setState(Writing)
	for r := 0; r < a.window.repeat(); r++ {
		connected, orphaned := 0, 0
		for i, w := range a.outputs {
			if w.Links() == 0 {
				continue
			}
			connected++
			err := w.Send(frame[i])
			if errors.Is(err, port.ErrNoConsumers) {
				orphaned++
				continue
			}
			if err != nil {
				return false, &ClientComputeError{Actor: a.name, Activation: a.activations.Load(), Err: err}
			}
		}
		if connected > 0 && orphaned == connected {
			return false, nil
		}
	}
	return true, nil
}

// terminate performs the cascading shutdown: upstream links are released,
// downstream links are closed and the client is closed if it holds resources.
func (a *Actor) terminate() error {
	for _, r := range a.inputs {
		r.Detach()
	}
	for _, w := range a.outputs {
		w.Close()
	}
	var err error
	if c, ok := a.client.(io.Closer); ok {
		err = c.Close()
	}
	a.setState(Terminated)
	return err
}

// Terminate closes the actor without running it. The network uses it for
// actors that never started.
func (a *Actor) Terminate() error {
	return a.terminate()
}
