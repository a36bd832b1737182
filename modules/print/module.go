// Package print provides sink clients that make values visible: print writes
// each value to the application output, logging records them and summarizes
// on close.
package print

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/ctxlog"
	"github.com/vk/dosgrid/internal/port"
	"github.com/vk/dosgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Args defines the arguments shared by the print and logging sinks.
type Args struct {
	// Kind is the value kind of the "in" port: float, int, string or bool.
	Kind string `cty:"kind"`
	// Format is the fmt verb used to render values.
	Format string `cty:"format"`
}

// Print writes every received value to its writer, one per line.
type Print struct {
	name   string
	in     port.Spec
	format string
	out    io.Writer
	seq    int64
}

func (p *Print) Inputs() []port.Spec  { return []port.Spec{p.in} }
func (p *Print) Outputs() []port.Spec { return nil }

func (p *Print) Compute(_ context.Context, in actor.Frame) (actor.Frame, error) {
	_, err := fmt.Fprintf(p.out, "%s[%d] = "+p.format+"\n", p.name, p.seq, in[0])
	p.seq++
	return nil, err
}

// Logging records every received value.
type Logging struct {
	name   string
	in     port.Spec
	format string

	mu     sync.Mutex
	values []any
	ctx    context.Context
}

func (l *Logging) Inputs() []port.Spec  { return []port.Spec{l.in} }
func (l *Logging) Outputs() []port.Spec { return nil }

func (l *Logging) Compute(ctx context.Context, in actor.Frame) (actor.Frame, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ctx = ctx
	l.values = append(l.values, in[0])
	ctxlog.FromContext(ctx).Debug("Value received.", "seq", len(l.values)-1, "value", fmt.Sprintf(l.format, in[0]))
	return nil, nil
}

// Values returns a copy of the recorded values.
func (l *Logging) Values() []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]any(nil), l.values...)
}

// Close logs a summary of the recorded values.
func (l *Logging) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	ctx := l.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	attrs := []any{"count", len(l.values)}
	if n := len(l.values); n > 0 {
		attrs = append(attrs, "first", fmt.Sprintf(l.format, l.values[0]), "last", fmt.Sprintf(l.format, l.values[n-1]))
		if mean, ok := meanOf(l.values); ok {
			attrs = append(attrs, "mean", mean)
		}
	}
	ctxlog.FromContext(ctx).Info("Logging sink closed.", attrs...)
	return nil
}

func meanOf(values []any) (float64, bool) {
	var sum float64
	for _, v := range values {
		switch x := v.(type) {
		case float64:
			sum += x
		case int64:
			sum += float64(x)
		default:
			return 0, false
		}
	}
	return sum / float64(len(values)), true
}

// Register registers the sinks with the registry.
func (m *Module) Register(r *registry.Registry) {
	defaults := Args{Kind: "float", Format: "%v"}

	registry.Register(r, "print", "prints every value to the output", defaults,
		func(env registry.Env, a Args) (actor.Client, error) {
			spec, err := registry.SpecFor(a.Kind, "in")
			if err != nil {
				return nil, err
			}
			out := env.Out
			if out == nil {
				out = io.Discard
			}
			return &Print{name: env.Name, in: spec, format: a.Format, out: out}, nil
		})

	registry.Register(r, "logging", "records every value and logs a summary", defaults,
		func(env registry.Env, a Args) (actor.Client, error) {
			spec, err := registry.SpecFor(a.Kind, "in")
			if err != nil {
				return nil, err
			}
			return &Logging{name: env.Name, in: spec, format: a.Format}, nil
		})
}
