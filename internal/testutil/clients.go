package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/port"
)

// Source emits a fixed sequence of values on its "out" port and then reports
// the end of the stream.
type Source[T any] struct {
	Values []T
	next   int
}

// NewSource returns a source emitting values in order.
func NewSource[T any](values ...T) *Source[T] {
	return &Source[T]{Values: values}
}

func (s *Source[T]) Inputs() []port.Spec  { return nil }
func (s *Source[T]) Outputs() []port.Spec { return []port.Spec{port.Of[T]("out")} }

func (s *Source[T]) Compute(context.Context, actor.Frame) (actor.Frame, error) {
	if s.next >= len(s.Values) {
		return nil, actor.ErrEndOfStream
	}
	v := s.Values[s.next]
	s.next++
	return actor.Frame{v}, nil
}

// Ticker is an unbounded source emitting 0, 1, 2, ... on "out".
type Ticker struct {
	n int
}

func (t *Ticker) Inputs() []port.Spec  { return nil }
func (t *Ticker) Outputs() []port.Spec { return []port.Spec{port.Of[int]("out")} }

func (t *Ticker) Compute(context.Context, actor.Frame) (actor.Frame, error) {
	v := t.n
	t.n++
	return actor.Frame{v}, nil
}

// Recorder is a sink that keeps every value received on its "in" port. It is
// safe to read while the network runs.
type Recorder[T any] struct {
	mu     sync.Mutex
	values []T
	closed bool
	// Delay slows every activation down, to exercise backpressure.
	Delay time.Duration
}

func (r *Recorder[T]) Inputs() []port.Spec  { return []port.Spec{port.Of[T]("in")} }
func (r *Recorder[T]) Outputs() []port.Spec { return nil }

func (r *Recorder[T]) Compute(_ context.Context, in actor.Frame) (actor.Frame, error) {
	if r.Delay > 0 {
		time.Sleep(r.Delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, actor.Get[T](in, 0))
	return nil, nil
}

// Close marks the recorder as released.
func (r *Recorder[T]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Values returns a copy of what has been recorded so far.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

// Closed reports whether the actor released the recorder.
func (r *Recorder[T]) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Func is a client built from port specs and a compute function.
type Func struct {
	In  []port.Spec
	Out []port.Spec
	Fn  func(ctx context.Context, in actor.Frame) (actor.Frame, error)
}

func (f *Func) Inputs() []port.Spec  { return f.In }
func (f *Func) Outputs() []port.Spec { return f.Out }

func (f *Func) Compute(ctx context.Context, in actor.Frame) (actor.Frame, error) {
	return f.Fn(ctx, in)
}

// Map returns a single-input, single-output client applying fn.
func Map[I, O any](fn func(I) O) *Func {
	return &Func{
		In:  []port.Spec{port.Of[I]("in")},
		Out: []port.Spec{port.Of[O]("out")},
		Fn: func(_ context.Context, in actor.Frame) (actor.Frame, error) {
			return actor.Frame{fn(actor.Get[I](in, 0))}, nil
		},
	}
}
