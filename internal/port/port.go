// Package port implements the typed attachment points of an actor and the
// bounded channels that connect them.
//
// An Output owns one bounded link per consuming Input, so a value published
// once is duplicated to every consumer (fan-out) while each Input still has
// exactly one upstream. Links are FIFO. Closing an Output closes all of its
// links; a consumer drains whatever is buffered and then observes the end of
// the stream. Only the network builder creates links.
package port

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrNoConsumers is returned by Send when every link of an output has been
// detached by its consumer. The producer may treat it as a clean stop.
var ErrNoConsumers = errors.New("all consumers detached")

// ErrBufferFull is returned when a seed value cannot be preloaded because the
// link has no free slot.
var ErrBufferFull = errors.New("link buffer is full")

// TypeError reports a value whose dynamic type does not match the port type.
type TypeError struct {
	Port string
	Want reflect.Type
	Got  reflect.Type
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("port '%s': value of type %v, want %v", e.Port, e.Got, e.Want)
}

// Spec declares a named, typed port. Its direction is given by whether the
// client lists it as an input or an output.
type Spec struct {
	Name string
	Type reflect.Type

	newOutput func(name string) Writer
}

// Of returns the spec of a port named name carrying values of type T.
func Of[T any](name string) Spec {
	return Spec{
		Name:      name,
		Type:      reflect.TypeFor[T](),
		newOutput: func(n string) Writer { return NewOutput[T](n) },
	}
}

// Rename returns a copy of the spec with another name and the same type.
func (s Spec) Rename(name string) Spec {
	s.Name = name
	return s
}

// NewOutput instantiates the producer end described by the spec.
func (s Spec) NewOutput() (Writer, error) {
	if s.newOutput == nil {
		return nil, fmt.Errorf("port '%s': spec was not created with port.Of", s.Name)
	}
	return s.newOutput(s.Name), nil
}

// String renders the spec as "name:type".
func (s Spec) String() string {
	return fmt.Sprintf("%s:%v", s.Name, s.Type)
}

// Writer is the type-erased producer end held by an actor.
type Writer interface {
	Name() string
	Type() reflect.Type
	// Connect allocates a new bounded link and returns its consumer end.
	Connect(capacity int) (Reader, error)
	// Send publishes v to every live link, blocking under backpressure.
	Send(v any) error
	// Close closes every link. It is safe to call more than once.
	Close()
	// Links returns the number of links attached to the output.
	Links() int
}

// Reader is the type-erased consumer end held by an actor.
type Reader interface {
	Name() string
	Type() reflect.Type
	// Receive suspends until a value is available. ok is false once the
	// link is closed and drained.
	Receive() (v any, ok bool)
	// Preload places a value in the link buffer before the network starts.
	Preload(v any) error
	// Detach tells the producer that nobody reads this link any more.
	Detach()
}

type link[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
}

func (l *link[T]) detached() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Output is the producer end of a port carrying values of type T.
type Output[T any] struct {
	name  string
	links []*link[T]
	once  sync.Once
}

// NewOutput returns an output with no links.
func NewOutput[T any](name string) *Output[T] {
	return &Output[T]{name: name}
}

func (o *Output[T]) Name() string       { return o.name }
func (o *Output[T]) Type() reflect.Type { return reflect.TypeFor[T]() }
func (o *Output[T]) Links() int         { return len(o.links) }

// Connect implements Writer.
func (o *Output[T]) Connect(capacity int) (Reader, error) {
	return o.Attach(capacity)
}

// Attach allocates a typed link with the given buffer depth.
func (o *Output[T]) Attach(capacity int) (*Input[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("port '%s': capacity must be at least 1, got %d", o.name, capacity)
	}
	l := &link[T]{
		ch:   make(chan T, capacity),
		done: make(chan struct{}),
	}
	o.links = append(o.links, l)
	return &Input[T]{name: o.name, link: l}, nil
}

// Publish sends v to every live link in the order the links were attached.
// It returns ErrNoConsumers when the output has links and all of them are
// detached.
func (o *Output[T]) Publish(v T) error {
	live := 0
	for _, l := range o.links {
		if l.detached() {
			continue
		}
		select {
		case l.ch <- v:
			live++
		case <-l.done:
		}
	}
	if len(o.links) > 0 && live == 0 {
		return ErrNoConsumers
	}
	return nil
}

// Send implements Writer.
func (o *Output[T]) Send(v any) error {
	tv, ok := v.(T)
	if !ok {
		return &TypeError{Port: o.name, Want: o.Type(), Got: reflect.TypeOf(v)}
	}
	return o.Publish(tv)
}

// Close implements Writer.
func (o *Output[T]) Close() {
	o.once.Do(func() {
		for _, l := range o.links {
			close(l.ch)
		}
	})
}

// Input is the consumer end of a single link.
type Input[T any] struct {
	name string
	link *link[T]
}

func (i *Input[T]) Name() string       { return i.name }
func (i *Input[T]) Type() reflect.Type { return reflect.TypeFor[T]() }

// Next suspends until a value arrives or the link is closed and drained.
func (i *Input[T]) Next() (T, bool) {
	v, ok := <-i.link.ch
	return v, ok
}

// Receive implements Reader.
func (i *Input[T]) Receive() (any, bool) {
	v, ok := i.Next()
	if !ok {
		return nil, false
	}
	return v, true
}

// Seed places v in the buffer without blocking.
func (i *Input[T]) Seed(v T) error {
	select {
	case i.link.ch <- v:
		return nil
	default:
		return ErrBufferFull
	}
}

// Preload implements Reader.
func (i *Input[T]) Preload(v any) error {
	if v == nil && i.Type().Kind() == reflect.Interface {
		var zero T
		return i.Seed(zero)
	}
	tv, ok := v.(T)
	if !ok {
		return &TypeError{Port: i.name, Want: i.Type(), Got: reflect.TypeOf(v)}
	}
	return i.Seed(tv)
}

// Detach implements Reader.
func (i *Input[T]) Detach() {
	i.link.once.Do(func() { close(i.link.done) })
}
