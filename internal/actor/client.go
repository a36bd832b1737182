package actor

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/vk/dosgrid/internal/port"
)

// ErrEndOfStream may be returned by a client to stop its actor cleanly, for
// instance when a source runs out of data before reaching its horizon.
var ErrEndOfStream = errors.New("end of stream")

// Frame holds one value per port, in the order the client declares its ports.
type Frame []any

// Get returns the i-th value of the frame as a T. Wiring guarantees the type,
// so a mismatch is a programming error and panics; the actor converts that
// panic into a compute error.
func Get[T any](f Frame, i int) T {
	v, err := Lookup[T](f, i)
	if err != nil {
		panic(err)
	}
	return v
}

// Lookup is the non-panicking form of Get.
func Lookup[T any](f Frame, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(f) {
		return zero, fmt.Errorf("frame index %d out of range [0,%d)", i, len(f))
	}
	v, ok := f[i].(T)
	if !ok {
		return zero, fmt.Errorf("frame index %d holds %v, want %v", i, reflect.TypeOf(f[i]), reflect.TypeFor[T]())
	}
	return v, nil
}

// Client is the computational unit driven by an actor. The engine knows
// nothing else about it.
//
// Compute is called exactly once per activation with one value per declared
// input and must return one value per declared output (nil for sinks).
// Clients that hold resources may also implement io.Closer; Close is called
// once when the actor terminates.
type Client interface {
	Inputs() []port.Spec
	Outputs() []port.Spec
	Compute(ctx context.Context, in Frame) (Frame, error)
}

// ClientComputeError reports a failed activation.
type ClientComputeError struct {
	Actor      string
	Activation int64
	Err        error
}

func (e *ClientComputeError) Error() string {
	return fmt.Sprintf("actor '%s' activation %d: compute failed: %v", e.Actor, e.Activation, e.Err)
}

func (e *ClientComputeError) Unwrap() error {
	return e.Err
}
