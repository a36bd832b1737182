package network

import (
	"errors"
	"fmt"
)

// ErrWiring matches every *WiringError with errors.Is.
var ErrWiring = errors.New("wiring error")

// ErrAlreadyRun is returned by Run on a network that has been run before.
var ErrAlreadyRun = errors.New("network has already been run")

// Kind classifies a wiring error. A Kind is itself an error so that
// errors.Is(err, network.KindTypeMismatch) works.
type Kind int

const (
	KindDuplicateActor Kind = iota + 1
	KindInvalidName
	KindUnknownActor
	KindUnknownPort
	KindTypeMismatch
	KindRateMismatch
	KindInvalidRate
	KindInvalidCapacity
	KindMissingProducer
	KindMultipleProducers
	KindUnseededCycle
	KindUnreachable
	KindInvalidSeed
)

var kindNames = map[Kind]string{
	KindDuplicateActor:    "DuplicateActor",
	KindInvalidName:       "InvalidName",
	KindUnknownActor:      "UnknownActor",
	KindUnknownPort:       "UnknownPort",
	KindTypeMismatch:      "TypeMismatch",
	KindRateMismatch:      "RateMismatch",
	KindInvalidRate:       "InvalidRate",
	KindInvalidCapacity:   "InvalidCapacity",
	KindMissingProducer:   "MissingProducer",
	KindMultipleProducers: "MultipleProducers",
	KindUnseededCycle:     "UnseededCycle",
	KindUnreachable:       "Unreachable",
	KindInvalidSeed:       "InvalidSeed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) Error() string { return k.String() }

// WiringError is returned by Build when the described network cannot run.
// No actor is ever started once a WiringError has been reported.
type WiringError struct {
	Kind   Kind
	Actor  string
	Port   string
	Detail string
	Err    error
}

func (e *WiringError) Error() string {
	msg := "wiring error (" + e.Kind.String() + ")"
	switch {
	case e.Actor != "" && e.Port != "":
		msg += fmt.Sprintf(" at '%s.%s'", e.Actor, e.Port)
	case e.Actor != "":
		msg += fmt.Sprintf(" at '%s'", e.Actor)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *WiringError) Unwrap() error { return e.Err }

// Is matches ErrWiring and the error's own Kind.
func (e *WiringError) Is(target error) bool {
	if target == ErrWiring {
		return true
	}
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func wiringErr(kind Kind, actor, port, format string, args ...any) *WiringError {
	return &WiringError{Kind: kind, Actor: actor, Port: port, Detail: fmt.Sprintf(format, args...)}
}

// RunError names the actor whose client failed first during a run.
type RunError struct {
	Actor string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run failed in actor '%s': %v", e.Actor, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
