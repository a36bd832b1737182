package actor

// State is the position of an actor in its lifecycle.
type State int32

const (
	// Idle is the state between activations.
	Idle State = iota
	// Activating marks the start of an activation.
	Activating
	// Reading indicates the actor is waiting on its inputs.
	Reading
	// Computing indicates the client is running.
	Computing
	// Writing indicates the actor is publishing outputs, possibly under backpressure.
	Writing
	// Terminated is final: outputs are closed and the client is released.
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Activating:
		return "activating"
	case Reading:
		return "reading"
	case Computing:
		return "computing"
	case Writing:
		return "writing"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Window shapes the activation loop of an actor. Collect activations are run
// before one output frame is published Repeat times. Regular actors use the
// zero value, which means one activation per publication. Rate-transition
// adapters use Collect > 1 to decimate and Repeat > 1 to upsample.
type Window struct {
	Collect int
	Repeat  int
	// KeepFirst publishes the outputs of the first activation of a window
	// instead of the last one.
	KeepFirst bool
}

func (w Window) collect() int {
	if w.Collect < 1 {
		return 1
	}
	return w.Collect
}

func (w Window) repeat() int {
	if w.Repeat < 1 {
		return 1
	}
	return w.Repeat
}
