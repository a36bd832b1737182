package actor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dosgrid/internal/port"
)

// counter emits 1, 2, 3, ... on a single int output.
type counter struct {
	n      int
	closed bool
}

func (c *counter) Inputs() []port.Spec  { return nil }
func (c *counter) Outputs() []port.Spec { return []port.Spec{port.Of[int]("out")} }
func (c *counter) Compute(context.Context, Frame) (Frame, error) {
	c.n++
	return Frame{c.n}, nil
}
func (c *counter) Close() error {
	c.closed = true
	return nil
}

// doubler maps one int input to twice its value.
type doubler struct{}

func (doubler) Inputs() []port.Spec  { return []port.Spec{port.Of[int]("in")} }
func (doubler) Outputs() []port.Spec { return []port.Spec{port.Of[int]("out")} }
func (doubler) Compute(_ context.Context, in Frame) (Frame, error) {
	return Frame{Get[int](in, 0) * 2}, nil
}

// funcClient adapts a function into a single-input, single-output client.
type funcClient struct {
	fn func(Frame) (Frame, error)
}

func (funcClient) Inputs() []port.Spec  { return []port.Spec{port.Of[int]("in")} }
func (funcClient) Outputs() []port.Spec { return []port.Spec{port.Of[int]("out")} }
func (f funcClient) Compute(_ context.Context, in Frame) (Frame, error) {
	return f.fn(in)
}

func drain(in *port.Input[int]) []int {
	var got []int
	for {
		v, ok := in.Next()
		if !ok {
			return got
		}
		got = append(got, v)
	}
}

// feed returns an input pre-filled with values whose producer is closed.
func feed(t *testing.T, values ...int) *port.Input[int] {
	t.Helper()
	src := port.NewOutput[int]("src")
	in, err := src.Attach(len(values) + 1)
	require.NoError(t, err)
	for _, v := range values {
		require.NoError(t, in.Seed(v))
	}
	src.Close()
	return in
}

func TestNew_Validation(t *testing.T) {
	testCases := []struct {
		name        string
		cfg         Config
		errContains string
	}{
		{name: "empty name", cfg: Config{Client: &counter{}, Rate: 1}, errContains: "name cannot be empty"},
		{name: "missing client", cfg: Config{Name: "a", Rate: 1}, errContains: "client is required"},
		{name: "zero rate", cfg: Config{Name: "a", Client: &counter{}}, errContains: "rate must be a positive integer"},
		{name: "negative horizon", cfg: Config{Name: "a", Client: &counter{}, Rate: 1, Horizon: -1}, errContains: "horizon cannot be negative"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errContains)
		})
	}

	a, err := New(Config{Name: "a", Client: &counter{}, Rate: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, a.InRate(), "input rate defaults to the rate")
	assert.True(t, a.IsSource())
	assert.Equal(t, Idle, a.State())
}

func TestRun_SourceHorizon(t *testing.T) {
	c := &counter{}
	a, err := New(Config{Name: "src", Client: c, Rate: 1, Horizon: 4})
	require.NoError(t, err)

	out := port.NewOutput[int]("out")
	sink, err := out.Attach(8)
	require.NoError(t, err)
	require.NoError(t, a.Bind(nil, []port.Writer{out}))

	require.NoError(t, a.Run(context.Background()))

	assert.Equal(t, []int{1, 2, 3, 4}, drain(sink))
	assert.Equal(t, int64(4), a.Activations())
	assert.Equal(t, Terminated, a.State())
	assert.True(t, c.closed, "client Close must run on termination")
}

func TestRun_CascadingShutdown(t *testing.T) {
	a, err := New(Config{Name: "double", Client: doubler{}, Rate: 1})
	require.NoError(t, err)

	out := port.NewOutput[int]("out")
	sink, err := out.Attach(8)
	require.NoError(t, err)
	require.NoError(t, a.Bind([]port.Reader{feed(t, 1, 2, 3)}, []port.Writer{out}))

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, []int{2, 4, 6}, drain(sink), "buffered values are processed before shutdown")
	assert.Equal(t, Terminated, a.State())
}

func TestRun_ComputeError(t *testing.T) {
	boom := errors.New("boom")
	a, err := New(Config{Name: "fail", Rate: 1, Client: funcClient{fn: func(in Frame) (Frame, error) {
		if Get[int](in, 0) == 2 {
			return nil, boom
		}
		return Frame{in[0]}, nil
	}}})
	require.NoError(t, err)

	out := port.NewOutput[int]("out")
	sink, err := out.Attach(8)
	require.NoError(t, err)
	require.NoError(t, a.Bind([]port.Reader{feed(t, 1, 2, 3)}, []port.Writer{out}))

	err = a.Run(context.Background())
	require.Error(t, err)

	var cce *ClientComputeError
	require.ErrorAs(t, err, &cce)
	assert.Equal(t, "fail", cce.Actor)
	assert.Equal(t, int64(2), cce.Activation)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, []int{1}, drain(sink), "outputs are closed after the failure")
	assert.Equal(t, Terminated, a.State())
}

func TestRun_PanicIsRecovered(t *testing.T) {
	a, err := New(Config{Name: "panicky", Rate: 1, Client: funcClient{fn: func(Frame) (Frame, error) {
		panic("kaboom")
	}}})
	require.NoError(t, err)

	out := port.NewOutput[int]("out")
	require.NoError(t, a.Bind([]port.Reader{feed(t, 1)}, []port.Writer{out}))

	err = a.Run(context.Background())
	var cce *ClientComputeError
	require.ErrorAs(t, err, &cce)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestRun_WrongOutputArity(t *testing.T) {
	a, err := New(Config{Name: "short", Rate: 1, Client: funcClient{fn: func(Frame) (Frame, error) {
		return Frame{}, nil
	}}})
	require.NoError(t, err)
	require.NoError(t, a.Bind([]port.Reader{feed(t, 1)}, []port.Writer{port.NewOutput[int]("out")}))

	err = a.Run(context.Background())
	assert.ErrorContains(t, err, "returned 0 values for 1 outputs")
}

func TestRun_WrongOutputType(t *testing.T) {
	a, err := New(Config{Name: "liar", Rate: 1, Client: funcClient{fn: func(Frame) (Frame, error) {
		return Frame{"not an int"}, nil
	}}})
	require.NoError(t, err)

	out := port.NewOutput[int]("out")
	_, err = out.Attach(1)
	require.NoError(t, err)
	require.NoError(t, a.Bind([]port.Reader{feed(t, 1)}, []port.Writer{out}))

	err = a.Run(context.Background())
	var te *port.TypeError
	assert.ErrorAs(t, err, &te)
}

func TestRun_EndOfStream(t *testing.T) {
	a, err := New(Config{Name: "short", Rate: 1, Client: funcClient{fn: func(in Frame) (Frame, error) {
		if Get[int](in, 0) > 1 {
			return nil, ErrEndOfStream
		}
		return Frame{in[0]}, nil
	}}})
	require.NoError(t, err)

	out := port.NewOutput[int]("out")
	sink, err := out.Attach(4)
	require.NoError(t, err)
	require.NoError(t, a.Bind([]port.Reader{feed(t, 1, 2, 3)}, []port.Writer{out}))

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, []int{1}, drain(sink))
}

func TestRun_StopsWhenConsumersDetach(t *testing.T) {
	a, err := New(Config{Name: "src", Client: &counter{}, Rate: 1})
	require.NoError(t, err)

	out := port.NewOutput[int]("out")
	sink, err := out.Attach(1)
	require.NoError(t, err)
	require.NoError(t, a.Bind(nil, []port.Writer{out}))

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	v, ok := sink.Next()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	sink.Detach()

	select {
	case err := <-done:
		assert.NoError(t, err, "an orphaned producer stops cleanly")
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not stop after its consumer detached")
	}
	assert.Equal(t, Terminated, a.State())
}

func TestRun_SourceStopsOnCancel(t *testing.T) {
	a, err := New(Config{Name: "src", Client: &counter{}, Rate: 1})
	require.NoError(t, err)

	out := port.NewOutput[int]("out")
	sink, err := out.Attach(1)
	require.NoError(t, err)
	require.NoError(t, a.Bind(nil, []port.Writer{out}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	_, ok := sink.Next()
	require.True(t, ok)
	cancel()

	// Keep draining so a publish blocked under backpressure can proceed.
	go drain(sink)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("source did not stop after cancellation")
	}
}

func TestRun_WindowDecimation(t *testing.T) {
	a, err := New(Config{Name: "decimate", Client: doubler{}, Rate: 2, InRate: 1, Window: Window{Collect: 2}})
	require.NoError(t, err)

	out := port.NewOutput[int]("out")
	sink, err := out.Attach(8)
	require.NoError(t, err)
	require.NoError(t, a.Bind([]port.Reader{feed(t, 1, 2, 3, 4, 5)}, []port.Writer{out}))

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, []int{4, 8}, drain(sink))
	assert.Equal(t, int64(5), a.Activations(), "the trailing window is computed but never published")
}

func TestRun_WindowRepeat(t *testing.T) {
	a, err := New(Config{Name: "upsample", Client: doubler{}, Rate: 1, InRate: 2, Window: Window{Repeat: 2}})
	require.NoError(t, err)

	out := port.NewOutput[int]("out")
	sink, err := out.Attach(8)
	require.NoError(t, err)
	require.NoError(t, a.Bind([]port.Reader{feed(t, 1, 2)}, []port.Writer{out}))

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, []int{2, 2, 4, 4}, drain(sink))
}

func TestBind(t *testing.T) {
	a, err := New(Config{Name: "double", Client: doubler{}, Rate: 1})
	require.NoError(t, err)

	assert.ErrorContains(t, a.Run(context.Background()), "not bound")
	assert.ErrorContains(t, a.Bind(nil, nil), "1 inputs")

	require.NoError(t, a.Bind([]port.Reader{feed(t)}, []port.Writer{port.NewOutput[int]("out")}))
	assert.ErrorContains(t, a.Bind([]port.Reader{feed(t)}, []port.Writer{port.NewOutput[int]("out")}), "already bound")
}

func TestFrameAccessors(t *testing.T) {
	f := Frame{1, "two"}
	assert.Equal(t, 1, Get[int](f, 0))

	_, err := Lookup[int](f, 1)
	assert.ErrorContains(t, err, "want int")

	_, err = Lookup[int](f, 5)
	assert.ErrorContains(t, err, "out of range")

	assert.Panics(t, func() { Get[string](f, 0) })
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "computing", Computing.String())
	assert.Equal(t, "terminated", Terminated.String())
	assert.Equal(t, "unknown", State(42).String())
}
