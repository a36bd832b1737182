package port

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	s := Of[float64]("out")
	assert.Equal(t, "out", s.Name)
	assert.Equal(t, reflect.TypeFor[float64](), s.Type)
	assert.Equal(t, "out:float64", s.String())

	w, err := s.NewOutput()
	require.NoError(t, err)
	assert.Equal(t, s.Type, w.Type())

	renamed := s.Rename("in")
	assert.Equal(t, "in", renamed.Name)
	assert.Equal(t, s.Type, renamed.Type)

	_, err = Spec{Name: "bare"}.NewOutput()
	assert.ErrorContains(t, err, "port.Of")
}

func TestOutput_FIFO(t *testing.T) {
	out := NewOutput[int]("out")
	in, err := out.Attach(4)
	require.NoError(t, err)

	for v := 1; v <= 4; v++ {
		require.NoError(t, out.Publish(v))
	}
	out.Close()

	var got []int
	for {
		v, ok := in.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, got)
}

func TestOutput_FanOutDuplicates(t *testing.T) {
	out := NewOutput[string]("out")
	a, err := out.Attach(1)
	require.NoError(t, err)
	b, err := out.Attach(1)
	require.NoError(t, err)

	require.NoError(t, out.Publish("x"))

	va, ok := a.Next()
	require.True(t, ok)
	vb, ok := b.Next()
	require.True(t, ok)
	assert.Equal(t, "x", va)
	assert.Equal(t, "x", vb)
	assert.Equal(t, 2, out.Links())
}

func TestOutput_Backpressure(t *testing.T) {
	out := NewOutput[int]("out")
	in, err := out.Attach(1)
	require.NoError(t, err)

	require.NoError(t, out.Publish(1))

	sent := make(chan struct{})
	go func() {
		_ = out.Publish(2)
		close(sent)
	}()

	select {
	case <-sent:
		t.Fatal("publish on a full link should block")
	case <-time.After(50 * time.Millisecond):
	}

	v, ok := in.Next()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("publish did not resume after the consumer drained the link")
	}
}

func TestInput_EndOfStream(t *testing.T) {
	out := NewOutput[int]("out")
	in, err := out.Attach(2)
	require.NoError(t, err)

	require.NoError(t, out.Publish(7))
	out.Close()
	out.Close() // idempotent

	v, ok := in.Receive()
	require.True(t, ok)
	assert.Equal(t, 7, v)

	v, ok = in.Receive()
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestInput_Detach(t *testing.T) {
	t.Run("unblocks a waiting producer", func(t *testing.T) {
		out := NewOutput[int]("out")
		in, err := out.Attach(1)
		require.NoError(t, err)
		require.NoError(t, out.Publish(1))

		errCh := make(chan error, 1)
		go func() { errCh <- out.Publish(2) }()

		time.Sleep(20 * time.Millisecond)
		in.Detach()
		in.Detach() // idempotent

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, ErrNoConsumers)
		case <-time.After(time.Second):
			t.Fatal("producer stayed blocked after detach")
		}
	})

	t.Run("live consumers keep receiving", func(t *testing.T) {
		out := NewOutput[int]("out")
		gone, err := out.Attach(1)
		require.NoError(t, err)
		alive, err := out.Attach(1)
		require.NoError(t, err)

		gone.Detach()
		require.NoError(t, out.Publish(3))

		v, ok := alive.Next()
		require.True(t, ok)
		assert.Equal(t, 3, v)
	})

	t.Run("output without links never reports orphaned", func(t *testing.T) {
		out := NewOutput[int]("out")
		assert.NoError(t, out.Publish(1))
	})
}

func TestSendAndPreload_TypeChecks(t *testing.T) {
	out := NewOutput[float64]("out")
	in, err := out.Attach(1)
	require.NoError(t, err)

	var typeErr *TypeError
	err = out.Send("not a float")
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, reflect.TypeFor[float64](), typeErr.Want)
	assert.Equal(t, reflect.TypeFor[string](), typeErr.Got)

	err = in.Preload(1)
	require.ErrorAs(t, err, &typeErr)

	require.NoError(t, in.Preload(0.5))
	assert.ErrorIs(t, in.Preload(0.25), ErrBufferFull)

	v, ok := in.Receive()
	require.True(t, ok)
	assert.Equal(t, 0.5, v)
}

func TestPreload_InterfacePort(t *testing.T) {
	out := NewOutput[any]("out")
	in, err := out.Attach(2)
	require.NoError(t, err)

	require.NoError(t, in.Preload(3))
	require.NoError(t, in.Preload(nil))

	v, ok := in.Next()
	require.True(t, ok)
	assert.Equal(t, 3, v)
	v, ok = in.Next()
	require.True(t, ok)
	assert.Nil(t, v)
}

func TestAttach_InvalidCapacity(t *testing.T) {
	out := NewOutput[int]("out")
	_, err := out.Connect(0)
	assert.ErrorContains(t, err, "capacity must be at least 1")
}
