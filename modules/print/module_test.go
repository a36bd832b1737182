package print

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/ctxlog"
	"github.com/vk/dosgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

func newRegistry() *registry.Registry {
	r := registry.New()
	(&Module{}).Register(r)
	return r
}

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	c, err := newRegistry().New(registry.Env{Name: "sink", Out: &out}, "print", cty.ObjectVal(map[string]cty.Value{
		"format": cty.StringVal("%.2f"),
	}))
	require.NoError(t, err)

	for _, v := range []float64{1, 2.5} {
		_, err := c.Compute(context.Background(), actor.Frame{v})
		require.NoError(t, err)
	}
	assert.Equal(t, "sink[0] = 1.00\nsink[1] = 2.50\n", out.String())
}

func TestPrint_Kind(t *testing.T) {
	c, err := newRegistry().New(registry.Env{Name: "sink"}, "print", cty.ObjectVal(map[string]cty.Value{
		"kind": cty.StringVal("int"),
	}))
	require.NoError(t, err)
	assert.Equal(t, "in:int64", c.Inputs()[0].String())

	_, err = newRegistry().New(registry.Env{Name: "sink"}, "print", cty.ObjectVal(map[string]cty.Value{
		"kind": cty.StringVal("complex"),
	}))
	assert.ErrorContains(t, err, "unknown value kind")
}

func TestLogging(t *testing.T) {
	var logs bytes.Buffer
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))

	c, err := newRegistry().New(registry.Env{Name: "log"}, "logging", cty.NilVal)
	require.NoError(t, err)
	l := c.(*Logging)

	for _, v := range []float64{1, 2, 3} {
		_, err := l.Compute(ctx, actor.Frame{v})
		require.NoError(t, err)
	}
	assert.Equal(t, []any{1.0, 2.0, 3.0}, l.Values())

	require.NoError(t, l.Close())
	assert.Contains(t, logs.String(), "Logging sink closed.")
	assert.Contains(t, logs.String(), "count=3")
	assert.Contains(t, logs.String(), "mean=2")
}

func TestLogging_CloseWithoutValues(t *testing.T) {
	c, err := newRegistry().New(registry.Env{Name: "log"}, "logging", cty.ObjectVal(map[string]cty.Value{
		"kind": cty.StringVal("string"),
	}))
	require.NoError(t, err)
	assert.NoError(t, c.(*Logging).Close())
}
