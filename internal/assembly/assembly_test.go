package assembly

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/config"
	"github.com/vk/dosgrid/internal/hcl_adapter"
	"github.com/vk/dosgrid/internal/network"
	"github.com/vk/dosgrid/internal/registry"
	"github.com/vk/dosgrid/internal/yaml_adapter"
	"github.com/vk/dosgrid/modules/arith"
	"github.com/vk/dosgrid/modules/print"
	"github.com/vk/dosgrid/modules/signal"
	"github.com/zclconf/go-cty/cty"
)

func newRegistry() *registry.Registry {
	r := registry.New()
	for _, m := range []registry.Module{&signal.Module{}, &arith.Module{}, &print.Module{}} {
		m.Register(r)
	}
	return r
}

func buildHCL(t *testing.T, src string, out *bytes.Buffer) *network.Network {
	t.Helper()
	ctx := context.Background()
	model, err := hcl_adapter.NewLoader().LoadSource(ctx, []byte(src), "main.hcl")
	require.NoError(t, err)
	b, err := Assemble(ctx, model, newRegistry(), registry.Env{Out: out})
	require.NoError(t, err)
	n, err := b.Build(ctx)
	require.NoError(t, err)
	return n
}

func logged(t *testing.T, n *network.Network, name string) []any {
	t.Helper()
	a, ok := n.Actor(name)
	require.True(t, ok)
	return a.Client().(*print.Logging).Values()
}

func TestAssemble_Downsample(t *testing.T) {
	n := buildHCL(t, `
actor "counter" "src" {
  horizon = 4
  arguments {
    start = 1
  }
}

sampler "dec" {
  rate = 2
}

actor "logging" "sink" {
  rate = 2
  arguments {
    kind = "int"
  }
}

link {
  from = "src"
  to   = "dec"
}

link {
  from = "dec"
  to   = "sink"
}
`, nil)

	_, err := n.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(4)}, logged(t, n, "sink"))
}

func TestAssemble_FeedbackLoop(t *testing.T) {
	var out bytes.Buffer
	n := buildHCL(t, `
actor "constant" "setpoint" {
  horizon = 5
  arguments {
    value = 1
  }
}

actor "sum" "error" {}

actor "integrator" "ctrl" {
  arguments {
    gain = 0.5
  }
}

actor "print" "show" {
  arguments {
    format = "%.4f"
  }
}

link {
  from = "setpoint"
  to   = "error.a"
}

link {
  from = "error"
  to   = "ctrl"
}

link {
  from = "ctrl"
  to   = "error.b"
  seed = 0
}

link {
  from = "ctrl"
  to   = "show"
}
`, &out)

	report, err := n.Run(context.Background())
	require.NoError(t, err)
	for _, a := range report.Actors {
		assert.Equal(t, actor.Terminated, a.State, a.Name)
	}
	assert.Equal(t, "show[0] = 0.5000\nshow[1] = 0.7500\nshow[2] = 0.8750\nshow[3] = 0.9375\nshow[4] = 0.9688\n", out.String())
}

func TestAssemble_YAML(t *testing.T) {
	ctx := context.Background()
	model, err := yaml_adapter.NewLoader().LoadSource(ctx, []byte(`
network:
  decimation: first
actors:
  - {type: ramp, name: src, horizon: 6}
  - {type: logging, name: sink, rate: 3}
links:
  - {from: src, to: sink}
`), "main.yaml")
	require.NoError(t, err)

	b, err := Assemble(ctx, model, newRegistry(), registry.Env{})
	require.NoError(t, err)
	n, err := b.Build(ctx)
	require.NoError(t, err)
	_, err = n.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, []any{0.0, 3.0}, logged(t, n, "sink"), "adapter keeps the first value of each window")
}

func TestAssemble_SeedThroughSampler(t *testing.T) {
	m := config.New()
	m.Actors = []*config.Actor{
		{Type: "counter", Name: "src", Rate: 1, Horizon: 2},
		{Type: "logging", Name: "sink", Rate: 1, Arguments: cty.ObjectVal(map[string]cty.Value{"kind": cty.StringVal("int")})},
	}
	m.Samplers = []*config.Sampler{{Name: "hold", Rate: 1}}
	m.Links = []*config.Link{
		{From: "src", To: "hold", Capacity: 2, Seeds: []cty.Value{cty.NumberIntVal(7)}},
		{From: "hold", To: "sink"},
	}

	ctx := context.Background()
	b, err := Assemble(ctx, m, newRegistry(), registry.Env{})
	require.NoError(t, err)
	n, err := b.Build(ctx)
	require.NoError(t, err, "the seed takes the type of the sampler's producer")
	_, err = n.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(7), int64(0), int64(1)}, logged(t, n, "sink"))
}

func TestAssemble_Errors(t *testing.T) {
	testCases := []struct {
		name        string
		model       *config.Model
		errContains string
	}{
		{
			name:        "unknown client type",
			model:       &config.Model{Actors: []*config.Actor{{Type: "laser", Name: "a", Rate: 1, Origin: "main.hcl:3"}}},
			errContains: "main.hcl:3: unknown client type 'laser'",
		},
		{
			name: "bad arguments",
			model: &config.Model{Actors: []*config.Actor{{
				Type: "ramp", Name: "a", Rate: 1, Origin: "main.hcl:1",
				Arguments: cty.ObjectVal(map[string]cty.Value{"slope": cty.NumberIntVal(1)}),
			}}},
			errContains: "unknown argument 'slope'",
		},
		{
			name:        "bad decimation",
			model:       &config.Model{Settings: &config.Settings{Decimation: "middle"}},
			errContains: "unknown decimation policy 'middle'",
		},
		{
			name:        "bad sampler policy",
			model:       &config.Model{Samplers: []*config.Sampler{{Name: "s", Rate: 1, Policy: "median", Origin: "x.hcl:2"}}},
			errContains: "x.hcl:2: sampler 's'",
		},
		{
			name: "seed of the wrong type",
			model: &config.Model{
				Actors: []*config.Actor{{Type: "gain", Name: "g", Rate: 1}},
				Links:  []*config.Link{{From: "g", To: "g", Seeds: []cty.Value{cty.StringVal("zero")}, Origin: "l.hcl:9"}},
			},
			errContains: "l.hcl:9: link g -> g: seed 0",
		},
		{
			name: "seed on an unknown port",
			model: &config.Model{
				Actors: []*config.Actor{{Type: "sum", Name: "s", Rate: 1}},
				Links:  []*config.Link{{From: "s", To: "s.c", Seeds: []cty.Value{cty.Zero}}},
			},
			errContains: "has no input port 'c'",
		},
		{
			name: "seed on an unfed sampler",
			model: &config.Model{
				Samplers: []*config.Sampler{{Name: "s", Rate: 1}},
				Links:    []*config.Link{{From: "x", To: "s", Seeds: []cty.Value{cty.Zero}}},
			},
			errContains: "no actor or fed sampler named 'x'",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Assemble(context.Background(), tc.model, newRegistry(), registry.Env{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errContains)
		})
	}
}
