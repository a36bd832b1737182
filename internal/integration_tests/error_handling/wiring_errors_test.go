package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dosgrid/internal/network"
	"github.com/vk/dosgrid/internal/testutil"
)

// TestErrorHandling_WiringErrors checks that invalid networks are rejected
// before any actor starts.
func TestErrorHandling_WiringErrors(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name string
		hcl  string
		kind network.Kind
	}{
		{
			name: "unseeded loop",
			hcl: `
actor "gain" "a" {}
actor "gain" "b" {}
link {
  from = "a"
  to   = "b"
}
link {
  from = "b"
  to   = "a"
}
`,
			kind: network.KindUnseededCycle,
		},
		{
			name: "strict rates",
			hcl: `
network {
  strict_rates = true
}
actor "ramp" "src" {}
actor "logging" "sink" {
  rate = 2
}
link {
  from = "src"
  to   = "sink"
}
`,
			kind: network.KindRateMismatch,
		},
		{
			name: "unconnected input",
			hcl: `
actor "ramp" "src" {}
actor "sum" "s" {}
link {
  from = "src"
  to   = "s.a"
}
`,
			kind: network.KindMissingProducer,
		},
		{
			name: "two producers",
			hcl: `
actor "ramp" "x" {}
actor "ramp" "y" {}
actor "logging" "sink" {}
link {
  from = "x"
  to   = "sink"
}
link {
  from = "y"
  to   = "sink"
}
`,
			kind: network.KindMultipleProducers,
		},
		{
			name: "too many seeds",
			hcl: `
actor "ramp" "src" {}
actor "sum" "s" {}
link {
  from = "src"
  to   = "s.a"
}
link {
  from = "s"
  to   = "s.b"
  seed = [0, 1]
}
`,
			kind: network.KindInvalidSeed,
		},
		{
			name: "duplicate actor",
			hcl: `
actor "ramp" "src" {}
actor "logging" "src" {}
`,
			kind: network.KindDuplicateActor,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": tc.hcl})
			require.Error(t, result.Err)
			assert.ErrorIs(t, result.Err, network.ErrWiring)
			assert.ErrorIs(t, result.Err, tc.kind)
			assert.Nil(t, result.Report, "nothing ran")
		})
	}
}
