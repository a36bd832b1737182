package integration_tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dosgrid/internal/testutil"
	"github.com/vk/dosgrid/modules/signal"
)

// TestDagConcurrency_SlowConsumerThrottlesProducer checks that a bounded link
// makes the producer wait for its slowest consumer: with capacity 1 the
// producer cannot finish long before the sleeper.
func TestDagConcurrency_SlowConsumerThrottlesProducer(t *testing.T) {
	t.Parallel()
	networkHCL := `
actor "ramp" "src" {
  horizon = 5
}

actor "sleeper" "slow" {}

link {
  from = "src"
  to   = "slow"
}
`
	mockModule := testutil.NewMockSleeperModule(nil, 40*time.Millisecond)

	start := time.Now()
	result := testutil.RunIntegrationTest(t, map[string]string{"main.hcl": networkHCL}, &signal.Module{}, mockModule)
	require.NoError(t, result.Err)

	assert.GreaterOrEqual(t, time.Since(start), 5*40*time.Millisecond)
	testutil.AssertActorRan(t, result, "src", 5)
	testutil.AssertActorRan(t, result, "slow", 5)
}
