package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/dosgrid/internal/actor"
	"github.com/vk/dosgrid/internal/network"
)

// ActorReport finds the report line of the named actor.
func ActorReport(t *testing.T, result *HarnessResult, name string) network.ActorReport {
	t.Helper()
	require.NotNil(t, result.Report, "run produced no report: %v", result.Err)
	for _, a := range result.Report.Actors {
		if a.Name == name {
			return a
		}
	}
	require.FailNow(t, "actor not in report", "actor '%s' was not reported", name)
	return network.ActorReport{}
}

// AssertActorRan checks that the named actor terminated after exactly
// activations activations.
func AssertActorRan(t *testing.T, result *HarnessResult, name string, activations int64) {
	t.Helper()
	a := ActorReport(t, result, name)
	require.Equal(t, actor.Terminated, a.State, "actor '%s' did not terminate", name)
	require.Equal(t, activations, a.Activations, "activations of actor '%s'", name)
}
