package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/vk/dosgrid/internal/app"
	"github.com/vk/dosgrid/internal/network"
	"github.com/vk/dosgrid/internal/registry"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	// Output holds both printed values and debug logs.
	Output string
	Report *network.Report
	Err    error
	App    *app.App
}

// RunIntegrationTest writes files into a temporary directory and runs the
// network they describe with a background context. Without modules, the core
// client modules are registered.
func RunIntegrationTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, modules...)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller-provided
// context, for cancellation tests.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	dir := app.WriteFiles(t, files)
	testApp, out := app.SetupAppTest(t, app.Config{NetworkPath: dir}, modules...)

	report, err := testApp.Run(ctx)
	if os.Getenv("DOSGRID_TEST_LOGS") == "true" {
		t.Logf("--- Run error for %s: %v", t.Name(), err)
	}
	return &HarnessResult{
		Output: out.String(),
		Report: report,
		Err:    err,
		App:    testApp,
	}
}

// ValidateIntegrationTest writes files and only builds the network.
func ValidateIntegrationTest(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	dir := app.WriteFiles(t, files)
	testApp, out := app.SetupAppTest(t, app.Config{NetworkPath: dir}, modules...)
	err := testApp.Validate(context.Background())
	return &HarnessResult{Output: out.String(), Err: err, App: testApp}
}
