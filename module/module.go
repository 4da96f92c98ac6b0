// Package module defines the boundary between the harness and a test module, and the invoker
// that calls across it.
package module

import (
	"context"

	"github.com/labfont/gpu-test-harness/bridge"
	"github.com/labfont/gpu-test-harness/report"
)

// Module is a test module as seen by the harness: one call that runs every test and returns a
// status code, and one call that returns the structured results of that run.
type Module interface {
	// RunTests runs the module's tests against the device in its slot. Zero means every test
	// passed; any other value means at least one did not.
	RunTests(ctx context.Context) (int, error)

	// TestResults returns the suites and cases of the last run, in the module's own order.
	TestResults(ctx context.Context) ([]report.TestSuite, error)
}

// Bindable is implemented by modules that need the shared slot, which carries the device, the
// acquisition helpers and the progress reporter. Bind is called once before RunTests, with the
// run's context.
type Bindable interface {
	Bind(ctx context.Context, slot *bridge.Slot) error
}
