package module

import (
	"context"
	"fmt"

	"github.com/labfont/gpu-test-harness/bridge"
	"github.com/labfont/gpu-test-harness/framework"
	"github.com/labfont/gpu-test-harness/gpu"
	"github.com/labfont/gpu-test-harness/report"
)

// Names of the two module calls, as reported in ModuleCallError.
const (
	CallRunTests    = "RunTests"
	CallTestResults = "TestResults"
)

// ModuleCallError means a call into the module returned an error or panicked. It matches
// gpu.ErrModuleCallFailure with errors.Is.
type ModuleCallError struct {
	Call  string
	Cause error
}

func (e *ModuleCallError) Error() string {
	return fmt.Sprintf("%s: %s failed: %s", gpu.ErrModuleCallFailure, e.Call, e.Cause)
}

func (e *ModuleCallError) Unwrap() []error {
	return []error{gpu.ErrModuleCallFailure, e.Cause}
}

// Invoker calls a module's entry point and then its result query.
type Invoker struct {
	module Module
	slot   *bridge.Slot
	logger framework.Logger
}

func NewInvoker(m Module, slot *bridge.Slot, logger framework.Logger) *Invoker {
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &Invoker{module: m, slot: slot, logger: logger}
}

// Invoke requires a device in the slot; if there is none it returns gpu.ErrDeviceNotReady
// without calling the module. Otherwise it calls RunTests once and TestResults once. A failure
// of either call is returned as a *ModuleCallError; the process is never allowed to crash.
func (i *Invoker) Invoke(ctx context.Context) (report.RunResult, error) {
	if i.slot == nil {
		return report.RunResult{}, gpu.ErrDeviceNotReady
	}
	if _, ok := i.slot.Device(); !ok {
		return report.RunResult{}, gpu.ErrDeviceNotReady
	}

	var status int
	err := guardCall(CallRunTests, func() (err error) {
		status, err = i.module.RunTests(ctx)
		return
	})
	if err != nil {
		return report.RunResult{}, err
	}
	i.logger.Printf("Module returned status %d", status)

	var details []report.TestSuite
	err = guardCall(CallTestResults, func() (err error) {
		details, err = i.module.TestResults(ctx)
		return
	})
	if err != nil {
		return report.RunResult{}, err
	}

	return report.RunResult{Success: status == 0, StatusCode: status, Details: details}, nil
}

func guardCall(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ModuleCallError{Call: name, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	if callErr := fn(); callErr != nil {
		return &ModuleCallError{Call: name, Cause: callErr}
	}
	return nil
}
