package gputests

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/labfont/gpu-test-harness/bridge"
	"github.com/labfont/gpu-test-harness/framework"
	"github.com/labfont/gpu-test-harness/framework/ldtest"
	"github.com/labfont/gpu-test-harness/gpu"
	"github.com/labfont/gpu-test-harness/report"
)

// Suite names, in the order they run.
const (
	SuiteDevice          = "device"
	SuiteBuffers         = "buffers"
	SuiteSelfAcquisition = "self acquisition"
)

// Config holds the options for the built-in module.
type Config struct {
	// Expected is what the device was requested with; the device suite checks that it was honored.
	Expected gpu.DeviceDescriptor

	// Filter optionally restricts which tests run.
	Filter ldtest.Filter

	// TestLogger optionally receives per-test output in addition to the progress reporter.
	TestLogger ldtest.TestLogger

	Logger framework.Logger
}

// Module is the built-in test module. It implements module.Module and module.Bindable.
type Module struct {
	config  Config
	slot    *bridge.Slot
	results *ldtest.Results
	lock    sync.Mutex
}

type suiteDef struct {
	name   string
	action func(*ldtest.T)
}

func allSuites() []suiteDef {
	return []suiteDef{
		{SuiteDevice, doDeviceTests},
		{SuiteBuffers, doBufferTests},
		{SuiteSelfAcquisition, doSelfAcquisitionTests},
	}
}

// caseCount is the number of cases in all suites, used as the progress denominator.
const caseCount = 7

func New(config Config) *Module {
	if config.Logger == nil {
		config.Logger = framework.NullLogger()
	}
	return &Module{config: config}
}

func (m *Module) Bind(_ context.Context, slot *bridge.Slot) error {
	if slot == nil {
		return errors.New("cannot bind to a nil slot")
	}
	m.lock.Lock()
	m.slot = slot
	m.lock.Unlock()
	return nil
}

// RunTests runs every suite against the device in the bound slot and returns 0 if nothing failed,
// or 1 otherwise.
func (m *Module) RunTests(ctx context.Context) (int, error) {
	m.lock.Lock()
	slot := m.slot
	m.lock.Unlock()
	if slot == nil {
		return 0, errors.New("module was not bound to a slot")
	}
	device, ok := slot.Device()
	if !ok {
		return 0, gpu.ErrDeviceNotReady
	}

	reporter := slot.Reporter()
	progress := newProgressLogger(reporter, caseCount)
	var testLogger ldtest.TestLogger = progress
	if m.config.TestLogger != nil {
		testLogger = ldtest.MultiTestLogger{progress, m.config.TestLogger}
	}
	capabilities := capabilitiesOf(slot, device)
	m.config.Logger.Printf("Running built-in tests on %q with capabilities %v", device.Label(), capabilities)
	if missing := framework.Capabilities(capabilities).Missing(AllCapabilities()...); len(missing) > 0 {
		reporter.LogMessage(fmt.Sprintf("Tests requiring %v will be skipped", missing), false)
	}

	config := ldtest.TestConfiguration{
		Filter:     m.config.Filter,
		TestLogger: testLogger,
		Context: GPUTestContext{
			ctx:      ctx,
			slot:     slot,
			device:   device,
			expected: m.config.Expected.Normalized(),
		},
		Capabilities: capabilities,
	}
	results := ldtest.Run(config, func(t *ldtest.T) {
		for _, s := range allSuites() {
			t.Run(s.name, s.action)
		}
	})

	m.lock.Lock()
	m.results = &results
	m.lock.Unlock()

	if !results.OK() {
		reporter.LogMessage(fmt.Sprintf("%d test(s) failed", len(results.Failures)), true)
		return 1, nil
	}
	return 0, nil
}

// TestResults returns the suites and cases of the last RunTests call.
func (m *Module) TestResults(context.Context) ([]report.TestSuite, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.results == nil {
		return nil, errors.New("tests have not been run")
	}
	return suitesFromResults(*m.results), nil
}
