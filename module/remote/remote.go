// Package remote implements module.Module for a test module that runs as a separate HTTP
// service, using the REST protocol defined in servicedef.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/labfont/gpu-test-harness/bridge"
	"github.com/labfont/gpu-test-harness/framework"
	"github.com/labfont/gpu-test-harness/framework/harness"
	"github.com/labfont/gpu-test-harness/gpu"
	"github.com/labfont/gpu-test-harness/module"
	"github.com/labfont/gpu-test-harness/report"
	"github.com/labfont/gpu-test-harness/servicedef"
	cf "github.com/labfont/gpu-test-harness/servicedef/callbackfixtures"
)

var errNotBound = errors.New("remote module instance was not created; Bind must be called first")

// Module is one instance of a remote module. Bind creates the instance in the service and
// registers the callback endpoint; Close disposes of both.
type Module struct {
	harness   *harness.TestHarness
	tag       string
	logger    framework.Logger
	slot      *bridge.Slot
	instance  *harness.ModuleInstance
	callbacks *harness.CallbackEndpoint
	adapter   gpu.Adapter
	runCtx    context.Context
	lock      sync.Mutex
}

func New(h *harness.TestHarness, tag string, logger framework.Logger) *Module {
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &Module{harness: h, tag: tag, logger: logger}
}

// Bind registers the callback endpoint and asks the service to create a module instance for
// the device in the slot.
func (m *Module) Bind(ctx context.Context, slot *bridge.Slot) error {
	device, ok := slot.Device()
	if !ok {
		return gpu.ErrDeviceNotReady
	}
	m.slot = slot

	callbackService := harness.NewCallbackService(m.logger, "module callbacks")
	callbackService.AddPath(cf.CallbackPathAcquireAdapter, m.acquireAdapter)
	callbackService.AddPath(cf.CallbackPathAcquireDevice, m.acquireDevice)
	callbackService.AddPath(cf.CallbackPathReportProgress, m.reportProgress)
	callbackService.AddPath(cf.CallbackPathLogMessage, m.logMessage)
	m.callbacks = m.harness.NewCallbackEndpoint(callbackService, m.logger,
		harness.EndpointDescription("module callbacks"))

	params := servicedef.CreateInstanceParams{
		Tag:         m.tag,
		Device:      servicedef.DeviceInfoFor(device),
		CallbackURL: m.callbacks.BaseURL(),
	}
	instance, err := m.harness.CreateInstance(ctx, params, m.logger)
	if err != nil {
		m.callbacks.Close()
		return err
	}
	m.instance = instance
	return nil
}

// RunTests sends the run command. Acquisition callbacks that arrive while it is in progress use
// ctx, so they stop when the run is canceled or times out.
func (m *Module) RunTests(ctx context.Context) (int, error) {
	if m.instance == nil {
		return 0, errNotBound
	}
	m.lock.Lock()
	m.runCtx = ctx
	m.lock.Unlock()
	var resp servicedef.RunTestsResponse
	if err := m.instance.Command(ctx, servicedef.CommandRunTests, &resp); err != nil {
		return 0, err
	}
	return resp.Status, nil
}

func (m *Module) TestResults(ctx context.Context) ([]report.TestSuite, error) {
	if m.instance == nil {
		return nil, errNotBound
	}
	var body []byte
	if err := m.instance.Command(ctx, servicedef.CommandGetTestResults, &body); err != nil {
		return nil, err
	}
	return servicedef.ParseTestResults(body)
}

// Close disposes of the module instance and the callback endpoint.
func (m *Module) Close() error {
	var err error
	if m.instance != nil {
		err = m.instance.Close()
		m.instance = nil
	}
	if m.callbacks != nil {
		m.callbacks.Close()
		m.callbacks = nil
	}
	return err
}

func (m *Module) acquireAdapter(*json.Decoder) (interface{}, error) {
	acquirers, ok := m.slot.Acquirers()
	if !ok {
		return nil, errors.New("self-acquisition is not enabled for this run")
	}
	adapter, err := acquirers.AcquireAdapter(m.runContext())
	if err != nil {
		return nil, err
	}
	m.lock.Lock()
	m.adapter = adapter
	m.lock.Unlock()
	return cf.AcquireAdapterResponse{Adapter: adapter.Info()}, nil
}

func (m *Module) acquireDevice(*json.Decoder) (interface{}, error) {
	acquirers, ok := m.slot.Acquirers()
	if !ok {
		return nil, errors.New("self-acquisition is not enabled for this run")
	}
	m.lock.Lock()
	adapter := m.adapter
	m.adapter = nil
	m.lock.Unlock()
	if adapter == nil {
		return nil, errors.New("no adapter has been acquired; call the adapter callback first")
	}
	device, err := acquirers.AcquireDevice(m.runContext(), adapter)
	if err != nil {
		return nil, err
	}
	return cf.AcquireDeviceResponse{Device: servicedef.DeviceInfoFor(device)}, nil
}

func (m *Module) runContext() context.Context {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.runCtx == nil {
		return context.Background()
	}
	return m.runCtx
}

func (m *Module) reportProgress(d *json.Decoder) (interface{}, error) {
	var params cf.ReportProgressParams
	if err := decodeParams(d, &params); err != nil {
		return nil, err
	}
	m.slot.Reporter().ReportProgress(params.Passed, params.Total, params.Message)
	return nil, nil
}

func (m *Module) logMessage(d *json.Decoder) (interface{}, error) {
	var params cf.LogMessageParams
	if err := decodeParams(d, &params); err != nil {
		return nil, err
	}
	m.slot.Reporter().LogMessage(params.Text, params.IsError)
	return nil, nil
}

func decodeParams(d *json.Decoder, target interface{}) error {
	if d == nil {
		return errors.New("request body is required")
	}
	return d.Decode(target)
}

var (
	_ module.Module   = (*Module)(nil)
	_ module.Bindable = (*Module)(nil)
)
