package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/labfont/gpu-test-harness/bridge"
	"github.com/labfont/gpu-test-harness/framework/helpers"
	"github.com/labfont/gpu-test-harness/gpu"
	"github.com/labfont/gpu-test-harness/gpu/gpufake"
	"github.com/labfont/gpu-test-harness/module"
	"github.com/labfont/gpu-test-harness/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingModule struct {
	log          *gpufake.CallLog
	slot         *bridge.Slot
	sawDevice    bool
	status       int
	suites       []report.TestSuite
	blockRunning bool
}

func (m *recordingModule) Bind(_ context.Context, slot *bridge.Slot) error {
	m.log.Record("Bind")
	m.slot = slot
	return nil
}

func (m *recordingModule) RunTests(ctx context.Context) (int, error) {
	m.log.Record(module.CallRunTests)
	_, m.sawDevice = m.slot.Device()
	if m.blockRunning {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
	}
	return m.status, nil
}

func (m *recordingModule) TestResults(context.Context) ([]report.TestSuite, error) {
	m.log.Record(module.CallTestResults)
	return m.suites, nil
}

type fakeArchive struct {
	records []report.Record
	err     error
}

func (a *fakeArchive) Store(_ context.Context, r report.Record) error {
	a.records = append(a.records, r)
	return a.err
}
func (a *fakeArchive) DSN() string  { return "fake" }
func (a *fakeArchive) Close() error { return nil }

type fixture struct {
	log    *gpufake.CallLog
	host   *gpufake.Host
	module *recordingModule
	sink   *report.MemorySink
	states []State
	lock   sync.Mutex
}

func newFixture() *fixture {
	log := &gpufake.CallLog{}
	return &fixture{
		log:    log,
		host:   gpufake.NewWorkingHost(log),
		module: &recordingModule{log: log},
		sink:   &report.MemorySink{},
	}
}

func (f *fixture) options() Options {
	return Options{
		Host:      f.host,
		Module:    f.module,
		Presenter: report.NewPresenter(f.sink),
		OnTransition: func(_, to State) {
			f.lock.Lock()
			f.states = append(f.states, to)
			f.lock.Unlock()
		},
	}
}

func (f *fixture) errorLines() []string {
	var lines []string
	for _, e := range f.sink.OfKind(report.KindLog) {
		if e.Failed {
			lines = append(lines, e.Text)
		}
	}
	return lines
}

func TestRunFollowsPipelineOrder(t *testing.T) {
	f := newFixture()
	r := New(f.options())

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)

	assert.Equal(t, []string{
		"HasCapability", "RequestAdapter", "RequestDevice", "Bind",
		module.CallRunTests, module.CallTestResults,
	}, f.log.Calls())
	assert.True(t, f.module.sawDevice, "device must be in the slot before the entry call")
	assert.Equal(t, []State{
		StateProbingCapability, StateAcquiringAdapter, StateAcquiringDevice,
		StateReady, StateInvoking, StateReported,
	}, f.states)
	assert.Equal(t, StateReported, r.State())
	assert.Empty(t, f.errorLines())
}

func TestProbeFalseMeansNoAcquisition(t *testing.T) {
	f := newFixture()
	f.host.Capable = false
	r := New(f.options())

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, gpu.ErrCapabilityUnsupported)
	assert.Equal(t, []string{"HasCapability"}, f.log.Calls())
	assert.Equal(t, StateError, r.State())
	require.Len(t, f.errorLines(), 1)
	assert.Contains(t, f.errorLines()[0], FailurePrefix)
	assert.True(t, IsSetupFailure(err))
}

func TestProberFailureMeansNoAcquisition(t *testing.T) {
	f := newFixture()
	opts := f.options()
	opts.Probers = []gpu.Prober{failingProber{}}

	_, err := New(opts).Run(context.Background())
	assert.ErrorIs(t, err, gpu.ErrCapabilityUnsupported)
	assert.Equal(t, 0, f.log.Count("RequestAdapter"))
}

type failingProber struct{}

func (failingProber) Name() string             { return "failing" }
func (failingProber) Available() (bool, error) { return false, nil }

func TestNoAdapterStopsBeforeModule(t *testing.T) {
	f := newFixture()
	f.host.Adapter = nil
	r := New(f.options())

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, gpu.ErrAdapterUnavailable)
	assert.Equal(t, 0, f.log.Count(module.CallRunTests))
	assert.Equal(t, 0, f.log.Count("Bind"))
	_, hasDevice := r.Slot().Device()
	assert.False(t, hasDevice)
	assert.Equal(t, []State{StateProbingCapability, StateAcquiringAdapter, StateError}, f.states)
}

func TestDeviceFailureStopsBeforeModule(t *testing.T) {
	f := newFixture()
	f.host.Adapter.DeviceErr = errors.New("limit too high")

	_, err := New(f.options()).Run(context.Background())
	assert.ErrorIs(t, err, gpu.ErrDeviceUnavailable)
	assert.Equal(t, 0, f.log.Count(module.CallRunTests))
}

func TestNoRetryByDefault(t *testing.T) {
	f := newFixture()
	f.host.AdapterErr = errors.New("busy")
	opts := f.options()
	opts.RetryBackOff = &backoff.ZeroBackOff{}

	_, err := New(opts).Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, f.log.Count("RequestAdapter"))
}

func TestRetriesAreBounded(t *testing.T) {
	f := newFixture()
	f.host.AdapterErr = errors.New("busy")
	opts := f.options()
	opts.AcquireRetries = 2
	opts.RetryBackOff = &backoff.ZeroBackOff{}

	_, err := New(opts).Run(context.Background())
	assert.ErrorIs(t, err, gpu.ErrAdapterUnavailable)
	assert.Equal(t, 3, f.log.Count("RequestAdapter"))
}

type flakyHost struct {
	*gpufake.Host
	failures int
}

func (h *flakyHost) RequestAdapter(ctx context.Context, options gpu.AdapterOptions) (gpu.Adapter, error) {
	if h.failures > 0 {
		h.failures--
		return nil, nil
	}
	return h.Host.RequestAdapter(ctx, options)
}

func TestRetrySucceedsAfterFailure(t *testing.T) {
	f := newFixture()
	opts := f.options()
	opts.Host = &flakyHost{Host: f.host, failures: 1}
	opts.AcquireRetries = 1
	opts.RetryBackOff = &backoff.ZeroBackOff{}

	_, err := New(opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []State{
		StateProbingCapability, StateAcquiringAdapter, StateAcquiringAdapter, StateAcquiringDevice,
		StateReady, StateInvoking, StateReported,
	}, f.states)
}

type hangingHost struct{ gpufake.Host }

func (h *hangingHost) RequestAdapter(ctx context.Context, _ gpu.AdapterOptions) (gpu.Adapter, error) {
	<-ctx.Done()
	time.Sleep(10 * time.Millisecond)
	return nil, ctx.Err()
}

func TestAcquireTimeoutFailsStep(t *testing.T) {
	f := newFixture()
	opts := f.options()
	opts.Host = &hangingHost{Host: gpufake.Host{Capable: true}}
	opts.AcquireTimeout = 20 * time.Millisecond

	_, err := New(opts).Run(context.Background())
	assert.ErrorIs(t, err, gpu.ErrAdapterUnavailable)
	assert.Contains(t, err.Error(), "no adapter within 20ms")
}

func TestInvokeTimeoutFailsStep(t *testing.T) {
	f := newFixture()
	f.module.blockRunning = true
	opts := f.options()
	opts.InvokeTimeout = 20 * time.Millisecond

	_, err := New(opts).Run(context.Background())
	assert.ErrorIs(t, err, gpu.ErrModuleCallFailure)
	var callErr *module.ModuleCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, module.CallRunTests, callErr.Call)

	// The abandoned call still completes in the background without affecting the result.
	helpers.RequireEventually(t, func() bool { return f.log.Count(module.CallTestResults) == 1 },
		time.Second, time.Millisecond*5, "abandoned invocation did not finish")
}

func TestDeviceIsKeptAfterInvokeTimeout(t *testing.T) {
	f := newFixture()
	f.module.blockRunning = true
	opts := f.options()
	opts.InvokeTimeout = 20 * time.Millisecond
	r := New(opts)

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, r.Abandoned())

	require.NoError(t, r.Close())
	assert.Equal(t, 0, f.log.Count("Destroy"))
	_, ok := r.Slot().Device()
	assert.True(t, ok)
}

func TestAcquireTimeoutIsAbandoned(t *testing.T) {
	f := newFixture()
	opts := f.options()
	opts.Host = &hangingHost{Host: gpufake.Host{Capable: true}}
	opts.AcquireTimeout = 20 * time.Millisecond
	r := New(opts)

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, r.Abandoned())
}

func TestArithmeticScenario(t *testing.T) {
	f := newFixture()
	f.module.status = 1
	f.module.suites = []report.TestSuite{{Name: "Arithmetic", Tests: []report.TestCase{
		{Name: "add", Passed: true},
		{Name: "divide", Passed: false, Message: ldvalue.NewOptionalString("expected 2, got 3")},
	}}}
	archive := &fakeArchive{}
	opts := f.options()
	opts.Archive = archive
	opts.RunID = "run-1"

	result, err := New(opts).Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.StatusCode)

	var presented []string
	for _, e := range f.sink.Entries() {
		if e.Kind == report.KindHeading || e.Kind == report.KindCase || e.Kind == report.KindMessage {
			presented = append(presented, e.Line())
		}
	}
	assert.Equal(t, []string{
		"Arithmetic",
		"✓ add",
		"✗ divide",
		"    expected 2, got 3",
	}, presented)

	require.Len(t, archive.records, 1)
	assert.Equal(t, "run-1", archive.records[0].RunID)
	assert.Equal(t, "fake adapter (virtual, fake)", archive.records[0].Adapter)
	assert.Equal(t, result, archive.records[0].Result)
}

func TestArchiveFailureIsShownButNotFatal(t *testing.T) {
	f := newFixture()
	opts := f.options()
	opts.Archive = &fakeArchive{err: errors.New("connection refused")}

	_, err := New(opts).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, f.errorLines(), 1)
	assert.Contains(t, f.errorLines()[0], "connection refused")
}

func TestRunnerCannotBeReused(t *testing.T) {
	f := newFixture()
	r := New(f.options())
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	assert.Error(t, err)
}

func TestCloseClearsSlot(t *testing.T) {
	f := newFixture()
	r := New(f.options())
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, r.Abandoned())
	require.NoError(t, r.Close())
	_, ok := r.Slot().Device()
	assert.False(t, ok)
	assert.Equal(t, 1, f.log.Count("Destroy"))
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "AcquiringDevice", StateAcquiringDevice.String())
	assert.True(t, StateError.Terminal())
	assert.False(t, StateReady.Terminal())
}
