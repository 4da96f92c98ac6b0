// Package runner drives one harness run through its pipeline: capability probe, adapter and
// device acquisition, module invocation and presentation.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/labfont/gpu-test-harness/bridge"
	"github.com/labfont/gpu-test-harness/framework"
	"github.com/labfont/gpu-test-harness/gpu"
	"github.com/labfont/gpu-test-harness/module"
	"github.com/labfont/gpu-test-harness/report"
	"github.com/labfont/gpu-test-harness/report/archive"
)

// FailurePrefix starts the error line shown for any step that stops the run.
const FailurePrefix = "Test execution failed: "

// Options configures a Runner. Host, Module and Presenter are required.
type Options struct {
	Host    gpu.Host
	Probers []gpu.Prober
	Acquire gpu.AcquireOptions

	// AcquireRetries is the number of extra attempts at adapter and device acquisition. The
	// default of 0 means a failed negotiation is not repeated.
	AcquireRetries int
	RetryBackOff   backoff.BackOff

	AcquireTimeout time.Duration
	InvokeTimeout  time.Duration

	Module    module.Module
	Presenter *report.Presenter

	// Archive optionally stores a record of the run after it has been presented.
	Archive archive.Archive
	RunID   string

	Logger framework.Logger

	// OnTransition, if set, is called on every state change.
	OnTransition func(from, to State)
}

// Runner owns the slot for one run and moves it through the pipeline states.
type Runner struct {
	opts    Options
	slot    *bridge.Slot
	adapter gpu.AdapterInfo
	state   State
	// abandoned names the first step that was still running at its deadline.
	abandoned string
	lock      sync.Mutex
}

func New(opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = framework.NullLogger()
	}
	opts.Logger = framework.LoggerWithPrefix(opts.Logger, "[runner] ")
	return &Runner{opts: opts, slot: bridge.NewSlot()}
}

// Slot returns the slot that the run's device is placed in.
func (r *Runner) Slot() *bridge.Slot { return r.slot }

func (r *Runner) State() State {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.state
}

func (r *Runner) transition(to State) {
	r.lock.Lock()
	from := r.state
	r.state = to
	r.lock.Unlock()
	r.opts.Logger.Printf("%s -> %s", from, to)
	if r.opts.OnTransition != nil {
		r.opts.OnTransition(from, to)
	}
}

// Run executes the pipeline once. Each step runs only after the previous one succeeded; a failure
// moves the runner to StateError, is shown as an error line, and is returned. Per-case test
// failures are not errors: they are in the returned RunResult.
func (r *Runner) Run(ctx context.Context) (report.RunResult, error) {
	if state := r.State(); state != StateIdle {
		return report.RunResult{}, fmt.Errorf("runner already used (state %s)", state)
	}
	result, err := r.run(ctx)
	if err != nil {
		r.transition(StateError)
		r.opts.Presenter.Errorf("%s%s", FailurePrefix, err)
		return report.RunResult{}, err
	}
	r.transition(StateReported)
	r.archive(ctx, result)
	return result, nil
}

func (r *Runner) run(ctx context.Context) (report.RunResult, error) {
	r.transition(StateProbingCapability)
	if !gpu.ProbeCapability(r.opts.Host, r.opts.Probers...) {
		return report.RunResult{}, gpu.ErrCapabilityUnsupported
	}

	device, err := r.acquireWithRetry(ctx)
	if err != nil {
		return report.RunResult{}, err
	}
	r.opts.Presenter.LogMessage(fmt.Sprintf("Device %q initialized successfully", device.Label()), false)

	r.slot.SetDevice(device)
	r.slot.PublishAcquirers(r.opts.Host, r.opts.Acquire)
	r.slot.SetReporter(r.opts.Presenter)
	if b, ok := r.opts.Module.(module.Bindable); ok {
		if err := b.Bind(ctx, r.slot); err != nil {
			return report.RunResult{}, &module.ModuleCallError{Call: "Bind", Cause: err}
		}
	}
	r.transition(StateReady)

	r.transition(StateInvoking)
	invoker := module.NewInvoker(r.opts.Module, r.slot, r.opts.Logger)
	result, err := withDeadline(ctx, r.opts.InvokeTimeout,
		func(d time.Duration) error {
			r.abandon("invoke")
			return &module.ModuleCallError{Call: module.CallRunTests, Cause: fmt.Errorf("no result within %s", d)}
		},
		invoker.Invoke,
	)
	if err != nil {
		return report.RunResult{}, err
	}

	r.opts.Presenter.Present(result.Details)
	total, failed := result.CaseCounts()
	r.opts.Presenter.LogMessage(
		fmt.Sprintf("Module finished with status %d: %d of %d cases failed", result.StatusCode, failed, total),
		!result.Success,
	)
	return result, nil
}

func (r *Runner) acquireWithRetry(ctx context.Context) (gpu.Device, error) {
	var device gpu.Device
	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			r.opts.Presenter.LogMessage(fmt.Sprintf("Retrying device acquisition (attempt %d)", attempt), false)
		}
		d, err := r.acquire(ctx)
		if err != nil {
			return err
		}
		device = d
		return nil
	}

	b := r.opts.RetryBackOff
	if b == nil {
		b = backoff.NewExponentialBackOff()
	}
	var policy backoff.BackOff = backoff.WithMaxRetries(b, uint64(max(r.opts.AcquireRetries, 0)))
	policy = backoff.WithContext(policy, ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return device, nil
}

// acquire performs the two acquisition steps. The adapter is only held for the duration of
// this call.
func (r *Runner) acquire(ctx context.Context) (gpu.Device, error) {
	r.transition(StateAcquiringAdapter)
	adapter, err := withDeadline(ctx, r.opts.AcquireTimeout,
		func(d time.Duration) error {
			r.abandon("adapter request")
			return fmt.Errorf("%w: no adapter within %s", gpu.ErrAdapterUnavailable, d)
		},
		func(ctx context.Context) (gpu.Adapter, error) {
			return gpu.RequestAdapter(ctx, r.opts.Host, r.opts.Acquire)
		},
	)
	if err != nil {
		return nil, err
	}
	info := adapter.Info()
	r.lock.Lock()
	r.adapter = info
	r.lock.Unlock()
	r.opts.Presenter.LogMessage(fmt.Sprintf("Using adapter %s", info), false)

	r.transition(StateAcquiringDevice)
	return withDeadline(ctx, r.opts.AcquireTimeout,
		func(d time.Duration) error {
			r.abandon("device request")
			return fmt.Errorf("%w: no device within %s", gpu.ErrDeviceUnavailable, d)
		},
		func(ctx context.Context) (gpu.Device, error) {
			return gpu.RequestDevice(ctx, adapter, r.opts.Acquire.Device)
		},
	)
}

func (r *Runner) archive(ctx context.Context, result report.RunResult) {
	if r.opts.Archive == nil {
		return
	}
	r.lock.Lock()
	adapter := r.adapter
	r.lock.Unlock()
	record := report.Record{
		RunID:    r.opts.RunID,
		Finished: time.Now(),
		Adapter:  adapter.String(),
		Result:   result,
	}
	if err := r.opts.Archive.Store(ctx, record); err != nil {
		r.opts.Presenter.LogMessage(fmt.Sprintf("Could not archive run in %s: %s", r.opts.Archive.DSN(), err), true)
		return
	}
	r.opts.Logger.Printf("Archived run %s in %s", r.opts.RunID, r.opts.Archive.DSN())
}

func (r *Runner) abandon(step string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.abandoned == "" {
		r.abandoned = step
	}
}

// Abandoned returns true if a step timed out and was left running. Its goroutine may still be
// using the host and the device, so the caller must not release them either.
func (r *Runner) Abandoned() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.abandoned != ""
}

// Close releases the run's device if it supports being destroyed. Nothing is released after an
// abandoned step; process exit reclaims the device instead.
func (r *Runner) Close() error {
	r.lock.Lock()
	abandoned := r.abandoned
	r.lock.Unlock()
	device, ok := r.slot.Device()
	if !ok {
		return nil
	}
	if abandoned != "" {
		r.opts.Logger.Printf("Not destroying device %q: %s step is still running", device.Label(), abandoned)
		return nil
	}
	r.slot.SetDevice(nil)
	if d, ok := device.(interface{ Destroy() error }); ok {
		return d.Destroy()
	}
	return nil
}

// IsSetupFailure is true for errors that stopped the run before the module was called.
func IsSetupFailure(err error) bool {
	return errors.Is(err, gpu.ErrCapabilityUnsupported) ||
		errors.Is(err, gpu.ErrAdapterUnavailable) ||
		errors.Is(err, gpu.ErrDeviceUnavailable) ||
		errors.Is(err, gpu.ErrDeviceNotReady)
}
