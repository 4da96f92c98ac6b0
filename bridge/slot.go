// Package bridge is the shared channel between the harness and a test module. In the outbound
// direction it carries the acquired device to the module; in the inbound direction it publishes
// acquisition helpers and a progress reporter the module may call.
package bridge

import (
	"context"
	"sync/atomic"

	"github.com/labfont/gpu-test-harness/gpu"
)

// Acquirers are the helpers a module can use to negotiate its own device.
type Acquirers struct {
	AcquireAdapter func(ctx context.Context) (gpu.Adapter, error)
	AcquireDevice  func(ctx context.Context, adapter gpu.Adapter) (gpu.Device, error)
}

type deviceBox struct {
	device gpu.Device
}

// Slot holds the state shared with one module for one run. It is created by the runner and
// passed by reference to everything that reads or writes it; there is no global instance.
//
// All accessors are safe for concurrent use. A write replaces the whole value, so a reader
// sees either the previous device or the new one.
type Slot struct {
	device    atomic.Pointer[deviceBox]
	acquirers atomic.Pointer[Acquirers]
	reporter  atomic.Pointer[reporterBox]
}

type reporterBox struct {
	reporter ProgressReporter
}

func NewSlot() *Slot {
	return &Slot{}
}

// SetDevice stores the device that tests will run against. A nil device clears the slot.
func (s *Slot) SetDevice(device gpu.Device) {
	if device == nil {
		s.device.Store(nil)
		return
	}
	s.device.Store(&deviceBox{device: device})
}

// Device returns the stored device, and false if none has been stored.
func (s *Slot) Device() (gpu.Device, bool) {
	box := s.device.Load()
	if box == nil {
		return nil, false
	}
	return box.device, true
}

// PublishAcquirers makes the two acquisition steps available to the module, bound to the given
// host and options. A device obtained through AcquireDevice is also stored in the slot.
func (s *Slot) PublishAcquirers(host gpu.Host, options gpu.AcquireOptions) {
	s.acquirers.Store(&Acquirers{
		AcquireAdapter: func(ctx context.Context) (gpu.Adapter, error) {
			return gpu.RequestAdapter(ctx, host, options)
		},
		AcquireDevice: func(ctx context.Context, adapter gpu.Adapter) (gpu.Device, error) {
			if adapter == nil {
				return nil, gpu.ErrAdapterUnavailable
			}
			device, err := gpu.RequestDevice(ctx, adapter, options.Device)
			if err != nil {
				return nil, err
			}
			s.SetDevice(device)
			return device, nil
		},
	})
}

// Acquirers returns the published helpers, and false if PublishAcquirers was never called.
func (s *Slot) Acquirers() (Acquirers, bool) {
	a := s.acquirers.Load()
	if a == nil {
		return Acquirers{}, false
	}
	return *a, true
}

// SetReporter publishes the receiver for the module's progress and log calls.
func (s *Slot) SetReporter(reporter ProgressReporter) {
	s.reporter.Store(&reporterBox{reporter: reporter})
}

// Reporter returns the published reporter, or a reporter that discards everything.
func (s *Slot) Reporter() ProgressReporter {
	if box := s.reporter.Load(); box != nil && box.reporter != nil {
		return box.reporter
	}
	return NullReporter()
}
