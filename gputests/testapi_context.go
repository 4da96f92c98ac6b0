package gputests

import (
	"context"

	"github.com/labfont/gpu-test-harness/bridge"
	"github.com/labfont/gpu-test-harness/framework/ldtest"
	"github.com/labfont/gpu-test-harness/gpu"
)

// Capabilities that individual suites depend on. They are derived from the slot at the start of
// each run.
const (
	CapabilityHAL         = "hal"
	CapabilitySelfAcquire = "self-acquire"
)

// AllCapabilities lists every capability that some test may require.
func AllCapabilities() []string {
	return []string{CapabilityHAL, CapabilitySelfAcquire}
}

// GPUTestContext is the application context shared by every test scope in a run.
type GPUTestContext struct {
	ctx      context.Context
	slot     *bridge.Slot
	device   gpu.Device
	expected gpu.DeviceDescriptor
}

func requireContext(t *ldtest.T) GPUTestContext {
	if c, ok := t.Context().(GPUTestContext); ok {
		return c
	}
	panic("GPUTestContext was not included in the global test configuration!" +
		" This is a basic mistake in the initialization logic.")
}

func capabilitiesOf(slot *bridge.Slot, device gpu.Device) []string {
	var caps []string
	if _, ok := device.(halBacked); ok {
		caps = append(caps, CapabilityHAL)
	}
	if _, ok := slot.Acquirers(); ok {
		caps = append(caps, CapabilitySelfAcquire)
	}
	return caps
}
