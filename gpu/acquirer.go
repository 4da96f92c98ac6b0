package gpu

import (
	"context"
	"fmt"
)

// RequestAdapter is the first acquisition step. A host that returns no adapter and no error is
// reported as ErrAdapterUnavailable, the same as a host error.
func RequestAdapter(ctx context.Context, host Host, options AcquireOptions) (Adapter, error) {
	adapterOptions := options.adapterOptions()
	adapter, err := host.RequestAdapter(ctx, adapterOptions)
	if err != nil {
		return nil, fmt.Errorf("%w (powerPreference=%s): %w", ErrAdapterUnavailable, adapterOptions.PowerPreference, err)
	}
	if adapter == nil {
		return nil, fmt.Errorf("%w (powerPreference=%s)", ErrAdapterUnavailable, adapterOptions.PowerPreference)
	}
	return adapter, nil
}

// RequestDevice is the second acquisition step. It must only be called with an adapter returned
// by RequestAdapter.
func RequestDevice(ctx context.Context, adapter Adapter, desc DeviceDescriptor) (Device, error) {
	desc = desc.Normalized()
	device, err := adapter.RequestDevice(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("%w (%s): %w", ErrDeviceUnavailable, desc, err)
	}
	if device == nil {
		return nil, fmt.Errorf("%w (%s)", ErrDeviceUnavailable, desc)
	}
	return device, nil
}

// AcquireDevice negotiates an adapter and then a device. On success it returns exactly one
// Device; on failure the Device is always nil. It does not retry: repeating a hardware
// negotiation with the same parameters is the caller's decision.
func AcquireDevice(ctx context.Context, host Host, options AcquireOptions) (Device, error) {
	adapter, err := RequestAdapter(ctx, host, options)
	if err != nil {
		return nil, err
	}
	return RequestDevice(ctx, adapter, options.Device)
}
