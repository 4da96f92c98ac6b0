package gpu

import "errors"

// Errors that terminate a test run. They are always wrapped with more detail, so callers should
// match them with errors.Is.
var (
	// ErrCapabilityUnsupported means the host has no hardware acceleration capability at all.
	ErrCapabilityUnsupported = errors.New("hardware acceleration is not supported on this host")

	// ErrAdapterUnavailable means the host found no adapter matching the request.
	ErrAdapterUnavailable = errors.New("no GPU adapter available")

	// ErrDeviceUnavailable means the adapter could not provide a device with the requested
	// features and limits.
	ErrDeviceUnavailable = errors.New("GPU device unavailable")

	// ErrDeviceNotReady means a test invocation was attempted before a device was placed in
	// the shared slot. This is an ordering error in the caller.
	ErrDeviceNotReady = errors.New("GPU device not initialized")

	// ErrModuleCallFailure means a call into the test module failed or panicked.
	ErrModuleCallFailure = errors.New("test module call failed")
)
