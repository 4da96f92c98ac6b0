// Package halhost implements the gpu.Host interface on top of the gogpu/wgpu hardware
// abstraction layer. The "vulkan" backend talks to real hardware; the "noop" backend creates
// devices that accept every call and is used for dry runs and tests.
package halhost

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	// Registers the Vulkan backend via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/labfont/gpu-test-harness/framework"
	"github.com/labfont/gpu-test-harness/gpu"
)

const (
	BackendVulkan = "vulkan"
	BackendNoop   = "noop"
)

const deviceLabel = "gpu-test-harness-device"

type instanceFactory interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// Host is a gpu.Host backed by one HAL backend. The HAL instance is created on the first adapter
// request and kept until Close.
type Host struct {
	backendName string
	logger      framework.Logger
	instance    hal.Instance
	lock        sync.Mutex
}

// New creates a Host for the named backend. It does not touch the hardware.
func New(backendName string, logger framework.Logger) (*Host, error) {
	switch backendName {
	case BackendVulkan, BackendNoop:
	default:
		return nil, fmt.Errorf("unknown GPU backend %q (expected %q or %q)", backendName, BackendVulkan, BackendNoop)
	}
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &Host{backendName: backendName, logger: logger}, nil
}

func (h *Host) factory() (instanceFactory, bool) {
	if h.backendName == BackendNoop {
		return &noop.API{}, true
	}
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, false
	}
	return backend, true
}

// HasCapability reports whether the backend is registered in this process.
func (h *Host) HasCapability() bool {
	_, ok := h.factory()
	return ok
}

// RequestAdapter enumerates the adapters of the backend and picks one according to the power
// preference: a discrete GPU for high-performance, an integrated GPU for low-power, and
// otherwise the first adapter listed.
func (h *Host) RequestAdapter(ctx context.Context, options gpu.AdapterOptions) (gpu.Adapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	instance, err := h.getInstance()
	if err != nil {
		return nil, err
	}
	adapters := instance.EnumerateAdapters(nil)
	h.logger.Printf("Backend %s reported %d adapter(s)", h.backendName, len(adapters))
	if len(adapters) == 0 {
		return nil, nil
	}
	types := make([]gputypes.DeviceType, len(adapters))
	for i := range adapters {
		types[i] = adapters[i].Info.DeviceType
	}
	selected := adapters[pickAdapter(types, options.PowerPreference)]
	a := &Adapter{exposed: selected, backendName: h.backendName, logger: h.logger}
	h.logger.Printf("Selected adapter: %s", a.Info())
	return a, nil
}

func (h *Host) getInstance() (hal.Instance, error) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.instance != nil {
		return h.instance, nil
	}
	f, ok := h.factory()
	if !ok {
		return nil, fmt.Errorf("%s backend is not available", h.backendName)
	}
	instance, err := f.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	h.instance = instance
	return instance, nil
}

// Close releases the HAL instance. Devices handed out earlier should be destroyed first.
func (h *Host) Close() {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.instance != nil {
		h.instance.Destroy()
		h.instance = nil
	}
}

// pickAdapter returns the index of the first adapter of the preferred type, or 0.
func pickAdapter(types []gputypes.DeviceType, pref gpu.PowerPreference) int {
	wanted := gputypes.DeviceTypeDiscreteGPU
	if pref == gpu.PowerPreferenceLowPower {
		wanted = gputypes.DeviceTypeIntegratedGPU
	}
	for i, t := range types {
		if t == wanted {
			return i
		}
	}
	return 0
}

var _ gpu.Host = (*Host)(nil)
