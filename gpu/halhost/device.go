package halhost

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/labfont/gpu-test-harness/framework"
	"github.com/labfont/gpu-test-harness/gpu"
)

// Names of the limits that can be requested in a gpu.DeviceDescriptor. They use the WebGPU
// spelling.
const (
	LimitMaxBufferSize            = "maxBufferSize"
	LimitMaxComputeWorkgroupSizeX = "maxComputeWorkgroupSizeX"
	LimitMaxComputeWorkgroupSizeY = "maxComputeWorkgroupSizeY"
	LimitMaxComputeWorkgroupSizeZ = "maxComputeWorkgroupSizeZ"
)

// Adapter is a gpu.Adapter wrapping one HAL adapter.
type Adapter struct {
	exposed     hal.ExposedAdapter
	backendName string
	logger      framework.Logger
}

func (a *Adapter) Info() gpu.AdapterInfo {
	return gpu.AdapterInfo{
		Name:       a.exposed.Info.Name,
		Backend:    a.backendName,
		DeviceType: fmt.Sprintf("%v", a.exposed.Info.DeviceType),
	}
}

// RequestDevice opens a logical device. Optional features are not exposed by this host, so any
// non-empty feature set fails.
func (a *Adapter) RequestDevice(ctx context.Context, desc gpu.DeviceDescriptor) (gpu.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(desc.RequiredFeatures) != 0 {
		return nil, fmt.Errorf("features not supported by %s backend: %v", a.backendName, desc.RequiredFeatures)
	}
	limits := gputypes.DefaultLimits()
	for _, name := range desc.LimitNames() {
		if err := applyLimit(&limits, name, desc.RequiredLimits[name]); err != nil {
			return nil, err
		}
	}
	openDev, err := a.exposed.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}
	a.logger.Printf("Opened device %q with %s", deviceLabel, desc)
	return &Device{device: openDev.Device, queue: openDev.Queue, limits: limits}, nil
}

func applyLimit(limits *gputypes.Limits, name string, value float64) error {
	if value < 0 || value != math.Trunc(value) {
		return fmt.Errorf("limit %s must be a non-negative integer, got %v", name, value)
	}
	switch name {
	case LimitMaxBufferSize:
		// float64(math.MaxUint64) rounds up to 2^64, which no longer fits.
		if value >= math.MaxUint64 {
			return fmt.Errorf("limit %s is out of range: %v", name, value)
		}
		limits.MaxBufferSize = uint64(value)
		return nil
	}
	if value > math.MaxUint32 {
		return fmt.Errorf("limit %s is out of range: %v", name, value)
	}
	switch name {
	case LimitMaxComputeWorkgroupSizeX:
		limits.MaxComputeWorkgroupSizeX = uint32(value)
	case LimitMaxComputeWorkgroupSizeY:
		limits.MaxComputeWorkgroupSizeY = uint32(value)
	case LimitMaxComputeWorkgroupSizeZ:
		limits.MaxComputeWorkgroupSizeZ = uint32(value)
	default:
		return fmt.Errorf("unrecognized limit %q", name)
	}
	return nil
}

// Device is a gpu.Device backed by a HAL device and its queue.
type Device struct {
	device hal.Device
	queue  hal.Queue
	limits gputypes.Limits
}

func (d *Device) Label() string { return deviceLabel }

func (d *Device) Features() []string { return []string{} }

// Limits returns the effective values of the limits that can be requested.
func (d *Device) Limits() map[string]float64 {
	return map[string]float64{
		LimitMaxBufferSize:            float64(d.limits.MaxBufferSize),
		LimitMaxComputeWorkgroupSizeX: float64(d.limits.MaxComputeWorkgroupSizeX),
		LimitMaxComputeWorkgroupSizeY: float64(d.limits.MaxComputeWorkgroupSizeY),
		LimitMaxComputeWorkgroupSizeZ: float64(d.limits.MaxComputeWorkgroupSizeZ),
	}
}

// HAL returns the underlying device and queue, for test code that issues GPU work directly.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.device, d.queue }

// Destroy releases the device. It is not called during a normal run; process exit reclaims it.
func (d *Device) Destroy() error {
	if d.device == nil {
		return errors.New("device already destroyed")
	}
	d.device.Destroy()
	d.device, d.queue = nil, nil
	return nil
}

var (
	_ gpu.Adapter = (*Adapter)(nil)
	_ gpu.Device  = (*Device)(nil)
)
