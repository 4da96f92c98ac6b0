// Package gpufake provides in-memory implementations of the gpu interfaces that record how they
// were called, for use in tests.
package gpufake

import (
	"context"
	"sync"

	"github.com/labfont/gpu-test-harness/gpu"
)

// CallLog records named calls in the order they happened. It can be shared between fakes and a
// test module to check the ordering of calls across components.
type CallLog struct {
	calls []string
	lock  sync.Mutex
}

func (c *CallLog) Record(name string) {
	if c == nil {
		return
	}
	c.lock.Lock()
	c.calls = append(c.calls, name)
	c.lock.Unlock()
}

func (c *CallLog) Calls() []string {
	if c == nil {
		return nil
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]string(nil), c.calls...)
}

// Count returns the number of times the named call was recorded.
func (c *CallLog) Count(name string) int {
	n := 0
	for _, call := range c.Calls() {
		if call == name {
			n++
		}
	}
	return n
}

// Host is a fake gpu.Host. If Adapter is nil, RequestAdapter reports that no adapter matched.
type Host struct {
	Capable    bool
	Adapter    *Adapter
	AdapterErr error
	Log        *CallLog

	adapterRequests []gpu.AdapterOptions
	lock            sync.Mutex
}

// Adapter is a fake gpu.Adapter. If Device is nil, RequestDevice returns no device.
type Adapter struct {
	AdapterInfo gpu.AdapterInfo
	Device      *Device
	DeviceErr   error
	Log         *CallLog

	deviceRequests []gpu.DeviceDescriptor
	lock           sync.Mutex
}

// Device is a fake gpu.Device.
type Device struct {
	Name        string
	FeatureList []string
	LimitMap    map[string]float64
	Log         *CallLog
}

// NewWorkingHost returns a Host whose adapter and device requests succeed.
func NewWorkingHost(log *CallLog) *Host {
	return &Host{
		Capable: true,
		Adapter: &Adapter{
			AdapterInfo: gpu.AdapterInfo{Name: "fake adapter", Backend: "fake", DeviceType: "virtual"},
			Device:      &Device{Name: "fake device"},
			Log:         log,
		},
		Log: log,
	}
}

func (h *Host) HasCapability() bool {
	h.Log.Record("HasCapability")
	return h.Capable
}

func (h *Host) RequestAdapter(_ context.Context, options gpu.AdapterOptions) (gpu.Adapter, error) {
	h.Log.Record("RequestAdapter")
	h.lock.Lock()
	h.adapterRequests = append(h.adapterRequests, options)
	h.lock.Unlock()
	if h.AdapterErr != nil {
		return nil, h.AdapterErr
	}
	if h.Adapter == nil {
		return nil, nil
	}
	return h.Adapter, nil
}

// AdapterRequests returns the options of every RequestAdapter call so far.
func (h *Host) AdapterRequests() []gpu.AdapterOptions {
	h.lock.Lock()
	defer h.lock.Unlock()
	return append([]gpu.AdapterOptions(nil), h.adapterRequests...)
}

func (a *Adapter) Info() gpu.AdapterInfo { return a.AdapterInfo }

func (a *Adapter) RequestDevice(_ context.Context, desc gpu.DeviceDescriptor) (gpu.Device, error) {
	a.Log.Record("RequestDevice")
	a.lock.Lock()
	a.deviceRequests = append(a.deviceRequests, desc)
	a.lock.Unlock()
	if a.DeviceErr != nil {
		return nil, a.DeviceErr
	}
	if a.Device == nil {
		return nil, nil
	}
	return &Device{
		Name:        a.Device.Name,
		FeatureList: desc.RequiredFeatures,
		LimitMap:    desc.RequiredLimits,
		Log:         a.Log,
	}, nil
}

// DeviceRequests returns the descriptors of every RequestDevice call so far.
func (a *Adapter) DeviceRequests() []gpu.DeviceDescriptor {
	a.lock.Lock()
	defer a.lock.Unlock()
	return append([]gpu.DeviceDescriptor(nil), a.deviceRequests...)
}

func (d *Device) Label() string              { return d.Name }
func (d *Device) Features() []string         { return d.FeatureList }
func (d *Device) Limits() map[string]float64 { return d.LimitMap }

func (d *Device) Destroy() error {
	d.Log.Record("Destroy")
	return nil
}
