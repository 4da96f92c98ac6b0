package servicedef

import (
	"github.com/labfont/gpu-test-harness/gpu"
)

const (
	// CapabilitySelfAcquire means the module negotiates its own device through the adapter and
	// device callbacks, instead of only using the device described in CreateInstanceParams.
	CapabilitySelfAcquire = "self-acquire"

	// CapabilityProgress means the module may call the progress and log callbacks.
	CapabilityProgress = "progress"
)

// CreateInstanceParams is the body of the request that creates a module instance.
type CreateInstanceParams struct {
	Tag         string     `json:"tag"`
	Device      DeviceInfo `json:"device"`
	CallbackURL string     `json:"callbackUrl,omitempty"`
}

// DeviceInfo describes the device the harness acquired.
type DeviceInfo struct {
	Label    string             `json:"label"`
	Features []string           `json:"features"`
	Limits   map[string]float64 `json:"limits"`
}

// DeviceInfoFor describes a device for the wire.
func DeviceInfoFor(device gpu.Device) DeviceInfo {
	features := device.Features()
	if features == nil {
		features = []string{}
	}
	limits := device.Limits()
	if limits == nil {
		limits = map[string]float64{}
	}
	return DeviceInfo{Label: device.Label(), Features: features, Limits: limits}
}
