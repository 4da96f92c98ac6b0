package gpu

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// PowerPreference is the adapter selection hint passed to Host.RequestAdapter.
type PowerPreference string

const (
	PowerPreferenceHighPerformance PowerPreference = "high-performance"
	PowerPreferenceLowPower        PowerPreference = "low-power"
)

// ParsePowerPreference accepts the two values recognized by RequestAdapter. An empty string
// means the default, high-performance.
func ParsePowerPreference(s string) (PowerPreference, error) {
	switch PowerPreference(s) {
	case "", PowerPreferenceHighPerformance:
		return PowerPreferenceHighPerformance, nil
	case PowerPreferenceLowPower:
		return PowerPreferenceLowPower, nil
	}
	return "", fmt.Errorf("invalid power preference %q (expected %q or %q)",
		s, PowerPreferenceHighPerformance, PowerPreferenceLowPower)
}

func (p PowerPreference) String() string { return string(p) }

// Set is called by the command line parser
func (p *PowerPreference) Set(value string) error {
	parsed, err := ParsePowerPreference(value)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// AdapterOptions is the parameter for Host.RequestAdapter.
type AdapterOptions struct {
	PowerPreference PowerPreference `json:"powerPreference"`
}

// DeviceDescriptor is the parameter for Adapter.RequestDevice. Both fields may be empty, which
// requests a device with no optional features and the host's default limits.
type DeviceDescriptor struct {
	RequiredFeatures []string           `json:"requiredFeatures"`
	RequiredLimits   map[string]float64 `json:"requiredLimits"`
}

// Normalized returns a copy with the feature set sorted and deduplicated, and with non-nil
// collections.
func (d DeviceDescriptor) Normalized() DeviceDescriptor {
	features := append([]string{}, d.RequiredFeatures...)
	slices.Sort(features)
	limits := make(map[string]float64, len(d.RequiredLimits))
	maps.Copy(limits, d.RequiredLimits)
	return DeviceDescriptor{RequiredFeatures: slices.Compact(features), RequiredLimits: limits}
}

// LimitNames returns the requested limit names in sorted order.
func (d DeviceDescriptor) LimitNames() []string {
	names := maps.Keys(d.RequiredLimits)
	slices.Sort(names)
	return names
}

func (d DeviceDescriptor) String() string {
	limits := make([]string, 0, len(d.RequiredLimits))
	for _, name := range d.LimitNames() {
		limits = append(limits, fmt.Sprintf("%s=%v", name, d.RequiredLimits[name]))
	}
	return fmt.Sprintf("features=[%s] limits=[%s]",
		strings.Join(d.RequiredFeatures, ","), strings.Join(limits, ","))
}

// AcquireOptions is everything the Device Acquirer needs for both of its steps.
type AcquireOptions struct {
	PowerPreference PowerPreference
	Device          DeviceDescriptor
}

func (o AcquireOptions) adapterOptions() AdapterOptions {
	pref := o.PowerPreference
	if pref == "" {
		pref = PowerPreferenceHighPerformance
	}
	return AdapterOptions{PowerPreference: pref}
}

// AdapterInfo describes an adapter for logging.
type AdapterInfo struct {
	Name       string `json:"name"`
	Backend    string `json:"backend"`
	DeviceType string `json:"deviceType"`
}

func (a AdapterInfo) String() string {
	return fmt.Sprintf("%s (%s, %s)", a.Name, a.DeviceType, a.Backend)
}

// Host is the environment that owns the graphics hardware.
type Host interface {
	// HasCapability reports whether the host exposes hardware acceleration at all.
	HasCapability() bool

	// RequestAdapter returns an adapter matching the options. A nil Adapter with a nil error
	// means no adapter matched.
	RequestAdapter(ctx context.Context, options AdapterOptions) (Adapter, error)
}

// Adapter is a selectable acceleration backend. It is only used to request a Device.
type Adapter interface {
	Info() AdapterInfo
	RequestDevice(ctx context.Context, desc DeviceDescriptor) (Device, error)
}

// Device is the logical handle that test code issues work through.
type Device interface {
	Label() string
	Features() []string
	Limits() map[string]float64
}
