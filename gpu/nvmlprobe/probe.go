// Package nvmlprobe provides a gpu.Prober that asks the NVIDIA management library whether any
// NVIDIA device is present. The library is only linked when building with the nvml tag, which
// requires cgo. Other builds always report unavailable.
package nvmlprobe

import "github.com/labfont/gpu-test-harness/gpu"

// Probe is a gpu.Prober for NVIDIA devices.
type Probe struct {
	lib library
}

type library interface {
	deviceCount() (int, error)
}

// New returns a Probe that queries the real management library.
func New() *Probe {
	return &Probe{lib: nvmlLibrary{}}
}

func (p *Probe) Name() string { return "nvml" }

// Available is true if the library initializes and reports at least one device.
func (p *Probe) Available() (bool, error) {
	n, err := p.lib.deviceCount()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ gpu.Prober = (*Probe)(nil)
