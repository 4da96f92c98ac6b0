//go:build !nvml

package nvmlprobe

import "errors"

// The real library is only linked with -tags nvml. It needs cgo, while the default vulkan
// backend is built with CGO_ENABLED=0.
type nvmlLibrary struct{}

func (nvmlLibrary) deviceCount() (int, error) {
	return 0, errors.New("NVML not available (built without the nvml tag)")
}
