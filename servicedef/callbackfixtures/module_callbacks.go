package callbackfixtures

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/labfont/gpu-test-harness/gpu"
	"github.com/labfont/gpu-test-harness/servicedef"
)

const (
	CallbackPathAcquireAdapter = "/adapter"
	CallbackPathAcquireDevice  = "/device"
	CallbackPathReportProgress = "/progress"
	CallbackPathLogMessage     = "/log"
)

// AcquireAdapterResponse is returned by the adapter callback. The adapter stays with the harness;
// the next device callback uses it.
type AcquireAdapterResponse struct {
	Adapter gpu.AdapterInfo `json:"adapter"`
}

// AcquireDeviceResponse is returned by the device callback. The device is also stored as the
// device for the run.
type AcquireDeviceResponse struct {
	Device servicedef.DeviceInfo `json:"device"`
}

type ReportProgressParams struct {
	Passed  int                    `json:"passed"`
	Total   int                    `json:"total"`
	Message ldvalue.OptionalString `json:"message"`
}

type LogMessageParams struct {
	Text    string `json:"text"`
	IsError bool   `json:"isError"`
}
