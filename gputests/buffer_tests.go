package gputests

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/labfont/gpu-test-harness/framework/ldtest"

	"github.com/stretchr/testify/require"
)

const testBufferSize = 256

// halBacked is implemented by devices that expose their HAL device and queue, such as
// halhost.Device.
type halBacked interface {
	HAL() (hal.Device, hal.Queue)
}

func doBufferTests(t *ldtest.T) {
	var buffer hal.Buffer
	var halDevice hal.Device
	var queue hal.Queue
	if d, ok := requireContext(t).device.(halBacked); ok {
		halDevice, queue = d.HAL()
	}
	t.Defer(func() {
		if buffer != nil {
			halDevice.DestroyBuffer(buffer)
		}
	})

	t.Run("create storage buffer", func(t *ldtest.T) {
		t.RequireCapability(CapabilityHAL)
		b, err := halDevice.CreateBuffer(&hal.BufferDescriptor{
			Label: "gpu-test-harness-storage",
			Size:  testBufferSize,
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
		})
		require.NoError(t, err)
		require.NotNil(t, b)
		buffer = b
	})

	t.Run("write buffer", func(t *ldtest.T) {
		t.RequireCapability(CapabilityHAL)
		require.NotNil(t, buffer, "no buffer was created")
		data := make([]byte, testBufferSize)
		for i := range data {
			data[i] = byte(i)
		}
		queue.WriteBuffer(buffer, 0, data)
	})

	t.Run("destroy buffer", func(t *ldtest.T) {
		t.RequireCapability(CapabilityHAL)
		require.NotNil(t, buffer, "no buffer was created")
		halDevice.DestroyBuffer(buffer)
		buffer = nil
	})
}
