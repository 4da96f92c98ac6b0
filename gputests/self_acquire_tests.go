package gputests

import (
	"github.com/labfont/gpu-test-harness/framework/ldtest"

	"github.com/stretchr/testify/require"
)

type destroyable interface {
	Destroy() error
}

func doSelfAcquisitionTests(t *ldtest.T) {
	t.Run("acquire second device", func(t *ldtest.T) {
		t.RequireCapability(CapabilitySelfAcquire)
		c := requireContext(t)
		acquirers, _ := c.slot.Acquirers()

		// The helper writes the new device into the slot; put the run's device back afterward.
		t.Defer(func() { c.slot.SetDevice(c.device) })

		adapter, err := acquirers.AcquireAdapter(c.ctx)
		require.NoError(t, err)
		require.NotNil(t, adapter)
		t.Debug("adapter: %s", adapter.Info())

		device, err := acquirers.AcquireDevice(c.ctx, adapter)
		require.NoError(t, err)
		require.NotNil(t, device)
		if d, ok := device.(destroyable); ok {
			t.Defer(func() { _ = d.Destroy() })
		}

		current, ok := c.slot.Device()
		require.True(t, ok)
		require.Same(t, device, current, "acquired device was not written into the slot")
	})
}
