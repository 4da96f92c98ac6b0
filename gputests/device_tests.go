package gputests

import (
	"github.com/labfont/gpu-test-harness/framework/ldtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doDeviceTests(t *ldtest.T) {
	t.Run("has device", func(t *ldtest.T) {
		c := requireContext(t)
		device, ok := c.slot.Device()
		require.True(t, ok, "slot has no device")
		require.NotNil(t, device)
		assert.NotEmpty(t, device.Label(), "device has no label")
		t.Debug("device label: %s", device.Label())
	})

	t.Run("features satisfied", func(t *ldtest.T) {
		c := requireContext(t)
		features := c.device.Features()
		for _, f := range c.expected.RequiredFeatures {
			assert.Contains(t, features, f, "required feature %q is missing", f)
		}
	})

	t.Run("limits satisfied", func(t *ldtest.T) {
		c := requireContext(t)
		limits := c.device.Limits()
		for _, name := range c.expected.LimitNames() {
			actual, ok := limits[name]
			if !assert.True(t, ok, "device does not report limit %q", name) {
				continue
			}
			assert.GreaterOrEqual(t, actual, c.expected.RequiredLimits[name], "limit %q is lower than requested", name)
		}
	})
}
