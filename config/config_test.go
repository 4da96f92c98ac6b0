package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labfont/gpu-test-harness/gpu"
	"github.com/labfont/gpu-test-harness/gpu/halhost"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "harness.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, halhost.BackendVulkan, c.Backend)
	assert.Equal(t, gpu.PowerPreferenceHighPerformance, c.PowerPreference)
	assert.Equal(t, 0, c.AcquireRetries)

	opts := c.AcquireOptions()
	assert.Empty(t, opts.Device.RequiredFeatures)
	assert.Empty(t, opts.Device.RequiredLimits)
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := writeFile(t, `
backend: noop
powerPreference: low-power
requiredLimits:
  maxBufferSize: 4096
acquireRetries: 2
acquireTimeout: 5s
`)
	c := Default()
	require.NoError(t, c.Load(path))
	require.NoError(t, c.Validate())

	assert.Equal(t, halhost.BackendNoop, c.Backend)
	assert.Equal(t, gpu.PowerPreferenceLowPower, c.PowerPreference)
	assert.Equal(t, map[string]float64{"maxBufferSize": 4096}, c.RequiredLimits)
	assert.Equal(t, 2, c.AcquireRetries)
	assert.Equal(t, Duration(5*time.Second), c.AcquireTimeout)
	assert.Equal(t, DefaultPort, c.Port)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, `{"serviceUrl": "http://localhost:9000", "invokeTimeout": "1m"}`)
	c := Default()
	require.NoError(t, c.Load(path))
	assert.Equal(t, "http://localhost:9000", c.ServiceURL)
	assert.Equal(t, Duration(time.Minute), c.InvokeTimeout)
}

func TestLoadErrors(t *testing.T) {
	c := Default()
	assert.Error(t, c.Load(filepath.Join(t.TempDir(), "missing.yml")))
	assert.Error(t, c.Load(writeFile(t, `acquireTimeout: 12`)))
	assert.Error(t, c.Load(writeFile(t, `acquireTimeout: soon`)))

	path := writeFile(t, "backend: [noop\n")
	err := c.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path+" (YAML)")
}

func TestValidateRejectsBadValues(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"power preference": func(c *Config) { c.PowerPreference = "fast" },
		"backend":          func(c *Config) { c.Backend = "metal" },
		"retries":          func(c *Config) { c.AcquireRetries = -1 },
		"timeout":          func(c *Config) { c.InvokeTimeout = Duration(-time.Second) },
	} {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
