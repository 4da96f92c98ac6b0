package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labfont/gpu-test-harness/config"
	"github.com/labfont/gpu-test-harness/gpu"
	"github.com/labfont/gpu-test-harness/report"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harness.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: noop
powerPreference: low-power
acquireRetries: 3
requiredLimits:
  maxBufferSize: 1024
`), 0o600))

	var params commandParams
	require.True(t, params.Read([]string{"harness",
		"-config", path,
		"-acquire-retries", "1",
		"-limit", "maxComputeWorkgroupSizeX=64",
		"-invoke-timeout", "2s",
	}))

	c := params.config
	assert.Equal(t, "noop", c.Backend)
	assert.Equal(t, gpu.PowerPreferenceLowPower, c.PowerPreference)
	assert.Equal(t, 1, c.AcquireRetries)
	assert.Equal(t, map[string]float64{"maxComputeWorkgroupSizeX": 64}, c.RequiredLimits)
	assert.Equal(t, config.Duration(2*time.Second), c.InvokeTimeout)
	assert.Equal(t, config.DefaultPort, c.Port)
}

func TestDefaultParams(t *testing.T) {
	var params commandParams
	require.True(t, params.Read([]string{"harness"}))
	assert.Equal(t, config.Default(), params.config)
	assert.False(t, params.failExitCode)

	require.True(t, params.Read([]string{"harness", "-fail-exit-code"}))
	assert.True(t, params.failExitCode)
}

func TestInvalidPowerPreferenceInFileIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harness.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"powerPreference": "fast"}`), 0o600))

	var params commandParams
	assert.False(t, params.Read([]string{"harness", "-config", path}))
}

func TestLimitList(t *testing.T) {
	l := make(limitList)
	require.NoError(t, l.Set("maxBufferSize=256"))
	assert.Equal(t, 256.0, l["maxBufferSize"])
	assert.Error(t, l.Set("maxBufferSize"))
	assert.Error(t, l.Set("=3"))
	assert.Error(t, l.Set("maxBufferSize=lots"))
}

func TestRecordedFailuresCanBeSuppressed(t *testing.T) {
	dir := t.TempDir()
	failures := filepath.Join(dir, "failures.txt")
	result := report.RunResult{Details: []report.TestSuite{{Name: "device", Tests: []report.TestCase{
		{Name: "has device", Passed: true},
		{Name: "limits satisfied", Message: ldvalue.NewOptionalString("too low")},
	}}}}
	require.NoError(t, writeFailures(failures, result))

	data, err := os.ReadFile(failures)
	require.NoError(t, err)
	assert.Equal(t, "device/limits satisfied\n", string(data))

	params := commandParams{skipFile: failures}
	require.NoError(t, loadSuppressions(&params))
	assert.False(t, params.filters.Match([]string{"device", "limits satisfied"}))
	assert.True(t, params.filters.Match([]string{"device", "has device"}))
}
