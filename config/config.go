// Package config holds the settings for a harness run, which can come from a JSON or YAML file
// as well as from command-line flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/labfont/gpu-test-harness/gpu"
	"github.com/labfont/gpu-test-harness/gpu/halhost"
)

// Duration is a time.Duration that is written in config files as a string such as "30s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config is the complete set of options for one run. Zero values mean the defaults described
// on each field.
type Config struct {
	// Backend is the HAL backend used when no module service URL is given: "vulkan" (default)
	// or "noop".
	Backend string `json:"backend,omitempty"`

	// RequireNVIDIA adds an NVML pre-flight check to the capability probe.
	RequireNVIDIA bool `json:"requireNvidia,omitempty"`

	PowerPreference  gpu.PowerPreference `json:"powerPreference,omitempty"`
	RequiredFeatures []string            `json:"requiredFeatures,omitempty"`
	RequiredLimits   map[string]float64  `json:"requiredLimits,omitempty"`

	// AcquireRetries is the number of extra acquisition attempts after a failure. Default 0.
	AcquireRetries int      `json:"acquireRetries,omitempty"`
	AcquireTimeout Duration `json:"acquireTimeout,omitempty"`
	InvokeTimeout  Duration `json:"invokeTimeout,omitempty"`

	// ServiceURL selects a remote module service instead of the built-in module.
	ServiceURL string `json:"serviceUrl,omitempty"`
	Host       string `json:"host,omitempty"`
	Port       int    `json:"port,omitempty"`

	JUnitFile  string `json:"junit,omitempty"`
	StreamPort int    `json:"streamPort,omitempty"`
	Archive    string `json:"archive,omitempty"`
}

const (
	DefaultHost = "localhost"
	DefaultPort = 8111
)

// Default returns a Config with every default filled in.
func Default() Config {
	return Config{
		Backend:         halhost.BackendVulkan,
		PowerPreference: gpu.PowerPreferenceHighPerformance,
		Host:            DefaultHost,
		Port:            DefaultPort,
	}
}

// Load reads a JSON or YAML file on top of the receiver's current values.
func (c *Config) Load(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("cannot read config file: %w", err)
	}
	if err := Parse(path, data, c); err != nil {
		return fmt.Errorf("cannot parse config file %w", err)
	}
	return nil
}

// Validate rejects values that could never work, so that the run fails before touching the
// hardware.
func (c Config) Validate() error {
	if _, err := gpu.ParsePowerPreference(string(c.PowerPreference)); err != nil {
		return err
	}
	switch c.Backend {
	case halhost.BackendVulkan, halhost.BackendNoop:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.AcquireRetries < 0 {
		return fmt.Errorf("acquireRetries cannot be negative")
	}
	if c.AcquireTimeout < 0 || c.InvokeTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	return nil
}

// AcquireOptions returns the options for the Device Acquirer.
func (c Config) AcquireOptions() gpu.AcquireOptions {
	return gpu.AcquireOptions{
		PowerPreference: c.PowerPreference,
		Device: gpu.DeviceDescriptor{
			RequiredFeatures: c.RequiredFeatures,
			RequiredLimits:   c.RequiredLimits,
		},
	}
}
