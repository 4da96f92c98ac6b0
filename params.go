package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labfont/gpu-test-harness/config"
	"github.com/labfont/gpu-test-harness/framework/ldtest"
	"github.com/labfont/gpu-test-harness/gpu"
)

type commandParams struct {
	configFile       string
	config           config.Config
	filters          ldtest.RegexFilters
	skipFile         string
	recordFailures   string
	tag              string
	stopServiceAtEnd bool
	debug            bool
	debugAll         bool
	failExitCode     bool
}

// limitList collects repeated -limit name=value flags.
type limitList map[string]float64

func (l limitList) String() string {
	parts := make([]string, 0, len(l))
	for name, value := range l {
		parts = append(parts, fmt.Sprintf("%s=%v", name, value))
	}
	return strings.Join(parts, ",")
}

// Set is called by the command line parser
func (l limitList) Set(value string) error {
	name, raw, ok := strings.Cut(value, "=")
	if !ok || name == "" {
		return fmt.Errorf("limit must be name=value, got %q", value)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid value for limit %s: %w", name, err)
	}
	l[name] = v
	return nil
}

type featureList []string

func (f featureList) String() string { return strings.Join(f, ",") }

// Set is called by the command line parser
func (f *featureList) Set(value string) error {
	*f = append(*f, value)
	return nil
}

func (c *commandParams) Read(args []string) bool {
	// Flags are parsed into a separate Config and only copied over the file values if they were
	// actually given, so that a config file can supply anything a flag does.
	var fromFlags config.Config
	var powerPreference gpu.PowerPreference
	var features featureList
	limits := make(limitList)
	var acquireTimeout, invokeTimeout time.Duration

	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.StringVar(&c.configFile, "config", "", "JSON or YAML file with default settings")
	fs.StringVar(&fromFlags.ServiceURL, "url", "", "module service URL (default: use the built-in module)")
	fs.StringVar(&fromFlags.Host, "host", config.DefaultHost, "external hostname of the test harness")
	fs.IntVar(&fromFlags.Port, "port", config.DefaultPort, "port that the test harness will listen on")
	fs.StringVar(&fromFlags.Backend, "backend", "vulkan", "HAL backend for the GPU host: vulkan or noop")
	fs.BoolVar(&fromFlags.RequireNVIDIA, "require-nvidia", false, "require NVML to report at least one NVIDIA device")
	fs.Var(&powerPreference, "power-preference", "adapter power preference: high-performance or low-power")
	fs.Var(&features, "feature", "required device feature (repeatable)")
	fs.Var(limits, "limit", "required device limit as name=value (repeatable)")
	fs.IntVar(&fromFlags.AcquireRetries, "acquire-retries", 0, "extra attempts at adapter and device acquisition")
	fs.DurationVar(&acquireTimeout, "acquire-timeout", 0, "deadline for each acquisition step (0 = none)")
	fs.DurationVar(&invokeTimeout, "invoke-timeout", 0, "deadline for the module's test run (0 = none)")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.StringVar(&c.skipFile, "skip-from", "", "file containing test IDs to skip, one per line")
	fs.StringVar(&c.recordFailures, "record-failures", "", "write the IDs of failed cases to this file")
	fs.StringVar(&c.tag, "tag", "gpu-test-harness", "tag sent to the module service when creating an instance")
	fs.BoolVar(&c.stopServiceAtEnd, "stop-service-at-end", false, "tell module service to exit after the test run")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")
	fs.BoolVar(&c.failExitCode, "fail-exit-code", false, "exit with status 1 if the run fails")
	fs.StringVar(&fromFlags.JUnitFile, "junit", "", "write JUnit XML output to the specified path")
	fs.IntVar(&fromFlags.StreamPort, "stream-port", 0, "serve results as a live event stream on this port")
	fs.StringVar(&fromFlags.Archive, "archive", "", "store a run record: redis://host:port, consul[://host:port] or dynamodb:table")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}

	c.config = config.Default()
	if c.configFile != "" {
		if err := c.config.Load(c.configFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return false
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			c.config.ServiceURL = fromFlags.ServiceURL
		case "host":
			c.config.Host = fromFlags.Host
		case "port":
			c.config.Port = fromFlags.Port
		case "backend":
			c.config.Backend = fromFlags.Backend
		case "require-nvidia":
			c.config.RequireNVIDIA = fromFlags.RequireNVIDIA
		case "power-preference":
			c.config.PowerPreference = powerPreference
		case "feature":
			c.config.RequiredFeatures = features
		case "limit":
			c.config.RequiredLimits = limits
		case "acquire-retries":
			c.config.AcquireRetries = fromFlags.AcquireRetries
		case "acquire-timeout":
			c.config.AcquireTimeout = config.Duration(acquireTimeout)
		case "invoke-timeout":
			c.config.InvokeTimeout = config.Duration(invokeTimeout)
		case "junit":
			c.config.JUnitFile = fromFlags.JUnitFile
		case "stream-port":
			c.config.StreamPort = fromFlags.StreamPort
		case "archive":
			c.config.Archive = fromFlags.Archive
		}
	})

	if err := c.config.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	return true
}
