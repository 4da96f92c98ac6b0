package main

import (
	"bufio"
	"context"
	_ "embed" // this is required in order for go:embed to work
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/labfont/gpu-test-harness/framework"
	"github.com/labfont/gpu-test-harness/framework/harness"
	"github.com/labfont/gpu-test-harness/framework/ldtest"
	"github.com/labfont/gpu-test-harness/gpu"
	"github.com/labfont/gpu-test-harness/gpu/halhost"
	"github.com/labfont/gpu-test-harness/gpu/nvmlprobe"
	"github.com/labfont/gpu-test-harness/gputests"
	"github.com/labfont/gpu-test-harness/module"
	"github.com/labfont/gpu-test-harness/module/remote"
	"github.com/labfont/gpu-test-harness/report"
	"github.com/labfont/gpu-test-harness/report/archive"
	"github.com/labfont/gpu-test-harness/runner"
)

const statusQueryTimeout = time.Second * 10

//go:embed VERSION
var versionString string // comes from the VERSION file which we update for each release

func main() {
	fmt.Printf("gpu-test-harness v%s\n", strings.TrimSpace(versionString))

	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}

	result, err := run(params)
	// The failure has already been shown as an error line by the runner, unless it happened
	// while setting up.
	if err != nil && !errors.Is(err, errRunFailed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(result, err, params.failExitCode))
}

// exitCode is 0 unless failExitCode was requested and the run did not succeed.
func exitCode(result *report.RunResult, err error, failExitCode bool) int {
	if !failExitCode {
		return 0
	}
	if err != nil || result == nil || !result.Success {
		return 1
	}
	return 0
}

var errRunFailed = errors.New("run failed")

func run(params commandParams) (*report.RunResult, error) {
	cfg := params.config
	if params.skipFile != "" {
		if err := loadSuppressions(&params); err != nil {
			return nil, err
		}
	}

	mainDebugLogger := framework.NullLogger()
	if params.debugAll {
		mainDebugLogger = log.New(os.Stdout, "", log.LstdFlags)
	}

	sinks := report.MultiSink{&report.ConsoleSink{}}
	if cfg.JUnitFile != "" {
		sinks = append(sinks, report.NewJUnitSink(cfg.JUnitFile, map[string]string{
			"backend":          cfg.Backend,
			"power-preference": cfg.PowerPreference.String(),
			"module":           moduleName(cfg.ServiceURL),
		}))
	}
	if cfg.StreamPort != 0 {
		stream := report.NewStreamSink(mainDebugLogger)
		stopStream, err := serveStream(stream, cfg.StreamPort)
		if err != nil {
			return nil, err
		}
		defer stopStream()
		sinks = append(sinks, stream)
		fmt.Printf("Streaming results at http://%s/%s\n", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.StreamPort)), report.SinkName)
	}
	presenter := report.NewPresenter(sinks)
	defer func() {
		if err := sinks.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing results: %s\n", err)
		}
	}()

	host, err := halhost.New(cfg.Backend, mainDebugLogger)
	if err != nil {
		return nil, err
	}
	keepHost := false
	defer func() {
		if !keepHost {
			host.Close()
		}
	}()
	var probers []gpu.Prober
	if cfg.RequireNVIDIA {
		probers = append(probers, nvmlprobe.New())
	}

	var testModule module.Module
	if cfg.ServiceURL == "" {
		ldtest.PrintFilterDescription(os.Stdout, params.filters, nil, nil)
		var testLogger ldtest.TestLogger
		if params.debug || params.debugAll {
			testLogger = ldtest.ConsoleTestLogger{
				Out:                  os.Stdout,
				DebugOutputOnFailure: true,
				DebugOutputOnSuccess: params.debugAll,
			}
		}
		testModule = gputests.New(gputests.Config{
			Expected:   cfg.AcquireOptions().Device,
			Filter:     params.filters,
			TestLogger: testLogger,
			Logger:     mainDebugLogger,
		})
	} else {
		h, err := harness.NewTestHarness(cfg.ServiceURL, cfg.Host, cfg.Port, statusQueryTimeout, mainDebugLogger, os.Stdout)
		if err != nil {
			return nil, err
		}
		defer func() { _ = h.Close() }()
		info := h.ServiceInfo()
		fmt.Printf("Module service %q reports capabilities: %v\n", info.Name, []string(info.Capabilities))
		remoteModule := remote.New(h, params.tag, mainDebugLogger)
		defer func() {
			if err := remoteModule.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to close module instance: %s\n", err)
			}
			if params.stopServiceAtEnd {
				fmt.Println("Stopping module service")
				if err := h.StopService(); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to stop module service: %s\n", err)
				}
			}
		}()
		testModule = remoteModule
	}

	var runArchive archive.Archive
	if cfg.Archive != "" {
		runArchive, err = archive.Open(cfg.Archive)
		if err != nil {
			return nil, err
		}
		defer func() { _ = runArchive.Close() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := runner.New(runner.Options{
		Host:           host,
		Probers:        probers,
		Acquire:        cfg.AcquireOptions(),
		AcquireRetries: cfg.AcquireRetries,
		AcquireTimeout: time.Duration(cfg.AcquireTimeout),
		InvokeTimeout:  time.Duration(cfg.InvokeTimeout),
		Module:         testModule,
		Presenter:      presenter,
		Archive:        runArchive,
		RunID:          newRunID(),
		Logger:         mainDebugLogger,
	})
	defer func() {
		keepHost = r.Abandoned()
		_ = r.Close()
	}()

	result, err := r.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errRunFailed, err)
	}

	if params.recordFailures != "" {
		if err := writeFailures(params.recordFailures, result); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

func moduleName(serviceURL string) string {
	if serviceURL == "" {
		return "built-in"
	}
	return serviceURL
}

func newRunID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%s", hostname, time.Now().UTC().Format("20060102T150405Z"))
}

func serveStream(stream *report.StreamSink, port int) (func(), error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("can't listen on stream port %d: %w", port, err)
	}
	server := &http.Server{Handler: stream, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		_ = server.Serve(listener)
	}()
	return func() { _ = server.Close() }, nil
}

// writeFailures writes one "suite/case" ID per failed case, in a form that -skip-from accepts.
func writeFailures(path string, result report.RunResult) error {
	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("cannot create suppression file: %v", err)
	}
	defer func() { _ = f.Close() }()
	for _, suite := range result.Details {
		for _, c := range suite.Tests {
			if !c.Passed {
				fmt.Fprintln(f, ldtest.TestID{suite.Name, c.Name})
			}
		}
	}
	return nil
}

func loadSuppressions(params *commandParams) error {
	file, err := os.Open(params.skipFile)
	if err != nil {
		return fmt.Errorf("cannot open provided suppression file: %v", err)
	}
	defer func() { _ = file.Close() }()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		// Ignore blank lines
		if strings.TrimSpace(line) == "" {
			continue
		}
		escaped := regexp.QuoteMeta(line)
		if err := params.filters.MustNotMatch.Set(escaped); err != nil {
			return fmt.Errorf("cannot parse suppression: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("while processing suppression file: %v", err)
	}
	return nil
}
