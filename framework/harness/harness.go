package harness

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/labfont/gpu-test-harness/framework"
)

const httpListenerTimeout = time.Second * 10

// TestHarness manages communication with a remote module service.
//
// It always communicates with a single service, which it verifies is alive on startup. It can
// then create any number of module instances within the service (CreateInstance) and any
// number of callback endpoints for the service to call (NewCallbackEndpoint).
//
// It contains no GPU-specific logic; the module/remote package builds on it.
type TestHarness struct {
	testServiceBaseURL string
	serviceInfo        ServiceInfo
	endpoints          *endpointRegistry
	server             *http.Server
	logger             framework.Logger
}

// NewTestHarness creates a TestHarness instance, and verifies that the module service is
// responding by querying its status resource. It also starts an HTTP listener on the specified
// port to receive callback requests; a port of zero picks any free port.
func NewTestHarness(
	testServiceBaseURL string,
	testHarnessExternalHostname string,
	testHarnessPort int,
	statusQueryTimeout time.Duration,
	debugLogger framework.Logger,
	startupOutput io.Writer,
) (*TestHarness, error) {
	if debugLogger == nil {
		debugLogger = framework.NullLogger()
	}
	if startupOutput == nil {
		startupOutput = io.Discard
	}

	h := &TestHarness{
		testServiceBaseURL: testServiceBaseURL,
		logger:             debugLogger,
	}

	info, err := awaitService(testServiceBaseURL, statusQueryTimeout, startupOutput)
	if err != nil {
		return nil, err
	}
	h.serviceInfo = info

	server, port, err := startServer(testHarnessPort, http.HandlerFunc(h.serveHTTP))
	if err != nil {
		return nil, err
	}
	h.server = server
	h.endpoints = newEndpointRegistry(
		fmt.Sprintf("http://%s:%d", testHarnessExternalHostname, port),
		debugLogger)

	return h, nil
}

// ServiceInfo returns the status document received from the module service at startup.
func (h *TestHarness) ServiceInfo() ServiceInfo {
	return h.serviceInfo
}

// NewCallbackEndpoint adds an endpoint under /endpoints/ on the harness's listener.
//
// The handler receives requests to the endpoint's base URL and to any subpath of it, with the
// request path rewritten so that the handler sees only the subpath. For instance, a request to
// http://localhost:8111/endpoints/3/progress reaches the handler of endpoint 3 as /progress.
func (h *TestHarness) NewCallbackEndpoint(
	handler http.Handler,
	logger framework.Logger,
	options ...CallbackEndpointOption,
) *CallbackEndpoint {
	return h.endpoints.add(handler, logger, options...)
}

// Close stops the callback listener. It does not stop the module service; see StopService.
func (h *TestHarness) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), httpListenerTimeout)
	defer cancel()
	return h.server.Shutdown(ctx)
}

func (h *TestHarness) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK) // startServer's readiness check
		return
	}
	h.endpoints.serveHTTP(w, r)
}

// startServer listens on port and returns once the listener answers requests.
func startServer(port int, handler http.Handler) (*http.Server, int, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, 0, fmt.Errorf("could not start callback listener: %w", err)
	}
	actualPort := listener.Addr().(*net.TCPAddr).Port
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	selfURL := fmt.Sprintf("http://localhost:%d", actualPort)
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxElapsedTime = httpListenerTimeout
	err = backoff.Retry(func() error {
		_, err := send(context.Background(), http.MethodHead, selfURL, nil)
		return err
	}, policy)
	if err != nil {
		_ = server.Close()
		return nil, 0, fmt.Errorf("could not detect own listener at port %d: %w", actualPort, err)
	}
	return server, actualPort, nil
}
