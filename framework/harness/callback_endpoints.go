package harness

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labfont/gpu-test-harness/framework"
	"github.com/labfont/gpu-test-harness/framework/helpers"
)

const endpointPathPrefix = "/endpoints/"

// Requests are recorded in a buffered channel; when it is full, further requests are still
// served but not recorded.
const recordedRequestBufferSize = 10

// endpointRegistry routes requests under /endpoints/<id> to the endpoint with that ID.
type endpointRegistry struct {
	endpoints       map[string]*CallbackEndpoint
	lastID          int
	externalBaseURL string
	logger          framework.Logger
	lock            sync.Mutex
}

// CallbackEndpoint is a path on the harness's own HTTP server that a module service can call
// back to. Its handler sees request paths relative to BaseURL().
type CallbackEndpoint struct {
	registry    *endpointRegistry
	id          string
	description string
	handler     http.Handler
	requests    chan IncomingRequest
	logger      framework.Logger
	lock        sync.Mutex
	closeOnce   sync.Once
}

// CallbackEndpointOption customizes an endpoint when it is created.
type CallbackEndpointOption func(*CallbackEndpoint)

// EndpointDescription names the endpoint in log output.
func EndpointDescription(description string) CallbackEndpointOption {
	return func(e *CallbackEndpoint) { e.description = description }
}

// IncomingRequest is a request that an endpoint received, as seen by its handler.
type IncomingRequest struct {
	Method  string
	Path    string
	Headers http.Header
	Body    []byte
}

func newEndpointRegistry(externalBaseURL string, logger framework.Logger) *endpointRegistry {
	return &endpointRegistry{
		endpoints:       make(map[string]*CallbackEndpoint),
		externalBaseURL: externalBaseURL,
		logger:          logger,
	}
}

func (reg *endpointRegistry) add(
	handler http.Handler,
	logger framework.Logger,
	options ...CallbackEndpointOption,
) *CallbackEndpoint {
	if logger == nil {
		logger = reg.logger
	}
	e := &CallbackEndpoint{
		registry: reg,
		handler:  handler,
		requests: make(chan IncomingRequest, recordedRequestBufferSize),
		logger:   logger,
	}
	for _, o := range options {
		o(e)
	}

	reg.lock.Lock()
	reg.lastID++
	e.id = strconv.Itoa(reg.lastID)
	reg.endpoints[e.id] = e
	reg.lock.Unlock()
	return e
}

// splitEndpointPath turns "/endpoints/3/progress" into ("3", "/progress").
func splitEndpointPath(urlPath string) (id, subpath string, ok bool) {
	rest, found := strings.CutPrefix(urlPath, endpointPathPrefix)
	if !found {
		return "", "", false
	}
	id, subpath, hasSubpath := strings.Cut(rest, "/")
	if !hasSubpath {
		return id, "/", true
	}
	return id, "/" + subpath, true
}

func (reg *endpointRegistry) serveHTTP(w http.ResponseWriter, r *http.Request) {
	id, subpath, ok := splitEndpointPath(r.URL.Path)
	var e *CallbackEndpoint
	if ok {
		reg.lock.Lock()
		e = reg.endpoints[id]
		reg.lock.Unlock()
	}
	if e == nil {
		reg.logger.Printf("Received request for unrecognized path %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	e.serve(w, r, subpath)
}

func (e *CallbackEndpoint) serve(w http.ResponseWriter, r *http.Request, subpath string) {
	var body []byte
	if r.Body != nil {
		data, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			e.logger.Printf("Unexpected error trying to read request body: %s", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body = data
	}

	e.lock.Lock()
	requests := e.requests
	e.lock.Unlock()
	if requests == nil {
		e.logger.Printf("Received request to already-closed endpoint %s", r.URL)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	select {
	case requests <- IncomingRequest{Method: r.Method, Path: subpath, Headers: r.Header, Body: body}:
	default:
		e.logger.Printf("Request buffer was full for %s", r.URL)
	}

	forwarded := r.Clone(r.Context())
	forwarded.URL.Path = subpath
	if body != nil {
		forwarded.Body = io.NopCloser(bytes.NewReader(body))
	}
	recorder := &statusRecorder{ResponseWriter: w}
	e.handler.ServeHTTP(recorder, forwarded)

	if recorder.status == http.StatusNotFound || recorder.status == http.StatusMethodNotAllowed {
		e.logger.Printf("Endpoint %q returned %d for %s %s", e.description, recorder.status, r.Method, subpath)
	}
}

// BaseURL is the URL that the module service should use to reach this endpoint.
func (e *CallbackEndpoint) BaseURL() string {
	return e.registry.externalBaseURL + endpointPathPrefix + e.id
}

// AwaitRequest waits for the next recorded request.
func (e *CallbackEndpoint) AwaitRequest(timeout time.Duration) (IncomingRequest, error) {
	if req, ok := helpers.TryReceive(e.requests, timeout); ok {
		return req, nil
	}
	return IncomingRequest{}, fmt.Errorf("timed out waiting for a request to %q (%s)", e.description, e.BaseURL())
}

// RequireRequest is AwaitRequest for test code: a timeout fails the test immediately.
func (e *CallbackEndpoint) RequireRequest(t helpers.TestContext, timeout time.Duration) IncomingRequest {
	return helpers.RequireValueWithMessage(t, e.requests, timeout, "timed out waiting for request to %q", e.description)
}

// RequireNoMoreRequests fails the test if another request arrives within the timeout.
func (e *CallbackEndpoint) RequireNoMoreRequests(t helpers.TestContext, timeout time.Duration) {
	helpers.RequireNoMoreValues(t, e.requests, timeout)
}

// Close unregisters the endpoint, so later requests to it get a 404.
func (e *CallbackEndpoint) Close() {
	e.closeOnce.Do(func() {
		e.logger.Printf("Closing endpoint %q (%s)", e.description, e.BaseURL())
		e.registry.lock.Lock()
		delete(e.registry.endpoints, e.id)
		e.registry.lock.Unlock()

		e.lock.Lock()
		close(e.requests)
		e.requests = nil
		e.lock.Unlock()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}
