package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/labfont/gpu-test-harness/framework"
)

// ServiceInfo is the status document that the module service returns for GET on its base URL.
type ServiceInfo struct {
	// Name identifies the module, such as "compute-kernels".
	Name string `json:"name"`

	// Capabilities are optional behaviors of the module, such as servicedef.CapabilitySelfAcquire.
	Capabilities framework.Capabilities `json:"capabilities"`

	// Raw is the whole response body, which may contain more properties than the ones above.
	Raw []byte `json:"-"`
}

// ModuleInstance is a module instance that the service created for us. It stays alive in the
// service until Close is called.
type ModuleInstance struct {
	url    string
	logger framework.Logger
}

type serviceResponse struct {
	status  int
	headers http.Header
	body    []byte
}

// awaitService polls the status resource until the service answers or timeout elapses. A
// response with an error status is final; connection errors are retried.
func awaitService(url string, timeout time.Duration, output io.Writer) (ServiceInfo, error) {
	fmt.Fprintf(output, "Connecting to module service at %s", url)
	defer fmt.Fprintln(output)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = timeout

	var info ServiceInfo
	err := backoff.Retry(func() error {
		fmt.Fprint(output, ".")
		resp, err := send(context.Background(), http.MethodGet, url, nil)
		if err != nil {
			var statusErr serviceStatusError
			if errors.As(err, &statusErr) {
				return backoff.Permanent(err)
			}
			return err
		}
		info = ServiceInfo{Raw: resp.body}
		if len(resp.body) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.body, &info); err != nil {
			return backoff.Permanent(fmt.Errorf("malformed status response from module service: %s", resp.body))
		}
		return nil
	}, policy)
	if err != nil {
		return ServiceInfo{}, fmt.Errorf("module service at %s is not available: %w", url, err)
	}
	return info, nil
}

type serviceStatusError struct {
	method, url string
	status      int
	body        []byte
}

func (e serviceStatusError) Error() string {
	if len(e.body) == 0 {
		return fmt.Sprintf("module service returned HTTP %d for %s %s", e.status, e.method, e.url)
	}
	return fmt.Sprintf("module service returned HTTP %d for %s %s: %s", e.status, e.method, e.url, e.body)
}

func send(ctx context.Context, method, url string, body []byte) (serviceResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return serviceResponse{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return serviceResponse{}, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return serviceResponse{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return serviceResponse{}, serviceStatusError{method: method, url: url, status: resp.StatusCode, body: respBody}
	}
	return serviceResponse{status: resp.StatusCode, headers: resp.Header, body: respBody}, nil
}

// StopService asks the module service to exit.
func (h *TestHarness) StopService() error {
	_, err := send(context.Background(), http.MethodDelete, h.testServiceBaseURL, nil)
	var statusErr serviceStatusError
	if err != nil && !errors.As(err, &statusErr) {
		// the service may exit before it finishes responding
		return nil
	}
	return err
}

// CreateInstance asks the service for a new module instance. params is sent as the JSON body.
func (h *TestHarness) CreateInstance(
	ctx context.Context,
	params interface{},
	logger framework.Logger,
) (*ModuleInstance, error) {
	if logger == nil {
		logger = h.logger
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	logger.Printf("Creating module instance with parameters: %s", data)
	resp, err := send(ctx, http.MethodPost, h.testServiceBaseURL, data)
	if err != nil {
		return nil, err
	}
	location := resp.headers.Get("Location")
	if location == "" {
		return nil, errors.New("module service did not return a Location header for the new instance")
	}
	if !strings.HasPrefix(location, "http:") && !strings.HasPrefix(location, "https:") {
		location = strings.TrimSuffix(h.testServiceBaseURL, "/") + location
	}
	return &ModuleInstance{url: location, logger: logger}, nil
}

// URL is the resource URL of the instance.
func (i *ModuleInstance) URL() string { return i.url }

// Command sends {"command": command} to the instance. The response body is decoded into out
// unless out is nil; a *[]byte receives the raw body.
func (i *ModuleInstance) Command(ctx context.Context, command string, out interface{}) error {
	return i.CommandWithParams(ctx, map[string]string{"command": command}, out)
}

// CommandWithParams is Command with an arbitrary JSON request body.
func (i *ModuleInstance) CommandWithParams(ctx context.Context, params interface{}, out interface{}) error {
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	i.logger.Printf("Sending command: %s", data)
	resp, err := send(ctx, http.MethodPost, i.url, data)
	if err != nil {
		return err
	}
	i.logger.Printf("Response: %s", resp.body)
	switch target := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*target = resp.body
		return nil
	default:
		if len(resp.body) == 0 {
			return errors.New("expected a response body but got none")
		}
		return json.Unmarshal(resp.body, out)
	}
}

// Close tells the service to dispose of the instance.
func (i *ModuleInstance) Close() error {
	i.logger.Printf("Closing module instance %s", i.url)
	_, err := send(context.Background(), http.MethodDelete, i.url, nil)
	if err != nil {
		i.logger.Printf("Could not close module instance: %s", err)
	}
	return err
}
