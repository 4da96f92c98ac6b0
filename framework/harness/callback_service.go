package harness

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/labfont/gpu-test-harness/framework"
)

// CallbackService routes POST requests from a module service to handler functions. It is
// normally served from a CallbackEndpoint, whose base URL is given to the module instance.
type CallbackService struct {
	router *mux.Router
	logger framework.Logger
	name   string
}

// CallbackHandler receives a decoder for the request body, which is nil if there was no body.
// A non-nil return value is written as the JSON response; an error becomes a 500 response.
type CallbackHandler func(*json.Decoder) (interface{}, error)

func NewCallbackService(logger framework.Logger, name string) *CallbackService {
	if logger == nil {
		logger = framework.NullLogger()
	}
	router := mux.NewRouter()
	c := &CallbackService{router: router, logger: logger, name: name}
	router.HandleFunc("/", c.close).Methods("DELETE")
	return c
}

func (c *CallbackService) AddPath(path string, handler CallbackHandler) {
	c.router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		var requestDecoder *json.Decoder
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			_ = r.Body.Close()
			if len(body) != 0 {
				requestDecoder = json.NewDecoder(bytes.NewBuffer(body))
			}
		}
		c.logger.Printf("[%s] got POST %s %s", c.name, path, string(body))

		responseValue, err := handler(requestDecoder)
		if err != nil {
			w.Header().Set("content-type", "text/plain")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(err.Error()))
			c.logger.Printf("[%s] responded with 500 - %s", c.name, err.Error())
		} else {
			w.Header().Set("content-type", "application/json")
			var respBody []byte
			w.WriteHeader(http.StatusOK)
			if responseValue != nil {
				respBody, _ = json.Marshal(responseValue)
				_, _ = w.Write(respBody)
			}
			c.logger.Printf("[%s] responded with 200 %s", c.name, string(respBody))
		}
	}).Methods("POST")
}

func (c *CallbackService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.router.ServeHTTP(w, r)
}

func (c *CallbackService) close(w http.ResponseWriter, r *http.Request) {
	c.logger.Printf("[%s] got DELETE - closing fixture", c.name)
	w.WriteHeader(http.StatusNoContent)
}
