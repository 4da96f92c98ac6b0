package report

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/launchdarkly/eventsource"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labfont/gpu-test-harness/framework/helpers"
)

func requireEvent(t *testing.T, stream *eventsource.Stream) eventsource.Event {
	return helpers.RequireValueWithMessage(t, stream.Events, time.Second*5, "timed out waiting for event")
}

func TestStreamSinkReplaysAndPublishes(t *testing.T) {
	sink := NewStreamSink(nil)
	defer sink.Close()
	p := NewPresenter(sink)
	p.LogMessage("before subscribe", false)

	httphelpers.WithServer(sink, func(server *httptest.Server) {
		req, _ := http.NewRequest("GET", server.URL+"/"+SinkName, nil)
		stream, err := eventsource.SubscribeWithRequest("", req)
		require.NoError(t, err)
		defer stream.Close()

		first := requireEvent(t, stream)
		assert.Equal(t, "log", first.Event())
		assert.Equal(t, "1", first.Id())
		m.In(t).Assert(first.Data(), m.JSONStrEqual(
			`{"seq":1,"kind":"log","text":"before subscribe","failed":false,"line":"before subscribe"}`))

		go p.ReportProgress(1, 2, ldvalue.NewOptionalString("slow"))

		progress := requireEvent(t, stream)
		assert.Equal(t, "progress", progress.Event())
		message := requireEvent(t, stream)
		assert.Equal(t, "message", message.Event())
		m.In(t).Assert(message.Data(), m.JSONStrEqual(
			`{"seq":3,"kind":"message","text":"slow","failed":true,"line":"    slow"}`))
	})
}

func TestStreamSinkRejectsOtherPaths(t *testing.T) {
	sink := NewStreamSink(nil)
	defer sink.Close()
	httphelpers.WithServer(sink, func(server *httptest.Server) {
		resp, err := http.Get(server.URL + "/other")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp2, err := http.Post(server.URL+"/"+SinkName, "text/plain", nil)
		require.NoError(t, err)
		defer resp2.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
	})
}
