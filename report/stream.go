package report

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/launchdarkly/eventsource"

	"github.com/labfont/gpu-test-harness/framework"
)

type eventSourceDebugLogger struct {
	logger framework.Logger
}

func (l eventSourceDebugLogger) Println(args ...interface{}) {
	l.logger.Printf("%s", fmt.Sprintln(args...))
}

func (l eventSourceDebugLogger) Printf(format string, args ...interface{}) {
	l.logger.Printf(format, args...)
}

// StreamSink publishes every entry as a server-sent event on the SinkName channel. A subscriber
// that connects late receives all earlier entries first.
type StreamSink struct {
	streams *eventsource.Server
	events  []entryEvent
	logger  framework.Logger
	lock    sync.RWMutex
}

type entryEvent struct {
	entry Entry
}

func NewStreamSink(debugLogger framework.Logger) *StreamSink {
	if debugLogger == nil {
		debugLogger = framework.NullLogger()
	}
	streams := eventsource.NewServer()
	streams.ReplayAll = true
	streams.Logger = eventSourceDebugLogger{debugLogger}

	s := &StreamSink{streams: streams, logger: debugLogger}
	streams.Register(SinkName, s)
	return s
}

func (s *StreamSink) Append(entry Entry) {
	event := entryEvent{entry}
	s.lock.Lock()
	s.events = append(s.events, event)
	s.lock.Unlock()
	s.logger.Printf("sending %s event with data: %s", event.Event(), event.Data())
	s.streams.Publish([]string{SinkName}, event)
}

// ServeHTTP serves the stream at /results.
func (s *StreamSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/"+SinkName {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.streams.Handler(SinkName)(w, r)
}

// Replay is called by the eventsource server when a subscriber connects.
func (s *StreamSink) Replay(channel, id string) chan eventsource.Event {
	s.lock.RLock()
	defer s.lock.RUnlock()
	after, _ := strconv.Atoi(id)
	eventsCh := make(chan eventsource.Event, len(s.events))
	for _, e := range s.events {
		if e.entry.Sequence > after {
			eventsCh <- e
		}
	}
	close(eventsCh)
	return eventsCh
}

// Close disconnects all subscribers.
func (s *StreamSink) Close() error {
	s.streams.Close()
	return nil
}

func (e entryEvent) Event() string { return e.entry.Kind.String() }
func (e entryEvent) Id() string    { return strconv.Itoa(e.entry.Sequence) } //nolint:stylecheck
func (e entryEvent) Data() string  { return string(e.entry.JSON()) }
