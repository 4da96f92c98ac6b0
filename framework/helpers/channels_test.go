package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTryReceive(t *testing.T) {
	ch := make(chan int, 1)
	_, ok := TryReceive(ch, time.Millisecond)
	assert.False(t, ok)

	go func() {
		time.Sleep(20 * time.Millisecond)
		ch <- 7
	}()
	value, ok := TryReceive(ch, time.Second)
	assert.True(t, ok)
	assert.Equal(t, 7, value)

	close(ch)
	_, ok = TryReceive(ch, time.Second)
	assert.False(t, ok, "a closed channel is not a received value")
}

func TestRequireValue(t *testing.T) {
	ch := make(chan string, 1)

	timedOut := TestRecorder{PanicOnTerminate: true}
	assert.PanicsWithValue(t, &timedOut, func() { _ = RequireValue(&timedOut, ch, time.Millisecond) })
	assert.Equal(t, []string{"no string received within 1ms"}, timedOut.Errors)

	var received TestRecorder
	ch <- "progress"
	assert.Equal(t, "progress", RequireValue(&received, ch, time.Millisecond))
	assert.NoError(t, received.Err())
}

func TestRequireNoMoreValues(t *testing.T) {
	ch := make(chan string, 1)

	var quiet TestRecorder
	RequireNoMoreValues(&quiet, ch, time.Millisecond)
	assert.NoError(t, quiet.Err())

	var extra TestRecorder
	ch <- "log"
	RequireNoMoreValues(&extra, ch, time.Millisecond)
	assert.Equal(t, []string{"unexpected extra value: log"}, extra.Errors)
	assert.True(t, extra.Terminated)
}
