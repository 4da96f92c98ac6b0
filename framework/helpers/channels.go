package helpers

import (
	"time"
)

// TryReceive waits up to timeout for a value from ch. The second result is false on timeout or if
// ch was closed.
func TryReceive[V any](ch <-chan V, timeout time.Duration) (V, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	var value V
	var open bool
	select {
	case value, open = <-ch:
		return value, open
	case <-timer.C:
		return value, false
	}
}

// RequireValue receives a value from ch, or fails the test and stops it if none arrives in time.
func RequireValue[V any](t TestContext, ch <-chan V, timeout time.Duration) V {
	t.Helper()
	var zero V
	return RequireValueWithMessage(t, ch, timeout, "no %T received within %s", zero, timeout)
}

// RequireValueWithMessage is RequireValue with a custom failure message.
func RequireValueWithMessage[V any](
	t TestContext,
	ch <-chan V,
	timeout time.Duration,
	msgFormat string,
	msgArgs ...interface{},
) V {
	t.Helper()
	value, ok := TryReceive(ch, timeout)
	if !ok {
		t.Errorf(msgFormat, msgArgs...)
		t.FailNow()
	}
	return value
}

// RequireNoMoreValues fails the test and stops it if a value arrives on ch within timeout.
func RequireNoMoreValues[V any](t TestContext, ch <-chan V, timeout time.Duration) {
	t.Helper()
	if extra, ok := TryReceive(ch, timeout); ok {
		t.Errorf("unexpected extra value: %+v", extra)
		t.FailNow()
	}
}
