package helpers

import (
	"time"
)

// RequireEventually checks condition every interval until it returns true. If that does not
// happen within timeout, the test fails and stops. Unlike require.Eventually it polls on the
// calling goroutine, so it can be used from an ldtest scope.
func RequireEventually(
	t TestContext,
	condition func() bool,
	timeout time.Duration,
	interval time.Duration,
	failureMsgFormat string,
	failureMsgArgs ...interface{},
) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !condition() {
		if !time.Now().Before(deadline) {
			t.Errorf(failureMsgFormat, failureMsgArgs...)
			t.FailNow()
			return
		}
		time.Sleep(interval)
	}
}
