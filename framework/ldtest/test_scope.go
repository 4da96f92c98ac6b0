package ldtest

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/labfont/gpu-test-harness/framework"
)

// TestConfiguration contains options for the entire test run.
type TestConfiguration struct {
	// Filter optionally decides which scopes run, based on their IDs.
	Filter Filter

	// TestLogger receives status information about each scope.
	TestLogger TestLogger

	// Context is an application-defined value that every scope can read with T.Context.
	Context interface{}

	// Capabilities are the names checked by T.RequireCapability.
	Capabilities []string
}

// runState is shared by all the scopes of one Run call. Scopes execute one at a time.
type runState struct {
	config  TestConfiguration
	results Results
}

func (r *runState) record(result TestResult) {
	if result.Failed() {
		r.results.Failures = append(r.results.Failures, result)
	}
	r.results.Tests = append(r.results.Tests, result)
}

// T is a test scope, used the way a *testing.T is used in Go tests. It satisfies
// assert.TestingT and require.TestingT, so testify assertions work inside a scope.
type T struct {
	state      *runState
	id         TestID
	log        *framework.CapturingLogger
	errors     []error
	failed     bool
	skipped    bool
	skipReason string
	cleanups   []func()
	helperFns  []string
}

// scopeExit is the panic value that FailNow and Skip use to unwind a scope.
type scopeExit struct{}

// Run executes action as the root scope and returns the results of it and every scope below it,
// children before parents.
func Run(config TestConfiguration, action func(*T)) Results {
	if config.TestLogger == nil {
		config.TestLogger = nullTestLogger{}
	}
	state := &runState{config: config}
	root := &T{state: state, log: &framework.CapturingLogger{}}
	root.execute(action)
	return state.results
}

func (t *T) execute(action func(*T)) TestResult {
	t.guard(action)
	for i := len(t.cleanups) - 1; i >= 0; i-- {
		cleanup := t.cleanups[i]
		t.guard(func(*T) { cleanup() })
	}
	result := TestResult{
		TestID:     t.id,
		Errors:     t.errors,
		Skipped:    t.skipped,
		SkipReason: t.skipReason,
	}
	t.state.record(result)
	return result
}

func (t *T) guard(action func(*T)) {
	defer func() {
		r := recover()
		if r == nil || t.skipped {
			return
		}
		if _, ok := r.(scopeExit); ok {
			if len(t.errors) == 0 {
				t.fail(errors.New("test failed with no failure message"))
			}
			return
		}
		t.fail(fmt.Errorf("unexpected panic in test: %+v\n%s", r, debug.Stack()))
	}()
	action(t)
}

func (t *T) fail(err error) {
	t.failed = true
	t.errors = append(t.errors, err)
	t.state.config.TestLogger.TestError(t.id, err)
}

// ID returns the full name of the current scope.
func (t *T) ID() TestID {
	return t.id
}

// Run runs action in a subscope called name, unless the configured Filter excludes it.
func (t *T) Run(name string, action func(*T)) {
	id := t.id.Plus(name)
	logger := t.state.config.TestLogger
	logger.TestStarted(id)
	if filter := t.state.config.Filter; filter != nil && !filter.Match(id) {
		logger.TestSkipped(id, "excluded by filter parameters")
		return
	}

	child := &T{state: t.state, id: id, log: t.log.Fork()}
	result := child.execute(action)
	t.log.Join(child.log)

	if result.Skipped {
		logger.TestSkipped(id, result.SkipReason)
		return
	}
	logger.TestFinished(id, result, child.log.Output())
}

// Errorf marks the scope as failed and records the message along with the caller's stacktrace.
// The scope keeps running.
func (t *T) Errorf(format string, args ...interface{}) {
	t.fail(transformError(fmt.Errorf(format, args...), getStacktrace(false, t.helperFns)))
}

// FailNow ends the scope immediately and marks it as failed.
func (t *T) FailNow() {
	panic(scopeExit{})
}

// Skip ends the scope immediately and marks it as skipped. Errors recorded before the skip do
// not make it a failure.
func (t *T) Skip() {
	t.skipped = true
	panic(scopeExit{})
}

// SkipWithReason is Skip with an explanation for the logs and the results payload.
func (t *T) SkipWithReason(reason string) {
	t.skipReason = reason
	t.Skip()
}

// Debug writes a line of debug output for this scope.
func (t *T) Debug(message string, args ...interface{}) {
	t.log.Printf(message, args...)
}

// DebugLogger returns the Logger behind Debug. Output written to it while a subscope is running
// is attributed to that subscope; see framework.CapturingLogger.
func (t *T) DebugLogger() framework.Logger {
	return t.log
}

// Defer schedules fn to run when the scope exits for any reason, most recent first. A failure
// inside fn is recorded against the scope.
func (t *T) Defer(fn func()) {
	t.cleanups = append(t.cleanups, fn)
}

// Context returns TestConfiguration.Context.
func (t *T) Context() interface{} {
	return t.state.config.Context
}

func (t *T) Capabilities() framework.Capabilities {
	return append(framework.Capabilities(nil), t.state.config.Capabilities...)
}

// RequireCapability skips the scope unless the run was configured with the named capability.
func (t *T) RequireCapability(name string) {
	if !t.Capabilities().Has(name) {
		t.SkipWithReason(fmt.Sprintf("capability %q is not available", name))
	}
}

// Helper marks the calling function as a helper, so it is left out of stacktraces.
func (t *T) Helper() {
	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return
	}
	if f := runtime.FuncForPC(pc); f != nil {
		t.helperFns = append(t.helperFns, f.Name())
	}
}
