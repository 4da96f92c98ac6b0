// Package report turns a module's test results and progress calls into display entries, and
// delivers those entries to one or more sinks.
package report

import (
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// TestCase is one named check within a suite. Message is normally only set for failures.
type TestCase struct {
	Name    string
	Passed  bool
	Message ldvalue.OptionalString
}

// TestSuite is a named, ordered group of cases. The order is the module's own and is kept as-is.
type TestSuite struct {
	Name  string
	Tests []TestCase
}

// Failures returns the number of cases in the suite that did not pass.
func (s TestSuite) Failures() int {
	n := 0
	for _, c := range s.Tests {
		if !c.Passed {
			n++
		}
	}
	return n
}

// RunResult is the outcome of one invocation of a module.
type RunResult struct {
	// Success is true if and only if the module's entry point returned status 0.
	Success bool

	// StatusCode is the raw value returned by the entry point. Nonzero values have no defined
	// meaning; it is kept for display only.
	StatusCode int

	Details []TestSuite
}

// CaseCounts returns the total number of cases and the number of failed cases.
func (r RunResult) CaseCounts() (total, failed int) {
	for _, s := range r.Details {
		total += len(s.Tests)
		failed += s.Failures()
	}
	return
}
