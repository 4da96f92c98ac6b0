package ldtest

import (
	"strings"
)

// Results is the outcome of a whole Run. Tests lists every scope that ran, including skipped
// ones, with subtests before their parents.
type Results struct {
	Tests    []TestResult
	Failures []TestResult
}

type TestResult struct {
	TestID     TestID
	Errors     []error
	Skipped    bool
	SkipReason string
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// Failed is true if the scope reported any error and was not skipped afterward.
func (r TestResult) Failed() bool {
	return !r.Skipped && len(r.Errors) != 0
}

// ErrorMessage joins the messages of all errors reported by the scope.
func (r TestResult) ErrorMessage() string {
	messages := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		messages = append(messages, e.Error())
	}
	return strings.Join(messages, "; ")
}

// TestID is the path of a scope: the suite name followed by case and subcase names.
type TestID []string

func (t TestID) String() string {
	return strings.Join(t, "/")
}

func (t TestID) Plus(name string) TestID {
	return append(append(TestID(nil), t...), name)
}
