package gputests

import (
	"github.com/labfont/gpu-test-harness/framework/ldtest"
	"github.com/labfont/gpu-test-harness/report"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// setupCaseName is used for a failure in a suite's own scope rather than in one of its cases.
const setupCaseName = "setup"

// suitesFromResults converts ldtest results into the results payload. The first component of a
// test ID is the suite name and the rest is the case name. Tests excluded by a filter never ran
// and do not appear.
func suitesFromResults(results ldtest.Results) []report.TestSuite {
	var suites []report.TestSuite
	index := make(map[string]int)
	suiteFor := func(name string) *report.TestSuite {
		i, ok := index[name]
		if !ok {
			i = len(suites)
			index[name] = i
			suites = append(suites, report.TestSuite{Name: name, Tests: []report.TestCase{}})
		}
		return &suites[i]
	}

	for _, r := range results.Tests {
		switch {
		case len(r.TestID) == 0:
			continue
		case len(r.TestID) == 1:
			suite := suiteFor(r.TestID[0])
			if r.Failed() {
				suite.Tests = append(suite.Tests, caseFromResult(setupCaseName, r))
			}
		default:
			suite := suiteFor(r.TestID[0])
			suite.Tests = append(suite.Tests, caseFromResult(r.TestID[1:].String(), r))
		}
	}
	return suites
}

func caseFromResult(name string, r ldtest.TestResult) report.TestCase {
	switch {
	case r.Skipped:
		return report.TestCase{Name: name, Passed: true, Message: ldvalue.NewOptionalString(skipMessage(r.SkipReason))}
	case r.Failed():
		return report.TestCase{Name: name, Passed: false, Message: ldvalue.NewOptionalString(r.ErrorMessage())}
	}
	return report.TestCase{Name: name, Passed: true}
}

func skipMessage(reason string) string {
	if reason == "" {
		return "skipped"
	}
	return "skipped: " + reason
}
