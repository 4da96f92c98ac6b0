package report

import (
	"testing"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
)

func TestRecordJSON(t *testing.T) {
	r := Record{
		RunID:    "run-1",
		Finished: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Adapter:  "fake adapter",
		Result: RunResult{
			Success:    false,
			StatusCode: 1,
			Details: []TestSuite{{Name: "Arithmetic", Tests: []TestCase{
				{Name: "add", Passed: true},
				{Name: "multiply", Passed: false, Message: ldvalue.NewOptionalString("overflow")},
			}}},
		},
	}
	m.In(t).Assert(string(r.JSON()), m.JSONStrEqual(`{
		"runId": "run-1",
		"finished": "2026-01-02T03:04:05Z",
		"adapter": "fake adapter",
		"success": false,
		"statusCode": 1,
		"total": 2,
		"failed": 1,
		"suites": [{"name": "Arithmetic", "tests": [
			{"name": "add", "passed": true},
			{"name": "multiply", "passed": false, "message": "overflow"}
		]}]
	}`))
}
