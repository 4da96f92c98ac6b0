package servicedef

import (
	"testing"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labfont/gpu-test-harness/report"
)

func TestParseTestResultsObjectForm(t *testing.T) {
	suites, err := ParseTestResults([]byte(`{
		"suites": [
			{"name": "Arithmetic", "tests": [
				{"name": "add", "passed": true},
				{"name": "multiply", "passed": false, "message": "overflow", "durationMs": 3}
			], "extra": {"a": [1, 2]}},
			{"name": "Empty"}
		],
		"moduleVersion": "1.0"
	}`))
	require.NoError(t, err)
	assert.Equal(t, []report.TestSuite{
		{Name: "Arithmetic", Tests: []report.TestCase{
			{Name: "add", Passed: true},
			{Name: "multiply", Passed: false, Message: ldvalue.NewOptionalString("overflow")},
		}},
		{Name: "Empty", Tests: []report.TestCase{}},
	}, suites)
}

func TestParseTestResultsArrayForm(t *testing.T) {
	suites, err := ParseTestResults([]byte(`[{"name": "s", "tests": [{"name": "c", "message": null}]}]`))
	require.NoError(t, err)
	require.Len(t, suites, 1)
	assert.Equal(t, report.TestCase{Name: "c"}, suites[0].Tests[0])
}

func TestParseTestResultsErrors(t *testing.T) {
	for _, bad := range []string{``, `"x"`, `{"suites": {}}`, `[{"name": 3}]`, `[{"tests": [{"passed": "yes"}]}]`} {
		_, err := ParseTestResults([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestWriteTestResultsRoundTrip(t *testing.T) {
	suites := []report.TestSuite{{Name: "s", Tests: []report.TestCase{
		{Name: "a", Passed: true},
		{Name: "b", Message: ldvalue.NewOptionalString("bad")},
	}}}
	data := WriteTestResults(suites)
	m.In(t).Assert(string(data), m.JSONStrEqual(
		`{"suites":[{"name":"s","tests":[{"name":"a","passed":true},{"name":"b","passed":false,"message":"bad"}]}]}`))

	parsed, err := ParseTestResults(data)
	require.NoError(t, err)
	assert.Equal(t, suites, parsed)
}
