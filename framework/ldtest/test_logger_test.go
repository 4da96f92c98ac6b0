package ldtest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/labfont/gpu-test-harness/framework"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func withoutColor(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = saved })
}

func TestConsoleTestLoggerOutput(t *testing.T) {
	withoutColor(t)
	var buf bytes.Buffer
	logger := ConsoleTestLogger{Out: &buf, DebugOutputOnFailure: true}
	id := TestID{"device", "limits satisfied"}

	logger.TestStarted(id)
	logger.TestError(id, ErrorWithStacktrace{
		Message:    "limit too low",
		Stacktrace: []StacktraceInfo{{FileName: "device_tests.go", Package: "gputests", Function: "f", Line: 9}},
	})
	logger.TestFinished(id, TestResult{TestID: id, Errors: []error{errors.New("limit too low")}},
		framework.CapturedOutput{{Text: "device label: fake"}})
	logger.TestSkipped(TestID{"buffers", "write buffer"}, "no HAL")

	out := buf.String()
	assert.Contains(t, out, "[device/limits satisfied]\n")
	assert.Contains(t, out, "  limit too low\n")
	assert.Contains(t, out, "    at gputests.f (device_tests.go:9)\n")
	assert.Contains(t, out, "  FAILED: device/limits satisfied\n")
	assert.Contains(t, out, "DEBUG ")
	assert.Contains(t, out, "device label: fake")
	assert.Contains(t, out, "  SKIPPED: buffers/write buffer (no HAL)\n")
}

func TestPrintResults(t *testing.T) {
	withoutColor(t)
	var buf bytes.Buffer
	PrintResults(&buf, Results{})
	assert.Equal(t, "All tests passed\n", buf.String())

	buf.Reset()
	PrintResults(&buf, Results{Failures: []TestResult{{TestID: TestID{"device", "has device"}}}})
	assert.Equal(t, "FAILED TESTS (1):\n  * device/has device\n", buf.String())
}

func TestPrintFilterDescription(t *testing.T) {
	var filters RegexFilters
	_ = filters.MustNotMatch.Set("buffers")
	var buf bytes.Buffer
	PrintFilterDescription(&buf, filters, []string{"hal", "self-acquire"}, []string{"hal"})

	out := buf.String()
	assert.Contains(t, out, `skip any matching "buffers"`)
	assert.Contains(t, out, "  self-acquire\n")
}
