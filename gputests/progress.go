package gputests

import (
	"fmt"

	"github.com/labfont/gpu-test-harness/bridge"
	"github.com/labfont/gpu-test-harness/framework"
	"github.com/labfont/gpu-test-harness/framework/ldtest"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
)

// progressLogger is an ldtest.TestLogger that turns case completions into push calls on the
// slot's reporter. Only case-level scopes (suite/case) count toward progress.
type progressLogger struct {
	reporter bridge.ProgressReporter
	total    int
	done     int
	passed   int
}

func newProgressLogger(reporter bridge.ProgressReporter, total int) *progressLogger {
	return &progressLogger{reporter: reporter, total: total}
}

func isCase(id ldtest.TestID) bool { return len(id) == 2 }

func (p *progressLogger) TestStarted(ldtest.TestID) {}

func (p *progressLogger) TestError(id ldtest.TestID, err error) {
	p.reporter.LogMessage(fmt.Sprintf("[%s] %s", id, err), true)
}

func (p *progressLogger) TestFinished(id ldtest.TestID, result ldtest.TestResult, _ framework.CapturedOutput) {
	if !isCase(id) {
		return
	}
	message := ldvalue.OptionalString{}
	if result.Failed() {
		message = ldvalue.NewOptionalString(fmt.Sprintf("%s: %s", id, result.ErrorMessage()))
	} else {
		p.passed++
	}
	p.advance(message)
}

func (p *progressLogger) TestSkipped(id ldtest.TestID, reason string) {
	if !isCase(id) {
		return
	}
	p.passed++
	p.reporter.LogMessage(fmt.Sprintf("[%s] %s", id, skipMessage(reason)), false)
	p.advance(ldvalue.OptionalString{})
}

// advance reports the cases completed so far. The second argument is the number completed rather
// than the planned total, so an entry only shows as failed once something has actually failed.
func (p *progressLogger) advance(message ldvalue.OptionalString) {
	p.done++
	p.reporter.ReportProgress(p.passed, p.done, message)
	if p.done == p.total {
		p.reporter.LogMessage(fmt.Sprintf("finished %d of %d cases", p.done, p.total), false)
	}
}
