package bridge

import "github.com/launchdarkly/go-sdk-common/v3/ldvalue"

// ProgressReporter receives incremental output from a module while its tests are running.
// Calls are displayed in the order they are made.
type ProgressReporter interface {
	// ReportProgress records that passed out of total checks succeeded. The entry counts as a
	// failure if passed != total, in which case a non-empty message is shown with it.
	ReportProgress(passed, total int, message ldvalue.OptionalString)

	// LogMessage records a free-form line.
	LogMessage(text string, isError bool)
}

type nullReporter struct{}

func (nullReporter) ReportProgress(int, int, ldvalue.OptionalString) {}
func (nullReporter) LogMessage(string, bool)                         {}

func NullReporter() ProgressReporter { return nullReporter{} }
