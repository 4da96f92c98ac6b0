package report

import (
	"fmt"
	"sync"
	"time"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/labfont/gpu-test-harness/bridge"
)

// Presenter writes results to a Sink. It also implements bridge.ProgressReporter, so a module
// can push progress and log lines through the same sink while it runs.
//
// Every entry is appended under one lock, so concurrent callers (such as the HTTP callbacks of a
// remote module) are serialized in arrival order and a presentation is never interleaved with
// pushed entries.
type Presenter struct {
	sink     Sink
	sequence int
	now      func() time.Time
	lock     sync.Mutex
}

func NewPresenter(sink Sink) *Presenter {
	if sink == nil {
		sink = NullSink()
	}
	return &Presenter{sink: sink, now: time.Now}
}

// Present renders every suite in order: a heading, then one line per case, then an indented
// message line under each case that failed with a non-empty message. Nothing is reordered or
// skipped.
func (p *Presenter) Present(details []TestSuite) {
	p.lock.Lock()
	defer p.lock.Unlock()
	for _, suite := range details {
		p.append(Entry{Kind: KindHeading, Text: suite.Name})
		for _, c := range suite.Tests {
			p.append(Entry{Kind: KindCase, Text: c.Name, Failed: !c.Passed})
			if !c.Passed && c.Message.OrElse("") != "" {
				p.append(Entry{Kind: KindMessage, Text: c.Message.StringValue(), Failed: true})
			}
		}
	}
}

// ReportProgress appends a tally entry. It is a failure if passed != total, and only then is a
// non-empty message shown with it.
func (p *Presenter) ReportProgress(passed, total int, message ldvalue.OptionalString) {
	failed := passed != total
	p.lock.Lock()
	defer p.lock.Unlock()
	p.append(Entry{Kind: KindProgress, Text: fmt.Sprintf("%d/%d passed", passed, total), Failed: failed})
	if failed && message.OrElse("") != "" {
		p.append(Entry{Kind: KindMessage, Text: message.StringValue(), Failed: true})
	}
}

// LogMessage appends a free-form line.
func (p *Presenter) LogMessage(text string, isError bool) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.append(Entry{Kind: KindLog, Text: text, Failed: isError})
}

// Errorf appends an error line written by the harness itself.
func (p *Presenter) Errorf(format string, args ...interface{}) {
	p.LogMessage(fmt.Sprintf(format, args...), true)
}

func (p *Presenter) append(e Entry) {
	p.sequence++
	e.Sequence = p.sequence
	e.Time = p.now()
	p.sink.Append(e)
}

var _ bridge.ProgressReporter = (*Presenter)(nil)
