package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// SinkName is the well-known name of the display region that all entries are written to.
const SinkName = "results"

const (
	passMarker    = "✓"
	failMarker    = "✗"
	messageIndent = "    "
)

// EntryKind says which part of the output an Entry came from.
type EntryKind int

const (
	// KindHeading is the name of a suite.
	KindHeading EntryKind = iota
	// KindCase is a pass/fail marker plus the name of a case.
	KindCase
	// KindMessage is the indented message under a failed case or progress entry.
	KindMessage
	// KindProgress is a passed/total tally pushed by the module.
	KindProgress
	// KindLog is a free-form line pushed by the module or written by the harness.
	KindLog
)

func (k EntryKind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindCase:
		return "case"
	case KindMessage:
		return "message"
	case KindProgress:
		return "progress"
	case KindLog:
		return "log"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Entry is one append-only unit of output. Sequence numbers start at 1 and reflect the order in
// which entries were appended.
type Entry struct {
	Sequence int
	Kind     EntryKind
	Text     string
	Failed   bool
	Time     time.Time
}

// Line renders the entry as plain text. Every line of a multi-line message is indented.
func (e Entry) Line() string {
	switch e.Kind {
	case KindCase, KindProgress:
		return marker(e.Failed) + " " + e.Text
	case KindMessage:
		return messageIndent + strings.ReplaceAll(e.Text, "\n", "\n"+messageIndent)
	case KindLog:
		if e.Failed {
			return "ERROR: " + e.Text
		}
		return e.Text
	default:
		return e.Text
	}
}

// JSON returns the entry as a compact JSON object, as sent to stream subscribers.
func (e Entry) JSON() []byte {
	w := jwriter.NewWriter()
	obj := w.Object()
	obj.Name("seq").Int(e.Sequence)
	obj.Name("kind").String(e.Kind.String())
	obj.Name("text").String(e.Text)
	obj.Name("failed").Bool(e.Failed)
	obj.Name("line").String(e.Line())
	obj.End()
	return w.Bytes()
}

func marker(failed bool) string {
	if failed {
		return failMarker
	}
	return passMarker
}
