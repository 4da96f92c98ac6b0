package framework

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const timestampFormat = "15:04:05.000"

// Logger is the minimal logging interface used throughout the harness. *log.Logger satisfies it.
type Logger interface {
	Println(args ...interface{})
	Printf(message string, args ...interface{})
}

type nullLogger struct{}

func (nullLogger) Println(...interface{})        {}
func (nullLogger) Printf(string, ...interface{}) {}

func NullLogger() Logger { return nullLogger{} }

// CapturedLine is one line of debug output from a test scope.
type CapturedLine struct {
	Time time.Time
	Text string
}

type CapturedOutput []CapturedLine

// Format renders the output one line per entry, each starting with prefix and a timestamp.
func (output CapturedOutput) Format(prefix string) string {
	var b strings.Builder
	for i, line := range output {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s[%s] %s", prefix, line.Time.Format(timestampFormat), line.Text)
	}
	return b.String()
}

// CapturingLogger keeps the debug output of one test scope in the built-in module.
//
// While a subscope forked with Fork is running, anything written here goes to the subscope
// instead, so output from a fixture owned by a suite (a buffer, a second device) is attributed
// to the case that was running when it was written.
type CapturingLogger struct {
	lines  CapturedOutput
	active *CapturingLogger
	lock   sync.Mutex
}

func (l *CapturingLogger) Println(args ...interface{}) {
	l.write(strings.TrimRight(fmt.Sprintln(args...), "\r\n"))
}

func (l *CapturingLogger) Printf(message string, args ...interface{}) {
	l.write(fmt.Sprintf(message, args...))
}

func (l *CapturingLogger) write(text string) {
	line := CapturedLine{Time: time.Now(), Text: text}
	target := l
	for {
		target.lock.Lock()
		next := target.active
		if next == nil {
			target.lines = append(target.lines, line)
			target.lock.Unlock()
			return
		}
		target.lock.Unlock()
		target = next
	}
}

// Fork starts a subscope logger seeded with everything captured so far. Output sent to l is
// redirected to the subscope until Join is called.
func (l *CapturingLogger) Fork() *CapturingLogger {
	l.lock.Lock()
	defer l.lock.Unlock()
	child := &CapturingLogger{lines: append(CapturedOutput(nil), l.lines...)}
	l.active = child
	return child
}

// Join ends the redirection started by Fork.
func (l *CapturingLogger) Join(child *CapturingLogger) {
	l.lock.Lock()
	if l.active == child {
		l.active = nil
	}
	l.lock.Unlock()
}

func (l *CapturingLogger) Output() CapturedOutput {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append(CapturedOutput(nil), l.lines...)
}

type prefixedLogger struct {
	base   Logger
	prefix string
}

// LoggerWithPrefix returns a Logger that adds a fixed prefix to every message, such as the name
// of the pipeline step that is logging.
func LoggerWithPrefix(baseLogger Logger, prefix string) Logger {
	if baseLogger == nil {
		baseLogger = NullLogger()
	}
	return prefixedLogger{baseLogger, prefix}
}

func (p prefixedLogger) Println(args ...interface{}) {
	p.base.Println(append([]interface{}{p.prefix}, args...)...)
}

func (p prefixedLogger) Printf(message string, args ...interface{}) {
	p.base.Printf(p.prefix+message, args...)
}
