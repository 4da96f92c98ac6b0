package report

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Sink receives entries in the order they are appended. Appended entries are never revised.
type Sink interface {
	Append(entry Entry)
}

// Closer is implemented by sinks that have output to flush at the end of a run.
type Closer interface {
	Close() error
}

type nullSink struct{}

func (nullSink) Append(Entry) {}

func NullSink() Sink { return nullSink{} }

// MultiSink delivers each entry to every sink in order.
type MultiSink []Sink

func (m MultiSink) Append(entry Entry) {
	for _, s := range m {
		s.Append(entry)
	}
}

// Close closes every sink that implements Closer, and returns all of their errors.
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if c, ok := s.(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// WriterSink writes each entry as a plain text line.
type WriterSink struct {
	w io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Append(entry Entry) {
	_, _ = fmt.Fprintln(s.w, entry.Line())
}

// MemorySink keeps every entry it receives.
type MemorySink struct {
	entries []Entry
	lock    sync.Mutex
}

func (s *MemorySink) Append(entry Entry) {
	s.lock.Lock()
	s.entries = append(s.entries, entry)
	s.lock.Unlock()
}

// Entries returns a copy of everything appended so far.
func (s *MemorySink) Entries() []Entry {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Lines returns the plain text rendering of every entry.
func (s *MemorySink) Lines() []string {
	entries := s.Entries()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Line())
	}
	return lines
}

// OfKind returns the entries of one kind, in order.
func (s *MemorySink) OfKind(kind EntryKind) []Entry {
	var ret []Entry
	for _, e := range s.Entries() {
		if e.Kind == kind {
			ret = append(ret, e)
		}
	}
	return ret
}
