package ldtest

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/labfont/gpu-test-harness/framework"
)

// Filter determines whether to run a specific test or not.
type Filter interface {
	Match(TestID) bool
}

// FilterFunc adapts a plain function to Filter.
type FilterFunc func(TestID) bool

func (f FilterFunc) Match(id TestID) bool { return f(id) }

// RegexFilters implements the -run and -skip command-line options.
//
// A test runs if it matches at least one MustMatch pattern (or there are none) and no MustNotMatch
// pattern. For MustMatch, the ancestors of a matching test also match, so that the scopes
// leading to it are entered. For MustNotMatch, the descendants of a matching test also match.
type RegexFilters struct {
	MustMatch    TestIDPatternList
	MustNotMatch TestIDPatternList
}

func (r RegexFilters) Match(id TestID) bool {
	if r.MustMatch.IsDefined() && !r.MustMatch.anyMatch(id, true) {
		return false
	}
	return !r.MustNotMatch.anyMatch(id, false)
}

// testIDPattern has one regex per TestID component, parsed from a slash-separated string such
// as "buffers/write". Each regex matches a substring of its component unless anchored.
type testIDPattern []*regexp.Regexp

func parseTestIDPattern(s string) (testIDPattern, error) {
	var p testIDPattern
	for _, part := range strings.Split(s, "/") {
		rx, err := regexp.Compile(part)
		if err != nil {
			return nil, fmt.Errorf("invalid test ID pattern %q: %w", s, err)
		}
		p = append(p, rx)
	}
	return p, nil
}

// match compares the pattern with id component by component. An id that is shorter than the
// pattern matches only if matchAncestors is true.
func (p testIDPattern) match(id TestID, matchAncestors bool) bool {
	if len(id) < len(p) && !matchAncestors {
		return false
	}
	for i, rx := range p {
		if i >= len(id) {
			break
		}
		if !rx.MatchString(id[i]) {
			return false
		}
	}
	return true
}

func (p testIDPattern) String() string {
	parts := make([]string, len(p))
	for i, rx := range p {
		parts[i] = rx.String()
	}
	return strings.Join(parts, "/")
}

// TestIDPatternList is a flag.Value that accumulates one pattern per use of the flag.
type TestIDPatternList []testIDPattern

func (l TestIDPatternList) String() string {
	quoted := make([]string, len(l))
	for i, p := range l {
		quoted[i] = fmt.Sprintf("%q", p.String())
	}
	return strings.Join(quoted, " or ")
}

func (l *TestIDPatternList) Set(value string) error {
	p, err := parseTestIDPattern(value)
	if err != nil {
		return err
	}
	*l = append(*l, p)
	return nil
}

func (l TestIDPatternList) IsDefined() bool {
	return len(l) != 0
}

func (l TestIDPatternList) anyMatch(id TestID, matchAncestors bool) bool {
	for _, p := range l {
		if p.match(id, matchAncestors) {
			return true
		}
	}
	return false
}

// PrintFilterDescription explains which tests will be skipped because of filters or
// capabilities that were not enabled for this run.
func PrintFilterDescription(out io.Writer, filters RegexFilters, allCapabilities []string, enabledCapabilities []string) {
	if filters.MustMatch.IsDefined() || filters.MustNotMatch.IsDefined() {
		fmt.Fprintln(out, "Some tests will be skipped based on the filter criteria for this test run:")
		if filters.MustMatch.IsDefined() {
			fmt.Fprintf(out, "  skip any not matching %s\n", filters.MustMatch)
		}
		if filters.MustNotMatch.IsDefined() {
			fmt.Fprintf(out, "  skip any matching %s\n", filters.MustNotMatch)
		}
		fmt.Fprintln(out)
	}

	missing := framework.Capabilities(enabledCapabilities).Missing(allCapabilities...)
	if len(missing) > 0 {
		fmt.Fprintln(out, "Some tests may be skipped because the following capabilities are not available:")
		fmt.Fprintf(out, "  %s\n", strings.Join(missing, ", "))
		fmt.Fprintln(out)
	}
}
