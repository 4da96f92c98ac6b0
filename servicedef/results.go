package servicedef

import (
	"fmt"

	"github.com/launchdarkly/go-jsonstream/v3/jreader"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"

	"github.com/labfont/gpu-test-harness/report"
)

// ParseTestResults reads the response to CommandGetTestResults. The payload is either an object
// with a "suites" array or the array itself. Unknown properties are ignored, a missing "tests"
// array means an empty suite, a missing "passed" means false, and a null "message" means no
// message.
func ParseTestResults(data []byte) ([]report.TestSuite, error) {
	r := jreader.NewReader(data)
	suites := []report.TestSuite{}
	top := r.Any()
	switch top.Kind {
	case jreader.ArrayValue:
		suites = readSuites(&r, top.Array)
	case jreader.ObjectValue:
		for obj := top.Object; obj.Next(); {
			if string(obj.Name()) == "suites" {
				suites = readSuites(&r, r.Array())
			} else {
				r.SkipValue()
			}
		}
	default:
		if r.Error() == nil {
			r.AddError(fmt.Errorf("expected test results object or array, got %v", top.Kind))
		}
	}
	if err := r.Error(); err != nil {
		return nil, err
	}
	return suites, nil
}

func readSuites(r *jreader.Reader, arr jreader.ArrayState) []report.TestSuite {
	suites := []report.TestSuite{}
	for arr.Next() {
		suite := report.TestSuite{Tests: []report.TestCase{}}
		for obj := r.Object(); obj.Next(); {
			switch string(obj.Name()) {
			case "name":
				suite.Name = r.String()
			case "tests":
				for tests := r.Array(); tests.Next(); {
					suite.Tests = append(suite.Tests, readCase(r))
				}
			default:
				r.SkipValue()
			}
		}
		suites = append(suites, suite)
	}
	return suites
}

func readCase(r *jreader.Reader) report.TestCase {
	var c report.TestCase
	for obj := r.Object(); obj.Next(); {
		switch string(obj.Name()) {
		case "name":
			c.Name = r.String()
		case "passed":
			c.Passed = r.Bool()
		case "message":
			if s, nonNull := r.StringOrNull(); nonNull {
				c.Message = ldvalue.NewOptionalString(s)
			}
		default:
			r.SkipValue()
		}
	}
	return c
}

// WriteTestResults produces the object form of the CommandGetTestResults response.
func WriteTestResults(suites []report.TestSuite) []byte {
	w := jwriter.NewWriter()
	obj := w.Object()
	suitesArr := obj.Name("suites").Array()
	for _, suite := range suites {
		suiteObj := suitesArr.Object()
		suiteObj.Name("name").String(suite.Name)
		testsArr := suiteObj.Name("tests").Array()
		for _, c := range suite.Tests {
			caseObj := testsArr.Object()
			caseObj.Name("name").String(c.Name)
			caseObj.Name("passed").Bool(c.Passed)
			if c.Message.IsDefined() {
				caseObj.Name("message").String(c.Message.StringValue())
			}
			caseObj.End()
		}
		testsArr.End()
		suiteObj.End()
	}
	suitesArr.End()
	obj.End()
	return w.Bytes()
}
