package report

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"sync"
)

// JUnitSink collects suites and cases from the entries it receives and writes them as a JUnit
// XML report when closed. Progress and log entries are recorded as system output of the suite
// that was current when they arrived.
type JUnitSink struct {
	filePath   string
	properties []jUnitXMLProperty
	suites     []*jUnitXMLTestSuite
	looseLines []string
	lock       sync.Mutex
}

// Struct definitions for the JUnit XML schema - see https://github.com/jstemmer/go-junit-report

type jUnitXMLDocument struct {
	XMLName xml.Name             `xml:"testsuites"`
	Suites  []*jUnitXMLTestSuite `xml:"testsuite"`
}

type jUnitXMLTestSuite struct {
	XMLName    xml.Name           `xml:"testsuite"`
	Tests      int                `xml:"tests,attr"`
	Failures   int                `xml:"failures,attr"`
	Name       string             `xml:"name,attr"`
	Properties []jUnitXMLProperty `xml:"properties>property,omitempty"`
	TestCases  []jUnitXMLTestCase `xml:"testcase"`
	SystemOut  string             `xml:"system-out,omitempty"`
}

type jUnitXMLTestCase struct {
	XMLName   xml.Name         `xml:"testcase"`
	Classname string           `xml:"classname,attr"`
	Name      string           `xml:"name,attr"`
	Failure   *jUnitXMLFailure `xml:"failure,omitempty"`
}

type jUnitXMLProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type jUnitXMLFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
}

// NewJUnitSink creates a sink that will write to filePath. Each property is added to every
// suite in the report.
func NewJUnitSink(filePath string, properties map[string]string) *JUnitSink {
	j := &JUnitSink{filePath: filePath}
	for _, name := range sortedKeys(properties) {
		j.properties = append(j.properties, jUnitXMLProperty{Name: name, Value: properties[name]})
	}
	return j
}

func (j *JUnitSink) Append(entry Entry) {
	j.lock.Lock()
	defer j.lock.Unlock()
	switch entry.Kind {
	case KindHeading:
		j.suites = append(j.suites, &jUnitXMLTestSuite{Name: entry.Text, Properties: j.properties})
	case KindCase:
		suite := j.currentSuite()
		suite.Tests++
		testCase := jUnitXMLTestCase{Classname: suite.Name, Name: entry.Text}
		if entry.Failed {
			suite.Failures++
			testCase.Failure = &jUnitXMLFailure{Type: "failure"}
		}
		suite.TestCases = append(suite.TestCases, testCase)
	case KindMessage:
		if suite := j.lastSuite(); suite != nil && len(suite.TestCases) != 0 {
			if f := suite.TestCases[len(suite.TestCases)-1].Failure; f != nil && f.Message == "" {
				f.Message = entry.Text
				return
			}
		}
		j.addOutput(entry.Line())
	default:
		j.addOutput(entry.Line())
	}
}

func (j *JUnitSink) currentSuite() *jUnitXMLTestSuite {
	if len(j.suites) == 0 {
		j.suites = append(j.suites, &jUnitXMLTestSuite{Name: SinkName, Properties: j.properties})
	}
	return j.suites[len(j.suites)-1]
}

func (j *JUnitSink) lastSuite() *jUnitXMLTestSuite {
	if len(j.suites) == 0 {
		return nil
	}
	return j.suites[len(j.suites)-1]
}

func (j *JUnitSink) addOutput(line string) {
	if suite := j.lastSuite(); suite != nil {
		suite.SystemOut += line + "\n"
		return
	}
	j.looseLines = append(j.looseLines, line)
}

// Close writes the report file.
func (j *JUnitSink) Close() error {
	j.lock.Lock()
	defer j.lock.Unlock()
	fmt.Printf("Writing JUnit data to %s\n", j.filePath)

	doc := jUnitXMLDocument{Suites: j.suites}
	if len(j.looseLines) != 0 && len(doc.Suites) != 0 {
		doc.Suites[0].SystemOut = strings.Join(j.looseLines, "\n") + "\n" + doc.Suites[0].SystemOut
	}
	bytes, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	bytes = append(bytes, '\n')
	return os.WriteFile(j.filePath, bytes, 0644) //nolint:gosec
}
