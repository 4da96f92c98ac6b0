package report

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJUnitSinkWritesSuites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junit.xml")
	sink := NewJUnitSink(path, map[string]string{"backend": "noop"})
	p := NewPresenter(sink)

	p.LogMessage("starting", false)
	p.Present([]TestSuite{
		{Name: "Arithmetic", Tests: []TestCase{
			{Name: "add", Passed: true},
			{Name: "multiply", Passed: false, Message: ldvalue.NewOptionalString("overflow")},
		}},
		{Name: "Other", Tests: []TestCase{{Name: "x", Passed: true}}},
	})
	p.ReportProgress(2, 3, ldvalue.OptionalString{})
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc jUnitXMLDocument
	require.NoError(t, xml.Unmarshal(data, &doc))

	require.Len(t, doc.Suites, 2)
	s := doc.Suites[0]
	assert.Equal(t, "Arithmetic", s.Name)
	assert.Equal(t, 2, s.Tests)
	assert.Equal(t, 1, s.Failures)
	assert.Equal(t, []jUnitXMLProperty{{Name: "backend", Value: "noop"}}, s.Properties)
	require.Len(t, s.TestCases, 2)
	assert.Nil(t, s.TestCases[0].Failure)
	require.NotNil(t, s.TestCases[1].Failure)
	assert.Equal(t, "overflow", s.TestCases[1].Failure.Message)
	assert.Contains(t, s.SystemOut, "starting")

	assert.Equal(t, "Other", doc.Suites[1].Name)
	assert.Contains(t, doc.Suites[1].SystemOut, "✗ 2/3 passed")
}
