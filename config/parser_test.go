package config

import (
	"errors"
	"testing"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDocument struct {
	Name string `json:"name"`
	On   bool   `json:"on"`
	Ints []int  `json:"ints"`
}

func TestParseJSONAndYAML(t *testing.T) {
	for _, params := range []struct {
		desc  string
		path  string
		input string
	}{
		{"JSON by extension", "a.json", `{"name":"x","on":true,"ints":[1,2]}`},
		{"JSON by content", "a.conf", `  {"name":"x","on":true,"ints":[1,2]}`},
		{"YAML by extension", "a.yaml", `---
name: x
on: true
ints:
  - 1
  - 2
`},
		{"YAML by content", "a", "name: x\non: true\nints: [1, 2]\n"},
	} {
		t.Run(params.desc, func(t *testing.T) {
			var out testDocument
			require.NoError(t, Parse(params.path, []byte(params.input), &out))
			assert.Equal(t, "x", out.Name)
			assert.True(t, out.On)
			assert.Equal(t, []int{1, 2}, out.Ints)
		})
	}
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, DetectFormat("x.JSON", []byte("name: x")))
	assert.Equal(t, FormatYAML, DetectFormat("x.yml", []byte(`{"name": "x"}`)))
	assert.Equal(t, FormatJSON, DetectFormat("x", []byte("\n {}")))
	assert.Equal(t, FormatYAML, DetectFormat("x", nil))
}

func TestCanUseYAMLAnchorReferences(t *testing.T) {
	input := `---
shared: &shared_limits
  maxBufferSize: 1024
  maxComputeWorkgroupSizeX: 64

requiredLimits:
  <<: *shared_limits
  maxComputeWorkgroupSizeY: 8
`
	expected := `{
  "maxBufferSize": 1024,
  "maxComputeWorkgroupSizeX": 64,
  "maxComputeWorkgroupSizeY": 8
}`

	var c Config
	require.NoError(t, Parse("harness.yml", []byte(input), &c))
	m.In(t).Assert(c.RequiredLimits, m.JSONStrEqual(expected))
}

func TestParseErrorNamesFileAndFormat(t *testing.T) {
	var out testDocument
	err := Parse("conf/bad.json", []byte("{\n  \"name\": \"x\",\n  \"on\": yes\n}"), &out)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "conf/bad.json", parseErr.Path)
	assert.Equal(t, FormatJSON, parseErr.Format)
	assert.Contains(t, err.Error(), "conf/bad.json (JSON): line 3:")

	err = Parse("conf/bad.yml", []byte("name: [x\n"), &out)
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, FormatYAML, parseErr.Format)
	assert.Contains(t, err.Error(), "conf/bad.yml (YAML):")
}

func TestParseRejectsNonStringYAMLKeys(t *testing.T) {
	var out map[string]interface{}
	err := Parse("keys.yml", []byte("limits:\n  1: a\n"), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `under "limits"`)
}
