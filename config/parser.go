package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Format is the syntax of a config document.
type Format string

const (
	FormatJSON Format = "JSON"
	FormatYAML Format = "YAML"
)

// ParseError says which document failed to parse and how it was read.
type ParseError struct {
	Path   string
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Path, e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DetectFormat uses the file extension if it is a known one. Otherwise a document whose first
// non-blank character is '{' is JSON, and anything else is YAML.
func DetectFormat(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yml", ".yaml":
		return FormatYAML
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) != 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes a config document into target. YAML is rewritten as JSON first, so the json tags
// and UnmarshalJSON methods of target apply to both formats. Errors are a *ParseError.
func Parse(path string, data []byte, target interface{}) error {
	format := DetectFormat(path, data)
	jsonData := data
	if format == FormatYAML {
		var err error
		if jsonData, err = yamlToJSON(data); err != nil {
			return &ParseError{Path: path, Format: format, Err: err}
		}
	}
	if err := json.Unmarshal(jsonData, target); err != nil {
		if format == FormatJSON {
			err = withJSONLine(data, err)
		}
		return &ParseError{Path: path, Format: format, Err: err}
	}
	return nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	value, err := jsonCompatible(doc, "")
	if err != nil {
		return nil, err
	}
	return json.Marshal(value)
}

// jsonCompatible replaces the map types yaml.v3 can produce with map[string]interface{}. at is
// the dotted key path, for error messages.
func jsonCompatible(node interface{}, at string) (interface{}, error) {
	switch node := node.(type) {
	case map[string]interface{}:
		for k, v := range node {
			converted, err := jsonCompatible(v, joinKey(at, k))
			if err != nil {
				return nil, err
			}
			node[k] = converted
		}
		return node, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(node))
		for k, v := range node {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("key %v under %q is a %T; only string keys are allowed", k, rootName(at), k)
			}
			converted, err := jsonCompatible(v, joinKey(at, key))
			if err != nil {
				return nil, err
			}
			out[key] = converted
		}
		return out, nil
	case []interface{}:
		for i, v := range node {
			converted, err := jsonCompatible(v, fmt.Sprintf("%s[%d]", at, i))
			if err != nil {
				return nil, err
			}
			node[i] = converted
		}
		return node, nil
	default:
		return node, nil
	}
}

func joinKey(at, key string) string {
	if at == "" {
		return key
	}
	return at + "." + key
}

func rootName(at string) string {
	if at == "" {
		return "(top level)"
	}
	return at
}

// withJSONLine adds the line number to syntax and type errors, which otherwise only carry a byte
// offset.
func withJSONLine(data []byte, err error) error {
	var offset int64
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line := 1 + bytes.Count(data[:offset], []byte("\n"))
	return fmt.Errorf("line %d: %w", line, err)
}
