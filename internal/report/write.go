// Package report serializes campaign reports as JSON or YAML.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the encoding from the path extension. "-" and unknown
// extensions use JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Marshal encodes v. JSON output is indented and newline terminated.
func Marshal(v any, f Format) ([]byte, error) {
	switch f {
	case FormatYAML:
		return encodeYAML(v)
	case FormatJSON, "":
		return encodeJSONPretty(v)
	}
	return nil, fmt.Errorf("unsupported report format: %q", f)
}

// Write encodes v according to the path extension and writes it to path,
// creating parent directories. "-" or "" writes JSON to stdout.
func Write(path string, v any) error {
	if path == "" || path == "-" {
		return WriteTo(os.Stdout, v, FormatJSON)
	}
	data, err := Marshal(v, FormatFor(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// WriteTo encodes v to w.
func WriteTo(w io.Writer, v any, f Format) error {
	data, err := Marshal(v, f)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteLines writes one compact JSON document per item.
func WriteLines[T any](w io.Writer, items []T) error {
	for _, it := range items {
		b, err := encodeJSONCompact(it)
		if err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

func encodeJSONCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeJSONPretty(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	out = append(out, '\n')
	return out, nil
}
