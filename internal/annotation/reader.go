// Package annotation reads RST annotation files into assembler records.
package annotation

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/rstagree/internal/rst"
)

// Format names an annotation file format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatXML  Format = "xml"
	FormatTSV  Format = "tsv"
)

// ParseFormat validates a format name. The empty string means FormatAuto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatXML, FormatTSV:
		return f, nil
	}
	return "", fmt.Errorf("unsupported annotation format %q", s)
}

// Detect picks a format from the file extension, falling back to sniffing
// the first non-blank byte.
func Detect(path string, content []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML
	case ".tsv", ".tab":
		return FormatTSV
	}
	if trimmed := bytes.TrimSpace(content); len(trimmed) > 0 && trimmed[0] == '<' {
		return FormatXML
	}
	return FormatTSV
}

// ReadFile reads the annotation file at path.
func ReadFile(path string, format Format) ([]rst.Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read annotation: %w", err)
	}
	return ReadBytes(content, path, format)
}

// ReadBytes parses content; path is only used to detect the format.
func ReadBytes(content []byte, path string, format Format) ([]rst.Record, error) {
	if format == FormatAuto || format == "" {
		format = Detect(path, content)
	}
	switch format {
	case FormatXML:
		return ReadXML(bytes.NewReader(content))
	case FormatTSV:
		return ReadTSV(bytes.NewReader(content))
	}
	return nil, fmt.Errorf("unsupported annotation format %q", format)
}

// Load reads the annotation file and assembles its forest.
func Load(path string, format Format, units rst.UnitIndex, opts ...rst.AssemblerOption) (*rst.Forest, error) {
	records, err := ReadFile(path, format)
	if err != nil {
		return nil, err
	}
	f, err := rst.Build(records, units, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return f, nil
}
