// Package output renders CLI views of tables and command answers.
package output

import (
	"fmt"
	"strings"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// SheetSummary describes one loaded table.
type SheetSummary struct {
	ID          string   `json:"id" yaml:"id"`
	Source      string   `json:"source" yaml:"source"`
	Columns     []string `json:"columns" yaml:"columns"`
	Rows        int      `json:"rows" yaml:"rows"`
	Fingerprint string   `json:"fingerprint" yaml:"fingerprint"`
}

// Answer is a rendered command response reduced to what a terminal shows.
type Answer struct {
	Command string   `json:"command" yaml:"command"`
	Term    string   `json:"term,omitempty" yaml:"term,omitempty"`
	Title   string   `json:"title" yaml:"title"`
	Lines   []string `json:"lines" yaml:"lines"`
}

type Formatter interface {
	FormatSheets([]SheetSummary) (string, error)
	FormatAnswer(Answer) (string, error)
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format Format) (Formatter, error) {
	switch format {
	case FormatTable:
		return NewTableFormatter(), nil
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatYAML:
		return NewYAMLFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, json, yaml)", format)
	}
}

func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(s)))
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (supported: table, json, yaml)", s)
	}
}
