package output

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func sampleSheets() []SheetSummary {
	return []SheetSummary{
		{ID: "id_abbrev", Source: "inline", Columns: []string{"col1", "col2", "col3"}, Rows: 2, Fingerprint: "9f86d081884c7d65"},
		{ID: "glossary", Source: "terms.csv", Columns: []string{"term", "meaning"}, Rows: 14, Fingerprint: "2c26b46b68ffc68f"},
	}
}

func sampleAnswer() Answer {
	return Answer{
		Command: "abbrev",
		Term:    "ROW1COL1",
		Title:   "These are the results for ROW1COL1",
		Lines:   []string{"*ROW1COL1* is row1col3"},
	}
}

func TestFactory_Create(t *testing.T) {
	factory := NewFactory()

	tests := []struct {
		name    string
		format  Format
		wantErr bool
	}{
		{name: "table format", format: FormatTable},
		{name: "json format", format: FormatJSON},
		{name: "yaml format", format: FormatYAML},
		{name: "invalid format", format: Format("csv"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter, err := factory.Create(tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("Create() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && formatter == nil {
				t.Error("Create() returned nil formatter for valid format")
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "TABLE", want: FormatTable},
		{input: "table", want: FormatTable},
		{input: " json ", want: FormatJSON},
		{input: "YAML", want: FormatYAML},
		{input: "invalid", want: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseFormat() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTableFormatter_FormatSheets(t *testing.T) {
	out, err := NewTableFormatter().FormatSheets(sampleSheets())
	if err != nil {
		t.Fatalf("FormatSheets() error = %v", err)
	}

	for _, want := range []string{"id_abbrev", "glossary", "terms.csv", "col1, col2, col3", "14", "9f86d081884c7d65"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatSheets() output missing %q", want)
		}
	}
}

func TestTableFormatter_FormatSheets_Empty(t *testing.T) {
	out, err := NewTableFormatter().FormatSheets(nil)
	if err != nil {
		t.Fatalf("FormatSheets() error = %v", err)
	}
	if out != "No sheets loaded" {
		t.Errorf("FormatSheets() = %v, want 'No sheets loaded'", out)
	}
}

func TestTableFormatter_FormatAnswer(t *testing.T) {
	formatter := NewTableFormatter()

	out, err := formatter.FormatAnswer(sampleAnswer())
	if err != nil {
		t.Fatalf("FormatAnswer() error = %v", err)
	}
	if !strings.Contains(out, "These are the results for ROW1COL1") || !strings.Contains(out, "*ROW1COL1* is row1col3") {
		t.Errorf("FormatAnswer() output = %q", out)
	}

	out, err = formatter.FormatAnswer(Answer{Command: "abbrev", Title: `No results found for "zzz"`})
	if err != nil {
		t.Fatalf("FormatAnswer() error = %v", err)
	}
	if !strings.Contains(out, `No results found for "zzz"`) {
		t.Errorf("FormatAnswer() output = %q", out)
	}
}

func TestJSONFormatter(t *testing.T) {
	formatter := NewJSONFormatter()

	out, err := formatter.FormatSheets(sampleSheets())
	if err != nil {
		t.Fatalf("FormatSheets() error = %v", err)
	}
	var sheets []SheetSummary
	if err := json.Unmarshal([]byte(out), &sheets); err != nil {
		t.Fatalf("FormatSheets() produced invalid JSON: %v", err)
	}
	if len(sheets) != 2 || sheets[1].Rows != 14 {
		t.Errorf("decoded sheets = %+v", sheets)
	}

	out, err = formatter.FormatSheets(nil)
	if err != nil || out != "[]" {
		t.Errorf("FormatSheets(nil) = %q, %v, want []", out, err)
	}

	out, err = formatter.FormatAnswer(Answer{Command: "abbrev", Title: "none"})
	if err != nil {
		t.Fatalf("FormatAnswer() error = %v", err)
	}
	if !strings.Contains(out, `"lines": []`) {
		t.Errorf("FormatAnswer() should emit an empty lines array, got %s", out)
	}
}

func TestYAMLFormatter(t *testing.T) {
	out, err := NewYAMLFormatter().FormatAnswer(sampleAnswer())
	if err != nil {
		t.Fatalf("FormatAnswer() error = %v", err)
	}

	var answer Answer
	if err := yaml.Unmarshal([]byte(out), &answer); err != nil {
		t.Fatalf("FormatAnswer() produced invalid YAML: %v", err)
	}
	if answer.Term != "ROW1COL1" || len(answer.Lines) != 1 {
		t.Errorf("decoded answer = %+v", answer)
	}
	if strings.HasSuffix(out, "\n") {
		t.Error("YAML output should be trimmed")
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{name: "short string", input: "hello", maxLen: 20, expected: "hello"},
		{name: "exact length", input: "hello world", maxLen: 11, expected: "hello world"},
		{name: "too long", input: "hello world test", maxLen: 10, expected: "hello w..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateString(tt.input, tt.maxLen); got != tt.expected {
				t.Errorf("truncateString() = %v, want %v", got, tt.expected)
			}
		})
	}
}
