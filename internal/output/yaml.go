package output

import (
	"strings"

	"gopkg.in/yaml.v3"
)

type YAMLFormatter struct{}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) FormatSheets(sheets []SheetSummary) (string, error) {
	return marshalYAML(sheets)
}

func (f *YAMLFormatter) FormatAnswer(answer Answer) (string, error) {
	return marshalYAML(answer)
}

func marshalYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
