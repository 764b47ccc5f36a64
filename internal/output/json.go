package output

import (
	"encoding/json"
)

type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) FormatSheets(sheets []SheetSummary) (string, error) {
	if sheets == nil {
		sheets = []SheetSummary{}
	}
	return marshalJSON(sheets)
}

func (f *JSONFormatter) FormatAnswer(answer Answer) (string, error) {
	if answer.Lines == nil {
		answer.Lines = []string{}
	}
	return marshalJSON(answer)
}

func marshalJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
