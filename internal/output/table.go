package output

import (
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

const maxCellWidth = 40

type TableFormatter struct {
	headerStyle  lipgloss.Style
	cellStyle    lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
	titleStyle   lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	green := lipgloss.Color("#36a64f")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(green).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		cellStyle: lipgloss.NewStyle().
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(green),
		titleStyle: lipgloss.NewStyle().
			Foreground(green).
			Bold(true),
	}
}

func (f *TableFormatter) FormatSheets(sheets []SheetSummary) (string, error) {
	if len(sheets) == 0 {
		return "No sheets loaded", nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		}).
		Headers("ID", "Source", "Columns", "Rows", "Fingerprint")

	for _, sheet := range sheets {
		t.Row(
			sheet.ID,
			truncateString(sheet.Source, maxCellWidth),
			truncateString(strings.Join(sheet.Columns, ", "), maxCellWidth),
			strconv.Itoa(sheet.Rows),
			sheet.Fingerprint,
		)
	}

	return t.String(), nil
}

// FormatAnswer prints the title followed by one bordered row per result line.
func (f *TableFormatter) FormatAnswer(answer Answer) (string, error) {
	title := f.titleStyle.Render(answer.Title)
	if len(answer.Lines) == 0 {
		return title, nil
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			return f.cellStyle
		})
	for _, line := range answer.Lines {
		t.Row(line)
	}

	return title + "\n" + t.String(), nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
