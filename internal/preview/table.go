// Package preview renders masked records as an aligned markdown table.
package preview

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"newsmask/internal/models"
)

// Ellipsis marks a truncated cell.
const Ellipsis = "…"

// DefaultWidth is the cell width used when Render is given a non-positive width.
const DefaultWidth = 40

var header = []string{"id", "masked_article", "answer"}

// Render returns a markdown table of id, masked_article and answer. Cells longer
// than width display columns are truncated; columns are padded by display width
// so CJK text lines up in a terminal.
func Render(records []models.Record, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}

	table := make([][]string, 0, len(records)+1)
	table = append(table, header)

	for _, rec := range records {
		table = append(table, []string{
			cell(rec.ID, width),
			cell(rec.MaskedArticle, width),
			cell(rec.Answer, width),
		})
	}

	return strings.Join(formatTable(table), "\n") + "\n"
}

func cell(s string, width int) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", `\|`)

	return runewidth.Truncate(s, width, Ellipsis)
}

// formatTable lays out rows with a separator after the header.
func formatTable(table [][]string) []string {
	colCount := len(table[0])

	// Calculate max widths (using display width)
	colWidths := make([]int, colCount)

	for _, row := range table {
		for i := 0; i < len(row) && i < colCount; i++ {
			colWidths[i] = max(colWidths[i], runewidth.StringWidth(row[i]))
		}
	}

	// Ensure min width for separator (usually 3 dashes "---")
	for i := range colWidths {
		colWidths[i] = max(colWidths[i], 3)
	}

	result := make([]string, 0, len(table)+1)

	for i, row := range table {
		result = append(result, formatRow(row, colWidths))

		if i == 0 {
			sep := make([]string, colCount)
			for j := range sep {
				sep[j] = strings.Repeat("-", colWidths[j])
			}

			result = append(result, formatRow(sep, colWidths))
		}
	}

	return result
}

func formatRow(row []string, colWidths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, w := range colWidths {
		sb.WriteString(" ")

		content := ""
		if j < len(row) {
			content = row[j]
		}

		sb.WriteString(content)

		// Pad with spaces based on display width
		if padding := w - runewidth.StringWidth(content); padding > 0 {
			sb.WriteString(strings.Repeat(" ", padding))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}
