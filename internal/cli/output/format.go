package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// FormatHeader returns a markdown heading.
func FormatHeader(level int, text string) string {
	level = max(1, min(level, 6))
	return strings.Repeat("#", level) + " " + text
}

// FormatKeyValue returns a markdown list item for a labelled value.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s:** %s", key, value)
}

// Table renders rows under headers, with a row count footer. Text mode
// draws box lines; every other mode writes a markdown table.
func (r *Renderer) Table(headers []string, rows [][]string) {
	writeTable(r.out, headers, rows, r.EffectiveMode() != ModeText)
}

func writeTable(w io.Writer, headers []string, rows [][]string, markdown bool) {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)

	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, cell := range row {
			tr[i] = cell
		}
		t.AppendRow(tr)
	}

	if markdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
}
