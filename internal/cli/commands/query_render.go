package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/leapconsole/internal/store"
	"github.com/leapstack-labs/leapconsole/pkg/core"
)

func renderResults(w io.Writer, res *store.QueryResult, format string) error {
	var err error
	switch format {
	case "json":
		return renderJSON(w, res)
	case "csv":
		err = renderCSV(w, res)
	case "md", "markdown":
		renderGrid(w, res, true)
	default:
		renderGrid(w, res, false)
	}
	if err != nil {
		return err
	}
	if res.Truncated {
		_, _ = fmt.Fprintf(w, "(showing the first %d rows)\n", len(res.Rows))
	}
	return nil
}

func renderGrid(w io.Writer, res *store.QueryResult, markdown bool) {
	if len(res.Rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	headerRow := make(table.Row, len(res.Columns))
	for i, col := range res.Columns {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, result := range res.Rows {
		row := make(table.Row, len(res.Columns))
		for i, col := range res.Columns {
			row[i] = core.FormatValue(result[col])
		}
		t.AppendRow(row)
	}

	if markdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
}

func renderJSON(w io.Writer, res *store.QueryResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"columns":   res.Columns,
		"rows":      res.Rows,
		"truncated": res.Truncated,
	})
}

func renderCSV(w io.Writer, res *store.QueryResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return err
	}
	for _, result := range res.Rows {
		values := make([]string, len(res.Columns))
		for i, col := range res.Columns {
			if v := result[col]; v != nil {
				values[i] = core.FormatValue(v)
			}
		}
		if err := cw.Write(values); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
