package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/leapstack-labs/leapconsole/internal/cli/output"
	"github.com/leapstack-labs/leapconsole/internal/console"
	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// renderTableData writes rows the way the console's table view shows them:
// at most five labelled columns with cells cut to thirty characters. wide
// lifts both limits.
func renderTableData(r *output.Renderer, data *core.TableData, wide bool) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(core.TableDataResponse{Columns: data.Columns, Data: data.Rows, PrimaryKey: data.PrimaryKey})
	}

	columns := data.Columns
	if !wide {
		columns = console.VisibleColumns(columns)
	}
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = console.ColumnLabel(col)
	}

	rows := make([][]string, len(data.Rows))
	for i, row := range data.Rows {
		cells := make([]string, len(columns))
		for j, col := range columns {
			if wide {
				cells[j] = formatValue(row[col])
			} else {
				cells[j] = console.CellText(row[col])
			}
		}
		rows[i] = cells
	}

	r.Header(2, data.Name)
	r.Table(headers, rows)
	if hidden := len(data.Columns) - len(columns); hidden > 0 {
		r.Muted(fmt.Sprintf("%d more columns (use --wide)", hidden))
	}
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return ""
	}
	return core.FormatValue(v)
}

// parseRow decodes a JSON object argument, keeping integers exact.
func parseRow(arg string) (core.Row, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(arg)))
	dec.UseNumber()
	var row core.Row
	if err := dec.Decode(&row); err != nil {
		return nil, fmt.Errorf("invalid row %s: expected a JSON object: %w", strconv.Quote(arg), err)
	}
	if row == nil {
		return nil, fmt.Errorf("invalid row %s: expected a JSON object", strconv.Quote(arg))
	}
	return row, nil
}
