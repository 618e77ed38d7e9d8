package console

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

const (
	// MaxTableColumns is how many columns the table view shows.
	MaxTableColumns = 5
	// MaxCellWidth is how many characters of a cell the table view shows.
	MaxCellWidth = 30
)

// ColumnLabel turns a column name like "created_at" into "Created At".
func ColumnLabel(column string) string {
	words := strings.FieldsFunc(column, func(r rune) bool { return r == '_' || r == '-' })
	if len(words) == 0 {
		return column
	}
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// VisibleColumns returns the columns the table view renders.
func VisibleColumns(columns []string) []string {
	if len(columns) <= MaxTableColumns {
		return columns
	}
	return columns[:MaxTableColumns]
}

// CellText renders a value for the table view. nil renders blank and long
// text is cut to MaxCellWidth.
func CellText(v any) string {
	if v == nil {
		return ""
	}
	return Truncate(core.FormatValue(v), MaxCellWidth)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
