package console

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// DefaultRule seeds a create-form field whose column name contains any of
// Substrings (case-insensitive). A KeyGuess rule stands in for the primary
// key and only applies when the key is unknown.
type DefaultRule struct {
	Name       string
	Substrings []string
	Value      any
	KeyGuess   bool
}

// Matches reports whether the rule applies to column.
func (r DefaultRule) Matches(column string) bool {
	lower := strings.ToLower(column)
	for _, sub := range r.Substrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// DefaultRules are evaluated in order; the first match wins. Columns that
// match no rule default to the empty string.
var DefaultRules = []DefaultRule{
	{Name: "identifier", Substrings: []string{"id"}, Value: nil, KeyGuess: true},
	{Name: "label", Substrings: []string{"name", "username", "title"}, Value: "New Item"},
	{Name: "email", Substrings: []string{"email"}, Value: "new@example.com"},
	{Name: "price", Substrings: []string{"price"}, Value: 0.0},
	{Name: "count", Substrings: []string{"age", "stock", "priority"}, Value: 0},
	{Name: "description", Substrings: []string{"description"}, Value: "Description"},
	{Name: "category", Substrings: []string{"category"}, Value: "General"},
	{Name: "flag", Substrings: []string{"completed"}, Value: false},
}

// Defaults derives create-form values for columns. Primary key columns,
// when known, are left nil for the database to assign and replace the
// name-based key guess; every other column takes the first matching rule.
func Defaults(columns, primaryKey []string, rules []DefaultRule) core.Row {
	form := make(core.Row, len(columns))
	for _, col := range columns {
		if containsFold(primaryKey, col) {
			form[col] = nil
			continue
		}
		form[col] = ruleValue(col, rules, len(primaryKey) > 0)
	}
	return form
}

func ruleValue(column string, rules []DefaultRule, keyKnown bool) any {
	for _, r := range rules {
		if r.KeyGuess && keyKnown {
			continue
		}
		if r.Matches(column) {
			return r.Value
		}
	}
	return ""
}

// IsKeyColumn reports whether column identifies rows: a primary key column
// when the key is known, otherwise any column whose name contains "id".
func IsKeyColumn(column string, primaryKey []string) bool {
	if len(primaryKey) > 0 {
		return containsFold(primaryKey, column)
	}
	return strings.Contains(strings.ToLower(column), "id")
}

// ParseInput converts text typed into a form field into a value shaped like
// previous: numbers stay numbers and booleans stay booleans when the text
// parses as one. An empty input for a nil value stays nil.
func ParseInput(raw string, previous any) any {
	trimmed := strings.TrimSpace(raw)
	switch previous.(type) {
	case nil:
		if trimmed == "" {
			return nil
		}
	case bool:
		if b, err := strconv.ParseBool(trimmed); err == nil {
			return b
		}
	case json.Number, float64, float32, int, int32, int64:
		if _, err := strconv.ParseFloat(trimmed, 64); err == nil && json.Valid([]byte(trimmed)) {
			return json.Number(trimmed)
		}
	}
	return raw
}

// InputText renders a form value for a text input. nil renders empty.
func InputText(v any) string {
	if v == nil {
		return ""
	}
	return core.FormatValue(v)
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
