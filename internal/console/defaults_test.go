package console

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

func TestDefaults_Heuristic(t *testing.T) {
	columns := []string{"id", "user_id", "username", "title", "email", "price", "age", "stock",
		"priority", "description", "category", "completed", "created_at"}

	got := Defaults(columns, nil, DefaultRules)

	want := core.Row{
		"id":          nil,
		"user_id":     nil,
		"username":    "New Item",
		"title":       "New Item",
		"email":       "new@example.com",
		"price":       0.0,
		"age":         0,
		"stock":       0,
		"priority":    0,
		"description": "Description",
		"category":    "General",
		"completed":   false,
		"created_at":  "",
	}
	assert.Equal(t, want, got)
}

func TestDefaults_SchemaFirst(t *testing.T) {
	got := Defaults([]string{"sku", "paid", "name"}, []string{"sku"}, DefaultRules)

	assert.Nil(t, got["sku"])
	// "paid" contains "id" but the schema says it is not the key.
	assert.Equal(t, "", got["paid"])
	assert.Equal(t, "New Item", got["name"])

	assert.True(t, IsKeyColumn("sku", []string{"sku"}))
	assert.False(t, IsKeyColumn("paid", []string{"sku"}))
	assert.True(t, IsKeyColumn("paid", nil))
}

func TestDefaults_CustomRules(t *testing.T) {
	rules := []DefaultRule{{Name: "status", Substrings: []string{"status"}, Value: "open"}}
	got := Defaults([]string{"Status", "id"}, nil, rules)
	assert.Equal(t, core.Row{"Status": "open", "id": ""}, got)
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		previous any
		want     any
	}{
		{"number stays number", "42", json.Number("7"), json.Number("42")},
		{"float from int default", "1.5", 0, json.Number("1.5")},
		{"not a number stays text", "abc", 0, "abc"},
		{"nan is text", "NaN", 0.0, "NaN"},
		{"bool parses", "true", false, true},
		{"bad bool stays text", "yes", false, "yes"},
		{"empty nil stays nil", "  ", nil, nil},
		{"nil becomes text", "x", nil, "x"},
		{"string untouched", " padded ", "old", " padded "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseInput(tt.raw, tt.previous))
		})
	}
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Created At", ColumnLabel("created_at"))
	assert.Equal(t, "Id", ColumnLabel("id"))
	assert.Equal(t, "_", ColumnLabel("_"))

	cols := []string{"a", "b", "c", "d", "e", "f", "g"}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, VisibleColumns(cols))
	assert.Equal(t, []string{"a"}, VisibleColumns([]string{"a"}))

	long := "0123456789012345678901234567890123456789"
	assert.Equal(t, long[:30], CellText(long))
	assert.Equal(t, "", CellText(nil))
	assert.Equal(t, "0", CellText(0))
	assert.Equal(t, "false", CellText(false))
	assert.Equal(t, "héllo", Truncate("héllo wörld", 5))
	assert.Equal(t, "InputText", InputText("InputText"))
	assert.Equal(t, "", InputText(nil))
}
