package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nil nil", nil, nil, true},
		{"nil vs empty string", nil, "", false},
		{"json number vs int64", json.Number("42"), int64(42), true},
		{"json number vs float", json.Number("999.99"), 999.99, true},
		{"int vs float", 3, 3.0, true},
		{"large ids differ", json.Number("9007199254740993"), int64(9007199254740992), false},
		{"large ids match", json.Number("9007199254740993"), int64(9007199254740993), true},
		{"uint64 vs int64", uint64(1) << 60, int64(1) << 60, true},
		{"number vs numeric string", json.Number("1"), "1", false},
		{"bytes vs string", []byte("abc"), "abc", true},
		{"bool", true, true, true},
		{"bool mismatch", true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValuesEqual(tt.a, tt.b))
		})
	}
}

func TestRow_Equal(t *testing.T) {
	a := Row{"id": json.Number("1"), "name": "alice", "age": json.Number("25")}
	b := Row{"id": int64(1), "name": "alice", "age": 25.0}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(Row{"id": int64(1), "name": "alice"}))
	assert.False(t, a.Equal(Row{"id": int64(1), "name": "bob", "age": 25}))
}

func TestRow_CloneIsIndependent(t *testing.T) {
	orig := Row{"name": "alice"}
	clone := orig.Clone()
	clone["name"] = "bob"

	assert.Equal(t, "alice", orig["name"])
	assert.Nil(t, Row(nil).Clone())
}

func TestRow_Project(t *testing.T) {
	row := Row{"id": 1, "name": "alice", "email": "a@example.com"}
	assert.Equal(t, Row{"id": 1, "email": "a@example.com"}, row.Project([]string{"id", "email", "missing"}))
}

func TestCountDuplicates(t *testing.T) {
	rows := []Row{
		{"title": "a"},
		{"title": "b"},
		{"title": "a"},
		{"title": "a"},
	}
	assert.Equal(t, 2, CountDuplicates(rows))
	assert.Equal(t, 0, CountDuplicates(rows[:2]))
	assert.Equal(t, 1, IndexOf(rows, Row{"title": "b"}))
	assert.Equal(t, -1, IndexOf(rows, Row{"title": "c"}))

	// Snowflake-sized ids collapse to the same float64.
	big := []Row{
		{"id": json.Number("1234567890123456789")},
		{"id": json.Number("1234567890123456788")},
	}
	assert.Equal(t, 0, CountDuplicates(big))
	assert.Equal(t, 1, IndexOf(big, Row{"id": int64(1234567890123456788)}))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		input any
		want  string
	}{
		{nil, "NULL"},
		{"hello", "hello"},
		{json.Number("12"), "12"},
		{999.99, "999.99"},
		{int64(7), "7"},
		{[]byte("raw"), "raw"},
		{false, "false"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.input))
	}
}
