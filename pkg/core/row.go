package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// =============================================================================
// Tables and rows
// =============================================================================

// TableRef names a table exposed by the backend.
type TableRef struct {
	Name string `json:"name"`
}

// TableData is a table's column order together with its rows.
// Columns and Rows always travel together so the two can never go stale
// independently of each other.
type TableData struct {
	Name       string
	Columns    []string
	Rows       []Row
	PrimaryKey []string
}

// Row maps a column name to a scalar value: string, number, bool or nil.
// Numbers decoded from the wire are json.Number to keep integer precision.
type Row map[string]any

// Clone returns a shallow copy of the row. Values are scalars, so a shallow
// copy is a full copy.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Equal reports whether two rows hold the same columns with equal values.
// Numbers compare by value regardless of their Go representation, so a row
// decoded from JSON equals the row it was encoded from.
func (r Row) Equal(other Row) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		ov, ok := other[k]
		if !ok || !ValuesEqual(v, ov) {
			return false
		}
	}
	return true
}

// Project returns a new row holding only the given columns. Missing columns
// are omitted rather than set to nil.
func (r Row) Project(columns []string) Row {
	out := make(Row, len(columns))
	for _, c := range columns {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

// IndexOf returns the index of the first row equal to target, or -1.
func IndexOf(rows []Row, target Row) int {
	for i, row := range rows {
		if row.Equal(target) {
			return i
		}
	}
	return -1
}

// CountDuplicates returns how many rows share their full snapshot with an
// earlier row. Such rows cannot be told apart when identity is by snapshot.
func CountDuplicates(rows []Row) int {
	dups := 0
	for i := range rows {
		for j := 0; j < i; j++ {
			if rows[i].Equal(rows[j]) {
				dups++
				break
			}
		}
	}
	return dups
}

// ValuesEqual compares two scalar values. Integers compare exactly, other
// numeric kinds are compared as floats; everything else uses ==.
func ValuesEqual(a, b any) bool {
	if ai, ok := toInt(a); ok {
		if bi, ok := toInt(b); ok {
			return ai == bi
		}
	}
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return af == bf || (math.IsNaN(af) && math.IsNaN(bf))
	}
	if aNum != bNum {
		return false
	}
	if ab, ok := a.([]byte); ok {
		a = string(ab)
	}
	if bb, ok := b.([]byte); ok {
		b = string(bb)
	}
	switch a.(type) {
	case nil, string, bool:
		return a == b
	default:
		return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
	}
}

// FormatValue renders a scalar for display. nil renders as "NULL".
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		return string(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// toInt reports v as an int64 when it holds an exact integer.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), n <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
