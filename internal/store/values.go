package store

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"
)

// normalizeValue turns a scanned database value into a JSON-safe scalar.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return val
	case float32:
		return finite(float64(val))
	case float64:
		return finite(val)
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case *big.Int:
		return val.String()
	case interface{ Float64() float64 }:
		return finite(val.Float64())
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// finite keeps NaN and infinities out of JSON by rendering them as text.
func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return f
}

// bindValue converts a decoded JSON value into a driver argument. Numbers
// bind as int64 when integral and float64 otherwise.
func bindValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int64(val)
		}
		return val
	case map[string]any, []any:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	default:
		return val
	}
}
