package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ch-pump/internal/schema"
)

// zeroTime is substituted for NULLs landing in non-nullable temporal
// columns, matching how absent dates were backfilled historically.
var zeroTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

var dateTimeFormats = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
	"15:04:05",
}

// coerceRow converts one source row into destination representation.
// Column order follows the plan.
func coerceRow(row []any, plan *schema.TablePlan) ([]any, error) {
	if len(row) != len(plan.Columns) {
		return nil, fmt.Errorf("row has %d values, plan expects %d", len(row), len(plan.Columns))
	}
	out := make([]any, len(row))
	for i, v := range row {
		cv, err := CoerceValue(v, plan.Columns[i].Dest)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", plan.Columns[i].Dest.Name, err)
		}
		out[i] = cv
	}
	return out, nil
}

// CoerceValue converts a single driver-provided value into the Go
// representation the destination driver expects for col's type. NULL passes
// through only when the destination column allows it; otherwise the type's
// zero default is substituted.
func CoerceValue(v any, col schema.DestColumn) (any, error) {
	if v == nil {
		if col.Nullable {
			return nil, nil
		}
		return defaultValue(col.Type), nil
	}

	base := col.Type
	if inner, ok := strings.CutPrefix(base, "LowCardinality("); ok {
		base = strings.TrimSuffix(inner, ")")
	}

	switch {
	case base == "Bool":
		return toBool(v)
	case strings.HasPrefix(base, "UInt"):
		// uint64 keeps its own representation: values above 2^63 would
		// change sign through int64.
		if u, ok := v.(uint64); ok {
			return u, nil
		}
		return toInt64(v)
	case strings.HasPrefix(base, "Int"):
		return toInt64(v)
	case strings.HasPrefix(base, "Float"):
		return toFloat64(v)
	case strings.HasPrefix(base, "Decimal"):
		return toDecimal(v)
	case base == "Date32", strings.HasPrefix(base, "DateTime"):
		return toTime(v)
	case strings.HasPrefix(base, "Array(Float32"):
		return toFloatArray(v)
	default:
		return toString(v), nil
	}
}

func defaultValue(destType string) any {
	switch {
	case destType == "Bool":
		return false
	case strings.HasPrefix(destType, "UInt"), strings.HasPrefix(destType, "Int"):
		return int64(0)
	case strings.HasPrefix(destType, "Float"):
		return float64(0)
	case strings.HasPrefix(destType, "Decimal"):
		return decimal.Zero
	case destType == "Date32", strings.HasPrefix(destType, "DateTime"):
		return zeroTime
	case strings.HasPrefix(destType, "Array"):
		return []float32{}
	default:
		return ""
	}
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case []byte:
		return parseBool(string(x))
	case string:
		return parseBool(x)
	default:
		return false, fmt.Errorf("cannot coerce %T to Bool", v)
	}
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on", "\x01":
		return true, nil
	case "0", "false", "no", "off", "", "\x00":
		return false, nil
	}
	return false, fmt.Errorf("cannot parse %q as Bool", s)
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return parseInt64(string(x))
	case string:
		return parseInt64(x)
	default:
		return 0, fmt.Errorf("cannot coerce %T to integer", v)
	}
}

func parseInt64(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	// Decimal strings like "3.0" appear in loosely typed sources.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as integer", s)
	}
	return int64(f), nil
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case []byte:
		return parseFloat64(string(x))
	case string:
		return parseFloat64(x)
	default:
		return 0, fmt.Errorf("cannot coerce %T to float", v)
	}
}

func parseFloat64(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as float", s)
	}
	return f, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case int64:
		return decimal.NewFromInt(x), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case []byte:
		return decimal.NewFromString(strings.TrimSpace(string(x)))
	case string:
		return decimal.NewFromString(strings.TrimSpace(x))
	default:
		return decimal.Zero, fmt.Errorf("cannot coerce %T to decimal", v)
	}
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case []byte:
		return parseDateTime(string(x))
	case string:
		return parseDateTime(x)
	default:
		return time.Time{}, fmt.Errorf("cannot coerce %T to date/time", v)
	}
}

func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as date/time", s)
}

func toFloatArray(v any) ([]float32, error) {
	var raw string
	switch x := v.(type) {
	case []float32:
		return x, nil
	case []byte:
		raw = string(x)
	case string:
		raw = x
	default:
		return nil, fmt.Errorf("cannot coerce %T to float array", v)
	}
	var arr []float32
	if err := json.Unmarshal([]byte(raw), &arr); err != nil {
		return nil, fmt.Errorf("cannot parse %q as float array: %w", raw, err)
	}
	return arr, nil
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return cleanString(x)
	case []byte:
		return cleanString(string(x))
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}

// cleanString strips control characters that the destination's text
// handling chokes on; tab and line breaks survive.
func cleanString(s string) string {
	if !strings.ContainsFunc(s, func(r rune) bool { return r < 0x20 && r != '\t' && r != '\n' && r != '\r' }) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 0x20 || r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
