package engine

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ch-pump/internal/schema"
)

func TestCoerceValue_Bool(t *testing.T) {
	col := schema.DestColumn{Name: "active", Type: "Bool"}
	cases := []struct {
		in   any
		want bool
	}{
		{int64(1), true},
		{int64(0), false},
		{[]byte("1"), true},
		{"true", true},
		{"no", false},
		{true, true},
	}
	for _, c := range cases {
		got, err := CoerceValue(c.in, col)
		if err != nil {
			t.Fatalf("CoerceValue(%v) failed: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("CoerceValue(%v): expected %v, got %v", c.in, c.want, got)
		}
	}
}

func TestCoerceValue_Numbers(t *testing.T) {
	if got, err := CoerceValue([]byte("42"), schema.DestColumn{Type: "Int32"}); err != nil || got != int64(42) {
		t.Errorf("Expected 42, got %v (%v)", got, err)
	}
	// float-looking integer strings appear in loosely typed sources
	if got, err := CoerceValue("3.0", schema.DestColumn{Type: "Int64"}); err != nil || got != int64(3) {
		t.Errorf("Expected 3, got %v (%v)", got, err)
	}
	if got, err := CoerceValue([]byte("2.5"), schema.DestColumn{Type: "Float64"}); err != nil || got != 2.5 {
		t.Errorf("Expected 2.5, got %v (%v)", got, err)
	}
	if _, err := CoerceValue("not a number", schema.DestColumn{Type: "Int32"}); err == nil {
		t.Error("Expected error for unparseable integer")
	}
}

func TestCoerceValue_UnsignedKeepsRepresentation(t *testing.T) {
	// values above 2^63 must not round-trip through int64
	big := uint64(math.MaxUint64)
	got, err := CoerceValue(big, schema.DestColumn{Type: "UInt64"})
	if err != nil {
		t.Fatal(err)
	}
	if got != big {
		t.Errorf("Expected %d unchanged, got %v", big, got)
	}

	// smaller forms still normalize
	if got, err := CoerceValue([]byte("42"), schema.DestColumn{Type: "UInt32"}); err != nil || got != int64(42) {
		t.Errorf("Expected 42, got %v (%v)", got, err)
	}
}

func TestCoerceValue_Decimal(t *testing.T) {
	got, err := CoerceValue([]byte("1234.56"), schema.DestColumn{Type: "Decimal(12, 2)"})
	if err != nil {
		t.Fatal(err)
	}
	d, ok := got.(decimal.Decimal)
	if !ok {
		t.Fatalf("Expected decimal.Decimal, got %T", got)
	}
	if !d.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("Expected 1234.56, got %s", d)
	}
}

func TestCoerceValue_Temporal(t *testing.T) {
	col := schema.DestColumn{Type: "DateTime64(6)"}

	got, err := CoerceValue([]byte("2024-03-15 10:30:00.123456"), col)
	if err != nil {
		t.Fatal(err)
	}
	ts := got.(time.Time)
	if ts.Year() != 2024 || ts.Nanosecond() != 123456000 {
		t.Errorf("Unexpected parse result: %v", ts)
	}

	// date-only strings land at midnight
	got, err = CoerceValue("2024-03-15", schema.DestColumn{Type: "Date32"})
	if err != nil {
		t.Fatal(err)
	}
	if d := got.(time.Time); d.Hour() != 0 || d.Day() != 15 {
		t.Errorf("Unexpected date parse: %v", d)
	}

	// driver-native time.Time passes through
	now := time.Now()
	got, err = CoerceValue(now, col)
	if err != nil || !got.(time.Time).Equal(now) {
		t.Errorf("Expected pass-through, got %v (%v)", got, err)
	}
}

func TestCoerceValue_NullHandling(t *testing.T) {
	// nullable destination keeps NULL
	got, err := CoerceValue(nil, schema.DestColumn{Type: "Int32", Nullable: true})
	if err != nil || got != nil {
		t.Errorf("Expected nil, got %v (%v)", got, err)
	}

	// non-nullable destinations get the type default
	cases := []struct {
		destType string
		want     any
	}{
		{"Int32", int64(0)},
		{"Float64", float64(0)},
		{"String", ""},
		{"Bool", false},
	}
	for _, c := range cases {
		got, err := CoerceValue(nil, schema.DestColumn{Type: c.destType})
		if err != nil {
			t.Fatalf("CoerceValue(nil, %s) failed: %v", c.destType, err)
		}
		if got != c.want {
			t.Errorf("CoerceValue(nil, %s): expected %v, got %v", c.destType, c.want, got)
		}
	}

	got, err = CoerceValue(nil, schema.DestColumn{Type: "DateTime64(6)"})
	if err != nil {
		t.Fatal(err)
	}
	if ts := got.(time.Time); ts.Year() != 2000 || ts.Month() != 1 || ts.Day() != 1 {
		t.Errorf("Expected 2000-01-01 default, got %v", ts)
	}

	got, err = CoerceValue(nil, schema.DestColumn{Type: "Decimal(10, 2)"})
	if err != nil {
		t.Fatal(err)
	}
	if !got.(decimal.Decimal).IsZero() {
		t.Errorf("Expected zero decimal, got %v", got)
	}
}

func TestCoerceValue_StringCleaning(t *testing.T) {
	col := schema.DestColumn{Type: "String"}
	got, err := CoerceValue("line1\nline2\ttab\x00\x1fend", col)
	if err != nil {
		t.Fatal(err)
	}
	if got != "line1\nline2\ttabend" {
		t.Errorf("Control characters not stripped: %q", got)
	}
}

func TestCoerceValue_LowCardinalityUnwraps(t *testing.T) {
	got, err := CoerceValue([]byte("active"), schema.DestColumn{Type: "LowCardinality(String)"})
	if err != nil || got != "active" {
		t.Errorf("Expected active, got %v (%v)", got, err)
	}
}

func TestCoerceValue_FloatArray(t *testing.T) {
	got, err := CoerceValue([]byte("[0.1, 0.2, 0.3]"), schema.DestColumn{Type: "Array(Float32)"})
	if err != nil {
		t.Fatal(err)
	}
	arr := got.([]float32)
	if len(arr) != 3 || arr[1] != 0.2 {
		t.Errorf("Unexpected array: %v", arr)
	}
}

func TestCoerceRow_LengthMismatch(t *testing.T) {
	plan := ordersPlan()
	if _, err := coerceRow([]any{int64(1)}, plan); err == nil {
		t.Error("Expected error for short row")
	}
}
