package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidate_RoundTripMatches(t *testing.T) {
	rows := customerRows(40)
	src := &fakeSource{rows: map[string][][]any{"customer": rows}}
	dst := newFakeDest()
	plan := customerPlan()

	if _, _, err := copyTable(context.Background(), src, dst, plan, testConfig()); err != nil {
		t.Fatal(err)
	}

	result, err := validateTable(context.Background(), src, dst, plan, 100)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if result.CheckedRows != 40 {
		t.Errorf("Expected 40 checked rows, got %d", result.CheckedRows)
	}
	if !result.OK() {
		t.Errorf("Expected clean validation, got %d mismatches: %+v", len(result.Mismatches), result.Mismatches)
	}
}

func TestValidate_DetectsCorruptedCell(t *testing.T) {
	rows := customerRows(10)
	src := &fakeSource{rows: map[string][][]any{"customer": rows}}
	dst := newFakeDest()
	plan := customerPlan()

	if _, _, err := copyTable(context.Background(), src, dst, plan, testConfig()); err != nil {
		t.Fatal(err)
	}
	// corrupt one destination cell
	dst.data["dim_customer"][3][2] = decimal.RequireFromString("0.01")

	result, err := validateTable(context.Background(), src, dst, plan, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Mismatches) != 1 {
		t.Fatalf("Expected 1 mismatch, got %d", len(result.Mismatches))
	}
	m := result.Mismatches[0]
	if m.Row != 3 || m.Column != "balance" {
		t.Errorf("Expected mismatch at row 3 column balance, got row %d column %s", m.Row, m.Column)
	}
}

func TestValidate_DetectsMissingRows(t *testing.T) {
	rows := customerRows(10)
	src := &fakeSource{rows: map[string][][]any{"customer": rows}}
	dst := newFakeDest()
	plan := customerPlan()

	if _, _, err := copyTable(context.Background(), src, dst, plan, testConfig()); err != nil {
		t.Fatal(err)
	}
	dst.data["dim_customer"] = dst.data["dim_customer"][:7]

	result, err := validateTable(context.Background(), src, dst, plan, 100)
	if err != nil {
		t.Fatal(err)
	}
	if result.OK() {
		t.Fatal("Expected a row count mismatch")
	}
	if result.Mismatches[0].Column != "(row count)" {
		t.Errorf("Expected row count mismatch first, got %+v", result.Mismatches[0])
	}
}

func TestValuesEqual_Tolerances(t *testing.T) {
	if !valuesEqual(decimal.RequireFromString("10.50"), []byte("10.5")) {
		t.Error("Decimal comparison should ignore representation")
	}
	if !valuesEqual(int64(7), "7") {
		t.Error("Integer comparison should accept string form")
	}
	if valuesEqual(int64(7), "8") {
		t.Error("Different integers must not compare equal")
	}
	if !valuesEqual(nil, nil) {
		t.Error("Two NULLs are equal")
	}
	if valuesEqual(nil, int64(0)) {
		t.Error("NULL never equals a value")
	}
}
