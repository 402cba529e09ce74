package engine

import (
	"context"
	"errors"
	"testing"

	"ch-pump/internal/schema"
)

func ordersPlan() *schema.TablePlan {
	return &schema.TablePlan{
		SourceTable: "orders",
		DestTable:   "fact_orders",
		Columns: []schema.ColumnPlan{
			{Dest: schema.DestColumn{Name: "id", Type: "UInt64", OrderKey: true}},
			{Dest: schema.DestColumn{Name: "amount", Type: "Decimal(12, 2)", Nullable: true}},
		},
		OrderBy: []string{"id"},
	}
}

func TestProvision_CreatesAbsentTable(t *testing.T) {
	dst := newFakeDest()
	decision, err := provisionTable(context.Background(), dst, ordersPlan(), false)
	if err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	if decision != Created {
		t.Errorf("Expected Created, got %s", decision)
	}
	if len(dst.created) != 1 || dst.created[0] != "fact_orders" {
		t.Errorf("Expected fact_orders created, got %v", dst.created)
	}
}

func TestProvision_SkipsMatchingTable(t *testing.T) {
	dst := newFakeDest()
	if _, err := provisionTable(context.Background(), dst, ordersPlan(), false); err != nil {
		t.Fatal(err)
	}

	// second run sees an identical live schema
	decision, err := provisionTable(context.Background(), dst, ordersPlan(), true)
	if err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	if decision != SkippedExisting {
		t.Errorf("Expected SkippedExisting, got %s", decision)
	}
	if len(dst.dropped) != 0 {
		t.Errorf("Matching table must never be dropped, got %v", dst.dropped)
	}
}

func TestProvision_MismatchWithoutRecreateFails(t *testing.T) {
	dst := newFakeDest()
	dst.schemas["fact_orders"] = []schema.DestColumn{
		{Name: "id", Type: "UInt64"},
		{Name: "amount", Type: "Float64", Nullable: true}, // drifted type
	}

	_, err := provisionTable(context.Background(), dst, ordersPlan(), false)
	if err == nil {
		t.Fatal("Expected schema mismatch error, got nil")
	}
	var sme *SchemaMismatchError
	if !errors.As(err, &sme) {
		t.Fatalf("Expected SchemaMismatchError, got %T: %v", err, err)
	}
	if sme.Table != "fact_orders" {
		t.Errorf("Expected table fact_orders, got %s", sme.Table)
	}
}

func TestProvision_MismatchWithRecreate(t *testing.T) {
	dst := newFakeDest()
	dst.schemas["fact_orders"] = []schema.DestColumn{
		{Name: "id", Type: "Int64"},
	}
	dst.data["fact_orders"] = [][]any{{int64(1)}}

	decision, err := provisionTable(context.Background(), dst, ordersPlan(), true)
	if err != nil {
		t.Fatalf("provision failed: %v", err)
	}
	if decision != Recreated {
		t.Errorf("Expected Recreated, got %s", decision)
	}
	if len(dst.dropped) != 1 {
		t.Errorf("Expected one drop, got %v", dst.dropped)
	}
	if len(dst.data["fact_orders"]) != 0 {
		t.Error("Recreated table should start empty")
	}
}

func TestProvision_NullabilityCountsAsMismatch(t *testing.T) {
	dst := newFakeDest()
	dst.schemas["fact_orders"] = []schema.DestColumn{
		{Name: "id", Type: "UInt64"},
		{Name: "amount", Type: "Decimal(12, 2)"}, // plan says Nullable
	}

	_, err := provisionTable(context.Background(), dst, ordersPlan(), false)
	var sme *SchemaMismatchError
	if !errors.As(err, &sme) {
		t.Fatalf("Expected SchemaMismatchError, got %v", err)
	}
}
