package schema_test

import (
	"errors"
	"strings"
	"testing"

	"ch-pump/internal/dict"
	"ch-pump/internal/schema"
)

func testDict(t *testing.T) *dict.Dictionary {
	t.Helper()
	tables := `table,remark,new_table_name
orders,order header,fact_orders
`
	columns := `raw_column,remark,new_column
create_time,,created_at
cust_no,,customer_id
`
	d, err := dict.Parse(strings.NewReader(tables), strings.NewReader(columns))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return d
}

func TestPlan_RenamesAndTypes(t *testing.T) {
	cols := []schema.SourceColumn{
		{Name: "id", DataType: "bigint", IsPK: true, Unsigned: true},
		{Name: "cust_no", DataType: "int", Nullable: true},
		{Name: "create_time", DataType: "datetime", Nullable: true},
		{Name: "amount", DataType: "decimal", Precision: 12, Scale: 2},
		{Name: "active", DataType: "tinyint", ColumnType: "tinyint(1)", Width: 1},
	}

	plan, err := schema.Plan("orders", cols, testDict(t))
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if plan.DestTable != "fact_orders" || plan.Remark != "order header" {
		t.Errorf("Expected fact_orders/order header, got %s/%s", plan.DestTable, plan.Remark)
	}

	wantNames := []string{"id", "customer_id", "created_at", "amount", "active"}
	gotNames := plan.DestNames()
	for i, want := range wantNames {
		if gotNames[i] != want {
			t.Errorf("Column %d: expected %s, got %s", i, want, gotNames[i])
		}
	}

	wantTypes := []string{"UInt64", "Nullable(Int32)", "Nullable(DateTime64(6))", "Decimal(12, 2)", "Bool"}
	for i, want := range wantTypes {
		if got := plan.Columns[i].Dest.DDLType(); got != want {
			t.Errorf("Column %s: expected type %s, got %s", gotNames[i], want, got)
		}
	}
}

func TestPlan_PrimaryKeyBecomesOrderingKey(t *testing.T) {
	cols := []schema.SourceColumn{
		{Name: "tenant", DataType: "int", IsPK: true, Nullable: true},
		{Name: "id", DataType: "bigint", IsPK: true},
		{Name: "payload", DataType: "text", Nullable: true},
	}
	plan, err := schema.Plan("events", cols, testDict(t))
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if len(plan.OrderBy) != 2 || plan.OrderBy[0] != "tenant" || plan.OrderBy[1] != "id" {
		t.Errorf("Expected ordering key [tenant id], got %v", plan.OrderBy)
	}
	// key columns are never nullable regardless of source nullability
	if plan.Columns[0].Dest.Nullable {
		t.Error("Primary key column must not be nullable in destination")
	}
}

func TestPlan_NoPrimaryKeyFallsBackToFirstColumn(t *testing.T) {
	cols := []schema.SourceColumn{
		{Name: "word", DataType: "varchar", Nullable: true},
		{Name: "freq", DataType: "int", Nullable: true},
	}
	plan, err := schema.Plan("wordlist", cols, testDict(t))
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if len(plan.OrderBy) != 1 || plan.OrderBy[0] != "word" {
		t.Errorf("Expected ordering key [word], got %v", plan.OrderBy)
	}
	if plan.Columns[0].Dest.Nullable {
		t.Error("Fallback ordering column must be forced non-nullable")
	}
	if plan.SourceOrderBy()[0] != "word" {
		t.Errorf("Expected source ordering [word], got %v", plan.SourceOrderBy())
	}
}

func TestPlan_DestNameCollision(t *testing.T) {
	// cust_no maps to customer_id, which the table also has natively
	cols := []schema.SourceColumn{
		{Name: "cust_no", DataType: "int", IsPK: true},
		{Name: "customer_id", DataType: "int", Nullable: true},
	}
	_, err := schema.Plan("orders", cols, testDict(t))
	if err == nil {
		t.Fatal("Expected collision error, got nil")
	}
	var ace *schema.AmbiguousDestColumnError
	if !errors.As(err, &ace) {
		t.Fatalf("Expected AmbiguousDestColumnError, got %T: %v", err, err)
	}
	if ace.DestColumn != "customer_id" {
		t.Errorf("Expected collision on customer_id, got %s", ace.DestColumn)
	}
}

func TestPlan_UnsupportedTypeFailsTable(t *testing.T) {
	cols := []schema.SourceColumn{
		{Name: "id", DataType: "int", IsPK: true},
		{Name: "shape", DataType: "hierarchyid"},
	}
	_, err := schema.Plan("shapes", cols, testDict(t))
	if err == nil {
		t.Fatal("Expected unsupported type error, got nil")
	}
	if !strings.Contains(err.Error(), "shape") {
		t.Errorf("Error should name the offending column: %v", err)
	}
}

func TestPlan_EmptyTable(t *testing.T) {
	if _, err := schema.Plan("empty", nil, testDict(t)); err == nil {
		t.Fatal("Expected error for table without columns")
	}
}
