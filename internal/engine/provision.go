package engine

import (
	"context"
	"fmt"

	"ch-pump/internal/schema"
)

// ProvisionDecision records how the destination table was reconciled with
// the plan.
type ProvisionDecision string

const (
	Created         ProvisionDecision = "Created"
	SkippedExisting ProvisionDecision = "SkippedExisting"
	Recreated       ProvisionDecision = "Recreated"
)

// SchemaMismatchError means the destination table exists with a different
// shape and recreation is disabled. Fatal for this table only.
type SchemaMismatchError struct {
	Table string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("destination table %s exists with a different schema (auto_recreate_table disabled)", e.Table)
}

// provisionTable reconciles the planned schema against the destination.
// Recreation drops existing destination data; it only happens when the
// operator enabled auto_recreate_table.
func provisionTable(ctx context.Context, dst DestCatalog, plan *schema.TablePlan, autoRecreate bool) (ProvisionDecision, error) {
	exists, err := dst.TableExists(ctx, plan.DestTable)
	if err != nil {
		return "", err
	}
	if !exists {
		if err := dst.CreateTable(ctx, plan); err != nil {
			return "", err
		}
		return Created, nil
	}

	live, err := dst.DescribeSchema(ctx, plan.DestTable)
	if err != nil {
		return "", err
	}
	if schemaMatches(plan, live) {
		return SkippedExisting, nil
	}
	if !autoRecreate {
		return "", &SchemaMismatchError{Table: plan.DestTable}
	}
	if err := dst.DropTable(ctx, plan.DestTable); err != nil {
		return "", err
	}
	if err := dst.CreateTable(ctx, plan); err != nil {
		return "", err
	}
	return Recreated, nil
}

// schemaMatches compares by column name set plus ordered type list; any
// difference counts as a mismatch.
func schemaMatches(plan *schema.TablePlan, live []schema.DestColumn) bool {
	if len(live) != len(plan.Columns) {
		return false
	}
	names := make(map[string]bool, len(live))
	for _, c := range live {
		names[c.Name] = true
	}
	for i, c := range plan.Columns {
		if !names[c.Dest.Name] {
			return false
		}
		if live[i].DDLType() != c.Dest.DDLType() {
			return false
		}
	}
	return true
}
