package schema

import (
	"fmt"

	"ch-pump/internal/dict"
	"ch-pump/internal/typemap"
)

// AmbiguousDestColumnError reports two source columns of one table resolving
// to the same destination name. The column dictionary is keyed globally by
// column name, so an unmapped column keeping its source name can still
// collide with another column's mapped name.
type AmbiguousDestColumnError struct {
	Table      string
	DestColumn string
	Sources    [2]string
}

func (e *AmbiguousDestColumnError) Error() string {
	return fmt.Sprintf("table %s: columns %s and %s both map to destination column %s",
		e.Table, e.Sources[0], e.Sources[1], e.DestColumn)
}

// Plan resolves a source table against the dictionaries and the type map
// into a destination table definition. Primary-key columns become ordering
// keys in source column order; a table without a primary key orders by its
// first column.
func Plan(sourceTable string, cols []SourceColumn, d *dict.Dictionary) (*TablePlan, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s has no columns", sourceTable)
	}

	destTable, remark := d.TableDest(sourceTable)
	plan := &TablePlan{
		SourceTable: sourceTable,
		DestTable:   destTable,
		Remark:      remark,
		Columns:     make([]ColumnPlan, 0, len(cols)),
	}

	seen := make(map[string]string) // dest name -> source name
	for _, c := range cols {
		destName := d.ColumnDest(c.Name)
		if prev, ok := seen[destName]; ok {
			return nil, &AmbiguousDestColumnError{
				Table:      sourceTable,
				DestColumn: destName,
				Sources:    [2]string{prev, c.Name},
			}
		}
		seen[destName] = c.Name

		destType, err := typemap.Map(c.DataType, typemap.Flags{
			Width:     c.Width,
			Precision: c.Precision,
			Scale:     c.Scale,
			Unsigned:  c.Unsigned,
		})
		if err != nil {
			return nil, fmt.Errorf("table %s, column %s: %w", sourceTable, c.Name, err)
		}

		dest := DestColumn{
			Name:     destName,
			Type:     destType,
			Nullable: c.Nullable && !c.IsPK,
			OrderKey: c.IsPK,
			Comment:  c.Comment,
		}
		plan.Columns = append(plan.Columns, ColumnPlan{Source: c, Dest: dest})
		if c.IsPK {
			plan.OrderBy = append(plan.OrderBy, destName)
		}
	}

	// MergeTree needs an ordering key; without a primary key fall back to
	// the first column, which therefore must not be Nullable.
	if len(plan.OrderBy) == 0 {
		plan.Columns[0].Dest.Nullable = false
		plan.OrderBy = []string{plan.Columns[0].Dest.Name}
	}
	return plan, nil
}
