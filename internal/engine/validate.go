package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"ch-pump/internal/schema"
)

// Mismatch records one cell whose value differs between source and
// destination after migration.
type Mismatch struct {
	Row    int
	Column string
	Source any
	Dest   any
}

// ValidationResult summarizes the sampled comparison of one table.
type ValidationResult struct {
	CheckedRows int
	Mismatches  []Mismatch
}

func (r *ValidationResult) OK() bool { return len(r.Mismatches) == 0 }

// validateTable compares total row counts, then re-reads the first
// sampleSize rows from both sides in the same order and compares them cell
// by cell after coercion.
func validateTable(ctx context.Context, src SourceCatalog, dst DestCatalog, plan *schema.TablePlan, sampleSize int) (*ValidationResult, error) {
	result := &ValidationResult{}

	srcCount, err := src.RowCount(ctx, plan.SourceTable)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", plan.SourceTable, err)
	}
	dstCount, err := dst.RowCount(ctx, plan.DestTable)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", plan.DestTable, err)
	}
	if srcCount != dstCount {
		result.Mismatches = append(result.Mismatches, Mismatch{
			Row:    -1,
			Column: "(row count)",
			Source: srcCount,
			Dest:   dstCount,
		})
	}

	cursor, err := src.OpenCursor(ctx, plan.SourceTable, plan.SourceNames(), plan.SourceOrderBy())
	if err != nil {
		return nil, fmt.Errorf("open validation cursor on %s: %w", plan.SourceTable, err)
	}
	defer cursor.Close()

	srcRows, err := cursor.NextBatch(sampleSize)
	if err != nil {
		return nil, fmt.Errorf("read validation sample from %s: %w", plan.SourceTable, err)
	}

	destOrderBy := make([]string, 0, len(plan.OrderBy))
	for _, c := range plan.Columns {
		if c.Dest.OrderKey {
			destOrderBy = append(destOrderBy, c.Dest.Name)
		}
	}
	if len(destOrderBy) == 0 && len(plan.Columns) > 0 {
		destOrderBy = append(destOrderBy, plan.Columns[0].Dest.Name)
	}
	dstRows, err := dst.SampleRows(ctx, plan.DestTable, plan.DestNames(), destOrderBy, sampleSize)
	if err != nil {
		return nil, fmt.Errorf("read validation sample from %s: %w", plan.DestTable, err)
	}

	n := min(len(srcRows), len(dstRows))
	result.CheckedRows = n
	for i := 0; i < n; i++ {
		expected, err := coerceRow(srcRows[i], plan)
		if err != nil {
			result.Mismatches = append(result.Mismatches, Mismatch{Row: i, Column: "(coercion)", Source: fmt.Sprint(err)})
			continue
		}
		for j, col := range plan.Columns {
			if j >= len(dstRows[i]) {
				break
			}
			if !valuesEqual(expected[j], dstRows[i][j]) {
				result.Mismatches = append(result.Mismatches, Mismatch{
					Row:    i,
					Column: col.Dest.Name,
					Source: expected[j],
					Dest:   dstRows[i][j],
				})
			}
		}
	}
	return result, nil
}

// valuesEqual compares a coerced source value with what the destination
// driver hands back, tolerating representation differences.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Truncate(time.Microsecond).Equal(y.Truncate(time.Microsecond))
		}
	case decimal.Decimal:
		if y, err := toDecimal(b); err == nil {
			return x.Equal(y)
		}
	case float64:
		if y, err := toFloat64(b); err == nil {
			return math.Abs(x-y) < 1e-9 || (x != 0 && math.Abs(x-y)/math.Abs(x) < 1e-9)
		}
	case int64:
		if y, err := toInt64(b); err == nil {
			return x == y
		}
	case bool:
		if y, err := toBool(b); err == nil {
			return x == y
		}
	case string:
		if y, ok := b.(string); ok {
			return x == y
		}
		if y, ok := b.([]byte); ok {
			return x == string(y)
		}
	case []float32:
		y, ok := b.([]float32)
		if !ok {
			return false
		}
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
