package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ch-pump/internal/dict"
	"ch-pump/internal/schema"
)

// Status is the terminal state of one table migration.
type Status string

const (
	StatusCompleted Status = "Completed"
	StatusSkipped   Status = "SkippedExisting"
	StatusFailed    Status = "Failed"
)

// Outcome is the per-table report of a run.
type Outcome struct {
	Table       string
	DestTable   string
	Decision    ProvisionDecision
	RowsRead    int64
	RowsWritten int64
	Validation  *ValidationResult
	Status      Status
	Err         error
}

// Summary aggregates the per-table outcomes of a run.
type Summary struct {
	Attempted int
	Completed int
	Skipped   int
	Failed    int
	Outcomes  []Outcome
}

// DuplicateDestTableError reports two source tables of one run resolving to
// the same destination table. The table dictionary catches this within its
// own rows; the run-level check also covers a mapped name colliding with an
// unmapped table's inherited name.
type DuplicateDestTableError struct {
	Dest   string
	Tables [2]string
}

func (e *DuplicateDestTableError) Error() string {
	return fmt.Sprintf("tables %s and %s both map to destination table %s", e.Tables[0], e.Tables[1], e.Dest)
}

// Migrator copies tables from a relational source into the analytical
// destination according to the loaded rename dictionaries.
type Migrator struct {
	Source SourceCatalog
	Dest   DestCatalog
	Dict   *dict.Dictionary
	Config Config
}

// Run migrates every selected table. A failing table is reported and the
// run moves on; cancellation stops the run and returns the context error.
func (m *Migrator) Run(ctx context.Context) (*Summary, error) {
	if len(m.Config.Include) > 0 && len(m.Config.Exclude) > 0 {
		return nil, errors.New("include and exclude table lists are mutually exclusive")
	}

	tables, err := m.Source.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source tables: %w", err)
	}
	tables = filterTables(tables, m.Config.Include, m.Config.Exclude)

	summary := &Summary{}
	destSeen := make(map[string]string) // dest table -> source table
	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Attempted++
		outcome := m.migrateTable(ctx, table, destSeen)
		switch outcome.Status {
		case StatusCompleted:
			summary.Completed++
		case StatusSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
		if outcome.Err != nil && ctx.Err() != nil {
			return summary, ctx.Err()
		}
	}
	return summary, nil
}

// Plan resolves the migration plan for one source table without touching
// the destination.
func (m *Migrator) Plan(ctx context.Context, table string) (*schema.TablePlan, error) {
	cols, err := m.Source.DescribeColumns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	plan, err := schema.Plan(table, cols, m.Dict)
	if err != nil {
		return nil, err
	}
	if comment, err := m.Source.TableComment(ctx, table); err == nil && plan.Remark == "" {
		plan.Remark = comment
	}
	return plan, nil
}

func (m *Migrator) migrateTable(ctx context.Context, table string, destSeen map[string]string) Outcome {
	outcome := Outcome{Table: table}

	plan, err := m.Plan(ctx, table)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}
	outcome.DestTable = plan.DestTable

	if prev, ok := destSeen[plan.DestTable]; ok {
		outcome.Status = StatusFailed
		outcome.Err = &DuplicateDestTableError{Dest: plan.DestTable, Tables: [2]string{prev, table}}
		return outcome
	}
	destSeen[plan.DestTable] = table

	decision, err := provisionTable(ctx, m.Dest, plan, m.Config.AutoRecreate)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}
	outcome.Decision = decision

	if decision == SkippedExisting {
		if m.Config.SkipExisting {
			outcome.Status = StatusSkipped
			return outcome
		}
		// The copy writes the table in full, so leftover rows from an
		// earlier run must go first.
		if err := m.Dest.TruncateTable(ctx, plan.DestTable); err != nil {
			outcome.Status = StatusFailed
			outcome.Err = err
			return outcome
		}
	}

	if m.Config.OnTableStart != nil {
		rows, err := m.Source.RowCount(ctx, table)
		if err != nil {
			rows = -1
		}
		m.Config.OnTableStart(table, plan.DestTable, rows)
	}

	read, written, err := copyTable(ctx, m.Source, m.Dest, plan, m.Config)
	outcome.RowsRead = read
	outcome.RowsWritten = written
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}

	if m.Config.EnableValidation {
		result, err := validateTable(ctx, m.Source, m.Dest, plan, m.Config.ValidationSampleSize)
		if err != nil {
			// Validation reads are best effort; their failure does not
			// undo a finished copy.
			outcome.Validation = &ValidationResult{Mismatches: []Mismatch{{Row: -1, Column: "(validation)", Source: fmt.Sprint(err)}}}
		} else {
			outcome.Validation = result
		}
	}

	outcome.Status = StatusCompleted
	return outcome
}

func filterTables(tables, include, exclude []string) []string {
	if len(include) > 0 {
		want := toSet(include)
		var out []string
		for _, t := range tables {
			if want[strings.ToLower(t)] {
				out = append(out, t)
			}
		}
		return out
	}
	if len(exclude) > 0 {
		skip := toSet(exclude)
		var out []string
		for _, t := range tables {
			if !skip[strings.ToLower(t)] {
				out = append(out, t)
			}
		}
		return out
	}
	return tables
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			set[n] = true
		}
	}
	return set
}
