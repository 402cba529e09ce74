// Package dest provisions tables and bulk-writes rows in the ClickHouse
// destination.
package dest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ch-pump/internal/schema"
)

// ClickHouse is the engine's view of the destination database.
type ClickHouse struct {
	db *sql.DB
}

func NewClickHouse(db *sql.DB) *ClickHouse {
	return &ClickHouse{db: db}
}

func (c *ClickHouse) TableExists(ctx context.Context, name string) (bool, error) {
	var exists uint8
	err := c.db.QueryRowContext(ctx, fmt.Sprintf("EXISTS TABLE %s", quote(name))).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	return exists == 1, nil
}

// DescribeSchema returns the live column definitions in declaration order.
func (c *ClickHouse) DescribeSchema(ctx context.Context, name string) ([]schema.DestColumn, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT name, type FROM system.columns WHERE database = currentDatabase() AND table = ? ORDER BY position", name)
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %s: %w", name, err)
	}
	defer rows.Close()

	var cols []schema.DestColumn
	for rows.Next() {
		var colName, colType string
		if err := rows.Scan(&colName, &colType); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", name, err)
		}
		col := schema.DestColumn{Name: colName, Type: colType}
		if inner, ok := strings.CutPrefix(colType, "Nullable("); ok {
			col.Type = strings.TrimSuffix(inner, ")")
			col.Nullable = true
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", name, err)
	}
	return cols, nil
}

func (c *ClickHouse) CreateTable(ctx context.Context, plan *schema.TablePlan) error {
	if _, err := c.db.ExecContext(ctx, CreateTableSQL(plan)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", plan.DestTable, err)
	}
	return nil
}

func (c *ClickHouse) DropTable(ctx context.Context, name string) error {
	if _, err := c.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quote(name))); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", name, err)
	}
	return nil
}

// TruncateTable empties a table ahead of a full re-copy.
func (c *ClickHouse) TruncateTable(ctx context.Context, name string) error {
	if _, err := c.db.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE IF EXISTS %s", quote(name))); err != nil {
		return fmt.Errorf("failed to truncate table %s: %w", name, err)
	}
	return nil
}

// BulkInsert writes one batch as a single insert block. The driver buffers
// per-row Exec calls and ships the block on Commit.
func (c *ClickHouse) BulkInsert(ctx context.Context, table string, cols []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin insert into %s: %w", table, err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s)", quote(table), quoteJoin(cols)))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			stmt.Close()
			tx.Rollback()
			return fmt.Errorf("failed to append row for %s: %w", table, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to flush insert into %s: %w", table, err)
	}
	return nil
}

func (c *ClickHouse) RowCount(ctx context.Context, name string) (int64, error) {
	var count int64
	if err := c.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quote(name))).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", name, err)
	}
	return count, nil
}

// SampleRows reads the first limit rows in the table's stable order.
func (c *ClickHouse) SampleRows(ctx context.Context, table string, cols, orderBy []string, limit int) ([][]any, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", quoteJoin(cols), quote(table))
	if len(orderBy) > 0 {
		query += " ORDER BY " + quoteJoin(orderBy)
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to sample %s: %w", table, err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan sample row of %s: %w", table, err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sample of %s: %w", table, err)
	}
	return out, nil
}

// CreateTableSQL renders the MergeTree DDL for a plan.
func CreateTableSQL(plan *schema.TablePlan) string {
	var defs []string
	for _, c := range plan.Columns {
		def := fmt.Sprintf("    %s %s", quote(c.Dest.Name), c.Dest.DDLType())
		if c.Dest.Comment != "" {
			def += fmt.Sprintf(" COMMENT '%s'", escapeString(c.Dest.Comment))
		}
		defs = append(defs, def)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n%s\n) ENGINE = MergeTree()\nORDER BY (%s)",
		quote(plan.DestTable), strings.Join(defs, ",\n"), quoteJoin(plan.OrderBy))
	if plan.Remark != "" {
		fmt.Fprintf(&b, "\nCOMMENT '%s'", escapeString(plan.Remark))
	}
	return b.String()
}

func quote(name string) string {
	return "`" + name + "`"
}

func quoteJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return strings.Join(quoted, ", ")
}

func escapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
