// Package source reads tables, column metadata and ordered row streams from
// the origin database through a per-driver Dialect.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ch-pump/internal/schema"
)

// Catalog is the engine's view of the source database.
type Catalog struct {
	db      *sql.DB
	dialect Dialect
	schema  string
}

func NewCatalog(db *sql.DB, driver, schemaName string) *Catalog {
	d := ForDriver(driver)
	return &Catalog{db: db, dialect: d, schema: d.SchemaName(schemaName)}
}

func (c *Catalog) ListTables(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, c.dialect.TablesQuery(), c.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// TableComment fetches the table remark. Missing comment support in the
// source is not an error; an empty string comes back instead.
func (c *Catalog) TableComment(ctx context.Context, table string) (string, error) {
	var comment sql.NullString
	err := c.db.QueryRowContext(ctx, c.dialect.TableCommentQuery(), c.schema, table).Scan(&comment)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query table comment: %w", err)
	}
	return comment.String, nil
}

func (c *Catalog) DescribeColumns(ctx context.Context, table string) ([]schema.SourceColumn, error) {
	rows, err := c.db.QueryContext(ctx, c.dialect.ColumnsQuery(), c.schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []schema.SourceColumn
	for rows.Next() {
		var cName, dType, cType, isNull, cKey, comment sql.NullString
		// Use strings for numeric metadata; drivers disagree on the
		// underlying type.
		var precision, scale sql.NullString

		if err := rows.Scan(&cName, &dType, &cType, &isNull, &cKey, &precision, &scale, &comment); err != nil {
			return nil, fmt.Errorf("failed to scan column (table: %s): %w", table, err)
		}
		if !cName.Valid {
			continue
		}

		col := schema.SourceColumn{
			Name:       cName.String,
			DataType:   c.dialect.NormalizeType(dType.String),
			ColumnType: cType.String,
			Nullable:   strings.HasPrefix(strings.ToUpper(isNull.String), "Y"),
			IsPK:       strings.Contains(cKey.String, "PRI"),
			Width:      parseDisplayWidth(cType.String),
			Precision:  parseIntField(precision),
			Scale:      parseIntField(scale),
			Unsigned:   strings.Contains(strings.ToLower(cType.String), "unsigned"),
			Comment:    comment.String,
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	return cols, nil
}

func (c *Catalog) RowCount(ctx context.Context, table string) (int64, error) {
	var count int64
	if err := c.db.QueryRowContext(ctx, c.dialect.CountQuery(table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return count, nil
}

// OpenCursor starts an ordered read over the named columns. The caller owns
// the cursor and must close it on every exit path.
func (c *Catalog) OpenCursor(ctx context.Context, table string, cols, orderBy []string) (*Cursor, error) {
	query := c.dialect.SelectQuery(table, cols, orderBy)
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to open cursor on %s: %w", table, err)
	}
	return &Cursor{rows: rows, width: len(cols)}, nil
}

// Cursor streams rows from one source table in a stable order.
type Cursor struct {
	rows  *sql.Rows
	width int
}

// NextBatch returns up to limit rows, or an empty slice at end of stream.
func (c *Cursor) NextBatch(limit int) ([][]any, error) {
	var batch [][]any
	for len(batch) < limit && c.rows.Next() {
		vals := make([]any, c.width)
		ptrs := make([]any, c.width)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := c.rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		batch = append(batch, vals)
	}
	if err := c.rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return batch, nil
}

func (c *Cursor) Close() error {
	return c.rows.Close()
}

// parseDisplayWidth extracts N from declared types like "tinyint(1)".
// Types without a single numeric parameter yield 0.
func parseDisplayWidth(columnType string) int {
	open := strings.IndexByte(columnType, '(')
	end := strings.IndexByte(columnType, ')')
	if open < 0 || end <= open {
		return 0
	}
	inner := columnType[open+1 : end]
	if strings.ContainsAny(inner, ",") {
		return 0
	}
	var width int
	if _, err := fmt.Sscanf(inner, "%d", &width); err != nil {
		return 0
	}
	return width
}

func parseIntField(v sql.NullString) int {
	if !v.Valid || v.String == "" {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(v.String, "%d", &n); err == nil {
		return n
	}
	var f float64
	if _, err := fmt.Sscanf(v.String, "%f", &f); err == nil {
		return int(f)
	}
	return 0
}
