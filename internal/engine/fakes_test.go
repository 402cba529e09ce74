package engine

import (
	"context"
	"errors"
	"fmt"

	"ch-pump/internal/schema"
)

// fakeSource is an in-memory SourceCatalog. Rows are stored in declared
// column order.
type fakeSource struct {
	tables   []string
	comments map[string]string
	columns  map[string][]schema.SourceColumn
	rows     map[string][][]any

	cursorErr error
	readErr   error
}

func (f *fakeSource) ListTables(ctx context.Context) ([]string, error) {
	return f.tables, nil
}

func (f *fakeSource) TableComment(ctx context.Context, table string) (string, error) {
	return f.comments[table], nil
}

func (f *fakeSource) DescribeColumns(ctx context.Context, table string) ([]schema.SourceColumn, error) {
	cols, ok := f.columns[table]
	if !ok {
		return nil, fmt.Errorf("no such table %s", table)
	}
	return cols, nil
}

func (f *fakeSource) RowCount(ctx context.Context, table string) (int64, error) {
	return int64(len(f.rows[table])), nil
}

func (f *fakeSource) OpenCursor(ctx context.Context, table string, cols, orderBy []string) (RowCursor, error) {
	if f.cursorErr != nil {
		return nil, f.cursorErr
	}
	return &fakeCursor{rows: f.rows[table], readErr: f.readErr}, nil
}

type fakeCursor struct {
	rows    [][]any
	pos     int
	closed  bool
	readErr error
}

func (c *fakeCursor) NextBatch(limit int) ([][]any, error) {
	if c.readErr != nil {
		return nil, c.readErr
	}
	if c.pos >= len(c.rows) {
		return nil, nil
	}
	end := c.pos + limit
	if end > len(c.rows) {
		end = len(c.rows)
	}
	batch := c.rows[c.pos:end]
	c.pos = end
	return batch, nil
}

func (c *fakeCursor) Close() error {
	c.closed = true
	return nil
}

// fakeDest is an in-memory DestCatalog.
type fakeDest struct {
	schemas map[string][]schema.DestColumn
	data    map[string][][]any

	created   []string
	dropped   []string
	truncated []string
	insertErr error
	failFirst int // fail this many BulkInsert calls before succeeding
	inserts   int
}

func newFakeDest() *fakeDest {
	return &fakeDest{
		schemas: make(map[string][]schema.DestColumn),
		data:    make(map[string][][]any),
	}
}

func (f *fakeDest) TableExists(ctx context.Context, name string) (bool, error) {
	_, ok := f.schemas[name]
	return ok, nil
}

func (f *fakeDest) DescribeSchema(ctx context.Context, name string) ([]schema.DestColumn, error) {
	cols, ok := f.schemas[name]
	if !ok {
		return nil, fmt.Errorf("no such table %s", name)
	}
	return cols, nil
}

func (f *fakeDest) CreateTable(ctx context.Context, plan *schema.TablePlan) error {
	if _, ok := f.schemas[plan.DestTable]; ok {
		return fmt.Errorf("table %s already exists", plan.DestTable)
	}
	cols := make([]schema.DestColumn, len(plan.Columns))
	for i, c := range plan.Columns {
		cols[i] = c.Dest
	}
	f.schemas[plan.DestTable] = cols
	f.created = append(f.created, plan.DestTable)
	return nil
}

func (f *fakeDest) DropTable(ctx context.Context, name string) error {
	delete(f.schemas, name)
	delete(f.data, name)
	f.dropped = append(f.dropped, name)
	return nil
}

func (f *fakeDest) BulkInsert(ctx context.Context, table string, cols []string, rows [][]any) error {
	f.inserts++
	if f.failFirst > 0 {
		f.failFirst--
		if f.insertErr == nil {
			return errors.New("transient insert failure")
		}
		return f.insertErr
	}
	f.data[table] = append(f.data[table], rows...)
	return nil
}

func (f *fakeDest) TruncateTable(ctx context.Context, name string) error {
	f.data[name] = nil
	f.truncated = append(f.truncated, name)
	return nil
}

func (f *fakeDest) RowCount(ctx context.Context, name string) (int64, error) {
	return int64(len(f.data[name])), nil
}

func (f *fakeDest) SampleRows(ctx context.Context, table string, cols, orderBy []string, limit int) ([][]any, error) {
	rows := f.data[table]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
