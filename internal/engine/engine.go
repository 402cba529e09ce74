// Package engine sequences the per-table migration: plan, provision, batched
// copy, validation. It talks to both databases only through the narrow
// catalog interfaces below, so tests drive it with in-memory doubles.
package engine

import (
	"context"
	"time"

	"ch-pump/internal/schema"
)

// SourceCatalog is the capability surface the engine needs from the origin
// database.
type SourceCatalog interface {
	ListTables(ctx context.Context) ([]string, error)
	TableComment(ctx context.Context, table string) (string, error)
	DescribeColumns(ctx context.Context, table string) ([]schema.SourceColumn, error)
	RowCount(ctx context.Context, table string) (int64, error)
	OpenCursor(ctx context.Context, table string, cols, orderBy []string) (RowCursor, error)
}

// RowCursor streams rows in a stable order. NextBatch returns an empty
// slice at end of stream.
type RowCursor interface {
	NextBatch(limit int) ([][]any, error)
	Close() error
}

// DestCatalog is the capability surface the engine needs from the
// destination database.
type DestCatalog interface {
	TableExists(ctx context.Context, name string) (bool, error)
	DescribeSchema(ctx context.Context, name string) ([]schema.DestColumn, error)
	CreateTable(ctx context.Context, plan *schema.TablePlan) error
	DropTable(ctx context.Context, name string) error
	TruncateTable(ctx context.Context, name string) error
	BulkInsert(ctx context.Context, table string, cols []string, rows [][]any) error
	RowCount(ctx context.Context, name string) (int64, error)
	SampleRows(ctx context.Context, table string, cols, orderBy []string, limit int) ([][]any, error)
}

// Config carries the runtime settings of one migration run.
type Config struct {
	BatchSize            int
	SkipExisting         bool
	AutoRecreate         bool
	EnableValidation     bool
	ValidationSampleSize int
	WriteRetries         int
	RetryBackoff         time.Duration
	MaxRowErrorRate      float64
	Include              []string
	Exclude              []string

	// OnTableStart and OnRowsWritten are optional progress hooks; rows is
	// the source row count, n the cumulative rows written for the table.
	OnTableStart  func(source, dest string, rows int64)
	OnRowsWritten func(n int64)
}
