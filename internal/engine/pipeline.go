package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ch-pump/internal/schema"
)

// pendingBatches bounds how far the reader may run ahead of the writer.
const pendingBatches = 2

// PipelineKind classifies copy-phase failures.
type PipelineKind int

const (
	// ExcessiveRowErrors means too many rows in one batch failed coercion.
	ExcessiveRowErrors PipelineKind = iota
	// WriteFailed means an insert kept failing after all retries.
	WriteFailed
)

// PipelineError reports a copy-phase failure for one table.
type PipelineError struct {
	Kind  PipelineKind
	Table string
	Err   error
}

func (e *PipelineError) Error() string {
	switch e.Kind {
	case ExcessiveRowErrors:
		return fmt.Sprintf("table %s: too many unconvertible rows: %v", e.Table, e.Err)
	default:
		return fmt.Sprintf("table %s: write failed: %v", e.Table, e.Err)
	}
}

func (e *PipelineError) Unwrap() error { return e.Err }

type batch struct {
	rows [][]any
}

// copyTable streams the source table into the destination in batches.
// One goroutine reads and coerces, the other writes, with a small buffer
// between them. Returns rows read and rows written.
func copyTable(ctx context.Context, src SourceCatalog, dst DestCatalog, plan *schema.TablePlan, cfg Config) (int64, int64, error) {
	cursor, err := src.OpenCursor(ctx, plan.SourceTable, plan.SourceNames(), plan.SourceOrderBy())
	if err != nil {
		return 0, 0, fmt.Errorf("open cursor on %s: %w", plan.SourceTable, err)
	}
	defer cursor.Close()

	batches := make(chan batch, pendingBatches)
	var (
		read    int64
		written int64
		readErr error
		wg      sync.WaitGroup
	)

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(batches)
		for {
			if err := wctx.Err(); err != nil {
				readErr = err
				return
			}
			rows, err := cursor.NextBatch(cfg.BatchSize)
			if err != nil {
				readErr = fmt.Errorf("read %s: %w", plan.SourceTable, err)
				return
			}
			if len(rows) == 0 {
				return
			}
			read += int64(len(rows))
			coerced, err := coerceBatch(rows, plan, cfg.MaxRowErrorRate)
			if err != nil {
				readErr = &PipelineError{Kind: ExcessiveRowErrors, Table: plan.SourceTable, Err: err}
				return
			}
			select {
			case batches <- batch{rows: coerced}:
			case <-wctx.Done():
				readErr = wctx.Err()
				return
			}
		}
	}()

	var writeErr error
	for b := range batches {
		if writeErr != nil {
			continue // drain so the reader can exit
		}
		if err := insertWithRetry(wctx, dst, plan, b.rows, cfg); err != nil {
			writeErr = err
			cancel()
			continue
		}
		written += int64(len(b.rows))
		if cfg.OnRowsWritten != nil {
			cfg.OnRowsWritten(int64(len(b.rows)))
		}
	}
	wg.Wait()

	if writeErr != nil {
		return read, written, writeErr
	}
	if readErr != nil && ctx.Err() != nil {
		return read, written, ctx.Err()
	}
	return read, written, readErr
}

// coerceBatch converts every row, dropping rows that fail coercion up to
// the allowed error rate for the batch.
func coerceBatch(rows [][]any, plan *schema.TablePlan, maxErrorRate float64) ([][]any, error) {
	out := make([][]any, 0, len(rows))
	var skipped int
	var firstErr error
	for _, row := range rows {
		cr, err := coerceRow(row, plan)
		if err != nil {
			skipped++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out = append(out, cr)
	}
	if skipped > 0 {
		rate := float64(skipped) / float64(len(rows))
		if rate > maxErrorRate {
			return nil, fmt.Errorf("%d of %d rows unconvertible (first: %v)", skipped, len(rows), firstErr)
		}
	}
	return out, nil
}

func insertWithRetry(ctx context.Context, dst DestCatalog, plan *schema.TablePlan, rows [][]any, cfg Config) error {
	var lastErr error
	attempts := cfg.WriteRetries
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = dst.BulkInsert(ctx, plan.DestTable, plan.DestNames(), rows)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < attempts {
			select {
			case <-time.After(cfg.RetryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return &PipelineError{Kind: WriteFailed, Table: plan.DestTable, Err: lastErr}
}
