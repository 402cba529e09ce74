package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ch-pump/internal/dest"
	"ch-pump/internal/dict"
	"ch-pump/internal/engine"
	"ch-pump/internal/source"
)

var (
	batchSize    int
	dryRun       bool
	tables       []string
	skipExisting bool
	autoRecreate bool
)

// sourceCatalog adapts *source.Catalog to the engine's cursor interface.
type sourceCatalog struct {
	*source.Catalog
}

func (s sourceCatalog) OpenCursor(ctx context.Context, table string, cols, orderBy []string) (engine.RowCursor, error) {
	return s.Catalog.OpenCursor(ctx, table, cols, orderBy)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate source tables into ClickHouse",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("🚚 Source: %s | Destination: ClickHouse\n", DriverName)

		var dicts DictFiles
		if err := viper.UnmarshalKey("dict", &dicts); err != nil {
			return fmt.Errorf("failed to parse dict config: %w", err)
		}
		d, err := dict.Load(dicts.TableFile, dicts.ColumnFile)
		if err != nil {
			return err
		}
		log.Printf("Dictionaries loaded: %d table renames, %d column renames\n", d.TableCount(), d.ColumnCount())

		cfg, err := LoadEngineConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("skip-existing") {
			cfg.SkipExisting = skipExisting
		}
		if cmd.Flags().Changed("auto-recreate") {
			cfg.AutoRecreate = autoRecreate
		}

		// CLI table selection overrides the include file.
		if len(tables) > 0 {
			cfg.Include = tables
			cfg.Exclude = nil
		}

		src := sourceCatalog{source.NewCatalog(SourceDB, DriverName, SchemaName)}
		dst := dest.NewClickHouse(DestDB)

		m := &engine.Migrator{
			Source: src,
			Dest:   dst,
			Dict:   d,
			Config: cfg,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if dryRun {
			return runDry(ctx, m, src)
		}

		log.Printf("Starting migration (batch size %d)...", cfg.BatchSize)
		start := time.Now()

		uiprogress.Start()
		var (
			bar     *uiprogress.Bar
			written int64
		)
		m.Config.OnTableStart = func(srcName, dstName string, rows int64) {
			total := int(rows)
			if total < 1 {
				total = 1
			}
			written = 0
			label := fmt.Sprintf("%-20s", srcName+" → "+dstName)
			bar = uiprogress.AddBar(total).AppendCompleted().PrependElapsed()
			bar.PrependFunc(func(b *uiprogress.Bar) string { return label })
		}
		m.Config.OnRowsWritten = func(n int64) {
			written += n
			if bar != nil {
				bar.Set(int(written))
			}
		}

		summary, runErr := m.Run(ctx)
		uiprogress.Stop()

		if summary != nil {
			printSummary(summary, time.Since(start))
		}
		if runErr != nil {
			return runErr
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d tables failed", summary.Failed, summary.Attempted)
		}
		return nil
	},
}

func runDry(ctx context.Context, m *engine.Migrator, src sourceCatalog) error {
	log.Println("[SIMULATION] Dry-Run Mode Active: No data will be written.")

	names, err := src.ListTables(ctx)
	if err != nil {
		return err
	}
	include := toLowerSet(m.Config.Include)
	exclude := toLowerSet(m.Config.Exclude)

	fmt.Printf("🔍 Planned DDL:\n")
	n := 0
	for _, table := range names {
		key := strings.ToLower(table)
		if len(include) > 0 && !include[key] {
			continue
		}
		if exclude[key] {
			continue
		}
		n++
		plan, err := m.Plan(ctx, table)
		if err != nil {
			fmt.Printf("[%02d] %s: ERROR: %v\n", n, table, err)
			continue
		}
		fmt.Printf("[%02d] %s → %s\n%s\n\n", n, table, plan.DestTable, dest.CreateTableSQL(plan))
	}
	return nil
}

func toLowerSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(strings.TrimSpace(n))] = true
	}
	return set
}

func printSummary(s *engine.Summary, elapsed time.Duration) {
	fmt.Println("\n📊 Summary Report:")
	for i, o := range s.Outcomes {
		icon := "✓"
		detail := fmt.Sprintf("%d rows", o.RowsWritten)
		switch o.Status {
		case engine.StatusSkipped:
			icon = "-"
			detail = "skipped (exists)"
		case engine.StatusFailed:
			icon = "!"
			detail = "FAILED"
		}
		validation := ""
		if o.Validation != nil {
			if o.Validation.OK() {
				validation = " (verified)"
			} else {
				validation = fmt.Sprintf(" (%d mismatches!)", len(o.Validation.Mismatches))
			}
		}
		fmt.Printf("[%s] [%02d/%02d] %-24s : %s%s\n", icon, i+1, len(s.Outcomes), o.Table+" → "+o.DestTable, detail, validation)
		if o.Err != nil {
			fmt.Printf("    └ Error: %s\n", o.Err)
		}
	}
	fmt.Println(strings.Repeat("-", 50))
	fmt.Printf("Tables: %d attempted, %d completed, %d skipped, %d failed\n", s.Attempted, s.Completed, s.Skipped, s.Failed)
	log.Printf("Migration Done! Time Elapsed: %s", elapsed)
}

func init() {
	RootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().IntVar(&batchSize, "batch", 0, "Rows per copy batch (overrides config)")
	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print planned DDL without writing")
	migrateCmd.Flags().StringSliceVarP(&tables, "tables", "t", []string{}, "Specific tables to migrate (comma-separated)")
	migrateCmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Skip tables that already exist with a matching schema")
	migrateCmd.Flags().BoolVar(&autoRecreate, "auto-recreate", false, "Drop and recreate tables whose schema differs")

	viper.BindPFlag("settings.batch_size", migrateCmd.Flags().Lookup("batch"))
}
