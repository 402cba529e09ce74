package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"ch-pump/internal/source"
)

var outDir string

// scanCmd bootstraps rename dictionaries from a live source schema.
// The generated files carry every table and column with the new-name
// field left blank, ready for hand editing.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Generate dictionary skeletons from the source schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		src := source.NewCatalog(SourceDB, DriverName, SchemaName)

		names, err := src.ListTables(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tables: %w", err)
		}

		tableRows := [][]string{{"table", "remark", "new_table_name"}}
		columnRows := [][]string{{"raw_column", "remark", "new_column"}}
		seen := map[string]bool{}

		for _, table := range names {
			comment, err := src.TableComment(ctx, table)
			if err != nil {
				comment = ""
			}
			tableRows = append(tableRows, []string{table, comment, ""})

			cols, err := src.DescribeColumns(ctx, table)
			if err != nil {
				return fmt.Errorf("failed to describe %s: %w", table, err)
			}
			for _, c := range cols {
				if seen[c.Name] {
					continue
				}
				seen[c.Name] = true
				columnRows = append(columnRows, []string{c.Name, c.Comment, ""})
			}
		}

		// Column order is scan order across tables; sort the body for a
		// stable, reviewable file.
		body := columnRows[1:]
		sort.Slice(body, func(i, j int) bool { return body[i][0] < body[j][0] })

		if err := writeCSV(filepath.Join(outDir, "table_dict.csv"), tableRows); err != nil {
			return err
		}
		if err := writeCSV(filepath.Join(outDir, "column_dict.csv"), columnRows); err != nil {
			return err
		}

		log.Printf("Scan done: %d tables, %d distinct columns", len(names), len(columnRows)-1)
		fmt.Printf("📝 Wrote %s and %s\n", filepath.Join(outDir, "table_dict.csv"), filepath.Join(outDir, "column_dict.csv"))
		return nil
	},
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}

func init() {
	RootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory for generated dictionary files")
}
