// Package dict loads the human-curated rename dictionaries that drive the
// migration. The table dictionary is keyed by source table name; the column
// dictionary is keyed globally by source column name and applies to every
// table containing a column of that name.
package dict

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

type ErrorKind int

const (
	DuplicateDestName ErrorKind = iota
	DuplicateSourceName
	EmptyKey
)

// Error describes a structural problem in a dictionary. Any Error aborts
// the run before either database is touched.
type Error struct {
	Kind ErrorKind
	File string
	Name string
}

func (e *Error) Error() string {
	switch e.Kind {
	case DuplicateDestName:
		return fmt.Sprintf("%s: duplicate destination name %q", e.File, e.Name)
	case DuplicateSourceName:
		return fmt.Sprintf("%s: duplicate source name %q", e.File, e.Name)
	default:
		return fmt.Sprintf("%s: empty source name in row %s", e.File, e.Name)
	}
}

// TableMapping renames one source table. An empty Dest inherits Source.
type TableMapping struct {
	Source string
	Remark string
	Dest   string
}

// ColumnMapping renames every column named Source, in whichever table it
// appears. An empty Dest inherits Source.
type ColumnMapping struct {
	Source string
	Remark string
	Dest   string
}

// Dictionary holds both rename dictionaries for the lifetime of a run.
// It is loaded once and read-only afterwards.
type Dictionary struct {
	tables  map[string]TableMapping
	columns map[string]ColumnMapping
}

// Load reads and validates both dictionary CSV files. Either path may be
// empty, in which case that dictionary is empty and all names pass through.
func Load(tablePath, columnPath string) (*Dictionary, error) {
	d := &Dictionary{
		tables:  make(map[string]TableMapping),
		columns: make(map[string]ColumnMapping),
	}
	if tablePath != "" {
		f, err := os.Open(tablePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open table dictionary: %w", err)
		}
		err = d.readTables(f, tablePath)
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	if columnPath != "" {
		f, err := os.Open(columnPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open column dictionary: %w", err)
		}
		err = d.readColumns(f, columnPath)
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Parse reads both dictionaries from in-memory sources. Either reader may
// be nil.
func Parse(tableSrc, columnSrc io.Reader) (*Dictionary, error) {
	d := &Dictionary{
		tables:  make(map[string]TableMapping),
		columns: make(map[string]ColumnMapping),
	}
	if tableSrc != nil {
		if err := d.readTables(tableSrc, "table dictionary"); err != nil {
			return nil, err
		}
	}
	if columnSrc != nil {
		if err := d.readColumns(columnSrc, "column dictionary"); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// readCSV parses a three-column dictionary file. The header row names the
// columns; sourceCol and destCol locate the two we key on.
func readCSV(r io.Reader, file, sourceCol, destCol string) ([][3]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", file, err)
	}
	srcIdx, remIdx, dstIdx := -1, -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case sourceCol:
			srcIdx = i
		case "remark":
			remIdx = i
		case destCol:
			dstIdx = i
		}
	}
	if srcIdx < 0 || dstIdx < 0 {
		return nil, fmt.Errorf("%s: header must contain %q and %q columns", file, sourceCol, destCol)
	}

	var rows [][3]string
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", file, line, err)
		}
		var row [3]string
		row[0] = strings.TrimSpace(rec[srcIdx])
		if remIdx >= 0 && remIdx < len(rec) {
			row[1] = strings.TrimSpace(rec[remIdx])
		}
		if dstIdx < len(rec) {
			row[2] = strings.TrimSpace(rec[dstIdx])
		}
		if row[0] == "" {
			return nil, &Error{Kind: EmptyKey, File: file, Name: fmt.Sprintf("%d", line)}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (d *Dictionary) readTables(r io.Reader, file string) error {
	rows, err := readCSV(r, file, "table", "new_table_name")
	if err != nil {
		return err
	}
	destSeen := make(map[string]bool)
	for _, row := range rows {
		src, remark, dst := row[0], row[1], row[2]
		if _, ok := d.tables[src]; ok {
			return &Error{Kind: DuplicateSourceName, File: file, Name: src}
		}
		// Validate the effective destination name: an empty new name
		// inherits the source name, and that inherited name can collide
		// with another row's explicit mapping.
		eff := dst
		if eff == "" {
			eff = src
		}
		if destSeen[eff] {
			return &Error{Kind: DuplicateDestName, File: file, Name: eff}
		}
		destSeen[eff] = true
		d.tables[src] = TableMapping{Source: src, Remark: remark, Dest: dst}
	}
	return nil
}

func (d *Dictionary) readColumns(r io.Reader, file string) error {
	rows, err := readCSV(r, file, "raw_column", "new_column")
	if err != nil {
		return err
	}
	destSeen := make(map[string]bool)
	for _, row := range rows {
		src, remark, dst := row[0], row[1], row[2]
		if _, ok := d.columns[src]; ok {
			return &Error{Kind: DuplicateSourceName, File: file, Name: src}
		}
		// The column dictionary applies globally, so two rules producing the
		// same destination name would collide in any table containing both
		// source columns.
		if dst != "" {
			if destSeen[dst] {
				return &Error{Kind: DuplicateDestName, File: file, Name: dst}
			}
			destSeen[dst] = true
		}
		d.columns[src] = ColumnMapping{Source: src, Remark: remark, Dest: dst}
	}
	return nil
}

// TableDest resolves the destination name and remark for a source table,
// falling back to the source name when unmapped.
func (d *Dictionary) TableDest(source string) (dest, remark string) {
	if m, ok := d.tables[source]; ok {
		if m.Dest != "" {
			return m.Dest, m.Remark
		}
		return source, m.Remark
	}
	return source, ""
}

// ColumnDest resolves the destination name for a source column, falling
// back to the source name when unmapped.
func (d *Dictionary) ColumnDest(source string) string {
	if m, ok := d.columns[source]; ok && m.Dest != "" {
		return m.Dest
	}
	return source
}

// TableCount and ColumnCount report dictionary sizes for startup logging.
func (d *Dictionary) TableCount() int  { return len(d.tables) }
func (d *Dictionary) ColumnCount() int { return len(d.columns) }
