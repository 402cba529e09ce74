package schema

// SourceColumn is one column of a source table as reported by introspection.
// Immutable for the duration of a run.
type SourceColumn struct {
	Name       string
	DataType   string // normalized native type name, e.g. "tinyint"
	ColumnType string // full declared type, e.g. "tinyint(1)", "decimal(10,2)"
	Nullable   bool
	IsPK       bool
	Width      int // display width for integer types, 0 if none
	Precision  int
	Scale      int
	Unsigned   bool
	Comment    string
}

// DestColumn is the derived destination definition for one column.
type DestColumn struct {
	Name     string
	Type     string // ClickHouse type without the Nullable wrapper
	Nullable bool
	OrderKey bool
	Comment  string
}

// DDLType renders the column type as it appears in destination DDL and in
// DESCRIBE output, so planned and live schemas compare textually.
func (c DestColumn) DDLType() string {
	if c.Nullable {
		return "Nullable(" + c.Type + ")"
	}
	return c.Type
}

// ColumnPlan pairs a source column with its destination definition.
type ColumnPlan struct {
	Source SourceColumn
	Dest   DestColumn
}

// TablePlan is the fully resolved migration blueprint for one table. Built
// once per table per run, owned exclusively by that table's migration.
type TablePlan struct {
	SourceTable string
	DestTable   string
	Remark      string // table comment carried into destination DDL
	Columns     []ColumnPlan
	OrderBy     []string // destination column names forming the ordering key
}

// SourceNames returns the source column names in plan order.
func (p *TablePlan) SourceNames() []string {
	names := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		names[i] = c.Source.Name
	}
	return names
}

// DestNames returns the destination column names in plan order.
func (p *TablePlan) DestNames() []string {
	names := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		names[i] = c.Dest.Name
	}
	return names
}

// SourceOrderBy returns the source column names backing the ordering key,
// used to read rows in the same stable order they are written.
func (p *TablePlan) SourceOrderBy() []string {
	var cols []string
	for _, c := range p.Columns {
		if c.Dest.OrderKey {
			cols = append(cols, c.Source.Name)
		}
	}
	if len(cols) == 0 && len(p.Columns) > 0 {
		cols = []string{p.Columns[0].Source.Name}
	}
	return cols
}
