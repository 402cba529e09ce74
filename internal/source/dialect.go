package source

import "strings"

// Dialect abstracts source-database specifics: introspection queries and
// ordered extraction SQL. Introspection queries use the dialect's own
// placeholder syntax; ColumnsQuery and TableCommentQuery take (schema, table)
// as the two bind arguments, TablesQuery takes (schema).
type Dialect interface {
	TablesQuery() string
	ColumnsQuery() string
	TableCommentQuery() string
	SelectQuery(table string, cols, orderBy []string) string
	CountQuery(table string) string
	QuoteIdent(name string) string

	// NormalizeType folds the dialect's native type names into the closed
	// MySQL-flavored set the type mapper understands.
	NormalizeType(dataType string) string
	SchemaName(input string) string
}

// ForDriver returns the Dialect for a database/sql driver name.
func ForDriver(driver string) Dialect {
	switch driver {
	case "postgres":
		return &PostgresDialect{}
	case "sqlserver", "mssql":
		return &MSSQLDialect{}
	case "oracle":
		return &OracleDialect{}
	default: // mysql
		return &MysqlDialect{}
	}
}

// Ensure interface implementation
var _ Dialect = (*MysqlDialect)(nil)
var _ Dialect = (*PostgresDialect)(nil)
var _ Dialect = (*MSSQLDialect)(nil)
var _ Dialect = (*OracleDialect)(nil)

// quoteAll quotes a list of identifiers with the dialect's quote function.
func quoteAll(cols []string, quote func(string) string) []string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return quoted
}

// joinQuoted renders a quoted, comma-separated identifier list.
func joinQuoted(cols []string, quote func(string) string) string {
	return strings.Join(quoteAll(cols, quote), ", ")
}
