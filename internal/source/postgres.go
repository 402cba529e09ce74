package source

import (
	"fmt"
	"strings"
)

type PostgresDialect struct{}

func (d *PostgresDialect) TablesQuery() string {
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE' ORDER BY table_name`
}

func (d *PostgresDialect) ColumnsQuery() string {
	// Primary-key membership via a subquery, as information_schema.columns
	// has no key marker of its own.
	return `SELECT
    c.column_name,
    c.udt_name,
    c.data_type,
    c.is_nullable,
    COALESCE((SELECT 'PRI' FROM information_schema.table_constraints tc
     JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name
     WHERE tc.constraint_type = 'PRIMARY KEY'
     AND kcu.table_schema = c.table_schema AND kcu.table_name = c.table_name AND kcu.column_name = c.column_name LIMIT 1), ''),
    c.numeric_precision,
    c.numeric_scale,
    COALESCE(col_description(format('%I.%I', c.table_schema, c.table_name)::regclass::oid, c.ordinal_position), '')
FROM information_schema.columns c
WHERE c.table_schema = $1 AND c.table_name = $2
ORDER BY c.ordinal_position`
}

func (d *PostgresDialect) TableCommentQuery() string {
	return `SELECT COALESCE(obj_description(format('%I.%I', $1::text, $2::text)::regclass::oid, 'pg_class'), '')`
}

func (d *PostgresDialect) SelectQuery(table string, cols, orderBy []string) string {
	q := fmt.Sprintf("SELECT %s FROM %s", joinQuoted(cols, d.QuoteIdent), d.QuoteIdent(table))
	if len(orderBy) > 0 {
		q += " ORDER BY " + joinQuoted(orderBy, d.QuoteIdent)
	}
	return q
}

func (d *PostgresDialect) CountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdent(table))
}

func (d *PostgresDialect) QuoteIdent(name string) string {
	return `"` + name + `"`
}

func (d *PostgresDialect) NormalizeType(dataType string) string {
	t := strings.ToLower(dataType)
	switch t {
	case "int2":
		return "smallint"
	case "int4", "serial":
		return "int"
	case "int8", "bigserial":
		return "bigint"
	case "float4", "real":
		return "float"
	case "float8", "double precision":
		return "double"
	case "numeric":
		return "decimal"
	case "bool":
		return "boolean"
	case "bpchar":
		return "char"
	case "bytea":
		return "blob"
	case "timestamp", "timestamptz":
		return "datetime"
	case "timetz":
		return "time"
	case "uuid", "name", "xml", "jsonb", "cidr", "inet", "macaddr":
		return "text"
	default:
		return t
	}
}

func (d *PostgresDialect) SchemaName(input string) string {
	if input == "" {
		return "public"
	}
	return input
}
