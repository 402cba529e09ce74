package source

import (
	"fmt"
	"strings"
)

type MSSQLDialect struct{}

func (d *MSSQLDialect) TablesQuery() string {
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`
}

func (d *MSSQLDialect) ColumnsQuery() string {
	return `
		SELECT
			c.COLUMN_NAME,
			c.DATA_TYPE,
			c.DATA_TYPE,
			c.IS_NULLABLE,
			CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 'PRI' ELSE '' END,
			c.NUMERIC_PRECISION,
			c.NUMERIC_SCALE,
			CAST(ep.value AS NVARCHAR(MAX))
		FROM INFORMATION_SCHEMA.COLUMNS c
		LEFT JOIN (
			SELECT kcu.TABLE_NAME, kcu.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
				ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY' AND tc.TABLE_SCHEMA = @p1
		) pk ON c.TABLE_NAME = pk.TABLE_NAME AND c.COLUMN_NAME = pk.COLUMN_NAME
		LEFT JOIN sys.extended_properties ep
			ON ep.major_id = OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME)
			AND ep.minor_id = c.ORDINAL_POSITION
			AND ep.name = 'MS_Description'
		WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
		ORDER BY c.ORDINAL_POSITION
	`
}

func (d *MSSQLDialect) TableCommentQuery() string {
	return `SELECT CAST(ep.value AS NVARCHAR(MAX))
		FROM sys.extended_properties ep
		WHERE ep.major_id = OBJECT_ID(@p1 + '.' + @p2) AND ep.minor_id = 0 AND ep.name = 'MS_Description'`
}

func (d *MSSQLDialect) SelectQuery(table string, cols, orderBy []string) string {
	q := fmt.Sprintf("SELECT %s FROM %s", joinQuoted(cols, d.QuoteIdent), d.QuoteIdent(table))
	if len(orderBy) > 0 {
		q += " ORDER BY " + joinQuoted(orderBy, d.QuoteIdent)
	}
	return q
}

func (d *MSSQLDialect) CountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdent(table))
}

func (d *MSSQLDialect) QuoteIdent(name string) string {
	return "[" + name + "]"
}

func (d *MSSQLDialect) NormalizeType(dataType string) string {
	t := strings.ToLower(dataType)
	switch t {
	case "nvarchar", "nchar", "ntext", "sysname":
		return "varchar"
	case "bit":
		return "boolean"
	case "numeric", "money", "smallmoney":
		return "decimal"
	case "real":
		return "float"
	case "datetime", "datetime2", "smalldatetime", "datetimeoffset":
		return "datetime"
	case "image", "varbinary", "binary":
		return "blob"
	case "uniqueidentifier":
		return "text"
	default:
		return t
	}
}

func (d *MSSQLDialect) SchemaName(input string) string {
	if input == "" {
		return "dbo"
	}
	return input
}
