package source

import (
	"fmt"
	"strings"
)

type OracleDialect struct{}

func (d *OracleDialect) TablesQuery() string {
	// USER_TABLES lists tables owned by the connected user; the dummy
	// clause consumes the schema argument passed by the shared catalog.
	return `SELECT TABLE_NAME FROM USER_TABLES WHERE :1 IS NOT NULL OR :1 IS NULL ORDER BY TABLE_NAME`
}

func (d *OracleDialect) ColumnsQuery() string {
	return `
SELECT
    t.COLUMN_NAME,
    CASE
        WHEN t.DATA_TYPE = 'NUMBER' AND COALESCE(t.DATA_SCALE, 0) > 0 THEN 'DECIMAL'
        WHEN t.DATA_TYPE = 'NUMBER' THEN 'INTEGER'
        ELSE t.DATA_TYPE
    END,
    t.DATA_TYPE || CASE WHEN t.DATA_LENGTH IS NOT NULL THEN '(' || t.DATA_LENGTH || ')' ELSE '' END,
    t.NULLABLE,
    CASE WHEN p.CONSTRAINT_NAME IS NOT NULL THEN 'PRI' ELSE '' END,
    t.DATA_PRECISION,
    t.DATA_SCALE,
    c.COMMENTS
FROM USER_TAB_COLUMNS t
LEFT JOIN (
    SELECT cc.TABLE_NAME, cc.COLUMN_NAME, cc.CONSTRAINT_NAME
    FROM USER_CONS_COLUMNS cc
    JOIN USER_CONSTRAINTS uc ON cc.CONSTRAINT_NAME = uc.CONSTRAINT_NAME
    WHERE uc.CONSTRAINT_TYPE = 'P'
) p ON t.TABLE_NAME = p.TABLE_NAME AND t.COLUMN_NAME = p.COLUMN_NAME
LEFT JOIN USER_COL_COMMENTS c ON t.TABLE_NAME = c.TABLE_NAME AND t.COLUMN_NAME = c.COLUMN_NAME
WHERE (:1 IS NOT NULL OR :1 IS NULL) AND t.TABLE_NAME = :2
ORDER BY t.COLUMN_ID`
}

func (d *OracleDialect) TableCommentQuery() string {
	return `SELECT COMMENTS FROM USER_TAB_COMMENTS WHERE (:1 IS NOT NULL OR :1 IS NULL) AND TABLE_NAME = :2`
}

func (d *OracleDialect) SelectQuery(table string, cols, orderBy []string) string {
	q := fmt.Sprintf("SELECT %s FROM %s", joinQuoted(cols, d.QuoteIdent), d.QuoteIdent(table))
	if len(orderBy) > 0 {
		q += " ORDER BY " + joinQuoted(orderBy, d.QuoteIdent)
	}
	return q
}

func (d *OracleDialect) CountQuery(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s", d.QuoteIdent(table))
}

func (d *OracleDialect) QuoteIdent(name string) string {
	// Oracle folds unquoted identifiers to upper case; quoting keeps the
	// catalog's exact spelling.
	return `"` + name + `"`
}

func (d *OracleDialect) NormalizeType(dataType string) string {
	t := strings.ToLower(dataType)
	switch {
	case t == "integer":
		return "integer"
	case t == "decimal":
		return "decimal"
	case strings.HasPrefix(t, "varchar"), t == "nvarchar2":
		return "varchar"
	case t == "char", t == "nchar":
		return "char"
	case strings.Contains(t, "clob"):
		return "text"
	case strings.Contains(t, "blob") || t == "raw" || t == "long raw":
		return "blob"
	case t == "binary_float":
		return "float"
	case t == "binary_double":
		return "double"
	case t == "date" || strings.HasPrefix(t, "timestamp"):
		// Oracle DATE carries a time component.
		return "datetime"
	default:
		return t
	}
}

func (d *OracleDialect) SchemaName(input string) string {
	return input
}
