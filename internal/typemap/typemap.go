package typemap

import (
	"fmt"
	"strings"
)

// Flags carries the type modifiers introspection reports alongside the
// native type name.
type Flags struct {
	Width     int // display width, e.g. the 1 in tinyint(1)
	Precision int
	Scale     int
	Unsigned  bool
}

// UnsupportedTypeError is returned for native types outside the conversion
// table. The caller is expected to fail the table at plan time rather than
// fall back to a lossy default.
type UnsupportedTypeError struct {
	NativeType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported source type %q", e.NativeType)
}

// typeTable maps normalized source type names to ClickHouse types.
var typeTable = map[string]string{
	"TINYINT":            "Int8",
	"TINYINT UNSIGNED":   "UInt8",
	"SMALLINT":           "Int16",
	"SMALLINT UNSIGNED":  "UInt16",
	"MEDIUMINT":          "Int32",
	"MEDIUMINT UNSIGNED": "UInt32",
	"INT":                "Int32",
	"INTEGER":            "Int32",
	"INT UNSIGNED":       "UInt32",
	"INTEGER UNSIGNED":   "UInt32",
	"BIGINT":             "Int64",
	"BIGINT UNSIGNED":    "UInt64",
	"YEAR":               "Int16",
	"BOOLEAN":            "Bool",
	"BIT":                "Bool",
	"FLOAT":              "Float32",
	"DOUBLE":             "Float64",
	"DECIMAL":            "Decimal",
	"CHAR":               "String",
	"VARCHAR":            "String",
	"TINYTEXT":           "String",
	"TEXT":               "String",
	"MEDIUMTEXT":         "String",
	"LONGTEXT":           "String",
	"BINARY":             "String",
	"VARBINARY":          "String",
	"TINYBLOB":           "String",
	"BLOB":               "String",
	"MEDIUMBLOB":         "String",
	"LONGBLOB":           "String",
	"DATE":               "Date32",
	"TIME":               "DateTime64(6)",
	"DATETIME":           "DateTime64(6)",
	"TIMESTAMP":          "DateTime64(6)",
	"ENUM":               "LowCardinality(String)",
	"SET":                "String",
	"JSON":               "String",
	"GEOMETRY":           "String",
	"POINT":              "String",
	"LINESTRING":         "String",
	"POLYGON":            "String",
	"VECTOR":             "Array(Float32)",
}

// Map converts a source column type to its ClickHouse counterpart.
// nativeType may be a bare type name ("tinyint") or a full declared type
// ("decimal(10,2)"); the parameter part is ignored in favor of flags.
func Map(nativeType string, flags Flags) (string, error) {
	base := strings.ToUpper(strings.TrimSpace(nativeType))
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}

	// tinyint(1) is MySQL's boolean convention; every other display width
	// keeps the integer mapping.
	if base == "TINYINT" && flags.Width == 1 {
		return "Bool", nil
	}

	if base == "DECIMAL" || base == "NUMERIC" {
		p, s := flags.Precision, flags.Scale
		if p <= 0 {
			// Sources can report scale without precision (Oracle NUMBER(*, s)).
			// Decimal needs explicit parameters in DDL; 38 is the widest
			// precision that still fits Decimal128.
			p = 38
			if s <= 0 {
				s = 10
			}
		}
		return fmt.Sprintf("Decimal(%d, %d)", p, s), nil
	}

	if flags.Unsigned {
		if t, ok := typeTable[base+" UNSIGNED"]; ok {
			return t, nil
		}
	}
	if t, ok := typeTable[base]; ok {
		return t, nil
	}
	return "", &UnsupportedTypeError{NativeType: nativeType}
}
