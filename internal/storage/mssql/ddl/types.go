// Package ddl contains MSSQL-specific helpers for generating DDL.
//
// It maps the contract's field types into SQL Server types.
package ddl

import "strings"

// MapType maps a contract field type into a SQL Server column type.
//
// Text key columns become NVARCHAR(255); SQL Server cannot put NVARCHAR(MAX)
// in an index. Unknown or empty kinds fall back to NVARCHAR(MAX).
func MapType(kind string, key bool) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "bool", "boolean":
		return "BIT"
	case "timestamp", "datetime", "timestamptz":
		return "DATETIME2"
	case "float", "double":
		return "FLOAT"
	default:
		if key {
			return "NVARCHAR(255)"
		}
		return "NVARCHAR(MAX)"
	}
}
