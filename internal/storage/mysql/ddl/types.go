// Package ddl contains MySQL-specific DDL helpers.
package ddl

import "strings"

// MapType maps a contract field type into a MySQL column type.
//
// Text key columns become VARCHAR(255) because InnoDB cannot index unbounded
// TEXT in a PRIMARY KEY.
func MapType(kind string, key bool) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "bool", "boolean":
		return "BOOLEAN"
	case "float", "double", "real":
		return "DOUBLE"
	case "timestamp", "datetime":
		return "DATETIME"
	default:
		if key {
			return "VARCHAR(255)"
		}
		return "TEXT"
	}
}
