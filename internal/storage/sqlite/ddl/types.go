// Package ddl contains SQLite-specific helpers for generating DDL.
//
// It maps the canonical contract's field types into SQLite column types.
package ddl

import "strings"

// MapType maps a contract field type into a SQLite column type.
//
// SQLite uses type affinity, so the mapping prefers canonical affinities:
//   - text      -> TEXT
//   - bool      -> INTEGER (0/1)
//   - float     -> REAL
//   - timestamp -> DATETIME (the driver stores time.Time as text)
//
// key does not change the mapping; SQLite can index any affinity.
func MapType(kind string, key bool) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "INTEGER"
	case "bool", "boolean":
		return "INTEGER"
	case "float", "double", "real":
		return "REAL"
	case "timestamp", "datetime", "date":
		return "DATETIME"
	default:
		return "TEXT"
	}
}
