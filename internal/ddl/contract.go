package ddl

import (
	"fmt"
	"strings"

	"trafficetl/internal/schema"
)

// TypeMapper maps a contract field type to a backend column type. key is
// true for primary-key columns, which some backends must keep indexable.
type TypeMapper func(kind string, key bool) string

// FromContract builds a TableDef for table from contract c.
//
// columns selects and orders the stored columns; empty means every contract
// field. keys overrides the contract's natural key; empty keeps it. Every key
// column must be among the selected columns. Required and key fields are
// NOT NULL.
func FromContract(table string, columns, keys []string, c schema.Contract, mapType TypeMapper) (TableDef, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return TableDef{}, fmt.Errorf("ddl: missing table")
	}
	if len(columns) == 0 {
		columns = c.Names()
	}
	if len(keys) == 0 {
		keys = c.KeyNames()
	}
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	defs := make([]ColumnDef, 0, len(columns))
	seenKeys := 0
	for _, name := range columns {
		f, ok := c.Lookup(name)
		if !ok {
			return TableDef{}, fmt.Errorf("ddl: column %q is not part of contract %s", name, c.Name)
		}
		key := isKey[name]
		if key {
			seenKeys++
		}
		defs = append(defs, ColumnDef{
			Name:       name,
			SQLType:    mapType(f.Type, key),
			Nullable:   !f.Required && !key,
			PrimaryKey: key,
		})
	}
	if seenKeys != len(isKey) {
		return TableDef{}, fmt.Errorf("ddl: key columns %v must all be stored columns", keys)
	}
	return TableDef{FQN: table, Columns: defs}, nil
}
