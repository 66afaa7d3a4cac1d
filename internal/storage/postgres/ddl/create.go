package ddl

import (
	"fmt"
	"strings"

	gddl "trafficetl/internal/ddl"
)

var dialect = gddl.Dialect{
	Name:  "postgres ddl",
	Quote: quoteIdent,
	Wrap: func(fqn, body string) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", fqn, body)
	},
}

// BuildCreateTableSQL returns a Postgres CREATE TABLE IF NOT EXISTS statement
// for the given table definition, with double-quoted identifiers.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return gddl.Render(t, dialect)
}

// quoteIdent quotes a single identifier segment for Postgres, e.g.:
//
//	quoteIdent(`seq_id`)     => `"seq_id"`
//	quoteIdent(`weird"name`) => `"weird""name"`
func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
