package ddl

import (
	"fmt"
	"strings"

	gddl "trafficetl/internal/ddl"
)

var dialect = gddl.Dialect{
	Name:  "mysql ddl",
	Quote: quoteIdent,
	Wrap: func(fqn, body string) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n) DEFAULT CHARSET=utf8mb4;", fqn, body)
	},
}

// BuildCreateTableSQL renders a MySQL CREATE TABLE IF NOT EXISTS statement
// with backtick-quoted identifiers and a utf8mb4 default charset.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return gddl.Render(t, dialect)
}

func quoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}
