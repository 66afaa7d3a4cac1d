// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render CREATE TABLE statements from that model.
//
// Backend packages (internal/storage/<kind>/ddl) supply a Dialect for quoting
// and the existence guard; the column and key rendering lives here once.
// ColumnDef.Default is emitted as raw SQL; the caller is responsible for its
// safety and dialect correctness.
package ddl

import (
	"fmt"
	"strings"
)

// Dialect controls the parts of CREATE TABLE that differ between backends.
type Dialect struct {
	// Name prefixes error messages, e.g. "postgres ddl".
	Name string
	// Quote quotes one identifier segment. Nil emits names verbatim.
	Quote func(string) string
	// Wrap turns the quoted FQN and the rendered column body into the final
	// statement. Nil renders a plain "CREATE TABLE fqn (\n  body\n);".
	Wrap func(fqn, body string) string
	// Indent separates column definitions inside the body.
	Indent string
}

// QuoteFQN quotes each dot-separated segment of fqn with quote. Empty
// segments are dropped.
func QuoteFQN(fqn string, quote func(string) string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if quote != nil {
			p = quote(p)
		}
		out = append(out, p)
	}
	return strings.Join(out, ".")
}

// Render renders t in dialect d. A column is rendered as
//
//	<Name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
// and columns with PrimaryKey set are collected, in definition order, into a
// trailing PRIMARY KEY (...) clause. Primary-key columns are always NOT NULL.
func Render(t TableDef, d Dialect) (string, error) {
	name := d.Name
	if name == "" {
		name = "ddl"
	}
	quote := d.Quote
	if quote == nil {
		quote = func(s string) string { return s }
	}
	indent := d.Indent
	if indent == "" {
		indent = "  "
	}

	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s: table FQN must not be empty", name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s: at least one column is required", name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, 2)

	for _, c := range t.Columns {
		col := strings.TrimSpace(c.Name)
		if col == "" {
			return "", fmt.Errorf("%s: column with empty name in table %s", name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s: column %s missing SQLType", name, col)
		}

		var sb strings.Builder
		sb.WriteString(quote(col))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, quote(col))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	body := strings.Join(cols, ",\n"+indent)
	qfqn := QuoteFQN(fqn, d.Quote)
	if d.Wrap != nil {
		return d.Wrap(qfqn, body), nil
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s%s\n);", qfqn, indent, body), nil
}
