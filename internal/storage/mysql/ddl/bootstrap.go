package ddl

import (
	"context"

	gddl "trafficetl/internal/ddl"
	"trafficetl/internal/storage"
)

// EnsureTable creates the table described by def if it does not exist.
func EnsureTable(ctx context.Context, repo storage.Repository, def gddl.TableDef) error {
	sql, err := BuildCreateTableSQL(def)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}
