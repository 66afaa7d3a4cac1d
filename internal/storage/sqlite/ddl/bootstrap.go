package ddl

import (
	"context"

	gddl "trafficetl/internal/ddl"
	"trafficetl/internal/storage"
)

// EnsureTable renders def as CREATE TABLE IF NOT EXISTS and executes it.
func EnsureTable(ctx context.Context, repo storage.Repository, def gddl.TableDef) error {
	sql, err := BuildCreateTableSQL(def)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}
