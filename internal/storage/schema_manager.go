package storage

import (
	"context"
	"fmt"
	"log"
	"strings"

	"trafficetl/internal/config"
	"trafficetl/internal/schema"
)

// ConfigFromPipeline derives the repository configuration from a pipeline.
// Empty table, columns and key columns fall back to the canonical defaults.
func ConfigFromPipeline(spec config.Pipeline) Config {
	db := spec.Storage.DB
	cfg := Config{
		Kind:       spec.Storage.Kind,
		DSN:        db.DSN,
		Table:      strings.TrimSpace(db.Table),
		Columns:    db.Columns,
		KeyColumns: db.KeyColumns,
	}
	if cfg.Table == "" {
		cfg.Table = config.DefaultTable
	}
	if len(cfg.Columns) == 0 {
		cfg.Columns = schema.TrafficStops.Names()
	}
	if len(cfg.KeyColumns) == 0 {
		cfg.KeyColumns = schema.TrafficStops.KeyNames()
	}
	return cfg
}

// EnsureSchema opens the configured backend, creates the target table when
// storage.db.auto_create_table is set, logs the table's columns, and returns
// the ready repository. The caller owns the repository and must Close it.
func EnsureSchema(ctx context.Context, spec config.Pipeline) (Repository, error) {
	cfg := ConfigFromPipeline(spec)
	repo, err := New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage open: %w", err)
	}

	if spec.Storage.DB.AutoCreateTable {
		spec.Storage.DB.Table = cfg.Table
		spec.Storage.DB.Columns = cfg.Columns
		spec.Storage.DB.KeyColumns = cfg.KeyColumns
		if err := EnsureTableFromPipeline(ctx, spec, repo); err != nil {
			repo.Close()
			return nil, fmt.Errorf("ensure table %s: %w", cfg.Table, err)
		}
	}

	cols, err := repo.Describe(ctx)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("describe %s: %w", cfg.Table, err)
	}
	if len(cols) == 0 {
		repo.Close()
		return nil, fmt.Errorf("table %s does not exist (set storage.db.auto_create_table to create it)", cfg.Table)
	}
	log.Printf("schema: table=%s kind=%s columns=%d", cfg.Table, cfg.Kind, len(cols))
	for _, c := range cols {
		log.Printf("schema:   %s %s nullable=%t", c.Name, c.Type, c.Nullable)
	}
	return repo, nil
}
