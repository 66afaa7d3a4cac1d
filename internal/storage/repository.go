// Package storage contains the storage-agnostic contracts for the traffic-stop
// store: a Repository that opens per-chunk transactions, a Tx whose only
// write is insert-or-ignore, and a registry that backends join at init time.
//
// Backends (sqlite, mysql, postgres, mssql) implement InsertIgnore with their
// own dialect. Callers stay backend-agnostic by importing
// internal/storage/all and calling New or EnsureSchema.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository is an open connection to the target table.
type Repository interface {
	// Begin starts one transaction. The loader uses one per chunk.
	Begin(ctx context.Context) (Tx, error)
	// Ping is the liveness probe used before each chunk.
	Ping(ctx context.Context) error
	// Exec runs a statement outside any transaction (typically DDL).
	Exec(ctx context.Context, sql string) error
	// Describe lists the target table's columns.
	Describe(ctx context.Context) ([]ColumnInfo, error)
	Close()
}

// Tx is a transaction scoped to the configured table and columns.
type Tx interface {
	// InsertIgnore inserts rows aligned to Config.Columns. Rows whose natural
	// key already exists are skipped silently. It returns the number of rows
	// actually inserted.
	InsertIgnore(ctx context.Context, rows [][]any) (int64, error)
	Commit() error
	Rollback() error
}

// ColumnInfo is one row of Describe output.
type ColumnInfo struct {
	Name     string
	Type     string
	Nullable bool
}

// Config is the backend-neutral connection configuration.
type Config struct {
	Kind       string
	DSN        string
	Table      string
	Columns    []string
	KeyColumns []string
}

// Factory opens a Repository for one storage kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind. Backends call it
// from init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
