// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql and modernc.org/sqlite. Insert-or-ignore is a prepared
// INSERT OR IGNORE executed once per row inside the chunk transaction;
// SQLite has no bulk-load API, and a single transaction keeps per-row
// statements fast.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	gddl "trafficetl/internal/ddl"
	"trafficetl/internal/storage"

	_ "modernc.org/sqlite"
)

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db        *sql.DB
	cfg       Config
	insertSQL string
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
//
// The pool is limited to one connection: SQLite serializes writers anyway,
// and ":memory:" databases exist per connection.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("sqlite: table must not be empty")
	}
	if len(cfg.Columns) == 0 {
		return nil, nil, fmt.Errorf("sqlite: columns must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;")

	r := &Repository{db: db, cfg: cfg, insertSQL: buildInsertSQL(cfg.Table, cfg.Columns)}
	return r, func() { db.Close() }, nil
}

// buildInsertSQL renders INSERT OR IGNORE INTO "t" ("c1", ...) VALUES (?, ...).
func buildInsertSQL(table string, columns []string) string {
	cols := make([]string, len(columns))
	ph := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = quoteIdent(c)
		ph[i] = "?"
	}
	return fmt.Sprintf(
		"INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		gddl.QuoteFQN(table, quoteIdent),
		strings.Join(cols, ", "),
		strings.Join(ph, ", "),
	)
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// Begin starts a transaction for one chunk.
func (r *Repository) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	return &txn{tx: tx, insertSQL: r.insertSQL, width: len(r.cfg.Columns)}, nil
}

// Ping checks the connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Exec executes an arbitrary SQL statement (typically DDL) using the underlying
// database/sql connection.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// Describe reads the table's columns from pragma_table_info. A missing table
// yields no columns and no error.
func (r *Repository) Describe(ctx context.Context) ([]storage.ColumnInfo, error) {
	schemaName, table := "main", r.cfg.Table
	if i := strings.LastIndex(table, "."); i >= 0 {
		schemaName, table = table[:i], table[i+1:]
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, type, "notnull" FROM pragma_table_info(?, ?) ORDER BY cid`, table, schemaName)
	if err != nil {
		return nil, fmt.Errorf("sqlite: describe: %w", err)
	}
	defer rows.Close()

	var out []storage.ColumnInfo
	for rows.Next() {
		var (
			c       storage.ColumnInfo
			notNull int
		)
		if err := rows.Scan(&c.Name, &c.Type, &notNull); err != nil {
			return nil, fmt.Errorf("sqlite: describe scan: %w", err)
		}
		c.Nullable = notNull == 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// txn is one chunk transaction. The insert statement is prepared on first use.
type txn struct {
	tx        *sql.Tx
	stmt      *sql.Stmt
	insertSQL string
	width     int
}

// InsertIgnore executes the prepared INSERT OR IGNORE per row and sums the
// affected rows; ignored duplicates affect none.
func (t *txn) InsertIgnore(ctx context.Context, rows [][]any) (int64, error) {
	if t.stmt == nil {
		stmt, err := t.tx.PrepareContext(ctx, t.insertSQL)
		if err != nil {
			return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
		}
		t.stmt = stmt
	}
	var inserted int64
	for i, row := range rows {
		if len(row) != t.width {
			return inserted, fmt.Errorf("sqlite: row %d has %d values, want %d", i, len(row), t.width)
		}
		res, err := t.stmt.ExecContext(ctx, row...)
		if err != nil {
			return inserted, fmt.Errorf("sqlite: insert row %d: %w", i, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("sqlite: rows affected: %w", err)
		}
		inserted += n
	}
	return inserted, nil
}

func (t *txn) closeStmt() {
	if t.stmt != nil {
		_ = t.stmt.Close()
		t.stmt = nil
	}
}

func (t *txn) Commit() error {
	t.closeStmt()
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func (t *txn) Rollback() error {
	t.closeStmt()
	return t.tx.Rollback()
}
