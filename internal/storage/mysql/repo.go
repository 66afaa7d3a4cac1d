// Package mysql provides a MySQL-backed storage.Repository implementation on
// top of database/sql and github.com/go-sql-driver/mysql.
//
// Insert-or-ignore uses multi-row INSERT ... ON DUPLICATE KEY UPDATE with a
// no-op assignment, so only a PRIMARY KEY collision skips a row. INSERT IGNORE
// is avoided because it also downgrades truncation and invalid-value errors to
// warnings. With CLIENT_FOUND_ROWS off (the driver default) a skipped row
// affects 0 rows.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	driver "github.com/go-sql-driver/mysql"

	gddl "trafficetl/internal/ddl"
	"trafficetl/internal/storage"
)

// maxPlaceholders stays under MySQL's 65535 prepared-statement limit.
const maxPlaceholders = 60_000

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository parses cfg.DSN, opens a pool through the driver's connector
// and pings it. The returned func closes the pool.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("mysql: table must not be empty")
	}
	if len(cfg.Columns) == 0 {
		return nil, nil, fmt.Errorf("mysql: columns must not be empty")
	}
	dc, err := driver.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: parse dsn: %w", err)
	}
	dc.ParseTime = true
	if dc.Loc == nil {
		dc.Loc = time.UTC
	}

	conn, err := driver.NewConnector(dc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql: connector: %w", err)
	}
	db := sql.OpenDB(conn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(4)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", describe(err))
	}
	return &Repository{db: db, cfg: cfg}, func() { db.Close() }, nil
}

// describe adds the server error number to driver errors.
func describe(err error) error {
	var me *driver.MySQLError
	if errors.As(err, &me) {
		return fmt.Errorf("mysql error %d: %w", me.Number, err)
	}
	return err
}

func quoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

// buildInsertSQL renders
//
//	INSERT INTO `t` (`c1`, ...) VALUES (?, ...), ... ON DUPLICATE KEY UPDATE `k` = `k`
//
// for n rows, where k is the no-op key column.
func buildInsertSQL(table string, columns []string, key string, n int) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = quoteIdent(c)
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(gddl.QuoteFQN(table, quoteIdent))
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES ")
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(tuple)
	}
	sb.WriteString(" ON DUPLICATE KEY UPDATE ")
	sb.WriteString(quoteIdent(key))
	sb.WriteString(" = ")
	sb.WriteString(quoteIdent(key))
	return sb.String()
}

// noopColumn is the column assigned to itself on a key collision.
func noopColumn(cfg Config) string {
	if len(cfg.KeyColumns) > 0 {
		return cfg.KeyColumns[0]
	}
	return cfg.Columns[0]
}

// Begin starts a transaction for one chunk.
func (r *Repository) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mysql: begin tx: %w", describe(err))
	}
	return &txn{tx: tx, table: r.cfg.Table, columns: r.cfg.Columns, key: noopColumn(r.cfg)}, nil
}

// Ping checks the pool.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Exec executes an arbitrary SQL statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("mysql: exec: %w", describe(err))
	}
	return nil
}

// Describe reads the table's columns from information_schema. Without a
// "db." prefix the connection's default database is used.
func (r *Repository) Describe(ctx context.Context) ([]storage.ColumnInfo, error) {
	schemaExpr, args := "DATABASE()", []any{}
	table := r.cfg.Table
	if i := strings.LastIndex(table, "."); i >= 0 {
		schemaExpr = "?"
		args = append(args, table[:i])
		table = table[i+1:]
	}
	args = append(args, table)

	q := `SELECT column_name, column_type, is_nullable
FROM information_schema.columns
WHERE table_schema = ` + schemaExpr + ` AND table_name = ?
ORDER BY ordinal_position`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("mysql: describe: %w", describe(err))
	}
	defer rows.Close()

	var out []storage.ColumnInfo
	for rows.Next() {
		var c storage.ColumnInfo
		var nullable string
		if err := rows.Scan(&c.Name, &c.Type, &nullable); err != nil {
			return nil, fmt.Errorf("mysql: describe scan: %w", err)
		}
		c.Nullable = strings.EqualFold(nullable, "YES")
		out = append(out, c)
	}
	return out, rows.Err()
}

type txn struct {
	tx      *sql.Tx
	table   string
	columns []string
	key     string
}

// InsertIgnore sends rows as multi-row upserts with a no-op update, sized to
// the placeholder limit. RowsAffected counts only inserted rows; any error
// other than a key collision fails the call.
func (t *txn) InsertIgnore(ctx context.Context, rows [][]any) (int64, error) {
	width := len(t.columns)
	per := maxPlaceholders / width
	if per < 1 {
		per = 1
	}
	var inserted int64
	args := make([]any, 0, min(len(rows), per)*width)
	for lo := 0; lo < len(rows); lo += per {
		hi := min(lo+per, len(rows))
		args = args[:0]
		for i, row := range rows[lo:hi] {
			if len(row) != width {
				return inserted, fmt.Errorf("mysql: row %d has %d values, want %d", lo+i, len(row), width)
			}
			args = append(args, row...)
		}
		res, err := t.tx.ExecContext(ctx, buildInsertSQL(t.table, t.columns, t.key, hi-lo), args...)
		if err != nil {
			return inserted, fmt.Errorf("mysql: insert: %w", describe(err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("mysql: rows affected: %w", err)
		}
		inserted += n
	}
	return inserted, nil
}

func (t *txn) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("mysql: commit: %w", describe(err))
	}
	return nil
}

func (t *txn) Rollback() error { return t.tx.Rollback() }
