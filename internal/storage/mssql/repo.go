// Package mssql implements a Microsoft SQL Server repository using the
// go-mssqldb bulk copy API. Each sub-batch is bulk-copied into a session
// temporary table (#etl_stage) and then inserted into the target where the
// natural key does not already exist.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	gddl "trafficetl/internal/ddl"
	"trafficetl/internal/storage"
)

const stageTable = "#etl_stage"

// Config holds MSSQL repository configuration.
type Config struct {
	DSN        string
	Table      string
	Columns    []string
	KeyColumns []string
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("mssql: table must not be empty")
	}
	if len(cfg.Columns) == 0 || len(cfg.KeyColumns) == 0 {
		return nil, nil, fmt.Errorf("mssql: columns and key columns are required")
	}
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	close := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, close, nil
}

// Begin starts a transaction for one chunk.
func (r *Repository) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &txn{tx: tx, cfg: r.cfg}, nil
}

// Ping checks the pool.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mssql exec: %w", err)
	}
	return nil
}

// Describe reads the table's columns from INFORMATION_SCHEMA. Without a
// schema prefix, SCHEMA_NAME() is used.
func (r *Repository) Describe(ctx context.Context) ([]storage.ColumnInfo, error) {
	schemaName, table := "", r.cfg.Table
	if i := strings.LastIndex(table, "."); i >= 0 {
		schemaName, table = table[:i], table[i+1:]
		if j := strings.LastIndex(schemaName, "."); j >= 0 {
			schemaName = schemaName[j+1:]
		}
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = COALESCE(NULLIF(@p1, ''), SCHEMA_NAME()) AND TABLE_NAME = @p2
ORDER BY ORDINAL_POSITION`, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("mssql describe: %w", err)
	}
	defer rows.Close()

	var out []storage.ColumnInfo
	for rows.Next() {
		var c storage.ColumnInfo
		var nullable string
		if err := rows.Scan(&c.Name, &c.Type, &nullable); err != nil {
			return nil, fmt.Errorf("mssql describe scan: %w", err)
		}
		c.Nullable = strings.EqualFold(nullable, "YES")
		out = append(out, c)
	}
	return out, rows.Err()
}

type txn struct {
	tx     *sql.Tx
	cfg    Config
	staged bool
}

// stageSQL (re)creates the session temp table with the target's column types.
func stageSQL(cfg Config) string {
	return fmt.Sprintf(
		"IF OBJECT_ID(N'tempdb..%s') IS NOT NULL DROP TABLE %s;\nSELECT TOP 0 %s INTO %s FROM %s;",
		stageTable, stageTable,
		strings.Join(mapIdent(cfg.Columns), ", "), stageTable, msFQN(cfg.Table),
	)
}

// mergeSQL inserts staged rows whose key is not already in the target. The
// key probe holds range locks until the transaction ends.
func mergeSQL(cfg Config) string {
	cols := strings.Join(mapIdent(cfg.Columns), ", ")
	return fmt.Sprintf(
		"INSERT INTO %s (%s)\nSELECT %s FROM %s AS S\nWHERE NOT EXISTS (SELECT 1 FROM %s AS T WITH (UPDLOCK, HOLDLOCK) WHERE %s);",
		msFQN(cfg.Table), cols, prefixed("S", cfg.Columns), stageTable,
		msFQN(cfg.Table), keyMatch(cfg.KeyColumns),
	)
}

// InsertIgnore bulk-copies rows into the stage, merges them and truncates the
// stage for the next sub-batch.
func (t *txn) InsertIgnore(ctx context.Context, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if !t.staged {
		if _, err := t.tx.ExecContext(ctx, stageSQL(t.cfg)); err != nil {
			return 0, fmt.Errorf("create stage: %w", err)
		}
		t.staged = true
	}

	stmt, err := t.tx.PrepareContext(ctx, mssql.CopyIn(stageTable, mssql.BulkOptions{}, t.cfg.Columns...))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	_, err = stmt.ExecContext(ctx) // flush
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}

	res, err := t.tx.ExecContext(ctx, mergeSQL(t.cfg))
	if err != nil {
		return 0, fmt.Errorf("merge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, "TRUNCATE TABLE "+stageTable); err != nil {
		return 0, fmt.Errorf("truncate stage: %w", err)
	}
	return n, nil
}

// Commit drops the stage so the pooled session can stage again.
func (t *txn) Commit() error {
	if t.staged {
		if _, err := t.tx.Exec("DROP TABLE " + stageTable); err != nil {
			_ = t.tx.Rollback()
			return fmt.Errorf("drop stage: %w", err)
		}
	}
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback also discards the stage; temp-table DDL is transactional.
func (t *txn) Rollback() error { return t.tx.Rollback() }

// keyMatch builds the T=S equality join for the provided key columns.
func keyMatch(keyColumns []string) string {
	conds := make([]string, 0, len(keyColumns))
	for _, col := range keyColumns {
		conds = append(conds, fmt.Sprintf("T.%s = S.%s", msIdent(col), msIdent(col)))
	}
	return strings.Join(conds, " AND ")
}

func prefixed(alias string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + msIdent(c)
	}
	return strings.Join(out, ", ")
}

// msIdent safely quotes a SQL Server identifier using [brackets], escaping ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// msFQN quotes a possibly schema-qualified name like "dbo.traffic_violations"
// to "[dbo].[traffic_violations]".
func msFQN(name string) string { return gddl.QuoteFQN(name, msIdent) }

// mapIdent maps a list of column names to their bracket-quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = msIdent(c)
	}
	return out
}
