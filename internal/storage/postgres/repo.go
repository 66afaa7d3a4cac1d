// Package postgres implements a Postgres repository using pgx v5. Each
// sub-batch is COPY'd into a transaction-scoped temporary table and then
// moved into the target with INSERT ... ON CONFLICT DO NOTHING.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	gddl "trafficetl/internal/ddl"
	"trafficetl/internal/storage"
)

// stageTable is the per-transaction staging table. It is dropped on commit
// and vanishes with a rollback.
const stageTable = "etl_stage"

// Config holds Postgres repository configuration.
type Config struct {
	DSN        string   // connection string for pgxpool
	Table      string   // fully qualified target table name, e.g., "public.traffic_violations"
	Columns    []string // ordered columns for COPY and INSERT
	KeyColumns []string // conflict target columns
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("postgres: table must not be empty")
	}
	if len(cfg.Columns) == 0 || len(cfg.KeyColumns) == 0 {
		return nil, nil, fmt.Errorf("postgres: columns and key columns are required")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", pgDetail(err))
	}
	close := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, close, nil
}

// pgDetail folds the server's detail and SQLSTATE into the message.
func pgDetail(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s: %s)", err, pgErr.SQLState(), pgErr.Detail)
	}
	return err
}

// Begin starts a transaction for one chunk.
func (r *Repository) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin tx: %w", pgDetail(err))
	}
	return &txn{tx: tx, cfg: r.cfg}, nil
}

// Ping checks the pool.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", pgDetail(err))
	}
	return nil
}

// Describe reads the table's columns from information_schema. An unqualified
// table resolves against current_schema().
func (r *Repository) Describe(ctx context.Context) ([]storage.ColumnInfo, error) {
	id := splitFQN(r.cfg.Table)
	schemaArg, table := "", id[len(id)-1]
	if len(id) > 1 {
		schemaArg = id[len(id)-2]
	}
	rows, err := r.pool.Query(ctx, `
SELECT column_name, data_type, is_nullable = 'YES'
FROM information_schema.columns
WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema()) AND table_name = $2
ORDER BY ordinal_position`, schemaArg, table)
	if err != nil {
		return nil, fmt.Errorf("postgres: describe: %w", pgDetail(err))
	}
	defer rows.Close()

	var out []storage.ColumnInfo
	for rows.Next() {
		var c storage.ColumnInfo
		if err := rows.Scan(&c.Name, &c.Type, &c.Nullable); err != nil {
			return nil, fmt.Errorf("postgres: describe scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type txn struct {
	tx     pgx.Tx
	cfg    Config
	staged bool
}

// stageSQL creates the staging table with the target's column types.
func stageSQL(cfg Config) string {
	return fmt.Sprintf("CREATE TEMP TABLE %s ON COMMIT DROP AS SELECT %s FROM %s WHERE false",
		pgIdent(stageTable), strings.Join(mapIdent(cfg.Columns), ", "), pgFQN(cfg.Table))
}

// mergeSQL moves staged rows into the target, skipping existing keys.
func mergeSQL(cfg Config) string {
	cols := strings.Join(mapIdent(cfg.Columns), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO NOTHING",
		pgFQN(cfg.Table), cols, cols, pgIdent(stageTable), strings.Join(mapIdent(cfg.KeyColumns), ", "))
}

// InsertIgnore copies rows into the stage, merges them into the target and
// empties the stage for the next sub-batch.
func (t *txn) InsertIgnore(ctx context.Context, rows [][]any) (int64, error) {
	if !t.staged {
		if _, err := t.tx.Exec(ctx, stageSQL(t.cfg)); err != nil {
			return 0, fmt.Errorf("postgres: create stage: %w", pgDetail(err))
		}
		t.staged = true
	}
	if _, err := t.tx.CopyFrom(ctx, pgx.Identifier{stageTable}, t.cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, fmt.Errorf("postgres: copy into stage: %w", pgDetail(err))
	}
	tag, err := t.tx.Exec(ctx, mergeSQL(t.cfg))
	if err != nil {
		return 0, fmt.Errorf("postgres: merge: %w", pgDetail(err))
	}
	if _, err := t.tx.Exec(ctx, "TRUNCATE "+pgIdent(stageTable)); err != nil {
		return 0, fmt.Errorf("postgres: truncate stage: %w", pgDetail(err))
	}
	return tag.RowsAffected(), nil
}

func (t *txn) Commit() error {
	if err := t.tx.Commit(context.Background()); err != nil {
		return fmt.Errorf("postgres: commit: %w", pgDetail(err))
	}
	return nil
}

func (t *txn) Rollback() error {
	return t.tx.Rollback(context.Background())
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.traffic_violations"
// to "public"."traffic_violations".
func pgFQN(name string) string { return gddl.QuoteFQN(name, pgIdent) }

// mapIdent maps a list of column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	if len(id) == 0 {
		id = append(id, fqn)
	}
	return id
}
