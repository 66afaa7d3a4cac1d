package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/zeebo/xxh3"
)

// DefaultBatchSize is the insert sub-batch size when Loader.BatchSize is 0.
const DefaultBatchSize = 5_000

// DefaultMaxElapsed bounds reconnect attempts when Loader.MaxElapsed is 0.
const DefaultMaxElapsed = 2 * time.Minute

// LoadResult summarizes one chunk. Ignored counts rows whose key was already
// present, in the store or earlier in the same chunk.
type LoadResult struct {
	Attempted int64
	Inserted  int64
	Ignored   int64
}

// LoadFailure reports a chunk whose transaction was rolled back.
//
// FromRow and ToRow are the source lines of the chunk's first and last
// record. SubFrom and SubTo narrow that to the sub-batch whose insert failed;
// failures outside any sub-batch (connect, begin, commit) span the chunk.
type LoadFailure struct {
	Chunk   int
	FromRow int
	ToRow   int
	SubFrom int
	SubTo   int
	Err     error
}

func (e *LoadFailure) Error() string {
	return fmt.Sprintf("load chunk %d (lines %d-%d, failing lines %d-%d): %v",
		e.Chunk, e.FromRow, e.ToRow, e.SubFrom, e.SubTo, e.Err)
}

func (e *LoadFailure) Unwrap() error { return e.Err }

// Loader writes canonical rows chunk by chunk. Each chunk is one transaction
// made of BatchSize-row InsertIgnore calls, so a chunk is either fully
// committed or not at all.
//
// A Loader is not safe for concurrent use; chunks must be loaded in order
// from one goroutine.
type Loader struct {
	Columns    []string // row layout passed to InsertIgnore
	KeyColumns []string // natural key, a subset of Columns
	BatchSize  int

	// Repo is the current connection. It may be nil, in which case Connect
	// is called before the first chunk.
	Repo Repository
	// Connect opens a fresh repository after the liveness probe fails.
	Connect func(ctx context.Context) (Repository, error)
	// NewBackOff returns the reconnect policy. Nil uses exponential backoff
	// bounded by MaxElapsed.
	NewBackOff func() backoff.BackOff
	MaxElapsed time.Duration

	keyIdx []int
}

func (l *Loader) batchSize() int {
	if l.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return l.BatchSize
}

func (l *Loader) backOff() backoff.BackOff {
	if l.NewBackOff != nil {
		return l.NewBackOff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxElapsedTime = l.MaxElapsed
	if b.MaxElapsedTime <= 0 {
		b.MaxElapsedTime = DefaultMaxElapsed
	}
	return b
}

// keyIndexes resolves KeyColumns to positions in Columns once.
func (l *Loader) keyIndexes() ([]int, error) {
	if l.keyIdx != nil {
		return l.keyIdx, nil
	}
	pos := make(map[string]int, len(l.Columns))
	for i, c := range l.Columns {
		pos[c] = i
	}
	idx := make([]int, 0, len(l.KeyColumns))
	for _, k := range l.KeyColumns {
		i, ok := pos[k]
		if !ok {
			return nil, fmt.Errorf("loader: key column %q not in columns", k)
		}
		idx = append(idx, i)
	}
	l.keyIdx = idx
	return idx, nil
}

// ensureLive pings the current repository and replaces it when the probe
// fails. Reconnects are retried with backoff until the policy gives up or ctx
// is done.
func (l *Loader) ensureLive(ctx context.Context) error {
	if l.Repo != nil {
		err := l.Repo.Ping(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("loader: liveness probe failed, reconnecting: %v", err)
		l.Repo.Close()
		l.Repo = nil
	}
	if l.Connect == nil {
		return fmt.Errorf("loader: no connection and no Connect func")
	}

	attempt := 0
	op := func() error {
		attempt++
		repo, err := l.Connect(ctx)
		if err != nil {
			return err
		}
		if err := repo.Ping(ctx); err != nil {
			repo.Close()
			return err
		}
		l.Repo = repo
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("loader: connect attempt=%d failed, retry in %s: %v", attempt, wait.Truncate(time.Millisecond), err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(l.backOff(), ctx), notify); err != nil {
		return fmt.Errorf("loader: reconnect: %w", err)
	}
	if attempt > 1 {
		log.Printf("loader: reconnected after %d attempts", attempt)
	}
	return nil
}

// dedupe fills nil key values with "" and drops rows whose key already
// appeared earlier in rows. The first occurrence wins. lines is filtered in
// step so it stays aligned with the returned rows.
func dedupe(rows [][]any, lines []int, keyIdx []int) ([][]any, []int) {
	if len(keyIdx) == 0 {
		return rows, lines
	}
	seen := make(map[xxh3.Uint128]struct{}, len(rows))
	out := rows[:0:0]
	outLines := make([]int, 0, len(lines))
	buf := make([]byte, 0, 64)
	for i, row := range rows {
		buf = buf[:0]
		for _, k := range keyIdx {
			if row[k] == nil {
				row[k] = ""
			}
			buf = fmt.Appendf(buf, "%v", row[k])
			buf = append(buf, 0x1f)
		}
		h := xxh3.Hash128(buf)
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, row)
		outLines = append(outLines, lines[i])
	}
	return out, outLines
}

// sourceLines returns lines when it is aligned with n rows, otherwise 1-based
// positions within the chunk.
func sourceLines(lines []int, n int) []int {
	if len(lines) == n {
		return lines
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// LoadChunk inserts rows (aligned to Columns) for one chunk. lines[i] is the
// source line of rows[i] and only feeds LoadFailure; when it is not aligned
// with rows, rows are numbered by position from 1.
//
// Key columns holding nil are stored as "". Rows repeating a key already seen
// in this chunk are not sent. Any error rolls back the whole chunk and is
// returned as *LoadFailure.
func (l *Loader) LoadChunk(ctx context.Context, chunkIndex int, lines []int, rows [][]any) (LoadResult, error) {
	res := LoadResult{Attempted: int64(len(rows))}
	if len(rows) == 0 {
		return res, nil
	}
	lines = sourceLines(lines, len(rows))
	fail := func(sub []int, err error) (LoadResult, error) {
		return LoadResult{Attempted: res.Attempted}, &LoadFailure{
			Chunk:   chunkIndex,
			FromRow: lines[0],
			ToRow:   lines[len(lines)-1],
			SubFrom: sub[0],
			SubTo:   sub[len(sub)-1],
			Err:     err,
		}
	}

	keyIdx, err := l.keyIndexes()
	if err != nil {
		return fail(lines, err)
	}
	if err := l.ensureLive(ctx); err != nil {
		return fail(lines, err)
	}

	unique, uniqueLines := dedupe(rows, lines, keyIdx)
	start := time.Now()

	tx, err := l.Repo.Begin(ctx)
	if err != nil {
		return fail(lines, fmt.Errorf("begin: %w", err))
	}
	bs := l.batchSize()
	for lo := 0; lo < len(unique); lo += bs {
		hi := lo + bs
		if hi > len(unique) {
			hi = len(unique)
		}
		n, err := tx.InsertIgnore(ctx, unique[lo:hi])
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("loader: chunk=%d rollback: %v", chunkIndex, rbErr)
			}
			return fail(uniqueLines[lo:hi], fmt.Errorf("sub-batch: %w", err))
		}
		res.Inserted += n
	}
	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return fail(lines, fmt.Errorf("commit: %w", err))
	}

	res.Ignored = res.Attempted - res.Inserted
	log.Printf("loader: chunk=%d rows=%d inserted=%d ignored=%d elapsed=%s",
		chunkIndex, res.Attempted, res.Inserted, res.Ignored, time.Since(start).Truncate(time.Millisecond))
	return res, nil
}

// Close releases the current connection.
func (l *Loader) Close() {
	if l.Repo != nil {
		l.Repo.Close()
		l.Repo = nil
	}
}
