package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var testColumns = []string{"seq_id", "charge", "make"}

func testLoader(repo Repository) *Loader {
	return &Loader{
		Columns:    testColumns,
		KeyColumns: []string{"seq_id", "charge"},
		BatchSize:  2,
		Repo:       repo,
		NewBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
		},
	}
}

func rowsOf(keys ...string) [][]any {
	out := make([][]any, 0, len(keys)/2)
	for i := 0; i+1 < len(keys); i += 2 {
		out = append(out, []any{keys[i], keys[i+1], "FORD"})
	}
	return out
}

// TestLoadChunk_IdempotentReload loads the same chunk twice; the second pass
// inserts nothing and reports every row as ignored.
func TestLoadChunk_IdempotentReload(t *testing.T) {
	t.Parallel()

	store := newMemStore(0, 1)
	l := testLoader(&fakeRepo{store: store})
	ctx := context.Background()

	first, err := l.LoadChunk(ctx, 0, nil, rowsOf("a", "c1", "b", "c1", "a", "c2"))
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if first != (LoadResult{Attempted: 3, Inserted: 3}) {
		t.Fatalf("first=%+v", first)
	}

	second, err := l.LoadChunk(ctx, 0, nil, rowsOf("a", "c1", "b", "c1", "a", "c2"))
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if second != (LoadResult{Attempted: 3, Inserted: 0, Ignored: 3}) {
		t.Fatalf("second=%+v", second)
	}
	if store.len() != 3 {
		t.Fatalf("store rows=%d, want 3", store.len())
	}
}

// TestLoadChunk_IntraChunkDuplicatesAndNilKey collapses repeated keys inside
// one chunk (first wins) and stores a nil charge as "".
func TestLoadChunk_IntraChunkDuplicatesAndNilKey(t *testing.T) {
	t.Parallel()

	store := newMemStore(0, 1)
	l := testLoader(&fakeRepo{store: store})

	rows := [][]any{
		{"a", nil, "FORD"},
		{"a", "", "TOYOTA"},
		{"a", "c1", "HONDA"},
		{"a", "c1", "KIA"},
	}
	res, err := l.LoadChunk(context.Background(), 3, nil, rows)
	if err != nil {
		t.Fatalf("LoadChunk: %v", err)
	}
	if res != (LoadResult{Attempted: 4, Inserted: 2, Ignored: 2}) {
		t.Fatalf("res=%+v", res)
	}
	got := store.rows[store.key([]any{"a", ""})]
	if got == nil || got[2] != "FORD" {
		t.Fatalf("first occurrence should win; got %v", got)
	}
	if rows[0][1] != "" {
		t.Fatalf("nil key not replaced: %v", rows[0])
	}
}

// TestLoadChunk_RollbackOnSubBatchFailure fails the second sub-batch and
// checks nothing from the chunk is committed and the failure names the chunk,
// its source lines and the lines of the failing sub-batch. A repeated key is
// collapsed first, so the sub-batch lines skip it.
func TestLoadChunk_RollbackOnSubBatchFailure(t *testing.T) {
	t.Parallel()

	store := newMemStore(0, 1)
	l := testLoader(&fakeRepo{store: store, failOn: 2})

	rows := rowsOf("a", "1", "b", "1", "a", "1", "c", "1", "d", "1")
	lines := []int{351, 352, 354, 355, 358}
	_, err := l.LoadChunk(context.Background(), 7, lines, rows)
	var lf *LoadFailure
	if !errors.As(err, &lf) {
		t.Fatalf("err=%v, want *LoadFailure", err)
	}
	if lf.Chunk != 7 || lf.FromRow != 351 || lf.ToRow != 358 {
		t.Fatalf("chunk range: %+v", lf)
	}
	if lf.SubFrom != 355 || lf.SubTo != 358 {
		t.Fatalf("sub-batch range=%d-%d, want 355-358", lf.SubFrom, lf.SubTo)
	}
	if lf.Unwrap() == nil || lf.Unwrap().Error() == "" {
		t.Fatalf("missing cause: %+v", lf)
	}
	if store.len() != 0 {
		t.Fatalf("store rows=%d after rollback, want 0", store.len())
	}
}

// TestLoadChunk_FailureWithoutLines numbers rows by position when no source
// lines are given.
func TestLoadChunk_FailureWithoutLines(t *testing.T) {
	t.Parallel()

	l := testLoader(&fakeRepo{store: newMemStore(0, 1), failOn: 1})
	_, err := l.LoadChunk(context.Background(), 0, nil, rowsOf("a", "1", "b", "1", "c", "1"))
	var lf *LoadFailure
	if !errors.As(err, &lf) {
		t.Fatalf("err=%v, want *LoadFailure", err)
	}
	if lf.FromRow != 1 || lf.ToRow != 3 || lf.SubFrom != 1 || lf.SubTo != 2 {
		t.Fatalf("failure=%+v", lf)
	}
}

// TestLoadChunk_ReconnectsAfterFailedPing replaces a dead connection through
// Connect, retrying until it succeeds.
func TestLoadChunk_ReconnectsAfterFailedPing(t *testing.T) {
	t.Parallel()

	store := newMemStore(0, 1)
	dead := &fakeRepo{store: store, pingErr: errors.New("broken pipe")}
	l := testLoader(dead)

	attempts := 0
	l.Connect = func(ctx context.Context) (Repository, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection refused")
		}
		return &fakeRepo{store: store}, nil
	}

	res, err := l.LoadChunk(context.Background(), 0, nil, rowsOf("a", "c"))
	if err != nil {
		t.Fatalf("LoadChunk: %v", err)
	}
	if res.Inserted != 1 {
		t.Fatalf("inserted=%d, want 1", res.Inserted)
	}
	if !dead.closed {
		t.Fatal("dead repository was not closed")
	}
	if attempts != 3 {
		t.Fatalf("connect attempts=%d, want 3", attempts)
	}
	if l.Repo == Repository(dead) {
		t.Fatal("loader still holds the dead repository")
	}
}

// TestLoadChunk_ReconnectGivesUp returns a LoadFailure when the backoff policy
// is exhausted.
func TestLoadChunk_ReconnectGivesUp(t *testing.T) {
	t.Parallel()

	l := testLoader(nil)
	l.Connect = func(ctx context.Context) (Repository, error) {
		return nil, errors.New("connection refused")
	}
	_, err := l.LoadChunk(context.Background(), 1, nil, rowsOf("a", "c"))
	var lf *LoadFailure
	if !errors.As(err, &lf) || lf.Chunk != 1 {
		t.Fatalf("err=%v, want *LoadFailure for chunk 1", err)
	}
}

// TestLoadChunk_UnknownKeyColumn surfaces a misconfigured key as a failure.
func TestLoadChunk_UnknownKeyColumn(t *testing.T) {
	t.Parallel()

	l := testLoader(&fakeRepo{store: newMemStore(0)})
	l.KeyColumns = []string{"zip"}
	if _, err := l.LoadChunk(context.Background(), 0, nil, rowsOf("a", "c")); err == nil {
		t.Fatal("expected error for unknown key column")
	}
}

// TestLoadChunk_Empty is a no-op that never touches the connection.
func TestLoadChunk_Empty(t *testing.T) {
	t.Parallel()

	l := testLoader(nil)
	res, err := l.LoadChunk(context.Background(), 0, nil, nil)
	if err != nil || res != (LoadResult{}) {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}
