package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
)

// memStore is an in-memory keyed table shared by fake repositories so that
// a reconnect sees previously committed rows.
type memStore struct {
	mu   sync.Mutex
	rows map[string][]any
	keys []int
}

func newMemStore(keyIdx ...int) *memStore {
	return &memStore{rows: map[string][]any{}, keys: keyIdx}
}

func (m *memStore) key(row []any) string {
	var sb strings.Builder
	for _, i := range m.keys {
		fmt.Fprintf(&sb, "%v\x1f", row[i])
	}
	return sb.String()
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// fakeRepo is a Repository over a memStore for tests.
type fakeRepo struct {
	store   *memStore
	pingErr error
	failOn  int // 1-based InsertIgnore call that fails; 0 never
	calls   int
	closed  bool
}

func (f *fakeRepo) Begin(ctx context.Context) (Tx, error) {
	return &fakeTx{repo: f, staged: map[string][]any{}}, nil
}
func (f *fakeRepo) Ping(ctx context.Context) error            { return f.pingErr }
func (f *fakeRepo) Exec(ctx context.Context, sql string) error { return nil }
func (f *fakeRepo) Describe(ctx context.Context) ([]ColumnInfo, error) {
	return []ColumnInfo{{Name: "seq_id", Type: "TEXT"}}, nil
}
func (f *fakeRepo) Close() { f.closed = true }

type fakeTx struct {
	repo   *fakeRepo
	staged map[string][]any
}

func (t *fakeTx) InsertIgnore(ctx context.Context, rows [][]any) (int64, error) {
	t.repo.calls++
	if t.repo.failOn > 0 && t.repo.calls == t.repo.failOn {
		return 0, errors.New("disk full")
	}
	st := t.repo.store
	st.mu.Lock()
	defer st.mu.Unlock()
	var n int64
	for _, r := range rows {
		k := st.key(r)
		if _, ok := st.rows[k]; ok {
			continue
		}
		if _, ok := t.staged[k]; ok {
			continue
		}
		t.staged[k] = r
		n++
	}
	return n, nil
}

func (t *fakeTx) Commit() error {
	st := t.repo.store
	st.mu.Lock()
	defer st.mu.Unlock()
	for k, r := range t.staged {
		st.rows[k] = r
	}
	t.staged = nil
	return nil
}

func (t *fakeTx) Rollback() error {
	t.staged = nil
	return nil
}

// TestRegisterAndNew_Success verifies that registering a backend enables New()
// to return the corresponding repository.
func TestRegisterAndNew_Success(t *testing.T) {
	t.Parallel()

	kind := "fake"
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		return &fakeRepo{}, nil
	})

	repo, err := New(context.Background(), Config{Kind: kind})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if repo == nil {
		t.Fatalf("New returned nil repo")
	}

	// Ensure ListKinds contains the registered kind.
	kinds := ListKinds()
	found := false
	for _, k := range kinds {
		if k == kind {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("registered kind %q not present in ListKinds: %v", kind, kinds)
	}
}

// TestNew_Unsupported verifies that unsupported kinds return a helpful error.
func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	if err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
	if got, want := err.Error(), "unsupported storage.kind=does-not-exist"; got != want {
		t.Fatalf("error = %q, want %q", got, want)
	}
}

// TestRegister_Override verifies that re-registering a kind overrides the
// previous factory (useful for tests and dynamic wiring).
func TestRegister_Override(t *testing.T) {
	t.Parallel()

	kind := "override"
	calls := 0

	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		calls++
		return &fakeRepo{}, nil
	})
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		calls += 10
		return &fakeRepo{}, nil
	})

	_, err := New(context.Background(), Config{Kind: kind})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if calls != 10 { // only the second factory should have been used
		t.Fatalf("factory call count = %d, want 10", calls)
	}
}

// TestListKinds_Snapshot performs a shallow sanity check that ListKinds returns
// a copy (mutations by caller do not affect internal registry).
func TestListKinds_Snapshot(t *testing.T) {
	t.Parallel()

	k := "snap"
	Register(k, func(ctx context.Context, cfg Config) (Repository, error) { return &fakeRepo{}, nil })

	a := ListKinds()
	if len(a) == 0 {
		t.Fatalf("ListKinds empty after registration")
	}
	// Mutate the returned slice; registry should be unaffected.
	a[0] = "mutated"

	b := ListKinds()
	if reflect.DeepEqual(a, b) {
		t.Fatalf("ListKinds returned same slice; want snapshot copy")
	}
}

// TestRegister_AllowsErrors shows factories can return errors that bubble up.
func TestRegister_AllowsErrors(t *testing.T) {
	t.Parallel()

	kind := "errkind"
	want := errors.New("boom")

	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		return nil, want
	})

	_, err := New(context.Background(), Config{Kind: kind})
	if !errors.Is(err, want) {
		t.Fatalf("want %v, got %v", want, err)
	}
}
