package ddl

import (
	"context"
	"errors"
	"testing"

	"trafficetl/internal/config"
	gddl "trafficetl/internal/ddl"
	"trafficetl/internal/storage"
)

// fakeRepository records Exec calls.
type fakeRepository struct {
	storage.Repository
	execCalls int
	lastSQL   string
	err       error
}

func (f *fakeRepository) Exec(ctx context.Context, sql string) error {
	f.execCalls++
	f.lastSQL = sql
	return f.err
}

// TestMapType verifies the SQL Server type mapping, including key text
// columns.
func TestMapType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind string
		key  bool
		want string
	}{
		{name: "text", kind: "text", want: "NVARCHAR(MAX)"},
		{name: "text key", kind: "text", key: true, want: "NVARCHAR(255)"},
		{name: "bool", kind: "bool", want: "BIT"},
		{name: "float", kind: "float", want: "FLOAT"},
		{name: "timestamp", kind: "timestamp", want: "DATETIME2"},
		{name: "empty", kind: "", want: "NVARCHAR(MAX)"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MapType(tt.kind, tt.key); got != tt.want {
				t.Fatalf("MapType(%q, %v) = %q, want %q", tt.kind, tt.key, got, tt.want)
			}
		})
	}
}

// TestEnsureTableExecutesGuardedCreate renders the OBJECT_ID guard and runs it.
func TestEnsureTableExecutesGuardedCreate(t *testing.T) {
	t.Parallel()

	var p config.Pipeline
	p.Storage.DB.Table = "dbo.traffic_violations"
	p.Storage.DB.Columns = []string{"seq_id", "charge", "work_zone", "longitude"}

	td, err := FromPipeline(p)
	if err != nil {
		t.Fatalf("FromPipeline() error = %v", err)
	}
	var repo fakeRepository
	if err := EnsureTable(context.Background(), &repo, td); err != nil {
		t.Fatalf("EnsureTable() error = %v", err)
	}

	want := "IF OBJECT_ID(N'[dbo].[traffic_violations]', N'U') IS NULL\n" +
		"BEGIN\n" +
		"  CREATE TABLE [dbo].[traffic_violations] (\n" +
		"    [seq_id] NVARCHAR(255) NOT NULL,\n" +
		"    [charge] NVARCHAR(255) NOT NULL,\n" +
		"    [work_zone] BIT NOT NULL,\n" +
		"    [longitude] FLOAT,\n" +
		"    PRIMARY KEY ([seq_id], [charge])\n" +
		"  );\n" +
		"END;"
	if repo.execCalls != 1 || repo.lastSQL != want {
		t.Fatalf("exec calls=%d sql=\n%s\nwant\n%s", repo.execCalls, repo.lastSQL, want)
	}
}

// TestEnsureTablePropagatesErrors covers build and Exec failures.
func TestEnsureTablePropagatesErrors(t *testing.T) {
	t.Parallel()

	var repo fakeRepository
	if err := EnsureTable(context.Background(), &repo, gddl.TableDef{FQN: "dbo.t"}); err == nil || repo.execCalls != 0 {
		t.Fatalf("build error: err=%v execCalls=%d", err, repo.execCalls)
	}

	boom := errors.New("CREATE TABLE permission denied")
	failing := fakeRepository{err: boom}
	def := gddl.TableDef{FQN: "dbo.t", Columns: []gddl.ColumnDef{{Name: "seq_id", SQLType: "NVARCHAR(255)", PrimaryKey: true}}}
	if err := EnsureTable(context.Background(), &failing, def); !errors.Is(err, boom) {
		t.Fatalf("EnsureTable() error = %v, want %v", err, boom)
	}
}

// TestFromPipelineRejectsKeyOutsideColumns requires keys to be stored.
func TestFromPipelineRejectsKeyOutsideColumns(t *testing.T) {
	t.Parallel()

	var p config.Pipeline
	p.Storage.DB.Table = "dbo.t"
	p.Storage.DB.Columns = []string{"seq_id", "make"}
	if _, err := FromPipeline(p); err == nil {
		t.Fatal("FromPipeline() error = nil, want key column error")
	}
}
