package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"trafficetl/internal/config"
	csvparser "trafficetl/internal/parser/csv"
	"trafficetl/internal/profile"
)

// TestResolve layers flags over config over defaults.
func TestResolve(t *testing.T) {
	t.Setenv("ETL_PROFILE_CHUNK_SIZE", "")

	var p config.Pipeline
	p.Source.File.Path = "from-config.csv"
	p.Profile.TopN = 5
	p.Profile.Columns = []string{"gender"}

	got := resolve(p, "", "out.csv", 0, 1000)
	want := options{
		input:     "from-config.csv",
		output:    "out.csv",
		chunkSize: 1000,
		topN:      5,
		columns:   []string{"gender"},
		parser:    config.Options{},
		job:       "trafficetl",
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(options{})); diff != "" {
		t.Fatalf("resolve (-want +got):\n%s", diff)
	}

	got = resolve(config.Pipeline{}, "flag.csv", "", 0, 0)
	if got.input != "flag.csv" || got.output != config.DefaultProfileOutput ||
		got.chunkSize != config.DefaultProfileChunkSize || got.topN != config.DefaultTopN {
		t.Fatalf("defaults = %+v", got)
	}
}

// TestRunProfile writes the summary CSV and the text report for a small file
// split across several chunks.
func TestRunProfile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "stops.csv")
	body := "Gender,Accident,Color\nM,No,RED\nF,Yes,\nM,No,RED\nM,,BLUE\n"
	if err := os.WriteFile(in, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "summary.csv")

	var report bytes.Buffer
	err := runProfile(context.Background(), options{
		input:     in,
		output:    out,
		chunkSize: 3,
		topN:      20,
		columns:   []string{"gender", "accident"},
		parser:    config.Options{},
		job:       "test",
	}, &report)
	if err != nil {
		t.Fatalf("runProfile: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	want := [][]string{
		profile.CSVHeader,
		{"gender", "M", "3", "0", "2", "2", "False"},
		{"gender", "F", "1", "0", "2", "2", "False"},
		{"accident", "No", "2", "25", "2", "2", "True"},
		{"accident", "Yes", "1", "25", "2", "2", "True"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("summary (-want +got):\n%s", diff)
	}
	if !strings.Contains(report.String(), "Column: gender") {
		t.Fatalf("report missing gender block:\n%s", report.String())
	}
}

// TestRunProfile_MissingInput returns SourceNotFoundError.
func TestRunProfile_MissingInput(t *testing.T) {
	t.Parallel()

	err := runProfile(context.Background(), options{
		input:     filepath.Join(t.TempDir(), "nope.csv"),
		output:    filepath.Join(t.TempDir(), "out.csv"),
		chunkSize: 10,
		parser:    config.Options{},
	}, nil)
	var nf *csvparser.SourceNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want *SourceNotFoundError", err)
	}
}
