package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleCSV = "SeqID;Date Of Stop;Time Of Stop;Latitude;Longitude;Accident;Gender;Charge\n" +
	"a1;09/24/2013;17:11:00;38.98;-77.10;No;M;21-801.1\n" +
	"a2;2020-05-01;08.15.00;;;Yes;F;13-401(b)\n" +
	"a3;01/02/2019;23:59:59;39.1;-77.2;No;;21-201\n"

// TestDetectDelimiter picks the dominant separator of the header line.
func TestDetectDelimiter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want rune
	}{
		{"comma", "a,b,c\n1;2;3;4;5\n", ','},
		{"semicolon", "a;b;c\n", ';'},
		{"tab", "a\tb\tc", '\t'},
		{"pipe", "a|b|c,d\n", '|'},
		{"single column", "seqid\n", ','},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DetectDelimiter([]byte(tt.in)); got != tt.want {
				t.Fatalf("DetectDelimiter(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestInferType requires every value to fit the narrower type.
func TestInferType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []string
		want string
	}{
		{nil, "text"},
		{[]string{"Yes", "No", "no"}, "bool"},
		{[]string{"17:11:00", "08.15.00"}, "time"},
		{[]string{"38.98", "-77.1", "0"}, "float"},
		{[]string{"09/24/2013", "2020-05-01"}, "date"},
		{[]string{"FORD", "38.1"}, "text"},
	}
	for _, tt := range tests {
		if got := inferType(tt.in); got != tt.want {
			t.Errorf("inferType(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestProbe_LocalFile resolves the header of a semicolon file and reports
// every canonical column it cannot feed.
func TestProbe_LocalFile(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "Traffic_Violations.csv")
	if err := os.WriteFile(p, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Probe(context.Background(), Options{Source: p, Backend: "sqlite"})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if res.Delimiter != ";" || res.Rows != 3 {
		t.Fatalf("delimiter=%q rows=%d", res.Delimiter, res.Rows)
	}

	wantCols := []Column{
		{Source: "SeqID", Normalized: "seqid", Type: "text"},
		{Source: "Date Of Stop", Normalized: "date_of_stop", Type: "date"},
		{Source: "Time Of Stop", Normalized: "time_of_stop", Type: "time"},
		{Source: "Latitude", Normalized: "latitude", Type: "float", Empty: 1},
		{Source: "Longitude", Normalized: "longitude", Type: "float", Empty: 1},
		{Source: "Accident", Normalized: "accident", Type: "bool"},
		{Source: "Gender", Normalized: "gender", Type: "text", Empty: 1},
		{Source: "Charge", Normalized: "charge", Type: "text"},
	}
	if diff := cmp.Diff(wantCols, res.Columns); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}

	for _, resolved := range []string{"seq_id", "stop_datetime", "latitude", "accident", "gender", "charge"} {
		for _, u := range res.Unresolved {
			if u == resolved {
				t.Fatalf("%s reported unresolved: %v", resolved, res.Unresolved)
			}
		}
	}
	if !contains(res.Unresolved, "make") || !contains(res.Unresolved, "dl_state") {
		t.Fatalf("unresolved = %v, want make and dl_state", res.Unresolved)
	}

	pl := res.Pipeline
	if pl.Job != "traffic_violations" || pl.Source.File.Path != p || pl.Storage.Kind != "sqlite" {
		t.Fatalf("pipeline = %+v", pl)
	}
	if got := pl.Parser.Options.String("comma", ""); got != ";" {
		t.Fatalf("comma = %q", got)
	}
}

// TestProbe_HTTPRange sends a Range header and drops the row cut by the
// sample boundary.
func TestProbe_HTTPRange(t *testing.T) {
	t.Parallel()

	ranges := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ranges <- r.Header.Get("Range")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(strings.ReplaceAll(sampleCSV, ";", ",")))
	}))
	defer srv.Close()

	cut := strings.Index(sampleCSV, "a3;") + 5
	res, err := Probe(context.Background(), Options{Source: srv.URL + "/stops.csv", MaxBytes: cut})
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if got := <-ranges; got != "bytes=0-"+strconv.Itoa(cut-1) {
		t.Fatalf("Range = %q", got)
	}
	if res.Rows != 2 || res.Delimiter != "," {
		t.Fatalf("rows=%d delimiter=%q, want 2 and ','", res.Rows, res.Delimiter)
	}
	if res.Pipeline.Source.File.Path != "stops.csv" || res.Pipeline.Storage.Kind != "mysql" {
		t.Fatalf("pipeline source=%q kind=%q", res.Pipeline.Source.File.Path, res.Pipeline.Storage.Kind)
	}
}

// TestProbe_Errors covers an unreadable source and a header with no seq_id.
func TestProbe_Errors(t *testing.T) {
	t.Parallel()

	if _, err := Probe(context.Background(), Options{Source: filepath.Join(t.TempDir(), "missing.csv")}); err == nil {
		t.Fatal("missing file: error = nil")
	}

	p := filepath.Join(t.TempDir(), "x.csv")
	if err := os.WriteFile(p, []byte("Agency,Make\nMCP,FORD\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Probe(context.Background(), Options{Source: p})
	if err == nil || !strings.Contains(err.Error(), "seq_id") {
		t.Fatalf("err = %v, want missing seq_id", err)
	}
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
