// Command csvprobe samples the head of a traffic-stop CSV and prints how its
// header resolves onto the canonical columns, or a starter pipeline config.
//
// Example:
//
//	csvprobe -source Traffic_Violations.csv -backend mysql -config-only > pipeline.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"trafficetl/internal/probe"
)

func main() {
	var (
		source     = flag.String("source", "Traffic_Violations.csv", "local path, file:// or http(s) URL to sample")
		maxBytes   = flag.Int("bytes", probe.DefaultMaxBytes, "number of bytes to sample from the start of the file")
		delimiter  = flag.String("delimiter", "", "field delimiter (single character); empty sniffs it")
		name       = flag.String("name", "", "job name for the generated config; empty uses the file name")
		backend    = flag.String("backend", "mysql", "storage kind for the generated config: mysql, postgres, mssql or sqlite")
		configOnly = flag.Bool("config-only", false, "print only the generated pipeline config JSON")
	)
	flag.Parse()

	var delim rune
	if *delimiter != "" {
		if r, _ := utf8.DecodeRuneInString(*delimiter); r != utf8.RuneError {
			delim = r
		}
	}

	res, err := probe.Probe(context.Background(), probe.Options{
		Source:    *source,
		MaxBytes:  *maxBytes,
		Delimiter: delim,
		Name:      *name,
		Backend:   *backend,
	})
	if err != nil {
		log.Fatalf("csvprobe: %v", err)
	}
	if err := render(os.Stdout, res, *configOnly); err != nil {
		log.Fatalf("csvprobe: %v", err)
	}
}

// render writes the pipeline JSON when configOnly is set, otherwise a column
// table followed by the unresolved canonical columns.
func render(w io.Writer, res probe.Result, configOnly bool) error {
	if configOnly {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Pipeline)
	}

	fmt.Fprintf(w, "delimiter=%q sampled_rows=%d\n\n", res.Delimiter, res.Rows)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tNORMALIZED\tTYPE\tEMPTY")
	for _, c := range res.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", c.Source, c.Normalized, c.Type, c.Empty)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(res.Unresolved) > 0 {
		fmt.Fprintf(w, "\nunresolved: %s\n", strings.Join(res.Unresolved, ", "))
	}
	return nil
}
