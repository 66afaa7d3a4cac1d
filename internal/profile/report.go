package profile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// CSVHeader is the header row written by WriteCSV.
var CSVHeader = []string{
	"column", "value", "count", "null_percentage",
	"unique_values", "duplicate_values", "possible_boolean",
}

// WriteCSV writes one row per (column, top value) pair. Columns without any
// non-null value contribute no rows.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("profile csv header: %w", err)
	}
	for _, f := range r.Fields {
		pct := strconv.FormatFloat(f.NullPercentage, 'f', -1, 64)
		uniq := strconv.FormatInt(f.UniqueValues, 10)
		dups := strconv.FormatInt(f.DuplicateValues, 10)
		boolean := titleBool(f.PossibleBoolean)
		for _, vc := range f.TopValues {
			rec := []string{f.Column, vc.Value, strconv.FormatInt(vc.Count, 10), pct, uniq, dups, boolean}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("profile csv %s: %w", f.Column, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// titleBool renders booleans as True/False, matching existing profile summaries.
func titleBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// Print writes a human-readable block per column.
func Print(w io.Writer, r Report) {
	sep := strings.Repeat("=", 60)
	for _, f := range r.Fields {
		fmt.Fprintln(w, sep)
		fmt.Fprintf(w, "Column: %s\n", f.Column)
		fmt.Fprintf(w, "Total rows      : %s\n", humanize.Comma(f.TotalRows))
		fmt.Fprintf(w, "Null count      : %s (%.2f%%)\n", humanize.Comma(f.NullCount), f.NullPercentage)
		fmt.Fprintf(w, "Unique values   : %s\n", humanize.Comma(f.UniqueValues))
		fmt.Fprintf(w, "Duplicate values: %s\n", humanize.Comma(f.DuplicateValues))
		fmt.Fprintf(w, "Possible bool   : %t\n", f.PossibleBoolean)
		fmt.Fprintf(w, "Sample values   : %s\n", strings.Join(f.SampleValues, ", "))
		fmt.Fprintln(w, "Top values:")
		for _, vc := range f.TopValues {
			fmt.Fprintf(w, "  %s -> %s\n", vc.Value, humanize.Comma(vc.Count))
		}
		fmt.Fprintln(w)
	}
}
