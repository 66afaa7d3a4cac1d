// Package profile builds per-column value distributions over a chunked CSV
// source without holding more than one chunk of rows in memory.
//
// An Accumulator is folded over chunks and finalized once into a Report.
// Memory grows with the number of distinct values per column, not with row
// count. Free-text or identifier columns have one entry per row and should be
// left out through Options.Columns.
package profile

import (
	"context"
	"errors"
	"io"
	"math"
	"sort"
	"strings"

	"trafficetl/internal/parser/csv"
)

// DefaultTopN is used when Options.TopN is not positive.
const DefaultTopN = 20

// SampleSize is the number of leading top values copied into SampleValues.
const SampleSize = 5

// booleanTokens is the vocabulary for PossibleBoolean (compared lower-cased).
var booleanTokens = map[string]struct{}{
	"yes": {}, "no": {},
	"y": {}, "n": {},
	"true": {}, "false": {},
	"1": {}, "0": {},
}

// DefaultNullTokens are trimmed cell values that count as missing besides the
// empty string. Matching is case-sensitive, as in common CSV readers.
var DefaultNullTokens = []string{
	"NaN", "nan", "-NaN", "-nan", "NULL", "null", "None",
	"N/A", "n/a", "NA", "<NA>", "#N/A", "#NA",
}

// Options controls an Accumulator.
type Options struct {
	// TopN bounds TopValues per column.
	TopN int
	// Columns is an allow-list in report order. Empty profiles every column
	// of the source header. Listed columns missing from the source count as
	// entirely null.
	Columns []string
	// NullTokens extend DefaultNullTokens with further trimmed cell values
	// treated as missing.
	NullTokens []string
}

// ValueCount is one entry of a frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// FieldReport holds the finalized statistics for one column.
type FieldReport struct {
	Column          string       `json:"column"`
	TotalRows       int64        `json:"total_rows"`
	NullCount       int64        `json:"null_count"`
	NullPercentage  float64      `json:"null_percentage"`
	UniqueValues    int64        `json:"unique_values"`
	DuplicateValues int64        `json:"duplicate_values"`
	TopValues       []ValueCount `json:"top_values"`
	PossibleBoolean bool         `json:"possible_boolean"`
	SampleValues    []string     `json:"sample_values"`
}

// Report is the immutable result of a profiling run.
type Report struct {
	TotalRows int64         `json:"total_rows"`
	Fields    []FieldReport `json:"fields"`
}

// Field returns the report for column, if present.
func (r Report) Field(column string) (FieldReport, bool) {
	for _, f := range r.Fields {
		if f.Column == column {
			return f, true
		}
	}
	return FieldReport{}, false
}

// field is the running state of one column. values keeps first-seen order so
// that equal counts stay in encounter order after a stable sort.
type field struct {
	name   string
	nulls  int64
	index  map[string]int
	values []ValueCount
}

func (f *field) add(v string) {
	if i, ok := f.index[v]; ok {
		f.values[i].Count++
		return
	}
	f.index[v] = len(f.values)
	f.values = append(f.values, ValueCount{Value: v, Count: 1})
}

// Accumulator is the running profile. It is not safe for concurrent use;
// chunks must be observed from one goroutine.
type Accumulator struct {
	opt    Options
	total  int64
	fields []*field
	byName map[string]*field
	nulls  map[string]struct{}
}

// New returns an empty accumulator.
func New(opt Options) *Accumulator {
	if opt.TopN <= 0 {
		opt.TopN = DefaultTopN
	}
	a := &Accumulator{
		opt:    opt,
		byName: make(map[string]*field),
		nulls:  make(map[string]struct{}, len(DefaultNullTokens)+len(opt.NullTokens)),
	}
	for _, t := range DefaultNullTokens {
		a.nulls[t] = struct{}{}
	}
	for _, t := range opt.NullTokens {
		a.nulls[strings.TrimSpace(t)] = struct{}{}
	}
	for _, c := range opt.Columns {
		a.column(c)
	}
	return a
}

func (a *Accumulator) column(name string) *field {
	if f, ok := a.byName[name]; ok {
		return f
	}
	f := &field{name: name, index: make(map[string]int)}
	a.fields = append(a.fields, f)
	a.byName[name] = f
	return f
}

func (a *Accumulator) isNull(v string) bool {
	if v == "" {
		return true
	}
	_, ok := a.nulls[v]
	return ok
}

// Observe folds one chunk into the accumulator and returns it.
func (a *Accumulator) Observe(c *csv.Chunk) *Accumulator {
	if c == nil || len(c.Rows) == 0 {
		return a
	}
	n := int64(len(c.Rows))
	a.total += n

	type slot struct {
		f   *field
		pos int
	}
	var slots []slot
	if len(a.opt.Columns) > 0 {
		for _, name := range a.opt.Columns {
			pos, ok := c.HeaderIdx[name]
			if !ok {
				a.byName[name].nulls += n
				continue
			}
			slots = append(slots, slot{f: a.byName[name], pos: pos})
		}
	} else {
		for pos, name := range c.Header {
			slots = append(slots, slot{f: a.column(name), pos: pos})
		}
	}

	for _, row := range c.Rows {
		for _, s := range slots {
			v := ""
			if s.pos < len(row) {
				v = strings.TrimSpace(row[s.pos])
			}
			if a.isNull(v) {
				s.f.nulls++
				continue
			}
			s.f.add(v)
		}
	}
	return a
}

// Fold is the functional form of Observe.
func Fold(acc *Accumulator, c *csv.Chunk) *Accumulator {
	return acc.Observe(c)
}

// TotalRows returns the number of rows observed so far.
func (a *Accumulator) TotalRows() int64 { return a.total }

// Report finalizes the accumulator. It may be called more than once; the
// accumulator is not modified.
func (a *Accumulator) Report() Report {
	r := Report{TotalRows: a.total, Fields: make([]FieldReport, 0, len(a.fields))}
	for _, f := range a.fields {
		r.Fields = append(r.Fields, a.finalize(f))
	}
	return r
}

func (a *Accumulator) finalize(f *field) FieldReport {
	unique := int64(len(f.values))
	fr := FieldReport{
		Column:          f.name,
		TotalRows:       a.total,
		NullCount:       f.nulls,
		UniqueValues:    unique,
		DuplicateValues: a.total - unique,
		PossibleBoolean: possibleBoolean(f.values),
	}
	if a.total > 0 {
		fr.NullPercentage = round2(float64(f.nulls) / float64(a.total) * 100)
	}

	sorted := make([]ValueCount, len(f.values))
	copy(sorted, f.values)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Count > sorted[j].Count })
	if len(sorted) > a.opt.TopN {
		sorted = sorted[:a.opt.TopN]
	}
	fr.TopValues = sorted

	k := len(sorted)
	if k > SampleSize {
		k = SampleSize
	}
	fr.SampleValues = make([]string, k)
	for i := 0; i < k; i++ {
		fr.SampleValues[i] = sorted[i].Value
	}
	return fr
}

// possibleBoolean reports whether every distinct value is a boolean token.
// A column with no non-null values is vacuously boolean.
func possibleBoolean(values []ValueCount) bool {
	for _, vc := range values {
		if _, ok := booleanTokens[strings.ToLower(vc.Value)]; !ok {
			return false
		}
	}
	return true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Run drains r into a fresh accumulator and returns the finalized report.
// onChunk, when non-nil, is called after each chunk is folded.
func Run(ctx context.Context, r *csv.ChunkReader, opt Options, onChunk func(c *csv.Chunk, acc *Accumulator)) (Report, error) {
	acc := New(opt)
	for {
		c, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			return acc.Report(), nil
		}
		if err != nil {
			return Report{}, err
		}
		Fold(acc, c)
		if onChunk != nil {
			onChunk(c, acc)
		}
	}
}
