// Package csv implements the chunk reader: it turns a delimited text source
// into a lazy, finite sequence of fixed-size row batches without ever holding
// more than one chunk of the input in memory.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/dustin/go-humanize"

	"trafficetl/internal/config"
	"trafficetl/internal/datasource"
)

// logEveryN controls the reader progress heartbeat.
const logEveryN = 50_000

// Chunk is one bounded batch of raw rows. Rows are aligned with Header and
// padded with "" when a source row is shorter than the header.
type Chunk struct {
	Index     int        // 0-based chunk number
	FirstRow  int        // 0-based data-row offset of Rows[0] across the source
	Header    []string   // normalized column names, shared by all chunks
	Rows      [][]string // raw cell text
	Lines     []int      // 1-based source line of each row
	HeaderIdx map[string]int
}

// Len returns the number of rows in the chunk.
func (c *Chunk) Len() int { return len(c.Rows) }

// FirstLine returns the source line of the first row, or 0 for an empty chunk.
func (c *Chunk) FirstLine() int {
	if len(c.Lines) == 0 {
		return 0
	}
	return c.Lines[0]
}

// Value returns the cell of row i under the named column, or "" when the
// column does not exist.
func (c *Chunk) Value(i int, column string) string {
	j, ok := c.HeaderIdx[column]
	if !ok {
		return ""
	}
	return c.Rows[i][j]
}

// ChunkReader yields chunks from a CSV stream. It is not safe for concurrent
// use and cannot be restarted.
type ChunkReader struct {
	cr        *csv.Reader
	closer    io.Closer
	size      int
	header    []string
	headerIdx map[string]int

	index int
	rows  int
	done  bool
}

// Open opens src and prepares a ChunkReader over it.
//
// Errors:
//   - *SourceNotFoundError when src cannot be opened;
//   - *MalformedSourceError when the header cannot be read or is unusable.
//
// Options (all optional):
//   - comma (string; first rune used; default ',')
//   - lazy_quotes (bool; default false)
//   - header_map (object; raw or normalized header -> canonical name)
func Open(ctx context.Context, src datasource.Source, size int, opt config.Options) (*ChunkReader, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &SourceNotFoundError{Source: src.Name(), Err: err}
	}
	r, err := NewChunkReader(rc, size, opt)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	r.closer = rc
	return r, nil
}

// NewChunkReader reads the header from r and returns a reader producing
// chunks of at most size rows. A non-positive size is an error.
func NewChunkReader(r io.Reader, size int, opt config.Options) (*ChunkReader, error) {
	if size <= 0 {
		return nil, fmt.Errorf("csv: chunk size must be positive, got %d", size)
	}

	cr := csv.NewReader(r)
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.FieldsPerRecord = -1 // width is checked against the header below

	raw, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &MalformedSourceError{Line: 1, Reason: "empty input, no header row"}
		}
		return nil, &MalformedSourceError{Line: 1, Reason: "read header", Err: err}
	}
	header, bad := normalizeHeaders(raw, opt.StringMap("header_map"))
	if bad >= 0 {
		return nil, &MalformedSourceError{
			Line:   1,
			Reason: fmt.Sprintf("header column %d (%q) is empty or duplicated", bad+1, raw[bad]),
		}
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}

	return &ChunkReader{cr: cr, size: size, header: header, headerIdx: idx}, nil
}

// Header returns the normalized header.
func (r *ChunkReader) Header() []string { return r.header }

// Next returns the next chunk, or io.EOF once the input is exhausted. After
// any error the reader is finished.
func (r *ChunkReader) Next(ctx context.Context) (*Chunk, error) {
	if r.done {
		return nil, io.EOF
	}

	ch := &Chunk{
		Index:     r.index,
		FirstRow:  r.rows,
		Header:    r.header,
		HeaderIdx: r.headerIdx,
		Rows:      make([][]string, 0, min(r.size, 4096)),
		Lines:     make([]int, 0, min(r.size, 4096)),
	}

	for len(ch.Rows) < r.size {
		if err := ctx.Err(); err != nil {
			r.done = true
			return nil, err
		}

		rec, err := r.cr.Read()
		if errors.Is(err, io.EOF) {
			r.done = true
			break
		}
		if err != nil {
			r.done = true
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			return nil, &MalformedSourceError{Line: line, Reason: "csv read", Err: err}
		}
		line, _ := r.cr.FieldPos(0)
		if len(rec) > len(r.header) {
			r.done = true
			return nil, &MalformedSourceError{
				Line:   line,
				Reason: fmt.Sprintf("row has %d fields, header has %d", len(rec), len(r.header)),
			}
		}
		for len(rec) < len(r.header) {
			rec = append(rec, "")
		}

		ch.Rows = append(ch.Rows, rec)
		ch.Lines = append(ch.Lines, line)
		r.rows++
		if r.rows%logEveryN == 0 {
			log.Printf("reader: line=%d emitted=%s", line, humanize.Comma(int64(r.rows)))
		}
	}

	if len(ch.Rows) == 0 {
		return nil, io.EOF
	}
	r.index++
	return ch, nil
}

// Rows returns the number of data rows emitted so far.
func (r *ChunkReader) Rows() int { return r.rows }

// Close releases the underlying source when the reader was built by Open.
func (r *ChunkReader) Close() error {
	r.done = true
	if r.closer == nil {
		return nil
	}
	c := r.closer
	r.closer = nil
	return c.Close()
}
