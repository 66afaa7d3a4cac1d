// Package skiplog writes dropped source rows to a CSV sidecar so they can be
// inspected or replayed after a run.
package skiplog

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Header is the first row of every skip log.
var Header = []string{"reason", "line_number", "field", "raw_line"}

// Entry is one dropped row.
type Entry struct {
	Reason string
	Line   int
	Field  string
	Raw    []string
}

// Writer appends entries to a CSV file. A nil *Writer discards everything,
// so callers need not check whether the sidecar is configured.
type Writer struct {
	mu    sync.Mutex
	f     *os.File
	bw    *bufio.Writer
	cw    *csv.Writer
	comma rune
	n     int
}

// Create truncates path and writes the header. raw_line cells are rejoined
// with comma.
func Create(path string, comma rune) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("skiplog: create %s: %w", path, err)
	}
	bw := bufio.NewWriterSize(f, 64<<10)
	cw := csv.NewWriter(bw)
	if err := cw.Write(Header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("skiplog: header: %w", err)
	}
	if comma == 0 {
		comma = ','
	}
	return &Writer{f: f, bw: bw, cw: cw, comma: comma}, nil
}

// Write appends one entry.
func (w *Writer) Write(e Entry) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.n++
	return w.cw.Write([]string{
		e.Reason,
		strconv.Itoa(e.Line),
		e.Field,
		strings.Join(e.Raw, string(w.comma)),
	})
}

// Count returns the number of entries written.
func (w *Writer) Count() int {
	if w == nil {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Close flushes buffered entries and closes the file.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("skiplog: flush: %w", err)
	}
	if err := w.bw.Flush(); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("skiplog: flush: %w", err)
	}
	return w.f.Close()
}
