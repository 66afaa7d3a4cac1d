// Package archive writes cleaned traffic-stop chunks to a directory of
// Snappy-compressed Parquet part files.
//
// Each WriteChunk produces one new part named part-NNNNNN-<run>.parquet.
// Parts are written to a temporary name and renamed into place, so a reader
// never sees a partial file and earlier parts are never rewritten. A later
// run on the same directory continues the numbering.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"trafficetl/internal/schema"
)

// parallelism is the parquet-go marshal/unmarshal worker count.
const parallelism = 4

var partName = regexp.MustCompile(`^part-(\d{6,})-[0-9a-f-]+\.parquet$`)

// ArchivalWriteFailure reports a part that could not be written. The
// dataset is left without that part; earlier parts are intact.
type ArchivalWriteFailure struct {
	Part int
	Path string
	Err  error
}

func (e *ArchivalWriteFailure) Error() string {
	return fmt.Sprintf("archive part %d (%s): %v", e.Part, e.Path, e.Err)
}

func (e *ArchivalWriteFailure) Unwrap() error { return e.Err }

// Writer appends part files to a directory. It is safe for concurrent use,
// though callers normally write chunks in order from one goroutine.
type Writer struct {
	dir   string
	runID string

	mu   sync.Mutex
	next int
}

// Open prepares dir for appending, creating it if needed. Numbering resumes
// after the highest existing part.
func Open(dir string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive: dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: mkdir %s: %w", dir, err)
	}
	existing, err := listParts(dir)
	if err != nil {
		return nil, err
	}
	next := 0
	if n := len(existing); n > 0 {
		next = existing[n-1].num + 1
	}
	return &Writer{dir: dir, runID: uuid.NewString(), next: next}, nil
}

// Dir returns the dataset directory.
func (w *Writer) Dir() string { return w.dir }

// WriteChunk writes recs as one new part and returns its path. An empty
// chunk writes nothing and returns "".
func (w *Writer) WriteChunk(ctx context.Context, recs []schema.Stop) (string, error) {
	if len(recs) == 0 {
		return "", nil
	}
	w.mu.Lock()
	part := w.next
	w.next++
	w.mu.Unlock()

	final := filepath.Join(w.dir, fmt.Sprintf("part-%06d-%s.parquet", part, w.runID))
	fail := func(err error) (string, error) {
		return "", &ArchivalWriteFailure{Part: part, Path: final, Err: err}
	}

	tmp := final + ".tmp"
	if err := writePart(ctx, tmp, recs); err != nil {
		_ = os.Remove(tmp)
		return fail(err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fail(fmt.Errorf("rename: %w", err))
	}
	return final, nil
}

func writePart(ctx context.Context, path string, recs []schema.Stop) (err error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close: %w", cerr)
		}
	}()

	pw, err := writer.NewParquetWriter(fw, new(row), parallelism)
	if err != nil {
		return fmt.Errorf("init writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range recs {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				_ = pw.WriteStop()
				return err
			}
		}
		if err := pw.Write(toRow(&recs[i])); err != nil {
			_ = pw.WriteStop()
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	return nil
}

type partFile struct {
	num  int
	path string
}

// listParts returns complete part files sorted by part number, then name.
func listParts(dir string) ([]partFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("archive: read dir %s: %w", dir, err)
	}
	var out []partFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := partName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, partFile{num: n, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].num != out[j].num {
			return out[i].num < out[j].num
		}
		return out[i].path < out[j].path
	})
	return out, nil
}

// ReadAll reads every part in write order.
func ReadAll(dir string) ([]schema.Stop, error) {
	parts, err := listParts(dir)
	if err != nil {
		return nil, err
	}
	var out []schema.Stop
	for _, p := range parts {
		recs, err := readPart(p.path)
		if err != nil {
			return nil, fmt.Errorf("archive: read %s: %w", filepath.Base(p.path), err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

func readPart(path string) ([]schema.Stop, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(row), parallelism)
	if err != nil {
		return nil, err
	}
	defer pr.ReadStop()

	rows := make([]row, int(pr.GetNumRows()))
	if err := pr.Read(&rows); err != nil {
		return nil, err
	}
	out := make([]schema.Stop, len(rows))
	for i := range rows {
		out[i] = rows[i].stop()
	}
	return out, nil
}
