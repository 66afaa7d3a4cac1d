// Package main wires the ingest run end to end: chunk reader, parallel chunk
// transformation, ordered idempotent loading and Parquet archiving. It
// depends only on storage-agnostic interfaces and never imports database
// drivers directly.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"trafficetl/internal/archive"
	"trafficetl/internal/config"
	"trafficetl/internal/datasource"
	"trafficetl/internal/datasource/file"
	"trafficetl/internal/metrics"
	csvparser "trafficetl/internal/parser/csv"
	"trafficetl/internal/schema"
	"trafficetl/internal/skiplog"
	"trafficetl/internal/storage"
	"trafficetl/internal/transformer"
)

const (
	errAggLimit = 3
)

// counters holds run statistics. They are written by the ordered sink and
// may be read from progress logs at any time.
type counters struct {
	chunks          atomic.Int64
	read            atomic.Int64 // data rows leaving the reader
	dropped         atomic.Int64 // rows without a seq_id
	attempted       atomic.Int64 // rows handed to the loader
	inserted        atomic.Int64
	ignored         atomic.Int64
	archived        atomic.Int64
	archiveFailures atomic.Int64
	loadFailures    atomic.Int64
	skippedRows     atomic.Int64 // rows of chunks whose load failed
}

// summary is the value copy of counters returned by runIngest.
type summary struct {
	Chunks          int64
	Read            int64
	Dropped         int64
	Attempted       int64
	Inserted        int64
	Ignored         int64
	Archived        int64
	ArchiveFailures int64
	LoadFailures    int64
	SkippedRows     int64
}

func (c *counters) snapshot() summary {
	return summary{
		Chunks:          c.chunks.Load(),
		Read:            c.read.Load(),
		Dropped:         c.dropped.Load(),
		Attempted:       c.attempted.Load(),
		Inserted:        c.inserted.Load(),
		Ignored:         c.ignored.Load(),
		Archived:        c.archived.Load(),
		ArchiveFailures: c.archiveFailures.Load(),
		LoadFailures:    c.loadFailures.Load(),
		SkippedRows:     c.skippedRows.Load(),
	}
}

// runtimeConfig is the resolved chunking and concurrency configuration.
type runtimeConfig struct {
	chunkSize    int
	insertBatch  int
	transformers int
	reconnect    time.Duration
}

// Function variables used as test seams.
var (
	openSourceFn = openSource

	ensureSchemaFn = storage.EnsureSchema

	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return storage.New(ctx, cfg)
	}

	openArchiveFn = func(dir string) (chunkArchiver, error) {
		return archive.Open(dir)
	}
)

// chunkArchiver is the part of archive.Writer the run needs.
type chunkArchiver interface {
	WriteChunk(ctx context.Context, recs []schema.Stop) (string, error)
}

// transformed is one chunk after the parallel stage.
type transformed struct {
	chunk *csvparser.Chunk
	res   transformer.Result
}

// runIngest reads the configured source in chunks, transforms up to
// transformers chunks concurrently, and loads and archives them strictly in
// chunk order.
//
// A *csvparser.SourceNotFoundError or *csvparser.MalformedSourceError aborts
// the run. A *storage.LoadFailure aborts it unless
// runtime.continue_on_load_error is set. Archive failures are logged and
// counted; ingestion continues.
func runIngest(ctx context.Context, spec config.Pipeline) (summary, error) {
	var stats counters
	start := time.Now()
	rt := newRuntimeConfig(spec)
	job := jobName(spec)

	log.Printf("ingest runtime: chunk_size=%d insert_batch=%d transformers=%d",
		rt.chunkSize, rt.insertBatch, rt.transformers)

	src, err := openSourceFn(spec)
	if err != nil {
		return stats.snapshot(), err
	}
	reader, err := csvparser.Open(ctx, src, rt.chunkSize, spec.Parser.Options)
	if err != nil {
		return stats.snapshot(), err
	}
	defer reader.Close()

	tr, err := transformer.NewChunkTransformer(reader.Header(), nil)
	if err != nil {
		return stats.snapshot(), err
	}

	repo, err := ensureSchemaFn(ctx, spec)
	if err != nil {
		return stats.snapshot(), fmt.Errorf("schema: %w", err)
	}
	scfg := storage.ConfigFromPipeline(spec)
	loader := &storage.Loader{
		Columns:    scfg.Columns,
		KeyColumns: scfg.KeyColumns,
		BatchSize:  rt.insertBatch,
		Repo:       repo,
		Connect: func(ctx context.Context) (storage.Repository, error) {
			return newRepositoryFn(ctx, scfg)
		},
		MaxElapsed: rt.reconnect,
	}
	defer loader.Close()

	var arch chunkArchiver
	if spec.Archive.Enabled {
		arch, err = openArchiveFn(spec.Archive.Dir)
		if err != nil {
			return stats.snapshot(), err
		}
		log.Printf("archive: dir=%s", spec.Archive.Dir)
	}

	var skips *skiplog.Writer
	if spec.Runtime.SkipLog != "" {
		skips, err = skiplog.Create(spec.Runtime.SkipLog, spec.Parser.Options.Rune("comma", ','))
		if err != nil {
			return stats.snapshot(), err
		}
		defer func() {
			if err := skips.Close(); err != nil {
				log.Printf("skiplog: %v", err)
			}
		}()
	}

	dropAgg := newErrAgg(errAggLimit)
	loadAgg := newErrAgg(errAggLimit)

	sink := func(t transformed) error {
		c, res := t.chunk, t.res
		stats.chunks.Add(1)
		stats.read.Add(int64(c.Len()))
		stats.dropped.Add(int64(len(res.Dropped)))
		for _, d := range res.Dropped {
			dropAgg.add(fmt.Sprintf("line=%d: %s", d.Line, d.Reason))
			if err := skips.Write(skiplog.Entry{Reason: d.Reason, Line: d.Line, Field: d.Field, Raw: d.Raw}); err != nil {
				log.Printf("skiplog: %v", err)
			}
		}
		metrics.RecordChunks(job, 1)
		metrics.RecordRow(job, metrics.KindRead, int64(c.Len()))
		metrics.RecordRow(job, metrics.KindDropped, int64(len(res.Dropped)))

		rows := make([][]any, len(res.Records))
		for i := range res.Records {
			rows[i] = res.Records[i].Values(scfg.Columns)
		}

		loadStart := time.Now()
		lr, err := loader.LoadChunk(ctx, c.Index, res.Lines, rows)
		metrics.RecordStep(job, metrics.StepLoad, err, time.Since(loadStart))
		if err != nil {
			stats.loadFailures.Add(1)
			stats.skippedRows.Add(int64(len(rows)))
			loadAgg.add(err.Error())
			if !spec.Runtime.ContinueOnLoadError {
				return err
			}
			log.Printf("loader: skipping chunk=%d after failure: %v", c.Index, err)
			return nil
		}
		stats.attempted.Add(lr.Attempted)
		stats.inserted.Add(lr.Inserted)
		stats.ignored.Add(lr.Ignored)
		metrics.RecordRow(job, metrics.KindInserted, lr.Inserted)
		metrics.RecordRow(job, metrics.KindIgnored, lr.Ignored)

		if arch != nil && len(res.Records) > 0 {
			archStart := time.Now()
			path, err := arch.WriteChunk(ctx, res.Records)
			metrics.RecordStep(job, metrics.StepArchive, err, time.Since(archStart))
			if err != nil {
				stats.archiveFailures.Add(1)
				log.Printf("ARCHIVE FAILURE: chunk=%d rows=%d: %v", c.Index, len(res.Records), err)
			} else {
				stats.archived.Add(int64(len(res.Records)))
				metrics.RecordRow(job, metrics.KindArchived, int64(len(res.Records)))
				if verbose {
					log.Printf("archive: chunk=%d part=%s", c.Index, path)
				}
			}
		}

		elapsed := time.Since(start)
		log.Printf("etl: chunk=%d rows=%s inserted=%s ignored=%s dropped=%s total=%s rate=%s rows/s",
			c.Index,
			humanize.Comma(int64(c.Len())),
			humanize.Comma(lr.Inserted),
			humanize.Comma(lr.Ignored),
			humanize.Comma(int64(len(res.Dropped))),
			humanize.Comma(stats.read.Load()),
			humanize.Comma(rowsPerSecond(stats.read.Load(), elapsed)),
		)
		return nil
	}

	err = transformWindows(ctx, reader, tr, rt.transformers, job, sink)

	logAggregates(dropAgg, loadAgg)
	s := stats.snapshot()
	logGlobalSummary(s, time.Since(start))
	return s, err
}

// transformWindows reads up to workers chunks, transforms them concurrently
// and hands the results to sink in chunk order. At most workers chunks are
// held at once.
func transformWindows(ctx context.Context, reader *csvparser.ChunkReader, tr *transformer.ChunkTransformer,
	workers int, job string, sink func(transformed) error) error {
	window := make([]transformed, 0, workers)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		window = window[:0]
		eof := false
		for len(window) < workers {
			c, err := reader.Next(ctx)
			if errors.Is(err, io.EOF) {
				eof = true
				break
			}
			if err != nil {
				return err
			}
			window = append(window, transformed{chunk: c})
		}

		var g errgroup.Group
		g.SetLimit(workers)
		for i := range window {
			i := i
			g.Go(func() error {
				t0 := time.Now()
				window[i].res = tr.Transform(window[i].chunk)
				metrics.RecordStep(job, metrics.StepTransform, nil, time.Since(t0))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for _, t := range window {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := sink(t); err != nil {
				return err
			}
		}
		if eof {
			return nil
		}
	}
}

// newRuntimeConfig resolves runtime settings: config value, then environment,
// then defaults.
func newRuntimeConfig(spec config.Pipeline) runtimeConfig {
	rt := runtimeConfig{
		chunkSize:    pickInt(spec.Runtime.ChunkSize, getenvInt("ETL_CHUNK_SIZE", config.DefaultChunkSize)),
		insertBatch:  pickInt(spec.Runtime.InsertBatchSize, getenvInt("ETL_INSERT_BATCH", config.DefaultInsertBatchSize)),
		transformers: pickInt(spec.Runtime.TransformWorkers, getenvInt("ETL_TRANSFORM_WORKERS", 2)),
	}
	if rt.transformers < 1 {
		rt.transformers = 1
	}
	if d, err := time.ParseDuration(spec.Runtime.ReconnectTimeout); err == nil && d > 0 {
		rt.reconnect = d
	}
	return rt
}

func jobName(spec config.Pipeline) string {
	if spec.Job != "" {
		return spec.Job
	}
	return "trafficetl"
}

// openSource builds the configured data source.
func openSource(spec config.Pipeline) (datasource.Source, error) {
	switch spec.Source.Kind {
	case "file":
		return file.NewLocal(spec.Source.File.Path), nil
	default:
		return nil, fmt.Errorf("unsupported source.kind=%s", spec.Source.Kind)
	}
}

func rowsPerSecond(n int64, d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(float64(n) / d.Seconds())
}

// logAggregates prints the first few dropped rows and load failures.
func logAggregates(dropAgg, loadAgg *errAgg) {
	if dropAgg.count > 0 {
		log.Printf("dropped rows: %d (showing first %d)", dropAgg.count, len(dropAgg.first))
		for i, s := range dropAgg.first {
			log.Printf("  #%03d: %s", i+1, s)
		}
	}
	if loadAgg.count > 0 {
		log.Printf("load failures: %d (showing first %d)", loadAgg.count, len(loadAgg.first))
		for i, s := range loadAgg.first {
			log.Printf("  #%03d: %s", i+1, s)
		}
	}
}

// logGlobalSummary prints the final statistics for the run.
//
// Row accounting:
//
//	read == dropped + attempted + skipped (rows of failed chunks)
//	attempted == inserted + ignored
func logGlobalSummary(s summary, elapsed time.Duration) {
	log.Printf(
		"summary: chunks=%d read=%s dropped=%s attempted=%s inserted=%s ignored=%s archived=%s archive_failures=%d load_failures=%d elapsed=%s",
		s.Chunks,
		humanize.Comma(s.Read),
		humanize.Comma(s.Dropped),
		humanize.Comma(s.Attempted),
		humanize.Comma(s.Inserted),
		humanize.Comma(s.Ignored),
		humanize.Comma(s.Archived),
		s.ArchiveFailures,
		s.LoadFailures,
		elapsed.Truncate(time.Millisecond),
	)
	if accounted := s.Dropped + s.Attempted + s.SkippedRows; accounted != s.Read {
		log.Printf("WARNING: row accounting mismatch: read=%d accounted=%d (delta=%d)",
			s.Read, accounted, s.Read-accounted)
	}
}

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

// errAgg keeps a count and the first few messages.
type errAgg struct {
	mu    sync.Mutex
	limit int
	count int
	first []string
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit}
}

func (a *errAgg) add(msg string) {
	a.mu.Lock()
	if a.count < a.limit {
		a.first = append(a.first, msg)
	}
	a.count++
	a.mu.Unlock()
}
