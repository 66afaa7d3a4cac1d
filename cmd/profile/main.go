// Command profile builds per-column value distributions over the configured
// source and writes them as a CSV summary and, optionally, a text report.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"trafficetl/internal/config"
	"trafficetl/internal/datasource/file"
	"trafficetl/internal/metrics"
	"trafficetl/internal/metrics/backends"
	csvparser "trafficetl/internal/parser/csv"
	"trafficetl/internal/profile"
)

// options are the resolved profiling settings.
type options struct {
	input     string
	output    string
	chunkSize int
	topN      int
	columns   []string
	nulls     []string
	parser    config.Options
	job       string
}

func main() {
	var (
		cfgPath     string
		input       string
		output      string
		topN        int
		chunkSize   int
		printReport bool
		metricsName string
	)
	flag.StringVar(&cfgPath, "config", "", "pipeline config JSON path (optional)")
	flag.StringVar(&input, "input", "", "CSV to profile (overrides source.file.path)")
	flag.StringVar(&output, "output", "", "summary CSV path (overrides profile.output)")
	flag.IntVar(&topN, "top-n", 0, "most frequent values kept per column (overrides profile.top_n)")
	flag.IntVar(&chunkSize, "chunk-size", 0, "rows per chunk (overrides profile.chunk_size)")
	flag.BoolVar(&printReport, "print", false, "print the text report to stdout")
	flag.StringVar(&metricsName, "metrics-backend", "", "metrics backend: none, pushgateway or datadog")
	flag.Parse()

	var p config.Pipeline
	if cfgPath != "" {
		var err error
		if p, err = config.Load(cfgPath); err != nil {
			fatalf("%v", err)
		}
	}
	opt := resolve(p, input, output, topN, chunkSize)
	if opt.input == "" {
		fatalf("no input: pass -input or set source.file.path")
	}

	flush, err := backends.Install(backends.Options{Backend: metricsName, Job: opt.job})
	if err != nil {
		log.Printf("metrics: %v; using nop", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stdout io.Writer
	if printReport {
		stdout = os.Stdout
	}
	if err := runProfile(ctx, opt, stdout); err != nil {
		flush()
		log.Fatalf("profile: %v", err)
	}
}

// resolve merges flags over config over defaults.
func resolve(p config.Pipeline, input, output string, topN, chunkSize int) options {
	opt := options{
		input:     p.Source.File.Path,
		output:    p.Profile.Output,
		chunkSize: pickInt(chunkSize, pickInt(p.Profile.ChunkSize, getenvInt("ETL_PROFILE_CHUNK_SIZE", config.DefaultProfileChunkSize))),
		topN:      pickInt(topN, pickInt(p.Profile.TopN, config.DefaultTopN)),
		columns:   p.Profile.Columns,
		nulls:     p.Profile.NullTokens,
		parser:    p.Parser.Options,
		job:       p.Job,
	}
	if input != "" {
		opt.input = input
	}
	if output != "" {
		opt.output = output
	}
	if opt.output == "" {
		opt.output = config.DefaultProfileOutput
	}
	if opt.parser == nil {
		opt.parser = config.Options{}
	}
	if opt.job == "" {
		opt.job = "trafficetl"
	}
	return opt
}

// runProfile streams opt.input through the accumulator and writes the summary
// CSV. When report is non-nil the text report is printed to it as well.
func runProfile(ctx context.Context, opt options, report io.Writer) error {
	start := time.Now()
	r, err := csvparser.Open(ctx, file.NewLocal(opt.input), opt.chunkSize, opt.parser)
	if err != nil {
		return err
	}
	defer r.Close()

	log.Printf("profile: input=%s chunk_size=%s top_n=%d columns=%d",
		opt.input, humanize.Comma(int64(opt.chunkSize)), opt.topN, len(opt.columns))

	rep, err := profile.Run(ctx, r, profile.Options{
		TopN:       opt.topN,
		Columns:    opt.columns,
		NullTokens: opt.nulls,
	}, func(c *csvparser.Chunk, acc *profile.Accumulator) {
		metrics.RecordChunks(opt.job, 1)
		metrics.RecordRow(opt.job, metrics.KindRead, int64(c.Len()))
		log.Printf("profile: chunk=%d rows=%s total=%s", c.Index, humanize.Comma(int64(c.Len())), humanize.Comma(acc.TotalRows()))
	})
	metrics.RecordStep(opt.job, metrics.StepProfile, err, time.Since(start))
	if err != nil {
		return err
	}

	if err := writeSummary(opt.output, rep); err != nil {
		return err
	}
	if report != nil {
		profile.Print(report, rep)
	}
	log.Printf("profile: columns=%d rows=%s output=%s elapsed=%s",
		len(rep.Fields), humanize.Comma(rep.TotalRows), opt.output, time.Since(start).Truncate(time.Millisecond))
	return nil
}

func writeSummary(path string, rep profile.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := profile.WriteCSV(bw, rep); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
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

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
