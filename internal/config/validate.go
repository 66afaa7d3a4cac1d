// Package config provides configuration models and helpers for ETL pipelines.
//
// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"trafficetl/internal/schema"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "storage.db.key_columns[0]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not.
//
// Example:
//
//	p, err := config.Load(path)
//	if err != nil { ... }
//	for _, iss := range config.ValidatePipeline(p) {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateArchive(p.Archive)...)
	issues = append(issues, validateProfile(p.Profile)...)
	issues = append(issues, validateRuntime(p.Runtime)...)

	return issues
}

// validateSource validates Source configuration.
func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
		return issues
	}

	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.file.path",
				Message:  "file source requires a non-empty path",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unsupported source kind %q; only \"file\" is implemented", s.Kind),
		})
	}

	return issues
}

// validateParser validates parser configuration.
func validateParser(p Parser) []Issue {
	var issues []Issue

	switch strings.TrimSpace(p.Kind) {
	case "", "csv":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unsupported parser kind %q; only \"csv\" is implemented", p.Kind),
		})
		return issues
	}

	if v, ok := p.Options["comma"]; ok {
		if s, isStr := v.(string); !isStr || utf8.RuneCountInString(s) != 1 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "parser.options.comma",
				Message:  "comma must be a single-character string",
			})
		}
	}
	for src, dst := range p.Options.StringMap("header_map") {
		if !schema.Known(dst) {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "parser.options.header_map." + src,
				Message:  fmt.Sprintf("maps to %q, which is not a canonical column", dst),
			})
		}
	}

	return issues
}

// validateStorage validates storage configuration and DB settings.
func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	db := s.DB
	if strings.TrimSpace(db.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}
	if strings.TrimSpace(db.Table) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.db.table",
			Message:  fmt.Sprintf("storage.db.table is empty; defaulting to %q", DefaultTable),
		})
	}

	cols := make(map[string]struct{}, len(db.Columns))
	for i, c := range db.Columns {
		if !schema.Known(c) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("storage.db.columns[%d]", i),
				Message:  fmt.Sprintf("%q is not a canonical column", c),
			})
		}
		cols[c] = struct{}{}
	}
	for i, k := range db.KeyColumns {
		if !schema.Known(k) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("storage.db.key_columns[%d]", i),
				Message:  fmt.Sprintf("%q is not a canonical column", k),
			})
			continue
		}
		if len(db.Columns) > 0 {
			if _, ok := cols[k]; !ok {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     fmt.Sprintf("storage.db.key_columns[%d]", i),
					Message:  fmt.Sprintf("key column %q is not listed in storage.db.columns", k),
				})
			}
		}
	}

	return issues
}

// validateArchive validates the Parquet backup settings.
func validateArchive(a Archive) []Issue {
	if a.Enabled && strings.TrimSpace(a.Dir) == "" {
		return []Issue{{
			Severity: SeverityError,
			Path:     "archive.dir",
			Message:  "archive is enabled but archive.dir is empty",
		}}
	}
	return nil
}

// validateProfile validates profiling settings.
func validateProfile(p Profile) []Issue {
	var issues []Issue
	if p.TopN < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "profile.top_n",
			Message:  "top_n must not be negative",
		})
	}
	if p.ChunkSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "profile.chunk_size",
			Message:  "chunk_size must not be negative",
		})
	}
	return issues
}

// validateRuntime validates RuntimeConfig for obvious misconfigurations
// (negative values, unparsable durations).
func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.ChunkSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.chunk_size",
			Message:  "chunk_size must not be negative",
		})
	}
	if r.InsertBatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.insert_batch_size",
			Message:  "insert_batch_size must not be negative",
		})
	}
	if r.ChunkSize > 0 && r.InsertBatchSize > r.ChunkSize {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.insert_batch_size",
			Message:  fmt.Sprintf("insert_batch_size=%d exceeds chunk_size=%d; each chunk is one sub-batch", r.InsertBatchSize, r.ChunkSize),
		})
	}
	if r.TransformWorkers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.transform_workers",
			Message:  "transform_workers must not be negative",
		})
	}
	if r.ReconnectTimeout != "" {
		if d, err := time.ParseDuration(r.ReconnectTimeout); err != nil || d <= 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "runtime.reconnect_timeout",
				Message:  fmt.Sprintf("reconnect_timeout %q is not a positive duration", r.ReconnectTimeout),
			})
		}
	}

	return issues
}
