// Package config defines the JSON-serializable configuration model for the
// traffic-stop ETL and profiling runs. Pipelines are decoded with the standard
// library and passed through the program as plain values; a light Options
// helper gives typed access to parser-specific settings.
//
// Example (trimmed):
//
//	{
//	  "job":     "traffic_violations",
//	  "source":  { "kind": "file", "file": { "path": "Traffic_Violations.csv" } },
//	  "parser":  { "kind": "csv", "options": { "comma": "," } },
//	  "storage": { "kind": "mysql", "db": { "dsn": "...", "table": "traffic_violations",
//	               "auto_create_table": true } },
//	  "archive": { "enabled": true, "dir": "backup/traffic_cleaned" },
//	  "profile": { "top_n": 20, "output": "column_profile_summary.csv" },
//	  "runtime": { "chunk_size": 50000, "insert_batch_size": 5000 }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Defaults used when the corresponding config value is zero.
const (
	DefaultChunkSize        = 50_000
	DefaultInsertBatchSize  = 5_000
	DefaultProfileChunkSize = 200_000
	DefaultTopN             = 20
	DefaultProfileOutput    = "column_profile_summary.csv"
	DefaultTable            = "traffic_violations"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run in logs and metrics.
	Job string `json:"job"`

	// Source describes where input data comes from (e.g., local file).
	Source Source `json:"source"`

	// Parser configures how raw bytes are turned into rows (CSV).
	Parser Parser `json:"parser"`

	// Storage describes the relational store loaded by the ingest run.
	Storage Storage `json:"storage"`

	// Archive configures the columnar backup written next to the store.
	Archive Archive `json:"archive"`

	// Profile configures the profiling run.
	Profile Profile `json:"profile"`

	Runtime RuntimeConfig `json:"runtime"`
}

// RuntimeConfig controls chunking, batching and transform parallelism.
type RuntimeConfig struct {
	// ChunkSize is the number of source rows per chunk (ingest).
	ChunkSize int `json:"chunk_size"`

	// InsertBatchSize bounds the rows sent in one insert statement group.
	InsertBatchSize int `json:"insert_batch_size"`

	// TransformWorkers is the number of chunks transformed concurrently.
	// Writes stay ordered regardless of this value.
	TransformWorkers int `json:"transform_workers"`

	// ContinueOnLoadError skips a chunk whose load failed instead of
	// aborting the run.
	ContinueOnLoadError bool `json:"continue_on_load_error"`

	// SkipLog, when set, is a CSV file receiving every dropped row.
	SkipLog string `json:"skip_log"`

	// ReconnectTimeout bounds reconnect attempts after a failed liveness
	// probe, e.g. "30s". Empty means the loader default.
	ReconnectTimeout string `json:"reconnect_timeout"`
}

// Source identifies the data source.
type Source struct {
	// Kind selects the source implementation. Current value: "file".
	Kind string `json:"kind"`

	// File carries options for the "file" source kind.
	File SourceFile `json:"file"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the input file.
	Path string `json:"path"`
}

// Parser selects how to parse the raw source into logical rows/columns.
type Parser struct {
	// Kind selects the parser implementation. Current value: "csv".
	Kind string `json:"kind"`

	// Options is a free-form map interpreted by the parser implementation.
	// For CSV: comma (string), lazy_quotes (bool), header_map (object).
	Options Options `json:"options"`
}

// Storage selects the sink used to persist canonical records.
type Storage struct {
	// Kind selects the backend: sqlite, mysql, postgres or mssql.
	Kind string `json:"kind"`

	DB DBConfig `json:"db"`
}

// DBConfig configures the relational sink.
type DBConfig struct {
	// DSN is the driver connection string.
	DSN string `json:"dsn"`

	// Table is the destination table, optionally schema-qualified.
	Table string `json:"table"`

	// Columns enumerates the canonical columns written, in order. Empty
	// means every canonical column.
	Columns []string `json:"columns"`

	// KeyColumns is the natural key enforced by the table's primary key.
	// Empty means (seq_id, charge).
	KeyColumns []string `json:"key_columns"`

	// AutoCreateTable lets the schema manager create the table if absent.
	AutoCreateTable bool `json:"auto_create_table"`
}

// Archive configures the Parquet backup.
type Archive struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
}

// Profile configures the column profiling run.
type Profile struct {
	// TopN bounds the number of most frequent values kept per column.
	TopN int `json:"top_n"`

	// Columns is an allow-list of (normalized) source columns to profile.
	// Empty profiles every column. Free-text and id-like columns should be
	// left out: their frequency tables grow with every distinct value.
	Columns []string `json:"columns"`

	// NullTokens lists extra cell values counted as missing.
	NullTokens []string `json:"null_tokens"`

	// Output is the CSV export path.
	Output string `json:"output"`

	// ChunkSize overrides runtime.chunk_size for profiling.
	ChunkSize int `json:"chunk_size"`
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing third-party configuration libraries. It purposefully
// performs only minimal type coercion and returns provided defaults when a key
// is absent or of an unexpected type.
//
// Options is used for parser/transform-specific configuration where the shape
// varies by implementation.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so this method accepts float64 and casts to int.
// If the value is neither float64 nor int, def is returned.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. This is useful for single-character parser settings such as
// a CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty map
// when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of strings
// (or an array of interface values containing strings). Returns nil when the
// key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Any returns the raw value for key (which may itself be a nested
// map[string]any, []any, or primitive). This is useful for retrieving nested
// configuration blocks that will be unmarshaled into a typed struct by the
// caller (e.g., an inline validation contract).
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null "options"
// object in JSON decodes to a non-nil, empty Options map. This simplifies call
// sites by removing the need to nil-check Options values.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

// Load decodes a pipeline file. Unknown fields are rejected so typos in
// option names surface instead of silently taking defaults.
func Load(path string) (Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var p Pipeline
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return p, nil
}
