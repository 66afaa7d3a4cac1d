// Package transformer turns raw CSV chunks into canonical traffic-stop
// records.
//
// Source indexes are resolved once per header, so the per-row hot path is a
// handful of slice reads and calls into the builtin normalizers. A
// ChunkTransformer holds no mutable state after construction and may be shared
// by concurrent goroutines transforming different chunks.
package transformer

import (
	"errors"
	"fmt"
	"strings"

	"trafficetl/internal/parser/csv"
	"trafficetl/internal/schema"
	"trafficetl/internal/transformer/builtin"
)

// Pseudo columns feeding stop_datetime. They are not stored on their own.
const (
	DateColumn = "date_of_stop"
	TimeColumn = "time_of_stop"
)

// ReasonMissingSeqID is the drop reason for rows without an identity.
const ReasonMissingSeqID = "missing seq_id"

// ErrNoSeqID is returned when the header has no column that can feed seq_id.
var ErrNoSeqID = errors.New("transformer: header has no seq_id column")

// aliases lists the normalized source headers tried, in order, for canonical
// columns whose source name differs. Columns not listed are looked up by
// their own name.
var aliases = map[string][]string{
	"seq_id":       {"seq_id", "seqid"},
	"vehicle_type": {"vehicle_type", "vehicletype"},
	"dl_state":     {"dl_state", "dlstate"},
	"subagency":    {"subagency", "sub_agency"},
	DateColumn:     {DateColumn, "stop_date"},
	TimeColumn:     {TimeColumn, "stop_time"},
}

// DroppedRow describes a source row that produced no canonical record.
type DroppedRow struct {
	Line   int      // 1-based source line
	Reason string   // e.g. ReasonMissingSeqID
	Field  string   // canonical column that caused the drop
	Raw    []string // the row as read
}

// Result is the outcome of transforming one chunk. Records keep source order.
type Result struct {
	Records []schema.Stop
	Lines   []int // 1-based source line of each record
	Dropped []DroppedRow
}

// ChunkTransformer maps rows of a fixed header onto schema.Stop.
type ChunkTransformer struct {
	idx map[string]int // canonical (or pseudo) column -> source index
}

// NewChunkTransformer resolves the source position of every canonical column.
//
// headerMap maps a source header to a canonical name and takes precedence
// over the built-in aliases. Canonical columns with no source degrade to
// null, false or UNKNOWN. A header with no seq_id source is rejected with
// ErrNoSeqID.
func NewChunkTransformer(header []string, headerMap map[string]string) (*ChunkTransformer, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		name := h
		if m, ok := headerMap[h]; ok && m != "" {
			name = m
		}
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	t := &ChunkTransformer{idx: make(map[string]int, len(schema.TrafficStops.Fields)+2)}
	wanted := append(schema.TrafficStops.Names(), DateColumn, TimeColumn)
	for _, col := range wanted {
		candidates := aliases[col]
		if len(candidates) == 0 {
			candidates = []string{col}
		}
		for _, src := range candidates {
			if i, ok := pos[src]; ok {
				t.idx[col] = i
				break
			}
		}
	}
	if _, ok := t.idx["seq_id"]; !ok {
		return nil, fmt.Errorf("%w (header=%v)", ErrNoSeqID, header)
	}
	return t, nil
}

// Has reports whether column resolved to a source position.
func (t *ChunkTransformer) Has(column string) bool {
	_, ok := t.idx[column]
	return ok
}

// cell returns the raw text for column in row, or "" when the column has no
// source or the row is short.
func (t *ChunkTransformer) cell(row []string, column string) string {
	i, ok := t.idx[column]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// Transform normalizes every row of c. Rows whose seq_id is empty or a null
// token ("NaN", "None") are returned in Result.Dropped and never fail the
// chunk.
func (t *ChunkTransformer) Transform(c *csv.Chunk) Result {
	res := Result{
		Records: make([]schema.Stop, 0, c.Len()),
		Lines:   make([]int, 0, c.Len()),
	}
	for i, row := range c.Rows {
		line := 0
		if i < len(c.Lines) {
			line = c.Lines[i]
		}
		rec, ok := t.Row(row)
		if !ok {
			raw := make([]string, len(row))
			copy(raw, row)
			res.Dropped = append(res.Dropped, DroppedRow{
				Line:   line,
				Reason: ReasonMissingSeqID,
				Field:  "seq_id",
				Raw:    raw,
			})
			continue
		}
		res.Records = append(res.Records, rec)
		res.Lines = append(res.Lines, line)
	}
	return res
}

// Row converts a single raw row. ok is false when the row has no identity:
// seq_id is blank or one of the tokens NormalizeText maps to nil.
func (t *ChunkTransformer) Row(row []string) (s schema.Stop, ok bool) {
	raw := t.cell(row, "seq_id")
	if builtin.NormalizeText(raw) == nil {
		return schema.Stop{}, false
	}
	s.SeqID = strings.TrimSpace(raw)

	s.StopDatetime = builtin.ComposeTimestamp(t.cell(row, DateColumn), t.cell(row, TimeColumn))

	s.Agency = builtin.NormalizeText(t.cell(row, "agency"))
	s.SubAgency = builtin.NormalizeText(t.cell(row, "subagency"))
	s.Description = builtin.NormalizeText(t.cell(row, "description"))
	s.Location = builtin.NormalizeText(t.cell(row, "location"))

	s.Latitude, s.Longitude = builtin.ValidateCoordinates(t.cell(row, "latitude"), t.cell(row, "longitude"))

	s.Accident = builtin.NormalizeBoolean(t.cell(row, "accident"))
	s.PropertyDamage = builtin.NormalizeBoolean(t.cell(row, "property_damage"))
	s.Alcohol = builtin.NormalizeBoolean(t.cell(row, "alcohol"))
	s.WorkZone = builtin.NormalizeBoolean(t.cell(row, "work_zone"))
	s.PersonalInjury = builtin.NormalizeBoolean(t.cell(row, "personal_injury"))
	s.Fatal = builtin.NormalizeBoolean(t.cell(row, "fatal"))
	s.SearchConducted = builtin.NormalizeBoolean(t.cell(row, "search_conducted"))

	s.SearchDisposition = builtin.NormalizeText(t.cell(row, "search_disposition"))
	s.SearchOutcome = builtin.NormalizeText(t.cell(row, "search_outcome"))
	s.SearchReason = builtin.NormalizeText(t.cell(row, "search_reason"))

	s.State = builtin.NormalizeRegionCode(t.cell(row, "state"))
	s.VehicleType = builtin.NormalizeText(t.cell(row, "vehicle_type"))
	s.Make = builtin.NormalizeText(t.cell(row, "make"))
	s.Model = builtin.NormalizeText(t.cell(row, "model"))
	s.Color = builtin.NormalizeText(t.cell(row, "color"))
	s.ViolationType = builtin.NormalizeText(t.cell(row, "violation_type"))
	s.Charge = builtin.NormalizeText(t.cell(row, "charge"))
	s.Race = builtin.NormalizeText(t.cell(row, "race"))
	s.Gender = builtin.NormalizeGender(t.cell(row, "gender"))
	s.DLState = builtin.NormalizeRegionCode(t.cell(row, "dl_state"))

	return s, true
}
