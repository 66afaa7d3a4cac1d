// Package builtin contains the pure field-level normalizers used by the chunk
// transformer. Every function here is total: bad input degrades to nil, false
// or "UNKNOWN" and never produces an error.
package builtin

import "strings"

// GenderUnknown is the canonical value for any gender token that is not a
// recognized male or female spelling, including empty input.
const GenderUnknown = "UNKNOWN"

var truthy = map[string]struct{}{
	"yes":  {},
	"y":    {},
	"true": {},
	"1":    {},
}

var nullText = map[string]struct{}{
	"":     {},
	"NAN":  {},
	"NONE": {},
}

// NormalizeBoolean reports whether v is one of the truthy tokens
// yes, y, true or 1 (case-insensitive, trimmed).
//
// There is no unknown state: "no", empty and garbage all map to false, so a
// missing value and an explicit "no" are indistinguishable downstream.
// Aggregates over these columns count "not recorded" as false. Introducing a
// third state changes those counts and needs a migration of stored data.
func NormalizeBoolean(v string) bool {
	_, ok := truthy[strings.ToLower(trimEdge(v))]
	return ok
}

// NormalizeText upper-cases and trims v. Empty, "NaN" and "None" map to nil.
func NormalizeText(v string) *string {
	s := strings.ToUpper(trimEdge(v))
	if _, ok := nullText[s]; ok {
		return nil
	}
	return &s
}

// NormalizeGender maps M/MALE to "M" and F/FEMALE to "F". Everything else,
// including empty input, is GenderUnknown.
func NormalizeGender(v string) string {
	switch strings.ToUpper(trimEdge(v)) {
	case "M", "MALE":
		return "M"
	case "F", "FEMALE":
		return "F"
	default:
		return GenderUnknown
	}
}

// NormalizeRegionCode returns the upper-cased, trimmed value only when it is
// exactly two characters long (a US state or province code).
func NormalizeRegionCode(v string) *string {
	s := strings.ToUpper(trimEdge(v))
	if len([]rune(s)) != 2 {
		return nil
	}
	return &s
}

// hasEdgeSpace reports whether s starts or ends with common ASCII whitespace.
// It is a cheap precondition check before calling strings.TrimSpace.
func hasEdgeSpace(s string) bool {
	n := len(s)
	if n == 0 {
		return false
	}
	b0, b1 := s[0], s[n-1]
	return b0 == ' ' || b0 == '\t' || b0 == '\n' || b0 == '\r' ||
		b1 == ' ' || b1 == '\t' || b1 == '\n' || b1 == '\r'
}

// trimEdge trims surrounding whitespace, skipping the allocation-free fast
// path when there is nothing to trim. Non-ASCII spaces (NBSP) are handled by
// the TrimSpace fallback.
func trimEdge(s string) string {
	if s == "" {
		return s
	}
	if hasEdgeSpace(s) || s[0] >= 0x80 || s[len(s)-1] >= 0x80 {
		return strings.TrimSpace(s)
	}
	return s
}
