package csv

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const utf8BOM = "\uFEFF"

// NormalizeHeader turns a raw header cell into a stable snake_case name:
// BOM stripped, trimmed, accents folded, lower-cased, and runs of spaces or
// punctuation collapsed to a single '_'.
//
//	"Date Of Stop"     -> "date_of_stop"
//	"SeqID"            -> "seqid"
//	"\uFEFFDL State"  -> "dl_state"
//	"Personal Injury " -> "personal_injury"
func NormalizeHeader(s string) string {
	s = strings.TrimPrefix(s, utf8BOM)
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	prevUnderscore := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// normalizeHeaders maps every raw header cell through headerMap (keyed by the
// raw trimmed name or its normalized form) and NormalizeHeader. It returns
// the index of the first empty or duplicate name, or -1 when all are usable.
func normalizeHeaders(raw []string, headerMap map[string]string) ([]string, int) {
	out := make([]string, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))
		name := NormalizeHeader(h)
		if mapped, ok := headerMap[h]; ok && mapped != "" {
			name = mapped
		} else if mapped, ok := headerMap[name]; ok && mapped != "" {
			name = mapped
		}
		if name == "" {
			return nil, i
		}
		if _, dup := seen[name]; dup {
			return nil, i
		}
		seen[name] = struct{}{}
		out[i] = name
	}
	return out, -1
}
