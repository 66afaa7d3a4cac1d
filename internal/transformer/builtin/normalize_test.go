package builtin

import "testing"

func strp(s string) *string { return &s }

/*
TestNormalizeBoolean verifies the truthy vocabulary and that every other
token, including explicit negatives and garbage, degrades to false.
*/
func TestNormalizeBoolean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"Yes", true},
		{" y ", true},
		{"TRUE", true},
		{"1", true},
		{"No", false},
		{"n", false},
		{"false", false},
		{"0", false},
		{"", false},
		{"maybe", false},
		{"yes please", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeBoolean(tt.in); got != tt.want {
				t.Fatalf("NormalizeBoolean(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want *string
	}{
		{"  Montgomery County Police ", strp("MONTGOMERY COUNTY POLICE")},
		{"", nil},
		{"   ", nil},
		{"NaN", nil},
		{"nan", nil},
		{"None", nil},
		{" abc ", strp("ABC")},
		{"nonesuch", strp("NONESUCH")},
	}
	for _, tt := range tests {
		got := NormalizeText(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Fatalf("NormalizeText(%q) = %q, want nil", tt.in, *got)
		case tt.want != nil && got == nil:
			t.Fatalf("NormalizeText(%q) = nil, want %q", tt.in, *tt.want)
		case tt.want != nil && *got != *tt.want:
			t.Fatalf("NormalizeText(%q) = %q, want %q", tt.in, *got, *tt.want)
		}
	}
}

/*
TestNormalizeGender covers the fallback rule: anything outside
{M, MALE, F, FEMALE} (case-insensitive) is UNKNOWN, including empty input.
*/
func TestNormalizeGender(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"M":        "M",
		"male":     "M",
		" Male ":   "M",
		"F":        "F",
		"female":   "F",
		"FEMALE":   "F",
		"U":        GenderUnknown,
		"":         GenderUnknown,
		"x":        GenderUnknown,
		"nan":      GenderUnknown,
		"females":  GenderUnknown,
		"\tf\t":    "F",
		"UNKNOWN":  GenderUnknown,
		"mal e":    GenderUnknown,
		"Femalee ": GenderUnknown,
	}
	for in, want := range tests {
		if got := NormalizeGender(in); got != want {
			t.Fatalf("NormalizeGender(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeRegionCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want *string
	}{
		{"md", strp("MD")},
		{" va ", strp("VA")},
		{"XX", strp("XX")},
		{"MDX", nil},
		{"M", nil},
		{"", nil},
		{"Maryland", nil},
	}
	for _, tt := range tests {
		got := NormalizeRegionCode(tt.in)
		if (got == nil) != (tt.want == nil) {
			t.Fatalf("NormalizeRegionCode(%q) nil=%v, want nil=%v", tt.in, got == nil, tt.want == nil)
		}
		if got != nil && *got != *tt.want {
			t.Fatalf("NormalizeRegionCode(%q) = %q, want %q", tt.in, *got, *tt.want)
		}
	}
}

func TestHasEdgeSpace(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]bool{
		"":      false,
		"a":     false,
		" a":    true,
		"a\t":   true,
		"a b":   false,
		"\nab":  true,
		"ab\r":  true,
		"a  b ": true,
	} {
		if got := hasEdgeSpace(in); got != want {
			t.Fatalf("hasEdgeSpace(%q) = %v, want %v", in, got, want)
		}
	}
}
