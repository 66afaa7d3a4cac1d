package builtin

import (
	"testing"
	"time"
)

func TestComposeTimestamp(t *testing.T) {
	t.Parallel()

	at := func(y int, mo time.Month, d, h, mi, s int) *time.Time {
		ts := time.Date(y, mo, d, h, mi, s, 0, time.UTC)
		return &ts
	}

	tests := []struct {
		name  string
		date  string
		clock string
		want  *time.Time
	}{
		{"iso_date_colon_time", "2020-05-01", "14:30:00", at(2020, 5, 1, 14, 30, 0)},
		{"dotted_time", "2020-05-01", "14.30.00", at(2020, 5, 1, 14, 30, 0)},
		{"us_slash_date", "05/01/2020", "08:05:09", at(2020, 5, 1, 8, 5, 9)},
		{"date_with_midnight_suffix", "05/01/2020 00:00:00", "23:59:59", at(2020, 5, 1, 23, 59, 59)},
		{"invalid_time_nulls_all", "2020-05-01", "99.99.99", nil},
		{"short_time", "2020-05-01", "9:30:00", nil},
		{"time_without_seconds", "2020-05-01", "14:30", nil},
		{"empty_time", "2020-05-01", "", nil},
		{"bad_date", "not a date", "14:30:00", nil},
		{"empty_date", "", "14:30:00", nil},
		{"letters_in_time", "2020-05-01", "1a:30:00", nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ComposeTimestamp(tt.date, tt.clock)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("ComposeTimestamp(%q, %q) = %v, want nil", tt.date, tt.clock, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ComposeTimestamp(%q, %q) = nil, want %v", tt.date, tt.clock, tt.want)
			}
			if !got.Equal(*tt.want) {
				t.Fatalf("ComposeTimestamp(%q, %q) = %v, want %v", tt.date, tt.clock, got, tt.want)
			}
		})
	}
}
