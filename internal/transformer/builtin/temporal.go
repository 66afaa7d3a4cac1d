package builtin

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ComposeTimestamp combines a calendar-date token and a clock token into one
// UTC timestamp.
//
// The clock token may use '.' as separator ("14.30.00") and must otherwise be
// strict HH:MM:SS. The date token is parsed permissively (ISO, US slashes,
// month names, ...); only its calendar date is kept. If either part fails the
// result is nil; date-only timestamps are never produced.
func ComposeTimestamp(date, clock string) *time.Time {
	h, m, s, ok := parseClock(clock)
	if !ok {
		return nil
	}
	d := trimEdge(date)
	if d == "" {
		return nil
	}
	parsed, err := dateparse.ParseIn(d, time.UTC)
	if err != nil {
		return nil
	}
	y, mo, day := parsed.Date()
	ts := time.Date(y, mo, day, h, m, s, 0, time.UTC)
	return &ts
}

// parseClock accepts exactly "HH:MM:SS" after rewriting '.' to ':'.
func parseClock(v string) (h, m, s int, ok bool) {
	t := strings.ReplaceAll(trimEdge(v), ".", ":")
	if len(t) != 8 || t[2] != ':' || t[5] != ':' {
		return 0, 0, 0, false
	}
	h, ok1 := twoDigits(t[0:2])
	m, ok2 := twoDigits(t[3:5])
	s, ok3 := twoDigits(t[6:8])
	if !ok1 || !ok2 || !ok3 || h > 23 || m > 59 || s > 59 {
		return 0, 0, 0, false
	}
	return h, m, s, true
}

func twoDigits(p string) (int, bool) {
	if p[0] < '0' || p[0] > '9' || p[1] < '0' || p[1] > '9' {
		return 0, false
	}
	return int(p[0]-'0')*10 + int(p[1]-'0'), true
}
