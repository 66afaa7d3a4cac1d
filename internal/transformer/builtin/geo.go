package builtin

import (
	"math"
	"strconv"
)

// Plausible bounding box for the region the source covers (contiguous US).
const (
	MinLatitude  = 24.0
	MaxLatitude  = 50.0
	MinLongitude = -125.0
	MaxLongitude = -65.0
)

// ValidateCoordinates coerces raw latitude/longitude tokens to numbers.
//
// Order of checks:
//  1. non-numeric (or NaN/Inf) -> nil for that axis;
//  2. either axis exactly 0 -> both nil (0 means "no fix", and a half-zero
//     pair is not a point);
//  3. each axis outside the bounding box -> nil for that axis only.
func ValidateCoordinates(lat, lon string) (*float64, *float64) {
	la := parseFloat(lat)
	lo := parseFloat(lon)

	if (la != nil && *la == 0) || (lo != nil && *lo == 0) {
		return nil, nil
	}
	if la != nil && (*la < MinLatitude || *la > MaxLatitude) {
		la = nil
	}
	if lo != nil && (*lo < MinLongitude || *lo > MaxLongitude) {
		lo = nil
	}
	return la, lo
}

func parseFloat(v string) *float64 {
	s := trimEdge(v)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
