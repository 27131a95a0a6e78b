package domain

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// sentinelValues are the provider "missing data" codes observed across the
// USGS and NWPS feeds. Matched exactly; legitimate negative readings (e.g.
// sub-zero temperatures) pass through.
var sentinelValues = map[float64]struct{}{
	-999:    {},
	-999.99: {},
	-9999:   {},
	-99999:  {},
	-999999: {},
}

// IsSentinel reports whether a value is a known missing-data placeholder.
func IsSentinel(v float64) bool {
	_, ok := sentinelValues[v]
	return ok
}

// RawPoint is an upstream sample before validation. Both fields arrive as
// strings in the USGS payloads.
type RawPoint struct {
	Time  string
	Value string
}

// FilterRawPoints parses raw samples into points, dropping any whose value
// is unparseable, NaN, or a sentinel, or whose timestamp cannot be parsed.
// Relative order of the surviving points is preserved.
func FilterRawPoints(raw []RawPoint) []Point {
	points := make([]Point, 0, len(raw))
	for _, rp := range raw {
		v, err := strconv.ParseFloat(strings.TrimSpace(rp.Value), 64)
		if err != nil || math.IsNaN(v) || IsSentinel(v) {
			continue
		}
		t, err := ParseUpstreamTime(rp.Time)
		if err != nil {
			continue
		}
		points = append(points, Point{Time: t, Value: v})
	}
	return points
}

// FilterPoints drops NaN and sentinel values from already-typed points,
// preserving order.
func FilterPoints(points []Point) []Point {
	kept := make([]Point, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.Value) || IsSentinel(p.Value) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// SortPoints orders points by ascending timestamp, the invariant every
// TimeSeries must satisfy. Sorting is stable so equal timestamps keep their
// upstream order.
func SortPoints(points []Point) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
}

// ParseUpstreamTime parses the timestamp formats the upstream feeds use:
// RFC 3339 with either a numeric offset (USGS) or Zulu suffix (NWPS).
func ParseUpstreamTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// unitAliases maps upstream unit spellings to their canonical tag.
var unitAliases = map[string]string{
	"ft3/s": "cfs",
	"cfs":   "cfs",
	"kcfs":  "kcfs",
	"ft":    "ft",
	"in":    "in",
	"deg c": "degC",
	"deg f": "degF",
}

// NormalizeUnit maps an upstream unit code to its canonical tag, falling
// back to the trimmed original for unknown codes and "ft" when empty (the
// NWPS default for stage readings).
func NormalizeUnit(unit string) string {
	trimmed := strings.TrimSpace(unit)
	if trimmed == "" {
		return "ft"
	}
	if canonical, ok := unitAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}
