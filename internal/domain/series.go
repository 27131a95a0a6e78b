package domain

import "time"

// SourceKind labels where a time series came from.
type SourceKind string

const (
	SourceHistorical SourceKind = "historical"
	SourceForecast   SourceKind = "forecast"
	SourceNowcast    SourceKind = "nowcast"
)

// Point is one (timestamp, value) sample.
type Point struct {
	Time  time.Time `json:"t"`
	Value float64   `json:"v"`
}

// TimeSeries is an ordered sequence of points for one parameter from one
// source kind. Timestamps are non-decreasing and sentinel values are
// filtered before a TimeSeries is constructed.
type TimeSeries struct {
	Kind      SourceKind `json:"kind"`
	Parameter string     `json:"parameter"`
	Code      string     `json:"parameterCode,omitempty"`
	Unit      string     `json:"unit"`
	Points    []Point    `json:"points"`
}

// Empty reports whether the series has no points.
func (ts TimeSeries) Empty() bool { return len(ts.Points) == 0 }

// First returns the earliest point, if any.
func (ts TimeSeries) First() (Point, bool) {
	if len(ts.Points) == 0 {
		return Point{}, false
	}
	return ts.Points[0], true
}

// Last returns the latest point, if any.
func (ts TimeSeries) Last() (Point, bool) {
	if len(ts.Points) == 0 {
		return Point{}, false
	}
	return ts.Points[len(ts.Points)-1], true
}

// Granularity is the chart bucket width selected for a bundle.
type Granularity string

const (
	GranularityHour Granularity = "hour"
	GranularityDay  Granularity = "day"
)

// AnnotationKind distinguishes the chart annotations a bundle can carry.
type AnnotationKind string

const (
	// AnnotationThreshold is a horizontal line at the site's critical level.
	AnnotationThreshold AnnotationKind = "threshold"
	// AnnotationNowMarker is a vertical line at the last observed timestamp.
	AnnotationNowMarker AnnotationKind = "now"
)

// Annotation is a chart overlay computed by the merge engine.
type Annotation struct {
	Kind  AnnotationKind `json:"kind"`
	Label string         `json:"label"`
	Value float64        `json:"value,omitempty"`
	At    time.Time      `json:"at,omitzero"`
}

// MergedSeriesBundle is the chart-ready output of the merge engine: one
// labeled series per source kind that produced data, plus annotations and a
// granularity hint. Bundles are built per request and never persisted.
type MergedSeriesBundle struct {
	SiteID      string       `json:"siteId"`
	Provider    Provider     `json:"provider"`
	Series      []TimeSeries `json:"series"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Granularity Granularity  `json:"granularity"`
}

// SeriesByKind returns the bundle's series for one source kind, if present.
func (b MergedSeriesBundle) SeriesByKind(kind SourceKind) (TimeSeries, bool) {
	for _, ts := range b.Series {
		if ts.Kind == kind {
			return ts, true
		}
	}
	return TimeSeries{}, false
}

// Empty reports whether no source produced any data.
func (b MergedSeriesBundle) Empty() bool {
	for _, ts := range b.Series {
		if !ts.Empty() {
			return false
		}
	}
	return true
}
