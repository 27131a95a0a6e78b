package usgs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverwatch/river-gauge-service/internal/domain"
)

func wireSeries(site, name, lat, lon, param, unit, value, when string) TimeSeries {
	ts := TimeSeries{}
	ts.SourceInfo.SiteName = name
	ts.SourceInfo.SiteCode = []Code{{Value: site}}
	ts.SourceInfo.SiteType = "ST"
	ts.SourceInfo.SiteProperty = []Property{{Name: "stateCd", Value: "TX"}}
	ts.SourceInfo.GeoLocation.GeogLocation.Latitude = json.Number(lat)
	ts.SourceInfo.GeoLocation.GeogLocation.Longitude = json.Number(lon)
	ts.Variable.Name = param
	ts.Variable.Code = []Code{{Value: "00065"}}
	ts.Variable.Unit.UnitCode = unit
	if value != "" {
		ts.Values = []ValueSet{{Points: []RawValue{{Value: value, DateTime: when}}}}
	}
	return ts
}

func TestNormalizeDeduplicatesSites(t *testing.T) {
	first := wireSeries("08158000", "Colorado Rv at Austin", "30.27", "-97.74", "Gage height", "ft", "4.2", "2026-03-01T10:00:00Z")
	second := wireSeries("08158000", "Renamed Later", "31.00", "-98.00", "Discharge", "ft3/s", "1200", "2026-03-01T10:00:00Z")
	second.Variable.Code = []Code{{Value: "00060"}}

	sites := Normalize([][]TimeSeries{{first}, {second}})

	require.Len(t, sites, 1)
	site := sites[0]

	// First occurrence wins identity fields.
	assert.Equal(t, "08158000", site.ID)
	assert.Equal(t, "Colorado Rv at Austin", site.Name)
	assert.Equal(t, 30.27, site.Latitude)
	assert.Equal(t, "TX", site.RegionCode)
	assert.Equal(t, "ST", site.Category)
	assert.Equal(t, domain.ProviderUSGS, site.Provider)

	// Both readings survive, in partition issue order.
	require.Len(t, site.Readings, 2)
	assert.Equal(t, "00065", site.Readings[0].ParameterCode)
	assert.Equal(t, 4.2, site.Readings[0].Value)
	assert.Equal(t, "00060", site.Readings[1].ParameterCode)
	assert.Equal(t, "cfs", site.Readings[1].Unit)
}

func TestNormalizeDropsInvalidCoordinates(t *testing.T) {
	nullIsland := wireSeries("111", "Null Island", "0", "0", "Gage height", "ft", "1.0", "2026-03-01T10:00:00Z")
	unparseable := wireSeries("222", "Bad Coords", "abc", "-97.74", "Gage height", "ft", "1.0", "2026-03-01T10:00:00Z")
	valid := wireSeries("333", "Good Site", "30.27", "-97.74", "Gage height", "ft", "1.0", "2026-03-01T10:00:00Z")

	sites := Normalize([][]TimeSeries{{nullIsland, unparseable, valid}})

	require.Len(t, sites, 1)
	assert.Equal(t, "333", sites[0].ID)
}

func TestNormalizeSkipsSentinelReadings(t *testing.T) {
	series := wireSeries("08158000", "Site", "30.27", "-97.74", "Gage height", "ft", "-999999", "2026-03-01T10:00:00Z")

	sites := Normalize([][]TimeSeries{{series}})

	require.Len(t, sites, 1)
	assert.Empty(t, sites[0].Readings)
}

func TestNormalizeMissingSiteCode(t *testing.T) {
	series := wireSeries("", "Anonymous", "30.27", "-97.74", "Gage height", "ft", "1.0", "2026-03-01T10:00:00Z")
	series.SourceInfo.SiteCode = nil

	assert.Empty(t, Normalize([][]TimeSeries{{series}}))
}

func TestNormalizeIdempotent(t *testing.T) {
	batches := [][]TimeSeries{
		{wireSeries("08158000", "Site A", "30.27", "-97.74", "Gage height", "ft", "4.2", "2026-03-01T10:00:00Z")},
		{wireSeries("08158922", "Site B", "30.30", "-97.80", "Discharge", "ft3/s", "900", "2026-03-01T10:05:00Z")},
	}

	first := Normalize(batches)
	second := Normalize(batches)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("normalize not deterministic (-first +second):\n%s", diff)
	}
}

func TestHistorySeries(t *testing.T) {
	series := wireSeries("08158000", "Site", "30.27", "-97.74", "Gage height, ft", "ft", "", "")
	series.Values = []ValueSet{{Points: []RawValue{
		{Value: "4.4", DateTime: "2026-03-01T12:00:00Z"},
		{Value: "-999", DateTime: "2026-03-01T11:00:00Z"},
		{Value: "4.2", DateTime: "2026-03-01T10:00:00Z"},
	}}}

	empty := wireSeries("08158000", "Site", "30.27", "-97.74", "Temperature", "deg C", "", "")
	empty.Values = []ValueSet{{Points: []RawValue{{Value: "-999999", DateTime: "2026-03-01T10:00:00Z"}}}}

	got := HistorySeries([]TimeSeries{series, empty})

	// The all-sentinel series is dropped entirely.
	require.Len(t, got, 1)
	ts := got[0]
	assert.Equal(t, domain.SourceHistorical, ts.Kind)
	assert.Equal(t, "00065", ts.Code)
	assert.Equal(t, "ft", ts.Unit)

	// Sentinel filtered, remainder sorted ascending.
	require.Len(t, ts.Points, 2)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), ts.Points[0].Time)
	assert.Equal(t, 4.2, ts.Points[0].Value)
	assert.Equal(t, 4.4, ts.Points[1].Value)
}
