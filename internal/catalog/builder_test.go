package catalog

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverwatch/river-gauge-service/internal/adapter/nwps"
	"github.com/riverwatch/river-gauge-service/internal/adapter/usgs"
	"github.com/riverwatch/river-gauge-service/internal/domain"
	"github.com/riverwatch/river-gauge-service/internal/observability"
)

type fakeUSGS struct {
	series  map[string][]usgs.TimeSeries
	failing map[string]bool
}

func (f *fakeUSGS) FetchRegion(_ context.Context, stateCode string) ([]usgs.TimeSeries, error) {
	if f.failing[stateCode] {
		return nil, errors.New("upstream 503")
	}
	return f.series[stateCode], nil
}

type fakeNWPS struct {
	resp nwps.GaugesResponse
	err  error
}

func (f *fakeNWPS) FetchGauges(_ context.Context) (nwps.GaugesResponse, error) {
	return f.resp, f.err
}

func usgsWireSite(id, name string) usgs.TimeSeries {
	ts := usgs.TimeSeries{}
	ts.SourceInfo.SiteName = name
	ts.SourceInfo.SiteCode = []usgs.Code{{Value: id}}
	ts.SourceInfo.GeoLocation.GeogLocation.Latitude = "30.27"
	ts.SourceInfo.GeoLocation.GeogLocation.Longitude = "-97.74"
	return ts
}

func nwpsGauge(lid string) nwps.Gauge {
	return nwps.Gauge{
		LID:       lid,
		Name:      "Gauge " + lid,
		Latitude:  30.27,
		Longitude: -97.74,
		State:     nwps.StateField{Abbreviation: "TX"},
	}
}

func newTestBuilder(u *fakeUSGS, n *fakeNWPS) *Builder {
	return NewBuilder(u, n, 4, nil, observability.NewMetricsForTesting(), slog.Default())
}

func TestBuildUSGSPartialFailure(t *testing.T) {
	u := &fakeUSGS{
		series:  map[string][]usgs.TimeSeries{"CA": {usgsWireSite("S1", "Sacramento River")}},
		failing: map[string]bool{"TX": true},
	}

	result := newTestBuilder(u, &fakeNWPS{}).BuildUSGS(context.Background())

	assert.Equal(t, domain.ProviderUSGS, result.Provider)
	assert.Equal(t, 49, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)

	require.Len(t, result.Sites, 1)
	assert.Equal(t, "S1", result.Sites[0].ID)
}

func TestBuildUSGSManyFailures(t *testing.T) {
	u := &fakeUSGS{failing: map[string]bool{}}
	for _, region := range Regions()[:10] {
		u.failing[region] = true
	}

	result := newTestBuilder(u, &fakeNWPS{}).BuildUSGS(context.Background())

	assert.Equal(t, 40, result.SuccessCount)
	assert.Equal(t, 10, result.ErrorCount)
	assert.Empty(t, result.Sites)
}

func TestBuildNWPS(t *testing.T) {
	n := &fakeNWPS{resp: nwps.GaugesResponse{Gauges: []nwps.Gauge{nwpsGauge("AUTX2"), nwpsGauge("DALT2")}}}

	result := newTestBuilder(&fakeUSGS{}, n).BuildNWPS(context.Background())

	assert.Equal(t, domain.ProviderNWPS, result.Provider)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 0, result.ErrorCount)
	assert.Len(t, result.Sites, 2)
}

func TestBuildNWPSFailure(t *testing.T) {
	n := &fakeNWPS{err: errors.New("gateway timeout")}

	result := newTestBuilder(&fakeUSGS{}, n).BuildNWPS(context.Background())

	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Empty(t, result.Sites)
}

func TestBuildAll(t *testing.T) {
	u := &fakeUSGS{series: map[string][]usgs.TimeSeries{"CA": {usgsWireSite("S1", "Sacramento River")}}}
	n := &fakeNWPS{resp: nwps.GaugesResponse{Gauges: []nwps.Gauge{nwpsGauge("AUTX2")}}}

	cat, results, err := newTestBuilder(u, n).BuildAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, cat.Len())
	assert.False(t, cat.BuiltAt.IsZero())
	require.Len(t, results, 2)
	assert.Equal(t, domain.ProviderUSGS, results[0].Provider)
	assert.Equal(t, domain.ProviderNWPS, results[1].Provider)

	_, ok := cat.Lookup(domain.ProviderUSGS, "S1")
	assert.True(t, ok)
	_, ok = cat.Lookup(domain.ProviderNWPS, "AUTX2")
	assert.True(t, ok)
}

// One provider failing outright still yields a catalog with the other
// provider's sites.
func TestBuildAllOneProviderDown(t *testing.T) {
	u := &fakeUSGS{series: map[string][]usgs.TimeSeries{"CA": {usgsWireSite("S1", "Sacramento River")}}}
	n := &fakeNWPS{err: errors.New("down")}

	cat, results, err := newTestBuilder(u, n).BuildAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, cat.Len())
	assert.Empty(t, cat.Sites[domain.ProviderNWPS])
	assert.Equal(t, 1, results[1].ErrorCount)
}

func TestBuildAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newTestBuilder(&fakeUSGS{}, &fakeNWPS{}).BuildAll(ctx)
	assert.Error(t, err)
}
