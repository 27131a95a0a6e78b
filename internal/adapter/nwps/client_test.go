package nwps

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverwatch/river-gauge-service/internal/domain"
)

func TestFetchGauges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gauges", r.URL.Path)
		assert.Equal(t, "active", r.URL.Query().Get("status"))
		w.Write([]byte(`{"gauges":[{"lid":"AUTX2","name":"Austin","latitude":30.27,"longitude":-97.74,"state":{"abbreviation":"TX"},"floodStage":21,"status":{"observed":{"primary":4.3,"primaryUnits":"ft","floodCategory":"no_flooding","validTime":"2026-03-01T10:00:00Z"}}}]}`)) //nolint:errcheck
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, slog.Default())

	resp, err := client.FetchGauges(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Gauges, 1)
	assert.Equal(t, "AUTX2", resp.Gauges[0].LID)
	assert.Equal(t, "TX", resp.Gauges[0].State.Code())
	require.NotNil(t, resp.Gauges[0].Status.Observed)
	assert.Equal(t, 4.3, *resp.Gauges[0].Status.Observed.Primary)
}

func TestFetchGaugesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, slog.Default())

	_, err := client.FetchGauges(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestFetchStageFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gauges/AUTX2/stageflow", r.URL.Path)
		w.Write([]byte(`{
			"observed": {"primaryName": "Stage", "primaryUnits": "ft", "data": [
				{"validTime": "2026-03-01T11:00:00Z", "primary": 4.4},
				{"validTime": "2026-03-01T10:00:00Z", "primary": 4.3},
				{"validTime": "2026-03-01T12:00:00Z", "primary": -999}
			]},
			"forecast": {"primaryName": "Stage", "primaryUnits": "ft", "data": [
				{"validTime": "2026-03-01T13:00:00Z", "primary": 4.8}
			]}
		}`)) //nolint:errcheck
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, slog.Default())

	observed, forecast, err := client.FetchStageFlow(context.Background(), "AUTX2")
	require.NoError(t, err)

	assert.Equal(t, domain.SourceHistorical, observed.Kind)
	assert.Equal(t, "ft", observed.Unit)

	// Sentinel dropped, remainder sorted ascending.
	require.Len(t, observed.Points, 2)
	assert.Equal(t, 4.3, observed.Points[0].Value)
	assert.Equal(t, 4.4, observed.Points[1].Value)

	assert.Equal(t, domain.SourceForecast, forecast.Kind)
	require.Len(t, forecast.Points, 1)
	assert.Equal(t, time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC), forecast.Points[0].Time)
}

func TestFetchStageFlowEmptyForecast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"observed": {"data": [{"validTime": "2026-03-01T10:00:00Z", "primary": 4.3}]}, "forecast": {"data": []}}`)) //nolint:errcheck
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, slog.Default())

	observed, forecast, err := client.FetchStageFlow(context.Background(), "AUTX2")
	require.NoError(t, err)

	require.Len(t, observed.Points, 1)
	assert.Equal(t, "Stage", observed.Parameter)
	assert.True(t, forecast.Empty())
}
