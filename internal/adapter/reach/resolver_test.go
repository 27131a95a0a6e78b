package reach

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverwatch/river-gauge-service/internal/observability"
)

func featureServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("f"))
		assert.Equal(t, "esriGeometryPoint", r.URL.Query().Get("geometryType"))
		w.Write([]byte(body)) //nolint:errcheck
	}))
	t.Cleanup(server.Close)
	return server
}

func failingServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, name, url string) *Client {
	t.Helper()
	return NewClient(name, url, 5*time.Second, slog.Default())
}

func TestFindNearestPrimaryHit(t *testing.T) {
	primary := featureServer(t, `{"features":[
		{"attributes":{"feature_id":101,"name":"Colorado River","streamflow":850.5,"units":"cfs","reference_time":"2026-03-01T10:00:00Z"}},
		{"attributes":{"feature_id":102,"name":"Farther Reach","streamflow":20,"units":"cfs"}}
	]}`)

	r := NewResolver(newTestClient(t, "primary", primary.URL), nil, observability.NewMetricsForTesting(), slog.Default())

	feature, ok := r.FindNearest(context.Background(), 30.27, -97.74, 2000)
	require.True(t, ok)

	// Index 0 is the nearest ranked feature.
	assert.Equal(t, "101", feature.ID)
	assert.Equal(t, "Colorado River", feature.Name)
	assert.Equal(t, 850.5, feature.Flow)
	assert.Equal(t, "cfs", feature.Unit)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), feature.MeasuredAt)
}

func TestFindNearestFallsBackToSecondary(t *testing.T) {
	primary := featureServer(t, `{"features":[]}`)
	secondary := featureServer(t, `{"features":[{"attributes":{"feature_id":42,"name":"Backup Reach","streamflow":12.5}}]}`)

	r := NewResolver(
		newTestClient(t, "primary", primary.URL),
		newTestClient(t, "secondary", secondary.URL),
		observability.NewMetricsForTesting(),
		slog.Default(),
	)

	feature, ok := r.FindNearest(context.Background(), 30.27, -97.74, 2000)
	require.True(t, ok)
	assert.Equal(t, "42", feature.ID)
	// Missing units default to the model output unit.
	assert.Equal(t, "cfs", feature.Unit)
}

func TestFindNearestSecondaryOnPrimaryError(t *testing.T) {
	primary := failingServer(t)
	secondary := featureServer(t, `{"features":[{"attributes":{"feature_id":7,"streamflow":3.2,"units":"cfs"}}]}`)

	r := NewResolver(
		newTestClient(t, "primary", primary.URL),
		newTestClient(t, "secondary", secondary.URL),
		observability.NewMetricsForTesting(),
		slog.Default(),
	)

	feature, ok := r.FindNearest(context.Background(), 30.27, -97.74, 2000)
	require.True(t, ok)
	assert.Equal(t, "7", feature.ID)
}

func TestFindNearestBothMiss(t *testing.T) {
	primary := failingServer(t)
	secondary := featureServer(t, `{"features":[]}`)

	r := NewResolver(
		newTestClient(t, "primary", primary.URL),
		newTestClient(t, "secondary", secondary.URL),
		observability.NewMetricsForTesting(),
		slog.Default(),
	)

	_, ok := r.FindNearest(context.Background(), 30.27, -97.74, 2000)
	assert.False(t, ok)
}

func TestFindNearestNoSecondary(t *testing.T) {
	primary := featureServer(t, `{"features":[]}`)

	r := NewResolver(newTestClient(t, "primary", primary.URL), nil, observability.NewMetricsForTesting(), slog.Default())

	_, ok := r.FindNearest(context.Background(), 30.27, -97.74, 2000)
	assert.False(t, ok)
}
