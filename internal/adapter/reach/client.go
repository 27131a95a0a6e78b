// Package reach implements the nearest-reach lookup against the national
// water model streamflow feature services, with a secondary-catalog fallback
// and an LRU cache.
package reach

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/riverwatch/river-gauge-service/internal/domain"
)

// Client queries one reach catalog feature service. Results are
// provider-ranked by distance, nearest first.
type Client struct {
	name       string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a reach catalog client. name labels the catalog in logs
// and metrics ("primary" or "secondary").
func NewClient(name, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		name:       name,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Query returns the features within radiusMeters of the point, nearest
// first. Zero features is a normal outcome, not an error.
func (c *Client) Query(ctx context.Context, lat, lon, radiusMeters float64) ([]Feature, error) {
	params := url.Values{
		"f":              {"json"},
		"geometry":       {fmt.Sprintf("%.6f,%.6f", lon, lat)},
		"geometryType":   {"esriGeometryPoint"},
		"inSR":           {"4326"},
		"distance":       {fmt.Sprintf("%.0f", radiusMeters)},
		"units":          {"esriSRUnit_Meter"},
		"outFields":      {"*"},
		"returnGeometry": {"false"},
	}

	fullURL := c.baseURL + "/query?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s reach query: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s reach catalog error: status %d: %s", c.name, resp.StatusCode, body)
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return payload.Features, nil
}

// Reach catalog wire types (ArcGIS feature service query response).

type response struct {
	Features []Feature `json:"features"`
}

// Feature is one ranked feature with its attribute bag.
type Feature struct {
	Attributes attributes `json:"attributes"`
}

type attributes struct {
	FeatureID     json.Number `json:"feature_id"`
	Name          string      `json:"name"`
	Streamflow    float64     `json:"streamflow"`
	Units         string      `json:"units"`
	ReferenceTime string      `json:"reference_time"`
}

// toDomain converts a wire feature into the domain representation.
func (f Feature) toDomain() domain.ReachFeature {
	unit := "cfs" // model output default when the attribute bag omits units
	if f.Attributes.Units != "" {
		unit = domain.NormalizeUnit(f.Attributes.Units)
	}

	feature := domain.ReachFeature{
		ID:   f.Attributes.FeatureID.String(),
		Name: f.Attributes.Name,
		Flow: f.Attributes.Streamflow,
		Unit: unit,
	}
	if t, err := domain.ParseUpstreamTime(f.Attributes.ReferenceTime); err == nil {
		feature.MeasuredAt = t
	}
	return feature
}
