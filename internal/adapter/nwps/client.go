// Package nwps consumes the NOAA National Water Prediction Service API and
// normalizes its payloads into the canonical site model.
package nwps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/riverwatch/river-gauge-service/internal/domain"
)

// Client queries the NWPS gauges API. Unlike USGS, the bulk catalog comes
// back in a single call; only the per-gauge stage/flow queries fan out.
type Client struct {
	httpClient *http.Client
	baseURL    string
	circuit    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates an NWPS client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "nwps",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit state change", "circuit", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		circuit:    cb,
		logger:     logger,
	}
}

// FetchGauges retrieves all active gauges in one call.
func (c *Client) FetchGauges(ctx context.Context) (GaugesResponse, error) {
	var payload GaugesResponse
	if err := c.getJSON(ctx, "/gauges", url.Values{"status": {"active"}}, &payload); err != nil {
		return GaugesResponse{}, fmt.Errorf("fetch gauges: %w", err)
	}
	return payload, nil
}

// FetchStageFlow retrieves a gauge's observed and forecast series, already
// sentinel-filtered and converted to domain series. Either series may come
// back empty; that is normal for gauges without a published forecast.
func (c *Client) FetchStageFlow(ctx context.Context, lid string) (observed, forecast domain.TimeSeries, err error) {
	var payload StageFlowResponse
	path := "/gauges/" + url.PathEscape(lid) + "/stageflow"
	if err := c.getJSON(ctx, path, nil, &payload); err != nil {
		return domain.TimeSeries{}, domain.TimeSeries{}, fmt.Errorf("fetch stageflow for %s: %w", lid, err)
	}

	observed = seriesData(payload.Observed, domain.SourceHistorical)
	forecast = seriesData(payload.Forecast, domain.SourceForecast)
	return observed, forecast, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("nwps API error: status %d: %s", resp.StatusCode, body)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return body, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(result.([]byte), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// NWPS wire types. Optional substructures are pointers so a missing branch
// decodes to nil instead of a zero value that looks like data.

// GaugesResponse is the bulk gauges payload.
type GaugesResponse struct {
	Gauges []Gauge `json:"gauges"`
}

// Gauge is one monitored point with nested observed/forecast status.
type Gauge struct {
	LID        string     `json:"lid"`
	GaugeID    string     `json:"gaugeId"`
	Name       string     `json:"name"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	State      StateField `json:"state"`
	FloodStage float64    `json:"floodStage"`
	Status     struct {
		Observed *StatusReading `json:"observed"`
		Forecast *StatusReading `json:"forecast"`
	} `json:"status"`
}

// StatusReading is the latest observed or forecast value on a gauge.
type StatusReading struct {
	Primary       *float64 `json:"primary"`
	PrimaryUnits  string   `json:"primaryUnits"`
	FloodCategory string   `json:"floodCategory"`
	ValidTime     string   `json:"validTime"`
}

// StateField tolerates the two shapes the API has used for a gauge's state:
// a bare abbreviation string or an {abbreviation, name} object.
type StateField struct {
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
}

// UnmarshalJSON accepts either encoding.
func (s *StateField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &s.Abbreviation)
	}

	type plain StateField
	return json.Unmarshal(data, (*plain)(s))
}

// Code returns the best available state label, defaulting to "Unknown".
func (s StateField) Code() string {
	if s.Abbreviation != "" {
		return s.Abbreviation
	}
	if s.Name != "" {
		return s.Name
	}
	return "Unknown"
}

// StageFlowResponse is the per-gauge observed/forecast payload. Missing
// values inside the data arrays are sentinel-coded (-999 family).
type StageFlowResponse struct {
	Observed SeriesData `json:"observed"`
	Forecast SeriesData `json:"forecast"`
}

// SeriesData is one direction (observed or forecast) of a stage/flow query.
type SeriesData struct {
	PrimaryName  string        `json:"primaryName"`
	PrimaryUnits string        `json:"primaryUnits"`
	Data         []SeriesPoint `json:"data"`
}

// SeriesPoint is a single stage/flow sample.
type SeriesPoint struct {
	ValidTime string  `json:"validTime"`
	Primary   float64 `json:"primary"`
}

func seriesData(data SeriesData, kind domain.SourceKind) domain.TimeSeries {
	points := make([]domain.Point, 0, len(data.Data))
	for _, p := range data.Data {
		t, err := domain.ParseUpstreamTime(p.ValidTime)
		if err != nil {
			continue
		}
		points = append(points, domain.Point{Time: t, Value: p.Primary})
	}

	points = domain.FilterPoints(points)
	domain.SortPoints(points)

	parameter := data.PrimaryName
	if parameter == "" {
		parameter = "Stage"
	}

	return domain.TimeSeries{
		Kind:      kind,
		Parameter: parameter,
		Unit:      domain.NormalizeUnit(data.PrimaryUnits),
		Points:    points,
	}
}
