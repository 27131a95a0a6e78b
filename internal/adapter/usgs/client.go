// Package usgs consumes the USGS instantaneous-values water service and
// normalizes its payloads into the canonical site model.
package usgs

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

	"github.com/sony/gobreaker"

	"github.com/riverwatch/river-gauge-service/internal/domain"
)

// DefaultParameters are the instantaneous-value parameter codes requested in
// bulk queries: discharge, gage height, water temperature, precipitation.
var DefaultParameters = []string{"00060", "00065", "00010", "00045"}

// Client queries the USGS instantaneous-values service. The service is
// rate-limit sensitive; callers pace bulk queries through the catalog
// builder's limiter, and the circuit breaker here keeps a flapping upstream
// from absorbing a whole build.
type Client struct {
	httpClient *http.Client
	baseURL    string
	parameters []string
	circuit    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a USGS client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "usgs",
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
		parameters: DefaultParameters,
		circuit:    cb,
		logger:     logger,
	}
}

// FetchRegion retrieves the active-site instantaneous values for one state
// partition. Returns the raw wire series; normalization happens once all
// partitions are collected so dedup can span partition boundaries.
func (c *Client) FetchRegion(ctx context.Context, stateCode string) ([]TimeSeries, error) {
	params := url.Values{
		"format":      {"json"},
		"stateCd":     {stateCode},
		"parameterCd": {strings.Join(c.parameters, ",")},
		"siteStatus":  {"active"},
	}

	var payload ivResponse
	if err := c.getJSON(ctx, params, &payload); err != nil {
		return nil, fmt.Errorf("fetch region %s: %w", stateCode, err)
	}
	return payload.Value.TimeSeries, nil
}

// FetchHistory retrieves the site's trailing observation window and converts
// it to historical domain series, one per parameter, sentinel-filtered and
// time-ordered.
func (c *Client) FetchHistory(ctx context.Context, siteID string, window time.Duration) ([]domain.TimeSeries, error) {
	days := int(window.Hours() / 24)
	if days < 1 {
		days = 1
	}

	params := url.Values{
		"format":      {"json"},
		"sites":       {siteID},
		"parameterCd": {strings.Join(c.parameters, ",")},
		"period":      {fmt.Sprintf("P%dD", days)},
	}

	var payload ivResponse
	if err := c.getJSON(ctx, params, &payload); err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", siteID, err)
	}
	return HistorySeries(payload.Value.TimeSeries), nil
}

func (c *Client) getJSON(ctx context.Context, params url.Values, out any) error {
	fullURL := c.baseURL + "/?" + params.Encode()

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
			return nil, fmt.Errorf("usgs API error: status %d: %s", resp.StatusCode, body)
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

// USGS wire types. The service wraps everything in value.timeSeries, one
// entry per (site, parameter) pair, with string-typed readings.

type ivResponse struct {
	Value struct {
		TimeSeries []TimeSeries `json:"timeSeries"`
	} `json:"value"`
}

// TimeSeries is one (site, parameter) record from the instantaneous-values
// feed.
type TimeSeries struct {
	SourceInfo SourceInfo `json:"sourceInfo"`
	Variable   Variable   `json:"variable"`
	Values     []ValueSet `json:"values"`
}

// SourceInfo carries the site identity and nested geolocation.
type SourceInfo struct {
	SiteName     string     `json:"siteName"`
	SiteCode     []Code     `json:"siteCode"`
	SiteType     string     `json:"siteTypeCd"`
	SiteProperty []Property `json:"siteProperty"`
	GeoLocation  struct {
		GeogLocation struct {
			// json.Number: the feed has shipped both numeric and quoted
			// coordinates over time.
			Latitude  json.Number `json:"latitude"`
			Longitude json.Number `json:"longitude"`
		} `json:"geogLocation"`
	} `json:"geoLocation"`
}

// Code is the {value} wrapper USGS uses for identifiers.
type Code struct {
	Value string `json:"value"`
}

// Property is a named site attribute, e.g. {name: "stateCd", value: "06"}.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Variable describes the measured parameter.
type Variable struct {
	Name string `json:"variableName"`
	Code []Code `json:"variableCode"`
	Unit struct {
		UnitCode string `json:"unitCode"`
	} `json:"unit"`
}

// ValueSet is one series of raw readings.
type ValueSet struct {
	Points []RawValue `json:"value"`
}

// RawValue is a single string-typed reading.
type RawValue struct {
	Value    string `json:"value"`
	DateTime string `json:"dateTime"`
}

func (ts TimeSeries) siteCode() string {
	if len(ts.SourceInfo.SiteCode) == 0 {
		return ""
	}
	return ts.SourceInfo.SiteCode[0].Value
}

func (ts TimeSeries) parameterCode() string {
	if len(ts.Variable.Code) == 0 {
		return ""
	}
	return ts.Variable.Code[0].Value
}
