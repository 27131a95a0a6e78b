package usgs

import (
	"math"
	"strconv"
	"strings"

	"github.com/riverwatch/river-gauge-service/internal/domain"
)

// Normalize reconciles partitioned instantaneous-values payloads into
// canonical sites. batches must be in partition issue order: the first
// occurrence of a site id wins its identity fields, and every later
// occurrence appends its latest reading, so measurement order follows the
// order partitions were issued.
//
// Records with unparseable or out-of-range coordinates are dropped silently;
// that is data-quality filtering, not a fault.
func Normalize(batches [][]TimeSeries) []domain.SensorSite {
	index := make(map[string]int)
	var sites []domain.SensorSite

	for _, batch := range batches {
		for _, series := range batch {
			code := series.siteCode()
			if code == "" {
				continue
			}

			idx, seen := index[code]
			if !seen {
				site, ok := newSite(code, series)
				if !ok {
					continue
				}
				sites = append(sites, site)
				idx = len(sites) - 1
				index[code] = idx
			}

			if m, ok := latestMeasurement(series); ok {
				sites[idx].Readings = append(sites[idx].Readings, m)
			}
		}
	}

	return sites
}

func newSite(code string, series TimeSeries) (domain.SensorSite, bool) {
	src := series.SourceInfo

	lat, errLat := src.GeoLocation.GeogLocation.Latitude.Float64()
	lon, errLon := src.GeoLocation.GeogLocation.Longitude.Float64()
	if errLat != nil || errLon != nil || !domain.ValidCoordinates(lat, lon) {
		return domain.SensorSite{}, false
	}

	return domain.SensorSite{
		ID:         code,
		Name:       src.SiteName,
		Latitude:   lat,
		Longitude:  lon,
		RegionCode: siteProperty(src, "stateCd", "Unknown"),
		Category:   category(src),
		Provider:   domain.ProviderUSGS,
	}, true
}

func category(src SourceInfo) string {
	if src.SiteType != "" {
		return src.SiteType
	}
	return "Stream"
}

func siteProperty(src SourceInfo, name, fallback string) string {
	for _, p := range src.SiteProperty {
		if p.Name == name && p.Value != "" {
			return p.Value
		}
	}
	return fallback
}

// latestMeasurement extracts the newest reading from a wire series. USGS
// orders the value array newest-first for instantaneous queries.
func latestMeasurement(series TimeSeries) (domain.Measurement, bool) {
	if len(series.Values) == 0 || len(series.Values[0].Points) == 0 {
		return domain.Measurement{}, false
	}

	raw := series.Values[0].Points[0]
	v, err := strconv.ParseFloat(strings.TrimSpace(raw.Value), 64)
	if err != nil || math.IsNaN(v) || domain.IsSentinel(v) {
		return domain.Measurement{}, false
	}

	observedAt, err := domain.ParseUpstreamTime(raw.DateTime)
	if err != nil {
		return domain.Measurement{}, false
	}

	return domain.Measurement{
		ParameterName: series.Variable.Name,
		ParameterCode: series.parameterCode(),
		Value:         v,
		Unit:          domain.NormalizeUnit(series.Variable.Unit.UnitCode),
		ObservedAt:    observedAt,
	}, true
}

// HistorySeries converts wire series from a trailing-window query into
// historical domain series, one per parameter, sentinel-filtered and sorted
// ascending. Series left with no valid points are dropped.
func HistorySeries(wire []TimeSeries) []domain.TimeSeries {
	out := make([]domain.TimeSeries, 0, len(wire))
	for _, series := range wire {
		if len(series.Values) == 0 {
			continue
		}

		raw := make([]domain.RawPoint, 0, len(series.Values[0].Points))
		for _, p := range series.Values[0].Points {
			raw = append(raw, domain.RawPoint{Time: p.DateTime, Value: p.Value})
		}

		points := domain.FilterRawPoints(raw)
		if len(points) == 0 {
			continue
		}
		domain.SortPoints(points)

		out = append(out, domain.TimeSeries{
			Kind:      domain.SourceHistorical,
			Parameter: series.Variable.Name,
			Code:      series.parameterCode(),
			Unit:      domain.NormalizeUnit(series.Variable.Unit.UnitCode),
			Points:    points,
		})
	}
	return out
}
