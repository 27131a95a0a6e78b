package nwps

import (
	"math"
	"strings"

	"github.com/riverwatch/river-gauge-service/internal/domain"
)

// Normalize maps the bulk gauges payload into canonical sites. Gauges are
// deduplicated by id (first occurrence wins identity fields, later
// occurrences append their readings) and records with invalid coordinates
// are dropped. Missing optional substructures never fail; they resolve to
// documented defaults.
func Normalize(resp GaugesResponse) []domain.SensorSite {
	index := make(map[string]int)
	var sites []domain.SensorSite

	for _, gauge := range resp.Gauges {
		id := gaugeID(gauge)
		if id == "" {
			continue
		}

		idx, seen := index[id]
		if !seen {
			site, ok := newSite(id, gauge)
			if !ok {
				continue
			}
			sites = append(sites, site)
			idx = len(sites) - 1
			index[id] = idx
		}

		if m, ok := observedMeasurement(gauge); ok {
			sites[idx].Readings = append(sites[idx].Readings, m)
		}
	}

	return sites
}

func gaugeID(gauge Gauge) string {
	if gauge.LID != "" {
		return gauge.LID
	}
	return gauge.GaugeID
}

func newSite(id string, gauge Gauge) (domain.SensorSite, bool) {
	if !domain.ValidCoordinates(gauge.Latitude, gauge.Longitude) {
		return domain.SensorSite{}, false
	}

	name := gauge.Name
	if name == "" {
		name = "Unknown"
	}

	site := domain.SensorSite{
		ID:            id,
		Name:          name,
		Latitude:      gauge.Latitude,
		Longitude:     gauge.Longitude,
		RegionCode:    gauge.State.Code(),
		Category:      "unknown",
		Provider:      domain.ProviderNWPS,
		CriticalLevel: gauge.FloodStage,
		StatusText:    statusText(gauge),
	}

	if hasForecast(gauge) {
		site.Capabilities = append(site.Capabilities, domain.CapabilityForecast)
	}

	return site, true
}

// hasForecast probes the optional forecast branch: the capability holds only
// when a forecast status exists and carries a primary value.
func hasForecast(gauge Gauge) bool {
	return gauge.Status.Forecast != nil && gauge.Status.Forecast.Primary != nil
}

// statusText resolves the flood category with the observed → forecast →
// "Unknown" fallback chain and title-cases it for display
// ("no_flooding" → "No Flooding").
func statusText(gauge Gauge) string {
	category := ""
	if gauge.Status.Observed != nil {
		category = gauge.Status.Observed.FloodCategory
	}
	if category == "" && gauge.Status.Forecast != nil {
		category = gauge.Status.Forecast.FloodCategory
	}
	if category == "" {
		category = "Unknown"
	}
	return titleCase(strings.ReplaceAll(category, "_", " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func observedMeasurement(gauge Gauge) (domain.Measurement, bool) {
	obs := gauge.Status.Observed
	if obs == nil || obs.Primary == nil {
		return domain.Measurement{}, false
	}

	v := *obs.Primary
	if math.IsNaN(v) || domain.IsSentinel(v) {
		return domain.Measurement{}, false
	}

	observedAt, err := domain.ParseUpstreamTime(obs.ValidTime)
	if err != nil {
		return domain.Measurement{}, false
	}

	return domain.Measurement{
		ParameterName: "Stage",
		ParameterCode: "stage",
		Value:         v,
		Unit:          domain.NormalizeUnit(obs.PrimaryUnits),
		ObservedAt:    observedAt,
	}, true
}
