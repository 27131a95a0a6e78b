package domain

import (
	"math"
	"time"
)

// Provider identifies which upstream catalog a site originates from.
type Provider string

const (
	ProviderUSGS Provider = "usgs"
	ProviderNWPS Provider = "nwps"
)

// ParseProvider validates a provider string from an external caller.
func ParseProvider(s string) (Provider, bool) {
	switch Provider(s) {
	case ProviderUSGS, ProviderNWPS:
		return Provider(s), true
	default:
		return "", false
	}
}

// Capability is a derived feature flag on a site.
type Capability string

// CapabilityForecast marks sites whose provider publishes a forecast series.
const CapabilityForecast Capability = "hasForecast"

// Measurement is a single latest-value reading attached to a site.
// Immutable once created.
type Measurement struct {
	ParameterName string    `json:"parameterName"`
	ParameterCode string    `json:"parameterCode"`
	Value         float64   `json:"value"`
	Unit          string    `json:"unit"`
	ObservedAt    time.Time `json:"observedAt"`
}

// SensorSite is the canonical unified entity for a monitored location.
// Coordinates are validated at normalization time; a SensorSite never
// carries NaN or out-of-range coordinates.
type SensorSite struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Latitude      float64       `json:"latitude"`
	Longitude     float64       `json:"longitude"`
	RegionCode    string        `json:"regionCode"`
	Category      string        `json:"category"`
	Readings      []Measurement `json:"currentReadings,omitempty"`
	Capabilities  []Capability  `json:"capabilityFlags,omitempty"`
	Provider      Provider      `json:"provider"`
	CriticalLevel float64       `json:"criticalLevel,omitempty"`
	StatusText    string        `json:"status,omitempty"`
}

// HasCapability reports whether the site carries the given flag.
func (s SensorSite) HasCapability(c Capability) bool {
	for _, have := range s.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// ValidCoordinates reports whether a WGS-84 pair is usable. NaN and
// out-of-range values fail; so does the (0, 0) null-island placeholder some
// upstream records carry instead of a real location.
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	if lat == 0 && lon == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Catalog maps each provider to its ordered site list. A catalog is built
// fresh on every bulk load and swapped whole; it is never patched in place.
type Catalog struct {
	Sites   map[Provider][]SensorSite `json:"sites"`
	BuiltAt time.Time                 `json:"builtAt"`
}

// NewCatalog returns an empty catalog with all provider keys present.
func NewCatalog() *Catalog {
	return &Catalog{
		Sites: map[Provider][]SensorSite{
			ProviderUSGS: {},
			ProviderNWPS: {},
		},
	}
}

// Lookup finds a site by provider-scoped id.
func (c *Catalog) Lookup(p Provider, id string) (SensorSite, bool) {
	for _, site := range c.Sites[p] {
		if site.ID == id {
			return site, true
		}
	}
	return SensorSite{}, false
}

// FilterByRegion returns the per-provider site lists restricted to one
// region code. An empty code returns everything.
func (c *Catalog) FilterByRegion(code string) map[Provider][]SensorSite {
	if code == "" {
		return c.Sites
	}
	filtered := make(map[Provider][]SensorSite, len(c.Sites))
	for p, sites := range c.Sites {
		kept := []SensorSite{}
		for _, site := range sites {
			if site.RegionCode == code {
				kept = append(kept, site)
			}
		}
		filtered[p] = kept
	}
	return filtered
}

// Len returns the total site count across providers.
func (c *Catalog) Len() int {
	n := 0
	for _, sites := range c.Sites {
		n += len(sites)
	}
	return n
}

// CatalogBuildResult reports the outcome of one provider's bulk fetch.
// ErrorCount counts failed partitions, not dropped records; data-quality
// drops during normalization are not faults.
type CatalogBuildResult struct {
	Provider     Provider     `json:"provider"`
	Sites        []SensorSite `json:"-"`
	SuccessCount int          `json:"successCount"`
	ErrorCount   int          `json:"errorCount"`
}
