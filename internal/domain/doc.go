// Package domain models river monitoring locations and their time series.
//
// # Data Sources
//
// Sites come from two upstream catalogs with unrelated schemas:
//
//	USGS instantaneous values (waterservices.usgs.gov/nwis/iv): queried one
//	US state at a time, returns one record per (site, parameter) pair with
//	nested geolocation and the latest reading. Parameter codes of interest:
//	  00060 discharge (cfs), 00065 gage height (ft),
//	  00010 water temperature (degC), 00045 precipitation (in).
//	NOAA NWPS gauges (api.water.noaa.gov/nwps/v1): one bulk call for all
//	active gauges, each with nested observed/forecast status, flood stage,
//	and a state field that may be either a bare abbreviation string or an
//	object with abbreviation/name members.
//
// Both are reconciled into the canonical [SensorSite] here; the per-provider
// mapping lives in the adapter packages.
//
// # Sentinel Values
//
// Upstream feeds encode "no data" as magic numbers rather than omitting the
// point: the NWPS stage/flow arrays use the -999 family (-999, -9999, ...),
// and USGS emits the no-data value declared per variable, conventionally
// -999999. [FilterRawPoints] and [FilterPoints] strip these at ingestion, so
// a [TimeSeries] never carries sentinels.
//
// # Flood Categories
//
// NWPS flood categories (no_flooding, action, minor, moderate, major) arrive
// snake_cased and are title-cased for display. The category is taken from the
// observed status when present, the forecast status otherwise, and defaults
// to "Unknown".
package domain
