// Package series builds chart-ready merged bundles on demand. A bundle
// combines up to three sources for one site: observed history, the provider
// forecast, and a synthesized nowcast from the nearest model reach. Sources
// are fetched concurrently and a source that fails or returns nothing is
// simply absent from the bundle; partial data is the normal case, not an
// error.
package series

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/riverwatch/river-gauge-service/internal/domain"
	"github.com/riverwatch/river-gauge-service/internal/observability"
)

// granularityCutoff is the observed-to-forecast span above which charts
// switch from hourly to daily buckets.
const granularityCutoff = 72 * time.Hour

// nowcastPoints is how many hourly samples a synthesized nowcast carries.
const nowcastPoints = 6

// HistoryFetcher retrieves recent observed series for a USGS site.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, siteID string, window time.Duration) ([]domain.TimeSeries, error)
}

// StageFlowFetcher retrieves the observed and forecast stage series for an
// NWPS gauge.
type StageFlowFetcher interface {
	FetchStageFlow(ctx context.Context, lid string) (observed, forecast domain.TimeSeries, err error)
}

// Engine merges the three sources into one bundle per request. Bundles are
// never cached or persisted.
type Engine struct {
	history   HistoryFetcher
	stageflow StageFlowFetcher
	resolver  domain.ReachResolver

	window  time.Duration
	radius  float64
	horizon time.Duration

	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEngine creates a merge engine. window bounds the observed history
// fetch, radius bounds the reach lookup in meters, and horizon caps the
// synthesized nowcast span.
func NewEngine(
	history HistoryFetcher,
	stageflow StageFlowFetcher,
	resolver domain.ReachResolver,
	window time.Duration,
	radius float64,
	horizon time.Duration,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		history:   history,
		stageflow: stageflow,
		resolver:  resolver,
		window:    window,
		radius:    radius,
		horizon:   horizon,
		logger:    logger,
		metrics:   metrics,
	}
}

// BuildBundle assembles the merged bundle for one site. Every source is
// best-effort: failures are logged and counted, and the bundle carries
// whatever did arrive. An empty bundle is a valid outcome for a site with no
// recent data.
func (e *Engine) BuildBundle(ctx context.Context, site domain.SensorSite) domain.MergedSeriesBundle {
	e.metrics.MergeRequests.Inc()
	started := time.Now()
	defer func() {
		e.metrics.MergeDuration.Observe(time.Since(started).Seconds())
	}()

	var (
		observed domain.TimeSeries
		forecast domain.TimeSeries
		nowcast  domain.TimeSeries
		wg       sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		observed, forecast = e.fetchProviderSeries(ctx, site)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		nowcast = e.fetchNowcast(ctx, site)
	}()

	wg.Wait()

	observed.Points = domain.FilterPoints(observed.Points)
	forecast.Points = domain.FilterPoints(forecast.Points)

	stitchContinuity(&observed, &forecast)

	bundle := domain.MergedSeriesBundle{
		SiteID:      site.ID,
		Provider:    site.Provider,
		Granularity: selectGranularity(observed, forecast),
	}
	for _, ts := range []domain.TimeSeries{observed, forecast, nowcast} {
		if !ts.Empty() {
			bundle.Series = append(bundle.Series, ts)
		}
	}
	bundle.Annotations = buildAnnotations(site, observed, forecast)

	if bundle.Empty() {
		e.logger.Debug("empty bundle", "provider", site.Provider, "site", site.ID)
	}
	return bundle
}

// fetchProviderSeries retrieves observed (and for NWPS, forecast) data from
// the site's own provider.
func (e *Engine) fetchProviderSeries(ctx context.Context, site domain.SensorSite) (observed, forecast domain.TimeSeries) {
	switch site.Provider {
	case domain.ProviderUSGS:
		all, err := e.history.FetchHistory(ctx, site.ID, e.window)
		if err != nil {
			e.logger.Warn("history fetch failed", "site", site.ID, "error", err)
			e.metrics.MergeSourceMiss.WithLabelValues(string(domain.SourceHistorical)).Inc()
			return observed, forecast
		}
		observed = primarySeries(all)
		if observed.Empty() {
			e.metrics.MergeSourceMiss.WithLabelValues(string(domain.SourceHistorical)).Inc()
		}
		return observed, forecast

	case domain.ProviderNWPS:
		obs, fc, err := e.stageflow.FetchStageFlow(ctx, site.ID)
		if err != nil {
			e.logger.Warn("stageflow fetch failed", "site", site.ID, "error", err)
			e.metrics.MergeSourceMiss.WithLabelValues(string(domain.SourceHistorical)).Inc()
			e.metrics.MergeSourceMiss.WithLabelValues(string(domain.SourceForecast)).Inc()
			return observed, forecast
		}
		if obs.Empty() {
			e.metrics.MergeSourceMiss.WithLabelValues(string(domain.SourceHistorical)).Inc()
		}
		if !site.HasCapability(domain.CapabilityForecast) {
			fc = domain.TimeSeries{Kind: domain.SourceForecast}
		}
		if fc.Empty() {
			e.metrics.MergeSourceMiss.WithLabelValues(string(domain.SourceForecast)).Inc()
		}
		return obs, fc
	}

	return observed, forecast
}

// fetchNowcast resolves the nearest model reach and synthesizes a short
// constant-value series from its current streamflow. A reach carries only
// one instantaneous value, so the series is an approximation to give charts
// a model-derived band rather than a true model trace.
func (e *Engine) fetchNowcast(ctx context.Context, site domain.SensorSite) domain.TimeSeries {
	feature, ok := e.resolver.FindNearest(ctx, site.Latitude, site.Longitude, e.radius)
	if !ok {
		e.metrics.MergeSourceMiss.WithLabelValues(string(domain.SourceNowcast)).Inc()
		return domain.TimeSeries{Kind: domain.SourceNowcast}
	}
	return e.synthesizeNowcast(feature)
}

func (e *Engine) synthesizeNowcast(feature domain.ReachFeature) domain.TimeSeries {
	count := nowcastPoints
	if e.horizon > 0 {
		if n := int(e.horizon / time.Hour); n > 0 && n < count {
			count = n
		}
	}

	start := domain.Now().Truncate(time.Hour)
	points := make([]domain.Point, 0, count)
	for i := range count {
		points = append(points, domain.Point{
			Time:  start.Add(time.Duration(i) * time.Hour),
			Value: feature.Flow,
		})
	}

	return domain.TimeSeries{
		Kind:      domain.SourceNowcast,
		Parameter: "Streamflow (model)",
		Code:      feature.ID,
		Unit:      feature.Unit,
		Points:    points,
	}
}

// primarySeries picks the series to chart from a multi-parameter history
// payload: gage height when present, then discharge, then whatever came
// first.
func primarySeries(all []domain.TimeSeries) domain.TimeSeries {
	for _, code := range []string{"00065", "00060"} {
		for _, ts := range all {
			if ts.Code == code && !ts.Empty() {
				return ts
			}
		}
	}
	for _, ts := range all {
		if !ts.Empty() {
			return ts
		}
	}
	return domain.TimeSeries{Kind: domain.SourceHistorical}
}

// stitchContinuity prepends the last observed point to the forecast so the
// chart draws an unbroken line across the observed/forecast boundary. The
// duplicated point stays in the observed series too; it is a rendering aid,
// not a second sample.
func stitchContinuity(observed, forecast *domain.TimeSeries) {
	last, ok := observed.Last()
	if !ok || forecast.Empty() {
		return
	}
	first, _ := forecast.First()
	if !first.Time.After(last.Time) {
		return
	}
	forecast.Points = append([]domain.Point{last}, forecast.Points...)
}

// selectGranularity picks hourly buckets for short spans and daily buckets
// when the observed-to-forecast span exceeds the cutoff. When either side is
// missing the span rule cannot apply and charts default to hourly.
func selectGranularity(observed, forecast domain.TimeSeries) domain.Granularity {
	first, okFirst := observed.First()
	last, okLast := forecast.Last()
	if !okFirst || !okLast {
		return domain.GranularityHour
	}
	if last.Time.Sub(first.Time) > granularityCutoff {
		return domain.GranularityDay
	}
	return domain.GranularityHour
}

// buildAnnotations computes the chart overlays: a threshold line when the
// site has a flood stage, and a now marker at the observed/forecast boundary
// when both sides have data.
func buildAnnotations(site domain.SensorSite, observed, forecast domain.TimeSeries) []domain.Annotation {
	var annotations []domain.Annotation

	if site.CriticalLevel > 0 {
		annotations = append(annotations, domain.Annotation{
			Kind:  domain.AnnotationThreshold,
			Label: "Flood stage",
			Value: site.CriticalLevel,
		})
	}

	if last, ok := observed.Last(); ok && !forecast.Empty() {
		annotations = append(annotations, domain.Annotation{
			Kind:  domain.AnnotationNowMarker,
			Label: "Now",
			At:    last.Time,
		})
	}

	return annotations
}
