// Package catalog builds and holds the unified site catalog. A bulk load
// fans partitioned USGS fetches and the NWPS gauge listing out concurrently,
// normalizes both payloads, and assembles a fresh immutable catalog that the
// coordinator swaps in whole.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/riverwatch/river-gauge-service/internal/adapter/nwps"
	"github.com/riverwatch/river-gauge-service/internal/adapter/usgs"
	"github.com/riverwatch/river-gauge-service/internal/domain"
	"github.com/riverwatch/river-gauge-service/internal/observability"
)

type usgsSource interface {
	FetchRegion(ctx context.Context, stateCode string) ([]usgs.TimeSeries, error)
}

type nwpsSource interface {
	FetchGauges(ctx context.Context) (nwps.GaugesResponse, error)
}

// Builder assembles the full catalog from both providers.
type Builder struct {
	usgs        usgsSource
	nwps        nwpsSource
	regions     []string
	concurrency int
	limiter     *rate.Limiter
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewBuilder creates a catalog builder. fetchInterval is the minimum spacing
// between outbound partition requests.
func NewBuilder(
	usgsClient usgsSource,
	nwpsClient nwpsSource,
	concurrency int,
	limiter *rate.Limiter,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Builder {
	return &Builder{
		usgs:        usgsClient,
		nwps:        nwpsClient,
		regions:     Regions(),
		concurrency: concurrency,
		limiter:     limiter,
		logger:      logger,
		metrics:     metrics,
	}
}

// BuildUSGS fetches every regional partition and normalizes the combined
// payload. Failed partitions are counted and skipped; whatever regions did
// respond still produce a usable result.
func (b *Builder) BuildUSGS(ctx context.Context) domain.CatalogBuildResult {
	batches, succeeded, failed := fetchPartitions(ctx, b.regions, b.concurrency, b.limiter, b.logger,
		func(ctx context.Context, region string) ([]usgs.TimeSeries, error) {
			return b.usgs.FetchRegion(ctx, region)
		})

	b.metrics.PartitionsFetched.Add(float64(succeeded))
	b.metrics.PartitionErrors.Add(float64(failed))

	sites := usgs.Normalize(batches)
	b.logger.Info("usgs catalog partition sweep complete",
		"regions", len(b.regions),
		"succeeded", succeeded,
		"failed", failed,
		"sites", len(sites),
	)

	return domain.CatalogBuildResult{
		Provider:     domain.ProviderUSGS,
		Sites:        sites,
		SuccessCount: succeeded,
		ErrorCount:   failed,
	}
}

// BuildNWPS fetches the gauge listing in one request and normalizes it.
func (b *Builder) BuildNWPS(ctx context.Context) domain.CatalogBuildResult {
	resp, err := b.nwps.FetchGauges(ctx)
	if err != nil {
		b.logger.Warn("nwps gauge listing failed", "error", err)
		b.metrics.PartitionErrors.Inc()
		return domain.CatalogBuildResult{
			Provider:   domain.ProviderNWPS,
			Sites:      []domain.SensorSite{},
			ErrorCount: 1,
		}
	}

	b.metrics.PartitionsFetched.Inc()
	sites := nwps.Normalize(resp)
	b.logger.Info("nwps catalog build complete", "gauges", len(resp.Gauges), "sites", len(sites))

	return domain.CatalogBuildResult{
		Provider:     domain.ProviderNWPS,
		Sites:        sites,
		SuccessCount: 1,
	}
}

// BuildAll runs both provider builds concurrently and assembles a fresh
// catalog. It returns an error only when the context is cancelled before
// either provider could contribute; provider-level failures are reported in
// the per-provider results instead.
func (b *Builder) BuildAll(ctx context.Context) (*domain.Catalog, []domain.CatalogBuildResult, error) {
	timer := b.metrics.CatalogBuildDuration
	started := domain.Now()

	var usgsResult, nwpsResult domain.CatalogBuildResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		usgsResult = b.BuildUSGS(gctx)
		return nil
	})
	g.Go(func() error {
		nwpsResult = b.BuildNWPS(gctx)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("catalog build aborted: %w", err)
	}

	cat := domain.NewCatalog()
	cat.Sites[domain.ProviderUSGS] = usgsResult.Sites
	cat.Sites[domain.ProviderNWPS] = nwpsResult.Sites
	cat.BuiltAt = domain.Now()

	b.metrics.SitesCataloged.WithLabelValues(string(domain.ProviderUSGS)).Set(float64(len(usgsResult.Sites)))
	b.metrics.SitesCataloged.WithLabelValues(string(domain.ProviderNWPS)).Set(float64(len(nwpsResult.Sites)))
	timer.Observe(cat.BuiltAt.Sub(started).Seconds())

	b.logger.Info("catalog assembled",
		"total_sites", cat.Len(),
		"usgs_sites", len(usgsResult.Sites),
		"nwps_sites", len(nwpsResult.Sites),
		"duration", cat.BuiltAt.Sub(started),
	)

	return cat, []domain.CatalogBuildResult{usgsResult, nwpsResult}, nil
}
