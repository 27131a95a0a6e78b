package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/riverwatch/river-gauge-service/internal/domain"
	"github.com/riverwatch/river-gauge-service/internal/observability"
)

type catalogBuilder interface {
	BuildAll(ctx context.Context) (*domain.Catalog, []domain.CatalogBuildResult, error)
}

// SitePublisher emits catalog sites to an external sink after a successful
// load. Publishing is optional; a nil publisher disables it.
type SitePublisher interface {
	PublishSites(ctx context.Context, sites []domain.SensorSite) error
}

// Coordinator owns the live catalog for the process session. At most one
// bulk load runs at a time; overlapping triggers are rejected, not queued.
// Readers always see either the previous complete catalog or the new one,
// never a partially built state.
type Coordinator struct {
	builder   catalogBuilder
	publisher SitePublisher
	logger    *slog.Logger
	metrics   *observability.Metrics

	current atomic.Pointer[domain.Catalog]
	loading atomic.Bool
	loaded  atomic.Bool
}

// NewCoordinator creates a Coordinator. publisher may be nil when catalog
// publishing is disabled.
func NewCoordinator(builder catalogBuilder, publisher SitePublisher, metrics *observability.Metrics, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		builder:   builder,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// LoadAll runs a full bulk load and swaps the catalog in atomically. The
// second return value is false when another load was already in flight and
// this call was rejected.
func (c *Coordinator) LoadAll(ctx context.Context) ([]domain.CatalogBuildResult, bool) {
	if !c.loading.CompareAndSwap(false, true) {
		c.metrics.CatalogLoadsRejected.Inc()
		c.logger.Warn("bulk load rejected, another load in flight")
		return nil, false
	}
	defer c.loading.Store(false)

	cat, results, err := c.builder.BuildAll(ctx)
	if err != nil {
		c.logger.Error("bulk load aborted", "error", err)
		return nil, true
	}

	c.current.Store(cat)
	c.loaded.Store(true)

	if c.publisher != nil {
		c.publish(ctx, cat)
	}

	return results, true
}

// TriggerLoad starts a bulk load in the background. It reports false without
// spawning anything when a load is already in flight. The load runs on its
// own context so an HTTP caller disconnecting does not abort it.
func (c *Coordinator) TriggerLoad(ctx context.Context) bool {
	if c.loading.Load() {
		c.metrics.CatalogLoadsRejected.Inc()
		return false
	}
	go func() {
		c.LoadAll(context.WithoutCancel(ctx))
	}()
	return true
}

func (c *Coordinator) publish(ctx context.Context, cat *domain.Catalog) {
	for provider, sites := range cat.Sites {
		if len(sites) == 0 {
			continue
		}
		if err := c.publisher.PublishSites(ctx, sites); err != nil {
			c.logger.Warn("catalog publish failed", "provider", provider, "error", err)
			continue
		}
		c.metrics.PublishedSites.Add(float64(len(sites)))
	}
}

// Current returns the live catalog. Before the first successful load it
// returns an empty catalog, never nil.
func (c *Coordinator) Current() *domain.Catalog {
	if cat := c.current.Load(); cat != nil {
		return cat
	}
	return domain.NewCatalog()
}

// Lookup finds a site by provider-scoped id in the live catalog.
func (c *Coordinator) Lookup(p domain.Provider, id string) (domain.SensorSite, bool) {
	return c.Current().Lookup(p, id)
}

// FilterByRegion returns the live catalog restricted to one region code.
func (c *Coordinator) FilterByRegion(code string) map[domain.Provider][]domain.SensorSite {
	return c.Current().FilterByRegion(code)
}

// Loading reports whether a bulk load is currently in flight.
func (c *Coordinator) Loading() bool {
	return c.loading.Load()
}

// Reset drops the live catalog, returning the coordinator to its initial
// empty state. The next read sees an empty catalog until a load completes.
func (c *Coordinator) Reset() {
	c.current.Store(nil)
	c.loaded.Store(false)
	c.metrics.SitesCataloged.WithLabelValues(string(domain.ProviderUSGS)).Set(0)
	c.metrics.SitesCataloged.WithLabelValues(string(domain.ProviderNWPS)).Set(0)
	c.logger.Info("catalog reset")
}

// CheckReadiness reports whether the coordinator has completed at least one
// successful bulk load.
func (c *Coordinator) CheckReadiness(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.loaded.Load() {
		return errors.New("catalog not loaded yet")
	}
	return nil
}
