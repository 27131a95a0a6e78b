package reach

import (
	"context"
	"log/slog"

	"github.com/riverwatch/river-gauge-service/internal/domain"
	"github.com/riverwatch/river-gauge-service/internal/observability"
)

// Resolver implements domain.ReachResolver over a primary catalog with a
// secondary fallback: the secondary is consulted when the primary fails or
// returns zero features. A miss after both catalogs is NotFound, never an
// error.
type Resolver struct {
	primary   *Client
	secondary *Client
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewResolver creates a Resolver. secondary may be nil to disable fallback.
func NewResolver(primary, secondary *Client, metrics *observability.Metrics, logger *slog.Logger) *Resolver {
	return &Resolver{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
		metrics:   metrics,
	}
}

// FindNearest returns the nearest feature within radiusMeters of the point.
func (r *Resolver) FindNearest(ctx context.Context, lat, lon, radiusMeters float64) (domain.ReachFeature, bool) {
	if feature, ok := r.lookup(ctx, r.primary, lat, lon, radiusMeters); ok {
		return feature, true
	}
	if r.secondary == nil {
		return domain.ReachFeature{}, false
	}
	return r.lookup(ctx, r.secondary, lat, lon, radiusMeters)
}

func (r *Resolver) lookup(ctx context.Context, c *Client, lat, lon, radiusMeters float64) (domain.ReachFeature, bool) {
	features, err := c.Query(ctx, lat, lon, radiusMeters)
	if err != nil {
		r.logger.Warn("reach lookup failed",
			"catalog", c.name,
			"lat", lat,
			"lon", lon,
			"error", err,
		)
		r.metrics.ReachLookups.WithLabelValues(c.name, "error").Inc()
		return domain.ReachFeature{}, false
	}

	if len(features) == 0 {
		r.metrics.ReachLookups.WithLabelValues(c.name, "miss").Inc()
		return domain.ReachFeature{}, false
	}

	r.metrics.ReachLookups.WithLabelValues(c.name, "hit").Inc()
	// Features arrive ranked by distance; index 0 is the nearest.
	return features[0].toDomain(), true
}
