package domain

import (
	"context"
	"time"
)

// ReachFeature is a model reach returned by a nearest-feature lookup,
// carrying its stable identifier and current-value attributes.
type ReachFeature struct {
	ID         string
	Name       string
	Flow       float64
	Unit       string
	MeasuredAt time.Time
}

// ReachResolver finds the nearest model reach within a radius of a point.
type ReachResolver interface {
	// FindNearest returns the nearest feature within radiusMeters of the
	// point. A miss is a normal outcome reported via the boolean, never an
	// error; transport failures are handled (and logged) by implementations.
	FindNearest(ctx context.Context, lat, lon, radiusMeters float64) (ReachFeature, bool)
}
