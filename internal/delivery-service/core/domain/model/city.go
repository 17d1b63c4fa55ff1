package model

import (
	"time"

	"github.com/google/uuid"
)

// City is a canonical city record, deduplicated by (name, state, country).
// Immutable once created except coordinate backfill.
type City struct {
	ID        uuid.UUID
	Name      string
	State     string
	Country   string
	Latitude  *float64
	Longitude *float64
	CreatedAt time.Time
}

// Route is the computed path for one delivery. A degraded route (provider
// unreachable) has DistanceKm 0 and a nil path; that is a valid state.
type Route struct {
	ID         uuid.UUID
	DeliveryID uuid.UUID
	DistanceKm float64
	// Path is GeoJSON geometry as returned by the routing provider.
	Path      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}
