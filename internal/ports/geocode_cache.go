package ports

import (
	"context"
	"live-navigation-service/internal/domain"
)

// Boundary for caching address -> place lookups.
// Keys are expected to be normalized by the caller.
type GeocodeCache interface {
	// Return the cached place and whether it was found.
	Get(ctx context.Context, address string) (domain.Place, bool, error)
	Put(ctx context.Context, address string, place domain.Place) error
}
