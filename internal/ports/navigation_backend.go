package ports

import (
	"context"
	"live-navigation-service/internal/domain"
)

// Contract for the geocoding/routing/metrics collaborator used by the
// navigation session controller.
type NavigationBackend interface {
	// Geocode an address and route to it from origin.
	// Fails with domain.ErrAddressNotFound or domain.ErrServiceUnavailable.
	ResolveAndRoute(ctx context.Context, address string, origin domain.Coordinate) (domain.NavigationPlan, error)

	// Recompute the route from a new origin. Fails with domain.ErrServiceUnavailable.
	RefreshRoute(ctx context.Context, origin, destination domain.Coordinate) (domain.RouteSnapshot, error)

	// Recompute remaining distance and ETA at the given speed (m/s).
	// Fails with domain.ErrServiceUnavailable.
	RefreshMetrics(ctx context.Context, origin, destination domain.Coordinate, speedMps float64) (domain.LiveMetrics, error)

	// Return previously navigated addresses, newest first.
	ListHistory(ctx context.Context) ([]domain.AddressEntry, error)
}
