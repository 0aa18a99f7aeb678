package routing

import (
	"context"
	"fmt"
	"hash/fnv"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/geo"
	"sync"
	"time"
)

const mockRoutePoints = 12

// MockNavigationBackend is an in-memory ports.NavigationBackend.
//
// Known places resolve from Places. When ResolveUnknown is set, any other
// address resolves to a deterministic point within a few kilometers of the
// origin. Routes are straight lines unless Route is set, and metrics use
// great-circle distance. Errors can be injected per operation.
type MockNavigationBackend struct {
	mu sync.Mutex

	Places         map[string]domain.Place
	ResolveUnknown bool
	Route          domain.RouteSnapshot

	ResolveErr error
	RouteErr   error
	MetricsErr error

	ResolveCalls int
	RouteCalls   int
	MetricsCalls int

	history []domain.AddressEntry
}

func NewMockNavigationBackend(places map[string]domain.Place) *MockNavigationBackend {
	m := &MockNavigationBackend{Places: make(map[string]domain.Place, len(places))}
	for k, v := range places {
		m.Places[normalize(k)] = v
	}
	return m
}

func (m *MockNavigationBackend) ResolveAndRoute(
	ctx context.Context,
	address string,
	origin domain.Coordinate,
) (domain.NavigationPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ResolveCalls++
	if m.ResolveErr != nil {
		return domain.NavigationPlan{}, m.ResolveErr
	}

	norm := normalize(address)
	if norm == "" {
		return domain.NavigationPlan{}, domain.ErrNoDestinationEntered
	}

	place, ok := m.Places[norm]
	if !ok {
		if !m.ResolveUnknown {
			return domain.NavigationPlan{}, fmt.Errorf("mock geocode %q: %w", norm, domain.ErrAddressNotFound)
		}
		place = domain.Place{Address: norm, Coordinate: pseudoPlace(norm, origin), DisplayName: norm}
	}
	if place.Address == "" {
		place.Address = norm
	}

	m.history = append(m.history, domain.AddressEntry{
		ID:        int64(len(m.history) + 1),
		Address:   norm,
		CreatedAt: time.Now().UTC(),
	})

	return domain.NavigationPlan{
		Destination: place,
		Route:       m.routeLocked(origin, place.Coordinate),
	}, nil
}

func (m *MockNavigationBackend) RefreshRoute(
	ctx context.Context,
	origin, destination domain.Coordinate,
) (domain.RouteSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RouteCalls++
	if m.RouteErr != nil {
		return domain.RouteSnapshot{}, m.RouteErr
	}
	return m.routeLocked(origin, destination), nil
}

func (m *MockNavigationBackend) RefreshMetrics(
	ctx context.Context,
	origin, destination domain.Coordinate,
	speedMps float64,
) (domain.LiveMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.MetricsCalls++
	if m.MetricsErr != nil {
		return domain.LiveMetrics{}, m.MetricsErr
	}

	remaining := geo.DistanceMeters(origin, destination)
	out := domain.LiveMetrics{RemainingMeters: remaining}
	if speedMps > 0 {
		out.ETASeconds = remaining / speedMps
	}
	return out, nil
}

func (m *MockNavigationBackend) ListHistory(ctx context.Context) ([]domain.AddressEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.AddressEntry, 0, len(m.history))
	for i := len(m.history) - 1; i >= 0 && len(out) < historyLimit; i-- {
		out = append(out, m.history[i])
	}
	return out, nil
}

// Calls returns the resolve, route and metrics call counts.
func (m *MockNavigationBackend) Calls() (resolve, route, metrics int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ResolveCalls, m.RouteCalls, m.MetricsCalls
}

// SetErrors replaces the injected route and metrics errors.
func (m *MockNavigationBackend) SetErrors(routeErr, metricsErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RouteErr = routeErr
	m.MetricsErr = metricsErr
}

func (m *MockNavigationBackend) routeLocked(origin, destination domain.Coordinate) domain.RouteSnapshot {
	if len(m.Route.Geometry) > 0 {
		return m.Route.Clone()
	}

	g := make(domain.RouteGeometry, 0, mockRoutePoints)
	for i := range mockRoutePoints {
		f := float64(i) / float64(mockRoutePoints-1)
		g = append(g, domain.Coordinate{
			Lat: origin.Lat + (destination.Lat-origin.Lat)*f,
			Lng: origin.Lng + (destination.Lng-origin.Lng)*f,
		})
	}

	meters := geo.DistanceMeters(origin, destination)
	return domain.RouteSnapshot{
		Geometry:        g,
		DistanceMeters:  meters,
		DurationSeconds: meters / 13.9,
	}
}

// pseudoPlace derives a stable point up to ~0.02 degrees away from origin.
func pseudoPlace(address string, origin domain.Coordinate) domain.Coordinate {
	h := fnv.New64a()
	h.Write([]byte(address))
	sum := h.Sum64()

	dLat := (float64(sum&0xffff)/0xffff - 0.5) * 0.04
	dLng := (float64((sum>>16)&0xffff)/0xffff - 0.5) * 0.04

	c := domain.Coordinate{Lat: origin.Lat + dLat, Lng: origin.Lng + dLng}
	if !c.Valid() {
		return origin
	}
	return c
}
