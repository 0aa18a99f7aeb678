package routing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/ports"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const directionsBody = `{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "geometry": {
      "type": "LineString",
      "coordinates": [[-0.1576, 51.5237], [-0.1581, 51.5233], [-0.1586, 51.523]]
    },
    "properties": {"summary": {"distance": 94.2, "duration": 21.5}}
  }]
}`

type memGeocodeCache struct {
	mu sync.Mutex
	m  map[string]domain.Place
}

func (c *memGeocodeCache) Get(ctx context.Context, address string) (domain.Place, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.m[address]
	return p, ok, nil
}

func (c *memGeocodeCache) Put(ctx context.Context, address string, place domain.Place) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = make(map[string]domain.Place)
	}
	c.m[address] = place
	return nil
}

type memHistory struct {
	mu      sync.Mutex
	entries []domain.AddressEntry
	err     error
}

func (h *memHistory) SaveAddress(ctx context.Context, address string) (domain.AddressEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return domain.AddressEntry{}, h.err
	}
	e := domain.AddressEntry{ID: int64(len(h.entries) + 1), Address: address, CreatedAt: time.Now()}
	h.entries = append(h.entries, e)
	return e, nil
}

func (h *memHistory) ListAddresses(ctx context.Context, limit int) ([]domain.AddressEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.AddressEntry, 0, len(h.entries))
	for i := len(h.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.entries[i])
	}
	return out, nil
}

func newTestBackend(t *testing.T, h http.Handler, cache ports.GeocodeCache, history ports.AddressHistoryRepository) *ORSNavigationBackend {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	b, err := NewORSNavigationBackend("test-key", ORSOptions{BaseURL: srv.URL, Country: "GB"}, cache, history)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	b.backoff = time.Millisecond
	return b
}

func geocodeHandler(calls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.Header.Get("Authorization") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("boundary.country") != "GB" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("text") == "nowhere at all" {
			io.WriteString(w, `{"features": []}`)
			return
		}
		io.WriteString(w, `{"features": [{"geometry": {"coordinates": [-0.1586, 51.523]},
			"properties": {"label": "221B Baker Street, London"}}]}`)
	}
}

func TestResolveAndRouteGeocodesRoutesAndRecordsHistory(t *testing.T) {
	var geocodeCalls int32
	var routeBody directionsRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/geocode/search", geocodeHandler(&geocodeCalls))
	mux.HandleFunc("/v2/directions/driving-car/geojson", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&routeBody); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		io.WriteString(w, directionsBody)
	})

	cache := &memGeocodeCache{}
	history := &memHistory{}
	b := newTestBackend(t, mux, cache, history)

	origin := domain.Coordinate{Lat: 51.5237, Lng: -0.1576}
	plan, err := b.ResolveAndRoute(context.Background(), "  221B   Baker St ", origin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := domain.Coordinate{Lat: 51.523, Lng: -0.1586}
	if plan.Destination.Coordinate != want {
		t.Fatalf("destination = %v, want %v", plan.Destination.Coordinate, want)
	}
	if plan.Destination.Cached {
		t.Fatalf("first resolve should not be cached")
	}
	if plan.Destination.DisplayName != "221B Baker Street, London" {
		t.Fatalf("display name = %q", plan.Destination.DisplayName)
	}

	if len(plan.Route.Geometry) != 3 {
		t.Fatalf("route points = %d, want 3", len(plan.Route.Geometry))
	}
	if plan.Route.Geometry[0] != origin {
		t.Fatalf("first route point = %v, want %v", plan.Route.Geometry[0], origin)
	}
	if plan.Route.DistanceMeters != 94.2 || plan.Route.DurationSeconds != 21.5 {
		t.Fatalf("summary = %v/%v, want 94.2/21.5", plan.Route.DistanceMeters, plan.Route.DurationSeconds)
	}

	if len(routeBody.Coordinates) != 2 || routeBody.Coordinates[0][0] != -0.1576 {
		t.Fatalf("directions request should be lng-first, got %v", routeBody.Coordinates)
	}

	entries, err := b.ListHistory(context.Background())
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(entries) != 1 || entries[0].Address != "221B Baker St" {
		t.Fatalf("history = %+v, want normalized address", entries)
	}

	plan, err = b.ResolveAndRoute(context.Background(), "221B Baker St", origin)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if !plan.Destination.Cached {
		t.Fatalf("second resolve should come from cache")
	}
	if n := atomic.LoadInt32(&geocodeCalls); n != 1 {
		t.Fatalf("geocode calls = %d, want 1", n)
	}
}

func TestResolveAndRouteAddressNotFound(t *testing.T) {
	var calls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/geocode/search", geocodeHandler(&calls))
	mux.HandleFunc("/v2/directions/driving-car/geojson", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error": {"code": 2010, "message": "Could not find routable point"}}`)
	})

	history := &memHistory{}
	b := newTestBackend(t, mux, nil, history)
	origin := domain.Coordinate{Lat: 51.5, Lng: -0.1}

	cases := []struct {
		name    string
		address string
	}{
		{name: "empty geocode", address: "nowhere at all"},
		{name: "unroutable destination", address: "221B Baker St"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.ResolveAndRoute(context.Background(), tc.address, origin)
			if !errors.Is(err, domain.ErrAddressNotFound) {
				t.Fatalf("err = %v, want ErrAddressNotFound", err)
			}
		})
	}

	if len(history.entries) != 0 {
		t.Fatalf("failed resolves must not be recorded, got %+v", history.entries)
	}
}

func TestRefreshMetricsUsesSpeedForETA(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/matrix/driving-car", func(w http.ResponseWriter, r *http.Request) {
		var req matrixRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Locations) != 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		io.WriteString(w, `{"distances": [[1200]], "durations": [[200]]}`)
	})

	b := newTestBackend(t, mux, nil, nil)
	origin := domain.Coordinate{Lat: 51.5, Lng: -0.1}
	dest := domain.Coordinate{Lat: 51.51, Lng: -0.1}

	m, err := b.RefreshMetrics(context.Background(), origin, dest, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.RemainingMeters != 1200 || math.Abs(m.ETASeconds-300) > 1e-9 {
		t.Fatalf("metrics = %+v, want 1200m / 300s", m)
	}

	m, err = b.RefreshMetrics(context.Background(), origin, dest, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ETASeconds != 200 {
		t.Fatalf("eta without speed = %v, want matrix duration 200", m.ETASeconds)
	}
}

func TestRefreshMetricsRetriesThenReportsUnavailable(t *testing.T) {
	var calls int32
	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}), nil, nil)

	_, err := b.RefreshMetrics(context.Background(), domain.Coordinate{Lat: 1, Lng: 1}, domain.Coordinate{Lat: 1.01, Lng: 1}, 4)
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("err = %v, want ErrServiceUnavailable", err)
	}
	if n := atomic.LoadInt32(&calls); n != maxAttempts {
		t.Fatalf("attempts = %d, want %d", n, maxAttempts)
	}
}

func TestRefreshRouteRecoversFromTransientFailure(t *testing.T) {
	var calls int32
	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, directionsBody)
	}), nil, nil)

	route, err := b.RefreshRoute(context.Background(), domain.Coordinate{Lat: 51.5237, Lng: -0.1576}, domain.Coordinate{Lat: 51.523, Lng: -0.1586})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(route.Geometry) != 3 {
		t.Fatalf("route points = %d, want 3", len(route.Geometry))
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("attempts = %d, want 2", n)
	}
}

func TestRefreshRouteClientErrorIsUnavailable(t *testing.T) {
	var calls int32
	b := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}), nil, nil)

	_, err := b.RefreshRoute(context.Background(), domain.Coordinate{Lat: 1, Lng: 1}, domain.Coordinate{Lat: 2, Lng: 2})
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("err = %v, want ErrServiceUnavailable", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("client errors must not be retried, attempts = %d", n)
	}
}

func TestNewORSNavigationBackendRequiresKey(t *testing.T) {
	if _, err := NewORSNavigationBackend("", ORSOptions{}, nil, nil); err == nil {
		t.Fatalf("expected error for empty api key")
	}
}
