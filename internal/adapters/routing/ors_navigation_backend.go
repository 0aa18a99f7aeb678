package routing

import (
	"context"
	"errors"
	"fmt"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/platform/obs"
	"live-navigation-service/internal/ports"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.openrouteservice.org"
	DefaultProfile = "driving-car"

	historyLimit = 50
)

type ORSOptions struct {
	BaseURL string
	Profile string
	// Country restricts geocoding to an ISO country code when set.
	Country string
	Timeout time.Duration
}

// ORSNavigationBackend implements ports.NavigationBackend using OpenRouteService.
//
// It coordinates:
//   - Address normalization
//   - Geocode caching (any ports.GeocodeCache)
//   - Directions and matrix calls with retry/backoff
//   - Best-effort address history
//
// The backend is safe for concurrent use.
type ORSNavigationBackend struct {
	session      *http.Client
	apiKey       string
	baseURL      string
	profile      string
	country      string
	backoff      time.Duration
	geocodeCache ports.GeocodeCache
	history      ports.AddressHistoryRepository
}

func NewORSNavigationBackend(
	apiKey string,
	opts ORSOptions,
	geocodeCache ports.GeocodeCache,
	history ports.AddressHistoryRepository,
) (*ORSNavigationBackend, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Profile == "" {
		opts.Profile = DefaultProfile
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	return &ORSNavigationBackend{
		session:      &http.Client{Timeout: opts.Timeout},
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		profile:      opts.Profile,
		country:      opts.Country,
		backoff:      200 * time.Millisecond,
		geocodeCache: geocodeCache,
		history:      history,
	}, nil
}

// normalize collapses whitespace so cache keys and history rows are stable.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (o *ORSNavigationBackend) ResolveAndRoute(
	ctx context.Context,
	address string,
	origin domain.Coordinate,
) (_ domain.NavigationPlan, err error) {
	defer obs.Time(ctx, "ors.ResolveAndRoute")(&err)

	norm := normalize(address)
	if norm == "" {
		return domain.NavigationPlan{}, domain.ErrNoDestinationEntered
	}

	place, err := o.resolvePlace(ctx, norm, origin)
	if err != nil {
		return domain.NavigationPlan{}, err
	}

	route, err := o.fetchRoute(ctx, origin, place.Coordinate)
	if err != nil {
		// The destination geocoded but cannot be reached from here.
		if isClientError(err) {
			return domain.NavigationPlan{}, fmt.Errorf("route to %q: %w: %w", norm, domain.ErrAddressNotFound, err)
		}
		return domain.NavigationPlan{}, unavailable("route to "+norm, err)
	}

	o.recordHistory(ctx, norm)

	return domain.NavigationPlan{Destination: place, Route: route}, nil
}

func (o *ORSNavigationBackend) RefreshRoute(
	ctx context.Context,
	origin, destination domain.Coordinate,
) (domain.RouteSnapshot, error) {
	route, err := o.fetchRoute(ctx, origin, destination)
	if err != nil {
		if errors.Is(err, domain.ErrServiceUnavailable) {
			return domain.RouteSnapshot{}, err
		}
		return domain.RouteSnapshot{}, unavailable("refresh route", err)
	}
	return route, nil
}

// RefreshMetrics returns the remaining road distance and an ETA at speedMps.
// Without a positive speed the routing engine's own duration is used.
func (o *ORSNavigationBackend) RefreshMetrics(
	ctx context.Context,
	origin, destination domain.Coordinate,
	speedMps float64,
) (domain.LiveMetrics, error) {
	meters, seconds, err := o.fetchRemaining(ctx, origin, destination)
	if err != nil {
		return domain.LiveMetrics{}, err
	}

	eta := seconds
	if speedMps > 0 {
		eta = meters / speedMps
	}

	return domain.LiveMetrics{RemainingMeters: meters, ETASeconds: eta}, nil
}

func (o *ORSNavigationBackend) ListHistory(ctx context.Context) (_ []domain.AddressEntry, err error) {
	defer obs.Time(ctx, "ors.ListHistory")(&err)

	if o.history == nil {
		return []domain.AddressEntry{}, nil
	}

	entries, err := o.history.ListAddresses(ctx, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list address history: %w", err)
	}
	return entries, nil
}

func (o *ORSNavigationBackend) recordHistory(ctx context.Context, address string) {
	if o.history == nil {
		return
	}
	if _, err := o.history.SaveAddress(ctx, address); err != nil {
		log.Printf("address history write failed address=%q err=%v", address, err)
	}
}
