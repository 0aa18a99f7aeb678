package routing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/geo"
	"live-navigation-service/internal/platform/obs"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

// fetchRoute asks /v2/directions/{profile}/geojson for a route from origin to
// destination and converts the LineString into display order.
func (o *ORSNavigationBackend) fetchRoute(
	ctx context.Context,
	origin, destination domain.Coordinate,
) (_ domain.RouteSnapshot, err error) {
	defer obs.Time(ctx, "ors.fetchRoute")(&err)

	endpoint := fmt.Sprintf("%s/v2/directions/%s/geojson", o.baseURL, o.profile)

	resp, err := o.postJSON(ctx, endpoint, directionsRequest{
		Coordinates: [][]float64{origin.CoordsToList(), destination.CoordsToList()},
	})
	if err != nil {
		return domain.RouteSnapshot{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.RouteSnapshot{}, fmt.Errorf("read directions response: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return domain.RouteSnapshot{}, fmt.Errorf("decode directions response: %w", err)
	}

	return routeFromFeatures(fc)
}

func routeFromFeatures(fc *geojson.FeatureCollection) (domain.RouteSnapshot, error) {
	if len(fc.Features) == 0 {
		return domain.RouteSnapshot{}, errors.New("directions response has no features")
	}

	feature := fc.Features[0]
	line, ok := feature.Geometry.(orb.LineString)
	if !ok {
		return domain.RouteSnapshot{}, fmt.Errorf("%w: expected LineString, got %T", domain.ErrMalformedGeometry, feature.Geometry)
	}

	external := make([][]float64, 0, len(line))
	for _, p := range line {
		external = append(external, []float64{p.X(), p.Y()})
	}

	geometry, err := geo.ToDisplayGeometry(external)
	if err != nil {
		return domain.RouteSnapshot{}, err
	}

	route := domain.RouteSnapshot{Geometry: geometry}

	// ORS omits zero-valued summary fields.
	if summary, ok := feature.Properties["summary"].(map[string]interface{}); ok {
		route.DistanceMeters, _ = summary["distance"].(float64)
		route.DurationSeconds, _ = summary["duration"].(float64)
	}

	return route, nil
}
