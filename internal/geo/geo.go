// Package geo holds the geospatial helpers used by the navigation core:
// great-circle distance, coordinate validation and conversion between the
// external (longitude-first) and display (latitude-first) geometry orders.
package geo

import (
	"fmt"
	"live-navigation-service/internal/domain"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// DistanceMeters returns the great-circle distance between a and b using the
// haversine formula. It is symmetric and zero for identical points.
func DistanceMeters(a, b domain.Coordinate) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push h just past 1 for near-antipodal points.
	h = min(max(h, 0), 1)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// IsValidCoordinate reports whether both fields are finite and in range.
func IsValidCoordinate(c domain.Coordinate) bool {
	return c.Valid()
}

// FromExternalPair converts one [lng, lat] pair.
func FromExternalPair(pair []float64) (domain.Coordinate, error) {
	if len(pair) != 2 {
		return domain.Coordinate{}, fmt.Errorf("%w: expected 2 values, got %d", domain.ErrMalformedGeometry, len(pair))
	}

	for _, v := range pair {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.Coordinate{}, fmt.Errorf("%w: non-finite value %v", domain.ErrMalformedGeometry, v)
		}
	}

	c := domain.Coordinate{Lat: pair[1], Lng: pair[0]}
	if !c.Valid() {
		return domain.Coordinate{}, fmt.Errorf("%w: lat=%v lng=%v", domain.ErrInvalidCoordinate, c.Lat, c.Lng)
	}

	return c, nil
}

// ToDisplayGeometry swaps each external [lng, lat] pair into display order.
// Point count and order are preserved.
func ToDisplayGeometry(external [][]float64) (domain.RouteGeometry, error) {
	out := make(domain.RouteGeometry, 0, len(external))
	for i, pair := range external {
		c, err := FromExternalPair(pair)
		if err != nil {
			return nil, fmt.Errorf("to display geometry: point %d: %w", i, err)
		}
		out = append(out, c)
	}

	return out, nil
}

// ToExternalGeometry is the inverse of ToDisplayGeometry.
func ToExternalGeometry(g domain.RouteGeometry) [][]float64 {
	out := make([][]float64, 0, len(g))
	for _, c := range g {
		out = append(out, c.CoordsToList())
	}
	return out
}

// ToLineString projects a display geometry into an orb.LineString (X = lng, Y = lat).
func ToLineString(g domain.RouteGeometry) orb.LineString {
	ls := make(orb.LineString, 0, len(g))
	for _, c := range g {
		ls = append(ls, orb.Point{c.Lng, c.Lat})
	}
	return ls
}

// ToGeoJSON returns the geometry as a GeoJSON LineString.
func ToGeoJSON(g domain.RouteGeometry) *geojson.Geometry {
	return geojson.NewGeometry(ToLineString(g))
}

// ToDisplayPairs returns the geometry as [lat, lng] pairs for map widgets.
func ToDisplayPairs(g domain.RouteGeometry) [][2]float64 {
	out := make([][2]float64, 0, len(g))
	for _, c := range g {
		out = append(out, [2]float64{c.Lat, c.Lng})
	}
	return out
}
