package domain

import "time"

// RouteGeometry is a polyline in display (latitude-first) order.
type RouteGeometry []Coordinate

// Represents the route returned by the routing backend for one origin.
// A RouteSnapshot is immutable once received and is replaced wholesale
// on every successful reroute.
type RouteSnapshot struct {
	Geometry        RouteGeometry
	DistanceMeters  float64
	DurationSeconds float64
}

// Clone returns a copy that does not share the geometry backing array.
func (r RouteSnapshot) Clone() RouteSnapshot {
	out := r
	if r.Geometry != nil {
		out.Geometry = make(RouteGeometry, len(r.Geometry))
		copy(out.Geometry, r.Geometry)
	}
	return out
}

// Remaining distance and ETA toward the destination from the current origin.
type LiveMetrics struct {
	RemainingMeters float64
	ETASeconds      float64
}

// Place is a resolved destination.
type Place struct {
	Address     string
	Coordinate  Coordinate
	DisplayName string
	// Cached reports whether the coordinate came from the geocode cache.
	Cached bool
}

// NavigationPlan is the result of resolving an address and routing to it.
type NavigationPlan struct {
	Destination Place
	Route       RouteSnapshot
}

// A previously navigated address.
type AddressEntry struct {
	ID        int64
	Address   string
	CreatedAt time.Time
}
