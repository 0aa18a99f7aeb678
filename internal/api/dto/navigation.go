package dto

import (
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/geo"
	"time"

	"github.com/paulmach/orb/geojson"
)

type LatLng struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

func (l LatLng) Coordinate() domain.Coordinate {
	return domain.Coordinate{Lat: *l.Lat, Lng: *l.Lng}
}

type StartRequest struct {
	Address  string  `json:"address"`
	Mode     string  `json:"mode"`
	SpeedMps float64 `json:"speed_mps" validate:"gte=0,lte=100"`
	From     *LatLng `json:"from"`
}

type StepRequest struct {
	Steps *int `json:"steps" validate:"omitempty,gte=0,lte=10000"`
}

// PositionRequest carries one fix pushed over plain HTTP. Range checks are
// left to the controller so out-of-range fixes report an invalid coordinate.
type PositionRequest struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lng *float64 `json:"lng" validate:"required"`
}

type PointResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func point(c domain.Coordinate) *PointResponse {
	return &PointResponse{Lat: c.Lat, Lng: c.Lng}
}

type PlaceResponse struct {
	Address     string        `json:"address"`
	DisplayName string        `json:"display_name,omitempty"`
	Location    PointResponse `json:"location"`
	Cached      bool          `json:"cached"`
}

type RouteResponse struct {
	// Geometry is GeoJSON and therefore longitude-first.
	Geometry        *geojson.Geometry `json:"geometry"`
	DisplayPath     [][2]float64      `json:"display_path"`
	DistanceMeters  float64           `json:"distance_meters"`
	DurationSeconds float64           `json:"duration_seconds"`
}

type LiveResponse struct {
	RemainingMeters float64 `json:"remaining_meters"`
	ETASeconds      float64 `json:"eta_seconds"`
}

type SessionResponse struct {
	ID                string         `json:"id,omitempty"`
	Status            string         `json:"status"`
	Generation        uint64         `json:"generation"`
	Mode              string         `json:"mode,omitempty"`
	Origin            *PointResponse `json:"origin,omitempty"`
	Destination       *PlaceResponse `json:"destination,omitempty"`
	SpeedMps          float64        `json:"speed_mps,omitempty"`
	Route             *RouteResponse `json:"route,omitempty"`
	Live              *LiveResponse  `json:"live"`
	DemoCursor        int            `json:"demo_cursor"`
	StartedAt         *time.Time     `json:"started_at,omitempty"`
	LastRerouteAt     *time.Time     `json:"last_reroute_at,omitempty"`
	LastRerouteOrigin *PointResponse `json:"last_reroute_origin,omitempty"`
}

func FromSession(s domain.NavigationSession) SessionResponse {
	out := SessionResponse{
		Status:     string(s.Status),
		Generation: s.Generation,
	}
	if !s.Active() {
		return out
	}

	startedAt := s.StartedAt
	lastRerouteAt := s.LastRerouteAt

	out.ID = s.ID
	out.Mode = string(s.Mode)
	out.Origin = point(s.Origin)
	out.Destination = &PlaceResponse{
		Address:     s.Place.Address,
		DisplayName: s.Place.DisplayName,
		Location:    *point(s.Destination),
		Cached:      s.Place.Cached,
	}
	out.SpeedMps = s.SpeedMps
	out.Route = &RouteResponse{
		Geometry:        geo.ToGeoJSON(s.Route.Geometry),
		DisplayPath:     geo.ToDisplayPairs(s.Route.Geometry),
		DistanceMeters:  s.Route.DistanceMeters,
		DurationSeconds: s.Route.DurationSeconds,
	}
	if s.Live != nil {
		out.Live = &LiveResponse{RemainingMeters: s.Live.RemainingMeters, ETASeconds: s.Live.ETASeconds}
	}
	out.DemoCursor = s.DemoCursor
	out.StartedAt = &startedAt
	out.LastRerouteAt = &lastRerouteAt
	if s.LastRerouteOrigin != nil {
		out.LastRerouteOrigin = point(*s.LastRerouteOrigin)
	}

	return out
}

type AddressResponse struct {
	ID        int64     `json:"id"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

type ListAddressResponse struct {
	Addresses []AddressResponse `json:"addresses"`
}
