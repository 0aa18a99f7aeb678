package services

import (
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/geo"
	"time"
)

// Policy decides when a live session refreshes metrics and when it reroutes.
//
// Metrics are cheap and refreshed on a fixed cadence. Reroutes are expensive
// and require both real movement and a cooldown, so a stationary user or a
// few meters of GPS jitter never trigger one. Both gates use wall-clock time
// and distance only; fix ordering and duplicates do not matter.
type Policy struct {
	MetricsInterval    time.Duration
	RerouteMinDistance float64 // meters
	RerouteCooldown    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MetricsInterval:    2 * time.Second,
		RerouteMinDistance: 30,
		RerouteCooldown:    10 * time.Second,
	}
}

// MetricsDue reports whether a metrics refresh should start at now.
// The caller stamps lastMetricsAt before issuing the request so slow
// responses cannot overlap.
func (p Policy) MetricsDue(now, lastMetricsAt time.Time) bool {
	return now.Sub(lastMetricsAt) >= p.MetricsInterval
}

// RerouteDue reports whether an automatic reroute should start for newOrigin.
// An unknown last reroute origin counts as no movement. The caller updates
// the baseline only after the reroute succeeds, so failures retry naturally.
func (p Policy) RerouteDue(now, lastRerouteAt time.Time, lastRerouteOrigin *domain.Coordinate, newOrigin domain.Coordinate) bool {
	if lastRerouteOrigin == nil || !lastRerouteOrigin.Valid() {
		return false
	}

	moved := geo.DistanceMeters(*lastRerouteOrigin, newOrigin)
	return moved >= p.RerouteMinDistance && now.Sub(lastRerouteAt) >= p.RerouteCooldown
}
