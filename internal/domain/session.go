package domain

import (
	"strings"
	"time"
)

// PositionMode selects how new origin coordinates arrive during a session.
type PositionMode string

const (
	ModeLive PositionMode = "live"
	ModeDemo PositionMode = "demo"
)

// DefaultMode is used when a start request names no mode.
const DefaultMode = ModeLive

// IsValid checks if the position mode is known.
func (m PositionMode) IsValid() bool {
	switch m {
	case ModeLive, ModeDemo:
		return true
	default:
		return false
	}
}

// ParsePositionMode accepts "live" or "demo" in any case; blank means DefaultMode.
func ParsePositionMode(s string) (PositionMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultMode, nil
	}
	m := PositionMode(strings.ToLower(s))
	if !m.IsValid() {
		return "", ErrInvalidMode
	}
	return m, nil
}

type SessionStatus string

const (
	StatusIdle   SessionStatus = "idle"
	StatusActive SessionStatus = "active"
)

// NavigationSession is a read-only projection of the controller's single session.
// The zero value (with a Generation) describes the Idle state.
type NavigationSession struct {
	ID         string
	Status     SessionStatus
	Generation uint64
	Mode       PositionMode

	Origin      Coordinate
	Destination Coordinate
	Place       Place
	SpeedMps    float64

	Route RouteSnapshot
	Live  *LiveMetrics

	StartedAt         time.Time
	LastMetricsAt     time.Time
	LastRerouteAt     time.Time
	LastRerouteOrigin *Coordinate

	DemoCursor int
}

// Active reports whether the snapshot describes a running session.
func (s NavigationSession) Active() bool { return s.Status == StatusActive }
