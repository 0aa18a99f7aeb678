package domain

import "errors"

// User-actionable failures, surfaced to the caller of Start/RerouteNow.
var (
	ErrNoDestinationEntered = errors.New("no destination entered")
	ErrAddressNotFound      = errors.New("address not found")
	ErrLocationUnavailable  = errors.New("location unavailable")
)

// Backend failures. Swallowed on background paths, propagated on user-initiated ones.
var ErrServiceUnavailable = errors.New("service unavailable")

// Invariant violations: the offending update is rejected, never coerced.
var (
	ErrMalformedGeometry = errors.New("malformed geometry")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// Session state errors.
var (
	ErrInvalidMode       = errors.New("invalid position mode")
	ErrNoActiveSession   = errors.New("no active navigation session")
	ErrWrongMode         = errors.New("operation not available in this position mode")
	ErrSessionSuperseded = errors.New("navigation session was stopped or replaced")
)
