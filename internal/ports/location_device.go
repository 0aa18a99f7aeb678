package ports

import (
	"context"
	"live-navigation-service/internal/domain"
	"time"
)

// Fidelity and recency hints passed to a location device.
type FixOptions struct {
	HighAccuracy bool
	// MaximumAge is the oldest cached fix the caller accepts. Zero asks for a fresh fix.
	MaximumAge time.Duration
}

// LocationDevice is a concrete producer of position fixes.
type LocationDevice interface {
	// Return a fix no older than opts.MaximumAge, waiting for one if needed.
	CurrentFix(ctx context.Context, opts FixOptions) (domain.Fix, error)

	// Stream fixes until ctx is done; the channel is closed afterwards.
	Watch(ctx context.Context, opts FixOptions) (<-chan domain.Fix, error)
}
