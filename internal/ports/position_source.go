package ports

import (
	"context"
	"live-navigation-service/internal/domain"
)

// Subscription is the handle returned by PositionSource.Subscribe.
type Subscription interface {
	// Stop delivery. Idempotent and safe after the source already stopped.
	Unsubscribe()
}

// PositionSource is the live origin provider used by the session controller.
type PositionSource interface {
	// Return a single current fix. Fails with domain.ErrLocationUnavailable.
	GetOnce(ctx context.Context) (domain.Coordinate, error)

	// Deliver a coordinate on every new fix until the subscription is stopped.
	// ctx is cancelled by Unsubscribe; work started from onUpdate should use it.
	Subscribe(onUpdate func(ctx context.Context, origin domain.Coordinate)) (Subscription, error)
}
