package location

import (
	"context"
	"errors"
	"fmt"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/ports"
	"log"
	"sync"
	"time"
)

type LiveSourceOptions struct {
	// Timeout bounds GetOnce and stale-fix refreshes. Default 10s.
	Timeout time.Duration
	// MaximumAge is the oldest fix accepted without a refresh. Default 1s.
	MaximumAge time.Duration
	Now        func() time.Time
}

// LiveSource adapts a LocationDevice to ports.PositionSource.
type LiveSource struct {
	device     ports.LocationDevice
	timeout    time.Duration
	maximumAge time.Duration
	now        func() time.Time
}

func NewLiveSource(device ports.LocationDevice, opts LiveSourceOptions) *LiveSource {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaximumAge <= 0 {
		opts.MaximumAge = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &LiveSource{
		device:     device,
		timeout:    opts.Timeout,
		maximumAge: opts.MaximumAge,
		now:        opts.Now,
	}
}

func (s *LiveSource) fixOptions() ports.FixOptions {
	return ports.FixOptions{HighAccuracy: true, MaximumAge: s.maximumAge}
}

func (s *LiveSource) GetOnce(ctx context.Context) (domain.Coordinate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fix, err := s.device.CurrentFix(ctx, s.fixOptions())
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("%w: %w", domain.ErrLocationUnavailable, err)
	}
	if !fix.Coordinate.Valid() {
		return domain.Coordinate{}, fmt.Errorf("%w: %w", domain.ErrLocationUnavailable, domain.ErrInvalidCoordinate)
	}

	return fix.Coordinate, nil
}

func (s *LiveSource) Subscribe(onUpdate func(context.Context, domain.Coordinate)) (ports.Subscription, error) {
	if onUpdate == nil {
		return nil, errors.New("subscribe: nil callback")
	}

	ctx, cancel := context.WithCancel(context.Background())
	fixes, err := s.device.Watch(ctx, s.fixOptions())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: watch: %w", domain.ErrLocationUnavailable, err)
	}

	sub := &liveSubscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		for {
			select {
			case <-ctx.Done():
				return
			case fix, ok := <-fixes:
				if !ok {
					return
				}
				c, ok := s.accept(ctx, fix)
				if !ok || ctx.Err() != nil {
					continue
				}
				onUpdate(ctx, c)
			}
		}
	}()

	return sub, nil
}

// accept validates a watched fix, re-fetching it when it is too old.
func (s *LiveSource) accept(ctx context.Context, fix domain.Fix) (domain.Coordinate, bool) {
	if fix.Age(s.now()) > s.maximumAge {
		refreshCtx, cancel := context.WithTimeout(ctx, s.timeout)
		fresh, err := s.device.CurrentFix(refreshCtx, s.fixOptions())
		cancel()
		if err != nil {
			log.Printf("location: dropping stale fix age=%s err=%v", fix.Age(s.now()), err)
			return domain.Coordinate{}, false
		}
		fix = fresh
	}

	if !fix.Coordinate.Valid() {
		log.Printf("location: dropping invalid fix lat=%v lng=%v", fix.Coordinate.Lat, fix.Coordinate.Lng)
		return domain.Coordinate{}, false
	}

	return fix.Coordinate, true
}

type liveSubscription struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// Unsubscribe stops delivery, cancels the context handed to the callback
// and waits for any in-progress callback to return.
func (s *liveSubscription) Unsubscribe() {
	s.once.Do(s.cancel)
	<-s.done
}
