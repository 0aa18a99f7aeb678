// Package location turns device-reported fixes into the live position
// source used by the navigation controller.
package location

import (
	"context"
	"fmt"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/ports"
	"sync"
	"time"
)

// fixHub keeps the latest fix and fans new fixes out to watchers.
// Watchers get a buffer of one; a slow watcher only ever sees the newest fix.
type fixHub struct {
	now func() time.Time

	mu       sync.Mutex
	latest   domain.Fix
	has      bool
	updated  chan struct{}
	watchers map[int]chan domain.Fix
	nextID   int
}

func newFixHub(now func() time.Time) *fixHub {
	if now == nil {
		now = time.Now
	}
	return &fixHub{
		now:      now,
		updated:  make(chan struct{}),
		watchers: make(map[int]chan domain.Fix),
	}
}

// Publish records a fix and delivers it to every watcher.
func (h *fixHub) Publish(f domain.Fix) error {
	if !f.Coordinate.Valid() {
		return fmt.Errorf("publish fix: lat=%v lng=%v: %w", f.Coordinate.Lat, f.Coordinate.Lng, domain.ErrInvalidCoordinate)
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = h.now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = f
	h.has = true
	close(h.updated)
	h.updated = make(chan struct{})

	for _, ch := range h.watchers {
		select {
		case ch <- f:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- f:
			default:
			}
		}
	}

	return nil
}

// CurrentFix returns the latest fix if it is no older than opts.MaximumAge,
// otherwise it waits for the next one.
func (h *fixHub) CurrentFix(ctx context.Context, opts ports.FixOptions) (domain.Fix, error) {
	h.mu.Lock()
	if h.has && opts.MaximumAge > 0 && h.latest.Age(h.now()) <= opts.MaximumAge {
		f := h.latest
		h.mu.Unlock()
		return f, nil
	}
	wait := h.updated
	h.mu.Unlock()

	select {
	case <-ctx.Done():
		return domain.Fix{}, fmt.Errorf("wait for fix: %w", ctx.Err())
	case <-wait:
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, nil
}

// Watch streams fixes until ctx is done, then closes the channel.
func (h *fixHub) Watch(ctx context.Context, _ ports.FixOptions) (<-chan domain.Fix, error) {
	ch := make(chan domain.Fix, 1)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.watchers[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.watchers, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch, nil
}

func (h *fixHub) watcherCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers)
}
