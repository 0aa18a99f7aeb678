package services

import (
	"context"
	"errors"
	"fmt"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/geo"
	"live-navigation-service/internal/platform/obs"
	"live-navigation-service/internal/ports"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type StartRequest struct {
	Address  string
	Mode     domain.PositionMode
	SpeedMps float64
	// OriginHint, when set, is used instead of asking the position source.
	OriginHint *domain.Coordinate
}

type ControllerConfig struct {
	Policy Policy
	// DemoOrigin is used in demo mode when no live fix can be acquired.
	DemoOrigin      domain.Coordinate
	DefaultSpeedMps float64
	// RequestTimeout bounds each backend call; zero disables the bound.
	RequestTimeout time.Duration
	Now            func() time.Time
}

// NavigationController owns the single navigation session of the process.
//
// State is guarded by mu. Backend calls run without the lock held; every
// completion re-acquires it and compares the generation captured when the
// call started before applying anything. Stop and Start bump the generation,
// so results belonging to a dead session are discarded.
type NavigationController struct {
	backend ports.NavigationBackend
	source  ports.PositionSource
	cfg     ControllerConfig

	mu         sync.Mutex
	generation uint64
	session    *activeSession
	sub        ports.Subscription
	// starting counts Start calls that have claimed a generation but not finished.
	starting int
}

type activeSession struct {
	state  domain.NavigationSession
	walker *domain.DemoWalker
	// rerouting is set while an automatic reroute is in flight.
	rerouting bool
}

func NewNavigationController(
	backend ports.NavigationBackend,
	source ports.PositionSource,
	cfg ControllerConfig,
) *NavigationController {
	if cfg.Policy == (Policy{}) {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.DefaultSpeedMps <= 0 {
		cfg.DefaultSpeedMps = 4
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &NavigationController{
		backend: backend,
		source:  source,
		cfg:     cfg,
	}
}

// Start resolves the address, routes to it and makes the result the active
// session. Any previous session is stopped first. On failure the controller
// is left Idle and the error is returned unchanged in kind.
//
// Start claims a new generation before resolving, so a Stop or a newer Start
// issued meanwhile makes this call fail with domain.ErrSessionSuperseded.
func (c *NavigationController) Start(ctx context.Context, req StartRequest) (_ domain.NavigationSession, err error) {
	defer obs.Time(ctx, "navigation.Start")(&err)

	address := strings.TrimSpace(req.Address)
	if address == "" {
		return domain.NavigationSession{}, domain.ErrNoDestinationEntered
	}

	mode := req.Mode
	if mode == "" {
		mode = domain.DefaultMode
	}
	if !mode.IsValid() {
		return domain.NavigationSession{}, fmt.Errorf("start navigation: mode %q: %w", mode, domain.ErrInvalidMode)
	}

	speed := req.SpeedMps
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed <= 0 {
		speed = c.cfg.DefaultSpeedMps
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.starting++
	prevID, prevSub := c.detachLocked()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.starting--
		c.mu.Unlock()
	}()

	c.endSession(prevID, gen, prevSub)

	origin, err := c.resolveOrigin(ctx, mode, req.OriginHint)
	if err != nil {
		return domain.NavigationSession{}, fmt.Errorf("start navigation: %w", err)
	}

	plan, err := c.backend.ResolveAndRoute(ctx, address, origin)
	if err != nil {
		return domain.NavigationSession{}, fmt.Errorf("start navigation: resolve %q: %w", address, err)
	}

	now := c.cfg.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		return domain.NavigationSession{}, fmt.Errorf("start navigation: %w", domain.ErrSessionSuperseded)
	}

	baseline := origin
	s := &activeSession{
		state: domain.NavigationSession{
			ID:                uuid.NewString(),
			Status:            domain.StatusActive,
			Generation:        gen,
			Mode:              mode,
			Origin:            origin,
			Destination:       plan.Destination.Coordinate,
			Place:             plan.Destination,
			SpeedMps:          speed,
			Route:             plan.Route.Clone(),
			StartedAt:         now,
			LastRerouteAt:     now,
			LastRerouteOrigin: &baseline,
		},
	}
	s.walker = domain.NewDemoWalker(s.state.Route.Geometry)
	c.session = s

	if mode == domain.ModeLive {
		sub, err := c.subscribeLocked(gen)
		if err != nil {
			c.session = nil
			c.generation++
			return domain.NavigationSession{}, fmt.Errorf("start navigation: subscribe: %w", err)
		}
		c.sub = sub
	}

	log.Printf(
		"navigation session started session_id=%s generation=%d mode=%s route_points=%d",
		s.state.ID, s.state.Generation, mode, len(s.state.Route.Geometry),
	)

	return c.snapshotLocked(), nil
}

func (c *NavigationController) resolveOrigin(
	ctx context.Context,
	mode domain.PositionMode,
	hint *domain.Coordinate,
) (domain.Coordinate, error) {
	if hint != nil {
		if !hint.Valid() {
			return domain.Coordinate{}, fmt.Errorf("origin hint: %w", domain.ErrInvalidCoordinate)
		}
		return *hint, nil
	}

	var err error
	if c.source == nil {
		err = errors.New("no position source configured")
	} else {
		var origin domain.Coordinate
		origin, err = c.source.GetOnce(ctx)
		if err == nil {
			if !origin.Valid() {
				return domain.Coordinate{}, fmt.Errorf("current location: %w", domain.ErrInvalidCoordinate)
			}
			return origin, nil
		}
	}

	if mode == domain.ModeDemo {
		log.Printf("navigation: live location failed, using demo origin err=%v", err)
		return c.cfg.DemoOrigin, nil
	}

	if errors.Is(err, domain.ErrLocationUnavailable) {
		return domain.Coordinate{}, err
	}
	return domain.Coordinate{}, fmt.Errorf("%w: %w", domain.ErrLocationUnavailable, err)
}

func (c *NavigationController) subscribeLocked(gen uint64) (ports.Subscription, error) {
	if c.source == nil {
		return nil, fmt.Errorf("%w: no position source configured", domain.ErrLocationUnavailable)
	}

	sub, err := c.source.Subscribe(func(ctx context.Context, origin domain.Coordinate) {
		if err := c.handlePosition(ctx, origin, gen); err != nil {
			log.Printf("navigation: position update rejected generation=%d err=%v", gen, err)
		}
	})
	if err != nil {
		if errors.Is(err, domain.ErrLocationUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrLocationUnavailable, err)
	}

	return sub, nil
}

// OnPositionUpdate applies a new live origin to the active session and runs
// the metrics and reroute gates. It is a no-op when Idle or in demo mode.
// Backend failures are logged and swallowed; the next update retries.
func (c *NavigationController) OnPositionUpdate(ctx context.Context, origin domain.Coordinate) error {
	return c.handlePosition(ctx, origin, 0)
}

// handlePosition is OnPositionUpdate restricted to generation gen (0 = current).
func (c *NavigationController) handlePosition(ctx context.Context, origin domain.Coordinate, gen uint64) error {
	if !geo.IsValidCoordinate(origin) {
		return fmt.Errorf("position update: lat=%v lng=%v: %w", origin.Lat, origin.Lng, domain.ErrInvalidCoordinate)
	}

	c.mu.Lock()
	s := c.session
	if s == nil || s.state.Mode != domain.ModeLive || (gen != 0 && gen != c.generation) {
		c.mu.Unlock()
		return nil
	}

	now := c.cfg.Now()
	gen = c.generation
	s.state.Origin = origin
	destination := s.state.Destination
	speed := s.state.SpeedMps

	refresh := c.cfg.Policy.MetricsDue(now, s.state.LastMetricsAt)
	if refresh {
		s.state.LastMetricsAt = now
	}

	reroute := !s.rerouting && c.cfg.Policy.RerouteDue(now, s.state.LastRerouteAt, s.state.LastRerouteOrigin, origin)
	if reroute {
		s.rerouting = true
	}
	c.mu.Unlock()

	if refresh {
		c.refreshMetrics(ctx, gen, origin, destination, speed)
	}
	if reroute {
		c.autoReroute(ctx, gen, now, origin, destination)
	}

	return nil
}

// SimulateStep advances the demo cursor and refreshes metrics from the new
// origin without throttling. It is a no-op when Idle or when the route has
// fewer than two points.
func (c *NavigationController) SimulateStep(ctx context.Context, steps int) error {
	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return nil
	}
	if s.state.Mode != domain.ModeDemo {
		c.mu.Unlock()
		return fmt.Errorf("simulate step: %w", domain.ErrWrongMode)
	}
	if s.walker.Points() < 2 {
		c.mu.Unlock()
		return nil
	}

	origin, _ := s.walker.Advance(steps)
	s.state.Origin = origin
	s.state.LastMetricsAt = c.cfg.Now()
	gen := c.generation
	destination := s.state.Destination
	speed := s.state.SpeedMps
	c.mu.Unlock()

	c.refreshMetrics(ctx, gen, origin, destination, speed)
	return nil
}

// RerouteNow recomputes the route from the current origin, bypassing the
// cooldown. Unlike the automatic path, failures are returned to the caller.
func (c *NavigationController) RerouteNow(ctx context.Context) (err error) {
	defer obs.Time(ctx, "navigation.RerouteNow")(&err)

	c.mu.Lock()
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return domain.ErrNoActiveSession
	}
	gen := c.generation
	origin := s.state.Origin
	destination := s.state.Destination
	c.mu.Unlock()

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	route, err := c.backend.RefreshRoute(callCtx, origin, destination)
	if err != nil {
		return fmt.Errorf("reroute now: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.generation != gen {
		return fmt.Errorf("reroute now: %w", domain.ErrSessionSuperseded)
	}
	c.applyRouteLocked(route)

	return nil
}

// Stop ends the active session, if any, and supersedes any Start still
// resolving. In-flight requests are not cancelled; their results are
// discarded by the generation check. Safe to call when Idle.
func (c *NavigationController) Stop() {
	c.mu.Lock()
	if c.session == nil && c.sub == nil && c.starting == 0 {
		c.mu.Unlock()
		return
	}

	c.generation++
	gen := c.generation
	id, sub := c.detachLocked()
	c.mu.Unlock()

	c.endSession(id, gen, sub)
}

// detachLocked clears the active session and returns what endSession needs.
func (c *NavigationController) detachLocked() (string, ports.Subscription) {
	id := ""
	if c.session != nil {
		id = c.session.state.ID
	}
	sub := c.sub
	c.session = nil
	c.sub = nil
	return id, sub
}

// endSession must run without mu: Unsubscribe waits for the delivery
// goroutine, which may be blocked on it.
func (c *NavigationController) endSession(id string, gen uint64, sub ports.Subscription) {
	if sub != nil {
		sub.Unsubscribe()
	}
	if id != "" {
		log.Printf("navigation session stopped session_id=%s generation=%d", id, gen)
	}
}

// Snapshot returns a read-only copy of the current session state.
func (c *NavigationController) Snapshot() domain.NavigationSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// History returns previously navigated addresses for display.
func (c *NavigationController) History(ctx context.Context) ([]domain.AddressEntry, error) {
	entries, err := c.backend.ListHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

func (c *NavigationController) snapshotLocked() domain.NavigationSession {
	if c.session == nil {
		return domain.NavigationSession{
			Status:     domain.StatusIdle,
			Generation: c.generation,
		}
	}

	out := c.session.state
	out.Route = out.Route.Clone()
	out.DemoCursor = c.session.walker.Cursor()
	if out.Live != nil {
		live := *out.Live
		out.Live = &live
	}
	if out.LastRerouteOrigin != nil {
		o := *out.LastRerouteOrigin
		out.LastRerouteOrigin = &o
	}

	return out
}

func (c *NavigationController) refreshMetrics(
	ctx context.Context,
	gen uint64,
	origin, destination domain.Coordinate,
	speed float64,
) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	metrics, err := c.backend.RefreshMetrics(callCtx, origin, destination, speed)
	if err != nil {
		log.Printf("navigation: metrics refresh failed generation=%d err=%v", gen, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil || c.generation != gen {
		log.Printf("navigation: discarding stale metrics generation=%d current=%d", gen, c.generation)
		return
	}
	c.session.state.Live = &metrics
}

func (c *NavigationController) autoReroute(
	ctx context.Context,
	gen uint64,
	startedAt time.Time,
	origin, destination domain.Coordinate,
) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	route, err := c.backend.RefreshRoute(callCtx, origin, destination)

	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.session != nil && c.generation == gen
	if current {
		c.session.rerouting = false
	}

	if err != nil {
		log.Printf("navigation: automatic reroute failed generation=%d err=%v", gen, err)
		return
	}
	if !current {
		log.Printf("navigation: discarding stale route generation=%d current=%d", gen, c.generation)
		return
	}

	c.applyRouteLocked(route)
	baseline := origin
	c.session.state.LastRerouteAt = startedAt
	c.session.state.LastRerouteOrigin = &baseline
}

func (c *NavigationController) applyRouteLocked(route domain.RouteSnapshot) {
	c.session.state.Route = route.Clone()
	c.session.walker.Reset(c.session.state.Route.Geometry)
}

func (c *NavigationController) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.RequestTimeout)
}
