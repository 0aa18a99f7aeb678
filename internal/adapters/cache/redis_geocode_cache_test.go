package cache

import (
	"context"
	"errors"
	"live-navigation-service/internal/domain"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisGeocodeCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisGeocodeCache(client, ttl), mr
}

func TestRedisGeocodeCacheRoundTrip(t *testing.T) {
	c, _ := newRedisCache(t, time.Hour)
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "221B Baker St"); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	want := domain.Place{
		Address:     "221B Baker St",
		Coordinate:  domain.Coordinate{Lat: 51.523, Lng: -0.1586},
		DisplayName: "221B Baker Street, London",
	}
	if err := c.Put(ctx, "221B Baker St", want); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := c.Get(ctx, "221b baker st ")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Coordinate != want.Coordinate || got.DisplayName != want.DisplayName {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestRedisGeocodeCacheExpires(t *testing.T) {
	c, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()

	place := domain.Place{Coordinate: domain.Coordinate{Lat: 1, Lng: 2}}
	if err := c.Put(ctx, "somewhere", place); err != nil {
		t.Fatalf("put: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, ok, err := c.Get(ctx, "somewhere"); err != nil || ok {
		t.Fatalf("entry should have expired: ok=%v err=%v", ok, err)
	}
}

func TestRedisGeocodeCacheRejectsEmptyKey(t *testing.T) {
	c, _ := newRedisCache(t, time.Minute)
	if err := c.Put(context.Background(), "  ", domain.Place{}); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

type mapCache struct {
	m      map[string]domain.Place
	getErr error
	puts   int
}

func (c *mapCache) Get(ctx context.Context, address string) (domain.Place, bool, error) {
	if c.getErr != nil {
		return domain.Place{}, false, c.getErr
	}
	p, ok := c.m[address]
	return p, ok, nil
}

func (c *mapCache) Put(ctx context.Context, address string, place domain.Place) error {
	if c.m == nil {
		c.m = make(map[string]domain.Place)
	}
	c.m[address] = place
	c.puts++
	return nil
}

func TestTieredGeocodeCacheBackfillsFastTier(t *testing.T) {
	fast, mr := newRedisCache(t, time.Hour)
	place := domain.Place{Coordinate: domain.Coordinate{Lat: 51.5, Lng: -0.12}, DisplayName: "Somewhere"}
	durable := &mapCache{m: map[string]domain.Place{"somewhere": place}}
	tiered := NewTieredGeocodeCache(fast, durable)
	ctx := context.Background()

	got, ok, err := tiered.Get(ctx, "somewhere")
	if err != nil || !ok || got.Coordinate != place.Coordinate {
		t.Fatalf("get = %+v ok=%v err=%v", got, ok, err)
	}
	if !mr.Exists(redisKeyPrefix + "somewhere") {
		t.Fatalf("durable hit should be copied into redis")
	}

	if err := tiered.Put(ctx, "elsewhere", place); err != nil {
		t.Fatalf("put: %v", err)
	}
	if durable.puts != 1 || !mr.Exists(redisKeyPrefix+"elsewhere") {
		t.Fatalf("put should write both tiers")
	}
}

func TestTieredGeocodeCacheSurfacesDurableErrors(t *testing.T) {
	fast, _ := newRedisCache(t, time.Hour)
	boom := errors.New("db down")
	tiered := NewTieredGeocodeCache(fast, &mapCache{getErr: boom})

	if _, _, err := tiered.Get(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
