package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/platform/obs"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "geocode:"

type redisPlace struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"display_name,omitempty"`
}

// RedisGeocodeCache keeps geocode results in Redis with a TTL.
// Keys are case-folded so "Baker St" and "baker st" share an entry.
type RedisGeocodeCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGeocodeCache(client *redis.Client, ttl time.Duration) *RedisGeocodeCache {
	return &RedisGeocodeCache{client: client, ttl: ttl}
}

func redisKey(address string) string {
	return redisKeyPrefix + strings.ToLower(strings.TrimSpace(address))
}

func (r *RedisGeocodeCache) Get(ctx context.Context, address string) (_ domain.Place, _ bool, err error) {
	defer obs.Time(ctx, "geocode.redis.Get")(&err)

	raw, err := r.client.Get(ctx, redisKey(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Place{}, false, nil
	}
	if err != nil {
		return domain.Place{}, false, fmt.Errorf("redis geocode get %q: %w", address, err)
	}

	var v redisPlace
	if err := json.Unmarshal(raw, &v); err != nil {
		return domain.Place{}, false, fmt.Errorf("redis geocode decode %q: %w", address, err)
	}

	return domain.Place{
		Address:     address,
		Coordinate:  domain.Coordinate{Lat: v.Lat, Lng: v.Lng},
		DisplayName: v.DisplayName,
	}, true, nil
}

func (r *RedisGeocodeCache) Put(ctx context.Context, address string, place domain.Place) (err error) {
	defer obs.Time(ctx, "geocode.redis.Put")(&err)

	if strings.TrimSpace(address) == "" {
		return errors.New("redis geocode put: empty address key")
	}

	raw, err := json.Marshal(redisPlace{
		Lat:         place.Coordinate.Lat,
		Lng:         place.Coordinate.Lng,
		DisplayName: place.DisplayName,
	})
	if err != nil {
		return fmt.Errorf("redis geocode encode %q: %w", address, err)
	}

	if err := r.client.Set(ctx, redisKey(address), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis geocode set %q: %w", address, err)
	}
	return nil
}
