package cache

import (
	"context"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/ports"
	"log"
)

// TieredGeocodeCache reads through a fast cache into a durable one.
// A durable hit is copied back into the fast tier. Fast-tier failures are
// logged and fall through; durable-tier failures are returned.
type TieredGeocodeCache struct {
	fast    ports.GeocodeCache
	durable ports.GeocodeCache
}

func NewTieredGeocodeCache(fast, durable ports.GeocodeCache) *TieredGeocodeCache {
	return &TieredGeocodeCache{fast: fast, durable: durable}
}

func (t *TieredGeocodeCache) Get(ctx context.Context, address string) (domain.Place, bool, error) {
	place, ok, err := t.fast.Get(ctx, address)
	if err != nil {
		log.Printf("fast geocode cache read failed address=%q err=%v", address, err)
	}
	if ok {
		return place, true, nil
	}

	place, ok, err = t.durable.Get(ctx, address)
	if err != nil || !ok {
		return domain.Place{}, false, err
	}

	if err := t.fast.Put(ctx, address, place); err != nil {
		log.Printf("fast geocode cache backfill failed address=%q err=%v", address, err)
	}
	return place, true, nil
}

func (t *TieredGeocodeCache) Put(ctx context.Context, address string, place domain.Place) error {
	if err := t.durable.Put(ctx, address, place); err != nil {
		return err
	}
	if err := t.fast.Put(ctx, address, place); err != nil {
		log.Printf("fast geocode cache write failed address=%q err=%v", address, err)
	}
	return nil
}
