package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/platform/obs"
	"strings"
)

// SQLGeocodeCache is a Postgres-backed cache mapping addresses to places.
type SQLGeocodeCache struct {
	DB *sql.DB
}

func NewSQLGeocodeCache(db *sql.DB) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: db}
}

// Get fetches the cached place for a normalized address.
func (s *SQLGeocodeCache) Get(ctx context.Context, address string) (_ domain.Place, _ bool, err error) {
	defer obs.Time(ctx, "geocode.sql.Get")(&err)

	if s.DB == nil {
		return domain.Place{}, false, errors.New("geocode cache: db is nil")
	}

	address = strings.TrimSpace(address)
	if address == "" {
		return domain.Place{}, false, nil
	}

	q := `
	SELECT lat, lng, display_name
	FROM geocode_cache
	WHERE address = $1;
	`

	var lat, lng float64
	var displayName string
	err = s.DB.QueryRowContext(ctx, q, address).Scan(&lat, &lng, &displayName)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Place{}, false, nil
	}
	if err != nil {
		return domain.Place{}, false, fmt.Errorf("get geocode cache: query geocode_cache table: %w", err)
	}

	return domain.Place{
		Address:     address,
		Coordinate:  domain.Coordinate{Lat: lat, Lng: lng},
		DisplayName: displayName,
	}, true, nil
}

// Put stores or refreshes an address -> place mapping.
func (s *SQLGeocodeCache) Put(ctx context.Context, address string, place domain.Place) (err error) {
	defer obs.Time(ctx, "geocode.sql.Put")(&err)

	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}

	address = strings.TrimSpace(address)
	if address == "" {
		return errors.New("insert geocode cache: empty address key")
	}
	if !place.Coordinate.Valid() {
		return fmt.Errorf("insert geocode cache address=%q: %w", address, domain.ErrInvalidCoordinate)
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO geocode_cache (address, lat, lng, display_name)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (address) DO UPDATE
	SET lat = EXCLUDED.lat,
		lng = EXCLUDED.lng,
		display_name = EXCLUDED.display_name,
		updated_at = now();
	`, address, place.Coordinate.Lat, place.Coordinate.Lng, place.DisplayName)
	if err != nil {
		return fmt.Errorf("insert geocode cache address=%q: %w", address, err)
	}

	return nil
}
