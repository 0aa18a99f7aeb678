package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"live-navigation-service/internal/domain"
	"live-navigation-service/internal/geo"
	"live-navigation-service/internal/platform/obs"
	"log"
	"net/http"
	"strconv"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

// resolvePlace returns the place for a normalized address, consulting the
// geocode cache first. Cache failures are logged and never fatal.
func (o *ORSNavigationBackend) resolvePlace(
	ctx context.Context,
	address string,
	focus domain.Coordinate,
) (domain.Place, error) {
	if o.geocodeCache != nil {
		place, ok, err := o.geocodeCache.Get(ctx, address)
		if err != nil {
			log.Printf("geocode cache read failed address=%q err=%v", address, err)
		}
		if ok {
			place.Cached = true
			return place, nil
		}
	}

	place, err := o.geocode(ctx, address, focus)
	if err != nil {
		return domain.Place{}, err
	}

	if o.geocodeCache != nil {
		if err := o.geocodeCache.Put(ctx, address, place); err != nil {
			log.Printf("geocode cache write failed address=%q err=%v", address, err)
		}
	}

	return place, nil
}

// geocode resolves one address using /geocode/search, biased toward focus.
func (o *ORSNavigationBackend) geocode(
	ctx context.Context,
	address string,
	focus domain.Coordinate,
) (_ domain.Place, err error) {
	defer obs.Time(ctx, "ors.geocode")(&err)

	endpoint := o.baseURL + "/geocode/search"

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := o.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", address)
		q.Set("size", "1")
		if o.country != "" {
			q.Set("boundary.country", o.country)
		}
		if focus.Valid() {
			q.Set("focus.point.lat", strconv.FormatFloat(focus.Lat, 'f', -1, 64))
			q.Set("focus.point.lon", strconv.FormatFloat(focus.Lng, 'f', -1, 64))
		}
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.Place{}, unavailable("geocode", err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Place{}, unavailable("decode geocode response", err)
	}

	if len(decoded.Features) == 0 {
		return domain.Place{}, fmt.Errorf("geocode %q: %w", address, domain.ErrAddressNotFound)
	}

	feature := decoded.Features[0]
	coord, err := geo.FromExternalPair(feature.Geometry.Coordinates)
	if err != nil {
		return domain.Place{}, fmt.Errorf("geocode %q: %w", address, err)
	}

	return domain.Place{
		Address:     address,
		Coordinate:  coord,
		DisplayName: feature.Properties.Label,
	}, nil
}
