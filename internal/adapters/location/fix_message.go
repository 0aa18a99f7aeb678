package location

import (
	"encoding/json"
	"fmt"
	"live-navigation-service/internal/domain"
	"time"
)

// fixMessage is the JSON shape devices send for a single fix.
type fixMessage struct {
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	Accuracy  float64  `json:"accuracy,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"` // unix milliseconds
}

func (m fixMessage) toFix() (domain.Fix, error) {
	if m.Lat == nil || m.Lng == nil {
		return domain.Fix{}, fmt.Errorf("fix message: lat and lng are required: %w", domain.ErrInvalidCoordinate)
	}

	f := domain.Fix{
		Coordinate:     domain.Coordinate{Lat: *m.Lat, Lng: *m.Lng},
		AccuracyMeters: m.Accuracy,
	}
	if m.Timestamp > 0 {
		f.Timestamp = time.UnixMilli(m.Timestamp)
	}
	return f, nil
}

func decodeFix(raw []byte) (domain.Fix, error) {
	var m fixMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return domain.Fix{}, fmt.Errorf("decode fix: %w", err)
	}
	return m.toFix()
}
