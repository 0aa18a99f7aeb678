package domain

import "time"

// Fix is a single device-reported position sample.
type Fix struct {
	Coordinate     Coordinate
	AccuracyMeters float64
	Timestamp      time.Time
}

// Age returns how old the fix is relative to now. Fixes without a
// timestamp are treated as fresh.
func (f Fix) Age(now time.Time) time.Duration {
	if f.Timestamp.IsZero() {
		return 0
	}
	return now.Sub(f.Timestamp)
}
