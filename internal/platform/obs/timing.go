// Package obs carries the request id through contexts and logs the duration
// of backend, cache and repository calls.
package obs

import (
	"context"
	"log"
	"time"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// SlowThreshold marks an operation as slow in the timing log line.
var SlowThreshold = 2 * time.Second

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestID returns the id stored by WithRequestID, or "-" when absent.
// Background work (location subscriptions, automatic reroutes) has none.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		return id
	}
	return "-"
}

// Time starts a timer for op. Call the returned func with a pointer to the
// named error result, typically via defer:
//
//	defer obs.Time(ctx, "ors.fetchRoute")(&err)
func Time(ctx context.Context, op string) func(errp *error) {
	start := time.Now()
	reqID := RequestID(ctx)

	return func(errp *error) {
		dur := time.Since(start)
		slow := ""
		if dur >= SlowThreshold {
			slow = " slow=true"
		}

		if errp != nil && *errp != nil {
			log.Printf("req_id=%s op=%s dur=%dms%s err=%v", reqID, op, dur.Milliseconds(), slow, *errp)
			return
		}
		log.Printf("req_id=%s op=%s dur=%dms%s", reqID, op, dur.Milliseconds(), slow)
	}
}
