package clock

import (
	"context"
	"time"
)

type asOfKey struct{}

// WithAsOf pins the effective "now" for everything downstream of ctx, so a
// scenario can be rated against the tables that were live on a past date.
func WithAsOf(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, asOfKey{}, t.UTC())
}

// AsOfFromContext returns the pinned time, if any.
func AsOfFromContext(ctx context.Context) (time.Time, bool) {
	if ctx == nil {
		return time.Time{}, false
	}
	t, ok := ctx.Value(asOfKey{}).(time.Time)
	return t, ok
}
