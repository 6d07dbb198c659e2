package clock

import (
	"context"
	"time"
)

// Clock supplies the "now" used for rate table effective windows. Both
// implementations defer to an as-of time pinned on the context.
type Clock interface {
	Now(ctx context.Context) time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now(ctx context.Context) time.Time {
	return asOfOr(ctx, time.Now())
}

// Fixed always reports At.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now(ctx context.Context) time.Time {
	return asOfOr(ctx, f.At)
}

func asOfOr(ctx context.Context, fallback time.Time) time.Time {
	if t, ok := AsOfFromContext(ctx); ok {
		return t
	}
	return fallback.UTC()
}
