package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClockHonoursAsOf(t *testing.T) {
	asOf := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx := WithAsOf(context.Background(), asOf)

	assert.Equal(t, asOf, SystemClock{}.Now(ctx))
	assert.WithinDuration(t, time.Now().UTC(), SystemClock{}.Now(context.Background()), time.Second)
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	c := Fixed{At: at}

	assert.Equal(t, at, c.Now(context.Background()))

	asOf := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, asOf, c.Now(WithAsOf(context.Background(), asOf)))
}
