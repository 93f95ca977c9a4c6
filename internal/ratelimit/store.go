package ratelimit

import (
	"context"
	"time"
)

// Store keeps sliding-window counters.
type Store interface {
	// Record adds a hit under key, drops hits older than window and returns
	// how many remain, the new one included.
	Record(ctx context.Context, key string, window time.Duration) (count int64, err error)
}
