package store

import "time"

// NewRateLimitMemoryStoreWithClock exposes the clock seam to tests.
func NewRateLimitMemoryStoreWithClock(now func() time.Time) *RateLimitMemoryStore {
	return newRateLimitMemoryStore(now)
}
