package store

import (
	"context"
	"sync"
	"time"
)

const defaultSweepEvery = time.Minute

type window struct {
	hits []time.Time
	size time.Duration
}

// RateLimitMemoryStore keeps sliding-window timestamps in process memory.
// Keys with no hit left inside their window are swept at most once per
// sweepEvery.
type RateLimitMemoryStore struct {
	mu         sync.Mutex
	windows    map[string]*window
	now        func() time.Time
	sweepEvery time.Duration
	lastSweep  time.Time
}

func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return newRateLimitMemoryStore(time.Now)
}

func newRateLimitMemoryStore(now func() time.Time) *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		windows:    make(map[string]*window),
		now:        now,
		sweepEvery: defaultSweepEvery,
		lastSweep:  now(),
	}
}

func (s *RateLimitMemoryStore) Record(_ context.Context, key string, size time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	w, ok := s.windows[key]
	if !ok {
		w = &window{}
		s.windows[key] = w
	}

	w.size = size
	w.hits = append(prune(w.hits, now.Add(-size)), now)

	if now.Sub(s.lastSweep) >= s.sweepEvery {
		s.sweep(now)
	}

	return int64(len(w.hits)), nil
}

// prune drops hits at or before cutoff, reusing the backing array.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}

	return append(hits[:0], hits[i:]...)
}

func (s *RateLimitMemoryStore) sweep(now time.Time) {
	for key, w := range s.windows {
		if len(w.hits) == 0 || !w.hits[len(w.hits)-1].After(now.Add(-w.size)) {
			delete(s.windows, key)
		}
	}

	s.lastSweep = now
}

// Keys reports how many keys are tracked.
func (s *RateLimitMemoryStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.windows)
}
