package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps fixed-window counters per key in process memory. Each key
// gets its own mutex; the store-level mutex only guards the map lookup, so
// unrelated clients never serialize on each other's admission checks.
//
// Windows are discrete: a key's window starts at its first request and hard
// resets once the duration has elapsed. Rejected requests do not consume
// quota.
type MemoryStore struct {
	policies []Policy

	mu      sync.Mutex
	entries map[string]*entry

	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
}

type entry struct {
	mu       sync.Mutex
	windows  []window
	lastSeen time.Time
}

type window struct {
	start time.Time
	count int
}

type MemoryOption func(*MemoryStore)

// WithIdleTTL sets how long a key may stay idle before the janitor evicts it.
func WithIdleTTL(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.idleTTL = d }
}

// WithCleanupEvery sets the janitor sweep interval. Zero disables the janitor.
func WithCleanupEvery(d time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.cleanupEvery = d }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(policies []Policy, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		policies:     policies,
		entries:      make(map[string]*entry),
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Admit implements RateStore. The request is admitted only when every policy
// has room; on reject the decision carries the first failing policy's
// metadata, on admit the smallest-remaining policy's.
func (s *MemoryStore) Admit(_ context.Context, key string) (Decision, error) {
	now := s.now()
	e := s.entry(key, now)

	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.windows {
		w := &e.windows[i]
		p := s.policies[i]
		if now.Sub(w.start) >= p.Window {
			w.start = now
			w.count = 0
		}
		if w.count >= p.Limit {
			return Decision{
				Allowed:   false,
				Limit:     p.Limit,
				Remaining: 0,
				ResetAt:   w.start.Add(p.Window),
			}, nil
		}
	}

	var admitted Decision
	for i := range e.windows {
		w := &e.windows[i]
		p := s.policies[i]
		w.count++
		d := Decision{
			Allowed:   true,
			Limit:     p.Limit,
			Remaining: p.Limit - w.count,
			ResetAt:   w.start.Add(p.Window),
		}
		if i == 0 || d.Remaining < admitted.Remaining {
			admitted = d
		}
	}
	return admitted, nil
}

func (s *MemoryStore) entry(key string, now time.Time) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{windows: make([]window, len(s.policies))}
		for i := range e.windows {
			e.windows[i].start = now
		}
		s.entries[key] = e
	}
	e.lastSeen = now
	return e
}

// Len reports the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup evicts keys that have been idle longer than the idle TTL.
func (s *MemoryStore) Cleanup() {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor sweeps idle keys periodically until the context is canceled.
func (s *MemoryStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
