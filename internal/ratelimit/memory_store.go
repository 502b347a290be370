package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounterStore is an in-process CounterStore used for tests and
// single-node development mode. It mirrors the Redis store's semantics:
// lazy purge on read, key-level expiry on write.
type MemoryCounterStore struct {
	mu          sync.Mutex
	entries     map[string][]time.Time
	expiry      map[string]time.Time
	unavailable bool
}

// NewMemoryCounterStore creates an in-memory counter store
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		entries: make(map[string][]time.Time),
		expiry:  make(map[string]time.Time),
	}
}

// SetUnavailable simulates a store outage: when set, every operation
// returns ErrStoreUnavailable until cleared.
func (s *MemoryCounterStore) SetUnavailable(unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = unavailable
}

// CountInWindow counts entries with timestamps in [windowStart, now],
// dropping aged-out entries first.
func (s *MemoryCounterStore) CountInWindow(ctx context.Context, key string, windowStart, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return 0, ErrStoreUnavailable
	}
	s.dropExpiredLocked(key, now)

	kept := s.entries[key][:0]
	count := 0
	for _, at := range s.entries[key] {
		if at.Before(windowStart) {
			continue
		}
		kept = append(kept, at)
		if !at.After(now) {
			count++
		}
	}
	if len(kept) == 0 {
		delete(s.entries, key)
	} else {
		s.entries[key] = kept
	}
	return count, nil
}

// Record appends one entry and refreshes the key expiry
func (s *MemoryCounterStore) Record(ctx context.Context, key string, now time.Time, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return ErrStoreUnavailable
	}
	s.dropExpiredLocked(key, now)
	s.entries[key] = append(s.entries[key], now)
	s.expiry[key] = now.Add(ttl)
	return nil
}

// Delete removes the key entirely
func (s *MemoryCounterStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return ErrStoreUnavailable
	}
	delete(s.entries, key)
	delete(s.expiry, key)
	return nil
}

func (s *MemoryCounterStore) dropExpiredLocked(key string, now time.Time) {
	if exp, ok := s.expiry[key]; ok && now.After(exp) {
		delete(s.entries, key)
		delete(s.expiry, key)
	}
}

var _ CounterStore = (*MemoryCounterStore)(nil)
