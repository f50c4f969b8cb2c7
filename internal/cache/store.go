package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"
)

// entry stores a cached value and its absolute expiration timestamp.
type entry struct {
	value     any
	expiresAt time.Time
}

// Stats is a snapshot of store counters.
type Stats struct {
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Sets      uint64 `json:"sets"`
	Deletes   uint64 `json:"deletes"`
	Evictions uint64 `json:"evictions"`
}

// Store is a map-backed cache guarded by a single mutex. Expired entries are
// removed by the read that finds them, or by PurgeExpired.
//
// One Store is created at startup and shared by every handler.
type Store struct {
	mu    sync.Mutex
	items map[string]entry

	// gens counts invalidations per user segment. Fetch skips storing a
	// load that began under an older generation.
	gens map[string]uint64

	// loads deduplicates concurrent misses for the same key in Fetch.
	loads singleflight.Group

	hits, misses, sets, deletes, evictions atomic.Uint64
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		items: make(map[string]entry),
		gens:  make(map[string]uint64),
	}
}

// now is a small indirection to allow test stubbing.
var now = time.Now

// Get implements Cache.Get.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	if !now().Before(e.expiresAt) {
		delete(s.items, key)
		s.evictions.Add(1)
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return e.value, true
}

// Set implements Cache.Set. A non-positive ttl stores an already expired
// entry, which the next Get evicts.
func (s *Store) Set(key string, value any, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(key, value, ttl)
}

// setIfCurrent stores the value only when no invalidation touched the key's
// user segment since gen was read.
func (s *Store) setIfCurrent(key string, value any, ttl time.Duration, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[segment(key)] != gen {
		return false
	}
	return s.setLocked(key, value, ttl)
}

func (s *Store) setLocked(key string, value any, ttl time.Duration) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"key": key, "panic": r}).Warn("cache set failed")
			ok = false
		}
	}()

	s.items[key] = entry{
		value:     value,
		expiresAt: now().Add(ttl),
	}
	s.sets.Add(1)
	return true
}

// generation returns the invalidation count for the key's user segment.
func (s *Store) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[segment(key)]
}

// bump records an invalidation. Callers hold s.mu.
func (s *Store) bump(key string) {
	if s.gens == nil {
		s.gens = make(map[string]uint64)
	}
	s.gens[segment(key)]++
}

// segment returns the user part of a key or prefix.
func segment(key string) string {
	if i := strings.Index(key, separator); i >= 0 {
		return key[:i]
	}
	return key
}

// Delete implements Cache.Delete.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bump(key)
	if _, ok := s.items[key]; !ok {
		return false
	}
	delete(s.items, key)
	s.deletes.Add(1)
	return true
}

// ClearForPrefix implements Cache.ClearForPrefix. Only keys continuing with
// the separator match, so "u1" never clears "u10:...".
func (s *Store) ClearForPrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bump(prefix)
	bounded := prefix + separator
	count := 0
	for k := range s.items {
		if strings.HasPrefix(k, bounded) {
			delete(s.items, k)
			count++
		}
	}
	s.deletes.Add(uint64(count))
	return count
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// PurgeExpired removes every expired entry and returns how many it removed.
func (s *Store) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	count := 0
	for k, e := range s.items {
		if !ts.Before(e.expiresAt) {
			delete(s.items, k)
			count++
		}
	}
	s.evictions.Add(uint64(count))
	return count
}

// StartJanitor runs PurgeExpired every interval until ctx is done.
// It returns immediately when interval is not positive.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.PurgeExpired(); n > 0 {
					log.WithField("removed", n).Debug("cache sweep")
				}
			}
		}
	}()
}

// Stats returns the current counters.
func (s *Store) Stats() Stats {
	return Stats{
		Entries:   s.Len(),
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Sets:      s.sets.Load(),
		Deletes:   s.deletes.Load(),
		Evictions: s.evictions.Load(),
	}
}

// Ensure Store implements Cache at compile time.
var _ Cache = (*Store)(nil)
