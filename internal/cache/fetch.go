package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/apex/log"
)

// LoadFunc produces the authoritative value for a cache miss.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Fetch returns the cached value for key, or calls load, caches its result for
// ttl and returns it. Concurrent misses on a *Store share one load call.
// A cached value of another type counts as a miss. Caching failures never
// fail the call; load errors are returned unchanged and nothing is cached.
//
// The load runs detached from ctx cancellation, since its result is shared
// with every caller waiting on the same key.
func Fetch[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load LoadFunc[T]) (T, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
		log.WithField("key", key).Warn("cache entry has unexpected type")
	}

	loadCtx := context.WithoutCancel(ctx)
	fill := func(store func(any) bool) func() (any, error) {
		return func() (any, error) {
			if v, ok := c.Get(key); ok {
				if typed, ok := v.(T); ok {
					return typed, nil
				}
			}
			val, err := load(loadCtx)
			if err != nil {
				return val, err
			}
			if !store(val) {
				log.WithField("key", key).Debug("cache set skipped")
			}
			return val, nil
		}
	}

	var (
		res any
		err error
	)
	if s, ok := c.(*Store); ok {
		// A load that started before an invalidation must not repopulate the
		// key, and callers arriving after it must not join that load.
		gen := s.generation(key)
		res, err, _ = s.loads.Do(key+"#"+strconv.FormatUint(gen, 10), fill(func(v any) bool {
			return s.setIfCurrent(key, v, ttl, gen)
		}))
	} else {
		res, err = fill(func(v any) bool { return c.Set(key, v, ttl) })()
	}

	typed, _ := res.(T)
	return typed, err
}
