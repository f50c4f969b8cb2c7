package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summary struct {
	StudyToday int
}

func TestFetch_LoadsOnceThenHits(t *testing.T) {
	s := NewStore()
	var calls atomic.Int32
	load := func(ctx context.Context) (summary, error) {
		calls.Add(1)
		return summary{StudyToday: 30}, nil
	}

	key := MakeKey("42", DashboardSummary, nil)
	for i := 0; i < 3; i++ {
		v, err := Fetch(context.Background(), s, key, SummaryTTL, load)
		require.NoError(t, err)
		require.Equal(t, 30, v.StudyToday)
	}
	require.Equal(t, int32(1), calls.Load())
}

func TestFetch_ConcurrentMissesShareOneLoad(t *testing.T) {
	s := NewStore()
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(ctx context.Context) (summary, error) {
		calls.Add(1)
		<-release
		return summary{StudyToday: 30}, nil
	}

	key := MakeKey("42", DashboardSummary, nil)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Fetch(context.Background(), s, key, SummaryTTL, load)
			assert.NoError(t, err)
			assert.Equal(t, 30, v.StudyToday)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
}

func TestFetch_ErrorNotCached(t *testing.T) {
	s := NewStore()
	boom := errors.New("db down")
	key := MakeKey("u1", Subjects, nil)

	_, err := Fetch(context.Background(), s, key, ListTTL, func(ctx context.Context) ([]string, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, s.Len())

	v, err := Fetch(context.Background(), s, key, ListTTL, func(ctx context.Context) ([]string, error) {
		return []string{"math"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"math"}, v)
}

func TestFetch_WrongTypeIsMiss(t *testing.T) {
	s := NewStore()
	key := MakeKey("u1", Subjects, nil)
	s.Set(key, 123, ListTTL)

	v, err := Fetch(context.Background(), s, key, ListTTL, func(ctx context.Context) ([]string, error) {
		return []string{"math"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"math"}, v)
}

// failingCache never stores anything.
type failingCache struct{}

func (failingCache) Get(string) (any, bool)               { return nil, false }
func (failingCache) Set(string, any, time.Duration) bool { return false }
func (failingCache) Delete(string) bool                  { return false }
func (failingCache) ClearForPrefix(string) int           { return 0 }

func TestFetch_FallsThroughWhenCacheFails(t *testing.T) {
	var calls int
	load := func(ctx context.Context) (int, error) {
		calls++
		return 7, nil
	}
	for i := 0; i < 2; i++ {
		v, err := Fetch[int](context.Background(), failingCache{}, "u:x", time.Minute, load)
		require.NoError(t, err)
		require.Equal(t, 7, v)
	}
	require.Equal(t, 2, calls)
}

func TestFetch_InvalidationDuringLoadIsNotCached(t *testing.T) {
	s := NewStore()
	key := MakeKey("u1", Subjects, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	load := func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
			return "before write", nil
		}
		return "after write", nil
	}

	slow := make(chan string, 1)
	go func() {
		v, _ := Fetch(context.Background(), s, key, time.Minute, load)
		slow <- v
	}()
	<-started

	// A write lands while the first load is still reading.
	InvalidateEndpoints(s, "u1", Subjects)

	v, err := Fetch(context.Background(), s, key, time.Minute, load)
	require.NoError(t, err)
	require.Equal(t, "after write", v)

	close(release)
	require.Equal(t, "before write", <-slow)
	require.Equal(t, int32(2), calls.Load())

	got, ok := s.Get(key)
	require.True(t, ok)
	require.Equal(t, "after write", got)
}

func TestFetch_OtherUsersInvalidationDoesNotBlockCaching(t *testing.T) {
	s := NewStore()
	key := MakeKey("u1", Subjects, nil)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Fetch(context.Background(), s, key, time.Minute, func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started
	s.ClearForPrefix("u10")
	close(release)
	<-done

	_, ok := s.Get(key)
	require.True(t, ok)
}

func TestFetch_LoadIgnoresCallerCancellation(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := Fetch(ctx, s, "u1:profile", time.Minute, func(ctx context.Context) (int, error) {
		return 7, ctx.Err()
	})
	require.NoError(t, err)
	require.Equal(t, 7, v)
}
