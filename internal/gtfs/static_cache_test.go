package gtfs

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

type recordingObserver struct {
	mu        sync.Mutex
	loads     []error
	fetches   []error
	cacheHits int
}

func (o *recordingObserver) StaticLoaded(_ string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loads = append(o.loads, err)
}

func (o *recordingObserver) FeedFetched(_ string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetches = append(o.fetches, err)
}

func (o *recordingObserver) FeedCacheHit(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cacheHits++
}

func TestStaticCacheLoadsOnceUnderConcurrency(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	loader := func(ctx context.Context, key string) (*Dataset, error) {
		loads.Add(1)
		<-release
		return indexFixture(), nil
	}
	observer := &recordingObserver{}
	cache := NewStaticCache(loader, func(string) StopKeyFunc { return stripPlatform }, observer)

	const callers = 50
	var wg sync.WaitGroup
	datasets := make([]*Dataset, callers)
	indexes := make([]*RouteStopIndex, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				datasets[i], errs[i] = cache.Dataset(context.Background(), "subway")
			} else {
				indexes[i], errs[i] = cache.Index(context.Background(), "subway")
			}
		}(i)
	}

	// Let the callers pile up on the in-flight load before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	assert.Len(t, observer.loads, 1)

	var first *Dataset
	var firstIndex *RouteStopIndex
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		if i%2 == 0 {
			if first == nil {
				first = datasets[i]
			}
			assert.Same(t, first, datasets[i])
		} else {
			if firstIndex == nil {
				firstIndex = indexes[i]
			}
			assert.Same(t, firstIndex, indexes[i])
		}
	}

	assert.Equal(t, []string{"subway"}, cache.Loaded())
}

func TestStaticCacheRetriesAfterFailure(t *testing.T) {
	var loads atomic.Int32
	loader := func(ctx context.Context, key string) (*Dataset, error) {
		if loads.Add(1) == 1 {
			return nil, ErrStaticLoad
		}
		return indexFixture(), nil
	}
	cache := NewStaticCache(loader, nil, nil)

	_, err := cache.Dataset(context.Background(), "lirr")
	assert.True(t, errors.Is(err, ErrStaticLoad))
	assert.Empty(t, cache.Loaded())

	idx, err := cache.Index(context.Background(), "lirr")
	require.NoError(t, err)
	assert.Equal(t, 3, idx.RouteCount())
	assert.Equal(t, int32(2), loads.Load())

	// Resident now; no further loads.
	_, err = cache.Dataset(context.Background(), "lirr")
	require.NoError(t, err)
	assert.Equal(t, int32(2), loads.Load())
}

func TestStaticCacheCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	loader := func(ctx context.Context, key string) (*Dataset, error) {
		<-release
		return indexFixture(), nil
	}
	cache := NewStaticCache(loader, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cache.Dataset(ctx, "mnrr")
	assert.ErrorIs(t, err, context.Canceled)

	// The abandoned load still completes for the next caller.
	close(release)
	dataset, err := cache.Dataset(context.Background(), "mnrr")
	require.NoError(t, err)
	assert.NotNil(t, dataset)
}
