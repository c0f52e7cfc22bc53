package gtfs

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DatasetLoader produces the dataset for a mode key.
type DatasetLoader func(ctx context.Context, key string) (*Dataset, error)

// StaticCache holds each mode's dataset and route/stop index. Entries are
// loaded on first use, shared by every concurrent caller of the same key, and
// never invalidated. A failed load leaves the key empty so the next call
// retries.
type StaticCache struct {
	load     DatasetLoader
	stopKeys func(key string) StopKeyFunc
	observer Observer

	group    singleflight.Group
	mu       sync.RWMutex
	datasets map[string]*Dataset
	indexes  map[string]*RouteStopIndex
}

func NewStaticCache(load DatasetLoader, stopKeys func(key string) StopKeyFunc, observer Observer) *StaticCache {
	if observer == nil {
		observer = nopObserver{}
	}
	return &StaticCache{
		load:     load,
		stopKeys: stopKeys,
		observer: observer,
		datasets: make(map[string]*Dataset),
		indexes:  make(map[string]*RouteStopIndex),
	}
}

// Dataset returns the dataset for key, loading it at most once.
func (c *StaticCache) Dataset(ctx context.Context, key string) (*Dataset, error) {
	if d := c.cachedDataset(key); d != nil {
		return d, nil
	}

	v, err := c.do(ctx, "dataset:"+key, func(loadCtx context.Context) (interface{}, error) {
		if d := c.cachedDataset(key); d != nil {
			return d, nil
		}

		start := time.Now()
		d, err := c.load(loadCtx, key)
		c.observer.StaticLoaded(key, time.Since(start), err)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.datasets[key] = d
		c.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dataset), nil
}

// Index returns the route/stop index for key, building it at most once.
func (c *StaticCache) Index(ctx context.Context, key string) (*RouteStopIndex, error) {
	if idx := c.cachedIndex(key); idx != nil {
		return idx, nil
	}

	dataset, err := c.Dataset(ctx, key)
	if err != nil {
		return nil, err
	}

	v, err := c.do(ctx, "index:"+key, func(context.Context) (interface{}, error) {
		if idx := c.cachedIndex(key); idx != nil {
			return idx, nil
		}

		var stopKey StopKeyFunc
		if c.stopKeys != nil {
			stopKey = c.stopKeys(key)
		}
		idx := BuildIndex(dataset, stopKey)

		c.mu.Lock()
		c.indexes[key] = idx
		c.mu.Unlock()
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*RouteStopIndex), nil
}

// do coalesces callers onto one in-flight call. The shared work is detached
// from any single caller's cancellation; a caller that gives up stops waiting
// but the load still completes for everyone else.
func (c *StaticCache) do(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return fn(loadCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (c *StaticCache) cachedDataset(key string) *Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.datasets[key]
}

func (c *StaticCache) cachedIndex(key string) *RouteStopIndex {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexes[key]
}

// Loaded lists the keys whose dataset is resident.
func (c *StaticCache) Loaded() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.datasets))
	for k := range c.datasets {
		keys = append(keys, k)
	}
	return keys
}
