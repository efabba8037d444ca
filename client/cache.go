package client

import (
	"context"
	"errors"
	"sync"
)

// ErrNotCached means Mutate was called for a key that was never loaded.
var ErrNotCached = errors.New("resource is not cached")

// Fetcher loads the authoritative value of a resource key from the server.
type Fetcher[V any] func(ctx context.Context, key string) (V, error)

// Cache is an optimistic request/response cache. A mutation is applied to the
// cached value immediately, rolled back in full if its request fails, and in
// either case superseded by a background refetch of the authoritative value.
// Values must be treated as immutable snapshots: apply functions return a new
// value instead of modifying the old one in place.
type Cache[V any] struct {
	fetch Fetcher[V]

	mu      sync.Mutex
	entries map[string]*cacheEntry[V]
	wg      sync.WaitGroup
}

type cacheEntry[V any] struct {
	value V
	// gen counts mutations; a rollback or refetch only lands if no newer
	// mutation happened since it was taken.
	gen           uint64
	refetchCancel context.CancelFunc
}

func NewCache[V any](fetch Fetcher[V]) *Cache[V] {
	return &Cache[V]{fetch: fetch, entries: make(map[string]*cacheEntry[V])}
}

// Get returns the cached value for key, if any.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Load returns the cached value for key, fetching and priming the cache when
// it is absent.
func (c *Cache[V]) Load(ctx context.Context, key string) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	value, err := c.fetch(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// a concurrent mutation may have primed the entry meanwhile; keep it
	if entry, ok := c.entries[key]; ok {
		return entry.value, nil
	}
	c.entries[key] = &cacheEntry[V]{value: value}
	return value, nil
}

// Mutate runs the optimistic-update protocol for one mutation:
//
//  1. any in-flight refetch for key is cancelled,
//  2. the current value is snapshotted,
//  3. apply's result replaces the cached value synchronously,
//  4. request performs the server update,
//  5. on failure the snapshot is restored in full,
//  6. win or lose, a background refetch replaces the cached value with
//     server truth; the optimistic write is never assumed final.
//
// The request error is returned as-is.
func (c *Cache[V]) Mutate(ctx context.Context, key string, apply func(V) V, request func(context.Context) error) error {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return ErrNotCached
	}
	if entry.refetchCancel != nil {
		entry.refetchCancel()
		entry.refetchCancel = nil
	}
	snapshot := entry.value
	entry.value = apply(entry.value)
	entry.gen++
	myGen := entry.gen
	c.mu.Unlock()

	reqErr := request(ctx)

	if reqErr != nil {
		c.mu.Lock()
		if entry.gen == myGen {
			entry.value = snapshot
		}
		c.mu.Unlock()
	}

	c.refetch(key, myGen)
	return reqErr
}

// Invalidate schedules a refetch of the key, e.g. after a non-optimistic
// create/delete that changed server state.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	gen := entry.gen
	c.mu.Unlock()
	c.refetch(key, gen)
}

// refetch reloads the key in the background and silently replaces the cached
// value, unless a newer mutation superseded gen meanwhile.
func (c *Cache[V]) refetch(key string, gen uint64) {
	refetchCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		cancel()
		return
	}
	if entry.refetchCancel != nil {
		entry.refetchCancel()
	}
	entry.refetchCancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		value, err := c.fetch(refetchCtx, key)
		if err != nil {
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		entry, ok := c.entries[key]
		if !ok || entry.gen != gen {
			return
		}
		entry.value = value
	}()
}

// WaitSettled blocks until every in-flight background refetch has finished.
func (c *Cache[V]) WaitSettled() {
	c.wg.Wait()
}
