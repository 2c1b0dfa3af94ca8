package fdcache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.uber.org/zap"

	"github.com/schemejs/storage/errs"
)

// FDCache is a fixed-capacity LRU of FileBackings keyed by path. Get peeks
// without promoting recency; Acquire inserts a new backing, evicting the
// least-recently-used *idle* entry when at capacity, and fails with
// ErrTooManyOpen when every entry is busy.
//
// The underlying simplelru.LRU is configured with an effectively unbounded
// size (capacity enforcement happens in Acquire, which needs to skip busy
// entries rather than always evicting the oldest) and used purely for its
// recency-ordered Keys()/Remove() API.
type FDCache struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[string, *FileBacking]
	capacity int
	log      *zap.Logger
}

// New builds an FDCache bounded by capacity simultaneously open FileBackings.
func New(capacity int, log *zap.Logger) (*FDCache, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = 1
	}
	lru, err := simplelru.NewLRU[string, *FileBacking](1<<30, nil)
	if err != nil {
		return nil, fmt.Errorf("fdcache: %w", err)
	}
	return &FDCache{lru: lru, capacity: capacity, log: log}, nil
}

// Get returns a shared handle without promoting recency (a peek).
func (c *FDCache) Get(path string) (*FileBacking, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Peek(path)
}

// Acquire returns the cached FileBacking for path, opening (and inserting)
// one if absent. If the cache is at capacity, it evicts the
// least-recently-used entry whose writer lock is currently free before
// inserting. If every entry is busy, it fails with ErrTooManyOpen.
func (c *FDCache) Acquire(path string) (*FileBacking, error) {
	c.mu.Lock()
	if fb, ok := c.lru.Get(path); ok {
		c.mu.Unlock()
		return fb, nil
	}

	if c.lru.Len() >= c.capacity {
		if !c.evictOneIdleLocked() {
			c.mu.Unlock()
			return nil, errs.ErrTooManyOpen
		}
	}
	c.mu.Unlock()

	fb, err := Open(path, c.log)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another goroutine may have raced us to open the same path; prefer the
	// winner already installed and close our own redundant handle.
	if existing, ok := c.lru.Get(path); ok {
		_ = fb.Close()
		return existing, nil
	}
	c.lru.Add(path, fb)
	return fb, nil
}

// AcquireWithRetry calls Acquire, retrying with exponential backoff while
// every cached entry is busy (ErrTooManyOpen, a transient condition under
// heavy concurrent writers, unlike the other errors Acquire can return). It
// gives up once ctx is done.
func (c *FDCache) AcquireWithRetry(ctx context.Context, path string) (*FileBacking, error) {
	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)

	var fb *FileBacking
	operation := func() error {
		var err error
		fb, err = c.Acquire(path)
		if errors.Is(err, errs.ErrTooManyOpen) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}
	return fb, nil
}

// evictOneIdleLocked scans entries oldest-first and removes the first one
// whose writer lock is free. Caller must hold c.mu. Returns false if every
// entry is busy.
func (c *FDCache) evictOneIdleLocked() bool {
	for _, key := range c.lru.Keys() {
		fb, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if fb.TryWriteLock() {
			c.lru.Remove(key)
			if err := fb.Close(); err != nil {
				c.log.Warn("close evicted filebacking", zap.String("path", key), zap.Error(err))
			}
			return true
		}
	}
	return false
}

// Invalidate removes entries for the given paths asynchronously, closing
// their underlying FileBackings.
func (c *FDCache) Invalidate(paths []string) {
	go func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for _, p := range paths {
			if fb, ok := c.lru.Peek(p); ok {
				c.lru.Remove(p)
				if err := fb.Close(); err != nil {
					c.log.Warn("close invalidated filebacking", zap.String("path", p), zap.Error(err))
				}
			}
		}
	}()
}

// Len reports the number of currently cached entries.
func (c *FDCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
