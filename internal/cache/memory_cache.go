package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// cacheItem represents an item in the memory cache
type cacheItem struct {
	value      []byte
	expiration time.Time
}

// MemoryCache implements Cache interface using in-memory storage
type MemoryCache struct {
	items         map[string]*cacheItem
	mutex         sync.RWMutex
	maxMemory     int64
	currentMemory int64
	hits          int64
	misses        int64
	evictions     int64
	cleanupDone   chan struct{}
	closed        bool
}

// NewMemoryCache creates a new in-memory cache. A positive cleanupInterval
// starts a goroutine that drops expired items until Close is called.
func NewMemoryCache(maxMemory int64, cleanupInterval time.Duration) *MemoryCache {
	cache := &MemoryCache{
		items:       make(map[string]*cacheItem),
		maxMemory:   maxMemory,
		cleanupDone: make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go cache.startCleanup(cleanupInterval)
	}

	return cache
}

// Get retrieves a value from cache
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.closed {
		return nil, ErrCacheDisabled
	}

	item, exists := c.items[key]
	if !exists || time.Now().After(item.expiration) {
		// expired items are left for the cleanup loop
		atomic.AddInt64(&c.misses, 1)
		return nil, ErrKeyNotFound
	}

	atomic.AddInt64(&c.hits, 1)
	result := make([]byte, len(item.value))
	copy(result, item.value)
	return result, nil
}

// Set stores a value in cache with expiration
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return ErrCacheDisabled
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	newItem := &cacheItem{
		value:      valueCopy,
		expiration: time.Now().Add(ttl),
	}

	c.updateMemoryUsage(key, newItem, c.items[key])
	c.items[key] = newItem
	c.evictIfNeeded(key)
	return nil
}

// Delete removes a value from cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if item, exists := c.items[key]; exists {
		delete(c.items, key)
		c.updateMemoryUsage(key, nil, item)
	}
	return nil
}

// Close stops the cleanup loop and drops every item
func (c *MemoryCache) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return nil
	}

	close(c.cleanupDone)
	c.items = make(map[string]*cacheItem)
	c.currentMemory = 0
	c.closed = true
	return nil
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	active := int64(0)
	now := time.Now()
	for _, item := range c.items {
		if !now.After(item.expiration) {
			active++
		}
	}

	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	return CacheStats{
		Hits:        hits,
		Misses:      misses,
		HitRatio:    hitRatio(hits, misses),
		Keys:        active,
		MemoryUsage: c.currentMemory,
		Evictions:   atomic.LoadInt64(&c.evictions),
	}
}

// startCleanup runs a background goroutine to clean up expired items
func (c *MemoryCache) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.cleanupDone:
			return
		}
	}
}

// cleanupExpired removes expired items from the cache
func (c *MemoryCache) cleanupExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	for key, item := range c.items {
		if now.After(item.expiration) {
			delete(c.items, key)
			c.updateMemoryUsage(key, nil, item)
		}
	}
}

// evictIfNeeded drops expired items first, then arbitrary ones, until the
// cache fits in maxMemory again. The key just written is kept.
func (c *MemoryCache) evictIfNeeded(keep string) {
	if c.maxMemory <= 0 || c.currentMemory <= c.maxMemory {
		return
	}

	now := time.Now()
	for key, item := range c.items {
		if key != keep && now.After(item.expiration) {
			c.evict(key, item)
		}
	}

	for key, item := range c.items {
		if c.currentMemory <= c.maxMemory {
			return
		}
		if key != keep {
			c.evict(key, item)
		}
	}
}

func (c *MemoryCache) evict(key string, item *cacheItem) {
	delete(c.items, key)
	c.updateMemoryUsage(key, nil, item)
	atomic.AddInt64(&c.evictions, 1)
}

// calculateMemoryUsage estimates memory usage for a cache item
func calculateMemoryUsage(key string, item *cacheItem) int64 {
	if item == nil {
		return 0
	}
	// key + value + overhead
	return int64(len(key) + len(item.value) + 64)
}

// updateMemoryUsage updates current memory usage when items change
func (c *MemoryCache) updateMemoryUsage(key string, newItem, oldItem *cacheItem) {
	c.currentMemory = c.currentMemory - calculateMemoryUsage(key, oldItem) + calculateMemoryUsage(key, newItem)
}
