package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qolzam/feed/internal/pkg/log"
	"github.com/qolzam/feed/internal/platform/config"
)

const generationStripes = 64

// GenericCacheService stores JSON values under prefixed keys
type GenericCacheService struct {
	cache   Cache
	config  config.CacheConfig
	stats   serviceStats
	stripes [generationStripes]generationStripe
}

// generationStripe orders fills against invalidations for the keys hashed
// onto it. gen only grows.
type generationStripe struct {
	mu  sync.Mutex
	gen uint64
}

// serviceStats tracks cache service statistics with atomic operations for thread safety
type serviceStats struct {
	hits    int64
	misses  int64
	errors  int64
	sets    int64
	deletes int64
}

// ServiceStats is a point-in-time copy of the service counters
type ServiceStats struct {
	Hits    int64      `json:"hits"`
	Misses  int64      `json:"misses"`
	Errors  int64      `json:"errors"`
	Sets    int64      `json:"sets"`
	Deletes int64      `json:"deletes"`
	Backend CacheStats `json:"backend"`
}

// NewGenericCacheService creates a new generic cache service
func NewGenericCacheService(cache Cache, cfg config.CacheConfig) *GenericCacheService {
	return &GenericCacheService{
		cache:  cache,
		config: cfg,
	}
}

// IsEnabled reports whether reads and writes reach a backend
func (gcs *GenericCacheService) IsEnabled() bool {
	return gcs != nil && gcs.config.Enabled && gcs.cache != nil
}

// GetCached retrieves and unmarshals cached data into the target interface
func (gcs *GenericCacheService) GetCached(ctx context.Context, key string, target interface{}) error {
	if !gcs.IsEnabled() {
		return ErrCacheDisabled
	}

	fullKey, err := gcs.buildKey(key)
	if err != nil {
		return err
	}

	data, err := gcs.cache.Get(ctx, fullKey)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			atomic.AddInt64(&gcs.stats.misses, 1)
		} else {
			atomic.AddInt64(&gcs.stats.errors, 1)
			log.Error("Cache get error for key %s: %v", fullKey, err)
		}
		return err
	}

	if err := json.Unmarshal(data, target); err != nil {
		atomic.AddInt64(&gcs.stats.errors, 1)
		log.Error("Cache data unmarshal error for key %s: %v", fullKey, err)
		return fmt.Errorf("%w: %v", ErrDeserializationFailed, err)
	}

	atomic.AddInt64(&gcs.stats.hits, 1)
	return nil
}

// CacheData marshals and stores data in cache with TTL
func (gcs *GenericCacheService) CacheData(ctx context.Context, key string, data interface{}, ttl ...time.Duration) error {
	if !gcs.IsEnabled() {
		return ErrCacheDisabled
	}
	return gcs.set(ctx, key, data, ttl...)
}

// Generation returns a stamp for key. Take it before loading the value that
// is later passed to CacheDataIfCurrent.
func (gcs *GenericCacheService) Generation(key string) uint64 {
	if !gcs.IsEnabled() {
		return 0
	}
	stripe := gcs.stripe(key)
	stripe.mu.Lock()
	defer stripe.mu.Unlock()
	return stripe.gen
}

// CacheDataIfCurrent stores data only if key was not invalidated since gen
// was taken. It reports whether the value was stored.
func (gcs *GenericCacheService) CacheDataIfCurrent(ctx context.Context, key string, data interface{}, gen uint64, ttl ...time.Duration) (bool, error) {
	if !gcs.IsEnabled() {
		return false, ErrCacheDisabled
	}
	stripe := gcs.stripe(key)
	stripe.mu.Lock()
	defer stripe.mu.Unlock()
	if stripe.gen != gen {
		return false, nil
	}
	if err := gcs.set(ctx, key, data, ttl...); err != nil {
		return false, err
	}
	return true, nil
}

func (gcs *GenericCacheService) stripe(key string) *generationStripe {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &gcs.stripes[h.Sum32()%generationStripes]
}

func (gcs *GenericCacheService) set(ctx context.Context, key string, data interface{}, ttl ...time.Duration) error {

	cacheTTL := gcs.config.TTL
	if len(ttl) > 0 && ttl[0] > 0 {
		cacheTTL = ttl[0]
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		atomic.AddInt64(&gcs.stats.errors, 1)
		return fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}

	fullKey, err := gcs.buildKey(key)
	if err != nil {
		return err
	}

	if err := gcs.cache.Set(ctx, fullKey, jsonData, cacheTTL); err != nil {
		atomic.AddInt64(&gcs.stats.errors, 1)
		log.Error("Cache set error for key %s: %v", fullKey, err)
		return err
	}

	atomic.AddInt64(&gcs.stats.sets, 1)
	return nil
}

// InvalidateKey removes a specific key from cache
func (gcs *GenericCacheService) InvalidateKey(ctx context.Context, key string) error {
	if !gcs.IsEnabled() {
		return ErrCacheDisabled
	}

	fullKey, err := gcs.buildKey(key)
	if err != nil {
		return err
	}

	stripe := gcs.stripe(key)
	stripe.mu.Lock()
	defer stripe.mu.Unlock()
	stripe.gen++

	if err := gcs.cache.Delete(ctx, fullKey); err != nil {
		atomic.AddInt64(&gcs.stats.errors, 1)
		log.Error("Cache key invalidation error for key %s: %v", fullKey, err)
		return err
	}

	atomic.AddInt64(&gcs.stats.deletes, 1)
	return nil
}

// GetStats returns the service counters plus the backend statistics
func (gcs *GenericCacheService) GetStats() ServiceStats {
	stats := ServiceStats{
		Hits:    atomic.LoadInt64(&gcs.stats.hits),
		Misses:  atomic.LoadInt64(&gcs.stats.misses),
		Errors:  atomic.LoadInt64(&gcs.stats.errors),
		Sets:    atomic.LoadInt64(&gcs.stats.sets),
		Deletes: atomic.LoadInt64(&gcs.stats.deletes),
	}
	if gcs.cache != nil {
		stats.Backend = gcs.cache.Stats()
	}
	return stats
}

// Close closes the underlying backend
func (gcs *GenericCacheService) Close() error {
	if gcs.cache != nil {
		return gcs.cache.Close()
	}
	return nil
}

func (gcs *GenericCacheService) buildKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, " \n\r\t") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return gcs.config.Prefix + key, nil
}
