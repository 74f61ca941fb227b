package cache

import (
	"fmt"

	"github.com/qolzam/feed/internal/platform/config"
)

// NewCache builds the backend selected by cfg.Backend
func NewCache(cfg config.CacheConfig) (Cache, error) {
	switch CacheType(cfg.Backend) {
	case CacheTypeMemory:
		return NewMemoryCache(cfg.MaxMemory, cfg.CleanupInterval), nil
	case CacheTypeRedis:
		return NewRedisCache(cfg.Redis)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidCacheType, cfg.Backend)
	}
}

// NewCacheService builds the backend and wraps it in a GenericCacheService.
// A disabled cache yields a service that misses on every read.
func NewCacheService(cfg config.CacheConfig) (*GenericCacheService, error) {
	if !cfg.Enabled {
		return NewGenericCacheService(nil, cfg), nil
	}
	backend, err := NewCache(cfg)
	if err != nil {
		return nil, err
	}
	return NewGenericCacheService(backend, cfg), nil
}
