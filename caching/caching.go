// Package caching wraps an in-memory TTL cache used for AI responses and
// other derived data that is expensive to recompute.
package caching

import (
	"time"

	"github.com/patrickmn/go-cache"
)

type Cache struct {
	memoryCache *cache.Cache
}

func NewCache(defaultTTL time.Duration) *Cache {
	return &Cache{
		memoryCache: cache.New(defaultTTL, defaultTTL),
	}
}

func (s *Cache) Get(key string) (any, bool) {
	return s.memoryCache.Get(key)
}

func (s *Cache) Set(key string, value any, ttl time.Duration) {
	s.memoryCache.Set(key, value, ttl)
}

func (s *Cache) Flush() {
	s.memoryCache.Flush()
}
