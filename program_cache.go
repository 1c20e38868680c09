package flux

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

func cachedProgram[P any](cache ProgramCache, key string) (P, bool) {
	var zero P
	if cache == nil {
		return zero, false
	}
	cached, ok := cache.Get(key)
	if !ok {
		return zero, false
	}
	program, ok := cached.(P)
	return program, ok
}

// DefaultProgramCacheSize bounds the cache created by New when none is given.
const DefaultProgramCacheSize = 256

// LRUProgramCache is a bounded, concurrency safe ProgramCache.
type LRUProgramCache struct {
	cache *lru.Cache[string, any]
}

// NewLRUProgramCache builds a cache holding at most size programs.
func NewLRUProgramCache(size int) (*LRUProgramCache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("flux: program cache size must be positive, got %d", size)
	}
	cache, err := lru.New[string, any](size)
	if err != nil {
		return nil, fmt.Errorf("flux: program cache: %w", err)
	}
	return &LRUProgramCache{cache: cache}, nil
}

// Get returns the program cached under key.
func (c *LRUProgramCache) Get(key string) (any, bool) {
	if c == nil || c.cache == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

// Set caches value, evicting the least recently used entry when full.
func (c *LRUProgramCache) Set(key string, value any) {
	if c == nil || c.cache == nil {
		return
	}
	c.cache.Add(key, value)
}

// Len reports the number of cached programs.
func (c *LRUProgramCache) Len() int {
	if c == nil || c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

// WithProgramCache registers the cache used by the default evaluators.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *runtimeConfig) {
		cfg.programCache = cache
	}
}
