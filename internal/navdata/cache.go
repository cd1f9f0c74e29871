package navdata

import (
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of distinct raw routes kept by CachedExpander
const DefaultCacheSize = 4096

// CachedExpander memoises route expansion per raw route string. The index is immutable so cached
// entries never go stale.
type CachedExpander struct {
	idx   *Index
	cache *lru.Cache[string, []string]
}

// NewCachedExpander wraps idx with an LRU cache of the given size
func NewCachedExpander(idx *Index, size int) (*CachedExpander, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create route cache: %w", err)
	}
	return &CachedExpander{idx: idx, cache: cache}, nil
}

// Expand returns the expansion of raw, computing and caching it on a miss. The returned slice is
// owned by the caller.
func (c *CachedExpander) Expand(raw string) []string {
	if route, ok := c.cache.Get(raw); ok {
		return slices.Clone(route)
	}
	route := c.idx.Expand(raw)
	c.cache.Add(raw, route)
	return slices.Clone(route)
}

// Len returns the number of cached routes
func (c *CachedExpander) Len() int {
	return c.cache.Len()
}
