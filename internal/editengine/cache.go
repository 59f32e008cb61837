package editengine

import (
	"regexp"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// defaultPatternCacheSize bounds the number of compiled patterns kept per
// matcher. Agents tend to re-try the same handful of targets with varied
// tolerance, so a small cache captures nearly all reuse.
const defaultPatternCacheSize = 256

// patternCache holds compiled match patterns, keyed by a structural hash of
// the pattern source and its tolerance level. It is owned by a Matcher
// instance rather than being process-global, and it is bounded: when full,
// the oldest entry is evicted.
type patternCache struct {
	mu      sync.Mutex
	entries map[uint64]*regexp.Regexp
	order   []uint64
	limit   int
}

func newPatternCache(limit int) *patternCache {
	if limit <= 0 {
		limit = defaultPatternCacheSize
	}
	return &patternCache{
		entries: make(map[uint64]*regexp.Regexp, limit),
		limit:   limit,
	}
}

// key hashes the tolerance level together with the raw pattern text.
func (c *patternCache) key(level NormalizationLevel, pattern string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(string(level))
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(pattern)
	return d.Sum64()
}

func (c *patternCache) get(key uint64) (*regexp.Regexp, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	re, ok := c.entries[key]
	return re, ok
}

func (c *patternCache) put(key uint64, re *regexp.Regexp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		return
	}
	for len(c.entries) >= c.limit && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = re
	c.order = append(c.order, key)
}

// len reports the current entry count. Used by tests.
func (c *patternCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
