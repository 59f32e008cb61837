package editengine

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternCache_HitAndMiss(t *testing.T) {
	cache := newPatternCache(4)
	key := cache.key(NormalizationExact, "abc")

	_, ok := cache.get(key)
	assert.False(t, ok)

	re := regexp.MustCompile("abc")
	cache.put(key, re)

	got, ok := cache.get(key)
	require.True(t, ok)
	assert.Same(t, re, got)
}

func TestPatternCache_KeyIncludesLevel(t *testing.T) {
	cache := newPatternCache(4)
	assert.NotEqual(t,
		cache.key(NormalizationExact, "abc"),
		cache.key(NormalizationWhitespace, "abc"))
}

func TestPatternCache_EvictsOldest(t *testing.T) {
	cache := newPatternCache(2)

	keys := make([]uint64, 3)
	for i := range keys {
		pattern := fmt.Sprintf("pattern-%d", i)
		keys[i] = cache.key(NormalizationExact, pattern)
		cache.put(keys[i], regexp.MustCompile(pattern))
	}

	assert.Equal(t, 2, cache.len())
	_, ok := cache.get(keys[0])
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = cache.get(keys[2])
	assert.True(t, ok)
}
