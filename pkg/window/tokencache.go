package window

import (
	"container/list"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// TokenCache memoizes tokenizer results for content fragments. Entries are
// keyed by a blake3 digest of the text so the cache never retains the text
// itself, bounded by size with least-recently-used eviction, and expired by
// a time-to-live. A single mutex guards lookup and eviction; there is no
// blocking work inside the critical section, so the cache is safe to share
// across concurrent truncation passes.
type TokenCache struct {
	mu      sync.Mutex
	count   Tokenizer
	maxSize int
	ttl     time.Duration
	entries map[[32]byte]*list.Element
	order   *list.List // front = most recently used

	hits   int64
	misses int64

	// now is swapped in tests to drive TTL expiry deterministically.
	now func() time.Time
}

type cacheEntry struct {
	key        [32]byte
	tokens     int
	insertedAt time.Time
}

// NewTokenCache wraps a tokenizer with memoization. A nil tokenizer falls
// back to EstimateTokens; non-positive bounds fall back to the defaults.
func NewTokenCache(count Tokenizer, maxSize int, ttl time.Duration) *TokenCache {
	if count == nil {
		count = EstimateTokens
	}
	defaults := DefaultConfig()
	if maxSize <= 0 {
		maxSize = defaults.TokenCacheSize
	}
	if ttl <= 0 {
		ttl = defaults.TokenCacheTTL
	}
	return &TokenCache{
		count:   count,
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[[32]byte]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// Count returns the token cost for text, recomputing on miss or expiry.
func (c *TokenCache) Count(text string) int {
	key := blake3.Sum256([]byte(text))

	c.mu.Lock()
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry)
		if c.now().Sub(entry.insertedAt) < c.ttl {
			c.order.MoveToFront(elem)
			c.hits++
			tokens := entry.tokens
			c.mu.Unlock()
			return tokens
		}
		// Expired entries are misses even though they are still present.
		c.order.Remove(elem)
		delete(c.entries, key)
	}
	c.misses++
	c.mu.Unlock()

	// Tokenize outside the lock; the function may be expensive.
	tokens := c.count(text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		elem := c.order.PushFront(&cacheEntry{key: key, tokens: tokens, insertedAt: c.now()})
		c.entries[key] = elem
		for c.order.Len() > c.maxSize {
			oldest := c.order.Back()
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
	return tokens
}

// Tokenizer adapts the cache to the plain Tokenizer contract so it can be
// handed to any budget arithmetic that accepts an injected counter.
func (c *TokenCache) Tokenizer() Tokenizer {
	return c.Count
}

// Len reports the live entry count.
func (c *TokenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats reports cumulative hit/miss counts.
func (c *TokenCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
