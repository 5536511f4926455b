package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// insightCache memoizes generated insights per prompt. The prompt embeds
// the aggregates and every transaction, so any change to the snapshot
// produces a different key.
type insightCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	text      string
	createdAt time.Time
}

func newInsightCache(ttl time.Duration) *insightCache {
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	return &insightCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

func (c *insightCache) get(prompt string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := hashPrompt(prompt)
	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if time.Since(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		return "", false
	}
	return entry.text, true
}

func (c *insightCache) put(prompt, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hashPrompt(prompt)] = cacheEntry{text: text, createdAt: time.Now()}
}

func hashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
