package agent

import (
	"strconv"
	"sync"
	"time"

	"planora/internal/models"
)

// CacheKey derives the prompt-cache key for a turn. The scope's most
// specific identifier wins; a scopeless turn falls back to the user.
func CacheKey(agentType models.AgentType, scope Scope, userID int64) string {
	id := scope.EventID
	if id == "" {
		id = scope.VenueID
	}
	if id == "" {
		id = "u" + strconv.FormatInt(userID, 10)
	}
	return string(agentType) + "-" + id
}

type cacheEntry struct {
	prompt  string
	builtAt time.Time
}

// PromptCache is a process-wide, TTL-bounded prompt store. Entries are
// written whole, so a race between builders leaves a complete entry from
// one of them, never a partial one. The clock is injectable so expiry is
// testable without sleeping.
type PromptCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewPromptCache(ttl time.Duration) *PromptCache {
	return &PromptCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock replaces the cache's time source. Intended for tests.
func (c *PromptCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Get returns the cached prompt when present and unexpired.
func (c *PromptCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.builtAt) >= c.ttl {
		return "", false
	}
	return entry.prompt, true
}

// Put stores a prompt with a fresh build time.
func (c *PromptCache) Put(key, prompt string) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{prompt: prompt, builtAt: c.now()}
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *PromptCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// GetOrBuild returns the cached prompt for key, or invokes build and stores
// its result. The lock is not held during build; concurrent misses on one
// key may each build, and the last finisher's entry wins.
func (c *PromptCache) GetOrBuild(key string, build func() (string, error)) (string, error) {
	if prompt, ok := c.Get(key); ok {
		return prompt, nil
	}
	prompt, err := build()
	if err != nil {
		return "", err
	}
	c.Put(key, prompt)
	return prompt, nil
}
