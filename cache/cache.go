package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/reelscore/models"
)

// entry holds a cached movie with its creation timestamp.
type entry struct {
	movie     models.Movie
	createdAt time.Time
}

// Cache is an in-memory cache of completed movie lookups keyed by the
// normalized title. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	retention  time.Duration
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

// New creates a Cache holding at most maxEntries movies. If retention is
// positive a background goroutine evicts entries older than retention
// every retention/12 (at least once a minute); Close stops it.
func New(maxEntries int, retention time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		retention:  retention,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	if retention > 0 {
		go c.cleanupLoop()
	}
	return c
}

// Key generates a cache key from a title query. Case and inner whitespace
// do not matter: "the  GODFATHER " and "The Godfather" share a key.
func Key(query string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached movie if it exists and is younger than maxAge.
// If maxAge <= 0 no lookup is performed.
func (c *Cache) Get(key string, maxAge time.Duration) (models.Movie, bool) {
	if maxAge <= 0 {
		return models.Movie{}, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.createdAt) > maxAge {
		return models.Movie{}, false
	}
	return e.movie, true
}

// Set stores a movie. If the cache is at capacity, the oldest entry is
// evicted to make room.
func (c *Cache) Set(key string, movie models.Movie) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.store {
			if oldestKey == "" || e.createdAt.Before(oldest) {
				oldestKey, oldest = k, e.createdAt
			}
		}
		delete(c.store, oldestKey)
	}

	c.store[key] = &entry{movie: movie, createdAt: c.now()}
}

// Len returns the number of cached movies.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// evictExpired removes entries older than the retention period.
func (c *Cache) evictExpired() {
	cutoff := c.now().Add(-c.retention)
	c.mu.Lock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}

func (c *Cache) cleanupLoop() {
	interval := c.retention / 12
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}
