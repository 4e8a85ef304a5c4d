// Package cache keeps recently authenticated users in memory so the
// heartbeat path does not hit the database on every request.
package cache

import (
	"sync"
	"time"

	"github.com/gearxr/gear/internal/storage"
)

// DefaultTTL is how long a resolved token is trusted.
const DefaultTTL = 30 * time.Second

type entry struct {
	user    storage.User
	expires time.Time
}

// UserCache caches users by bearer token.
type UserCache struct {
	m       sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// NewUserCache creates a cache whose entries live for ttl (DefaultTTL when
// ttl <= 0).
func NewUserCache(ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &UserCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *UserCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.entries = make(map[string]entry)
}

// Get returns the cached user of token. Expired entries are removed.
func (c *UserCache) Get(token string) (storage.User, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	e, ok := c.entries[token]
	if !ok {
		return storage.User{}, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, token)
		return storage.User{}, false
	}
	return e.user, true
}

func (c *UserCache) Set(token string, u storage.User) {
	c.m.Lock()
	defer c.m.Unlock()
	c.entries[token] = entry{user: u, expires: c.now().Add(c.ttl)}
}

func (c *UserCache) Delete(token string) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.entries, token)
}

// Len counts entries, expired ones included until they are next read.
func (c *UserCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.entries)
}
