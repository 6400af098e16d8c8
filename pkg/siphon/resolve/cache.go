// Package resolve memoizes HostAndPort resolution so a proxy serving many
// requests to the same handful of origins doesn't re-parse and re-validate
// a target string on every exchange.
package resolve

import (
	"sync"
	"time"

	"github.com/yourusername/siphon/pkg/siphon/wire"
)

// entry is one cached resolution, tracked on a doubly-linked LRU list.
type entry struct {
	key      string
	value    wire.HostAndPort
	expireAt time.Time
	prev     *entry
	next     *entry
}

// Cache is a bounded, TTL-aware LRU cache of resolved proxy targets,
// generalized down from the teacher's generic Cache[K comparable, V any]
// (and its layered promotion/eviction-mode machinery) to the one shape
// this engine actually needs: a single tier, LRU-only eviction, and no
// hit/miss metrics.
type Cache struct {
	mu       sync.Mutex
	maxSize  int
	ttl      time.Duration
	byKey    map[string]*entry
	head     *entry // most recently used
	tail     *entry // least recently used
}

// DefaultMaxSize and DefaultTTL mirror a proxy's typical working set: a
// browsing session touches a few hundred distinct origins at most, and a
// resolution older than five minutes is worth re-validating.
const (
	DefaultMaxSize = 512
	DefaultTTL     = 5 * time.Minute
)

// New returns an empty cache. maxSize <= 0 and ttl <= 0 fall back to the
// package defaults.
func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{maxSize: maxSize, ttl: ttl, byKey: make(map[string]*entry, maxSize)}
}

// Get returns the cached resolution for key, if present and unexpired.
func (c *Cache) Get(key string) (wire.HostAndPort, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.byKey[key]
	if !ok {
		return wire.HostAndPort{}, false
	}
	if time.Now().After(e.expireAt) {
		c.unlink(e)
		delete(c.byKey, key)
		return wire.HostAndPort{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

// Put inserts or refreshes the resolution for key, evicting the least
// recently used entry if the cache is at capacity.
func (c *Cache) Put(key string, value wire.HostAndPort) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.byKey[key]; ok {
		e.value = value
		e.expireAt = time.Now().Add(c.ttl)
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expireAt: time.Now().Add(c.ttl)}
	c.byKey[key] = e
	c.pushFront(e)

	if len(c.byKey) > c.maxSize {
		lru := c.tail
		if lru != nil {
			c.unlink(lru)
			delete(c.byKey, lru.key)
		}
	}
}

// Len returns the number of entries currently cached, including any not
// yet lazily expired.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byKey)
}

func (c *Cache) pushFront(e *entry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (c *Cache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}
