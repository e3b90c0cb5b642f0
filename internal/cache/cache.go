// Package cache provides a small generic LRU cache with TTL expiry, used
// to memoize query-view pages between mutations.
package cache

import (
	"sync"
	"time"
)

// Cache is the read/write surface the HTTP layer depends on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// LRU evicts by recency once maxSize is exceeded and lazily drops entries
// past their TTL. Recency order is an intrusive doubly linked list
// threaded through the entries themselves; head is most recent, tail is
// the eviction candidate.
type LRU[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*entry[T]
	head    *entry[T]
	tail    *entry[T]
}

type entry[T any] struct {
	key       string
	data      T
	expiresAt time.Time
	prev      *entry[T]
	next      *entry[T]
}

func NewLRU[T any](maxSize int, ttl time.Duration) *LRU[T] {
	return &LRU[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*entry[T]),
	}
}

func (c *LRU[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		c.evict(e)
		return zero, false
	}

	c.unlink(e)
	c.pushFront(e)
	return e.data, true
}

func (c *LRU[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.data = data
		e.expiresAt = time.Now().Add(c.ttl)
		c.unlink(e)
		c.pushFront(e)
		return
	}

	e := &entry[T]{key: key, data: data, expiresAt: time.Now().Add(c.ttl)}
	c.items[key] = e
	c.pushFront(e)

	if len(c.items) > c.maxSize && c.tail != nil {
		c.evict(c.tail)
	}
}

func (c *LRU[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		c.evict(e)
	}
}

func (c *LRU[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// CleanExpired removes every expired entry, returning how many went.
func (c *LRU[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for e := c.tail; e != nil; {
		prev := e.prev
		if now.After(e.expiresAt) {
			c.evict(e)
			removed++
		}
		e = prev
	}
	return removed
}

func (c *LRU[T]) evict(e *entry[T]) {
	delete(c.items, e.key)
	c.unlink(e)
}

func (c *LRU[T]) pushFront(e *entry[T]) {
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

func (c *LRU[T]) unlink(e *entry[T]) {
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
