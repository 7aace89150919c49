package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache holds at most capacity entries, dropping the least recently read
// one to make room. Every entry also carries its own deadline.
type LRUCache[T any] struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	index map[string]*list.Element
	order *list.List // front is most recent
}

type entry[T any] struct {
	key      string
	value    T
	deadline time.Time
}

// NewLRUCache returns a cache whose entries live at most ttl.
func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		capacity: max(capacity, 1),
		ttl:      ttl,
		now:      time.Now,
		index:    map[string]*list.Element{},
		order:    list.New(),
	}
}

// WithClock swaps the time source. Tests only.
func (c *LRUCache[T]) WithClock(now func() time.Time) *LRUCache[T] {
	c.now = now
	return c
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	el, ok := c.index[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[T])
	if c.expired(e) {
		c.unlink(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

func (c *LRUCache[T]) Set(key string, value T) {
	c.SetUntil(key, value, time.Time{})
}

// SetUntil stores value until deadline, capped at the cache ttl. The zero
// deadline means the ttl alone.
func (c *LRUCache[T]) SetUntil(key string, value T, deadline time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	limit := c.now().Add(c.ttl)
	if deadline.IsZero() || deadline.After(limit) {
		deadline = limit
	}
	e := &entry[T]{key: key, value: value, deadline: deadline}

	if el, ok := c.index[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}
	c.index[key] = c.order.PushFront(e)
	for c.order.Len() > c.capacity {
		c.unlink(c.order.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.unlink(el)
	}
}

// CleanExpired drops every entry past its deadline and returns how many.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if c.expired(el.Value.(*entry[T])) {
			c.unlink(el)
			removed++
		}
		el = next
	}
	return removed
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRUCache[T]) expired(e *entry[T]) bool {
	return !c.now().Before(e.deadline)
}

func (c *LRUCache[T]) unlink(el *list.Element) {
	delete(c.index, el.Value.(*entry[T]).key)
	c.order.Remove(el)
}
