// Package lru is a byte-bounded LRU cache with per-entry expiry, used to
// keep recent validation reports hot. In-memory only; nothing is persisted.
package lru

import (
	"container/list"
	"sync"
	"time"
)

// DefaultTTLSeconds is how long an entry stays valid once written.
const DefaultTTLSeconds = 3600

// Cache is a size-bounded LRU keyed by string.
type Cache struct {
	mu        sync.RWMutex
	maxBytes  int64
	usedBytes int64
	ll        *list.List
	cache     map[string]*list.Element
	OnEvicted func(key string, value Value)
}

// Entry is one cache slot.
type Entry struct {
	Key        string
	Value      Value
	CreateAt   int64
	ExpireTime int64 // seconds after CreateAt, 0 = never
}

// Value is anything that can report its approximate size.
type Value interface {
	Len() int
}

// NewCache builds a cache bounded to maxBytes. onEvicted may be nil.
func NewCache(maxBytes int64, onEvicted func(string, Value)) *Cache {
	return &Cache{
		maxBytes:  maxBytes,
		ll:        list.New(),
		cache:     make(map[string]*list.Element),
		OnEvicted: onEvicted,
	}
}

// Get returns the live value for key, refreshing its recency.
func (c *Cache) Get(key string) (Value, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, ok := c.cache[key]; ok {
		entry := ele.Value.(*Entry)
		if entry.ExpireTime > 0 && time.Now().Unix() > entry.CreateAt+entry.ExpireTime {
			return nil, false
		}
		c.ll.MoveToFront(ele)
		return entry.Value, true
	}
	return nil, false
}

// Add inserts or refreshes key, then trims expired and over-budget entries.
func (c *Cache) Add(key string, value Value) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, ok := c.cache[key]; ok {
		c.ll.MoveToFront(ele)
		entry := ele.Value.(*Entry)
		oldSize := int64(len(entry.Key)) + int64(entry.Value.Len())
		entry.Value = value
		entry.CreateAt = time.Now().Unix()
		newSize := int64(len(key)) + int64(value.Len())
		c.usedBytes += newSize - oldSize
	} else {
		entry := &Entry{
			Key:        key,
			Value:      value,
			CreateAt:   time.Now().Unix(),
			ExpireTime: DefaultTTLSeconds,
		}
		ele := c.ll.PushFront(entry)
		c.cache[key] = ele
		c.usedBytes += int64(len(key)) + int64(value.Len())
	}

	c.removeExpired()

	for c.maxBytes > 0 && c.usedBytes > c.maxBytes {
		c.removeOldest()
	}
}

// Remove drops key if present.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, ok := c.cache[key]; ok {
		c.removeElement(ele)
	}
}

func (c *Cache) removeOldest() {
	ele := c.ll.Back()
	if ele != nil {
		c.removeElement(ele)
	}
}

func (c *Cache) removeElement(ele *list.Element) {
	c.ll.Remove(ele)
	entry := ele.Value.(*Entry)
	delete(c.cache, entry.Key)
	c.usedBytes -= int64(len(entry.Key)) + int64(entry.Value.Len())

	if c.OnEvicted != nil {
		c.OnEvicted(entry.Key, entry.Value)
	}
}

// removeExpired walks from the cold end and drops expired entries.
func (c *Cache) removeExpired() {
	now := time.Now().Unix()
	for ele := c.ll.Back(); ele != nil; {
		entry := ele.Value.(*Entry)
		if entry.ExpireTime > 0 && now > entry.CreateAt+entry.ExpireTime {
			prev := ele.Prev()
			c.removeElement(ele)
			ele = prev
		} else {
			break
		}
	}
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ll.Len()
}

// Clear empties the cache without firing eviction callbacks.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.cache = make(map[string]*list.Element)
	c.usedBytes = 0
}
