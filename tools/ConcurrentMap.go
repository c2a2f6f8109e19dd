package tools

import (
	"sort"
	"sync"
)

// ConcurrentMap is a map guarded by a RWMutex. The tree uses it as the arena
// holding its nodes while several workers fill a level.
type ConcurrentMap[K comparable, V any] struct {
	m map[K]V
	sync.RWMutex
}

func NewConcurrentMap[K comparable, V any]() *ConcurrentMap[K, V] {
	return &ConcurrentMap[K, V]{
		m:       make(map[K]V),
		RWMutex: sync.RWMutex{},
	}
}

func (c *ConcurrentMap[K, V]) Get(k K) (V, bool) {
	c.RLock()
	defer c.RUnlock()
	v, ok := c.m[k]
	return v, ok
}

func (c *ConcurrentMap[K, V]) Set(k K, v V) {
	c.Lock()
	defer c.Unlock()
	c.m[k] = v
}

// SetIfAbsent stores v under k only if k is not present yet. It returns false
// when the key already existed, in which case the map is left unchanged.
func (c *ConcurrentMap[K, V]) SetIfAbsent(k K, v V) bool {
	c.Lock()
	defer c.Unlock()
	if _, ok := c.m[k]; ok {
		return false
	}
	c.m[k] = v
	return true
}

// Len returns the number of entries
func (c *ConcurrentMap[K, V]) Len() int {
	c.RLock()
	defer c.RUnlock()
	return len(c.m)
}

// SortedKeys returns a snapshot of the keys ordered with less
func (c *ConcurrentMap[K, V]) SortedKeys(less func(a, b K) bool) []K {
	c.RLock()
	keys := make([]K, 0, len(c.m))
	for k := range c.m {
		keys = append(keys, k)
	}
	c.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		return less(keys[i], keys[j])
	})
	return keys
}
