package categorizer

import (
	"sort"
	"sync"
)

// MemoryCache holds learned item name -> category name pairs for one run.
type MemoryCache struct {
	mu      sync.RWMutex
	learned map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{learned: make(map[string]string)}
}

func (c *MemoryCache) Get(item string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	category, ok := c.learned[item]
	return category, ok
}

// Set replaces any earlier category learned for item.
func (c *MemoryCache) Set(item, category string) {
	c.mu.Lock()
	c.learned[item] = category
	c.mu.Unlock()
}

// Len is the number of learned items.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.learned)
}

// Items returns the learned item names in sorted order.
func (c *MemoryCache) Items() []string {
	c.mu.RLock()
	items := make([]string, 0, len(c.learned))
	for item := range c.learned {
		items = append(items, item)
	}
	c.mu.RUnlock()
	sort.Strings(items)
	return items
}
