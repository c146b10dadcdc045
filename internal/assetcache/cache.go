// Package assetcache caches decoded slide thumbnails in memory, bounded by a
// decoded-byte budget with least-recently-used eviction.
package assetcache

import (
	"container/list"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"sync"
)

// Resolver maps a slide id to the absolute thumbnail path on disk and the
// owning project id. It is typically backed by the store.
type Resolver func(slideID string) (absPath, projectID string, err error)

type entry struct {
	slideID   string
	projectID string
	img       image.Image
	cost      int64
}

// Cache is a process-wide thumbnail cache. It never writes to disk and never
// blocks the conversion pipeline; only readers call into it.
type Cache struct {
	mu      sync.RWMutex
	budget  int64
	used    int64
	order   *list.List // front = most recently used
	items   map[string]*list.Element
	resolve Resolver
}

// New creates a cache with the given decoded-byte budget.
func New(budget int64, resolve Resolver) *Cache {
	return &Cache{
		budget:  budget,
		order:   list.New(),
		items:   make(map[string]*list.Element),
		resolve: resolve,
	}
}

// Get returns the decoded thumbnail for a slide, loading it from disk on a
// miss.
func (c *Cache) Get(slideID string) (image.Image, error) {
	c.mu.RLock()
	el, ok := c.items[slideID]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		// Re-check: the entry may have been evicted between locks.
		if el, ok = c.items[slideID]; ok {
			c.order.MoveToFront(el)
			img := el.Value.(*entry).img
			c.mu.Unlock()
			return img, nil
		}
		c.mu.Unlock()
	}

	absPath, projectID, err := c.resolve(slideID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("opening thumbnail: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding thumbnail: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[slideID]; ok {
		// Another reader loaded it first.
		c.order.MoveToFront(el)
		return el.Value.(*entry).img, nil
	}
	e := &entry{slideID: slideID, projectID: projectID, img: img, cost: decodedCost(img)}
	c.items[slideID] = c.order.PushFront(e)
	c.used += e.cost
	c.evictLocked()
	return img, nil
}

// InvalidateProject drops every cached thumbnail belonging to a project,
// for example when the project closes.
func (c *Cache) InvalidateProject(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if e.projectID == projectID {
			c.removeLocked(el)
		}
		el = next
	}
}

// Invalidate drops one slide's cached thumbnail, for example after
// reconversion replaced the artifact.
func (c *Cache) Invalidate(slideID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[slideID]; ok {
		c.removeLocked(el)
	}
}

// Len returns the number of cached thumbnails.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Used returns the decoded bytes currently held.
func (c *Cache) Used() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.used
}

func (c *Cache) evictLocked() {
	for c.used > c.budget {
		back := c.order.Back()
		if back == nil {
			return
		}
		c.removeLocked(back)
	}
}

func (c *Cache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	c.order.Remove(el)
	delete(c.items, e.slideID)
	c.used -= e.cost
}

// decodedCost estimates the in-memory size of a decoded image.
func decodedCost(img image.Image) int64 {
	b := img.Bounds()
	return int64(b.Dx()) * int64(b.Dy()) * 4
}
