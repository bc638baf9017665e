package texture

import (
	"path/filepath"
	"sync"

	"github.com/Faultbox/meshloader/internal/meshtree"
)

// Cache memoizes decoded files by absolute path. It is safe for concurrent
// use. Decode failures are cached so a broken file is decoded once; read
// failures are not, so a file that appears later is picked up.
type Cache struct {
	mu      sync.RWMutex
	items   map[string]*cacheEntry
	order   []string
	limit   int
	decoder Decoder
}

type cacheEntry struct {
	img *DecodedImage
	err error
}

// NewCache returns a cache holding at most limit files (0 means unbounded).
// The oldest entry is evicted first.
func NewCache(decoder Decoder, limit int) *Cache {
	return &Cache{
		items:   make(map[string]*cacheEntry),
		limit:   limit,
		decoder: decoder,
	}
}

// ReadFile returns the decoded image at path, decoding it on first use.
// Callers must not modify the returned pixels.
func (c *Cache) ReadFile(path string) (*DecodedImage, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	c.mu.RLock()
	if e, ok := c.items[path]; ok {
		c.mu.RUnlock()
		return e.img, e.err
	}
	c.mu.RUnlock()

	img, err := c.decoder.ReadFile(path)
	if err != nil && meshtree.KindOf(err) != meshtree.KindDecode {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[path]; ok {
		return e.img, e.err
	}
	c.items[path] = &cacheEntry{img: img, err: err}
	c.order = append(c.order, path)
	if c.limit > 0 && len(c.order) > c.limit {
		delete(c.items, c.order[0])
		c.order = c.order[1:]
	}
	return img, err
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Forget drops path from the cache.
func (c *Cache) Forget(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[path]; !ok {
		return
	}
	delete(c.items, path)
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
