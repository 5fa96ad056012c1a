package dejs

import (
	"sync"
)

// Cache holds compiled templates by filename, resolved paths by
// (reference, referencing file) and file contents by path. Entries are only
// added; Clear drops everything. A Cache is safe for concurrent use and may
// be shared between engines with WithCache.
type Cache struct {
	mu          sync.RWMutex
	templates   map[string]*Template
	resolutions map[resolutionKey]string
	contents    map[string]string
}

type resolutionKey struct {
	reference string
	from      string
}

// CacheStats reports the number of entries per cache
type CacheStats struct {
	Templates   int
	Resolutions int
	Contents    int
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{
		templates:   make(map[string]*Template),
		resolutions: make(map[resolutionKey]string),
		contents:    make(map[string]string),
	}
}

// Template returns the compiled template cached under filename
func (c *Cache) Template(filename string) (*Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[filename]
	return t, ok
}

// StoreTemplate caches t under filename. Storing an equal template again is
// harmless.
func (c *Cache) StoreTemplate(filename string, t *Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates[filename] = t
}

// Resolution returns the cached path for reference as seen from the
// referencing file from.
func (c *Cache) Resolution(reference, from string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.resolutions[resolutionKey{reference: reference, from: from}]
	return p, ok
}

// StoreResolution caches a resolved path
func (c *Cache) StoreResolution(reference, from, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolutions[resolutionKey{reference: reference, from: from}] = path
}

// Content returns the cached text of the template at path
func (c *Cache) Content(path string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src, ok := c.contents[path]
	return src, ok
}

// StoreContent caches the text read from path
func (c *Cache) StoreContent(path, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contents[path] = source
}

// Stats returns the current entry counts
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Templates:   len(c.templates),
		Resolutions: len(c.resolutions),
		Contents:    len(c.contents),
	}
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = make(map[string]*Template)
	c.resolutions = make(map[resolutionKey]string)
	c.contents = make(map[string]string)
}
