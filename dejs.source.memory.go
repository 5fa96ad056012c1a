package dejs

import (
	"context"
	"path"
	"sort"
	"sync"
)

// MemorySource keeps templates in memory, keyed by cleaned logical path.
// It is primarily intended for testing and for embedding templates.
type MemorySource struct {
	mu        sync.RWMutex
	templates map[string]string
}

// NewMemorySource creates a memory source holding the given templates
func NewMemorySource(templates map[string]string) *MemorySource {
	s := &MemorySource{templates: make(map[string]string, len(templates))}
	for p, src := range templates {
		s.templates[path.Clean(p)] = src
	}
	return s
}

// Set stores or replaces the template at p
func (s *MemorySource) Set(p, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[path.Clean(p)] = source
}

// Delete removes the template at p. It reports whether it existed.
func (s *MemorySource) Delete(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p = path.Clean(p)
	if _, ok := s.templates[p]; !ok {
		return false
	}
	delete(s.templates, p)
	return true
}

// Paths returns all stored paths in sorted order
func (s *MemorySource) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.templates))
	for p := range s.templates {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Exists reports whether a template is stored at p
func (s *MemorySource) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.templates[path.Clean(p)]
	return ok, nil
}

// Read returns the template stored at p
func (s *MemorySource) Read(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.templates[path.Clean(p)]
	if !ok {
		return "", NewSourceError(ErrMsgSourceRead, p, ErrTemplateNotFound)
	}
	return src, nil
}
