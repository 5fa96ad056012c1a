package dejs

import (
	"context"
	"sync/atomic"
)

// Source is where template files come from. Paths are slash-separated
// logical paths as produced by the resolver. Implementations must be safe
// for concurrent use.
type Source interface {
	// Exists reports whether a template exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Read returns the template text at path. A missing template yields an
	// error matching ErrTemplateNotFound.
	Read(ctx context.Context, path string) (string, error)
}

// CountingSource wraps a Source and counts the calls made to it. It is
// useful for verifying cache behaviour.
type CountingSource struct {
	source Source
	exists atomic.Int64
	reads  atomic.Int64
}

// NewCountingSource wraps source
func NewCountingSource(source Source) *CountingSource {
	return &CountingSource{source: source}
}

// Exists counts the call and delegates
func (s *CountingSource) Exists(ctx context.Context, path string) (bool, error) {
	s.exists.Add(1)
	return s.source.Exists(ctx, path)
}

// Read counts the call and delegates
func (s *CountingSource) Read(ctx context.Context, path string) (string, error) {
	s.reads.Add(1)
	return s.source.Read(ctx, path)
}

// ExistsCalls returns the number of Exists calls so far
func (s *CountingSource) ExistsCalls() int64 {
	return s.exists.Load()
}

// ReadCalls returns the number of Read calls so far
func (s *CountingSource) ReadCalls() int64 {
	return s.reads.Load()
}

// Reset zeroes both counters
func (s *CountingSource) Reset() {
	s.exists.Store(0)
	s.reads.Store(0)
}
