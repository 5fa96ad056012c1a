package dejs

import (
	"io"
	"os"
	"slices"

	"go.uber.org/zap"
)

// Option is a functional option for configuring the Engine.
type Option func(*engineConfig)

// engineConfig holds the internal configuration for an Engine.
type engineConfig struct {
	openDelim           string
	closeDelim          string
	extensions          []string
	maxIncludeDepth     int
	maxInheritanceDepth int
	cacheByDefault      bool
	strict              bool
	escape              func(string) string
	source              Source
	cache               *Cache
	debugWriter         io.Writer
	logger              *zap.Logger
}

// defaultEngineConfig returns the default engine configuration.
func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		openDelim:           DefaultOpenDelim,
		closeDelim:          DefaultCloseDelim,
		extensions:          slices.Clone(DefaultExtensions),
		maxIncludeDepth:     DefaultMaxIncludeDepth,
		maxInheritanceDepth: DefaultMaxInheritanceDepth,
		debugWriter:         os.Stderr,
		logger:              nil,
	}
}

// WithDelimiters sets custom delimiters for template tags.
// Default: "<%" and "%>"
func WithDelimiters(open, close string) Option {
	return func(c *engineConfig) {
		if open != "" {
			c.openDelim = open
		}
		if close != "" {
			c.closeDelim = close
		}
	}
}

// WithExtensions sets the extensions tried, in order, for references
// without one.
// Default: ".ejs", ".html", ".tmpl"
func WithExtensions(exts ...string) Option {
	return func(c *engineConfig) {
		c.extensions = slices.Clone(exts)
	}
}

// WithMaxIncludeDepth limits how deeply render() calls may nest.
// Use 0 for unlimited depth.
// Default: 10
func WithMaxIncludeDepth(depth int) Option {
	return func(c *engineConfig) {
		c.maxIncludeDepth = depth
	}
}

// WithMaxInheritanceDepth limits how many parents an inherits chain may have.
// Use 0 for unlimited depth.
// Default: 10
func WithMaxInheritanceDepth(depth int) Option {
	return func(c *engineConfig) {
		c.maxInheritanceDepth = depth
	}
}

// WithCaching turns caching on for calls made without RenderOptions.
// Default: false
func WithCaching(enabled bool) Option {
	return func(c *engineConfig) {
		c.cacheByDefault = enabled
	}
}

// WithStrict compiles templates in strict mode.
// Default: false
func WithStrict(strict bool) Option {
	return func(c *engineConfig) {
		c.strict = strict
	}
}

// WithEscape replaces the escaper used by <%= %> tags.
// Default: HTML escaping of & < > "
func WithEscape(escape func(string) string) Option {
	return func(c *engineConfig) {
		c.escape = escape
	}
}

// WithSource sets where template files are read from.
// Default: the local filesystem relative to the working directory
func WithSource(source Source) Option {
	return func(c *engineConfig) {
		c.source = source
	}
}

// WithCache shares an existing cache between engines.
// Default: a fresh cache per engine
func WithCache(cache *Cache) Option {
	return func(c *engineConfig) {
		c.cache = cache
	}
}

// WithDebugWriter sets where generated code goes for Debug renders.
// Default: os.Stderr
func WithDebugWriter(w io.Writer) Option {
	return func(c *engineConfig) {
		c.debugWriter = w
	}
}

// WithLogger sets the logger for the engine.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// RenderOptions control a single compile or render call. A nil
// *RenderOptions means zero values plus the engine defaults.
type RenderOptions struct {
	// Locals are the names visible to template code. Values may be plain Go
	// values, *Future[any] (seen as Promises) or AsyncFunc.
	Locals map[string]any

	// Cache stores the compiled template under Filename and caches file
	// resolution and content reads. Requires Filename for Compile and Render.
	Cache bool

	// Filename is the logical name used in diagnostics, as the cache key and
	// as the base for resolving render() and inherits() references.
	Filename string

	// Scope is the receiver of template code (`this`).
	Scope any

	// Debug writes the generated code to the engine's debug writer.
	Debug bool

	// Open and Close override the engine delimiters for this call.
	Open  string
	Close string
}

func (e *Engine) renderOptions(ro *RenderOptions) RenderOptions {
	if ro == nil {
		return RenderOptions{Cache: e.config.cacheByDefault}
	}
	return *ro
}
