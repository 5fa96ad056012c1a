package dejs

import (
	"context"
	"io"

	"github.com/itsatony/go-dejs/internal"
	"go.uber.org/zap"
)

// Engine compiles and renders templates. It owns the cache and the template
// source; an Engine is safe for concurrent use.
type Engine struct {
	config *engineConfig
	cache  *Cache
	source Source
	logger *zap.Logger
}

// New creates a new Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	config := defaultEngineConfig()
	for _, opt := range opts {
		opt(config)
	}

	if err := validateDelimiters(config.openDelim, config.closeDelim); err != nil {
		return nil, err
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := config.cache
	if cache == nil {
		cache = NewCache()
	}
	source := config.source
	if source == nil {
		source = NewFilesystemSource("")
	}

	e := &Engine{
		config: config,
		cache:  cache,
		source: source,
		logger: logger,
	}
	logger.Debug(LogMsgEngineCreated,
		zap.String(LogFieldOpen, config.openDelim),
		zap.String(LogFieldClose, config.closeDelim),
		zap.Strings(LogFieldExtension, config.extensions))
	return e, nil
}

// MustNew creates a new Engine and panics on error.
func MustNew(opts ...Option) *Engine {
	e, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return e
}

func validateDelimiters(open, close string) error {
	cfg := internal.ParserConfig{Open: open, Close: close}
	if err := cfg.Validate(); err != nil {
		return NewDelimiterError(open, close)
	}
	return nil
}

// Compile parses source into a reusable Template. With ro.Cache set the
// template is cached under ro.Filename and a cached one is returned as-is.
func (e *Engine) Compile(source string, ro *RenderOptions) (*Template, error) {
	opts := e.renderOptions(ro)
	return e.compile(source, opts.Filename, e.settings(opts))
}

// Render compiles source and renders it with ro.Locals.
func (e *Engine) Render(ctx context.Context, source string, ro *RenderOptions) (string, error) {
	opts := e.renderOptions(ro)
	st := e.settings(opts)
	t, err := e.compile(source, opts.Filename, st)
	if err != nil {
		return "", err
	}
	return t.render(ctx, opts.Locals, opts.Scope, st)
}

// RenderAsync runs Render on its own goroutine
func (e *Engine) RenderAsync(ctx context.Context, source string, ro *RenderOptions) *Future[string] {
	return Go(ctx, func(ctx context.Context) (string, error) {
		return e.Render(ctx, source, ro)
	})
}

// RenderFile resolves reference against ro.Filename, reads the template
// from the engine's source and renders it.
func (e *Engine) RenderFile(ctx context.Context, reference string, ro *RenderOptions) (string, error) {
	opts := e.renderOptions(ro)
	st := e.settings(opts)
	t, err := e.loadFile(ctx, reference, opts.Filename, st)
	if err != nil {
		return "", err
	}
	return t.render(ctx, opts.Locals, opts.Scope, st)
}

// RenderFileAsync runs RenderFile on its own goroutine
func (e *Engine) RenderFileAsync(ctx context.Context, reference string, ro *RenderOptions) *Future[string] {
	return Go(ctx, func(ctx context.Context) (string, error) {
		return e.RenderFile(ctx, reference, ro)
	})
}

// RenderFiles renders every reference concurrently with the same options.
// Outputs are returned in reference order; the first failure wins.
func (e *Engine) RenderFiles(ctx context.Context, references []string, ro *RenderOptions) ([]string, error) {
	e.logger.Debug(LogMsgRenderFilesStarted, zap.Int(LogFieldCount, len(references)))

	futures := make([]*Future[string], len(references))
	for i, ref := range references {
		futures[i] = e.RenderFileAsync(ctx, ref, ro)
	}
	return All(ctx, futures).Await(ctx)
}

// Cache returns the engine's cache
func (e *Engine) Cache() *Cache {
	return e.cache
}

// ClearCache drops every compiled template, resolution and file content
func (e *Engine) ClearCache() {
	e.cache.Clear()
	e.logger.Debug(LogMsgCacheCleared)
}

// Source returns where the engine reads template files from
func (e *Engine) Source() Source {
	return e.source
}

// Close releases the template source when it holds resources
func (e *Engine) Close() error {
	if c, ok := e.source.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// renderSettings are the per-call settings inherited by sub-renders and
// parent templates.
type renderSettings struct {
	cache bool
	debug bool
	open  string
	close string
}

func (e *Engine) settings(opts RenderOptions) renderSettings {
	st := renderSettings{
		cache: opts.Cache,
		debug: opts.Debug,
		open:  e.config.openDelim,
		close: e.config.closeDelim,
	}
	if opts.Open != "" {
		st.open = opts.Open
	}
	if opts.Close != "" {
		st.close = opts.Close
	}
	return st
}

func (e *Engine) compile(source, filename string, st renderSettings) (*Template, error) {
	if st.cache {
		if filename == "" {
			return nil, NewCacheRequiresFilenameError()
		}
		if t, ok := e.cache.Template(filename); ok {
			e.logger.Debug(LogMsgCompileCacheHit, zap.String(LogFieldFilename, filename))
			return t, nil
		}
	}

	if err := validateDelimiters(st.open, st.close); err != nil {
		return nil, err
	}

	e.logger.Debug(LogMsgCompileStart, zap.String(LogFieldFilename, filename))

	fragments, err := internal.Parse(source, internal.ParserConfig{Open: st.open, Close: st.close}, e.logger)
	if err != nil {
		return nil, NewParseError(filename, err)
	}
	code := internal.Generate(fragments, internal.GenerateOptions{Strict: e.config.strict})
	if st.debug {
		e.writeDebug(filename, code)
	}

	prg, err := internal.CompileProgram(code, source, filename)
	if err != nil {
		return nil, NewHostSyntaxError(filename, err)
	}

	t := &Template{
		engine:    e,
		filename:  filename,
		program:   prg,
		fragments: fragments,
	}
	if st.cache {
		e.cache.StoreTemplate(filename, t)
	}
	return t, nil
}

// loadFile resolves reference, reads it and compiles it under its resolved
// path. With caching on, each step consults the cache first.
func (e *Engine) loadFile(ctx context.Context, reference, from string, st renderSettings) (*Template, error) {
	p, err := e.resolve(ctx, reference, from, st.cache)
	if err != nil {
		return nil, err
	}
	if st.cache {
		if t, ok := e.cache.Template(p); ok {
			e.logger.Debug(LogMsgCompileCacheHit, zap.String(LogFieldFilename, p))
			return t, nil
		}
	}

	src, err := e.read(ctx, p, st.cache)
	if err != nil {
		return nil, err
	}
	return e.compile(src, p, st)
}

func (e *Engine) read(ctx context.Context, p string, cached bool) (string, error) {
	if cached {
		if src, ok := e.cache.Content(p); ok {
			e.logger.Debug(LogMsgContentCacheHit, zap.String(LogFieldPath, p))
			return src, nil
		}
	}
	src, err := e.source.Read(ctx, p)
	if err != nil {
		return "", err
	}
	if cached {
		e.cache.StoreContent(p, src)
	}
	return src, nil
}
