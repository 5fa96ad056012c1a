package dejs

import (
	"context"
	"errors"
	"maps"

	"github.com/itsatony/go-cuserr"
	"github.com/itsatony/go-dejs/internal"
	"go.uber.org/zap"
)

// Template is a compiled template. It is immutable and may be executed any
// number of times, concurrently.
type Template struct {
	engine    *Engine
	filename  string
	program   *internal.Program
	fragments []internal.Fragment
}

// Filename returns the logical name the template was compiled under
func (t *Template) Filename() string {
	return t.filename
}

// Source returns the template text
func (t *Template) Source() string {
	return t.program.Source
}

// Code returns the generated procedure
func (t *Template) Code() string {
	return t.program.Code
}

// Execute renders the template with locals. Sub-templates and parents are
// loaded without caching.
func (t *Template) Execute(ctx context.Context, locals map[string]any) (string, error) {
	return t.ExecuteWithScope(ctx, locals, nil)
}

// ExecuteWithScope renders the template with scope as the receiver of
// template code.
func (t *Template) ExecuteWithScope(ctx context.Context, locals map[string]any, scope any) (string, error) {
	return t.render(ctx, locals, scope, t.engine.settings(RenderOptions{}))
}

// ExecuteAsync runs Execute on its own goroutine
func (t *Template) ExecuteAsync(ctx context.Context, locals map[string]any) *Future[string] {
	return Go(ctx, func(ctx context.Context) (string, error) {
		return t.Execute(ctx, locals)
	})
}

// renderState follows one top-level render through its sub-renders and
// parents.
type renderState struct {
	settings     renderSettings
	includeDepth int      // Nesting of render() calls
	parents      int      // Parents rendered so far in this chain
	chain        []string // Templates of the current inheritance chain, child first
}

// renderFrame is the state of one template execution that template code
// can change through the injected functions. It is touched only by the
// render goroutine.
type renderFrame struct {
	parent string // Reference passed to inherits
	misuse error  // Usage error that fails the render even if caught
}

func (t *Template) render(ctx context.Context, locals map[string]any, scope any, st renderSettings) (string, error) {
	return t.execute(ctx, locals, scope, renderState{settings: st})
}

func (t *Template) execute(ctx context.Context, locals map[string]any, scope any, rs renderState) (string, error) {
	e := t.engine
	if len(rs.chain) == 0 && t.filename != "" {
		rs.chain = []string{t.filename}
	}

	e.logger.Debug(LogMsgRenderStart,
		zap.String(LogFieldFilename, t.filename),
		zap.Int(LogFieldDepth, rs.includeDepth))

	frame := &renderFrame{}
	env := internal.Env{
		Locals: t.environment(locals, scope, frame, rs),
		Scope:  scope,
	}
	out, err := t.program.Execute(ctx, env, internal.RuntimeOptions{
		Escape: e.config.escape,
		Logger: e.logger,
	})
	if frame.misuse != nil {
		return "", frame.misuse
	}
	if err != nil {
		return "", t.renderError(err)
	}
	if frame.parent == "" {
		return out, nil
	}
	return t.renderParent(ctx, frame.parent, locals, scope, out, rs)
}

// environment returns locals with the engine functions added where the
// caller did not supply its own.
func (t *Template) environment(locals map[string]any, scope any, frame *renderFrame, rs renderState) map[string]any {
	env := make(map[string]any, len(locals)+2)
	maps.Copy(env, locals)
	if env[LocalRender] == nil {
		env[LocalRender] = t.renderFunc(locals, scope, rs)
	}
	if env[LocalInherits] == nil {
		env[LocalInherits] = t.inheritsFunc(frame)
	}
	return env
}

// inheritedLocals copies locals for a sub-template or parent. Caller values
// for render and inherits stay with the template they were given to.
func inheritedLocals(locals map[string]any, extra int) map[string]any {
	out := make(map[string]any, len(locals)+extra)
	for k, v := range locals {
		if k != LocalRender && k != LocalInherits {
			out[k] = v
		}
	}
	return out
}

func (t *Template) renderError(err error) error {
	var reserved *internal.ReservedLocalError
	var evalErr *EvalError
	switch {
	case errors.As(err, &reserved):
		return NewReservedLocalError(reserved.Name)
	case errors.As(err, &evalErr),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	t.engine.logger.Debug(LogMsgRenderFailed,
		zap.String(LogFieldFilename, t.filename),
		zap.Error(err))
	return cuserr.WrapStdError(err, ErrCodeRender, ErrMsgRenderFailed).
		WithMetadata(MetaKeyFilename, displayName(t.filename))
}
