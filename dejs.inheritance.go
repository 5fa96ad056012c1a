package dejs

import (
	"context"
	"maps"
	"slices"

	"go.uber.org/zap"
)

// renderFunc builds the render(reference, locals?) function injected into
// template code. The sub-template is resolved relative to t, sees the
// current locals merged with the given ones and runs on its own goroutine.
func (t *Template) renderFunc(locals map[string]any, scope any, rs renderState) AsyncFunc {
	e := t.engine
	return func(ctx context.Context, args ...any) (any, error) {
		reference, _ := argAt(args, 0).(string)
		if reference == "" {
			return nil, NewInvalidReferenceError()
		}

		depth := rs.includeDepth + 1
		if limit := e.config.maxIncludeDepth; limit > 0 && depth > limit {
			return nil, NewDepthError(ErrMsgIncludeDepth, t.filename, depth, limit)
		}

		merged := inheritedLocals(locals, 0)
		if extra, ok := argAt(args, 1).(map[string]any); ok {
			maps.Copy(merged, extra)
		}

		e.logger.Debug(LogMsgIncludeStart,
			zap.String(LogFieldReference, reference),
			zap.String(LogFieldFrom, t.filename),
			zap.Int(LogFieldDepth, depth))

		sub, err := e.loadFile(ctx, reference, t.filename, rs.settings)
		if err != nil {
			return nil, err
		}
		return sub.execute(ctx, merged, scope, renderState{
			settings:     rs.settings,
			includeDepth: depth,
		})
	}
}

// inheritsFunc builds the inherits(reference) function injected into
// template code. Only one parent may be declared per execution; a second
// call fails the render even when template code catches the exception.
func (t *Template) inheritsFunc(frame *renderFrame) func(string) error {
	return func(reference string) error {
		if reference == "" {
			return NewInvalidReferenceError()
		}
		if frame.parent != "" {
			if frame.misuse == nil {
				frame.misuse = NewInheritsCalledTwiceError(t.filename, frame.parent, reference)
			}
			return frame.misuse
		}
		frame.parent = reference
		return nil
	}
}

// renderParent renders the parent declared by t with locals plus contents,
// the output of t. The parent's output replaces the child's.
func (t *Template) renderParent(ctx context.Context, reference string, locals map[string]any, scope any, contents string, rs renderState) (string, error) {
	e := t.engine
	depth := rs.parents + 1
	if limit := e.config.maxInheritanceDepth; limit > 0 && depth > limit {
		return "", NewDepthError(ErrMsgInheritanceDepth, t.filename, depth, limit)
	}

	parent, err := e.loadFile(ctx, reference, t.filename, rs.settings)
	if err != nil {
		return "", err
	}
	if slices.Contains(rs.chain, parent.filename) {
		return "", NewInheritanceCycleError(append(slices.Clone(rs.chain), parent.filename))
	}

	e.logger.Debug(LogMsgInheritParent,
		zap.String(LogFieldFilename, t.filename),
		zap.String(LogFieldPath, parent.filename),
		zap.Int(LogFieldDepth, depth))

	merged := inheritedLocals(locals, 1)
	merged[LocalContents] = contents

	next := rs
	next.chain = append(slices.Clone(rs.chain), parent.filename)
	next.parents = depth
	return parent.execute(ctx, merged, scope, next)
}

func argAt(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}
