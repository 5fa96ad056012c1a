package dejs

import (
	"context"
	"path"
	"strings"

	"go.uber.org/zap"
)

// Resolve maps reference to the path of an existing template, as seen from
// the referencing file from (which may be empty).
//
// A reference without an extension is tried with each configured extension
// in from's directory, then in each parent directory up to the root. A
// reference with an extension is tried as-is in the same directories. An
// absolute reference is tried only at its own location. When nothing
// exists the error is a *ResolutionError listing every attempted path.
func (e *Engine) Resolve(ctx context.Context, reference, from string) (string, error) {
	return e.resolve(ctx, reference, from, false)
}

func (e *Engine) resolve(ctx context.Context, reference, from string, cached bool) (string, error) {
	if reference == "" {
		return "", NewInvalidReferenceError()
	}
	if cached {
		if p, ok := e.cache.Resolution(reference, from); ok {
			e.logger.Debug(LogMsgResolveCacheHit,
				zap.String(LogFieldReference, reference),
				zap.String(LogFieldPath, p))
			return p, nil
		}
	}

	e.logger.Debug(LogMsgResolveStart,
		zap.String(LogFieldReference, reference),
		zap.String(LogFieldFrom, from))

	var attempted []string
	for _, candidate := range e.candidates(reference, from) {
		attempted = append(attempted, candidate)
		ok, err := e.source.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if ok {
			if cached {
				e.cache.StoreResolution(reference, from, candidate)
			}
			e.logger.Debug(LogMsgResolved,
				zap.String(LogFieldReference, reference),
				zap.String(LogFieldPath, candidate))
			return candidate, nil
		}
	}
	return "", NewResolutionError(reference, from, attempted)
}

// candidates lists the paths tried for reference in order
func (e *Engine) candidates(reference, from string) []string {
	names := []string{reference}
	if path.Ext(reference) == "" && len(e.config.extensions) > 0 {
		names = names[:0]
		for _, ext := range e.config.extensions {
			names = append(names, reference+ext)
		}
	}

	if path.IsAbs(reference) {
		out := make([]string, len(names))
		for i, name := range names {
			out[i] = path.Clean(name)
		}
		return out
	}

	var out []string
	for _, dir := range searchDirs(from) {
		for _, name := range names {
			out = append(out, path.Join(dir, name))
		}
	}
	return out
}

// searchDirs returns the directory of from followed by each of its parents.
// Relative chains end at ".", absolute ones at "/".
func searchDirs(from string) []string {
	dir := "."
	if from != "" {
		dir = path.Dir(strings.ReplaceAll(from, "\\", "/"))
	}
	dirs := []string{dir}
	for {
		parent := path.Dir(dir)
		if parent == dir {
			return dirs
		}
		dirs = append(dirs, parent)
		dir = parent
	}
}
