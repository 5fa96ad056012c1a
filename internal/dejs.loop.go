package internal

import (
	"context"
	"errors"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// AsyncFunc is a Go function callable from template code. Each call runs on
// its own goroutine and returns a Promise of the result to the template.
type AsyncFunc func(ctx context.Context, args ...any) (any, error)

// eventLoop serialises work onto the goroutine that owns a goja runtime.
// Go futures settle on arbitrary goroutines and post a job here; jobs run
// one at a time on the render goroutine.
type eventLoop struct {
	vm      *goja.Runtime
	jobs    chan func()
	quit    chan struct{}
	pending int   // Go futures not yet delivered; loop goroutine only
	fatal   error // Uncatchable runtime error raised while settling
	logger  *zap.Logger
}

func newEventLoop(vm *goja.Runtime, logger *zap.Logger) *eventLoop {
	return &eventLoop{
		vm:     vm,
		jobs:   make(chan func(), 16),
		quit:   make(chan struct{}),
		logger: logger,
	}
}

// post hands job to the loop goroutine. It never blocks after close.
func (l *eventLoop) post(job func()) {
	select {
	case l.jobs <- job:
	case <-l.quit:
	}
}

// close releases goroutines still trying to post
func (l *eventLoop) close() {
	close(l.quit)
}

// run processes jobs until done reports true.
func (l *eventLoop) run(ctx context.Context, done func() bool) error {
	for !done() {
		if l.fatal != nil {
			return l.fatal
		}
		if l.pending == 0 {
			l.logger.Debug(LogMsgLoopStalled)
			return errors.New(ErrMsgRenderStalled)
		}
		select {
		case job := <-l.jobs:
			job()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return l.fatal
}

// promise exposes f as a Promise of this runtime. Settled futures produce a
// settled Promise right away.
func (l *eventLoop) promise(ctx context.Context, f *Future[any]) goja.Value {
	p, resolve, reject := l.vm.NewPromise()
	settle := func(v any, err error) {
		if err != nil {
			l.check(reject(l.vm.NewGoError(err)))
			return
		}
		l.check(resolve(l.toValue(ctx, v)))
	}

	if f == nil {
		settle(nil, errors.New(ErrMsgFutureNil))
		return l.vm.ToValue(p)
	}
	if v, ok, err := f.Peek(); ok {
		settle(v, err)
		return l.vm.ToValue(p)
	}

	l.pending++
	l.logger.Debug(LogMsgFutureScheduled, zap.Int(LogFieldPending, l.pending))
	go func() {
		select {
		case <-f.Done():
		case <-ctx.Done():
		case <-l.quit:
			return
		}
		v, err := f.Await(ctx)
		l.post(func() {
			l.pending--
			settle(v, err)
		})
	}()
	return l.vm.ToValue(p)
}

// toValue converts a Go value for use by template code. Futures become
// Promises and AsyncFuncs become functions returning Promises.
func (l *eventLoop) toValue(ctx context.Context, v any) goja.Value {
	switch x := v.(type) {
	case goja.Value:
		return x
	case *Future[any]:
		return l.promise(ctx, x)
	case AsyncFunc:
		return l.asyncFunc(ctx, x)
	case func(context.Context, ...any) (any, error):
		return l.asyncFunc(ctx, x)
	default:
		return l.vm.ToValue(v)
	}
}

func (l *eventLoop) asyncFunc(ctx context.Context, fn AsyncFunc) goja.Value {
	return l.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.Export()
		}
		return l.promise(ctx, Go(ctx, func(ctx context.Context) (any, error) {
			return fn(ctx, args...)
		}))
	})
}

// check records uncatchable errors returned by promise settle functions
func (l *eventLoop) check(err error) {
	if err != nil && l.fatal == nil {
		l.fatal = err
	}
}
