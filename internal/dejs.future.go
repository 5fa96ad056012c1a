package internal

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Future is a value that settles exactly once, either with a result or
// with an error. It is safe for concurrent use.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// NewFuture returns a pending future and its settle functions. Only the
// first call of either function has an effect.
func NewFuture[T any]() (*Future[T], func(T), func(error)) {
	f := &Future[T]{done: make(chan struct{})}
	resolve := func(v T) { f.settle(v, nil) }
	reject := func(err error) {
		var zero T
		f.settle(zero, err)
	}
	return f, resolve, reject
}

// Resolved returns a future already settled with v
func Resolved[T any](v T) *Future[T] {
	f, resolve, _ := NewFuture[T]()
	resolve(v)
	return f
}

// Rejected returns a future already settled with err
func Rejected[T any](err error) *Future[T] {
	f, _, reject := NewFuture[T]()
	reject(err)
	return f
}

// Go runs fn on its own goroutine and returns a future of its result.
// A panic in fn rejects the future.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f, resolve, reject := NewFuture[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				reject(&PanicError{Value: r})
			}
		}()
		v, err := fn(ctx)
		if err != nil {
			reject(err)
			return
		}
		resolve(v)
	}()
	return f
}

func (f *Future[T]) settle(v T, err error) {
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
	})
}

// Done is closed when the future settles
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has settled
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Peek returns the outcome without waiting. ok is false while pending.
func (f *Future[T]) Peek() (v T, ok bool, err error) {
	if !f.Settled() {
		return v, false, nil
	}
	return f.val, true, f.err
}

// Await blocks the calling goroutine until the future settles or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	if v, ok, err := f.Peek(); ok {
		return v, err
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then returns a future of fn applied to the result of f. Errors pass
// through without calling fn.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	if v, ok, err := f.Peek(); ok {
		if err != nil {
			return Rejected[U](err)
		}
		u, err := fn(v)
		if err != nil {
			return Rejected[U](err)
		}
		return Resolved(u)
	}

	out, resolve, reject := NewFuture[U]()
	go func() {
		<-f.done
		if f.err != nil {
			reject(f.err)
			return
		}
		u, err := fn(f.val)
		if err != nil {
			reject(err)
			return
		}
		resolve(u)
	}()
	return out
}

// All collects the results of futures in order.
//
// Futures that are already settled are read in place; when every entry is
// settled at call time the returned future is settled before All returns.
// The result rejects with the first failure observed; results arriving
// after that are dropped. All does not wait for the remaining futures once
// it has failed. Cancelling ctx rejects the result with ctx.Err().
func All[T any](ctx context.Context, futures []*Future[T]) *Future[[]T] {
	results := make([]T, len(futures))
	var pending []int

	for i, f := range futures {
		if f == nil {
			return Rejected[[]T](errors.New(ErrMsgFutureNil))
		}
		v, ok, err := f.Peek()
		if !ok {
			pending = append(pending, i)
			continue
		}
		if err != nil {
			return Rejected[[]T](err)
		}
		results[i] = v
	}
	if len(pending) == 0 {
		return Resolved(results)
	}

	out, resolve, reject := NewFuture[[]T]()
	var (
		mu        sync.Mutex
		remaining = len(pending)
	)
	for _, i := range pending {
		go func(i int, f *Future[T]) {
			select {
			case <-f.done:
			case <-out.done:
				return
			case <-ctx.Done():
				reject(ctx.Err())
				return
			}
			if f.err != nil {
				reject(f.err)
				return
			}
			mu.Lock()
			results[i] = f.val
			remaining--
			last := remaining == 0
			mu.Unlock()
			if last {
				resolve(results)
			}
		}(i, futures[i])
	}
	return out
}

// PanicError carries a value recovered from a panicking goroutine
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
