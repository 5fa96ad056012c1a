package dejs

import (
	"context"

	"github.com/itsatony/go-dejs/internal"
)

// Future is a value that settles exactly once with a result or an error.
// A *Future[any] passed in locals is seen by template code as a Promise.
type Future[T any] = internal.Future[T]

// AsyncFunc is a Go function callable from template code. Each call runs on
// its own goroutine; template code receives a Promise of the result.
type AsyncFunc = internal.AsyncFunc

// PanicError carries the value recovered from a panicking Go goroutine
type PanicError = internal.PanicError

// NewFuture returns a pending future and its settle functions
func NewFuture[T any]() (*Future[T], func(T), func(error)) {
	return internal.NewFuture[T]()
}

// Resolved returns a future already settled with v
func Resolved[T any](v T) *Future[T] {
	return internal.Resolved(v)
}

// Rejected returns a future already settled with err
func Rejected[T any](err error) *Future[T] {
	return internal.Rejected[T](err)
}

// Go runs fn on its own goroutine and returns a future of its result
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	return internal.Go(ctx, fn)
}

// Then chains fn onto f
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	return internal.Then(f, fn)
}

// All collects the results of futures in order. Already settled futures are
// read synchronously. It rejects with the first failure observed and does
// not wait for the remaining futures after that.
func All[T any](ctx context.Context, futures []*Future[T]) *Future[[]T] {
	return internal.All(ctx, futures)
}
