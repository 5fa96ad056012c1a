package internal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_Settle(t *testing.T) {
	t.Run("first settle wins", func(t *testing.T) {
		f, resolve, reject := NewFuture[int]()
		assert.False(t, f.Settled())
		resolve(1)
		resolve(2)
		reject(errors.New("late"))

		v, ok, err := f.Peek()
		assert.True(t, ok)
		assert.NoError(t, err)
		assert.Equal(t, 1, v)
	})

	t.Run("peek pending", func(t *testing.T) {
		f, _, _ := NewFuture[string]()
		_, ok, err := f.Peek()
		assert.False(t, ok)
		assert.NoError(t, err)
	})

	t.Run("await respects context", func(t *testing.T) {
		f, _, _ := NewFuture[string]()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := f.Await(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGo(t *testing.T) {
	ctx := context.Background()

	v, err := Go(ctx, func(context.Context) (int, error) { return 42, nil }).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	boom := errors.New("boom")
	_, err = Go(ctx, func(context.Context) (int, error) { return 0, boom }).Await(ctx)
	assert.ErrorIs(t, err, boom)

	_, err = Go(ctx, func(context.Context) (int, error) { panic("bad") }).Await(ctx)
	var perr *PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "bad", perr.Value)
}

func TestThen(t *testing.T) {
	ctx := context.Background()
	double := func(v int) (int, error) { return v * 2, nil }

	settled := Then(Resolved(2), double)
	assert.True(t, settled.Settled())
	v, err := settled.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, v)

	f, resolve, _ := NewFuture[int]()
	later := Then(f, double)
	resolve(5)
	v, err = later.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	boom := errors.New("boom")
	_, err = Then(Rejected[int](boom), double).Await(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestAll(t *testing.T) {
	ctx := context.Background()

	t.Run("all settled resolves synchronously", func(t *testing.T) {
		all := All(ctx, []*Future[int]{Resolved(1), Resolved(2), Resolved(3)})
		require.True(t, all.Settled())
		v, _, err := all.Peek()
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, v)
	})

	t.Run("empty input", func(t *testing.T) {
		v, err := All[int](ctx, nil).Await(ctx)
		require.NoError(t, err)
		assert.Empty(t, v)
	})

	t.Run("positional results with out of order completion", func(t *testing.T) {
		slow := Go(ctx, func(context.Context) (string, error) {
			time.Sleep(30 * time.Millisecond)
			return "A", nil
		})
		fast := Go(ctx, func(context.Context) (string, error) {
			return "B", nil
		})
		v, err := All(ctx, []*Future[string]{slow, fast}).Await(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, v)
	})

	t.Run("settled failure wins immediately", func(t *testing.T) {
		boom := errors.New("boom")
		pending, _, _ := NewFuture[int]()
		all := All(ctx, []*Future[int]{pending, Rejected[int](boom)})
		require.True(t, all.Settled())
		_, err := all.Await(ctx)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("first failure is kept", func(t *testing.T) {
		first := errors.New("first")
		second := errors.New("second")
		a, _, rejectA := NewFuture[int]()
		b, _, rejectB := NewFuture[int]()
		all := All(ctx, []*Future[int]{a, b})

		rejectA(first)
		_, err := all.Await(ctx)
		assert.ErrorIs(t, err, first)

		rejectB(second)
		_, err = all.Await(ctx)
		assert.ErrorIs(t, err, first)
	})

	t.Run("does not wait for stragglers", func(t *testing.T) {
		boom := errors.New("boom")
		never, _, _ := NewFuture[int]()
		failing, _, reject := NewFuture[int]()
		all := All(ctx, []*Future[int]{never, failing})
		reject(boom)

		waitCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		_, err := all.Await(waitCtx)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("nil future", func(t *testing.T) {
		_, err := All(ctx, []*Future[int]{nil}).Await(ctx)
		require.Error(t, err)
		assert.Equal(t, ErrMsgFutureNil, err.Error())
	})

	t.Run("context cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		pending, _, _ := NewFuture[int]()
		all := All(cctx, []*Future[int]{pending})
		cancel()
		_, err := all.Await(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
