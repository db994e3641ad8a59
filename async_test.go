package coro

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncRunReturnsValueDirectly(t *testing.T) {
	a := NewAsync(func(p *Promise[int], yield Yield) (int, error) {
		return 21 * 2, nil
	})

	v, err := a.Run()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestAsyncRunPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	a := NewAsync(func(p *Promise[int], yield Yield) (int, error) {
		return 0, boom
	})

	_, err := a.Run()
	assert.ErrorIs(t, err, boom)
}

func TestAsyncStartReturnsPendingFutureThatResolvesLater(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	a := NewAsync(func(p *Promise[int], yield Yield) (int, error) {
		close(started)
		<-release
		return 5, nil
	})

	f := a.Start()
	<-started
	assert.True(t, f.IsPending() || f.IsAwaited())
	close(release)

	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestAsyncDeferStartDoesNotRunUntilAwaited(t *testing.T) {
	var ran bool
	a := NewAsync(func(p *Promise[int], yield Yield) (int, error) {
		ran = true
		return 1, nil
	})

	f := a.DeferStart()
	assert.False(t, ran)
	assert.True(t, f.IsDeferred())

	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.True(t, ran)
}

func TestAsyncSharedStartFansOutToManySubscribers(t *testing.T) {
	a := NewAsync(func(p *Promise[int], yield Yield) (int, error) {
		return 7, nil
	})

	sf := a.SharedStart()
	f1 := sf.Subscribe()
	f2 := sf.Subscribe()

	v1, err := f1.Get()
	require.NoError(t, err)
	v2, err := f2.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, v1)
	assert.Equal(t, 7, v2)
}

func TestAsyncBodyPanicIsRecoveredAsRejection(t *testing.T) {
	a := NewAsync(func(p *Promise[int], yield Yield) (int, error) {
		panic("unexpected")
	})

	_, err := a.Run()
	var panicErr *PanicError
	assert.ErrorAs(t, err, &panicErr)
}

func TestAsyncContextCancellationDuringYieldBreaksPromise(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reachedYield := make(chan struct{})
	a := NewAsync(func(p *Promise[int], yield Yield) (int, error) {
		close(reachedYield)
		yield()
		return 99, nil
	}).WithContext(ctx)

	f := a.Start()
	<-reachedYield
	cancel()

	_, err := f.Get()
	var canceled *AwaitCanceledError
	assert.ErrorAs(t, err, &canceled)
}
