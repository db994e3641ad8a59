package coro

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoroutineResumeRunsUntilFirstYield(t *testing.T) {
	var steps []int
	c := startCoroutine(context.Background(), func(yield Yield) {
		steps = append(steps, 1)
		yield()
		steps = append(steps, 2)
		yield()
		steps = append(steps, 3)
	})

	require.True(t, c.resume())
	assert.Equal(t, []int{1}, steps)

	require.True(t, c.resume())
	assert.Equal(t, []int{1, 2}, steps)

	require.False(t, c.resume())
	assert.Equal(t, []int{1, 2, 3}, steps)
}

func TestCoroutineResumeAfterDoneReturnsFalse(t *testing.T) {
	c := startCoroutine(context.Background(), func(yield Yield) {})
	assert.False(t, c.resume())
	assert.False(t, c.resume())
}

func TestCoroutineBodyNeverStartedWithoutResumeIsSafeToRelease(t *testing.T) {
	c := startCoroutine(context.Background(), func(yield Yield) {
		t.Fatal("body must not run without a resume")
	})
	assert.NotPanics(t, func() { c.release() })
}

func TestCoroutineContextCancelStopsPendingResume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := startCoroutine(ctx, func(yield Yield) {
		yield()
	})
	require.True(t, c.resume())

	cancel()
	time.Sleep(10 * time.Millisecond)

	assert.False(t, c.resume())
}

func TestCoroutineCollectedTokenStopsSubsequentResume(t *testing.T) {
	c := startCoroutine(context.Background(), func(yield Yield) {
		yield()
	})
	require.True(t, c.resume())

	close(c.collected)
	time.Sleep(10 * time.Millisecond)

	assert.False(t, c.resume())
}

func TestCoroutineReleaseDisarmsFinalizer(t *testing.T) {
	c := startCoroutine(context.Background(), func(yield Yield) {})
	c.release()

	for i := 0; i < 20; i++ {
		runtime.GC()
		runtime.Gosched()
	}
	select {
	case <-c.collected:
		t.Fatal("collected channel closed despite release disarming the finalizer")
	default:
	}
}

func TestErrCoroutineLeakedMessageAndUnwrap(t *testing.T) {
	bare := errCoroutineLeaked{}
	assert.Contains(t, bare.Error(), "abandoned")

	cause := context.Canceled
	withCause := errCoroutineLeaked{cause: cause}
	assert.Contains(t, withCause.Error(), cause.Error())
	assert.Equal(t, cause, withCause.Unwrap())
}
