package coro

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorNextYieldsValuesInOrder(t *testing.T) {
	g := NewGenerator(context.Background(), func(yield func(int)) {
		yield(1)
		yield(2)
		yield(3)
	})

	for _, want := range []int{1, 2, 3} {
		v, ok, err := g.Next(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, v)
	}

	_, ok, err := g.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGeneratorNextAfterExhaustionKeepsReturningFalse(t *testing.T) {
	g := NewGenerator(context.Background(), func(yield func(int)) {
		yield(1)
	})

	_, ok, err := g.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		_, ok, err := g.Next(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestGeneratorBodyPanicSurfacesAsError(t *testing.T) {
	g := NewGenerator(context.Background(), func(yield func(int)) {
		yield(1)
		panic("boom")
	})

	_, ok, err := g.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = g.Next(context.Background())
	assert.False(t, ok)
	var panicErr *PanicError
	assert.ErrorAs(t, err, &panicErr)
}

func TestGeneratorNextContextCancelledMidPull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := NewGenerator(ctx, func(yield func(int)) {
		yield(1)
		yield(2)
	})

	v, ok, err := g.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	cancel()
	// Let the parked frame observe the cancellation on its own, with no
	// driver contending on the resume rendezvous, before pulling again.
	time.Sleep(10 * time.Millisecond)

	_, ok, err = g.Next(context.Background())
	assert.False(t, ok)
	var canceled *AwaitCanceledError
	assert.ErrorAs(t, err, &canceled)
}

func TestGeneratorAllRangesOverEveryValue(t *testing.T) {
	g := NewGenerator(context.Background(), func(yield func(string)) {
		yield("a")
		yield("b")
		yield("c")
	})

	var got []string
	for v := range g.All(context.Background()) {
		got = append(got, v)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestGeneratorAllStopsEarlyWhenYieldReturnsFalse(t *testing.T) {
	g := NewGenerator(context.Background(), func(yield func(int)) {
		for i := 1; i <= 10; i++ {
			yield(i)
		}
	})

	var got []int
	for v := range g.All(context.Background()) {
		got = append(got, v)
		if v == 2 {
			break
		}
	}
	assert.Equal(t, []int{1, 2}, got)
}

func TestGeneratorBodyPanickingWithErrorEndsStream(t *testing.T) {
	boom := errors.New("boom")
	g := NewGenerator(context.Background(), func(yield func(int)) {
		yield(1)
		panic(boom)
	})

	_, ok, _ := g.Next(context.Background())
	require.True(t, ok)

	_, ok, err := g.Next(context.Background())
	assert.False(t, ok)
	assert.Error(t, err)
}
