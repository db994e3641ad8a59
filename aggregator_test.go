package coro

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllOfResolvesOnceEveryFutureSettles(t *testing.T) {
	a := &Future[int]{state: newStateWord(statePending)}
	pa := newPromise(a)
	b := &Future[int]{state: newStateWord(statePending)}
	pb := newPromise(b)

	f := AllOf(a, b)
	assert.True(t, f.IsPending() || f.IsAwaited())

	pa.Fulfill(1)
	assert.True(t, f.IsPending() || f.IsAwaited())

	pb.Fulfill(2)
	_, err := f.Get()
	require.NoError(t, err)
}

func TestAllOfWithAlreadyResolvedFutures(t *testing.T) {
	f := AllOf(Resolved(1), Resolved(2), Resolved(3))
	_, err := f.Get()
	require.NoError(t, err)
}

func TestAllOfWithNoInputsResolvesImmediately(t *testing.T) {
	f := AllOf[int]()
	_, err := f.Get()
	require.NoError(t, err)
}

func TestAnyOfResolvesWithFirstSettledValueAndIndex(t *testing.T) {
	a := &Future[string]{state: newStateWord(statePending)}
	pa := newPromise(a)
	b := &Future[string]{state: newStateWord(statePending)}
	_ = newPromise(b)

	f := AnyOf(a, b)
	pa.Fulfill("first")

	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, "first", v.Value)
}

func TestAnyOfPropagatesRejectionFromWinner(t *testing.T) {
	boom := errors.New("boom")
	a := &Future[int]{state: newStateWord(statePending)}
	pa := newPromise(a)

	f := AnyOf(a)
	pa.Fail(boom)

	_, err := f.Get()
	assert.ErrorIs(t, err, boom)
}

func TestEachOfYieldsEveryFutureInFinishOrder(t *testing.T) {
	a := &Future[int]{state: newStateWord(statePending)}
	pa := newPromise(a)
	b := &Future[int]{state: newStateWord(statePending)}
	pb := newPromise(b)

	pb.Fulfill(20)

	var seen []int
	for idx, fut := range EachOf(context.Background(), a, b) {
		v, _ := fut.Get()
		seen = append(seen, idx*100+v)
		if len(seen) == 1 {
			pa.Fulfill(10)
		}
	}
	assert.Equal(t, []int{120, 10}, seen)
}

func TestAggregatorInterleavesValuesFromMultipleGenerators(t *testing.T) {
	g1 := NewGenerator(context.Background(), func(yield func(int)) {
		yield(1)
		yield(2)
	})
	g2 := NewGenerator(context.Background(), func(yield func(int)) {
		yield(10)
	})

	agg := NewAggregator(context.Background(), g1, g2)

	var total, count int
	for {
		v, ok, err := agg.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		require.NoError(t, v.Err)
		total += v.Value
		count++
	}
	assert.Equal(t, 3, count)
	assert.Equal(t, 13, total)
}

func TestAggregatorWithNoInputsEndsImmediately(t *testing.T) {
	agg := NewAggregator[int](context.Background())
	_, ok, err := agg.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
