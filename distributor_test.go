package coro

import (
	"context"
	"runtime"
	"testing"
	"weak"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistributorPublishFansOutToAllSubscribers(t *testing.T) {
	d := NewDistributor[int]()
	a := d.Subscribe()
	b := d.Subscribe()

	d.Publish(5)

	av, err := a.Get()
	require.NoError(t, err)
	bv, err := b.Get()
	require.NoError(t, err)
	assert.Equal(t, 5, av)
	assert.Equal(t, 5, bv)
}

func TestDistributorSubscriptionIsOneShot(t *testing.T) {
	d := NewDistributor[int]()
	f := d.Subscribe()

	d.Publish(1)
	d.Publish(2)

	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// the first Publish already drained the subscriber list.
	g := d.Subscribe()
	d.Publish(3)
	v, err = g.Get()
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestDistributorPublishWithNoSubscribersIsANoOp(t *testing.T) {
	d := NewDistributor[string]()
	assert.NotPanics(t, func() { d.Publish("hello") })
}

func TestDistributorScavengeLockedDropsDeadWeakPointers(t *testing.T) {
	d := NewDistributor[int]()

	live := &Future[int]{state: newStateWord(statePending)}
	d.subs = append(d.subs, distSub[int]{future: weak.Make(live)})

	func() {
		dead := &Future[int]{state: newStateWord(statePending)}
		d.subs = append(d.subs, distSub[int]{future: weak.Make(dead)})
	}()
	runtime.GC()

	d.mu.Lock()
	d.scavengeLocked()
	n := len(d.subs)
	d.mu.Unlock()
	assert.Equal(t, 1, n)
	runtime.KeepAlive(live)
}

func TestDistributorSubscribeQueueSeesEveryPublish(t *testing.T) {
	d := NewDistributor[int]()
	q := d.SubscribeQueue()

	d.Publish(1)
	d.Publish(2)

	v1, err := q.Pop(context.Background()).Get()
	require.NoError(t, err)
	v2, err := q.Pop(context.Background()).Get()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2}, []int{v1, v2})
}
