package daemon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_RunsInFIFOOrder(t *testing.T) {
	q := NewQueue()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		q.Dispatch(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	assert.Equal(t, 100, q.Len())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 100
	}, time.Second, time.Millisecond)

	for i, v := range got {
		if v != i {
			t.Fatalf("callback %d ran at position %d", v, i)
		}
	}
}

func TestQueue_DispatchDoesNotBlock(t *testing.T) {
	q := NewQueue()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			q.Dispatch(func() {})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked without a running consumer")
	}
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue()
	q.Dispatch(func() { t.Error("pending callback ran after close") })
	q.Close()
	q.Dispatch(func() { t.Error("callback dispatched after close ran") })

	err := q.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_RunStopsOnCancel(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Run(ctx), context.Canceled)
}

func TestDispatcherFunc(t *testing.T) {
	var ran bool
	d := DispatcherFunc(func(fn func()) { fn() })
	d.Dispatch(func() { ran = true })
	assert.True(t, ran)
}
