package eventloop_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/framesync/pkg/domain"
	"github.com/aretw0/framesync/pkg/eventloop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T) *eventloop.Loop {
	t.Helper()
	l := eventloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		l.Close()
	})
	return l
}

func TestLoop_Order(t *testing.T) {
	l := startLoop(t)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.NoError(t, l.Post(func() { got = append(got, i) }))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.Wait(ctx))

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
	assert.Equal(t, uint64(100), l.Seq())
	assert.True(t, l.Idle())
}

func TestLoop_PostBeforeRun(t *testing.T) {
	l := eventloop.New()
	ran := make(chan struct{})
	require.NoError(t, l.Post(func() { close(ran) }))
	assert.False(t, l.Idle())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}
}

func TestLoop_Do(t *testing.T) {
	l := startLoop(t)
	sentinel := errors.New("boom")

	err := l.Do(context.Background(), func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)

	assert.NoError(t, l.Do(context.Background(), func() error { return nil }))
}

func TestLoop_TasksAreSerialized(t *testing.T) {
	l := startLoop(t)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = l.Post(func() { counter++ })
			}
		}()
	}
	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.Wait(ctx))
	assert.Equal(t, 1000, counter)
}

func TestLoop_Close(t *testing.T) {
	l := eventloop.New()
	require.NoError(t, l.Post(func() {}))
	l.Close()

	assert.True(t, l.Idle(), "queued tasks are dropped on close")
	assert.ErrorIs(t, l.Post(func() {}), domain.ErrClosed)
	assert.ErrorIs(t, l.Do(context.Background(), func() error { return nil }), domain.ErrClosed)

	select {
	case <-l.Done():
	default:
		t.Fatal("Done should be closed")
	}
}

func TestLoop_After(t *testing.T) {
	l := startLoop(t)
	fired := make(chan struct{})
	l.After(50*time.Millisecond, func() { close(fired) })

	assert.True(t, l.Idle(), "pending timers do not keep the loop busy")

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer task did not run")
	}

	stop := l.After(time.Hour, func() { t.Error("stopped timer fired") })
	assert.True(t, stop())
}
