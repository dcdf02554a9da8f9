package coro_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yueyoum/coro"
)

func TestSemaphore(t *testing.T) {
	t.Run("NoBarging", func(t *testing.T) {
		s := newScheduler(t)

		sema := coro.NewSemaphore(s, 3)

		var got []string
		s.Spawn("a", func(co *coro.Coroutine) {
			sema.Acquire(2)
			got = append(got, "a acquired")
			co.Yield()
			sema.Release(2)
		})
		s.Spawn("b", func(co *coro.Coroutine) {
			sema.Acquire(2)
			got = append(got, "b acquired")
			sema.Release(2)
		})
		s.Spawn("c", func(co *coro.Coroutine) {
			if sema.TryAcquire(1) {
				t.Error("TryAcquire should not succeed when there are waiters.")
			}
		})

		require.NoError(t, s.Run(context.Background()))
		assert.Equal(t, []string{"a acquired", "b acquired"}, got)

		if !sema.TryAcquire(3) {
			t.Fatal("TryAcquire did not succeed when there are no waiters.")
		}
	})
	t.Run("FIFO", func(t *testing.T) {
		s := newScheduler(t)

		sema := coro.NewSemaphore(s, 1)

		var got []string
		for _, name := range []string{"w1", "w2", "w3"} {
			s.Spawn(name, func(co *coro.Coroutine) {
				sema.Acquire(1)
				got = append(got, co.Name())
				co.Yield()
				sema.Release(1)
			})
		}

		require.NoError(t, s.Run(context.Background()))
		assert.Equal(t, []string{"w1", "w2", "w3"}, got)
	})
	t.Run("Panics", func(t *testing.T) {
		s := newScheduler(t)
		defer s.Close()

		sema := coro.NewSemaphore(s, 1)

		assert.PanicsWithValue(t, "coro(Semaphore): negative weight", func() { sema.TryAcquire(-1) })
		assert.PanicsWithValue(t, "coro(Semaphore): released more than held", func() { sema.Release(1) })
	})
	t.Run("TooHeavy", func(t *testing.T) {
		s := newScheduler(t)

		sema := coro.NewSemaphore(s, 1)

		s.Spawn("greedy", func(co *coro.Coroutine) {
			sema.Acquire(2)
		})

		runPanics(t, s, "coro(Semaphore): weight larger than size")
	})
}
