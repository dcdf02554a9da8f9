package coro_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yueyoum/coro"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newScheduler(t *testing.T, opts ...coro.Option) *coro.Scheduler {
	t.Helper()
	opts = append([]coro.Option{coro.WithLogger(zaptest.NewLogger(t))}, opts...)
	return coro.NewScheduler(opts...)
}

// runPanics runs s and checks that Run panics with an error containing msg.
func runPanics(t *testing.T, s *coro.Scheduler, msg string) error {
	t.Helper()

	var err error
	func() {
		defer func() {
			v := recover()
			require.NotNil(t, v, "Run did not panic")
			var ok bool
			err, ok = v.(error)
			require.True(t, ok, "panic value is not an error: %v", v)
		}()
		_ = s.Run(context.Background())
	}()

	assert.Contains(t, err.Error(), msg)
	return err
}

func TestRoundTrip(t *testing.T) {
	s := newScheduler(t)

	const n = 5

	yields := 0
	h := s.Spawn("yielder", func(co *coro.Coroutine) {
		for j := 0; j < n; j++ {
			co.Yield()
			yields++
		}
	})

	st, ok := s.State(h)
	require.True(t, ok)
	assert.Equal(t, coro.Ready, st)

	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, n, yields)

	stats := s.Stats()
	assert.Equal(t, 1, stats.Spawned)
	assert.Equal(t, n+1, stats.Dispatched)
	assert.Equal(t, 1, stats.Destroyed)
	assert.Zero(t, stats.Live)
	assert.Zero(t, stats.Ready)
}

func TestScenario(t *testing.T) {
	s := newScheduler(t)

	ev := coro.NewEvent(s)

	var got []string
	s.Spawn("one", func(co *coro.Coroutine) {
		got = append(got, "one start")
		co.Yield()
		got = append(got, "one done")
	})
	s.Spawn("two", func(co *coro.Coroutine) {
		got = append(got, "two wait")
		ev.Wait()
		got = append(got, "two done")
	})

	s.Loop().AfterFunc(10*time.Millisecond, func(err error) {
		require.NoError(t, err)
		got = append(got, "set")
		ev.Set()
	})

	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{"one start", "two wait", "one done", "set", "two done"}, got)
	assert.Equal(t, 2, s.Stats().Destroyed)
}

func TestJump(t *testing.T) {
	t.Run("ReactorCallback", func(t *testing.T) {
		s := newScheduler(t)

		resumed := false
		s.Spawn("waiter", func(co *coro.Coroutine) {
			h := co.Handle()
			s.Loop().AfterFunc(time.Millisecond, func(error) {
				assert.Equal(t, coro.Main, s.Current())
				assert.NoError(t, s.Jump(h))
			})
			co.Suspend()
			resumed = true
		})

		require.NoError(t, s.Run(context.Background()))
		assert.True(t, resumed)
	})
	t.Run("StaleHandle", func(t *testing.T) {
		s := newScheduler(t)

		short := s.Spawn("short", func(co *coro.Coroutine) {})

		var err error
		s.Spawn("checker", func(co *coro.Coroutine) {
			err = co.Jump(short)
		})

		require.NoError(t, s.Run(context.Background()))
		assert.ErrorIs(t, err, coro.ErrTaskNotFound)
	})
	t.Run("TaskToTask", func(t *testing.T) {
		s := newScheduler(t)

		var got []string
		var callee coro.Handle

		callee = s.Spawn("callee", func(co *coro.Coroutine) {
			got = append(got, "callee suspend")
			co.Suspend()
			got = append(got, "callee resumed")
			co.Yield()
			got = append(got, "callee done")
		})
		s.Spawn("caller", func(co *coro.Coroutine) {
			got = append(got, "caller jump")
			require.NoError(t, co.Jump(callee))
			got = append(got, "caller back")
		})

		require.NoError(t, s.Run(context.Background()))

		// The yield lands on the ready queue even though the caller,
		// not the dispatch task, resumed the callee.
		assert.Equal(t, []string{
			"callee suspend",
			"caller jump",
			"callee resumed",
			"caller back",
			"callee done",
		}, got)
	})
	t.Run("NotSuspended", func(t *testing.T) {
		s := newScheduler(t)

		var self coro.Handle
		self = s.Spawn("self", func(co *coro.Coroutine) {
			_ = co.Jump(self)
		})

		runPanics(t, s, "which is running")
	})
}

func TestDeadlock(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := coro.NewScheduler(coro.WithLogger(zap.New(core)))

	s.Spawn("stuck", func(co *coro.Coroutine) {
		co.Suspend()
	})

	err := s.Run(context.Background())
	assert.ErrorIs(t, err, coro.ErrDeadlock)
	assert.Equal(t, 1, logs.FilterMessage("scheduler idle with blocked tasks").Len())
}

func TestKill(t *testing.T) {
	s := newScheduler(t)

	h := s.Spawn("stuck", func(co *coro.Coroutine) {
		co.Suspend()
	})

	assert.True(t, s.Kill(h))
	assert.False(t, s.Kill(h))

	require.NoError(t, s.Run(context.Background()))
}

func TestCancel(t *testing.T) {
	s := newScheduler(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleaned := false
	s.Spawn("stuck", func(co *coro.Coroutine) {
		defer func() { cleaned = true }()
		co.Suspend()
	})
	s.Spawn("canceler", func(co *coro.Coroutine) {
		cancel()
	})

	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.True(t, cleaned, "deferred calls of a torn-down task did not run")
}

func TestUsageErrors(t *testing.T) {
	t.Run("YieldOutsideTask", func(t *testing.T) {
		s := newScheduler(t)
		defer s.Close()

		assert.PanicsWithValue(t, "coro: Yield called outside a task", s.Yield)
		assert.PanicsWithValue(t, "coro: Suspend called outside a task", s.Suspend)
	})
	t.Run("RunTwice", func(t *testing.T) {
		s := newScheduler(t)

		require.NoError(t, s.Run(context.Background()))
		assert.PanicsWithValue(t, "coro: Run called twice", func() {
			_ = s.Run(context.Background())
		})
	})
	t.Run("SpawnAfterClose", func(t *testing.T) {
		s := newScheduler(t)
		s.Close()

		assert.PanicsWithValue(t, "coro: Spawn called on a closed scheduler", func() {
			s.Spawn("late", func(co *coro.Coroutine) {})
		})
	})
	t.Run("RunFromTask", func(t *testing.T) {
		s := newScheduler(t)

		s.Spawn("nested", func(co *coro.Coroutine) {
			_ = s.Run(context.Background())
		})

		runPanics(t, s, "coro: Run called from a task")
	})
	t.Run("ForeignCoroutine", func(t *testing.T) {
		s := newScheduler(t)

		var first *coro.Coroutine
		s.Spawn("first", func(co *coro.Coroutine) {
			first = co
			co.Suspend()
		})
		s.Spawn("second", func(co *coro.Coroutine) {
			first.Yield()
		})

		runPanics(t, s, "coro: Yield called on a task that is not running")
	})
}

func TestTaskPanic(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		s := newScheduler(t)

		errBoom := errors.New("boom")

		s.Spawn("other", func(co *coro.Coroutine) {
			co.Suspend()
		})
		s.Spawn("bad", func(co *coro.Coroutine) {
			co.Yield()
			panic(errBoom)
		})

		err := runPanics(t, s, "boom")
		assert.ErrorIs(t, err, errBoom)
	})
	t.Run("Goexit", func(t *testing.T) {
		s := newScheduler(t)

		s.Spawn("quitter", func(co *coro.Coroutine) {
			runtime.Goexit()
		})

		runPanics(t, s, `task "quitter" called runtime.Goexit`)
	})
}

func TestTracer(t *testing.T) {
	var kinds []coro.TraceKind

	var h coro.Handle
	s := newScheduler(t, coro.WithTracer(coro.TracerFunc(func(ev coro.TraceEvent) {
		if ev.Task == h || ev.Kind == coro.TraceSpawn && ev.Name == "traced" {
			kinds = append(kinds, ev.Kind)
		}
	})))

	h = s.Spawn("traced", func(co *coro.Coroutine) {
		co.Yield()
	})

	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []coro.TraceKind{
		coro.TraceSpawn,
		coro.TraceJump,
		coro.TraceYield,
		coro.TraceJump,
		coro.TraceFinish,
		coro.TraceDestroy,
	}, kinds)
}

func TestZapTracer(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := newScheduler(t, coro.WithTracer(coro.NewZapTracer(zap.New(core))))

	s.Spawn("traced", func(co *coro.Coroutine) {})

	require.NoError(t, s.Run(context.Background()))

	// The dispatch task is spawned too, and torn down by Close.
	assert.Equal(t, 2, logs.FilterMessage("spawn").Len())
	assert.Equal(t, 1, logs.FilterMessage("destroy").Len())
	assert.Equal(t, 1, logs.FilterMessage("kill").Len())

	entries := logs.FilterMessage("finish").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "traced", entries[0].ContextMap()["name"])
	assert.Equal(t, "dispatch", entries[0].ContextMap()["peer_name"])
}
