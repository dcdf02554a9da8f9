package coro

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yueyoum/coro/reactor"
)

// ErrTimerCanceled is returned by [Timer.Wait] after [Timer.Cancel].
var ErrTimerCanceled = errors.New("coro: timer canceled")

// A Timer is a one-shot delay owned by the task that started it.
type Timer struct {
	s       *Scheduler
	owner   Handle
	rt      *reactor.Timer
	done    bool
	waiting bool
	err     error
}

// StartTimer arms a [Timer] that expires after d, owned by the running task.
// The task blocks on it with Wait.
//
// StartTimer panics if called outside a task.
func (s *Scheduler) StartTimer(d time.Duration) *Timer {
	co := s.mustCurrent("StartTimer")
	t := &Timer{s: s, owner: co.handle}
	t.rt = s.loop.AfterFunc(d, t.fire)
	return t
}

func (t *Timer) fire(err error) {
	if t.done {
		return
	}
	t.done = true
	if err != nil {
		t.err = fmt.Errorf("coro: timer: %w", err)
		t.s.logger.Warn("timer failed", zap.Stringer("task", t.owner), zap.Error(err))
	}
	t.wake()
}

func (t *Timer) wake() {
	if !t.waiting {
		return
	}
	t.waiting = false
	if !t.s.resume(t.owner) {
		t.s.logger.Debug("timer owner gone", zap.Stringer("task", t.owner))
	}
}

// Wait suspends the owner until t expires or is canceled. Being resumed
// early by a Jump does not end the wait.
// It returns nil on expiry, [ErrTimerCanceled] after Cancel, or the error
// reported by the reactor, such as [reactor.ErrClosed] on shutdown.
//
// Wait panics if not called by the owner of t.
func (t *Timer) Wait() error {
	co := t.s.mustCurrent("Wait")
	if co.handle != t.owner {
		panic("coro(Timer): Wait called by a task that does not own the timer")
	}
	t.waiting = true
	for !t.done {
		co.Suspend()
	}
	t.waiting = false
	return t.err
}

// Cancel stops t. If the owner is waiting on t, Cancel resumes it with
// [ErrTimerCanceled]. Cancel reports false if t has already expired or been
// canceled.
func (t *Timer) Cancel() bool {
	if t.done {
		return false
	}
	t.done = true
	t.rt.Stop()
	t.err = ErrTimerCanceled
	t.wake()
	return true
}
