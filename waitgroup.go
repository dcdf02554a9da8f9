package coro

import "github.com/gammazero/deque"

// A WaitGroup waits for a counter to drop to zero.
//
// When the counter becomes zero, every task blocked in Wait is resumed in the
// order it started waiting.
//
// A WaitGroup must not be shared by more than one [Scheduler].
type WaitGroup struct {
	s       *Scheduler
	n       int
	gen     uint64
	waiters deque.Deque[Handle]
}

// NewWaitGroup creates a [WaitGroup] owned by s.
func NewWaitGroup(s *Scheduler) *WaitGroup {
	return &WaitGroup{s: s}
}

// Add adds delta, which may be negative, to the [WaitGroup] counter.
// If the counter becomes zero, Add resumes the tasks blocked in Wait.
// If the counter goes negative, Add panics.
func (wg *WaitGroup) Add(delta int) {
	if wg.n >= 0 {
		wg.n += delta
	}
	if wg.n < 0 {
		panic("coro(WaitGroup): negative counter")
	}
	if wg.n == 0 && delta != 0 {
		wg.gen++
		var waiters deque.Deque[Handle]
		waiters, wg.waiters = wg.waiters, waiters
		for waiters.Len() != 0 {
			wg.s.resume(waiters.PopFront())
		}
	}
}

// Done decrements the [WaitGroup] counter by one.
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Wait blocks the running task until the counter is zero.
// A waiter is released once the counter reaches zero, even if a task it
// was released alongside raises the counter again before it runs.
func (wg *WaitGroup) Wait() {
	co := wg.s.mustCurrent("Wait")
	if wg.n == 0 {
		return
	}
	gen := wg.gen
	wg.waiters.PushBack(co.handle)
	for wg.gen == gen {
		co.Suspend()
	}
}

// Len returns the counter.
func (wg *WaitGroup) Len() int {
	return wg.n
}
