package coro

import "github.com/gammazero/deque"

// Semaphore bounds access to a resource shared by tasks.
// Tasks request access with a given weight.
//
// Waiters are served in FIFO order. A request never jumps ahead of an
// earlier one, even if it would fit.
//
// A Semaphore must not be shared by more than one [Scheduler].
type Semaphore struct {
	s       *Scheduler
	size    int64
	cur     int64
	waiters deque.Deque[*waiter]
}

type waiter struct {
	h       Handle
	n       int64
	granted bool
}

// NewSemaphore creates a new weighted semaphore with the given maximum
// combined weight.
func NewSemaphore(s *Scheduler, n int64) *Semaphore {
	return &Semaphore{s: s, size: n}
}

// Acquire blocks the running task until a weight of n is acquired.
//
// Acquire panics if n is negative or larger than the size of the semaphore.
func (sem *Semaphore) Acquire(n int64) {
	sem.check(n)
	if n > sem.size {
		panic("coro(Semaphore): weight larger than size")
	}
	co := sem.s.mustCurrent("Acquire")
	if sem.TryAcquire(n) {
		return
	}
	w := &waiter{h: co.handle, n: n}
	sem.waiters.PushBack(w)
	for !w.granted {
		co.Suspend()
	}
}

// TryAcquire acquires a weight of n without blocking.
// It reports whether it succeeded.
func (sem *Semaphore) TryAcquire(n int64) bool {
	sem.check(n)
	if sem.size-sem.cur < n || sem.waiters.Len() != 0 {
		return false
	}
	sem.cur += n
	return true
}

// Release releases a weight of n and hands it on to waiters that fit.
func (sem *Semaphore) Release(n int64) {
	sem.check(n)
	if sem.cur >= 0 {
		sem.cur -= n
	}
	if sem.cur < 0 {
		panic("coro(Semaphore): released more than held")
	}
	sem.notifyWaiters()
}

func (sem *Semaphore) check(n int64) {
	if n < 0 {
		panic("coro(Semaphore): negative weight")
	}
}

func (sem *Semaphore) notifyWaiters() {
	for sem.waiters.Len() != 0 {
		w := sem.waiters.Front()
		if sem.size-sem.cur < w.n {
			break
		}
		sem.cur += w.n
		w.granted = true
		sem.waiters.PopFront()
		sem.s.resume(w.h)
	}
}
