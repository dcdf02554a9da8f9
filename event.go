package coro

import "github.com/gammazero/deque"

// An Event wakes every task waiting on it when it is set.
//
// Set hands control to a dispatch task owned by the Event, which jumps into
// each waiter in the order they called Wait. A task that waits again while
// the pass is running is queued for the next Set, not for this one.
// When the pass is over the Event stays set until a Wait consumes it.
//
// An Event must not be shared by more than one [Scheduler].
type Event struct {
	s           *Scheduler
	task        *Coroutine
	signaled    bool
	dispatching bool
	pass        uint64
	waiters     deque.Deque[Handle]
	draining    deque.Deque[Handle]
}

// NewEvent creates an [Event] owned by s.
func NewEvent(s *Scheduler) *Event {
	e := &Event{s: s}
	e.task = s.spawn("event", e.dispatch, flagDaemon)
	return e
}

// Wait blocks the running task until the next wake pass of e reaches it.
// If e is already set, Wait returns at once.
//
// Wait clears e when it returns. A waiter woken by a pass clears it too,
// but the pass sets e again once every waiter has run, so after a Set the
// Event stays set until some later Wait consumes it.
//
// Wait panics if called outside a task.
func (e *Event) Wait() {
	co := e.s.mustCurrent("Wait")
	if !e.signaled {
		pass := e.pass
		e.waiters.PushBack(co.handle)
		for e.pass == pass {
			co.Suspend()
		}
	}
	e.signaled = false
}

// Set wakes every task waiting on e.
// It returns after each of them has given control back.
//
// Set panics if called while e is waking its waiters.
func (e *Event) Set() {
	if e.dispatching {
		panic("coro(Event): Set called while waking waiters")
	}
	e.s.jump(e.task)
}

// IsSet reports whether e is set.
func (e *Event) IsSet() bool {
	return e.signaled
}

func (e *Event) dispatch(co *Coroutine) {
	for {
		e.dispatching = true
		e.pass++
		e.waiters, e.draining = e.draining, e.waiters
		for e.draining.Len() != 0 {
			e.s.resume(e.draining.PopFront())
		}
		e.dispatching = false
		e.signaled = true
		co.Suspend()
	}
}
