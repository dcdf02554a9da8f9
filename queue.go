package coro

import "github.com/gammazero/deque"

// A Queue is a FIFO channel of values with any number of producers and at
// most one consumer blocked at a time.
//
// Put never blocks. If the consumer is blocked in Get, Put jumps straight
// into it, and Put returns once the consumer gives control back.
//
// A Queue must not be shared by more than one [Scheduler].
type Queue[T any] struct {
	s        *Scheduler
	backlog  deque.Deque[T]
	consumer Handle
}

// NewQueue creates a [Queue] owned by s.
func NewQueue[T any](s *Scheduler) *Queue[T] {
	return &Queue[T]{s: s}
}

// Put appends v to the queue and wakes the blocked consumer, if any.
// Put may be called from a task or from the main context.
func (q *Queue[T]) Put(v T) {
	q.backlog.PushBack(v)
	if h := q.consumer; h != Main {
		q.consumer = Main
		q.s.resume(h)
	}
}

// Get removes and returns the value at the front of the queue, suspending
// the running task while the queue is empty.
//
// Get panics if called outside a task or while another task is blocked in
// Get on the same queue.
func (q *Queue[T]) Get() T {
	co := q.s.mustCurrent("Get")
	for q.backlog.Len() == 0 {
		if q.consumer != Main && q.consumer != co.handle {
			panic("coro(Queue): Get called while another task is blocked in Get")
		}
		q.consumer = co.handle
		co.Suspend()
	}
	return q.backlog.PopFront()
}

// Len returns the number of values in the queue.
func (q *Queue[T]) Len() int {
	return q.backlog.Len()
}
