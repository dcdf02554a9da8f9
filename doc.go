// Package coro is a cooperative multitasking runtime.
//
// A [Scheduler] owns a set of tasks. Each task is a [Coroutine]: a function
// with a stack of its own that can give up control in the middle and later
// pick up where it left off. Exactly one task, or the main context, runs at
// any instant. Control only moves at explicit points.
//
// # Switching
//
// There is a single switching operation, a jump. A jump records the jumper
// as the resumer of the target and hands control to the target. The target
// gives control back in one of three ways:
//
//   - [Coroutine.Yield] returns to the resumer and asks to be put back on
//     the ready queue;
//   - [Coroutine.Suspend] returns to the resumer and waits for someone to
//     jump into it again;
//   - returning from the body ends the task, which is then destroyed.
//
// Whenever control comes back from a jump, the jumper looks at the state of
// the target: a dead task is destroyed, a yielding one goes back on the
// ready queue.
//
// # Dispatching
//
// [Scheduler.Run] spawns a dispatch task that takes ready tasks off a
// [Queue] and jumps into them one after another. When the queue runs dry the
// dispatch task blocks in Get, control falls back to Run, and Run drives a
// [reactor.Loop] on the calling goroutine. Timer expiries and I/O
// completions run there as callbacks and resume blocked tasks with
// [Scheduler.Jump].
//
// # Primitives
//
// [Event], [Queue], [Timer], [WaitGroup] and [Semaphore] are built on
// Suspend and jumps. None of them needs a lock, as only one context runs at
// a time.
//
// # Tasks and Handles
//
// Tasks are named by [Handle] values. A handle of a destroyed task never
// resolves again, so resuming a task that is gone is reported as
// [ErrTaskNotFound] instead of touching freed state.
//
// # Usage Errors
//
// Calling a task-only operation from outside a task, setting an [Event]
// while it is waking its waiters, or blocking two consumers on one [Queue]
// panics. A panic inside a task is carried over to the main context, so
// Run panics with it.
package coro
