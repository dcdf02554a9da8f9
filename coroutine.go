package coro

import (
	"fmt"
	"time"
)

// State is the scheduling state of a task.
type State uint8

const (
	// Ready means the task sits in the ready queue.
	Ready State = iota
	// Running means the task holds control, or has jumped into another
	// context and waits for control to come back.
	Running
	// Yielding means the task gave up its turn and wants to be put back on
	// the ready queue.
	Yielding
	// Suspended means the task is blocked and waits for a direct jump.
	Suspended
	// Dead means the body of the task has returned.
	Dead
)

func (st State) String() string {
	switch st {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Yielding:
		return "yielding"
	case Suspended:
		return "suspended"
	case Dead:
		return "dead"
	}
	return fmt.Sprintf("State(%d)", uint8(st))
}

const (
	flagKilled = 1 << iota
	flagDaemon
)

// A Coroutine is a task: a function running on a stack of its own that can
// give up control in the middle and later pick up where it left off.
//
// A Coroutine is created by [Scheduler.Spawn], which passes it to the task
// body. Its methods must only be called by the body itself, while the task
// is running.
type Coroutine struct {
	s       *Scheduler
	handle  Handle
	name    string
	resumer Handle
	state   State
	flag    uint8
	wake    chan struct{}
	exited  chan struct{}
}

// run is the goroutine of co.
func (co *Coroutine) run(creator *Coroutine, body func(*Coroutine)) {
	s := co.s
	defer close(co.exited)

	// Let Spawn return the handle before the body runs.
	s.transfer(co, creator)

	returned := false
	defer func() {
		if co.flag&flagKilled == 0 {
			co.exit(returned)
		}
	}()

	s.ps.try(func() { body(co) })
	returned = true
}

// exit marks co dead and hands control to its resumer, or to the main
// context if the body panicked.
// It must be the last thing co does with scheduler state.
func (co *Coroutine) exit(returned bool) {
	s := co.s

	if !returned {
		s.ps.push(fmt.Sprintf("coro: task %q called runtime.Goexit", co.name), nil)
	}

	co.state = Dead
	delete(s.live, co.handle)

	if len(s.ps) != 0 {
		s.trace(TracePanic, co, nil)
		s.fatal = true
		s.switchTo(nil)
		return
	}

	to, _ := s.arena.get(co.resumer)
	s.trace(TraceFinish, co, to)
	s.switchTo(to)
}

func (co *Coroutine) mustRun(op string) {
	if co.s.current != co {
		panic("coro: " + op + " called on a task that is not running")
	}
}

// leave transfers control back to whoever last jumped into co.
func (co *Coroutine) leave() {
	s := co.s
	to, _ := s.arena.get(co.resumer)
	s.transfer(co, to)
}

// Handle returns the handle of co.
func (co *Coroutine) Handle() Handle {
	return co.handle
}

// Name returns the name co was spawned with.
func (co *Coroutine) Name() string {
	return co.name
}

// Scheduler returns the scheduler that owns co.
func (co *Coroutine) Scheduler() *Scheduler {
	return co.s
}

// Yield gives up the turn of co. Control returns to whoever last jumped
// into co, and co goes back on the ready queue.
func (co *Coroutine) Yield() {
	co.mustRun("Yield")
	co.state = Yielding
	co.s.trace(TraceYield, co, nil)
	co.leave()
}

// Suspend gives up the turn of co without rescheduling it.
// Whoever holds the handle of co must jump into it for it to run again.
func (co *Coroutine) Suspend() {
	co.mustRun("Suspend")
	co.state = Suspended
	co.s.trace(TraceSuspend, co, nil)
	co.leave()
}

// Jump transfers control from co to the task named by h, which must be
// suspended. It returns once control comes back to co.
func (co *Coroutine) Jump(h Handle) error {
	co.mustRun("Jump")
	return co.s.Jump(h)
}

// Sleep suspends co for d.
func (co *Coroutine) Sleep(d time.Duration) error {
	co.mustRun("Sleep")
	return co.s.Sleep(d)
}
