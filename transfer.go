package coro

import "runtime"

// Every task runs on a goroutine of its own, but only one goroutine of a
// scheduler, the main context included, is ever out of park at a time.
// Control moves by a send on the wake channel of the target followed by a
// receive on the wake channel of the caller. The channel handoff orders
// every access to scheduler state, so the core takes no locks.

func (s *Scheduler) wakeOf(co *Coroutine) chan struct{} {
	if co == nil {
		return s.main
	}
	return co.wake
}

// transfer switches from one context to another and returns once some
// context switches back to from. A nil *Coroutine names the main context.
func (s *Scheduler) transfer(from, to *Coroutine) {
	s.current = to
	s.wakeOf(to) <- struct{}{}
	s.park(from)
}

// switchTo hands control to another context without parking.
// A finishing task calls it as its last act on scheduler state.
func (s *Scheduler) switchTo(to *Coroutine) {
	s.current = to
	s.wakeOf(to) <- struct{}{}
}

func (s *Scheduler) park(co *Coroutine) {
	if co == nil {
		<-s.main
		if s.fatal {
			s.fatal = false
			ps := s.ps
			s.ps = nil
			ps.repanic()
		}
		return
	}
	<-co.wake
	if co.flag&flagKilled != 0 {
		runtime.Goexit()
	}
}

// start launches the goroutine of co and waits for it to register.
// The body of co does not run until co is first jumped into.
func (s *Scheduler) start(co *Coroutine, body func(*Coroutine)) {
	from := s.current
	s.current = co
	go co.run(from, body)
	s.park(from)
}
