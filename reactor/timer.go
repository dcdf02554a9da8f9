package reactor

import "time"

// A Timer is a one-shot callback registered with [Loop.AfterFunc].
type Timer struct {
	loop  *Loop
	when  time.Time
	f     func(error)
	armed bool
}

func (t *Timer) before(other *Timer) bool {
	return t.when.Before(other.when)
}

// AfterFunc arranges for f to run on the loop goroutine once d has
// elapsed. f receives nil on expiry, or [ErrClosed] if the loop shuts
// down first.
//
// Timers with the same deadline fire in the order they were armed.
func (l *Loop) AfterFunc(d time.Duration, f func(error)) *Timer {
	if f == nil {
		panic("reactor: AfterFunc called with nil callback")
	}

	l.mu.Lock()
	t := &Timer{loop: l, when: time.Now().Add(d), f: f}
	switch {
	case l.closed:
	case l.stopping:
		l.ingress = append(l.ingress, func() { f(ErrClosed) })
	default:
		t.armed = true
		l.pending++
		l.timers.Push(t)
	}
	l.mu.Unlock()

	l.notify()
	return t
}

// Stop prevents t from firing.
// It reports false if t has already fired, been flushed or been stopped.
func (t *Timer) Stop() bool {
	l := t.loop

	l.mu.Lock()
	defer l.mu.Unlock()

	if !t.armed {
		return false
	}

	t.armed = false
	l.pending--
	l.timers.Remove(func(u *Timer) bool { return u == t })

	return true
}

// Deadline returns the time at which t fires.
func (t *Timer) Deadline() time.Time {
	return t.when
}
