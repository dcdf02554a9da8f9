// Package reactor implements a single-goroutine event loop that hosts
// a coroutine scheduler.
//
// A [Loop] runs callbacks one at a time on the goroutine that calls
// [Loop.Run]. Callbacks arrive from three places:
//   - [Loop.Post], which is safe for concurrent use;
//   - expiring timers armed with [Loop.AfterFunc];
//   - blocking operations offloaded with [Loop.Go].
//
// The loop keeps a count of pending work (armed timers, offloaded
// operations and anything registered with [Loop.Add]).
// Run returns once no callback is queued and nothing is pending.
package reactor

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrClosed is reported to timer callbacks that are flushed because
	// the loop is shutting down.
	ErrClosed = errors.New("reactor: loop closed")

	// ErrRunning is returned by Run when the loop is already running.
	ErrRunning = errors.New("reactor: loop is already running")
)

// A Loop is an event loop. The zero value is not usable; use [New].
type Loop struct {
	mu       sync.Mutex
	ingress  []func()
	timers   timerqueue[*Timer]
	pending  int
	running  bool
	stopping bool
	closed   bool
	wakeup   chan struct{}
}

// New creates a [Loop].
func New() *Loop {
	return &Loop{wakeup: make(chan struct{}, 1)}
}

func (l *Loop) notify() {
	select {
	case l.wakeup <- struct{}{}:
	default:
	}
}

// Post queues f to run on the loop goroutine.
// Post reports false, dropping f, if the loop has been closed.
//
// Post is safe for concurrent use.
// A callback posted from another goroutine only keeps Run from returning
// if that goroutine holds a count obtained with [Loop.Add].
func (l *Loop) Post(f func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.ingress = append(l.ingress, f)
	l.mu.Unlock()
	l.notify()
	return true
}

// Add adds delta, which may be negative, to the pending counter.
// Run does not return while the counter is positive.
func (l *Loop) Add(delta int) {
	l.mu.Lock()
	l.pending += delta
	n := l.pending
	l.mu.Unlock()
	if n < 0 {
		panic("reactor: negative pending counter")
	}
	l.notify()
}

// Done decrements the pending counter by one.
func (l *Loop) Done() {
	l.Add(-1)
}

// Pending returns the number of pending operations.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// Go runs op on a new goroutine and, once op returns, delivers its error
// to done on the loop goroutine.
// The operation counts as pending until done is queued.
// If the loop is closed by then, done is dropped.
func (l *Loop) Go(op func() error, done func(error)) {
	l.Add(1)
	go func() {
		err := op()
		l.complete(func() { done(err) })
	}()
}

func (l *Loop) complete(f func()) {
	l.mu.Lock()
	l.pending--
	if !l.closed {
		l.ingress = append(l.ingress, f)
	}
	l.mu.Unlock()
	l.notify()
}

// Run runs callbacks on the calling goroutine until the loop is idle or
// ctx is done.
//
// When ctx is done, every armed timer fires with [ErrClosed], timers
// armed afterwards fire right away with ErrClosed, queued callbacks are
// drained, and Run returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return ErrRunning
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	var tm *time.Timer
	defer func() {
		if tm != nil {
			tm.Stop()
		}
	}()

	for {
		if ctx.Err() != nil {
			return l.shutdown(ctx.Err())
		}

		batch, wait, idle := l.poll(time.Now())

		if len(batch) != 0 {
			for _, f := range batch {
				f()
			}
			continue
		}

		if idle {
			return nil
		}

		var expired <-chan time.Time
		if wait >= 0 {
			if tm == nil {
				tm = time.NewTimer(wait)
			} else {
				tm.Reset(wait)
			}
			expired = tm.C
		}

		select {
		case <-ctx.Done():
		case <-l.wakeup:
		case <-expired:
		}
	}
}

// poll moves due timers into the ingress queue and takes the queue.
// wait is the delay until the next armed timer, or -1 if there is none.
func (l *Loop) poll(now time.Time) (batch []func(), wait time.Duration, idle bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for !l.timers.Empty() && !l.timers.Peek().when.After(now) {
		l.fireLocked(l.timers.Pop(), nil)
	}

	batch, l.ingress = l.ingress, nil

	wait = -1
	if !l.timers.Empty() {
		wait = l.timers.Peek().when.Sub(now)
	}

	return batch, wait, len(batch) == 0 && l.pending == 0
}

func (l *Loop) fireLocked(t *Timer, err error) {
	t.armed = false
	l.pending--
	l.ingress = append(l.ingress, func() { t.f(err) })
}

func (l *Loop) shutdown(cause error) error {
	l.mu.Lock()
	l.stopping = true
	for _, t := range l.timers.Clear() {
		l.fireLocked(t, ErrClosed)
	}
	l.mu.Unlock()

	for {
		l.mu.Lock()
		batch := l.ingress
		l.ingress = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return cause
		}

		for _, f := range batch {
			f()
		}
	}
}

// Close stops the loop from accepting further work.
// Queued callbacks and armed timers are discarded; completions of
// operations still running are dropped when they arrive.
//
// Close must not be called while Run is running.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	l.closed = true
	l.stopping = true
	l.ingress = nil

	for _, t := range l.timers.Clear() {
		t.armed = false
		l.pending--
	}
}

// Closed reports whether Close has been called.
func (l *Loop) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
