package coro

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yueyoum/coro/reactor"
)

var (
	// ErrTaskNotFound is returned when a handle names a task that no longer
	// exists.
	ErrTaskNotFound = errors.New("coro: task not found")

	// ErrDeadlock is returned by Run when the reactor has nothing left to do
	// but some spawned tasks are still blocked.
	ErrDeadlock = errors.New("coro: tasks blocked forever")
)

// A Scheduler owns a set of tasks and runs them one at a time.
//
// Tasks are spawned with Spawn and placed on a ready queue. Run starts a
// dispatch task that takes ready tasks off the queue and jumps into them,
// then hands the calling goroutine over to a [reactor.Loop]. Reactor
// callbacks resume blocked tasks with Jump.
//
// A Scheduler is not safe for concurrent use. Outside of Run, it may be used
// from one goroutine; during Run, only from tasks and from callbacks run by
// its loop. Other goroutines must go through [reactor.Loop.Post].
type Scheduler struct {
	id     string
	name   string
	loop   *reactor.Loop
	tracer Tracer
	logger *zap.Logger

	main    chan struct{}
	current *Coroutine
	arena   arena
	live    map[Handle]struct{}
	ready   *Queue[Handle]
	stats   Stats

	ps    panicstack
	fatal bool

	ran    bool
	closed bool
}

// Stats holds counters of a [Scheduler].
type Stats struct {
	Spawned    int // tasks spawned with Spawn
	Dispatched int // times the dispatch task jumped into a ready task
	Destroyed  int // tasks destroyed after their body returned
	Live       int // spawned tasks neither dead nor killed
	Ready      int // tasks in the ready queue
}

// An Option configures a [Scheduler].
type Option func(s *Scheduler)

// WithLoop sets the reactor loop of a [Scheduler].
// By default a Scheduler creates its own.
func WithLoop(l *reactor.Loop) Option {
	return func(s *Scheduler) { s.loop = l }
}

// WithTracer sets a [Tracer] that observes every switch point.
func WithTracer(t Tracer) Option {
	return func(s *Scheduler) { s.tracer = t }
}

// WithLogger sets the logger of a [Scheduler]. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithName names a [Scheduler] in logs.
func WithName(name string) Option {
	return func(s *Scheduler) { s.name = name }
}

// NewScheduler creates a [Scheduler].
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		id:   uuid.NewString(),
		name: "coro",
		main: make(chan struct{}),
		live: make(map[Handle]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.loop == nil {
		s.loop = reactor.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("scheduler", s.name), zap.String("id", s.id))
	s.ready = NewQueue[Handle](s)
	return s
}

// ID returns the unique ID of s.
func (s *Scheduler) ID() string { return s.id }

// Loop returns the reactor loop of s.
func (s *Scheduler) Loop() *reactor.Loop { return s.loop }

// Logger returns the logger of s.
func (s *Scheduler) Logger() *zap.Logger { return s.logger }

// Current returns the handle of the running task, or [Main] if no task is
// running.
func (s *Scheduler) Current() Handle {
	if s.current == nil {
		return Main
	}
	return s.current.handle
}

// Name returns the name of the task named by h.
func (s *Scheduler) Name(h Handle) (string, bool) {
	if h == Main {
		return "main", true
	}
	co, ok := s.arena.get(h)
	if !ok {
		return "", false
	}
	return co.name, true
}

// State returns the state of the task named by h.
func (s *Scheduler) State(h Handle) (State, bool) {
	co, ok := s.arena.get(h)
	if !ok {
		return Dead, false
	}
	return co.state, true
}

// Stats returns the counters of s.
func (s *Scheduler) Stats() Stats {
	st := s.stats
	st.Live = len(s.live)
	st.Ready = s.ready.Len()
	return st
}

// Spawn creates a task that runs body and puts it on the ready queue.
// The body does not start before Spawn returns.
//
// If the dispatch task is waiting for work, Spawn jumps into it, so ready
// tasks may run before Spawn returns.
func (s *Scheduler) Spawn(name string, body func(co *Coroutine)) Handle {
	co := s.spawn(name, body, 0)
	s.live[co.handle] = struct{}{}
	s.stats.Spawned++
	co.state = Ready
	s.ready.Put(co.handle)
	return co.handle
}

// spawn creates a suspended task. Daemon tasks are not counted as live and
// never hold Run back.
func (s *Scheduler) spawn(name string, body func(co *Coroutine), flag uint8) *Coroutine {
	if body == nil {
		panic("coro: Spawn called with nil body")
	}
	if s.closed {
		panic("coro: Spawn called on a closed scheduler")
	}
	co := &Coroutine{
		s:      s,
		name:   name,
		state:  Suspended,
		flag:   flag,
		wake:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	co.handle = s.arena.alloc(co)
	s.trace(TraceSpawn, co, s.current)
	s.start(co, body)
	return co
}

// Kill removes the task named by h from the live set, so Run no longer
// waits for it. The task itself is left alone.
// Kill reports whether h was live.
func (s *Scheduler) Kill(h Handle) bool {
	if _, ok := s.live[h]; !ok {
		return false
	}
	delete(s.live, h)
	if co, ok := s.arena.get(h); ok {
		s.trace(TraceKill, co, nil)
	}
	return true
}

func (s *Scheduler) mustCurrent(op string) *Coroutine {
	co := s.current
	if co == nil {
		panic("coro: " + op + " called outside a task")
	}
	return co
}

// Yield gives up the turn of the running task. See [Coroutine.Yield].
func (s *Scheduler) Yield() {
	s.mustCurrent("Yield").Yield()
}

// Suspend blocks the running task until something jumps into it.
// See [Coroutine.Suspend].
func (s *Scheduler) Suspend() {
	s.mustCurrent("Suspend").Suspend()
}

// Jump transfers control into the suspended task named by h and returns once
// control comes back. It is how reactor callbacks and other tasks resume a
// blocked task.
//
// Jump returns [ErrTaskNotFound] if the task no longer exists.
// It panics if the task exists but is not suspended.
func (s *Scheduler) Jump(h Handle) error {
	co, ok := s.arena.get(h)
	if !ok {
		return fmt.Errorf("%w: %v", ErrTaskNotFound, h)
	}
	if co.state != Suspended {
		panic(fmt.Sprintf("coro: Jump into %v which is %v", h, co.state))
	}
	s.jump(co)
	return nil
}

// resume jumps into the task named by h if it is suspended.
func (s *Scheduler) resume(h Handle) bool {
	co, ok := s.arena.get(h)
	if !ok || co.state != Suspended {
		return false
	}
	s.jump(co)
	return true
}

func (s *Scheduler) jump(to *Coroutine) {
	if s.closed {
		return
	}
	from := s.current
	if from == nil {
		to.resumer = Main
	} else {
		to.resumer = from.handle
	}
	to.state = Running
	s.trace(TraceJump, to, from)
	s.transfer(from, to)
	s.settle(to)
}

// settle looks at a task that just gave control back to its jumper.
func (s *Scheduler) settle(co *Coroutine) {
	switch co.state {
	case Dead:
		if s.arena.release(co.handle) {
			s.stats.Destroyed++
			s.trace(TraceDestroy, co, nil)
		}
	case Yielding:
		co.state = Ready
		s.ready.Put(co.handle)
	}
}

func (s *Scheduler) dispatch(co *Coroutine) {
	for {
		h := s.ready.Get()
		t, ok := s.arena.get(h)
		if !ok || t.state != Ready {
			continue
		}
		s.stats.Dispatched++
		s.jump(t)
	}
}

// Sleep suspends the running task for d.
// It returns nil, or the error that woke the task early.
func (s *Scheduler) Sleep(d time.Duration) error {
	return s.StartTimer(d).Wait()
}

// Run starts the dispatch task, then runs the reactor loop on the calling
// goroutine until it is idle or ctx is done.
//
// Run returns nil if every spawned task has finished or been killed,
// an error wrapping [ErrDeadlock] if the loop went idle while some are still
// blocked, or ctx.Err() if ctx is done first.
// If a task panics, Run panics with an error holding the panic values.
//
// Run closes s before it returns. It must be called only once, and never
// from a task.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.current != nil {
		panic("coro: Run called from a task")
	}
	if s.ran {
		panic("coro: Run called twice")
	}
	s.ran = true

	defer s.Close()

	s.logger.Debug("scheduler running", zap.Int("ready", s.ready.Len()))

	s.jump(s.spawn("dispatch", s.dispatch, flagDaemon))

	if err := s.loop.Run(ctx); err != nil {
		s.logger.Debug("scheduler stopped", zap.Error(err))
		return err
	}

	if n := len(s.live); n != 0 {
		s.logger.Warn("scheduler idle with blocked tasks", zap.Int("blocked", n))
		return fmt.Errorf("%w: %d blocked", ErrDeadlock, n)
	}

	s.logger.Debug("scheduler done", zap.Int("destroyed", s.stats.Destroyed))
	return nil
}

// Close closes the reactor loop and tears down every remaining task.
// The goroutine of a torn-down task exits with runtime.Goexit; deferred
// calls in its body run but cannot switch to other tasks.
//
// Close must not be called from a task.
func (s *Scheduler) Close() {
	if s.current != nil {
		panic("coro: Close called from a task")
	}
	if s.closed {
		return
	}
	s.closed = true
	s.loop.Close()

	killed := 0
	for _, co := range s.arena.all() {
		co.flag |= flagKilled
		select {
		case co.wake <- struct{}{}:
			<-co.exited
			killed++
			s.trace(TraceKill, co, nil)
		case <-co.exited:
		}
	}

	s.arena = arena{}
	clear(s.live)
	s.ps = nil

	if killed != 0 {
		s.logger.Debug("scheduler closed", zap.Int("killed", killed))
	}
}
