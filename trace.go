package coro

import (
	"fmt"

	"go.uber.org/zap"
)

// TraceKind tells which switch point a [TraceEvent] comes from.
type TraceKind uint8

const (
	TraceSpawn   TraceKind = iota // a task was created
	TraceJump                     // control jumped into Task from Peer
	TraceYield                    // Task yielded
	TraceSuspend                  // Task suspended
	TraceFinish                   // the body of Task returned; control goes to Peer
	TraceDestroy                  // Task was released
	TraceKill                     // Task was killed
	TracePanic                    // the body of Task panicked
)

var traceKindNames = [...]string{
	TraceSpawn:   "spawn",
	TraceJump:    "jump",
	TraceYield:   "yield",
	TraceSuspend: "suspend",
	TraceFinish:  "finish",
	TraceDestroy: "destroy",
	TraceKill:    "kill",
	TracePanic:   "panic",
}

func (k TraceKind) String() string {
	if int(k) < len(traceKindNames) {
		return traceKindNames[k]
	}
	return fmt.Sprintf("TraceKind(%d)", uint8(k))
}

// A TraceEvent describes one switch point.
type TraceEvent struct {
	Kind     TraceKind
	Task     Handle
	Name     string
	Peer     Handle
	PeerName string
}

// A Tracer observes the switch points of a [Scheduler].
// Trace is called on the goroutine holding control and must not call back
// into the scheduler.
type Tracer interface {
	Trace(ev TraceEvent)
}

// TracerFunc adapts a function to a [Tracer].
type TracerFunc func(ev TraceEvent)

func (f TracerFunc) Trace(ev TraceEvent) { f(ev) }

type zapTracer struct {
	logger *zap.Logger
}

// NewZapTracer returns a [Tracer] that logs every event at debug level.
func NewZapTracer(logger *zap.Logger) Tracer {
	return zapTracer{logger}
}

func (t zapTracer) Trace(ev TraceEvent) {
	t.logger.Debug(ev.Kind.String(),
		zap.Stringer("task", ev.Task),
		zap.String("name", ev.Name),
		zap.Stringer("peer", ev.Peer),
		zap.String("peer_name", ev.PeerName),
	)
}

func (s *Scheduler) trace(kind TraceKind, co, peer *Coroutine) {
	if s.tracer == nil {
		return
	}
	ev := TraceEvent{Kind: kind, Task: co.handle, Name: co.name, Peer: Main, PeerName: "main"}
	if peer != nil {
		ev.Peer, ev.PeerName = peer.handle, peer.name
	}
	s.tracer.Trace(ev)
}
