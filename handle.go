package coro

import "fmt"

// A Handle names a task owned by a [Scheduler].
//
// A Handle packs a slot index and the generation of that slot.
// Once a task is destroyed its slot may be reused, but the generation
// changes, so a stale Handle never resolves to a different task.
type Handle uint64

// Main names the main/reactor context, the one that calls [Scheduler.Run].
const Main Handle = 0

func makeHandle(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index))
}

func (h Handle) index() uint32 { return uint32(h) }
func (h Handle) gen() uint32   { return uint32(h >> 32) }

func (h Handle) String() string {
	if h == Main {
		return "main"
	}
	return fmt.Sprintf("task(%d#%d)", h.index(), h.gen())
}

type slot struct {
	co  *Coroutine
	gen uint32
}

// arena owns every task of a scheduler.
// Slot 0 is never allocated so that the zero Handle stays free for Main.
type arena struct {
	slots []slot
	free  []uint32
	live  int
}

func (a *arena) alloc(co *Coroutine) Handle {
	var i uint32
	if n := len(a.free); n != 0 {
		i = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		if len(a.slots) == 0 {
			a.slots = append(a.slots, slot{})
		}
		i = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}
	sl := &a.slots[i]
	sl.gen++
	sl.co = co
	a.live++
	return makeHandle(i, sl.gen)
}

func (a *arena) get(h Handle) (*Coroutine, bool) {
	i := h.index()
	if i == 0 || int(i) >= len(a.slots) {
		return nil, false
	}
	sl := &a.slots[i]
	if sl.co == nil || sl.gen != h.gen() {
		return nil, false
	}
	return sl.co, true
}

// release frees the slot of h. It reports false if h is stale.
func (a *arena) release(h Handle) bool {
	if _, ok := a.get(h); !ok {
		return false
	}
	a.slots[h.index()].co = nil
	a.free = append(a.free, h.index())
	a.live--
	return true
}

func (a *arena) len() int {
	return a.live
}

// all returns every task in the arena in slot order.
func (a *arena) all() []*Coroutine {
	var s []*Coroutine
	for _, sl := range a.slots {
		if sl.co != nil {
			s = append(s, sl.co)
		}
	}
	return s
}
