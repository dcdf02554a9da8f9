package coro

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync/atomic"
)

type panicstack []panicitem

func (ps panicstack) repanic() {
	if len(ps) != 0 {
		panic(&panicvalue{items: ps})
	}
}

// try runs f and records a panic raised by it.
// A runtime.Goexit is not recorded; the caller finds out on its own.
func (ps *panicstack) try(f func()) (ok bool) {
	defer func() {
		if !ok {
			if v := recover(); v != nil {
				ps.push(v, debug.Stack())
			}
		}
	}()
	f()
	return true
}

func (ps *panicstack) push(v any, stack []byte) {
	*ps = append(*ps, panicitem{v, stack})
}

type panicitem struct {
	value any
	stack []byte
}

// A panicvalue is what Run panics with when a task panics.
type panicvalue struct {
	items []panicitem
	errs  atomic.Pointer[[]error]
}

func (pv *panicvalue) Error() string {
	var b strings.Builder
	b.WriteString("task panicked:")
	for i, p := range pv.items {
		fmt.Fprintf(&b, "\n(%d/%d) panic: %v", i+1, len(pv.items), p.value)
		if p.stack != nil {
			b.WriteString("\n\n")
			b.Write(p.stack)
		}
	}
	return b.String()
}

func (pv *panicvalue) Unwrap() []error {
	if p := pv.errs.Load(); p != nil {
		return *p
	}
	var errs []error
	for _, p := range pv.items {
		if err, ok := p.value.(error); ok {
			errs = append(errs, err)
		}
	}
	pv.errs.Store(&errs)
	return errs
}
