package reactor

import (
	"slices"
	"sort"
)

type earlier[E any] interface {
	before(v E) bool
}

// timerqueue keeps elements sorted by the before relation.
// Elements that compare equal keep their arrival order (FIFO).
type timerqueue[E earlier[E]] struct {
	items []E
}

func (q *timerqueue[E]) Len() int {
	return len(q.items)
}

func (q *timerqueue[E]) Empty() bool {
	return len(q.items) == 0
}

func (q *timerqueue[E]) Push(v E) {
	// Insert after every element v is not strictly before.
	i := sort.Search(len(q.items), func(i int) bool {
		return v.before(q.items[i])
	})
	q.items = slices.Insert(q.items, i, v)
}

func (q *timerqueue[E]) Peek() E {
	return q.items[0]
}

func (q *timerqueue[E]) Pop() (v E) {
	v = q.items[0]
	var zero E
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return v
}

// Remove deletes the first element for which match returns true and
// reports whether one was found.
func (q *timerqueue[E]) Remove(match func(E) bool) bool {
	i := slices.IndexFunc(q.items, match)
	if i == -1 {
		return false
	}
	q.items = slices.Delete(q.items, i, i+1)
	return true
}

func (q *timerqueue[E]) Clear() []E {
	items := q.items
	q.items = nil
	return items
}
