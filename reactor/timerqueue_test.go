package reactor

import (
	"testing"
	"time"
)

func TestTimerQueue(t *testing.T) {
	base := time.Now()
	at := func(ms int) *Timer {
		return &Timer{when: base.Add(time.Duration(ms) * time.Millisecond)}
	}

	t.Run("Overall", func(t *testing.T) {
		var q timerqueue[*Timer]

		for _, ms := range []int{5, 1, 4, 2, 3} {
			q.Push(at(ms))
		}

		for _, ms := range []int{1, 2} {
			if u := q.Pop(); !u.when.Equal(base.Add(time.Duration(ms) * time.Millisecond)) {
				t.FailNow()
			}
		}

		q.Push(at(0))

		if u := q.Pop(); !u.when.Equal(base) {
			t.FailNow()
		}

		if q.Len() != 3 {
			t.FailNow()
		}
	})
	t.Run("FIFO", func(t *testing.T) {
		var q timerqueue[*Timer]

		u, v, w := at(1), at(1), at(1)

		q.Push(u)
		q.Push(v)
		q.Push(w)

		if q.Pop() != u || q.Pop() != v || q.Pop() != w {
			t.FailNow()
		}

		if !q.Empty() {
			t.FailNow()
		}
	})
	t.Run("Remove", func(t *testing.T) {
		var q timerqueue[*Timer]

		u, v, w := at(1), at(2), at(3)

		q.Push(u)
		q.Push(v)
		q.Push(w)

		if !q.Remove(func(x *Timer) bool { return x == v }) {
			t.FailNow()
		}

		if q.Remove(func(x *Timer) bool { return x == v }) {
			t.FailNow()
		}

		if q.Pop() != u || q.Pop() != w {
			t.FailNow()
		}
	})
}
