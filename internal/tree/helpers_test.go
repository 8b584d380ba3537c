package tree

import (
	"fmt"
	"slices"
	"time"
)

// recorder collects lifecycle events from the tree goroutine.
type recorder struct {
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) count(event string) int {
	c := 0
	for _, e := range r.events {
		if e == event {
			c++
		}
	}
	return c
}

func (r *recorder) filter(prefix string) []string {
	var out []string
	for _, e := range r.events {
		if len(e) > len(prefix) && e[:len(prefix)] == prefix {
			out = append(out, e[len(prefix):])
		}
	}
	return out
}

func (r *recorder) reset() { r.events = r.events[:0] }

// hooks records every sync lifecycle callback of n as "name:event".
func (r *recorder) hooks(n *Node) *Node {
	name := n.Name()
	n.OnEnabled(Sync(func() { r.add("%s:enabled", name) }))
	n.OnEnter(Sync(func() { r.add("%s:enter", name) }))
	n.OnSuccess(Sync(func() { r.add("%s:success", name) }))
	n.OnFailure(Sync(func() { r.add("%s:failure", name) }))
	n.OnExit(Sync(func() { r.add("%s:exit", name) }))
	n.OnDisabled(Sync(func() { r.add("%s:disabled", name) }))
	return n
}

// countdown is a leaf that runs for ticks base ticks and then settles with
// result, recording each base tick.
func countdown(parent *Node, name string, ticks int, result Status, r *recorder) *Node {
	return Leaf(parent, name, func(n *Node) {
		r.hooks(n)
		count := NewVar[int](n, "count", nil)
		n.OnEnter(Sync(func() { count.Set(0) }))
		n.OnBaseTick(func() Status {
			count.Set(count.Get() + 1)
			r.add("%s:tick", name)
			if count.Get() >= ticks {
				return result
			}
			return StatusRunning
		})
	})
}

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// tickN ticks n up to limit times, stopping once it settles, and returns the
// statuses reported.
func tickN(n *Node, limit int) []Status {
	var out []Status
	for range limit {
		s, err := n.Tick()
		if err != nil {
			panic(err)
		}
		out = append(out, s)
		if s.Terminal() {
			break
		}
	}
	return out
}

func names(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name())
	}
	return slices.Clip(out)
}
