package tree

import (
	"fmt"
	"time"
)

// Leaf creates a node without children. setup registers its callbacks and
// base tick; a leaf without a base tick succeeds on its first tick.
func Leaf(parent *Node, name string, setup func(n *Node)) *Node {
	n := newNode(parent, KindLeaf, name)
	if setup != nil {
		setup(n)
	}
	return n
}

// Action is a leaf whose base tick is fn.
func Action(parent *Node, name string, fn func() Status) *Node {
	return Leaf(parent, name, func(n *Node) { n.OnBaseTick(fn) })
}

// Condition is a leaf that succeeds when pred holds and fails otherwise. It is
// invalid once pred disagrees with the answer it last gave.
func Condition(parent *Node, name string, pred func() bool) *Node {
	return Leaf(parent, name, func(n *Node) {
		last := NewVar[bool](n, "last", nil)
		n.OnInvalidateCheck(func() bool { return pred() != last.Get() })
		n.OnBaseTick(func() Status {
			ok := pred()
			last.Set(ok)
			if ok {
				return StatusSuccess
			}
			return StatusFailure
		})
	})
}

// Wait succeeds once d has elapsed on the tree clock since it was entered.
func Wait(parent *Node, d time.Duration) *Node {
	return Leaf(parent, "Wait("+d.String()+")", func(n *Node) {
		start := NewVar[time.Time](n, "start", nil)
		n.OnEnter(Sync(func() { start.Set(n.now()) }))
		n.OnBaseTick(func() Status {
			if n.now().Sub(start.Get()) >= d {
				return StatusSuccess
			}
			return StatusRunning
		})
	})
}

// WaitTicks succeeds on its ticks-th base tick after being entered.
func WaitTicks(parent *Node, ticks int) *Node {
	return Leaf(parent, fmt.Sprintf("Wait(%d ticks)", ticks), func(n *Node) {
		count := NewVar[int](n, "ticks", nil)
		n.OnEnter(Sync(func() { count.Set(0) }))
		n.OnBaseTick(func() Status {
			count.Set(count.Get() + 1)
			if count.Get() >= ticks {
				return StatusSuccess
			}
			return StatusRunning
		})
	})
}

func Succeed(parent *Node) *Node {
	return Action(parent, "Succeed", func() Status { return StatusSuccess })
}

func Fail(parent *Node) *Node {
	return Action(parent, "Fail", func() Status { return StatusFailure })
}
