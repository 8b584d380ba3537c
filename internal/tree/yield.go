package tree

import "errors"

// ErrNoChild is returned by a YieldCached node whose factory produced nil.
var ErrNoChild = errors.New("tree: yield factory returned nil")

func newYield(parent *Node, name string) *Node {
	n := newNode(parent, KindYield, name)
	n.childInvalid = n.startedChildInvalid
	return n
}

// YieldCached defers building its child until it is first ticked. factory
// runs exactly once and the node it returns is reused, re-entered and reset
// like a static child from then on. factory may build recursively, e.g.
// returning another YieldCached, and should create its node without a parent.
func YieldCached(parent *Node, name string, factory func() *Node) *Node {
	n := newYield(parent, name)
	n.OnBaseTickErr(func() (Status, error) {
		if len(n.children) == 0 {
			c := factory()
			if c == nil {
				return StatusFailure, ErrNoChild
			}
			n.adopt(c)
		}
		return n.passthrough()
	})
	return n
}

// DynamicOptions configures YieldDynamic.
type DynamicOptions struct {
	// ResetOnSwitch gracefully resets the previously active child before a
	// newly picked one is ticked.
	ResetOnSwitch bool
	// SwitchConsumesTick makes a switch take effect on the next tick rather
	// than ticking the new child in the tick that picked it.
	SwitchConsumesTick bool
}

// YieldDynamic calls pick every base tick to choose the active child, which
// it then ticks. pick may return a node it returned before; the yield node
// does not cache children itself. A nil pick fails the node.
func YieldDynamic(parent *Node, name string, pick func() *Node, opts DynamicOptions) *Node {
	n := newYield(parent, name)
	current := NewVar[*Node](n, "current", nil)
	previous := NewVar[*Node](n, "previous", nil)
	n.OnBaseTickErr(func() (Status, error) {
		if p := previous.Get(); p != nil {
			done, err := resetAll([]*Node{p})
			if err != nil || !done {
				return StatusRunning, err
			}
			previous.Set(nil)
		}

		next := pick()
		if next == nil {
			return StatusFailure, nil
		}
		n.adopt(next)

		if cur := current.Get(); cur != next {
			current.Set(next)
			if cur != nil {
				n.logger().Debug("behavior tree yield switch",
					"node", n.name,
					"from", cur.name,
					"to", next.name)
				if opts.ResetOnSwitch {
					done, err := resetAll([]*Node{cur})
					if err != nil {
						return StatusRunning, err
					}
					if !done {
						previous.Set(cur)
						return StatusRunning, nil
					}
				}
				if opts.SwitchConsumesTick {
					return StatusRunning, nil
				}
			}
		}

		done, status, err := next.tick(true)
		if err != nil || !done {
			return StatusRunning, err
		}
		return status, nil
	})
	return n
}
