package tree

// ResetImmediately tears the node and its subtree down to None/None,
// cancelling all in-flight suspendable work. Cancelled callbacks still have to
// return, so the reset may take several calls (or ticks); it reports true once
// complete. Every call cancels whatever is in flight at that moment.
func (n *Node) ResetImmediately() (bool, error) {
	n.requestReset(false)
	return n.advanceReset(true)
}

// ResetGracefully tears the node and its subtree down to None/None, letting
// in-flight exit and disable work finish. Work in earlier phases is cancelled.
// invokeAnyTick decides whether suspended tick-synchronized callbacks are
// resumed by this call. It reports true once complete.
func (n *Node) ResetGracefully(invokeAnyTick bool) (bool, error) {
	n.requestReset(true)
	return n.advanceReset(invokeAnyTick)
}

func (n *Node) requestReset(graceful bool) {
	if !n.resetting {
		if n.sub == SubNone {
			return
		}
		n.resetting = true
		n.graceful = graceful
		n.logger().Debug("behavior tree node reset",
			"node", n.name,
			"status", n.status.String(),
			"sub", n.sub.String(),
			"graceful", graceful)
	} else if !graceful {
		n.graceful = false
	}
	if !n.graceful || n.sub.abandonable() {
		n.cancelContext()
	}
	for _, c := range n.children {
		c.requestReset(n.graceful)
	}
}

// advanceReset moves an in-progress reset forward as far as it can go.
func (n *Node) advanceReset(resume bool) (bool, error) {
	if !n.resetting {
		return n.sub == SubNone, nil
	}
	for {
		switch n.sub {
		case SubNone:
			n.finishReset()
			return true, nil

		case SubEnabling, SubEntering, SubRunning, SubSucceeding, SubFailing:
			if n.phase != nil {
				done, err := n.phase.unwind()
				if err != nil {
					return false, n.wrapError(n.sub, err)
				}
				if !done {
					return false, nil
				}
				n.phase = nil
			}
			if done, err := n.resetChildren(resume); err != nil || !done {
				return false, err
			}
			n.sub = SubExiting

		case SubExiting:
			if done, err := n.resetChildren(resume); err != nil || !done {
				return false, err
			}
			done, err := n.phaseFor(SubExiting).advance(n.context, resume)
			if err != nil {
				return false, n.wrapError(SubExiting, err)
			}
			if !done {
				return false, nil
			}
			n.phase = nil
			n.sub = SubDisabling

		case SubDone:
			if done, err := n.resetChildren(resume); err != nil || !done {
				return false, err
			}
			n.sub = SubDisabling

		case SubDisabling:
			if done, err := n.resetChildren(resume); err != nil || !done {
				return false, err
			}
			done, err := n.phaseFor(SubDisabling).advance(n.context, resume)
			if err != nil {
				return false, n.wrapError(SubDisabling, err)
			}
			if !done {
				return false, nil
			}
			n.sub = SubNone
		}
	}
}

// resetChildren propagates the node's reset mode to every started child.
func (n *Node) resetChildren(resume bool) (bool, error) {
	all := true
	for _, c := range n.children {
		if c.sub == SubNone && !c.resetting {
			continue
		}
		c.requestReset(n.graceful)
		done, err := c.advanceReset(resume)
		if err != nil {
			return false, err
		}
		all = all && done
	}
	return all, nil
}

func (n *Node) finishReset() {
	n.phase.drop()
	n.phase = nil
	n.cancelContext()
	n.status = StatusNone
	n.sub = SubNone
	n.active = false
	n.resetting = false
	n.graceful = false
	n.settled = false
}

// resetAll gracefully resets nodes, resuming suspended work, and reports true
// once all are back at None/None.
func resetAll(nodes []*Node) (bool, error) {
	all := true
	for _, c := range nodes {
		if c.sub == SubNone && !c.resetting {
			continue
		}
		done, err := c.ResetGracefully(true)
		if err != nil {
			return false, err
		}
		all = all && done
	}
	return all, nil
}
