package tree

import (
	"context"
	"errors"
	"fmt"
)

// Tick advances the node by one external step. It reports StatusRunning until
// the node has settled into Success or Failure.
func (n *Node) Tick() (Status, error) {
	done, status, err := n.TickReEnter(false)
	if !done {
		return StatusRunning, err
	}
	return status, err
}

// TickReEnter advances the node by one external step. When allowReEnter is set
// and the node has already settled, it is entered again (skipping enable)
// unless it settled during the current frame.
//
// done is true only once the node has settled. status is the node's status
// field, which stays frozen while a reset is in progress.
func (n *Node) TickReEnter(allowReEnter bool) (done bool, status Status, err error) {
	s := n.root().treeSettings()
	if s.paused {
		return false, n.status, ErrPaused
	}
	s.frame++
	return n.tick(allowReEnter)
}

// TickThenReset ticks once and, if that settled the node, resets it
// immediately so the next tick starts from scratch.
func (n *Node) TickThenReset() (Status, error) {
	status, err := n.Tick()
	if err != nil || n.sub != SubDone {
		return status, err
	}
	if _, err := n.ResetImmediately(); err != nil {
		return status, err
	}
	return status, nil
}

func (n *Node) tick(allowReEnter bool) (bool, Status, error) {
	if n.resetting {
		_, err := n.advanceReset(true)
		return false, n.status, err
	}
	switch n.sub {
	case SubDone:
		if !allowReEnter || n.BlockReEnter() {
			return true, n.status, nil
		}
		n.sub = SubEntering
		n.status = StatusRunning
		n.settled = false
		n.phase = nil
	case SubNone:
		if err := n.enable(); err != nil {
			return false, n.status, n.wrapError(SubEnabling, err)
		}
	}
	return n.run()
}

// enable moves a dormant node into Enabling, initializing its variables.
func (n *Node) enable() error {
	n.active = true
	n.status = StatusRunning
	n.sub = SubEnabling
	n.settled = false
	n.phase = nil
	return protect(func() error {
		for _, v := range n.vars {
			v.initialize()
		}
		return nil
	})
}

// run drives the phase chain as far as it goes without suspending, executing
// at most one base tick.
func (n *Node) run() (bool, Status, error) {
	ticked := false
	for {
		switch n.sub {
		case SubEnabling, SubEntering, SubSucceeding, SubFailing, SubExiting:
			done, err := n.phaseFor(n.sub).advance(n.context, true)
			if err != nil {
				return false, n.status, n.wrapError(n.sub, err)
			}
			if !done {
				return false, n.status, nil
			}
			n.phase = nil
			n.sub = nextPhase(n.sub)
			if n.sub == SubDone {
				n.settled = true
				n.doneFrame = n.Frame()
				return true, n.status, nil
			}

		case SubRunning:
			switch n.status {
			case StatusSuccess:
				n.sub = SubSucceeding
				continue
			case StatusFailure:
				n.sub = SubFailing
				continue
			}
			if ticked {
				return false, n.status, nil
			}
			ticked = true
			done, err := n.phaseFor(SubRunning).advance(n.context, true)
			if err != nil {
				n.phase = nil
				return false, n.status, n.wrapError(SubRunning, err)
			}
			if !done {
				return false, n.status, nil
			}
			n.phase = nil
			if !n.status.Terminal() {
				return false, n.status, nil
			}

		default:
			return n.sub == SubDone, n.status, nil
		}
	}
}

func nextPhase(sub SubStatus) SubStatus {
	switch sub {
	case SubEnabling:
		return SubEntering
	case SubEntering:
		return SubRunning
	case SubSucceeding, SubFailing:
		return SubExiting
	case SubExiting:
		return SubDone
	default:
		return sub
	}
}

// phaseFor returns the in-progress run of sub, starting it if needed.
func (n *Node) phaseFor(sub SubStatus) *phaseRun {
	if n.phase == nil || n.phase.sub != sub {
		n.phase.drop()
		n.phase = newPhase(sub, n.callbacksFor(sub))
	}
	return n.phase
}

func (n *Node) callbacksFor(sub SubStatus) []Callback {
	switch sub {
	case SubEnabling:
		return n.onEnabled
	case SubEntering:
		return n.onEnter
	case SubRunning:
		cbs := make([]Callback, 0, len(n.onPreTick)+1+len(n.onTick))
		cbs = append(cbs, n.onPreTick...)
		cbs = append(cbs, n.baseCallback())
		return append(cbs, n.onTick...)
	case SubSucceeding:
		return n.onSuccess
	case SubFailing:
		return n.onFailure
	case SubExiting:
		return n.onExit
	case SubDisabling:
		return n.onDisabled
	default:
		return nil
	}
}

// baseCallback adapts the base tick into the running phase, assigning its
// result before any OnTick callback runs. A panicking base tick fails the node.
func (n *Node) baseCallback() Callback {
	if fn := n.base.ticked; fn != nil {
		return Ticked(func(ctx context.Context, yield Yield) error {
			var status Status
			err := protect(func() (err error) {
				status, err = fn(ctx, yield)
				return err
			})
			return n.assign(ctx, status, err)
		})
	}
	fn := n.base.sync
	if fn == nil {
		fn = func() (Status, error) { return StatusSuccess, nil }
	}
	return Callback{shape: shapeSync, sync: func() error {
		var status Status
		err := protect(func() (err error) {
			status, err = fn()
			return err
		})
		return n.assign(nil, status, err)
	}}
}

func (n *Node) assign(ctx context.Context, status Status, err error) error {
	if ctx != nil && ctx.Err() != nil {
		// reset teardown; the status is frozen
		return err
	}
	if err != nil {
		var ne *NodeError
		if !errors.As(err, &ne) {
			n.status = StatusFailure
		}
		return err
	}
	if status == StatusNone {
		n.status = StatusFailure
		return fmt.Errorf("tree: base tick returned %s", status)
	}
	n.status = status
	return nil
}
