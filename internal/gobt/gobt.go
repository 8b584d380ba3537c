// Package gobt connects the tree engine to github.com/joeycumines/go-behaviortree.
//
// An engine tree can be exposed as a bt.Node, and so driven by bt.Ticker and
// bt.Manager, and a bt.Node can be embedded in an engine tree as a leaf.
package gobt

import (
	"context"
	"fmt"
	"sync"
	"time"

	bt "github.com/joeycumines/go-behaviortree"

	"github.com/joeycumines/closure-bt/internal/tree"
)

// ToStatus maps an engine status onto go-behaviortree. StatusNone, which a
// tick never reports, maps to bt.Running.
func ToStatus(s tree.Status) bt.Status {
	switch s {
	case tree.StatusSuccess:
		return bt.Success
	case tree.StatusFailure:
		return bt.Failure
	default:
		return bt.Running
	}
}

// FromStatus maps a go-behaviortree status onto the engine.
func FromStatus(s bt.Status) (tree.Status, error) {
	switch s {
	case bt.Running:
		return tree.StatusRunning, nil
	case bt.Success:
		return tree.StatusSuccess, nil
	case bt.Failure:
		return tree.StatusFailure, nil
	default:
		return tree.StatusNone, fmt.Errorf("gobt: invalid status %d", s)
	}
}

// Adapter drives an engine root from go-behaviortree. Every bt tick is one
// external tick of the engine tree, re-entering it after it settles, so the
// tree restarts each time it completes the way a go-behaviortree node would.
//
// Adapter serializes ticks with Inspect, so the tree can be examined while a
// ticker drives it.
type Adapter struct {
	mu     sync.Mutex
	root   *tree.Node
	onTick func(root *tree.Node, status tree.Status)
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// OnTick registers fn to run, under the adapter lock, after every tick.
func OnTick(fn func(root *tree.Node, status tree.Status)) AdapterOption {
	return func(a *Adapter) { a.onTick = fn }
}

func NewAdapter(root *tree.Node, opts ...AdapterOption) *Adapter {
	if root == nil {
		panic("gobt: nil root")
	}
	a := &Adapter{root: root}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tick implements bt.Tick. A settled tree reports its final status; a
// resetting or suspended tree reports bt.Running.
func (a *Adapter) Tick([]bt.Node) (bt.Status, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	done, status, err := a.root.TickReEnter(true)
	if !done {
		status = tree.StatusRunning
	}
	if a.onTick != nil {
		a.onTick(a.root, status)
	}
	if err != nil {
		return bt.Failure, err
	}
	return ToStatus(status), nil
}

// Node returns the adapter as a go-behaviortree node.
func (a *Adapter) Node() bt.Node {
	return bt.New(a.Tick)
}

// Inspect runs fn with exclusive access to the tree.
func (a *Adapter) Inspect(fn func(root *tree.Node)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.root)
}

// Leaf embeds a go-behaviortree node in an engine tree. The node is ticked
// once per base tick and its status used as is.
func Leaf(parent *tree.Node, name string, node bt.Node) *tree.Node {
	return tree.Leaf(parent, name, func(n *tree.Node) {
		n.OnBaseTickErr(func() (tree.Status, error) {
			s, err := node.Tick()
			if err != nil {
				return tree.StatusFailure, err
			}
			return FromStatus(s)
		})
	})
}

// RunOptions configures Run.
type RunOptions struct {
	// Interval between ticks of each tree.
	Interval time.Duration
	// StopOnFailure stops a tree's ticker at its first failure.
	StopOnFailure bool
}

// Run starts one ticker per adapter, all registered with a single manager.
// The manager stops when ctx is cancelled, when any ticker fails with an
// error, or when Stop is called, and reports the first error from Err.
func Run(ctx context.Context, opts RunOptions, adapters ...*Adapter) (bt.Manager, error) {
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("gobt: non-positive interval %s", opts.Interval)
	}
	m := bt.NewManager()
	for _, a := range adapters {
		var t bt.Ticker
		if opts.StopOnFailure {
			t = bt.NewTickerStopOnFailure(ctx, opts.Interval, a.Node())
		} else {
			t = bt.NewTicker(ctx, opts.Interval, a.Node())
		}
		if err := m.Add(t); err != nil {
			m.Stop()
			return nil, fmt.Errorf("gobt: add ticker: %w", err)
		}
	}
	return m, nil
}
