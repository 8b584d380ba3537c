package tree

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Node is a behavior tree node: a lifecycle state machine with a base tick.
//
// Leaves, composites, decorators and yield nodes are all Nodes, differing in
// their base tick and the children they own. Nodes are not safe for
// concurrent use; a tree is advanced by one goroutine at a time.
type Node struct {
	id    uuid.UUID
	name  string
	names []string
	kind  Kind

	parent   *Node
	children []*Node
	// pending is the decorator declared under this node that is still waiting
	// for its child
	pending *Node

	status    Status
	sub       SubStatus
	reactive  bool
	active    bool
	resetting bool
	graceful  bool
	settled   bool
	doneFrame uint64

	onEnabled  []Callback
	onEnter    []Callback
	onPreTick  []Callback
	onTick     []Callback
	onSuccess  []Callback
	onFailure  []Callback
	onExit     []Callback
	onDisabled []Callback

	base    baseTick
	invalid func() bool
	// childInvalid is the structural part of IsInvalid, supplied by the node kind
	childInvalid func() bool

	vars []Variable

	phase  *phaseRun
	ctx    context.Context
	cancel context.CancelFunc

	settings *settings
}

type baseTick struct {
	sync   func() (Status, error)
	ticked func(ctx context.Context, yield Yield) (Status, error)
}

func newNode(parent *Node, kind Kind, name string) *Node {
	n := &Node{
		id:    uuid.New(),
		name:  name,
		names: []string{name},
		kind:  kind,
	}
	if parent != nil {
		parent.attach(n)
	}
	return n
}

// attach makes child a child of n, honouring a pending decorator.
func (n *Node) attach(child *Node) {
	if child.parent != nil {
		panic(fmt.Sprintf("tree: node %q already has parent %q", child.name, child.parent.name))
	}
	if p := n.pending; p != nil {
		n.pending = nil
		for len(p.children) == 1 && p.children[0].kind == KindDecorator {
			p = p.children[0]
		}
		if len(p.children) == 0 {
			p.children = append(p.children, child)
			child.parent = p
			if child.kind == KindDecorator {
				n.pending = child
			}
			return
		}
	}
	switch n.kind {
	case KindLeaf:
		panic(fmt.Sprintf("tree: leaf %q cannot have children", n.name))
	case KindDecorator:
		if len(n.children) != 0 {
			panic(fmt.Sprintf("tree: decorator %q already has child %q", n.name, n.children[0].name))
		}
	}
	n.children = append(n.children, child)
	child.parent = n
	if child.kind == KindDecorator && n.kind != KindDecorator {
		n.pending = child
	}
}

// adopt takes ownership of a runtime-produced child (yield nodes).
func (n *Node) adopt(child *Node) {
	if child.parent == n {
		return
	}
	if child.parent != nil {
		panic(fmt.Sprintf("tree: node %q already has parent %q", child.name, child.parent.name))
	}
	child.parent = n
	n.children = append(n.children, child)
}

// Reactive marks n as reactive and returns it.
func Reactive(n *Node) *Node {
	n.reactive = true
	return n
}

// ID returns the stable identity of the node.
func (n *Node) ID() uuid.UUID { return n.id }

func (n *Node) Name() string { return n.name }

// SetName renames the node, keeping the previous names in NameHistory.
func (n *Node) SetName(name string) {
	if name == n.name {
		return
	}
	n.name = name
	n.names = append(n.names, name)
}

// NameHistory returns every name the node has had, oldest first.
func (n *Node) NameHistory() []string { return slices.Clone(n.names) }

func (n *Node) Kind() Kind { return n.kind }

func (n *Node) Status() Status { return n.status }

func (n *Node) SubStatus() SubStatus { return n.sub }

// Active reports whether the node has been enabled since its last full reset.
func (n *Node) Active() bool { return n.active }

func (n *Node) IsReactive() bool { return n.reactive }

// SetReactive toggles invalidation checking of completed children.
func (n *Node) SetReactive(reactive bool) { n.reactive = reactive }

// Resetting reports whether a reset is in progress.
func (n *Node) Resetting() bool { return n.resetting }

// ResettingGracefully reports whether the reset in progress is graceful.
func (n *Node) ResettingGracefully() bool { return n.resetting && n.graceful }

// BlockReEnter reports whether the node settled during the current frame, in
// which case re-entry is refused until the next external tick.
func (n *Node) BlockReEnter() bool {
	return n.sub == SubDone && n.settled && n.doneFrame == n.Frame()
}

// Parent returns the owning node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the nodes owned by n, in order.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// Variables returns the variables declared on n, in declaration order.
func (n *Node) Variables() []Variable { return slices.Clone(n.vars) }

// Walk visits n and its descendants depth first, in construction order.
// Returning false from fn skips the children of that node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}

func (n *Node) String() string {
	return fmt.Sprintf("%s %q (%s/%s)", n.kind, n.name, n.status, n.sub)
}

// IsInvalid reports whether a completed node no longer holds: it was never
// started, its own invalidation check fires, or (for composites and most
// decorators) a started child is invalid.
func (n *Node) IsInvalid() bool {
	if n.status == StatusNone {
		return true
	}
	if n.invalid != nil && n.invalid() {
		return true
	}
	return n.childInvalid != nil && n.childInvalid()
}

// startedChildInvalid is the default structural invalidation check.
func (n *Node) startedChildInvalid() bool {
	for _, c := range n.children {
		if c.status != StatusNone && c.IsInvalid() {
			return true
		}
	}
	return false
}

func (n *Node) OnEnabled(cbs ...Callback) { n.onEnabled = append(n.onEnabled, cbs...) }

func (n *Node) OnEnter(cbs ...Callback) { n.onEnter = append(n.onEnter, cbs...) }

func (n *Node) OnSuccess(cbs ...Callback) { n.onSuccess = append(n.onSuccess, cbs...) }

func (n *Node) OnFailure(cbs ...Callback) { n.onFailure = append(n.onFailure, cbs...) }

func (n *Node) OnExit(cbs ...Callback) { n.onExit = append(n.onExit, cbs...) }

func (n *Node) OnDisabled(cbs ...Callback) { n.onDisabled = append(n.onDisabled, cbs...) }

// OnPreTick registers callbacks run before every base tick. Async callbacks
// are not allowed.
func (n *Node) OnPreTick(cbs ...Callback) {
	mustNotBeAsync("OnPreTick", cbs)
	n.onPreTick = append(n.onPreTick, cbs...)
}

// OnTick registers side-effect callbacks run after every base tick, once the
// new status has been assigned. Async callbacks are not allowed.
func (n *Node) OnTick(cbs ...Callback) {
	mustNotBeAsync("OnTick", cbs)
	n.onTick = append(n.onTick, cbs...)
}

// OnBaseTick sets the logic producing the node's status each tick.
func (n *Node) OnBaseTick(fn func() Status) {
	n.base = baseTick{sync: func() (Status, error) { return fn(), nil }}
}

// OnBaseTickErr is OnBaseTick for logic that can fail with an error.
func (n *Node) OnBaseTickErr(fn func() (Status, error)) {
	n.base = baseTick{sync: fn}
}

// OnBaseTickTicked sets tick-synchronized base logic: fn may span several
// ticks by yielding, the node reporting Running meanwhile, and its return
// value is the status of that base tick.
func (n *Node) OnBaseTickTicked(fn func(ctx context.Context, yield Yield) (Status, error)) {
	n.base = baseTick{ticked: fn}
}

// OnInvalidateCheck sets the predicate consulted by IsInvalid.
func (n *Node) OnInvalidateCheck(fn func() bool) { n.invalid = fn }

func mustNotBeAsync(hook string, cbs []Callback) {
	for _, cb := range cbs {
		if cb.shape == shapeAsync {
			panic("tree: " + hook + " does not accept async callbacks")
		}
	}
}

// context returns the node's cancellation context, creating it on first use.
func (n *Node) context() context.Context {
	if n.ctx == nil {
		n.ctx, n.cancel = context.WithCancel(context.Background())
	}
	return n.ctx
}

// cancelContext signals in-flight work; later work gets a fresh context.
func (n *Node) cancelContext() {
	if n.cancel != nil {
		n.cancel()
	}
	n.ctx, n.cancel = nil, nil
}
