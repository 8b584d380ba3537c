/*
Package tree implements a behavior tree execution engine built around a per
node lifecycle state machine.

# Lifecycle

Every node moves through the same phases, observable as SubStatus:

	None -> Enabling -> Entering -> Running -> Succeeding|Failing -> Exiting -> Done

Enabling runs once per activation and initializes the node's variables.
A settled node may be re-entered (TickReEnter with allowReEnter, Repeat,
reactive invalidation), which starts again at Entering and keeps variable
values. Resets take any phase back to None via Exiting (unless already
exited) and Disabling, and are the only path that runs OnDisabled.

# Callbacks

Lifecycle callbacks come in three shapes:

  - Sync runs inline.
  - Async runs on its own goroutine with a context that is cancelled by a
    reset; the phase waits, across ticks, until it returns.
  - Ticked runs in lockstep with the tree and may call its Yield to wait for
    the next tick, spanning as many ticks as it needs.

The tree itself is single threaded: only Async callbacks run concurrently
with it, and they must restrict themselves to concurrency safe state.

# Construction

Factories take the parent explicitly, nil creating a root:

	root := tree.Reactive(tree.Sequence(nil, "patrol", func(n *tree.Node) {
		tree.Condition(n, "awake", awake)
		tree.Timeout(n, 5*time.Second)
		tree.Action(n, "walk", walk) // child of the Timeout
	}))

A decorator created under a composite captures the next node created under
that composite as its child.

# Errors

Errors and panics from user code surface from Tick as a *NodeError carrying
the chain of nodes up to the root. A base tick error fails its node. Cancellation
errors returned after a reset cancelled the callback are not errors.
*/
package tree
