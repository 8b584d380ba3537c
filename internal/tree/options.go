package tree

import (
	"log/slog"
	"time"
)

// settings are tree-wide, held by the root node.
type settings struct {
	clock        func() time.Time
	logger       *slog.Logger
	pauseOnError bool
	onError      func(*NodeError)

	// frame counts external ticks of the root
	frame  uint64
	paused bool
}

// Option configures a tree. Options only take effect on a root node.
type Option func(*settings)

// WithClock sets the time source used by time-based nodes (Wait, Timeout,
// Cooldown, RateLimit). Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.clock = now }
}

// WithLogger sets the logger the engine reports through. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithPauseOnError pauses the tree whenever a node error surfaces, so its state
// can be inspected. A paused root refuses to tick until Resume is called.
func WithPauseOnError(pause bool) Option {
	return func(s *settings) { s.pauseOnError = pause }
}

// WithErrorHook registers fn to observe every node error as it surfaces.
func WithErrorHook(fn func(*NodeError)) Option {
	return func(s *settings) { s.onError = fn }
}

// Configure applies opts to the tree rooted at n. It panics if n has a parent.
func (n *Node) Configure(opts ...Option) *Node {
	if n.parent != nil {
		panic("tree: Configure called on a non-root node")
	}
	s := n.treeSettings()
	for _, opt := range opts {
		opt(s)
	}
	return n
}

// Paused reports whether the tree was paused by a node error.
func (n *Node) Paused() bool {
	return n.root().treeSettings().paused
}

// Resume clears the paused flag of the tree.
func (n *Node) Resume() {
	n.root().treeSettings().paused = false
}

// Frame returns the number of external ticks of the tree so far.
func (n *Node) Frame() uint64 {
	return n.root().treeSettings().frame
}

func (n *Node) root() *Node {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

func (n *Node) treeSettings() *settings {
	if n.settings == nil {
		n.settings = &settings{}
	}
	return n.settings
}

func (n *Node) now() time.Time {
	if c := n.root().treeSettings().clock; c != nil {
		return c()
	}
	return time.Now()
}

func (n *Node) logger() *slog.Logger {
	if l := n.root().treeSettings().logger; l != nil {
		return l
	}
	return slog.Default()
}

// reportError runs on the root when a NodeError is first created.
func (n *Node) reportError(ne *NodeError) {
	s := n.treeSettings()
	n.logger().Error("behavior tree node error",
		"node", ne.Node.name,
		"id", ne.Node.id.String(),
		"phase", ne.Phase.String(),
		"depth", len(ne.Chain)-1,
		"error", ne.Err)
	if s.onError != nil {
		s.onError(ne)
	}
	if s.pauseOnError {
		s.paused = true
	}
}
