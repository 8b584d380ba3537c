package tree

// Sequence ticks its children in order, failing as soon as one fails and
// succeeding once all have succeeded. An empty Sequence succeeds.
func Sequence(parent *Node, name string, setup func(n *Node)) *Node {
	return newSequential(parent, name, StatusFailure, StatusSuccess, setup)
}

// Selector ticks its children in order, succeeding as soon as one succeeds and
// failing once all have failed. An empty Selector fails.
func Selector(parent *Node, name string, setup func(n *Node)) *Node {
	return newSequential(parent, name, StatusSuccess, StatusFailure, setup)
}

// SequenceAlways ticks every child in order regardless of their outcomes. It
// succeeds only if all children succeeded.
func SequenceAlways(parent *Node, name string, setup func(n *Node)) *Node {
	return newSequential(parent, name, StatusNone, StatusSuccess, setup)
}

// Parallel ticks every unfinished child each tick, completing once all of
// them have completed: Success if all succeeded, otherwise Failure. An empty
// Parallel succeeds.
func Parallel(parent *Node, name string, setup func(n *Node)) *Node {
	return newConcurrent(parent, name, false, setup)
}

// Race ticks every unfinished child each tick and succeeds with the first
// child to succeed, gracefully resetting the others first. It fails once all
// children have failed. An empty Race fails.
func Race(parent *Node, name string, setup func(n *Node)) *Node {
	return newConcurrent(parent, name, true, setup)
}

func newComposite(parent *Node, name string) *Node {
	n := newNode(parent, KindComposite, name)
	n.childInvalid = n.startedChildInvalid
	return n
}

// sequential drives a composite with a single active child.
type sequential struct {
	n *Node
	// stopOn is the child status that settles the composite early
	stopOn Status
	// empty is the status reported when every child completed without stopOn
	empty Status

	cursor *Var[int]
	// invalidFrom is the index of the invalidated child whose later siblings
	// are being reset, or -1
	invalidFrom *Var[int]
	failed      *Var[bool]
}

func newSequential(parent *Node, name string, stopOn, empty Status, setup func(n *Node)) *Node {
	n := newComposite(parent, name)
	s := &sequential{
		n:           n,
		stopOn:      stopOn,
		empty:       empty,
		cursor:      NewVar[int](n, "cursor", nil),
		invalidFrom: NewVar(n, "invalidFrom", func() int { return -1 }),
		failed:      NewVar[bool](n, "failed", nil),
	}
	n.OnEnter(Sync(func() {
		s.cursor.Set(0)
		s.invalidFrom.Set(-1)
		s.failed.Set(false)
	}))
	n.OnBaseTickErr(s.tick)
	if setup != nil {
		setup(n)
	}
	return n
}

func (s *sequential) tick() (Status, error) {
	if s.invalidFrom.Get() >= 0 {
		return s.cascade()
	}
	children := s.n.children
	for s.cursor.Get() < len(children) {
		done, status, err := children[s.cursor.Get()].tick(true)
		if err != nil {
			return StatusRunning, err
		}
		if !done {
			return s.recheck()
		}
		if status == s.stopOn {
			return status, nil
		}
		if status == StatusFailure {
			s.failed.Set(true)
		}
		s.cursor.Set(s.cursor.Get() + 1)
	}
	if s.failed.Get() {
		return StatusFailure, nil
	}
	return s.empty, nil
}

// recheck runs the reactive pass over completed children once the active
// child has been ticked and is still running.
func (s *sequential) recheck() (Status, error) {
	if !s.n.reactive {
		return StatusRunning, nil
	}
	i := firstInvalid(s.n.children[:s.cursor.Get()])
	if i < 0 {
		return StatusRunning, nil
	}
	s.n.logger().Debug("behavior tree reactive invalidation",
		"node", s.n.name,
		"child", s.n.children[i].name,
		"index", i)
	s.invalidFrom.Set(i)
	return s.cascade()
}

// cascade resets the siblings after the invalidated child, then re-enters it.
func (s *sequential) cascade() (Status, error) {
	i := s.invalidFrom.Get()
	done, err := resetAll(s.n.children[i+1:])
	if err != nil || !done {
		return StatusRunning, err
	}
	s.cursor.Set(i)
	if s.n.children[i].BlockReEnter() {
		// settled this frame; re-entered once the frame advances
		return StatusRunning, nil
	}
	s.invalidFrom.Set(-1)
	done, status, err := s.n.children[i].tick(true)
	if err != nil || !done {
		return StatusRunning, err
	}
	if status == s.stopOn {
		return status, nil
	}
	if status == StatusFailure {
		s.failed.Set(true)
	}
	s.cursor.Set(i + 1)
	return StatusRunning, nil
}

func firstInvalid(nodes []*Node) int {
	for i, c := range nodes {
		if c.IsInvalid() {
			return i
		}
	}
	return -1
}

// concurrent drives a composite whose unfinished children all tick together.
type concurrent struct {
	n    *Node
	race bool

	// results holds the settled status of each child, StatusNone while unfinished
	results *Var[[]Status]
	winner  *Var[int]
}

func newConcurrent(parent *Node, name string, race bool, setup func(n *Node)) *Node {
	n := newComposite(parent, name)
	c := &concurrent{
		n:       n,
		race:    race,
		results: NewVar[[]Status](n, "results", nil),
		winner:  NewVar(n, "winner", func() int { return -1 }),
	}
	n.OnEnter(Sync(func() {
		c.results.Set(make([]Status, len(n.children)))
		c.winner.Set(-1)
	}))
	n.OnBaseTickErr(c.tick)
	if setup != nil {
		setup(n)
	}
	return n
}

func (c *concurrent) tick() (Status, error) {
	children := c.n.children
	results := c.results.Get()
	if len(results) != len(children) {
		// children were added after entry
		results = append(results, make([]Status, len(children)-len(results))...)
		c.results.Set(results)
	}

	if c.winner.Get() < 0 {
		for i, child := range children {
			if results[i] != StatusNone {
				continue
			}
			done, status, err := child.tick(true)
			if err != nil {
				return StatusRunning, err
			}
			if !done {
				continue
			}
			results[i] = status
			if c.race && status == StatusSuccess {
				c.winner.Set(i)
				break
			}
		}
	}

	if w := c.winner.Get(); w >= 0 {
		losers := make([]*Node, 0, len(children)-1)
		for i, child := range children {
			if i != w {
				losers = append(losers, child)
			}
		}
		done, err := resetAll(losers)
		if err != nil || !done {
			return StatusRunning, err
		}
		return StatusSuccess, nil
	}

	settled := true
	failed := false
	for _, r := range results {
		switch r {
		case StatusNone:
			settled = false
		case StatusFailure:
			failed = true
		}
	}
	if !settled {
		c.recheck(results)
		return StatusRunning, nil
	}
	if c.race {
		return StatusFailure, nil
	}
	if failed {
		return StatusFailure, nil
	}
	return StatusSuccess, nil
}

// recheck clears the result of completed children that became invalid, so
// they are re-entered on the next tick.
func (c *concurrent) recheck(results []Status) {
	if !c.n.reactive {
		return
	}
	for i, child := range c.n.children {
		if results[i] != StatusNone && child.IsInvalid() {
			c.n.logger().Debug("behavior tree reactive invalidation",
				"node", c.n.name,
				"child", child.name,
				"index", i)
			results[i] = StatusNone
		}
	}
}
