package tree

// NodeState is the captured state of one node.
type NodeState struct {
	Status    Status
	SubStatus SubStatus
	// Vars is the number of values the node contributed to Snapshot.Values.
	Vars int
}

// Snapshot is the captured state of a subtree, in depth-first construction
// order. It is meant for same-process save and restore only.
type Snapshot struct {
	Nodes  []NodeState
	Values []any
}

// CreateSnapshot captures the state of n and its descendants. Slice and map
// values are copied so the snapshot does not alias live variables.
func (n *Node) CreateSnapshot() *Snapshot {
	s := &Snapshot{}
	n.Walk(func(c *Node) bool {
		s.Nodes = append(s.Nodes, NodeState{Status: c.status, SubStatus: c.sub, Vars: len(c.vars)})
		for _, v := range c.vars {
			s.Values = append(s.Values, cloneValue(v.Value()))
		}
		return true
	})
	return s
}

// Load restores a snapshot taken from a tree of the same shape. It returns
// false, without changing anything, when the node count, a per-node variable
// count or a value type does not match. Nodes whose state changes lose any
// in-flight callback work.
func (n *Node) Load(s *Snapshot) bool {
	if s == nil {
		return false
	}
	var nodes []*Node
	n.Walk(func(c *Node) bool {
		nodes = append(nodes, c)
		return true
	})
	if len(nodes) != len(s.Nodes) {
		return false
	}
	total := 0
	for i, c := range nodes {
		if len(c.vars) != s.Nodes[i].Vars {
			return false
		}
		if total+len(c.vars) > len(s.Values) {
			return false
		}
		for j, v := range c.vars {
			if !v.accepts(s.Values[total+j]) {
				return false
			}
		}
		total += len(c.vars)
	}
	if total != len(s.Values) {
		return false
	}

	offset := 0
	for i, c := range nodes {
		st := s.Nodes[i]
		if c.status != st.Status || c.sub != st.SubStatus {
			c.phase.drop()
			c.phase = nil
			c.cancelContext()
			c.resetting = false
			c.graceful = false
			c.doneFrame = 0
		}
		c.status = st.Status
		c.sub = st.SubStatus
		c.active = st.SubStatus != SubNone
		c.settled = st.SubStatus == SubDone
		for _, v := range c.vars {
			// accepted above
			_ = v.SetValue(cloneValue(s.Values[offset]))
			offset++
		}
	}
	return true
}
