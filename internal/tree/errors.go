package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrPaused is returned when ticking a root that was paused by a node error.
	ErrPaused = errors.New("tree: paused after node error")
	// ErrMissingChild is returned by decorators and yield nodes that have no child to tick.
	ErrMissingChild = errors.New("tree: node has no child")
)

// maxFrameValues bounds the variable values captured per node in a NodeError.
const maxFrameValues = 4

// Frame describes one node of a NodeError chain.
type Frame struct {
	Name   string
	ID     uuid.UUID
	Status Status
	Sub    SubStatus
	Values []any
}

func (f Frame) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q (%s/%s)", f.Name, f.Status, f.Sub)
	if len(f.Values) != 0 {
		b.WriteString(" vars=[")
		for i, v := range f.Values {
			if i != 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%v", v)
		}
		b.WriteByte(']')
	}
	return b.String()
}

// NodeError is an error raised by user code inside a node, annotated with the
// chain of nodes from the failing node up to its root.
type NodeError struct {
	// Node is the node whose callback or base tick failed.
	Node *Node
	// Phase is the lifecycle phase the failure happened in.
	Phase SubStatus
	// Chain starts at Node and ends at the root.
	Chain []Frame
	Err   error
}

func (e *NodeError) Error() string {
	var b strings.Builder
	name := ""
	if len(e.Chain) != 0 {
		name = e.Chain[0].Name
	}
	fmt.Fprintf(&b, "node %q failed while %s: %v", name, e.Phase, e.Err)
	for _, f := range e.Chain {
		b.WriteString("\n\tat ")
		b.WriteString(f.String())
	}
	return b.String()
}

func (e *NodeError) Unwrap() error { return e.Err }

// wrapError annotates err with the node chain, unless it already is a NodeError.
func (n *Node) wrapError(phase SubStatus, err error) error {
	if err == nil {
		return nil
	}
	var ne *NodeError
	if errors.As(err, &ne) {
		return err
	}
	ne = &NodeError{Node: n, Phase: phase, Err: err}
	for cur := n; cur != nil; cur = cur.parent {
		f := Frame{Name: cur.name, ID: cur.id, Status: cur.status, Sub: cur.sub}
		for i, v := range cur.vars {
			if i == maxFrameValues {
				break
			}
			f.Values = append(f.Values, v.Value())
		}
		ne.Chain = append(ne.Chain, f)
	}
	n.root().reportError(ne)
	return ne
}
