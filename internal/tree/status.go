package tree

import "fmt"

// Status is the coarse outcome of a node.
type Status uint8

const (
	// StatusNone indicates the node has not been started since its last full reset.
	StatusNone Status = iota
	// StatusRunning indicates the node has started but not settled.
	StatusRunning
	// StatusSuccess indicates the node completed successfully.
	StatusSuccess
	// StatusFailure indicates the node completed unsuccessfully.
	StatusFailure
)

// Terminal reports whether s is Success or Failure.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// SubStatus is the lifecycle phase of a node, finer grained than Status.
type SubStatus uint8

const (
	SubNone SubStatus = iota
	SubEnabling
	SubEntering
	SubRunning
	SubSucceeding
	SubFailing
	SubExiting
	SubDisabling
	SubDone
)

func (s SubStatus) String() string {
	switch s {
	case SubNone:
		return "none"
	case SubEnabling:
		return "enabling"
	case SubEntering:
		return "entering"
	case SubRunning:
		return "running"
	case SubSucceeding:
		return "succeeding"
	case SubFailing:
		return "failing"
	case SubExiting:
		return "exiting"
	case SubDisabling:
		return "disabling"
	case SubDone:
		return "done"
	default:
		return fmt.Sprintf("substatus(%d)", uint8(s))
	}
}

// abandonable reports whether in-flight work in this phase is cancelled by a
// graceful reset. Exiting and Disabling are allowed to finish.
func (s SubStatus) abandonable() bool {
	switch s {
	case SubEnabling, SubEntering, SubRunning, SubSucceeding, SubFailing:
		return true
	default:
		return false
	}
}

// Kind identifies the structural role of a node.
type Kind uint8

const (
	KindLeaf Kind = iota
	KindComposite
	KindDecorator
	KindYield
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindComposite:
		return "composite"
	case KindDecorator:
		return "decorator"
	case KindYield:
		return "yield"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}
