package tree

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotDecorator is returned by Decorate when the receiver is not a decorator.
var ErrNotDecorator = errors.New("tree: node is not a decorator")

func newDecorator(parent *Node, name string) *Node {
	n := newNode(parent, KindDecorator, name)
	n.childInvalid = n.startedChildInvalid
	return n
}

// Decorate attaches an existing root node as the child of the decorator n.
func (n *Node) Decorate(child *Node) error {
	if n.kind != KindDecorator {
		return fmt.Errorf("%w: %s", ErrNotDecorator, n)
	}
	if len(n.children) != 0 {
		return fmt.Errorf("tree: decorator %q already has child %q", n.name, n.children[0].name)
	}
	if child.parent != nil {
		return fmt.Errorf("tree: node %q already has parent %q", child.name, child.parent.name)
	}
	n.children = append(n.children, child)
	child.parent = n
	return nil
}

// child returns the decorated node.
func (n *Node) child() (*Node, error) {
	if len(n.children) == 0 {
		return nil, ErrMissingChild
	}
	return n.children[0], nil
}

// passthrough ticks the child and reports its status, or Running until it
// settles.
func (n *Node) passthrough() (Status, error) {
	done, status, err := n.tickChild()
	if err != nil || !done {
		return StatusRunning, err
	}
	return status, nil
}

func (n *Node) tickChild() (bool, Status, error) {
	c, err := n.child()
	if err != nil {
		return false, StatusNone, err
	}
	return c.tick(true)
}

// mapped returns a decorator that transforms the settled status of its child.
func mapped(parent *Node, name string, fn func(Status) Status) *Node {
	n := newDecorator(parent, name)
	n.OnBaseTickErr(func() (Status, error) {
		status, err := n.passthrough()
		if err != nil || !status.Terminal() {
			return status, err
		}
		return fn(status), nil
	})
	return n
}

// Invert swaps Success and Failure of its child.
func Invert(parent *Node) *Node {
	return mapped(parent, "Invert", func(s Status) Status {
		if s == StatusSuccess {
			return StatusFailure
		}
		return StatusSuccess
	})
}

// AlwaysSucceed runs its child to completion and then succeeds.
func AlwaysSucceed(parent *Node) *Node {
	return mapped(parent, "AlwaysSucceed", func(Status) Status { return StatusSuccess })
}

// AlwaysFail runs its child to completion and then fails.
func AlwaysFail(parent *Node) *Node {
	return mapped(parent, "AlwaysFail", func(Status) Status { return StatusFailure })
}

// closer tracks a decorator that is failing and gracefully resetting its
// child on the way out.
type closer struct {
	n       *Node
	closing *Var[bool]
}

func newCloser(n *Node) closer {
	c := closer{n: n, closing: NewVar[bool](n, "closing", nil)}
	n.OnEnter(Sync(func() { c.closing.Set(false) }))
	return c
}

// close starts or continues the reset of the child, reporting Failure once done.
func (c closer) close() (Status, error) {
	c.closing.Set(true)
	done, err := resetAll(c.n.children)
	if err != nil || !done {
		return StatusRunning, err
	}
	return StatusFailure, nil
}

// Guard ticks its child only while pred holds. When it stops holding, the
// child is gracefully reset and the guard fails. A guard whose predicate
// changed since it was last evaluated is invalid.
func Guard(parent *Node, pred func() bool) *Node {
	n := newDecorator(parent, "Guard")
	c := newCloser(n)
	last := NewVar[bool](n, "last", nil)
	n.OnInvalidateCheck(func() bool { return pred() != last.Get() })
	n.OnBaseTickErr(func() (Status, error) {
		if c.closing.Get() {
			return c.close()
		}
		ok := pred()
		last.Set(ok)
		if !ok {
			return c.close()
		}
		return n.passthrough()
	})
	return n
}

// GuardLatch checks pred only before its child starts. Once the predicate
// held, the child runs to completion regardless of later changes.
func GuardLatch(parent *Node, pred func() bool) *Node {
	n := newDecorator(parent, "GuardLatch")
	latched := NewVar[bool](n, "latched", nil)
	last := NewVar[bool](n, "last", nil)
	n.OnEnter(Sync(func() { latched.Set(false) }))
	n.OnInvalidateCheck(func() bool {
		return n.sub == SubDone && pred() != last.Get()
	})
	n.OnBaseTickErr(func() (Status, error) {
		if !latched.Get() {
			ok := pred()
			last.Set(ok)
			if !ok {
				return StatusFailure, nil
			}
			latched.Set(true)
		}
		return n.passthrough()
	})
	return n
}

// repeater re-enters its child after each completion until stop reports true.
func repeater(parent *Node, name string, stop func(count int, status Status) bool) *Node {
	n := newDecorator(parent, name)
	count := NewVar[int](n, "count", nil)
	n.OnEnter(Sync(func() { count.Set(0) }))
	n.OnBaseTickErr(func() (Status, error) {
		if stop(count.Get(), StatusNone) {
			return StatusSuccess, nil
		}
		done, status, err := n.tickChild()
		if err != nil || !done {
			return StatusRunning, err
		}
		count.Set(count.Get() + 1)
		if stop(count.Get(), status) {
			return StatusSuccess, nil
		}
		// the child is re-entered on the next tick
		return StatusRunning, nil
	})
	return n
}

// Repeat re-enters its child forever.
func Repeat(parent *Node) *Node {
	return repeater(parent, "Repeat", func(int, Status) bool { return false })
}

// RepeatCount runs its child times times, then succeeds. A count of zero or
// less succeeds without ticking the child.
func RepeatCount(parent *Node, times int) *Node {
	return repeater(parent, fmt.Sprintf("Repeat(%d)", times), func(count int, _ Status) bool {
		return count >= times
	})
}

// Until repeats its child until it settles with status, then succeeds.
func Until(parent *Node, status Status) *Node {
	return repeater(parent, "Until("+status.String()+")", func(_ int, s Status) bool {
		return s == status
	})
}

// UntilFunc repeats its child until pred holds after a completion, then
// succeeds.
func UntilFunc(parent *Node, pred func() bool) *Node {
	return repeater(parent, "Until", func(_ int, s Status) bool {
		return s != StatusNone && pred()
	})
}

// Timeout fails, resetting its child, if the child has not settled within d
// of the decorator being entered.
func Timeout(parent *Node, d time.Duration) *Node {
	n := newDecorator(parent, "Timeout("+d.String()+")")
	c := newCloser(n)
	start := NewVar[time.Time](n, "start", nil)
	n.OnEnter(Sync(func() { start.Set(n.now()) }))
	n.OnBaseTickErr(func() (Status, error) {
		if c.closing.Get() || n.now().Sub(start.Get()) >= d {
			return c.close()
		}
		return n.passthrough()
	})
	return n
}

// TimeoutTicks fails, resetting its child, if the child has not settled
// within ticks base ticks.
func TimeoutTicks(parent *Node, ticks int) *Node {
	n := newDecorator(parent, fmt.Sprintf("Timeout(%d ticks)", ticks))
	c := newCloser(n)
	count := NewVar[int](n, "ticks", nil)
	n.OnEnter(Sync(func() { count.Set(0) }))
	n.OnBaseTickErr(func() (Status, error) {
		if c.closing.Get() {
			return c.close()
		}
		count.Set(count.Get() + 1)
		if count.Get() > ticks {
			return c.close()
		}
		return n.passthrough()
	})
	return n
}

// Cooldown fails without ticking its child until d has elapsed since the
// child last settled. The cooldown survives re-entry but not a reset.
func Cooldown(parent *Node, d time.Duration) *Node {
	n := newDecorator(parent, "Cooldown("+d.String()+")")
	last := NewVar[time.Time](n, "lastDone", nil)
	n.OnBaseTickErr(func() (Status, error) {
		c, err := n.child()
		if err != nil {
			return StatusFailure, err
		}
		if (c.sub == SubNone || c.sub == SubDone) && !last.Get().IsZero() && n.now().Sub(last.Get()) < d {
			return StatusFailure, nil
		}
		done, status, err := c.tick(true)
		if err != nil || !done {
			return StatusRunning, err
		}
		last.Set(n.now())
		return status, nil
	})
	return n
}

// Latched isolates its child from reactive invalidation: it is invalid only
// when it has not been started.
func Latched(parent *Node) *Node {
	n := newDecorator(parent, "Latched")
	n.childInvalid = nil
	n.OnBaseTickErr(n.passthrough)
	return n
}

// ValueChanged passes its child through, and is invalid once get reports a
// value different from the one observed when the decorator was last entered.
func ValueChanged[T comparable](parent *Node, get func() T) *Node {
	n := newDecorator(parent, "ValueChanged")
	seen := NewVar[T](n, "seen", nil)
	n.OnEnter(Sync(func() { seen.Set(get()) }))
	n.OnInvalidateCheck(func() bool { return get() != seen.Get() })
	n.OnBaseTickErr(n.passthrough)
	return n
}

// RateLimit ticks its child at most at limit per second with the given burst,
// measured on the tree clock, reporting Running while throttled. The limiter
// is rebuilt whenever the decorator is enabled. Its bucket lives in a variable,
// so loading a snapshot rewinds the throttling along with the rest of the tree.
func RateLimit(parent *Node, limit rate.Limit, burst int) *Node {
	n := newDecorator(parent, fmt.Sprintf("RateLimit(%g/s)", float64(limit)))
	bucket := NewVar[tokenBucket](n, "bucket", nil)
	var (
		live   *rate.Limiter
		synced tokenBucket
	)
	n.OnBaseTickErr(func() (Status, error) {
		now := n.now()
		if b := bucket.Get(); live == nil || b != synced {
			live = b.limiter(limit, burst)
		}
		allowed := live.AllowN(now, 1)
		synced = tokenBucket{tokens: live.TokensAt(now), at: now, valid: true}
		bucket.Set(synced)
		if !allowed {
			return StatusRunning, nil
		}
		return n.passthrough()
	})
	return n
}

// tokenBucket is the state of a rate.Limiter at a point in time.
type tokenBucket struct {
	tokens float64
	at     time.Time
	valid  bool
}

// limiter builds a limiter holding b's tokens at b's time. The zero bucket
// builds a full one.
func (b tokenBucket) limiter(limit rate.Limit, burst int) *rate.Limiter {
	l := rate.NewLimiter(limit, burst)
	switch {
	case !b.valid || limit == rate.Inf:
	case limit > 0:
		// empty the bucket early enough that it refills to b.tokens by b.at
		refill := time.Duration(b.tokens / float64(limit) * float64(time.Second))
		l.AllowN(b.at.Add(-refill), burst)
	default:
		l.AllowN(b.at, burst-int(b.tokens))
	}
	return l
}
