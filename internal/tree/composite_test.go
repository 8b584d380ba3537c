package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposite_ShortCircuit(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		build   func(parent *Node, name string, setup func(*Node)) *Node
		results [3]Status
		want    Status
		ticked  []string
	}{
		{"sequence", Sequence, [3]Status{StatusSuccess, StatusFailure, StatusSuccess}, StatusFailure, []string{"a", "b"}},
		{"selector", Selector, [3]Status{StatusFailure, StatusSuccess, StatusSuccess}, StatusSuccess, []string{"a", "b"}},
		{"sequence always", SequenceAlways, [3]Status{StatusSuccess, StatusFailure, StatusSuccess}, StatusFailure, []string{"a", "b", "c"}},
		{"sequence all succeed", Sequence, [3]Status{StatusSuccess, StatusSuccess, StatusSuccess}, StatusSuccess, []string{"a", "b", "c"}},
		{"selector all fail", Selector, [3]Status{StatusFailure, StatusFailure, StatusFailure}, StatusFailure, []string{"a", "b", "c"}},
		{"sequence always all succeed", SequenceAlways, [3]Status{StatusSuccess, StatusSuccess, StatusSuccess}, StatusSuccess, []string{"a", "b", "c"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var r recorder
			root := tc.build(nil, "root", func(n *Node) {
				for i, name := range []string{"a", "b", "c"} {
					countdown(n, name, 1, tc.results[i], &r)
				}
			})
			s, err := root.Tick()
			require.NoError(t, err)
			require.Equal(t, tc.want, s)

			var ticked []string
			for _, name := range []string{"a", "b", "c"} {
				if r.count(name+":tick") != 0 {
					ticked = append(ticked, name)
				}
			}
			require.Equal(t, tc.ticked, ticked)
		})
	}
}

func TestComposite_Empty(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name  string
		build func(parent *Node, name string, setup func(*Node)) *Node
		want  Status
	}{
		{"sequence", Sequence, StatusSuccess},
		{"sequence always", SequenceAlways, StatusSuccess},
		{"parallel", Parallel, StatusSuccess},
		{"selector", Selector, StatusFailure},
		{"race", Race, StatusFailure},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s, err := tc.build(nil, tc.name, nil).Tick()
			require.NoError(t, err)
			require.Equal(t, tc.want, s)
		})
	}
}

func TestSequence_RunningChildHoldsCursor(t *testing.T) {
	t.Parallel()

	var r recorder
	root := Sequence(nil, "root", func(n *Node) {
		countdown(n, "a", 1, StatusSuccess, &r)
		countdown(n, "b", 3, StatusSuccess, &r)
	})
	require.Equal(t, []Status{StatusRunning, StatusRunning, StatusSuccess}, tickN(root, 5))
	require.Equal(t, 1, r.count("a:tick"))
	require.Equal(t, 3, r.count("b:tick"))
}

func TestParallel_WaitsForSlowest(t *testing.T) {
	t.Parallel()

	var r recorder
	root := Parallel(nil, "root", func(n *Node) {
		countdown(n, "fast", 2, StatusSuccess, &r)
		countdown(n, "slow", 3, StatusSuccess, &r)
	})
	require.Equal(t, []Status{StatusRunning, StatusRunning, StatusSuccess}, tickN(root, 5))
	require.Equal(t, 2, r.count("fast:tick"), "no ticks after completion")
	require.Equal(t, 3, r.count("slow:tick"))
}

func TestParallel_FailsIfAnyFailed(t *testing.T) {
	t.Parallel()

	var r recorder
	root := Parallel(nil, "root", func(n *Node) {
		countdown(n, "a", 1, StatusFailure, &r)
		countdown(n, "b", 2, StatusSuccess, &r)
	})
	require.Equal(t, []Status{StatusRunning, StatusFailure}, tickN(root, 5))
	require.Equal(t, 2, r.count("b:tick"), "no short circuit")
}

func TestRace_FinishesOnFirstSuccess(t *testing.T) {
	t.Parallel()

	var r recorder
	root := Race(nil, "root", func(n *Node) {
		countdown(n, "slow", 5, StatusSuccess, &r)
		countdown(n, "fast", 2, StatusSuccess, &r)
	})
	require.Equal(t, []Status{StatusRunning, StatusSuccess}, tickN(root, 10))
	assert.Equal(t, 2, r.count("slow:tick"))
	assert.Equal(t, 2, r.count("fast:tick"))
	assert.Equal(t, 1, r.count("slow:exit"), "loser reset")
	assert.Equal(t, 1, r.count("slow:disabled"))
	assert.Zero(t, r.count("fast:disabled"), "winner kept")
}

func TestRace_FailsWhenAllFail(t *testing.T) {
	t.Parallel()

	var r recorder
	root := Race(nil, "root", func(n *Node) {
		countdown(n, "a", 1, StatusFailure, &r)
		countdown(n, "b", 3, StatusFailure, &r)
	})
	require.Equal(t, []Status{StatusRunning, StatusRunning, StatusFailure}, tickN(root, 10))
}

func TestComposite_VariableScoping(t *testing.T) {
	t.Parallel()

	var shared *Var[int]
	var seen []int
	var a, b *Var[int]
	root := Sequence(nil, "root", func(n *Node) {
		shared = NewVar(n, "shared", func() int { return 1 })
		Leaf(n, "a", func(n *Node) {
			a = NewVar(n, "local", func() int { return 100 })
			n.OnBaseTick(func() Status {
				a.Set(a.Get() + 1)
				shared.Set(shared.Get() * 10)
				return StatusSuccess
			})
		})
		Leaf(n, "b", func(n *Node) {
			b = NewVar(n, "local", func() int { return 100 })
			n.OnBaseTick(func() Status {
				seen = append(seen, b.Get(), shared.Get())
				return StatusSuccess
			})
		})
	})

	s, err := root.Tick()
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, s)
	require.Equal(t, 101, a.Get())
	require.Equal(t, []int{100, 10}, seen, "sibling local is isolated, ancestor variable is shared")
}

func TestComposite_ReEnterRestartsChildren(t *testing.T) {
	t.Parallel()

	var r recorder
	root := Sequence(nil, "root", func(n *Node) {
		countdown(n, "a", 1, StatusSuccess, &r)
		countdown(n, "b", 1, StatusSuccess, &r)
	})
	_, err := root.Tick()
	require.NoError(t, err)

	done, s, err := root.TickReEnter(true)
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, StatusSuccess, s)
	require.Equal(t, 2, r.count("a:enter"))
	require.Equal(t, 2, r.count("b:enter"))
	require.Equal(t, 1, r.count("a:enabled"))
}

func TestAttach_SingleParent(t *testing.T) {
	t.Parallel()

	var child *Node
	Sequence(nil, "a", func(n *Node) { child = Succeed(n) })
	other := Sequence(nil, "b", nil)
	require.Panics(t, func() { other.attach(child) })
	require.Panics(t, func() { Succeed(Succeed(nil)) }, "leaves cannot have children")
}
