package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYieldCached_BuildsOnce(t *testing.T) {
	t.Parallel()

	builds := 0
	var r recorder
	y := YieldCached(nil, "cached", func() *Node {
		builds++
		return countdown(nil, "child", 1, StatusSuccess, &r)
	})
	require.Empty(t, y.Children(), "built lazily")

	s, err := y.Tick()
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, s)
	require.Len(t, y.Children(), 1)
	child := y.Children()[0]
	require.Same(t, y, child.Parent())

	done, err := y.ResetImmediately()
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, 1, r.count("child:disabled"))

	_, err = y.Tick()
	require.NoError(t, err)
	require.Equal(t, 1, builds)
	require.Same(t, child, y.Children()[0])
	require.Equal(t, 2, r.count("child:enabled"))
}

// countdownTree builds a recursive chain of yield nodes that bottoms out in a
// leaf, the way a dependency resolver would.
func countdownTree(depth int, visited *[]int) *Node {
	if depth == 0 {
		return Action(nil, "leaf", func() Status {
			*visited = append(*visited, 0)
			return StatusSuccess
		})
	}
	return Sequence(nil, "level", func(n *Node) {
		Action(n, "visit", func() Status {
			*visited = append(*visited, depth)
			return StatusSuccess
		})
		YieldCached(n, "next", func() *Node { return countdownTree(depth-1, visited) })
	})
}

func TestYieldCached_Recursive(t *testing.T) {
	t.Parallel()

	var visited []int
	root := countdownTree(3, &visited)
	s, err := root.Tick()
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, s)
	require.Equal(t, []int{3, 2, 1, 0}, visited)
}

func TestYieldCached_NilFactory(t *testing.T) {
	t.Parallel()

	y := YieldCached(nil, "nil", func() *Node { return nil })
	_, err := y.Tick()
	require.ErrorIs(t, err, ErrNoChild)
	require.Equal(t, StatusFailure, y.Status())
}

func TestYieldDynamic(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name         string
		opts         DynamicOptions
		aDisabled    int
		bTicksSwitch int
	}{
		{"keep previous", DynamicOptions{}, 0, 1},
		{"reset on switch", DynamicOptions{ResetOnSwitch: true}, 1, 1},
		{"switch consumes tick", DynamicOptions{SwitchConsumesTick: true}, 0, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var r recorder
			a := countdown(nil, "a", 100, StatusSuccess, &r)
			b := countdown(nil, "b", 100, StatusSuccess, &r)
			pick := a
			y := YieldDynamic(nil, "dynamic", func() *Node { return pick }, tc.opts)

			for range 2 {
				_, err := y.Tick()
				require.NoError(t, err)
			}
			require.Equal(t, 2, r.count("a:tick"))

			pick = b
			s, err := y.Tick()
			require.NoError(t, err)
			require.Equal(t, StatusRunning, s)
			assert.Equal(t, 2, r.count("a:tick"))
			assert.Equal(t, tc.aDisabled, r.count("a:disabled"))
			assert.Equal(t, tc.bTicksSwitch, r.count("b:tick"))
			assert.Equal(t, []*Node{a, b}, y.Children())

			_, err = y.Tick()
			require.NoError(t, err)
			assert.Equal(t, tc.bTicksSwitch+1, r.count("b:tick"))

			done, err := y.ResetImmediately()
			require.NoError(t, err)
			require.True(t, done)
			assert.Equal(t, 1, r.count("a:disabled"), "every started child is reset with the yield node")
			assert.Equal(t, 1, r.count("b:disabled"))
		})
	}
}

func TestYieldDynamic_NilPickFails(t *testing.T) {
	t.Parallel()

	y := YieldDynamic(nil, "dynamic", func() *Node { return nil }, DynamicOptions{})
	s, err := y.Tick()
	require.NoError(t, err)
	require.Equal(t, StatusFailure, s)
}
