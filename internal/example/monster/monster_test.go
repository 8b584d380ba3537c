package monster

import (
	"context"
	"log/slog"
	"testing"
	"time"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/closure-bt/internal/exprcond"
	"github.com/joeycumines/closure-bt/internal/logging"
	"github.com/joeycumines/closure-bt/internal/testutil"
	"github.com/joeycumines/closure-bt/internal/tree"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type harness struct {
	agent *Agent
	world *World
	clock *clock
	logs  *logging.RingHandler
}

func newHarness(t *testing.T, player, start Vec, cfg Config) *harness {
	t.Helper()
	h := &harness{
		world: NewWorld(100, 1),
		clock: &clock{t: time.Unix(1000, 0)},
		logs:  logging.NewRingHandler(100, slog.LevelDebug),
	}
	h.world.SetPlayer(player)
	h.agent = NewAgent(1, h.world, start, cfg, exprcond.New(), slog.New(h.logs), tree.WithClock(h.clock.now))
	return h
}

// tick advances the clock by step, then ticks the agent the way an adapter
// does.
func (h *harness) tick(t *testing.T, step time.Duration) (bool, tree.Status) {
	t.Helper()
	h.clock.advance(step)
	done, status, err := h.agent.Root.TickReEnter(true)
	require.NoError(t, err)
	return done, status
}

func TestAgent_AttacksWithCooldown(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Vec{50, 50}, Vec{51, 50}, DefaultConfig())

	done, status := h.tick(t, 0)
	require.True(t, done)
	require.Equal(t, tree.StatusSuccess, status)
	require.Equal(t, 1, h.agent.Attacks())
	require.Equal(t, "attack", h.agent.Action())

	for range 4 {
		done, status = h.tick(t, 100*time.Millisecond)
		require.True(t, done)
		require.Equal(t, tree.StatusSuccess, status, "chase succeeds in range")
	}
	require.Equal(t, 1, h.agent.Attacks(), "cooling down")
	require.Equal(t, "chase", h.agent.Action())

	h.tick(t, 100*time.Millisecond)
	require.Equal(t, 2, h.agent.Attacks())

	found := h.logs.Search("monster attack")
	require.Len(t, found, 2)
	assert.Equal(t, "2", found[1].Attrs["attacks"])
	assert.Equal(t, "1", found[1].Attrs["monster"])
}

func TestAgent_ChaseClosesInThenAttacks(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Speed = 1
	h := newHarness(t, Vec{50, 50}, Vec{55, 50}, cfg)

	_, err := testutil.TickUntil(func() (bool, error) {
		h.tick(t, 10*time.Millisecond)
		if h.agent.Attacks() == 0 {
			require.Equal(t, "chase", h.agent.Action())
		}
		return h.agent.Attacks() > 0, nil
	}, 10)
	require.NoError(t, err)
	require.Equal(t, Vec{51, 50}, h.agent.Pos())
	require.Equal(t, tree.StatusSuccess, h.agent.Root.Status())
}

func TestAgent_AttackPreemptsWander(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Speed = 0
	h := newHarness(t, Vec{95, 95}, Vec{5, 5}, cfg)

	err := testutil.Poll(context.Background(), func() bool {
		h.tick(t, 10*time.Millisecond)
		return h.agent.Action() == "wander"
	}, 5*time.Second, time.Millisecond)
	require.NoError(t, err)
	require.True(t, h.agent.Board.Has(KeyWaypoint))

	h.world.SetPlayer(Vec{5, 6})
	err = testutil.Poll(context.Background(), func() bool {
		h.tick(t, 10*time.Millisecond)
		return h.agent.Attacks() == 1
	}, 5*time.Second, time.Millisecond)
	require.NoError(t, err)
	require.False(t, h.agent.Board.Has(KeyWaypoint), "wander exited when pre-empted")
	require.NotEmpty(t, h.logs.Search("behavior tree reactive invalidation"))
}

func TestAgent_ChaseTimesOutIntoWander(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Speed = 0
	cfg.Timeout = 300 * time.Millisecond
	h := newHarness(t, Vec{50, 50}, Vec{45, 50}, cfg)

	for range 3 {
		done, _ := h.tick(t, 100*time.Millisecond)
		require.False(t, done)
		require.Equal(t, "chase", h.agent.Action())
	}

	err := testutil.Poll(context.Background(), func() bool {
		h.tick(t, 100*time.Millisecond)
		return h.agent.Action() == "wander"
	}, 5*time.Second, time.Millisecond)
	require.NoError(t, err)
	require.True(t, h.agent.Board.Has(KeyWaypoint))
}

func TestAgent_WandersWhenPlayerUnseen(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Speed = 200
	h := newHarness(t, Vec{95, 95}, Vec{5, 5}, cfg)

	done, _ := h.tick(t, 0)
	require.False(t, done, "waypoint is picked asynchronously")

	err := testutil.Poll(context.Background(), func() bool {
		done, _ := h.tick(t, 10*time.Millisecond)
		return done
	}, 5*time.Second, time.Millisecond)
	require.NoError(t, err)

	require.Equal(t, tree.StatusSuccess, h.agent.Root.Status())
	require.Equal(t, "wander", h.agent.Action())
	require.False(t, h.agent.Board.Has(KeyWaypoint), "exit clears the waypoint")
	require.Zero(t, h.agent.Attacks())
	require.NotEmpty(t, h.logs.Search("monster waypoint"))
}

func TestAgent_Summary(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Vec{50, 50}, Vec{50, 50}, DefaultConfig())
	h.tick(t, 0)
	require.Equal(t, "monster-1 pos=(50.00,50.00) action=attack attacks=1 status=success/done", h.agent.Summary())
}

func TestWorld(t *testing.T) {
	t.Parallel()

	a, b := NewWorld(10, 7), NewWorld(10, 7)
	require.Equal(t, Vec{5, 5}, a.Player())
	for range 50 {
		p := a.MovePlayer(3)
		require.Equal(t, p, b.MovePlayer(3), "seeded worlds agree")
		require.True(t, p.X >= 0 && p.X <= 10 && p.Y >= 0 && p.Y <= 10, "player left the arena: %s", p)
	}

	a.SetPlayer(Vec{-4, 20})
	require.Equal(t, Vec{0, 10}, a.Player())

	a.SetPlayer(Vec{5, 5})
	s, err := a.Node(1).Tick()
	require.NoError(t, err)
	require.Equal(t, bt.Running, s)
	require.InDelta(t, 1.0, a.Player().Dist(Vec{5, 5}), 1e-9)
}

func TestVec(t *testing.T) {
	t.Parallel()

	require.Equal(t, 5.0, Vec{0, 0}.Dist(Vec{3, 4}))
	require.Equal(t, Vec{3, 4}, Vec{0, 0}.Toward(Vec{3, 4}, 10))
	require.InDelta(t, 1.8, Vec{0, 0}.Toward(Vec{3, 4}, 3).X, 1e-9)
	require.Equal(t, Vec{1, 1}, Vec{1, 1}.Toward(Vec{1, 1}, 0))
}
