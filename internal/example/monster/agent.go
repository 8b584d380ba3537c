// Package monster is a small game AI built on the tree engine: monsters that
// attack a nearby player, chase one they can see, and wander otherwise.
package monster

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joeycumines/closure-bt/internal/blackboard"
	"github.com/joeycumines/closure-bt/internal/exprcond"
	"github.com/joeycumines/closure-bt/internal/tree"
)

// Blackboard keys.
const (
	KeyPos      = "pos"
	KeyDist     = "dist"
	KeySight    = "sight"
	KeyAttack   = "attackRange"
	KeyAttacks  = "attacks"
	KeyWaypoint = "waypoint"
	KeyAction   = "action"
)

// VisibleExpr decides whether a monster can see the player.
const VisibleExpr = "dist <= sight"

// Config tunes a monster.
type Config struct {
	SightRadius  float64
	AttackRadius float64
	// Speed is the distance moved per tick.
	Speed    float64
	Cooldown time.Duration
	Timeout  time.Duration
}

// DefaultConfig matches the defaults of the [monster] config section.
func DefaultConfig() Config {
	return Config{
		SightRadius:  8,
		AttackRadius: 1.5,
		Speed:        0.5,
		Cooldown:     500 * time.Millisecond,
		Timeout:      3 * time.Second,
	}
}

// Agent is one monster: its blackboard and the tree that drives it.
//
// The tree is
//
//	Reactive(Selector)
//	├── Sequence: InAttackRange, Cooldown(Strike)
//	├── Sequence: dist <= sight, Timeout(Chase)
//	└── Wander
//
// so an attack opportunity pre-empts a chase or a wander in progress.
type Agent struct {
	ID    int
	Board *blackboard.Blackboard
	Root  *tree.Node

	world  *World
	cfg    Config
	logger *slog.Logger
}

// NewAgent creates a monster at start. opts configure its tree; the logger
// given by tree.WithLogger, if any, is also used for game events.
func NewAgent(id int, w *World, start Vec, cfg Config, eval *exprcond.Evaluator, logger *slog.Logger, opts ...tree.Option) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{
		ID:     id,
		Board:  new(blackboard.Blackboard),
		world:  w,
		cfg:    cfg,
		logger: logger.With("monster", id),
	}
	a.Board.Set(KeyPos, start)
	a.Board.Set(KeySight, cfg.SightRadius)
	a.Board.Set(KeyAttack, cfg.AttackRadius)
	a.Board.Set(KeyAttacks, 0)

	a.Root = tree.Reactive(tree.Selector(nil, fmt.Sprintf("monster-%d", id), func(n *tree.Node) {
		n.OnPreTick(tree.Sync(a.sense))

		tree.Sequence(n, "Attack", func(n *tree.Node) {
			tree.Condition(n, "InAttackRange", a.inAttackRange)
			tree.Action(tree.Cooldown(n, cfg.Cooldown), "Strike", a.strike)
		})

		tree.Sequence(n, "Hunt", func(n *tree.Node) {
			eval.Condition(n, VisibleExpr, exprcond.Blackboard(a.Board))
			tree.Leaf(tree.Timeout(n, cfg.Timeout), "Chase", func(n *tree.Node) {
				n.OnEnter(tree.Sync(func() { a.Board.Set(KeyAction, "chase") }))
				n.OnBaseTick(a.chase)
			})
		})

		tree.Leaf(n, "Wander", func(n *tree.Node) {
			n.OnEnter(tree.Async(a.pickWaypoint))
			n.OnBaseTick(a.wander)
			n.OnExit(tree.Sync(func() { a.Board.Delete(KeyWaypoint) }))
		})
	}))
	a.Root.Configure(append([]tree.Option{tree.WithLogger(logger)}, opts...)...)
	return a
}

func (a *Agent) Pos() Vec {
	return blackboard.GetOr(a.Board, KeyPos, Vec{})
}

func (a *Agent) Attacks() int {
	return blackboard.GetOr(a.Board, KeyAttacks, 0)
}

func (a *Agent) Action() string {
	return blackboard.GetOr(a.Board, KeyAction, "")
}

func (a *Agent) dist() float64 {
	return blackboard.GetOr(a.Board, KeyDist, 0.0)
}

// sense refreshes the distance to the player.
func (a *Agent) sense() {
	a.Board.Set(KeyDist, a.Pos().Dist(a.world.Player()))
}

func (a *Agent) inAttackRange() bool {
	return a.dist() <= a.cfg.AttackRadius
}

func (a *Agent) strike() tree.Status {
	a.Board.Set(KeyAction, "attack")
	a.Board.Update(KeyAttacks, func(v any) any {
		n, _ := v.(int)
		return n + 1
	})
	a.logger.Info("monster attack", "pos", a.Pos().String(), "attacks", a.Attacks())
	return tree.StatusSuccess
}

func (a *Agent) chase() tree.Status {
	if a.dist() <= a.cfg.AttackRadius {
		return tree.StatusSuccess
	}
	a.Board.Set(KeyPos, a.Pos().Toward(a.world.Player(), a.cfg.Speed))
	return tree.StatusRunning
}

// pickWaypoint runs off the tick goroutine; the result lands on the
// blackboard before the base tick first runs.
func (a *Agent) pickWaypoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := a.world.RandomPoint()
	a.Board.Set(KeyWaypoint, p)
	a.Board.Set(KeyAction, "wander")
	a.logger.Debug("monster waypoint", "waypoint", p.String())
	return nil
}

func (a *Agent) wander() tree.Status {
	target, ok := blackboard.Lookup[Vec](a.Board, KeyWaypoint)
	if !ok {
		return tree.StatusFailure
	}
	pos := a.Pos().Toward(target, a.cfg.Speed)
	a.Board.Set(KeyPos, pos)
	if pos == target {
		return tree.StatusSuccess
	}
	return tree.StatusRunning
}

// Summary is a one-line description of the agent's state.
func (a *Agent) Summary() string {
	return fmt.Sprintf("%s pos=%s action=%s attacks=%d status=%s/%s",
		a.Root.Name(), a.Pos(), a.Action(), a.Attacks(), a.Root.Status(), a.Root.SubStatus())
}
