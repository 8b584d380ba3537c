package monster

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	bt "github.com/joeycumines/go-behaviortree"
)

// Vec is a point on the world plane.
type Vec struct {
	X, Y float64
}

func (v Vec) Dist(o Vec) float64 {
	return math.Hypot(o.X-v.X, o.Y-v.Y)
}

// Toward moves v at most step along the line to target, stopping on it.
func (v Vec) Toward(target Vec, step float64) Vec {
	d := v.Dist(target)
	if d <= step || d == 0 {
		return target
	}
	f := step / d
	return Vec{X: v.X + (target.X-v.X)*f, Y: v.Y + (target.Y-v.Y)*f}
}

func (v Vec) String() string {
	return fmt.Sprintf("(%.2f,%.2f)", v.X, v.Y)
}

// World is a square arena of side Size with a single wandering player.
// It is safe for concurrent use by agents ticking on separate goroutines.
type World struct {
	mu     sync.Mutex
	size   float64
	player Vec
	rng    *rand.Rand
}

// NewWorld creates a world of side size, seeded for reproducible runs, with
// the player at its center.
func NewWorld(size float64, seed uint64) *World {
	return &World{
		size:   size,
		player: Vec{X: size / 2, Y: size / 2},
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (w *World) Size() float64 { return w.size }

func (w *World) Player() Vec {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.player
}

// SetPlayer places the player, clamped to the arena.
func (w *World) SetPlayer(p Vec) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.player = w.clamp(p)
}

// MovePlayer takes one random step of length step.
func (w *World) MovePlayer(step float64) Vec {
	w.mu.Lock()
	defer w.mu.Unlock()
	angle := w.rng.Float64() * 2 * math.Pi
	w.player = w.clamp(Vec{
		X: w.player.X + math.Cos(angle)*step,
		Y: w.player.Y + math.Sin(angle)*step,
	})
	return w.player
}

// RandomPoint returns a uniformly distributed point in the arena.
func (w *World) RandomPoint() Vec {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Vec{X: w.rng.Float64() * w.size, Y: w.rng.Float64() * w.size}
}

func (w *World) clamp(p Vec) Vec {
	return Vec{X: min(max(p.X, 0), w.size), Y: min(max(p.Y, 0), w.size)}
}

// Node returns a go-behaviortree node that moves the player by step every
// tick. It never settles, so a ticker keeps the world running until stopped.
func (w *World) Node(step float64) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		w.MovePlayer(step)
		return bt.Running, nil
	})
}
