// Package exprcond builds behavior tree conditions from expr-lang
// expressions, evaluated against the agent's blackboard and the variables
// in scope of the evaluating node.
//
// Expressions must produce a bool:
//
//	enemy.distance < 3 && hp > 10
//	vars.attempts >= 2
//
// Blackboard keys are top level identifiers. Variables declared on the
// node and its ancestors are available under "vars", the nearest declaration
// of a name winning. Undefined identifiers evaluate to nil.
package exprcond

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/joeycumines/closure-bt/internal/blackboard"
	"github.com/joeycumines/closure-bt/internal/tree"
)

var (
	sharedMu    sync.Mutex
	sharedCache = NewCache(DefaultCacheSize)
)

// SetCacheSize resizes the cache shared by evaluators created without
// WithCache.
func SetCacheSize(size int) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	sharedCache.Resize(size)
}

// SharedCache returns the cache used by evaluators created without WithCache.
func SharedCache() *Cache {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	return sharedCache
}

// Evaluator compiles and runs boolean expressions, caching compiled programs.
type Evaluator struct {
	cache  *Cache
	logger *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

func WithCache(c *Cache) Option {
	return func(e *Evaluator) { e.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = SharedCache()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Compile returns the program for source, compiling and caching it on a miss.
func (e *Evaluator) Compile(source string) (*vm.Program, error) {
	if source == "" {
		return nil, fmt.Errorf("exprcond: empty expression")
	}
	if p, ok := e.cache.Get(source); ok {
		return p, nil
	}
	p, err := expr.Compile(source, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("exprcond: compile %q: %w", source, err)
	}
	e.cache.Put(source, p)
	return p, nil
}

// Eval evaluates source against env.
func (e *Evaluator) Eval(source string, env map[string]any) (bool, error) {
	p, err := e.Compile(source)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(p, env)
	if err != nil {
		return false, fmt.Errorf("exprcond: evaluate %q: %w", source, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("exprcond: %q produced %T, not bool", source, out)
	}
	return b, nil
}

// EnvFunc builds the evaluation environment for the node being evaluated.
type EnvFunc func(n *tree.Node) map[string]any

// Blackboard exposes the entries of bb.
func Blackboard(bb *blackboard.Blackboard) EnvFunc {
	return func(*tree.Node) map[string]any {
		env := bb.Snapshot()
		if env == nil {
			env = make(map[string]any)
		}
		return env
	}
}

// Scoped exposes the entries of bb plus, under "vars", the variables of the
// evaluating node and its ancestors.
func Scoped(bb *blackboard.Blackboard) EnvFunc {
	base := Blackboard(bb)
	return func(n *tree.Node) map[string]any {
		env := base(n)
		env["vars"] = ScopeVars(n)
		return env
	}
}

// ScopeVars collects the variables visible from n, nearest declaration first.
func ScopeVars(n *tree.Node) map[string]any {
	vars := make(map[string]any)
	for cur := n; cur != nil; cur = cur.Parent() {
		for _, v := range cur.Variables() {
			if _, ok := vars[v.Name()]; !ok {
				vars[v.Name()] = v.Value()
			}
		}
	}
	return vars
}

// Condition creates a leaf that succeeds while source evaluates to true. An
// evaluation error fails the tick with that error. Like tree.Condition, it
// is invalid once the expression's answer differs from the last one given.
func (e *Evaluator) Condition(parent *tree.Node, source string, env EnvFunc) *tree.Node {
	return tree.Leaf(parent, source, func(n *tree.Node) {
		last := tree.NewVar[bool](n, "last", nil)
		n.OnInvalidateCheck(func() bool {
			ok, err := e.Eval(source, env(n))
			if err != nil {
				e.logger.Warn("expression invalidation check failed", "expression", source, "error", err)
				return false
			}
			return ok != last.Get()
		})
		n.OnBaseTickErr(func() (tree.Status, error) {
			ok, err := e.Eval(source, env(n))
			if err != nil {
				return tree.StatusFailure, err
			}
			last.Set(ok)
			if ok {
				return tree.StatusSuccess, nil
			}
			return tree.StatusFailure, nil
		})
	})
}

// Guard creates a tree.Guard gated on source. Evaluation errors are logged
// and close the guard.
func (e *Evaluator) Guard(parent *tree.Node, source string, env EnvFunc) *tree.Node {
	var g *tree.Node
	g = tree.Guard(parent, func() bool {
		ok, err := e.Eval(source, env(g))
		if err != nil {
			e.logger.Error("expression guard failed", "expression", source, "error", err)
			return false
		}
		return ok
	})
	g.SetName("Guard(" + source + ")")
	return g
}

// Predicate returns source as a plain predicate, for use with decorators
// such as tree.GuardLatch or tree.UntilFunc. Evaluation errors are logged and
// read as false.
func (e *Evaluator) Predicate(source string, env func() map[string]any) func() bool {
	return func() bool {
		ok, err := e.Eval(source, env())
		if err != nil {
			e.logger.Error("expression predicate failed", "expression", source, "error", err)
			return false
		}
		return ok
	}
}
