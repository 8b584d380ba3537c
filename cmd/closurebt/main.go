// Command closurebt runs the monster demo: a handful of monster agents, each
// driven by its own tree on a go-behaviortree ticker, hunting a player that
// wanders a square arena.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	bt "github.com/joeycumines/go-behaviortree"

	"github.com/joeycumines/closure-bt/internal/config"
	"github.com/joeycumines/closure-bt/internal/example/monster"
	"github.com/joeycumines/closure-bt/internal/exprcond"
	"github.com/joeycumines/closure-bt/internal/gobt"
	"github.com/joeycumines/closure-bt/internal/logging"
	"github.com/joeycumines/closure-bt/internal/tree"
)

const (
	arenaSize  = 40
	playerStep = 0.3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath   string
	agents       int
	interval     time.Duration
	ticks        int
	logLevel     string
	logFormat    string
	seed         uint64
	dumpLog      int
	configSchema bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var o options
	fs := flag.NewFlagSet("closurebt", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "config file (default $"+config.EnvConfigPath+" or ~/.closure-bt/config)")
	fs.IntVar(&o.agents, "agents", 0, "number of monsters (overrides monster.count)")
	fs.DurationVar(&o.interval, "interval", 0, "time between ticks (overrides tick.interval-ms)")
	fs.IntVar(&o.ticks, "ticks", -1, "ticks per monster before stopping, 0 for no limit (overrides tick.limit)")
	fs.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error (overrides log.level)")
	fs.StringVar(&o.logFormat, "log-format", "", "text or json (overrides log.format)")
	fs.Uint64Var(&o.seed, "seed", 1, "world random seed")
	fs.IntVar(&o.dumpLog, "dump-log", 0, "print the last N log records after the run")
	fs.BoolVar(&o.configSchema, "config-schema", false, "print the config options and exit")
	fs.Usage = func() {
		_, _ = fmt.Fprintln(stderr, "Usage: closurebt [options]")
		_, _ = fmt.Fprintln(stderr, "\nOptions:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return &o, nil
}

func loadSettings(o *options) (config.Settings, []string, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromPath(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return config.Settings{}, nil, err
	}
	s, err := config.Resolve(cfg)
	if err != nil {
		return config.Settings{}, nil, err
	}
	if o.agents > 0 {
		s.Monster.Count = o.agents
	}
	if o.interval > 0 {
		s.TickInterval = o.interval
	}
	if o.ticks >= 0 {
		s.TickLimit = o.ticks
	}
	if o.logLevel != "" {
		s.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		s.LogFormat = o.logFormat
	}
	return s, cfg.Warnings, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if o.configSchema {
		_, err := io.WriteString(stdout, config.DefaultSchema().FormatHelp())
		return err
	}

	s, warnings, err := loadSettings(o)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(s.LogLevel)
	if err != nil {
		return err
	}
	logger, err := logging.New(stderr, level, s.LogFormat)
	if err != nil {
		return err
	}
	var ring *logging.RingHandler
	if o.dumpLog > 0 {
		ring = logging.NewRingHandler(o.dumpLog, level)
		logger = slog.New(logging.Tee(logger.Handler(), ring))
	}
	for _, w := range warnings {
		logger.Warn("config warning", "warning", w)
	}
	if s.Monster.Count <= 0 {
		return fmt.Errorf("no monsters to run: count %d", s.Monster.Count)
	}

	exprcond.SetCacheSize(s.ExprCache)
	eval := exprcond.New(exprcond.WithLogger(logger))

	world := monster.NewWorld(arenaSize, o.seed)
	cfg := monster.Config{
		SightRadius:  s.Monster.SightRadius,
		AttackRadius: s.Monster.AttackRadius,
		Speed:        s.Monster.Speed,
		Cooldown:     s.Monster.Cooldown,
		Timeout:      s.Monster.Timeout,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		errCount atomic.Int64
		finished sync.WaitGroup
		agents   = make([]*monster.Agent, s.Monster.Count)
		adapters = make([]*gobt.Adapter, s.Monster.Count)
	)
	for i := range agents {
		id := i + 1
		a := monster.NewAgent(id, world, world.RandomPoint(), cfg, eval, logger,
			tree.WithPauseOnError(s.PauseOnError),
			tree.WithErrorHook(func(ne *tree.NodeError) {
				errCount.Add(1)
				logger.Debug("monster tree error", "monster", id, "node", ne.Node.Name(), "phase", ne.Phase)
			}),
		)
		agents[i] = a
		adapters[i] = gobt.NewAdapter(a.Root, limitTicks(s.TickLimit, &finished))
	}
	if s.TickLimit > 0 {
		finished.Add(len(agents))
		go func() {
			finished.Wait()
			cancel()
		}()
	}

	logger.Info("closurebt starting",
		"monsters", len(agents),
		"interval", s.TickInterval,
		"tick_limit", s.TickLimit)

	m, err := gobt.Run(ctx, gobt.RunOptions{Interval: s.TickInterval}, adapters...)
	if err != nil {
		return err
	}
	if err := m.Add(bt.NewTicker(ctx, s.TickInterval, world.Node(playerStep))); err != nil {
		m.Stop()
		return fmt.Errorf("add world ticker: %w", err)
	}

	select {
	case <-ctx.Done():
	case <-m.Done():
	}
	m.Stop()
	<-m.Done()

	_, _ = fmt.Fprintf(stdout, "player %s\n", world.Player())
	for i, a := range agents {
		adapters[i].Inspect(func(root *tree.Node) {
			snap := root.CreateSnapshot()
			_, _ = fmt.Fprintf(stdout, "%s frames=%d nodes=%d values=%d\n",
				a.Summary(), root.Frame(), len(snap.Nodes), len(snap.Values))
		})
	}

	if ring != nil {
		_, _ = fmt.Fprintln(stdout, "log:")
		for _, e := range ring.Recent(o.dumpLog) {
			_, _ = fmt.Fprintf(stdout, "  %s %-5s %s %v\n", e.Time.Format(time.TimeOnly), e.Level, e.Message, e.Attrs)
		}
	}

	// stopping on cancellation is a clean exit unless a tree failed first
	if err := m.Err(); err != nil && (errCount.Load() != 0 || ctx.Err() == nil) {
		return fmt.Errorf("%d tree errors: %w", errCount.Load(), err)
	}
	return nil
}

// limitTicks marks an agent finished, once, after limit ticks. A limit of
// zero never does.
func limitTicks(limit int, finished *sync.WaitGroup) gobt.AdapterOption {
	count := 0
	return gobt.OnTick(func(*tree.Node, tree.Status) {
		count++
		if limit > 0 && count == limit {
			finished.Done()
		}
	})
}
