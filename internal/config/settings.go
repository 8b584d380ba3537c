package config

import (
	"errors"
	"fmt"
	"time"
)

// Settings is the typed view of a Config after env overrides and defaults.
type Settings struct {
	LogLevel     string
	LogFormat    string
	TickInterval time.Duration
	TickLimit    int
	PauseOnError bool
	ExprCache    int
	Monster      MonsterSettings
}

// MonsterSettings configures the monster demo.
type MonsterSettings struct {
	Count        int
	SightRadius  float64
	AttackRadius float64
	Speed        float64
	Cooldown     time.Duration
	Timeout      time.Duration
}

// Resolve builds Settings for c using the default schema.
func Resolve(c *Config) (Settings, error) {
	s := DefaultSchema()
	var (
		out  Settings
		errs []error
	)
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	var err error

	out.LogLevel = s.Resolve(c, "", "log.level")
	out.LogFormat = s.Resolve(c, "", "log.format")
	out.TickInterval, err = s.ResolveMillis(c, "", "tick.interval-ms")
	collect(err)
	out.TickLimit, err = s.ResolveInt(c, "", "tick.limit")
	collect(err)
	out.PauseOnError, err = s.ResolveBool(c, "", "tree.pause-on-error")
	collect(err)
	out.ExprCache, err = s.ResolveInt(c, "", "expr.cache-size")
	collect(err)

	m := &out.Monster
	m.Count, err = s.ResolveInt(c, SectionMonster, "count")
	collect(err)
	m.SightRadius, err = s.ResolveFloat(c, SectionMonster, "sight-radius")
	collect(err)
	m.AttackRadius, err = s.ResolveFloat(c, SectionMonster, "attack-radius")
	collect(err)
	m.Speed, err = s.ResolveFloat(c, SectionMonster, "speed")
	collect(err)
	m.Cooldown, err = s.ResolveMillis(c, SectionMonster, "cooldown-ms")
	collect(err)
	m.Timeout, err = s.ResolveMillis(c, SectionMonster, "timeout-ms")
	collect(err)

	if len(errs) != 0 {
		return Settings{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	if out.TickInterval <= 0 {
		return Settings{}, fmt.Errorf("config: tick.interval-ms must be positive, got %s", out.TickInterval)
	}
	return out, nil
}
