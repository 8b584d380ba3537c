package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OptionType represents the expected type of a configuration option value.
type OptionType string

const (
	// TypeString is a plain string value (the default for all config values).
	TypeString OptionType = "string"
	// TypeBool is a boolean value (true/false/yes/no/1/0/on/off).
	TypeBool OptionType = "bool"
	// TypeInt is an integer value.
	TypeInt OptionType = "int"
	// TypeFloat is a floating point value.
	TypeFloat OptionType = "float"
	// TypeDuration is a Go time.Duration value (e.g. "30s", "5m", "1h").
	TypeDuration OptionType = "duration"
)

// ConfigOption declares a single configuration option with its type, default,
// documentation, and environment variable override.
type ConfigOption struct {
	// Key is the option name as it appears in the config file (kebab-case).
	Key string
	// Type is the expected value type for validation.
	Type OptionType
	// Default is the default value as a string, or "" for no default.
	Default string
	// Description is a human-readable description of the option.
	Description string
	// Section is "" for global options, or a section name.
	Section string
	// EnvVar is the environment variable that overrides this option, or "".
	EnvVar string
}

// ConfigSchema declares the expected configuration options.
// It is used for validation, documentation, typed resolution, and env var mapping.
type ConfigSchema struct {
	options   []*ConfigOption
	byKey     map[string]*ConfigOption
	bySection map[string]map[string]*ConfigOption
}

// NewSchema creates a new empty ConfigSchema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{
		byKey:     make(map[string]*ConfigOption),
		bySection: make(map[string]map[string]*ConfigOption),
	}
}

// Register adds a ConfigOption to the schema. Duplicate keys within the same
// section are silently overwritten (last registration wins).
func (s *ConfigSchema) Register(opt ConfigOption) {
	ref := new(ConfigOption)
	*ref = opt
	s.options = append(s.options, ref)
	if opt.Section == "" {
		s.byKey[opt.Key] = ref
	} else {
		if s.bySection[opt.Section] == nil {
			s.bySection[opt.Section] = make(map[string]*ConfigOption)
		}
		s.bySection[opt.Section][opt.Key] = ref
	}
}

// RegisterAll adds multiple ConfigOptions to the schema.
func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Options returns every registered option, in registration order.
func (s *ConfigSchema) Options() []ConfigOption {
	out := make([]ConfigOption, len(s.options))
	for i, o := range s.options {
		out[i] = *o
	}
	return out
}

// Lookup returns the ConfigOption for a key in a given section ("" for global).
// Returns nil if the key is not registered.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	if section == "" {
		return s.byKey[key]
	}
	if sec, ok := s.bySection[section]; ok {
		return sec[key]
	}
	return nil
}

// SectionOptions returns all registered options for a specific section.
func (s *ConfigSchema) SectionOptions(section string) []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns a sorted list of all registered non-empty section names.
func (s *ConfigSchema) Sections() []string {
	out := make([]string, 0, len(s.bySection))
	for sec := range s.bySection {
		out = append(out, sec)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the effective value for a key by checking, in order: (1) the
// environment variable declared in the schema for this key, (2) the config
// value, (3) the schema default. Returns "" if the key is not found anywhere.
func (s *ConfigSchema) Resolve(c *Config, section, key string) string {
	opt := s.Lookup(section, key)
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	var (
		v  string
		ok bool
	)
	if section == "" {
		v, ok = c.GetGlobalOption(key)
	} else {
		v, ok = c.GetSectionOption(section, key)
	}
	if ok {
		return v
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ResolveInt resolves key and parses it as an integer.
func (s *ConfigSchema) ResolveInt(c *Config, section, key string) (int, error) {
	v := s.Resolve(c, section, key)
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("option %s: expected int, got %q", qualify(section, key), v)
	}
	return i, nil
}

// ResolveFloat resolves key and parses it as a float64.
func (s *ConfigSchema) ResolveFloat(c *Config, section, key string) (float64, error) {
	v := s.Resolve(c, section, key)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("option %s: expected float, got %q", qualify(section, key), v)
	}
	return f, nil
}

// ResolveBool resolves key and parses it as a boolean.
func (s *ConfigSchema) ResolveBool(c *Config, section, key string) (bool, error) {
	v := s.Resolve(c, section, key)
	b, err := parseBool(v)
	if err != nil {
		return false, fmt.Errorf("option %s: expected bool, got %q", qualify(section, key), v)
	}
	return b, nil
}

// ResolveMillis resolves an integer millisecond option as a duration.
func (s *ConfigSchema) ResolveMillis(c *Config, section, key string) (time.Duration, error) {
	ms, err := s.ResolveInt(c, section, key)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func qualify(section, key string) string {
	if section == "" {
		return strconv.Quote(key)
	}
	return fmt.Sprintf("%q in [%s]", key, section)
}

// ValidateConfig checks a loaded Config against the schema and returns a list
// of human-readable issues (empty if the config is valid). Validation includes:
//   - Unknown global options (not in schema)
//   - Unknown sections, and unknown options within known sections
//   - Type mismatches for options with declared types
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string

	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := validateType(opt.Type, value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}

	for section, opts := range c.Sections {
		if _, ok := s.bySection[section]; !ok {
			issues = append(issues, fmt.Sprintf("unknown section: [%s]", section))
			continue
		}
		for key, value := range opts {
			opt := s.Lookup(section, key)
			if opt == nil {
				issues = append(issues, fmt.Sprintf("unknown option for section %q: %q (value: %q)", section, key, value))
				continue
			}
			if err := validateType(opt.Type, value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}

	sort.Strings(issues)
	return issues
}

// validateType checks that a string value matches the expected OptionType.
func validateType(t OptionType, value string) error {
	switch t {
	case TypeString, "":
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeFloat:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("expected float, got %q", value)
		}
	case TypeDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("expected duration, got %q", value)
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}

// --- Typed getter methods on Config ---

// GetString returns the global option value for key, or "" if not set.
func (c *Config) GetString(key string) string {
	v, _ := c.GetGlobalOption(key)
	return v
}

// GetBool returns the global option value for key parsed as a boolean. Returns
// false if the key is not set or the value cannot be parsed.
func (c *Config) GetBool(key string) bool {
	v, ok := c.GetGlobalOption(key)
	if !ok {
		return false
	}
	b, err := parseBool(v)
	if err != nil {
		return false
	}
	return b
}

// GetInt returns the global option value for key parsed as an integer. Returns
// 0 if the key is not set or the value cannot be parsed.
func (c *Config) GetInt(key string) int {
	v, ok := c.GetGlobalOption(key)
	if !ok {
		return 0
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return i
}

// GetDuration returns the global option value for key parsed as a
// time.Duration. Returns 0 if the key is not set or the value cannot be parsed.
func (c *Config) GetDuration(key string) time.Duration {
	v, ok := c.GetGlobalOption(key)
	if !ok {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

// --- Help text generation ---

// FormatHelp returns a formatted, human-readable reference of all registered
// options in the schema, grouped by section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder

	if globals := s.SectionOptions(""); len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}

	for _, sec := range s.Sections() {
		fmt.Fprintf(&b, "\n[%s] Options:\n", sec)
		for _, o := range s.SectionOptions(sec) {
			writeOptionHelp(&b, o)
		}
	}

	return b.String()
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	fmt.Fprintf(b, "  %-24s %s", o.Key, o.Description)
	parts := make([]string, 0, 3)
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, fmt.Sprintf("type: %s", o.Type))
	}
	if o.Default != "" {
		parts = append(parts, fmt.Sprintf("default: %s", o.Default))
	}
	if o.EnvVar != "" {
		parts = append(parts, fmt.Sprintf("env: %s", o.EnvVar))
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
}

// --- Default schema ---

// SectionMonster holds the options of the monster demo.
const SectionMonster = "monster"

// DefaultSchema returns the schema declaring every known option.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll([]ConfigOption{
		{Key: "log.level", Type: TypeString, Default: "info", Description: "Log level: debug, info, warn, error", EnvVar: "CLOSUREBT_LOG_LEVEL"},
		{Key: "log.format", Type: TypeString, Default: "text", Description: "Log format: text, json", EnvVar: "CLOSUREBT_LOG_FORMAT"},
		{Key: "tick.interval-ms", Type: TypeInt, Default: "100", Description: "Milliseconds between ticks of each tree"},
		{Key: "tick.limit", Type: TypeInt, Default: "0", Description: "Stop after this many ticks per tree, 0 for no limit"},
		{Key: "tree.pause-on-error", Type: TypeBool, Default: "false", Description: "Pause a tree when a node error surfaces"},
		{Key: "expr.cache-size", Type: TypeInt, Default: "1000", Description: "Compiled expression cache capacity"},

		{Key: "count", Section: SectionMonster, Type: TypeInt, Default: "3", Description: "Number of monster agents"},
		{Key: "sight-radius", Section: SectionMonster, Type: TypeFloat, Default: "8", Description: "Distance at which a monster sees the player"},
		{Key: "attack-radius", Section: SectionMonster, Type: TypeFloat, Default: "1.5", Description: "Distance at which a monster attacks"},
		{Key: "speed", Section: SectionMonster, Type: TypeFloat, Default: "0.5", Description: "Distance a monster moves per tick"},
		{Key: "cooldown-ms", Section: SectionMonster, Type: TypeInt, Default: "500", Description: "Milliseconds between attacks"},
		{Key: "timeout-ms", Section: SectionMonster, Type: TypeInt, Default: "3000", Description: "Milliseconds a chase may last"},
	})
	return s
}
