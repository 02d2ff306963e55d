// Package config provides Viper-based configuration loading for the simulator.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/lumisim/internal/game/component"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

// CharacterConfig describes the simulated character.
type CharacterConfig struct {
	// Level is the character level, 1-300.
	Level int `mapstructure:"level"`
	// Attack is the primary stat.
	Attack float64 `mapstructure:"attack"`
	// Luck is the secondary stat.
	Luck float64 `mapstructure:"luck"`
	// MagicAttack is the weapon magic attack; 0 normalizes damage to skill percentages.
	MagicAttack         float64 `mapstructure:"magic_attack"`
	DamagePercent       float64 `mapstructure:"damage_percent"`
	BossDamagePercent   float64 `mapstructure:"boss_damage_percent"`
	CritRate            float64 `mapstructure:"crit_rate"`
	CritDamage          float64 `mapstructure:"crit_damage"`
	IgnoreDefense       float64 `mapstructure:"ignore_defense"`
	IgnoreResist        float64 `mapstructure:"ignore_resist"`
	Mastery             float64 `mapstructure:"mastery"`
	BuffDuration        float64 `mapstructure:"buff_duration"`
	CooldownReduction   float64 `mapstructure:"cooldown_reduction"`
	CooldownResetChance float64 `mapstructure:"cooldown_reset_chance"`
	// CooldownTier is one of "none", "low", "mid", "high".
	CooldownTier string `mapstructure:"cooldown_tier"`
	// InitialState is "light" or "dark".
	InitialState string `mapstructure:"initial_state"`
	// EquilibriumMode is "auto" or "manual".
	EquilibriumMode string `mapstructure:"equilibrium_mode"`
	// Fifth maps skill ids to fifth-tier enhancement levels, 0-60.
	Fifth map[string]int `mapstructure:"fifth"`
	// Sixth maps skill ids to sixth-tier enhancement levels, 0-30.
	Sixth map[string]int `mapstructure:"sixth"`
}

// Stats maps the configured stat block onto the component record. Bounds are
// owned by component.Stats.Clamped; enhancement levels are clamped by
// component.Learned when they are applied.
//
// Postcondition: Returns a Stats already saturated into its valid ranges.
func (c CharacterConfig) Stats(tier skill.CooldownTier) component.Stats {
	return component.Stats{
		Level:               c.Level,
		Attack:              c.Attack,
		Luck:                c.Luck,
		MagicAttack:         c.MagicAttack,
		DamagePercent:       c.DamagePercent,
		BossDamagePercent:   c.BossDamagePercent,
		CritRate:            c.CritRate,
		CritDamage:          c.CritDamage,
		IgnoreDefense:       c.IgnoreDefense,
		IgnoreResist:        c.IgnoreResist,
		Mastery:             c.Mastery,
		BuffDuration:        c.BuffDuration,
		CooldownReduction:   c.CooldownReduction,
		CooldownResetChance: c.CooldownResetChance,
		CooldownTier:        tier,
	}.Clamped()
}

// TargetConfig describes the training target.
type TargetConfig struct {
	Level int `mapstructure:"level"`
	// MaxHP is the target's HP; 0 disables HP tracking.
	MaxHP           float64 `mapstructure:"max_hp"`
	DefenseRate     float64 `mapstructure:"defense_rate"`
	ElementalResist float64 `mapstructure:"elemental_resist"`
}

// SimulationConfig holds run settings.
type SimulationConfig struct {
	// Duration is the simulated fight length.
	Duration time.Duration `mapstructure:"duration"`
	// Tick is the fixed step the world advances by.
	Tick time.Duration `mapstructure:"tick"`
	// Seed seeds the random source; 0 selects a cryptographic source.
	Seed uint64 `mapstructure:"seed"`
}

// LagConfig holds the server lag model applied to buff expiry.
type LagConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Chance is the percent chance a buff application is delayed.
	Chance float64 `mapstructure:"chance"`
	// Max is the upper bound of the uniform delay.
	Max time.Duration `mapstructure:"max"`
}

// PolicyConfig selects the skill-selection policy.
type PolicyConfig struct {
	// Script is a Lua policy file; empty selects the built-in priority rotation.
	Script string `mapstructure:"script"`
	// Priority overrides the built-in rotation order.
	Priority []string `mapstructure:"priority"`
	// InstructionLimit bounds each Lua policy call; 0 uses the scripting default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// SkillsConfig points at optional replacement skill tables.
type SkillsConfig struct {
	// File is a YAML skill table; empty selects the built-in tables.
	File string `mapstructure:"file"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Character  CharacterConfig  `mapstructure:"character"`
	Target     TargetConfig     `mapstructure:"target"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Lag        LagConfig        `mapstructure:"lag"`
	Policy     PolicyConfig     `mapstructure:"policy"`
	Skills     SkillsConfig     `mapstructure:"skills"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// Validate checks all structural configuration invariants. Out-of-range stat
// values are not errors; they are saturated by CharacterConfig.Stats.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateCharacter(c.Character); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateTarget(c.Target); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSimulation(c.Simulation); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLag(c.Lag); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validatePolicy(c.Policy); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateCharacter(c CharacterConfig) error {
	var errs []string
	validTiers := map[string]bool{"none": true, "low": true, "mid": true, "high": true}
	if !validTiers[c.CooldownTier] {
		errs = append(errs, fmt.Sprintf("character.cooldown_tier must be one of [none, low, mid, high], got %q", c.CooldownTier))
	}
	validStates := map[string]bool{"light": true, "dark": true}
	if !validStates[c.InitialState] {
		errs = append(errs, fmt.Sprintf("character.initial_state must be one of [light, dark], got %q", c.InitialState))
	}
	validModes := map[string]bool{"auto": true, "manual": true}
	if !validModes[c.EquilibriumMode] {
		errs = append(errs, fmt.Sprintf("character.equilibrium_mode must be one of [auto, manual], got %q", c.EquilibriumMode))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateTarget(t TargetConfig) error {
	if t.Level < 1 {
		return fmt.Errorf("target.level must be >= 1, got %d", t.Level)
	}
	if t.MaxHP < 0 {
		return errors.New("target.max_hp must not be negative")
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.Duration <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.duration must be > 0, got %s", s.Duration))
	}
	if s.Tick <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.tick must be > 0, got %s", s.Tick))
	} else if s.Tick > s.Duration {
		errs = append(errs, "simulation.tick must not exceed simulation.duration")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLag(l LagConfig) error {
	if !l.Enabled {
		return nil
	}
	var errs []string
	if l.Chance < 0 || l.Chance > 100 {
		errs = append(errs, fmt.Sprintf("lag.chance must be 0-100, got %g", l.Chance))
	}
	if l.Max < 0 {
		errs = append(errs, "lag.max must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validatePolicy(p PolicyConfig) error {
	if p.InstructionLimit < 0 {
		return fmt.Errorf("policy.instruction_limit must be >= 0, got %d", p.InstructionLimit)
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with LUMISIM_ prefix
	v.SetEnvPrefix("LUMISIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// Default returns the built-in configuration used when no file is given.
//
// Postcondition: Returns a Config that passes Validate.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := LoadFromViper(v)
	if err != nil {
		panic("config: built-in defaults are invalid: " + err.Error())
	}
	return cfg
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("character.level", 260)
	v.SetDefault("character.attack", 40000)
	v.SetDefault("character.luck", 4000)
	v.SetDefault("character.magic_attack", 2500)
	v.SetDefault("character.damage_percent", 80)
	v.SetDefault("character.boss_damage_percent", 250)
	v.SetDefault("character.crit_rate", 100)
	v.SetDefault("character.crit_damage", 80)
	v.SetDefault("character.ignore_defense", 90)
	v.SetDefault("character.ignore_resist", 10)
	v.SetDefault("character.mastery", 90)
	v.SetDefault("character.buff_duration", 30)
	v.SetDefault("character.cooldown_reduction", 2)
	v.SetDefault("character.cooldown_reset_chance", 0)
	v.SetDefault("character.cooldown_tier", "none")
	v.SetDefault("character.initial_state", "light")
	v.SetDefault("character.equilibrium_mode", "auto")

	v.SetDefault("target.level", 270)
	v.SetDefault("target.max_hp", 0)
	v.SetDefault("target.defense_rate", 80)
	v.SetDefault("target.elemental_resist", 50)

	v.SetDefault("simulation.duration", "3m")
	v.SetDefault("simulation.tick", "10ms")
	v.SetDefault("simulation.seed", 0)

	v.SetDefault("lag.enabled", false)
	v.SetDefault("lag.chance", 30)
	v.SetDefault("lag.max", "300ms")

	v.SetDefault("policy.instruction_limit", 100000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
