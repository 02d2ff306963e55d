package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/lumisim/internal/game/component"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

func validConfig() Config {
	return Config{
		Character: CharacterConfig{
			Level:           260,
			Attack:          40000,
			Luck:            4000,
			MagicAttack:     2500,
			Mastery:         90,
			CooldownTier:    "none",
			InitialState:    "light",
			EquilibriumMode: "auto",
		},
		Target: TargetConfig{
			Level:           270,
			DefenseRate:     80,
			ElementalResist: 50,
		},
		Simulation: SimulationConfig{
			Duration: 3 * time.Minute,
			Tick:     10 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 3*time.Minute, cfg.Simulation.Duration)
	assert.Equal(t, 10*time.Millisecond, cfg.Simulation.Tick)
	assert.Equal(t, "auto", cfg.Character.EquilibriumMode)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
character:
  level: 275
  attack: 50000
  mastery: 95
  cooldown_tier: high
  initial_state: dark
  equilibrium_mode: manual
  fifth:
    reflection: 30
  sixth:
    harmonic_paradox: 20
target:
  level: 280
  max_hp: 1000000000
simulation:
  duration: 90s
  tick: 20ms
  seed: 42
lag:
  enabled: true
  chance: 25
  max: 250ms
policy:
  priority: [memorize, reflection]
logging:
  level: debug
  format: console
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 275, cfg.Character.Level)
	assert.Equal(t, "high", cfg.Character.CooldownTier)
	assert.Equal(t, "dark", cfg.Character.InitialState)
	assert.Equal(t, 30, cfg.Character.Fifth["reflection"])
	assert.Equal(t, 20, cfg.Character.Sixth["harmonic_paradox"])
	assert.Equal(t, 4000.0, cfg.Character.Luck, "unset fields keep their default")
	assert.Equal(t, 1e9, cfg.Target.MaxHP)
	assert.Equal(t, 90*time.Second, cfg.Simulation.Duration)
	assert.Equal(t, uint64(42), cfg.Simulation.Seed)
	assert.True(t, cfg.Lag.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Lag.Max)
	assert.Equal(t, []string{"memorize", "reflection"}, cfg.Policy.Priority)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte("character:\n  level: 250\n"), 0644))
	t.Setenv("LUMISIM_CHARACTER_LEVEL", "265")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 265, cfg.Character.Level)
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 265, cfg.Character.Level)
	assert.Equal(t, "mid", cfg.Character.CooldownTier)
	assert.Equal(t, 60, cfg.Character.Fifth["reflection"])
	assert.Equal(t, 20, cfg.Character.Sixth["harmonic_paradox"])
	assert.Equal(t, 3*time.Minute, cfg.Simulation.Duration)
	assert.Equal(t, 300*time.Millisecond, cfg.Lag.Max)
	assert.True(t, cfg.Lag.Enabled)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestValidate_AggregatesViolations(t *testing.T) {
	cfg := validConfig()
	cfg.Character.CooldownTier = "max"
	cfg.Simulation.Tick = 0
	cfg.Logging.Format = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "character.cooldown_tier")
	assert.Contains(t, err.Error(), "simulation.tick")
	assert.Contains(t, err.Error(), "logging.format")
}

func TestValidateCharacterEnums(t *testing.T) {
	for _, tier := range []string{"none", "low", "mid", "high"} {
		cfg := validConfig()
		cfg.Character.CooldownTier = tier
		assert.NoError(t, cfg.Validate(), "tier %q should be valid", tier)
	}
	cfg := validConfig()
	cfg.Character.InitialState = "equilibrium"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Character.EquilibriumMode = "sometimes"
	assert.Error(t, cfg.Validate())
}

func TestValidateSimulation(t *testing.T) {
	cfg := validConfig()
	cfg.Simulation.Duration = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Simulation.Tick = time.Hour
	assert.Error(t, cfg.Validate())
}

func TestValidateTarget(t *testing.T) {
	cfg := validConfig()
	cfg.Target.Level = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Target.MaxHP = -1
	assert.Error(t, cfg.Validate())
}

func TestValidateLag(t *testing.T) {
	cfg := validConfig()
	cfg.Lag = LagConfig{Enabled: true, Chance: 120}
	assert.Error(t, cfg.Validate())

	cfg.Lag.Enabled = false
	assert.NoError(t, cfg.Validate(), "disabled lag is not validated")
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestCharacterStats_SaturatesThroughComponent(t *testing.T) {
	st := CharacterConfig{
		Level:             999,
		Attack:            40000,
		CritRate:          140,
		Mastery:           -3,
		CooldownReduction: 90,
	}.Stats(skill.CooldownTierMid)
	assert.Equal(t, component.MaxCharacterLevel, st.Level)
	assert.Equal(t, 40000.0, st.Attack)
	assert.Equal(t, 100.0, st.CritRate)
	assert.Equal(t, 0.0, st.Mastery)
	assert.Equal(t, component.MaxCooldownReduction, st.CooldownReduction)
	assert.Equal(t, skill.CooldownTierMid, st.CooldownTier)
}

// Property-based tests

func TestPropertyStatsMatchComponentClamp(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := CharacterConfig{
			Level:         rapid.IntRange(-1000, 1000).Draw(t, "level"),
			CritRate:      rapid.Float64Range(-500, 500).Draw(t, "crit"),
			IgnoreDefense: rapid.Float64Range(-500, 500).Draw(t, "ied"),
			BuffDuration:  rapid.Float64Range(-500, 500).Draw(t, "buff_duration"),
		}
		got := c.Stats(skill.CooldownTierNone)
		want := component.Stats{
			Level:         c.Level,
			CritRate:      c.CritRate,
			IgnoreDefense: c.IgnoreDefense,
			BuffDuration:  c.BuffDuration,
		}.Clamped()
		if got != want {
			t.Fatalf("config stats %+v differ from component clamp %+v", got, want)
		}
	})
}

func TestPropertyPositiveTickWithinDurationAccepted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dur := rapid.Int64Range(1, int64(time.Hour)).Draw(t, "duration")
		tick := rapid.Int64Range(1, dur).Draw(t, "tick")
		cfg := validConfig()
		cfg.Simulation.Duration = time.Duration(dur)
		cfg.Simulation.Tick = time.Duration(tick)
		if err := cfg.Validate(); err != nil {
			t.Fatalf("duration=%d tick=%d rejected: %v", dur, tick, err)
		}
	})
}
