package system_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/lumisim/internal/game/component"
	"github.com/cory-johannsen/lumisim/internal/game/dice"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
	"github.com/cory-johannsen/lumisim/internal/game/system"
)

func TestBuff_DurationScaledAndExpires(t *testing.T) {
	h := embeddedHarness(t, harnessOpts{
		stats: func(s *component.Stats) { s.BuffDuration = 50 },
	})
	require.True(t, h.use("dark_crescendo"))
	buf, ok := h.buffs().Get("dark_crescendo")
	require.True(t, ok)
	assert.Equal(t, 180*time.Second, buf.BaseDuration)
	assert.Equal(t, 270*time.Second, buf.ActualDuration)
	assert.Equal(t, skill.ID("dark_crescendo"), buf.Source)

	h.w.Update(269 * time.Second)
	assert.True(t, h.buffs().Active("dark_crescendo"))
	h.w.Update(time.Second)
	assert.False(t, h.buffs().Active("dark_crescendo"))

	expired := h.eventsOf(system.EventBuffExpired)
	require.Len(t, expired, 1)
	p := expired[0].Payload.(system.BuffExpired)
	assert.Equal(t, "dark_crescendo", p.Name)
	assert.Equal(t, 270*time.Second, p.Active)
}

func TestBuff_DurationImmuneIgnoresIncrease(t *testing.T) {
	h := embeddedHarness(t, harnessOpts{
		stats: func(s *component.Stats) { s.BuffDuration = 50 },
	})
	buf, ok := h.sys.Buff.Apply(h.w, h.caster, "fixed", "", skill.BuffSpec{Duration: 10 * time.Second, DurationImmune: true})
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, buf.Expiry())
}

func TestBuff_StacksUpToMax(t *testing.T) {
	h := embeddedHarness(t, harnessOpts{})
	spec := skill.BuffSpec{Duration: 10 * time.Second, MaxStacks: 2, Effects: skill.Effects{DamagePercent: 10}}
	h.sys.Buff.Apply(h.w, h.caster, "stacking", "", spec)
	h.w.Update(5 * time.Second)
	h.sys.Buff.Apply(h.w, h.caster, "stacking", "", spec)
	buf, _ := h.sys.Buff.Apply(h.w, h.caster, "stacking", "", spec)
	assert.Equal(t, 2, buf.Stacks)
	assert.Equal(t, 15*time.Second, buf.Expiry(), "re-application refreshes the timer")
	assert.Len(t, h.eventsOf(system.EventBuffApplied), 3)

	res := h.sys.Damage.CalculateAndApplyDamage(h.w, h.caster, h.target, "door_of_truth", system.DamageOptions{})
	assert.InDelta(t, 1.2, res.Breakdown.DamageIncrease, 1e-12)
}

func TestBuff_ServerLagExtendsExpiry(t *testing.T) {
	h := newHarness(t, skill.MustLoadEmbedded(), dice.NewFixedSource(0.5), harnessOpts{
		lag: system.LagConfig{Enabled: true, Chance: 100, Max: time.Second},
	})
	require.True(t, h.use("overload_mana"))
	buf, ok := h.buffs().Get("overload_mana")
	require.True(t, ok)
	assert.True(t, buf.LagModeled)
	assert.Equal(t, 60*time.Second, buf.End)
	assert.Equal(t, 60500*time.Millisecond, buf.Expiry())

	applied := h.eventsOf(system.EventBuffApplied)
	require.Len(t, applied, 1)
	assert.Equal(t, 500*time.Millisecond, applied[0].Payload.(system.BuffApplied).LagExtension)

	h.w.Update(60 * time.Second)
	assert.True(t, h.buffs().Active("overload_mana"))
	h.w.Update(500 * time.Millisecond)
	assert.False(t, h.buffs().Active("overload_mana"))
}

func TestBuff_ServerLagReachesConfiguredMax(t *testing.T) {
	h := newHarness(t, skill.MustLoadEmbedded(), dice.NewFixedSource(0.9999), harnessOpts{
		lag: system.LagConfig{Enabled: true, Chance: 100, Max: 750 * time.Millisecond},
	})
	require.True(t, h.use("overload_mana"))
	buf, ok := h.buffs().Get("overload_mana")
	require.True(t, ok)
	assert.Equal(t, 60*time.Second+750*time.Millisecond, buf.Expiry())

	applied := h.eventsOf(system.EventBuffApplied)
	require.Len(t, applied, 1)
	assert.Equal(t, 750*time.Millisecond, applied[0].Payload.(system.BuffApplied).LagExtension)
}

func TestBuff_EquilibriumIsLagImmune(t *testing.T) {
	h := newHarness(t, skill.MustLoadEmbedded(), dice.NewFixedSource(0.5), harnessOpts{
		lag: system.LagConfig{Enabled: true, Chance: 100, Max: time.Second},
	})
	require.True(t, h.use("memorize"))
	buf, ok := h.buffs().Get(skill.EquilibriumBuff)
	require.True(t, ok)
	assert.False(t, buf.LagModeled)
	assert.Equal(t, 17*time.Second, buf.Expiry())
}

func TestBuff_RemoveAndSetExpiryUnknown(t *testing.T) {
	h := embeddedHarness(t, harnessOpts{})
	assert.False(t, h.sys.Buff.Remove(h.w, h.caster, "nope"))
	assert.False(t, h.sys.Buff.SetExpiry(h.w, h.caster, "nope", time.Second))
	_, ok := h.sys.Buff.Apply(h.w, h.target, "x", "", skill.BuffSpec{Duration: time.Second})
	assert.False(t, ok, "target has no buff table")
}
