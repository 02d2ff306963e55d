package system_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/lumisim/internal/game/component"
	"github.com/cory-johannsen/lumisim/internal/game/dice"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
	"github.com/cory-johannsen/lumisim/internal/game/system"
)

func TestState_AutoEntryWhenGaugeFills(t *testing.T) {
	h := newHarness(t, scenarioRegistry(t), dice.NewFixedSource(0.99), harnessOpts{
		stats: func(s *component.Stats) { s.BuffDuration = 50 },
	})
	require.True(t, h.use("light_strike"))

	st := h.state()
	require.True(t, st.InEquilibrium())
	assert.False(t, st.PendingEquilibrium)
	assert.Equal(t, skill.StateDark, st.Next)
	end, ok := st.EquilibriumEnd()
	require.True(t, ok)
	assert.Equal(t, 36*time.Second, end, "(17s + 7s) x 1.5")
	assert.Equal(t, 10000, h.gauge().Dark, "entry leaves the gauge untouched")

	buf, ok := h.buffs().Get(skill.EquilibriumBuff)
	require.True(t, ok)
	assert.Equal(t, end, buf.Expiry())

	entered := h.eventsOf(system.EventEnteredEquilibrium)
	require.Len(t, entered, 1)
	p := entered[0].Payload.(system.EquilibriumEntered)
	assert.Equal(t, skill.StateLight, p.From)
	assert.False(t, p.Memorize)
}

func TestState_ExitResetsEnteredPool(t *testing.T) {
	h := newHarness(t, scenarioRegistry(t), dice.NewFixedSource(0.99), harnessOpts{})
	require.True(t, h.use("light_strike"))
	require.True(t, h.use("strike"))
	assert.Equal(t, 400, h.gauge().Light, "equilibrium charges the pool opposite the next state")

	h.w.Update(23 * time.Second)
	require.True(t, h.state().InEquilibrium())
	h.w.Update(time.Second)

	st := h.state()
	assert.Equal(t, skill.StateDark, st.Current)
	assert.Equal(t, skill.StateLight, st.Next)
	assert.Equal(t, 0, h.gauge().Dark)
	assert.Equal(t, 400, h.gauge().Light)
	assert.False(t, h.buffs().Active(skill.EquilibriumBuff))

	exited := h.eventsOf(system.EventExitedEquilibrium)
	require.Len(t, exited, 1)
	p := exited[0].Payload.(system.EquilibriumExited)
	assert.Equal(t, skill.StateDark, p.To)
	assert.Equal(t, 24*time.Second, p.Lasted)
}

func TestState_ManualModeWaitsForTrigger(t *testing.T) {
	h := newHarness(t, scenarioRegistry(t), dice.NewFixedSource(0.99), harnessOpts{mode: component.EquilibriumManual})
	assert.False(t, h.sys.State.Trigger(h.w, h.caster), "nothing pending")

	require.True(t, h.use("light_strike"))
	st := h.state()
	assert.True(t, st.PendingEquilibrium)
	assert.False(t, st.InEquilibrium())

	h.w.Update(time.Second)
	assert.False(t, h.state().InEquilibrium(), "manual mode never enters on its own")

	require.True(t, h.sys.State.Trigger(h.w, h.caster))
	assert.True(t, h.state().InEquilibrium())
	assert.False(t, h.sys.State.Trigger(h.w, h.caster))
}

func TestState_MemorizeUsesShortDuration(t *testing.T) {
	h := embeddedHarness(t, harnessOpts{})
	require.True(t, h.use("memorize"))
	end, ok := h.state().EquilibriumEnd()
	require.True(t, ok)
	assert.Equal(t, 17*time.Second, end)
	assert.True(t, h.state().Memorized)

	h.w.Update(time.Second)
	assert.False(t, h.use("memorize"), "cannot enter equilibrium twice")
}

func TestState_ExtendMovesBuffInLockstep(t *testing.T) {
	h := embeddedHarness(t, harnessOpts{})
	require.True(t, h.use("memorize"))
	require.True(t, h.use("harmonic_paradox"))

	end, _ := h.state().EquilibriumEnd()
	assert.Equal(t, 25*time.Second, end)
	buf, ok := h.buffs().Get(skill.EquilibriumBuff)
	require.True(t, ok)
	assert.Equal(t, 25*time.Second, buf.Expiry())

	h.w.Update(24 * time.Second)
	assert.True(t, h.state().InEquilibrium())
	h.w.Update(time.Second)
	assert.False(t, h.state().InEquilibrium())
	assert.False(t, h.buffs().Active(skill.EquilibriumBuff))
}

func TestState_ExtendOutsideEquilibrium(t *testing.T) {
	h := embeddedHarness(t, harnessOpts{})
	assert.False(t, h.sys.State.Extend(h.w, h.caster, 8*time.Second))
	require.True(t, h.use("harmonic_paradox"))
	_, ok := h.state().EquilibriumEnd()
	assert.False(t, ok)
}

func TestState_ExitOutsideEquilibrium(t *testing.T) {
	h := embeddedHarness(t, harnessOpts{})
	assert.False(t, h.sys.State.ExitEquilibrium(h.w, h.caster))
	assert.Empty(t, h.eventsOf(system.EventExitedEquilibrium))

	rejected := h.logs.FilterMessage("state transition rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, "exit_to_dark", rejected[0].ContextMap()["event"])
	assert.Equal(t, skill.StateLight, h.state().Current)
	assert.Equal(t, skill.StateDark, h.state().Next)
}

func TestState_MachineOwnsPolarity(t *testing.T) {
	h := newHarness(t, scenarioRegistry(t), dice.NewFixedSource(0.99), harnessOpts{})
	_, ok := h.sys.State.Polarity(h.caster)
	assert.False(t, ok, "no machine before the first transition")

	require.True(t, h.use("light_strike"))
	p, ok := h.sys.State.Polarity(h.caster)
	require.True(t, ok)
	assert.Equal(t, skill.StateEquilibrium, p)
	assert.Equal(t, p, h.state().Current)

	assert.False(t, h.sys.State.EnterEquilibrium(h.w, h.caster, true), "the table has no equilibrium self-transition")
	assert.False(t, h.state().Memorized)
	assert.Len(t, h.eventsOf(system.EventEnteredEquilibrium), 1)

	h.w.Update(24 * time.Second)
	p, _ = h.sys.State.Polarity(h.caster)
	assert.Equal(t, skill.StateDark, p)
	assert.Equal(t, p, h.state().Current)
}

func TestState_MachineDroppedWithEntity(t *testing.T) {
	h := newHarness(t, scenarioRegistry(t), dice.NewFixedSource(0.99), harnessOpts{})
	require.True(t, h.use("light_strike"))
	_, ok := h.sys.State.Polarity(h.caster)
	require.True(t, ok)

	require.True(t, h.w.DestroyEntity(h.caster))
	_, ok = h.sys.State.Polarity(h.caster)
	assert.False(t, ok)
}

func TestProperty_State_ExclusiveAndConsistent(t *testing.T) {
	reg := skill.MustLoadEmbedded()
	rapid.Check(t, func(rt *rapid.T) {
		h := newHarness(t, reg, dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")), harnessOpts{})
		ops := rapid.SliceOfN(rapid.IntRange(0, 5), 1, 80).Draw(rt, "ops")
		for i, op := range ops {
			switch op {
			case 0:
				h.use("reflection")
			case 1:
				h.use("apocalypse")
			case 2:
				h.use("memorize")
			case 3:
				h.use("baptism")
			case 4:
				h.use("harmonic_paradox")
			default:
				h.w.Update(time.Second)
			}
			st := h.state()
			_, hasEnd := st.EquilibriumEnd()
			if st.InEquilibrium() != hasEnd {
				rt.Fatalf("op %d: equilibrium %v but end set %v", i, st.InEquilibrium(), hasEnd)
			}
			if h.buffs().Active(skill.EquilibriumBuff) != st.InEquilibrium() {
				rt.Fatalf("op %d: equilibrium buff out of step with state", i)
			}
			if st.Next == skill.StateEquilibrium || (!st.InEquilibrium() && st.Next == st.Current) {
				rt.Fatalf("op %d: invalid next state %s from %s", i, st.Next, st.Current)
			}
			g := h.gauge()
			if g.Light < 0 || g.Light > g.Max || g.Dark < 0 || g.Dark > g.Max {
				rt.Fatalf("op %d: gauge out of bounds %d/%d", i, g.Light, g.Dark)
			}
		}
	})
}

func TestState_FullPoolAtExitReentersSameTick(t *testing.T) {
	h := newHarness(t, scenarioRegistry(t), dice.NewFixedSource(0.99), harnessOpts{})
	require.True(t, h.use("light_strike"))
	require.True(t, h.use("light_strike"))
	require.True(t, h.use("light_strike"))
	require.Equal(t, 10000, h.gauge().Light)
	require.False(t, h.state().PendingEquilibrium, "no pending flag while in equilibrium")

	h.w.Update(24 * time.Second)
	st := h.state()
	assert.True(t, st.InEquilibrium())
	assert.Equal(t, 2, st.Entries)
	assert.Equal(t, skill.StateLight, st.Next)

	var order []string
	for _, ev := range h.events {
		switch ev.Type {
		case system.EventEnteredEquilibrium, system.EventExitedEquilibrium:
			order = append(order, string(ev.Type))
		}
	}
	assert.Equal(t, []string{
		string(system.EventEnteredEquilibrium),
		string(system.EventExitedEquilibrium),
		string(system.EventEnteredEquilibrium),
	}, order)
}
