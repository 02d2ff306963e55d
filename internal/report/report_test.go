package report_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/lumisim/internal/config"
	"github.com/cory-johannsen/lumisim/internal/game/ecs"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
	"github.com/cory-johannsen/lumisim/internal/game/system"
	"github.com/cory-johannsen/lumisim/internal/policy"
	"github.com/cory-johannsen/lumisim/internal/report"
	"github.com/cory-johannsen/lumisim/internal/sim"
)

func TestCollector_AggregatesCasterEvents(t *testing.T) {
	w := ecs.NewWorld()
	caster, other := w.CreateEntity(), w.CreateEntity()
	c := report.NewCollector(w, caster)

	w.Emit(system.EventSkillUsed, caster, system.SkillUsed{Skill: "reflection"})
	w.Emit(system.EventDamageDealt, caster, system.DamageDealt{Skill: "reflection", Total: 1000, Critical: true})
	w.Emit(system.EventDamageDealt, caster, system.DamageDealt{Skill: "reflection", Total: 500})
	w.Emit(system.EventDamageDealt, caster, system.DamageDealt{Skill: "reflection", Missed: true})
	w.Emit(system.EventDamageDealt, caster, system.DamageDealt{Skill: "light_echo", Total: 2500, Indirect: true})
	w.Emit(system.EventDamageDealt, other, system.DamageDealt{Skill: "reflection", Total: 1e9})
	w.Emit(system.EventBuffApplied, caster, system.BuffApplied{Name: "overload_mana"})

	w.Advance(time.Second)
	w.Emit(system.EventEnteredEquilibrium, caster, system.EquilibriumEntered{})
	w.Emit(system.EventBuffApplied, caster, system.BuffApplied{Name: "overload_mana"})
	w.Advance(time.Second)
	w.Emit(system.EventBuffExpired, caster, system.BuffExpired{Name: "overload_mana"})
	w.Advance(time.Second)
	w.Emit(system.EventExitedEquilibrium, caster, system.EquilibriumExited{})
	w.Advance(2 * time.Second)
	w.Emit(system.EventEnteredEquilibrium, caster, system.EquilibriumEntered{})
	w.Emit(system.EventBuffApplied, caster, system.BuffApplied{Name: "dark_crescendo"})
	w.Advance(time.Second)

	s := c.Summary()
	assert.Equal(t, 6*time.Second, s.Elapsed)
	assert.Equal(t, 4000.0, s.Total)
	assert.InDelta(t, 4000.0/6, s.DPS, 1e-9)
	assert.Equal(t, 2, s.EquilibriumEntries)
	assert.Equal(t, []report.Window{{Start: time.Second, End: 3 * time.Second}, {Start: 5 * time.Second, End: 6 * time.Second}}, s.Windows)
	assert.Equal(t, 3*time.Second, s.EquilibriumUptime)
	assert.InDelta(t, 0.5, s.Uptime(), 1e-9)

	require.Len(t, s.Skills, 2)
	assert.Equal(t, report.SkillSummary{Skill: "light_echo", Hits: 1, Total: 2500, Share: 0.625}, s.Skills[0])
	assert.Equal(t, report.SkillSummary{Skill: "reflection", Casts: 1, Hits: 2, Crits: 1, Misses: 1, Total: 1500, Share: 0.375}, s.Skills[1])

	assert.Equal(t, []report.BuffSummary{
		{Name: "dark_crescendo", Applications: 1, Uptime: time.Second},
		{Name: "overload_mana", Applications: 2, Uptime: 2 * time.Second},
	}, s.Buffs)
}

func TestCollector_Close_StopsRecording(t *testing.T) {
	w := ecs.NewWorld()
	caster := w.CreateEntity()
	c := report.NewCollector(w, caster)
	w.Emit(system.EventDamageDealt, caster, system.DamageDealt{Skill: "reflection", Total: 10})
	c.Close()
	w.Emit(system.EventDamageDealt, caster, system.DamageDealt{Skill: "reflection", Total: 10})
	assert.Equal(t, 10.0, c.Summary().Total)
}

func TestSummary_Empty(t *testing.T) {
	w := ecs.NewWorld()
	s := report.NewCollector(w, w.CreateEntity()).Summary()
	assert.Zero(t, s.DPS)
	assert.Zero(t, s.Uptime())
	assert.Empty(t, s.Skills)
}

func TestSummary_WriteText_GroupsDigits(t *testing.T) {
	s := report.Summary{
		Elapsed: 10 * time.Second,
		Total:   1234567,
		DPS:     123456.7,
		Skills:  []report.SkillSummary{{Skill: "reflection", Casts: 3, Hits: 3, Total: 1234567, Share: 1}},
		Buffs:   []report.BuffSummary{{Name: "overload_mana", Applications: 1, Uptime: 5 * time.Second}},
	}
	var buf bytes.Buffer
	require.NoError(t, s.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "1,234,567")
	assert.Contains(t, out, "123,457")
	assert.Contains(t, out, "reflection")
	assert.Contains(t, out, "overload_mana")
	assert.Contains(t, out, "100.0%")
}

func TestCollector_MatchesLedger(t *testing.T) {
	reg := skill.MustLoadEmbedded()
	p, err := policy.NewPriority(reg, nil)
	require.NoError(t, err)
	rapid.Check(t, func(rt *rapid.T) {
		cfg := config.Default()
		cfg.Simulation.Seed = rapid.Uint64Range(1, 1<<32).Draw(rt, "seed")
		s, err := sim.New(cfg, sim.Options{Registry: reg})
		if err != nil {
			rt.Fatal(err)
		}
		c := report.NewCollector(s.World(), s.Caster())
		res, err := s.Run(context.Background(), p, 20*time.Second)
		if err != nil {
			rt.Fatal(err)
		}
		sum := c.Summary()
		if diff := sum.Total - res.Total; diff > 1e-6*res.Total || -diff > 1e-6*res.Total {
			rt.Fatalf("collector %v ledger %v", sum.Total, res.Total)
		}
		var perSkill float64
		for _, sk := range sum.Skills {
			perSkill += sk.Total
		}
		if diff := perSkill - sum.Total; diff > 1e-6*sum.Total || -diff > 1e-6*sum.Total {
			rt.Fatalf("per-skill %v total %v", perSkill, sum.Total)
		}
	})
}
