package system_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/lumisim/internal/game/component"
	"github.com/cory-johannsen/lumisim/internal/game/dice"
	"github.com/cory-johannsen/lumisim/internal/game/ecs"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
	"github.com/cory-johannsen/lumisim/internal/game/system"
)

// scenarioTables are minimal tables with round numbers for formula checks.
const scenarioTables = `
rules:
  equilibrium_base_sec: 17
  equilibrium_bonus_sec: 7
skills:
  - id: strike
    name: Strike
    element: none
    category: direct
    damage_percent: 800
    hit_count: 4
    gauge_charge: 400
  - id: light_strike
    name: Light Strike
    element: light
    category: direct
    damage_percent: 800
    hit_count: 4
    gauge_charge: 5000
    enhanced_gauge_charge: 10000
  - id: eq_strike
    name: Equilibrium Strike
    element: equilibrium
    category: direct
    damage_percent: 800
    hit_count: 4
`

func scenarioRegistry(t *testing.T) *skill.Registry {
	t.Helper()
	reg, err := skill.Parse([]byte(scenarioTables))
	require.NoError(t, err)
	return reg
}

type harnessOpts struct {
	mode  component.EquilibriumMode
	lag   system.LagConfig
	stats func(*component.Stats)
	enemy *component.EnemyStats
}

type harness struct {
	w      *ecs.World
	sys    *system.Systems
	caster ecs.Entity
	target ecs.Entity
	logs   *observer.ObservedLogs
	events []ecs.Event
}

// newHarness builds a world with one fully equipped caster at level 250 with
// 100% mastery and one level-250 target without defense or HP tracking.
//
// Postcondition: every event emitted on the world is captured in h.events.
func newHarness(t *testing.T, reg *skill.Registry, src dice.Source, opts harnessOpts) *harness {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	w := ecs.NewWorld()
	sys := system.New(reg, dice.NewLoggedRoller(src, logger), opts.lag, logger)
	sys.Register(w)

	h := &harness{w: w, sys: sys, logs: logs}
	w.On(ecs.EventAny, func(ev ecs.Event) { h.events = append(h.events, ev) })

	stats := &component.Stats{Level: 250, Mastery: 100}
	if opts.stats != nil {
		opts.stats(stats)
	}
	enemy := opts.enemy
	if enemy == nil {
		enemy = component.NewEnemyStats(250, 0, 0, 0)
	}

	h.caster = w.CreateEntity()
	ecs.Add(w, h.caster, component.StatsKind, stats)
	ecs.Add(w, h.caster, component.StateKind, component.NewState(skill.StateLight, opts.mode))
	ecs.Add(w, h.caster, component.GaugeKind, component.NewGauge(reg.Rules().MaxGauge))
	ecs.Add(w, h.caster, component.CooldownsKind, component.NewCooldowns())
	ecs.Add(w, h.caster, component.BuffsKind, component.NewBuffs())
	ecs.Add(w, h.caster, component.LedgerKind, component.NewDamageLedger())
	ecs.Add(w, h.caster, component.LearnedKind, component.NewLearned(reg))

	h.target = w.CreateEntity()
	ecs.Add(w, h.target, component.EnemyKind, enemy)
	return h
}

func (h *harness) use(id skill.ID) bool {
	return h.sys.Skill.TryUseSkill(h.w, h.caster, h.target, id)
}

func (h *harness) state() *component.State {
	st, _ := ecs.Get(h.w, h.caster, component.StateKind)
	return st
}

func (h *harness) gauge() *component.Gauge {
	g, _ := ecs.Get(h.w, h.caster, component.GaugeKind)
	return g
}

func (h *harness) cooldowns() *component.Cooldowns {
	c, _ := ecs.Get(h.w, h.caster, component.CooldownsKind)
	return c
}

func (h *harness) buffs() *component.Buffs {
	b, _ := ecs.Get(h.w, h.caster, component.BuffsKind)
	return b
}

func (h *harness) ledger() *component.DamageLedger {
	l, _ := ecs.Get(h.w, h.caster, component.LedgerKind)
	return l
}

func (h *harness) eventsOf(t ecs.EventType) []ecs.Event {
	var out []ecs.Event
	for _, ev := range h.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// run advances the world by total in increments of step.
func (h *harness) run(total, step time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += step {
		h.w.Update(step)
	}
}
