package sim

import (
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/lumisim/internal/game/component"
	"github.com/cory-johannsen/lumisim/internal/game/ecs"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

// CharacterSnapshot is the read-only view of the character a policy decides on.
type CharacterSnapshot struct {
	State                skill.State
	Next                 skill.State
	Mode                 component.EquilibriumMode
	PendingEquilibrium   bool
	EquilibriumRemaining time.Duration
	Light                int
	Dark                 int
	MaxGauge             int
	Busy                 bool
	// Cooldowns holds the remaining cooldown of every usable skill.
	Cooldowns map[skill.ID]time.Duration
	// Ready lists, sorted, the skills that would be accepted right now.
	Ready []skill.ID
	// Buffs holds the remaining time of every active buff.
	Buffs map[string]time.Duration
}

// IsReady reports whether id is in Ready.
func (c CharacterSnapshot) IsReady(id skill.ID) bool {
	for _, r := range c.Ready {
		if r == id {
			return true
		}
	}
	return false
}

// SimulationSnapshot is the read-only view of the fight.
type SimulationSnapshot struct {
	ID          uuid.UUID
	Time        time.Duration
	Duration    time.Duration
	TargetHP    float64
	TargetMaxHP float64
	TotalDamage float64
}

// Snapshot captures the character and fight state at the current time.
func (s *Simulation) Snapshot() (CharacterSnapshot, SimulationSnapshot) {
	w := s.world
	now := w.Now()
	c := CharacterSnapshot{
		Busy:      s.Busy(),
		Cooldowns: make(map[skill.ID]time.Duration),
		Buffs:     make(map[string]time.Duration),
	}
	if st, ok := ecs.Get(w, s.caster, component.StateKind); ok {
		c.State, c.Next, c.Mode, c.PendingEquilibrium = st.Current, st.Next, st.Mode, st.PendingEquilibrium
		if end, ok := st.EquilibriumEnd(); ok {
			c.EquilibriumRemaining = max(0, end-now)
		}
	}
	if g, ok := ecs.Get(w, s.caster, component.GaugeKind); ok {
		c.Light, c.Dark, c.MaxGauge = g.Light, g.Dark, g.Max
	}
	if cds, ok := ecs.Get(w, s.caster, component.CooldownsKind); ok {
		for _, d := range s.reg.All() {
			if !d.Category.Usable() {
				continue
			}
			c.Cooldowns[d.ID] = cds.Remaining(d.ID)
			if s.systems.Skill.CanUse(w, s.caster, d.ID) {
				c.Ready = append(c.Ready, d.ID)
			}
		}
	}
	if buffs, ok := ecs.Get(w, s.caster, component.BuffsKind); ok {
		for _, b := range buffs.All() {
			c.Buffs[b.Name] = b.Remaining(now)
		}
	}

	sim := SimulationSnapshot{ID: s.ID, Time: now, Duration: s.limit}
	if enemy, ok := ecs.Get(w, s.target, component.EnemyKind); ok {
		sim.TargetHP, sim.TargetMaxHP = enemy.CurrentHP, enemy.MaxHP
	}
	if ledger, ok := ecs.Get(w, s.caster, component.LedgerKind); ok {
		sim.TotalDamage = ledger.Total()
	}
	return c, sim
}
