package system

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lumisim/internal/game/component"
	"github.com/cory-johannsen/lumisim/internal/game/ecs"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

// GaugeSystem is the only writer of Gauge.
type GaugeSystem struct {
	rules  skill.Rules
	state  *StateSystem
	logger *zap.Logger
}

// NewGaugeSystem creates a GaugeSystem.
func NewGaugeSystem(rules skill.Rules, state *StateSystem, logger *zap.Logger) *GaugeSystem {
	return &GaugeSystem{rules: rules, state: state, logger: logger}
}

// Name implements ecs.System.
func (g *GaugeSystem) Name() string { return "gauge" }

// Subscribe resets the entered pool whenever a character leaves Equilibrium
// and flags the character pending if the pool it now charges is already full.
func (g *GaugeSystem) Subscribe(w *ecs.World) {
	w.On(EventExitedEquilibrium, func(ev ecs.Event) {
		p, ok := ev.Payload.(EquilibriumExited)
		if !ok {
			return
		}
		g.onExited(w, ev.Entity, p.To)
	})
}

// Update resolves pending Equilibrium for characters in auto mode.
func (g *GaugeSystem) Update(w *ecs.World, _ time.Duration) {
	for _, e := range w.Query(component.StateKind.Kind(), component.GaugeKind.Kind()) {
		st, _ := ecs.Get(w, e, component.StateKind)
		if st.PendingEquilibrium && st.Mode == component.EquilibriumAuto && !st.InEquilibrium() {
			g.state.Trigger(w, e)
		}
	}
}

// ChargeGauge adds the gauge charge of skill id to the pool opposite the
// caster's current state (opposite the next state during Equilibrium).
// enhanced selects the enhanced amount; missed scales the amount by the miss ratio.
// A full pool outside Equilibrium marks the character pending.
//
// Postcondition: Returns the amount actually added; 0 when a component is missing.
func (g *GaugeSystem) ChargeGauge(w *ecs.World, e ecs.Entity, id skill.ID, enhanced, missed bool) int {
	const op = "gauge.charge"
	st, ok := lookup(w, e, component.StateKind, g.logger, op)
	if !ok {
		return 0
	}
	gauge, ok := lookup(w, e, component.GaugeKind, g.logger, op)
	if !ok {
		return 0
	}
	learned, ok := lookup(w, e, component.LearnedKind, g.logger, op)
	if !ok {
		return 0
	}
	eff, ok := learned.Effective(id, st.Current)
	if !ok {
		return 0
	}
	amount := eff.GaugeCharge
	if enhanced {
		amount = eff.EnhancedGaugeCharge
	}
	if missed {
		amount = int(math.Round(float64(amount) * g.rules.MissChargeRatio))
	}
	if amount <= 0 {
		return 0
	}
	pool := component.PoolFor(st.Current, st.Next)
	added, full := gauge.Charge(pool, amount)
	w.Emit(EventGaugeCharged, e, GaugeCharged{
		Skill:    id,
		Pool:     pool,
		Amount:   added,
		Value:    gauge.Value(pool),
		Full:     full,
		Enhanced: enhanced,
		Missed:   missed,
	})
	if full && !st.InEquilibrium() && !st.PendingEquilibrium {
		g.state.MarkPending(w, e)
	}
	return added
}

func (g *GaugeSystem) onExited(w *ecs.World, e ecs.Entity, entered skill.State) {
	gauge, ok := ecs.Get(w, e, component.GaugeKind)
	if !ok {
		return
	}
	gauge.Reset(entered)
	st, ok := ecs.Get(w, e, component.StateKind)
	if !ok {
		return
	}
	if gauge.Value(component.PoolFor(st.Current, st.Next)) >= gauge.Max {
		g.state.SetPending(w, e)
	}
}
