package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lumisim/internal/game/component"
	"github.com/cory-johannsen/lumisim/internal/game/ecs"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

// SummonSystem is the only writer of Summon. Summons attack through the damage
// pipeline on behalf of their owner.
type SummonSystem struct {
	reg    *skill.Registry
	damage *DamageSystem
	logger *zap.Logger
}

// NewSummonSystem creates a SummonSystem.
func NewSummonSystem(reg *skill.Registry, damage *DamageSystem, logger *zap.Logger) *SummonSystem {
	return &SummonSystem{reg: reg, damage: damage, logger: logger}
}

// Name implements ecs.System.
func (s *SummonSystem) Name() string { return "summon" }

// Spawn creates the summon of skill id for owner, attacking target.
//
// Postcondition: Returns the new entity and true; false if id has no summon spec.
func (s *SummonSystem) Spawn(w *ecs.World, owner, target ecs.Entity, id skill.ID) (ecs.Entity, bool) {
	def, ok := s.reg.Get(id)
	if !ok || def.Summon == nil {
		s.logger.Warn("skill has no summon", zap.String("skill", string(id)))
		return ecs.NoEntity, false
	}
	now := w.Now()
	spec := def.Summon
	e := w.CreateEntity()
	ecs.Add(w, e, component.SummonKind, &component.Summon{
		Owner:      owner,
		Target:     target,
		Skill:      id,
		Spawned:    now,
		ActiveAt:   now + spec.Delay,
		EndsAt:     now + spec.Duration,
		Interval:   spec.Interval,
		NextAttack: now + spec.Delay,
	})
	w.Emit(EventSummonCreated, owner, SummonCreated{Summon: e, Skill: id, EndsAt: now + spec.Duration})
	return e, true
}

// Update fires every attack due up to now, then destroys summons whose lifetime has ended.
func (s *SummonSystem) Update(w *ecs.World, _ time.Duration) {
	now := w.Now()
	for _, e := range w.Query(component.SummonKind.Kind()) {
		sm, _ := ecs.Get(w, e, component.SummonKind)
		for sm.NextAttack <= now && sm.NextAttack < sm.EndsAt {
			res := s.damage.CalculateAndApplyDamage(w, e, sm.Target, sm.Skill, DamageOptions{})
			sm.Attacks++
			w.Emit(EventSummonAttack, sm.Owner, SummonAttack{
				Summon: e,
				Skill:  sm.Skill,
				Damage: res.Total,
				Attack: sm.Attacks,
			})
			if sm.Interval <= 0 {
				sm.NextAttack = sm.EndsAt
				break
			}
			sm.NextAttack += sm.Interval
		}
		if now >= sm.EndsAt {
			owner, id, attacks := sm.Owner, sm.Skill, sm.Attacks
			w.DestroyEntity(e)
			w.Emit(EventSummonDestroyed, owner, SummonDestroyed{Summon: e, Skill: id, Attacks: attacks})
		}
	}
}
