package system

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/lumisim/internal/game/dice"
	"github.com/cory-johannsen/lumisim/internal/game/ecs"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

// Systems is the full set of simulation systems sharing one registry and roller.
type Systems struct {
	Time   *TimeSystem
	State  *StateSystem
	Skill  *SkillSystem
	Buff   *BuffSystem
	Gauge  *GaugeSystem
	Damage *DamageSystem
	Summon *SummonSystem
}

// New builds every system and wires their synchronous entry points.
//
// Precondition: reg, roller and logger must be non-nil.
// Postcondition: Returns Systems ready to Register on a World.
func New(reg *skill.Registry, roller *dice.Roller, lag LagConfig, logger *zap.Logger) *Systems {
	s := &Systems{}
	s.Time = NewTimeSystem(logger)
	s.Buff = NewBuffSystem(roller, lag, logger)
	s.State = NewStateSystem(reg.Rules(), s.Buff, logger)
	s.Damage = NewDamageSystem(roller, logger)
	s.Gauge = NewGaugeSystem(reg.Rules(), s.State, logger)
	s.Summon = NewSummonSystem(reg, s.Damage, logger)
	s.Skill = NewSkillSystem(reg, roller, SkillDeps{
		State:  s.State,
		Buff:   s.Buff,
		Gauge:  s.Gauge,
		Damage: s.Damage,
		Summon: s.Summon,
	}, logger)
	return s
}

// Ordered returns the systems in update order.
func (s *Systems) Ordered() []ecs.System {
	return []ecs.System{s.Time, s.State, s.Skill, s.Buff, s.Gauge, s.Damage, s.Summon}
}

// Register adds every system to w in update order and subscribes the
// event-driven reactions between systems.
func (s *Systems) Register(w *ecs.World) {
	for _, sys := range s.Ordered() {
		w.AddSystem(sys)
	}
	s.State.Subscribe(w)
	s.Skill.Subscribe(w)
	s.Gauge.Subscribe(w)
}

// lookup fetches a required component and logs when it is absent.
func lookup[T any](w *ecs.World, e ecs.Entity, k ecs.ComponentKind[T], logger *zap.Logger, op string) (*T, bool) {
	c, ok := ecs.Get(w, e, k)
	if !ok {
		logger.Error("missing component",
			zap.String("op", op),
			zap.Stringer("entity", e),
			zap.String("kind", string(k.Kind())),
		)
	}
	return c, ok
}
