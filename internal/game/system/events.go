// Package system holds the per-tick systems that drive a simulation and the
// synchronous entry points through which a skill use is committed.
//
// Systems are registered on an ecs.World in the fixed order Time, State,
// Skill, Buff, Gauge, Damage, Summon. Each component kind has one writing
// system; other systems reach it through that system's exported methods.
package system

import (
	"time"

	"github.com/cory-johannsen/lumisim/internal/game/ecs"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

// Simulation event types.
const (
	EventDamageDealt        ecs.EventType = "damage:dealt"
	EventEnteredEquilibrium ecs.EventType = "state:entered_equilibrium"
	EventExitedEquilibrium  ecs.EventType = "state:exited_equilibrium"
	EventBuffApplied        ecs.EventType = "buff:applied"
	EventBuffExpired        ecs.EventType = "buff:expired"
	EventSkillUsed          ecs.EventType = "skill:used"
	EventCooldownReduced    ecs.EventType = "skill:cooldown_reduced"
	EventCooldownReset      ecs.EventType = "skill:cooldown_reset"
	EventSummonCreated      ecs.EventType = "summon:created"
	EventSummonAttack       ecs.EventType = "summon:attack"
	EventSummonDestroyed    ecs.EventType = "summon:destroyed"
	EventGaugeCharged       ecs.EventType = "gauge:charged"
)

// Breakdown records every factor of one damage calculation.
type Breakdown struct {
	StatValue            float64
	DamagePercent        float64
	HitCount             int
	DamageIncrease       float64
	BossMultiplier       float64
	FinalMultiplier      float64
	LevelPenalty         float64
	EffectiveDefense     float64
	EffectiveResist      float64
	Mitigation           float64
	Mastery              float64
	CritRate             float64
	CritMultiplier       float64
	AdditionalMultiplier float64
	PerHit               float64
}

// DamageDealt is the payload of EventDamageDealt, emitted on the caster.
type DamageDealt struct {
	Skill     skill.ID
	Source    ecs.Entity // the caster or one of its summons
	Target    ecs.Entity
	Total     float64
	Critical  bool
	Missed    bool
	Indirect  bool
	Breakdown Breakdown
}

// EquilibriumEntered is the payload of EventEnteredEquilibrium.
type EquilibriumEntered struct {
	From     skill.State
	End      time.Duration
	Duration time.Duration
	Memorize bool
}

// EquilibriumExited is the payload of EventExitedEquilibrium.
type EquilibriumExited struct {
	To     skill.State
	Lasted time.Duration
}

// BuffApplied is the payload of EventBuffApplied.
type BuffApplied struct {
	Name         string
	Source       skill.ID
	Stacks       int
	Duration     time.Duration
	Expiry       time.Duration
	LagExtension time.Duration
}

// BuffExpired is the payload of EventBuffExpired.
type BuffExpired struct {
	Name   string
	Stacks int
	Active time.Duration
}

// SkillUsed is the payload of EventSkillUsed.
type SkillUsed struct {
	Skill    skill.ID
	State    skill.State
	Cooldown time.Duration
	Indirect bool
}

// CooldownReduced is the payload of EventCooldownReduced.
type CooldownReduced struct {
	Skill  skill.ID
	Amount time.Duration
	Cause  skill.ID
}

// CooldownReset is the payload of EventCooldownReset.
type CooldownReset struct {
	Skill skill.ID
	Cause skill.ID // empty for a cooldown-reset roll
}

// SummonCreated is the payload of EventSummonCreated.
type SummonCreated struct {
	Summon ecs.Entity
	Skill  skill.ID
	EndsAt time.Duration
}

// SummonAttack is the payload of EventSummonAttack.
type SummonAttack struct {
	Summon ecs.Entity
	Skill  skill.ID
	Damage float64
	Attack int
}

// SummonDestroyed is the payload of EventSummonDestroyed.
type SummonDestroyed struct {
	Summon  ecs.Entity
	Skill   skill.ID
	Attacks int
}

// GaugeCharged is the payload of EventGaugeCharged.
type GaugeCharged struct {
	Skill    skill.ID
	Pool     skill.State
	Amount   int
	Value    int
	Full     bool
	Enhanced bool
	Missed   bool
}
