package skill

import (
	"slices"
	"time"
)

// EquilibriumBuff is the name of the buff mirroring an active Equilibrium.
const EquilibriumBuff = "equilibrium"

// Curve is a level-indexed linear value: Base + Increment × level.
type Curve struct {
	Base      float64 `yaml:"base"`
	Increment float64 `yaml:"increment"`
}

// At evaluates the curve at level.
func (c Curve) At(level int) float64 {
	return c.Base + c.Increment*float64(level)
}

// Variant overrides raw fields of a skill while the caster is in a given state.
// Nil fields keep the base value.
type Variant struct {
	DamagePercent *float64
	HitCount      *int
	Cooldown      *time.Duration
	GaugeCharge   *int
	IgnoreDefense *float64
}

// SixthTier lists the fields a sixth-tier mastery level overrides. A nil curve
// leaves the field alone. DamageByState takes precedence over DamagePercent
// for the states it names.
type SixthTier struct {
	DamagePercent *Curve
	DamageByState map[State]Curve
	Cooldown      *Curve // seconds
	GaugeCharge   *Curve
	IgnoreDefense *Curve
	FinalDamage   *Curve // percent, applied as its own multiplier
}

// Effects are additive stat deltas carried by a buff, per stack.
type Effects struct {
	DamagePercent      float64
	FinalDamagePercent float64
	BossDamagePercent  float64
	CritRate           float64
	CritDamage         float64
	IgnoreDefense      float64
}

// BuffSpec describes the buff a buff-category skill applies.
type BuffSpec struct {
	Duration       time.Duration
	MaxStacks      int
	DurationImmune bool // ignores buff-duration increase
	LagImmune      bool // never receives a server-lag extension
	Effects        Effects
}

// SummonSpec describes the periodic attacker a summon-category skill spawns.
type SummonSpec struct {
	Duration time.Duration
	Delay    time.Duration // before the first attack
	Interval time.Duration
}

// Trigger decides when an indirect skill auto-fires. An empty list matches anything.
type Trigger struct {
	Elements   []Element
	Categories []Category
	States     []State
}

// Matches reports whether a skill of element/category used in state fires the trigger.
func (t Trigger) Matches(e Element, c Category, s State) bool {
	if len(t.Elements) > 0 && !slices.Contains(t.Elements, e) {
		return false
	}
	if len(t.Categories) > 0 && !slices.Contains(t.Categories, c) {
		return false
	}
	if len(t.States) > 0 && !slices.Contains(t.States, s) {
		return false
	}
	return true
}

// Grant is a flat damage% bonus the owning skill gives to another skill,
// indexed by the owner's fifth-tier level.
type Grant struct {
	To    ID
	Bonus Curve
}

// Def is the static definition of one skill.
type Def struct {
	ID                  ID
	Name                string
	Element             Element
	Category            Category
	DamagePercent       float64
	HitCount            int
	GaugeCharge         int
	EnhancedGaugeCharge int
	Cooldown            time.Duration
	ActionDelay         time.Duration
	IgnoreDefense       float64
	CritRateBonus       float64
	EquilibriumOnly     bool
	OncePerCycle        bool
	CooldownImmune      bool // unaffected by character cooldown reduction
	EntersEquilibrium   bool
	ExtendsEquilibrium  time.Duration
	FifthTier           bool // has a fifth-tier damage multiplier
	Sixth               *SixthTier
	Variants            map[State]Variant
	Trigger             *Trigger
	Buff                *BuffSpec
	Summon              *SummonSpec
	Grants              []Grant
}

// LandingReduction shortens one skill's cooldown whenever an
// Equilibrium-exclusive skill deals damage.
type LandingReduction struct {
	Skill  ID
	Amount time.Duration
}

// Rules are the global balance constants shared by every system.
type Rules struct {
	MaxGauge                 int
	EquilibriumBase          time.Duration
	EquilibriumBonus         time.Duration // added for naturally filled gauges only
	EquilibriumEntryReset    ID
	Landing                  LandingReduction
	CooldownAccelerationBuff ID
	CooldownAcceleration     float64 // fraction, 0.10 = 10% faster
	MissChargeRatio          float64
	FifthTierStep            float64
}

// EquilibriumDuration returns the Equilibrium length for a buff-duration
// increase percentage. The Memorize variant does not receive the bonus.
func (r Rules) EquilibriumDuration(buffDurationPct float64, memorize bool) time.Duration {
	base := r.EquilibriumBase
	if !memorize {
		base += r.EquilibriumBonus
	}
	return time.Duration(float64(base) * (1 + buffDurationPct/100))
}

// Effective is the fully resolved data the damage pipeline consumes.
type Effective struct {
	ID                  ID
	Element             Element
	Category            Category
	DamagePercent       float64
	HitCount            int
	Cooldown            time.Duration // before character cooldown reduction
	GaugeCharge         int
	EnhancedGaugeCharge int
	IgnoreDefense       float64
	CritRateBonus       float64
	FinalDamagePercent  float64 // sixth-tier final damage bonus
}
