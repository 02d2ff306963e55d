package system

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lumisim/internal/game/component"
	"github.com/cory-johannsen/lumisim/internal/game/dice"
	"github.com/cory-johannsen/lumisim/internal/game/ecs"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

// Damage formula constants.
const (
	// minMitigation is the floor of the combined level, defense and resist multiplier.
	minMitigation = 0.01
	// levelPenaltyStep is the multiplier change per level of difference.
	levelPenaltyStep = 0.01
	// maxLevelAdvantage caps the levels above the target that still add damage.
	maxLevelAdvantage = 5
	// additionalHitRatio is the partial additional-hit multiplier.
	additionalHitRatio = 0.5
)

// DamageOptions tune one damage calculation.
type DamageOptions struct {
	// Indirect marks an auto-fired skill; indirect damage never fires further skills.
	Indirect bool
}

// DamageResult is the outcome of one CalculateAndApplyDamage call.
type DamageResult struct {
	Skill     skill.ID
	Element   skill.Element
	Category  skill.Category
	State     skill.State // caster state when the damage was calculated
	Caster    ecs.Entity
	Source    ecs.Entity
	Target    ecs.Entity
	Total     float64
	Critical  bool
	Missed    bool
	Indirect  bool
	Breakdown Breakdown
}

// DamageHook runs synchronously after damage is committed.
type DamageHook func(w *ecs.World, res DamageResult)

// DamageSystem is the only writer of DamageLedger and EnemyStats.
type DamageSystem struct {
	roller *dice.Roller
	hooks  []DamageHook
	logger *zap.Logger
}

// NewDamageSystem creates a DamageSystem.
func NewDamageSystem(roller *dice.Roller, logger *zap.Logger) *DamageSystem {
	return &DamageSystem{roller: roller, logger: logger}
}

// Name implements ecs.System.
func (d *DamageSystem) Name() string { return "damage" }

// Update is a no-op: damage is committed through CalculateAndApplyDamage.
func (d *DamageSystem) Update(_ *ecs.World, _ time.Duration) {}

// AddHook registers h to run after every committed damage instance, in registration order.
func (d *DamageSystem) AddHook(h DamageHook) {
	d.hooks = append(d.hooks, h)
}

// CalculateAndApplyDamage computes the damage of skill id from attacker against
// target, applies it to the target, records it in the caster's ledger, emits
// EventDamageDealt on the caster and then runs the post-damage hooks.
//
// The caster is attacker itself, or the owner when attacker is a summon.
// A direct skill against a finite-HP target that is already dead misses:
// nothing is dealt or recorded and the result has Missed set.
//
// Postcondition: Returns a zero DamageResult with no side effects when a
// required component is missing or id is unknown.
func (d *DamageSystem) CalculateAndApplyDamage(w *ecs.World, attacker, target ecs.Entity, id skill.ID, opts DamageOptions) DamageResult {
	caster := attacker
	if s, ok := ecs.Get(w, attacker, component.SummonKind); ok {
		caster = s.Owner
	}
	const op = "damage.calculate"
	stats, ok := lookup(w, caster, component.StatsKind, d.logger, op)
	if !ok {
		return DamageResult{}
	}
	st, ok := lookup(w, caster, component.StateKind, d.logger, op)
	if !ok {
		return DamageResult{}
	}
	learned, ok := lookup(w, caster, component.LearnedKind, d.logger, op)
	if !ok {
		return DamageResult{}
	}
	ledger, ok := lookup(w, caster, component.LedgerKind, d.logger, op)
	if !ok {
		return DamageResult{}
	}
	enemy, ok := lookup(w, target, component.EnemyKind, d.logger, op)
	if !ok {
		return DamageResult{}
	}
	eff, ok := learned.Effective(id, st.Current)
	if !ok {
		d.logger.Warn("unknown skill", zap.String("op", op), zap.String("skill", string(id)))
		return DamageResult{}
	}

	res := DamageResult{
		Skill:    id,
		Element:  eff.Element,
		Category: eff.Category,
		State:    st.Current,
		Caster:   caster,
		Source:   attacker,
		Target:   target,
		Indirect: opts.Indirect,
	}
	if enemy.Dead() {
		res.Missed = true
		w.Emit(EventDamageDealt, caster, d.payload(res))
		d.runHooks(w, res)
		return res
	}

	var buffs []*component.Buff
	if b, ok := ecs.Get(w, caster, component.BuffsKind); ok {
		buffs = b.All()
	}
	bd := d.breakdown(stats.Clamped(), eff, enemy, st.Current, buffs)
	res.Critical = d.roller.Chance("crit", bd.CritRate)
	if !res.Critical {
		bd.CritMultiplier = 1
	}
	// Damage% is in damage units: 800% at a stat value of 1 is 800 per hit.
	bd.PerHit = bd.StatValue * bd.DamagePercent * bd.DamageIncrease * bd.BossMultiplier *
		bd.FinalMultiplier * bd.Mitigation * bd.Mastery * bd.CritMultiplier
	hits := float64(bd.HitCount)
	res.Total = bd.PerHit*hits + bd.PerHit*bd.AdditionalMultiplier*hits
	res.Breakdown = bd

	enemy.ApplyDamage(res.Total)
	ledger.Record(component.DamageRecord{
		Skill:    id,
		Amount:   res.Total,
		Time:     w.Now(),
		Critical: res.Critical,
		Source:   attacker,
	})
	w.Emit(EventDamageDealt, caster, d.payload(res))
	d.logger.Debug("damage dealt",
		zap.String("skill", string(id)),
		zap.Float64("total", res.Total),
		zap.Bool("critical", res.Critical),
		zap.Bool("indirect", res.Indirect),
	)
	d.runHooks(w, res)
	return res
}

func (d *DamageSystem) runHooks(w *ecs.World, res DamageResult) {
	for _, h := range d.hooks {
		h(w, res)
	}
}

func (d *DamageSystem) payload(res DamageResult) DamageDealt {
	return DamageDealt{
		Skill:     res.Skill,
		Source:    res.Source,
		Target:    res.Target,
		Total:     res.Total,
		Critical:  res.Critical,
		Missed:    res.Missed,
		Indirect:  res.Indirect,
		Breakdown: res.Breakdown,
	}
}

// breakdown computes every multiplier except the crit decision, and rolls mastery.
func (d *DamageSystem) breakdown(stats component.Stats, eff skill.Effective, enemy *component.EnemyStats, state skill.State, buffs []*component.Buff) Breakdown {
	var sum skill.Effects
	dmgInc := 1 + stats.DamagePercent/100
	final := 1 + eff.FinalDamagePercent/100
	for _, b := range buffs {
		n := float64(b.Stacks)
		dmgInc *= 1 + b.Effects.DamagePercent*n/100
		final *= 1 + b.Effects.FinalDamagePercent*n/100
		sum.BossDamagePercent += b.Effects.BossDamagePercent * n
		sum.CritRate += b.Effects.CritRate * n
		sum.CritDamage += b.Effects.CritDamage * n
		sum.IgnoreDefense += b.Effects.IgnoreDefense * n
	}

	penalty := LevelPenalty(stats.Level, enemy.Level)
	ied := math.Min(100, stats.IgnoreDefense+sum.IgnoreDefense+eff.IgnoreDefense)
	effDef := math.Max(0, enemy.DefenseRate-ied)
	effRes := math.Max(0, enemy.ElementalResist-math.Min(100, stats.IgnoreResist))
	mitigation := math.Max(minMitigation, penalty*(1-effDef/100)*(1-effRes/100))

	return Breakdown{
		StatValue:            stats.StatValue(),
		DamagePercent:        eff.DamagePercent,
		HitCount:             eff.HitCount,
		DamageIncrease:       dmgInc,
		BossMultiplier:       1 + (stats.BossDamagePercent+sum.BossDamagePercent)/100,
		FinalMultiplier:      final,
		LevelPenalty:         penalty,
		EffectiveDefense:     effDef,
		EffectiveResist:      effRes,
		Mitigation:           mitigation,
		Mastery:              d.roller.Uniform("mastery", stats.Mastery/100, 1).Value,
		CritRate:             math.Min(100, stats.CritRate+eff.CritRateBonus+sum.CritRate),
		CritMultiplier:       1 + (stats.CritDamage+sum.CritDamage)/100,
		AdditionalMultiplier: AdditionalHitMultiplier(eff.Element, state),
	}
}

// LevelPenalty returns the damage multiplier for a caster of level attacker
// hitting a target of level defender: 1% less per level under the target,
// 1% more per level over it up to 5 levels.
//
// Postcondition: result >= 0.01.
func LevelPenalty(attacker, defender int) float64 {
	diff := defender - attacker
	if diff > 0 {
		return math.Max(minMitigation, 1-levelPenaltyStep*float64(diff))
	}
	return 1 + levelPenaltyStep*float64(min(-diff, maxLevelAdvantage))
}

// AdditionalHitMultiplier returns the extra-hit ratio for a skill of element
// used in state: Equilibrium-element skills repeat fully in Equilibrium and
// at half strength otherwise; Light and Dark skills repeat at half strength
// only in their own state.
func AdditionalHitMultiplier(element skill.Element, state skill.State) float64 {
	switch element {
	case skill.ElementEquilibrium:
		if state == skill.StateEquilibrium {
			return 1
		}
		return additionalHitRatio
	case skill.ElementLight, skill.ElementDark:
		if element.Matches(state) {
			return additionalHitRatio
		}
	}
	return 0
}
