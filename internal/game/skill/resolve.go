package skill

import (
	"math"
	"time"
)

// Levels exposes a character's enhancement levels to the resolver.
// Sixth must already honour linked skills.
type Levels interface {
	Fifth(id ID) int
	Sixth(id ID) int
}

// Resolve derives the effective data for id used in state, in this order:
//  1. the state variant, if the skill defines one for state;
//  2. sixth-tier overrides at the skill's sixth level (state-keyed damage first);
//  3. the fifth-tier multiplier 1 + fifth × FifthTierStep, if the skill has one;
//  4. flat damage% granted by other skills at their fifth level.
//
// Postcondition: Returns (Effective{}, false) if id is unknown.
func (r *Registry) Resolve(id ID, state State, levels Levels) (Effective, bool) {
	def, ok := r.defs[id]
	if !ok {
		return Effective{}, false
	}
	eff := Effective{
		ID:                  def.ID,
		Element:             def.Element,
		Category:            def.Category,
		DamagePercent:       def.DamagePercent,
		HitCount:            def.HitCount,
		Cooldown:            def.Cooldown,
		GaugeCharge:         def.GaugeCharge,
		EnhancedGaugeCharge: def.EnhancedGaugeCharge,
		IgnoreDefense:       def.IgnoreDefense,
		CritRateBonus:       def.CritRateBonus,
	}

	if v, ok := def.Variants[state]; ok {
		if v.DamagePercent != nil {
			eff.DamagePercent = *v.DamagePercent
		}
		if v.HitCount != nil {
			eff.HitCount = *v.HitCount
		}
		if v.Cooldown != nil {
			eff.Cooldown = *v.Cooldown
		}
		if v.GaugeCharge != nil {
			eff.GaugeCharge = *v.GaugeCharge
			eff.EnhancedGaugeCharge = *v.GaugeCharge
		}
		if v.IgnoreDefense != nil {
			eff.IgnoreDefense = *v.IgnoreDefense
		}
	}

	if six := def.Sixth; six != nil {
		if lvl := levels.Sixth(id); lvl > 0 {
			if c, ok := six.DamageByState[state]; ok {
				eff.DamagePercent = c.At(lvl)
			} else if six.DamagePercent != nil {
				eff.DamagePercent = six.DamagePercent.At(lvl)
			}
			if six.Cooldown != nil {
				eff.Cooldown = Seconds(math.Max(0, six.Cooldown.At(lvl)))
			}
			if six.GaugeCharge != nil {
				g := int(math.Round(six.GaugeCharge.At(lvl)))
				eff.GaugeCharge = g
				eff.EnhancedGaugeCharge = g
			}
			if six.IgnoreDefense != nil {
				eff.IgnoreDefense = six.IgnoreDefense.At(lvl)
			}
			if six.FinalDamage != nil {
				eff.FinalDamagePercent = six.FinalDamage.At(lvl)
			}
		}
	}

	if def.FifthTier {
		eff.DamagePercent *= 1 + float64(levels.Fifth(id))*r.rules.FifthTierStep
	}

	for _, g := range r.grantsTo[id] {
		if lvl := levels.Fifth(g.from); lvl > 0 {
			eff.DamagePercent += g.bonus.At(lvl)
		}
	}
	return eff, true
}

// Cooldown reduction constants.
const (
	// MinReducedCooldown is the floor flat reduction cannot push a cooldown below.
	MinReducedCooldown = 5 * time.Second
	// flatThreshold is where flat reduction switches from seconds to percent.
	flatThreshold = 10.0
	// percentPerSecond is the cooldown fraction removed per reduction second below flatThreshold.
	percentPerSecond = 0.05
)

// AdjustCooldown applies a character's cooldown tier and flat reduction seconds to base:
// the tier percentage first, then one second per reduction second while the
// cooldown is at least 10s, then 5% per remaining reduction second. Flat
// reduction never pushes a cooldown below 5s (or below its tier-reduced value
// when that is already shorter). Skills with a base under 5s only receive the tier.
//
// Postcondition: 0 <= result <= base; result is a whole number of milliseconds.
func AdjustCooldown(base time.Duration, tier CooldownTier, reductionSec float64) time.Duration {
	if base <= 0 {
		return 0
	}
	secs := base.Seconds() * (1 - tier.Percent()/100)
	if base >= MinReducedCooldown && reductionSec > 0 {
		floor := math.Min(secs, MinReducedCooldown.Seconds())
		flat := math.Min(reductionSec, math.Max(0, secs-flatThreshold))
		secs -= flat
		if rest := reductionSec - flat; rest > 0 {
			secs *= 1 - percentPerSecond*rest
		}
		secs = math.Max(secs, floor)
	}
	return time.Duration(math.Round(secs*1000)) * time.Millisecond
}
