package component

import (
	"math"

	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

// Stat bounds applied by Clamped.
const (
	MaxCharacterLevel    = 300
	MaxCooldownReduction = 60.0 // seconds
)

// Stats is the caster's stat block. Percent fields are whole percentages (25 = 25%).
type Stats struct {
	Level               int
	Attack              float64 // primary stat
	Luck                float64 // secondary stat
	MagicAttack         float64
	DamagePercent       float64
	BossDamagePercent   float64
	CritRate            float64
	CritDamage          float64
	IgnoreDefense       float64
	IgnoreResist        float64
	Mastery             float64
	BuffDuration        float64
	CooldownReduction   float64 // seconds
	CooldownResetChance float64
	CooldownTier        skill.CooldownTier
}

// StatValue returns the stat-derived damage scale: (4 × Attack + Luck) × MagicAttack / 100.
// A stat block without magic attack is treated as normalized and scales by 1.
//
// Postcondition: result > 0.
func (s Stats) StatValue() float64 {
	if s.MagicAttack <= 0 {
		return 1
	}
	v := (4*s.Attack + s.Luck) * s.MagicAttack / 100
	if v <= 0 {
		return 1
	}
	return v
}

// Clamped returns a copy with every field saturated into its documented range.
//
// Postcondition: percentages that act as probabilities or fractions are in [0, 100];
// other percentages and stats are >= 0; Level is in [1, MaxCharacterLevel].
func (s Stats) Clamped() Stats {
	s.Level = int(clamp(float64(s.Level), 1, MaxCharacterLevel))
	s.Attack = math.Max(0, s.Attack)
	s.Luck = math.Max(0, s.Luck)
	s.MagicAttack = math.Max(0, s.MagicAttack)
	s.DamagePercent = math.Max(0, s.DamagePercent)
	s.BossDamagePercent = math.Max(0, s.BossDamagePercent)
	s.CritRate = clamp(s.CritRate, 0, 100)
	s.CritDamage = math.Max(0, s.CritDamage)
	s.IgnoreDefense = clamp(s.IgnoreDefense, 0, 100)
	s.IgnoreResist = clamp(s.IgnoreResist, 0, 100)
	s.Mastery = clamp(s.Mastery, 0, 100)
	s.BuffDuration = math.Max(0, s.BuffDuration)
	s.CooldownReduction = clamp(s.CooldownReduction, 0, MaxCooldownReduction)
	s.CooldownResetChance = clamp(s.CooldownResetChance, 0, 100)
	if s.CooldownTier < skill.CooldownTierNone || s.CooldownTier > skill.CooldownTierHigh {
		s.CooldownTier = skill.CooldownTierNone
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
