package component

import "math"

// EnemyStats is the target's defensive stat block.
//
// Invariant: 0 <= CurrentHP <= MaxHP unless the target is unbounded, in which
// case HP is not tracked.
type EnemyStats struct {
	Level           int
	MaxHP           float64 // <= 0 means unbounded
	CurrentHP       float64
	DefenseRate     float64 // percent
	ElementalResist float64 // percent
}

// NewEnemyStats returns a target at full HP. maxHP <= 0 disables HP tracking;
// percentages are clamped to [0, 100].
func NewEnemyStats(level int, maxHP, defenseRate, elementalResist float64) *EnemyStats {
	if maxHP < 0 {
		maxHP = 0
	}
	return &EnemyStats{
		Level:           max(level, 1),
		MaxHP:           maxHP,
		CurrentHP:       maxHP,
		DefenseRate:     clamp(defenseRate, 0, 100),
		ElementalResist: clamp(elementalResist, 0, 100),
	}
}

// Unbounded reports whether HP tracking is disabled.
func (e *EnemyStats) Unbounded() bool { return e.MaxHP <= 0 }

// Dead reports whether a tracked target has no HP left.
func (e *EnemyStats) Dead() bool { return !e.Unbounded() && e.CurrentHP <= 0 }

// ApplyDamage subtracts amount from CurrentHP, saturating at zero.
//
// Postcondition: Returns the HP actually removed (amount itself when unbounded).
func (e *EnemyStats) ApplyDamage(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	if e.Unbounded() {
		return amount
	}
	removed := math.Min(amount, e.CurrentHP)
	e.CurrentHP -= removed
	return removed
}
