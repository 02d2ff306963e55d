package component

import "github.com/cory-johannsen/lumisim/internal/game/skill"

// DefaultMaxGauge is the capacity of each pool.
const DefaultMaxGauge = 10000

// Gauge holds the Light and Dark resource pools.
//
// Invariant: 0 <= Light, Dark <= Max.
type Gauge struct {
	Light int
	Dark  int
	Max   int
}

// NewGauge returns empty pools of the given capacity (DefaultMaxGauge when capacity <= 0).
func NewGauge(capacity int) *Gauge {
	if capacity <= 0 {
		capacity = DefaultMaxGauge
	}
	return &Gauge{Max: capacity}
}

// PoolFor returns the pool charged while in current heading to next: the pool
// opposite the current polarity, or opposite next during Equilibrium.
func PoolFor(current, next skill.State) skill.State {
	if current == skill.StateEquilibrium {
		return next.Opposite()
	}
	return current.Opposite()
}

// Value returns the fill of pool. StateEquilibrium has no pool and returns 0.
func (g *Gauge) Value(pool skill.State) int {
	switch pool {
	case skill.StateLight:
		return g.Light
	case skill.StateDark:
		return g.Dark
	default:
		return 0
	}
}

// Charge adds amount to pool, saturating at [0, Max].
//
// Postcondition: Returns the amount actually added and whether the pool is full.
func (g *Gauge) Charge(pool skill.State, amount int) (int, bool) {
	p := g.pool(pool)
	if p == nil {
		return 0, false
	}
	before := *p
	next := before + amount
	if next > g.Max {
		next = g.Max
	}
	if next < 0 {
		next = 0
	}
	*p = next
	return next - before, next >= g.Max
}

// Reset empties pool.
func (g *Gauge) Reset(pool skill.State) {
	if p := g.pool(pool); p != nil {
		*p = 0
	}
}

func (g *Gauge) pool(pool skill.State) *int {
	switch pool {
	case skill.StateLight:
		return &g.Light
	case skill.StateDark:
		return &g.Dark
	default:
		return nil
	}
}
