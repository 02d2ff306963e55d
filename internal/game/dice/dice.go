// Package dice provides the randomness abstraction and roll records used by
// the simulator's probabilistic checks: mastery, critical hits, cooldown
// resets and server lag.
package dice

import "fmt"

// RollResult holds the audit trail for a single random roll.
//
// Postcondition: Value is in [Low, High] for a uniform roll, or in [0, 100) for
// a percent roll.
type RollResult struct {
	Purpose string  // what the roll decides, e.g. "crit"
	Low     float64 // lower bound of the rolled range
	High    float64 // upper bound of the rolled range
	Value   float64 // rolled value
}

// String returns a human-readable audit string in the format:
//
//	"crit [0, 100) → 42.5000"
//
// Precondition: r.Purpose is non-empty.
func (r RollResult) String() string {
	if r.Purpose == "" {
		panic("dice: RollResult.String() precondition violated: Purpose must be non-empty")
	}
	return fmt.Sprintf("%s [%g, %g) → %.4f", r.Purpose, r.Low, r.High, r.Value)
}

// Source is the randomness provider for every roll in the simulation.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0, 1).
	Float64() float64
}
