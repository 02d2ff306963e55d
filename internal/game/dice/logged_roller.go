package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged rolls.
// All rolls are logged at debug level with purpose, range, and value.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Uniform returns a value uniformly distributed in [low, high).
// When low >= high the result is low and the source is not consumed.
//
// Postcondition: result logged; low <= result.Value.
func (r *Roller) Uniform(purpose string, low, high float64) RollResult {
	res := RollResult{Purpose: purpose, Low: low, High: high, Value: low}
	if high > low {
		res.Value = low + (high-low)*r.src.Float64()
	}
	r.log(res)
	return res
}

// Percent returns a value uniformly distributed in [0, 100).
func (r *Roller) Percent(purpose string) RollResult {
	res := RollResult{Purpose: purpose, Low: 0, High: 100, Value: r.src.Float64() * 100}
	r.log(res)
	return res
}

// Chance reports whether a percent roll lands below pct.
// pct <= 0 never succeeds and pct >= 100 always succeeds; neither consumes the source.
func (r *Roller) Chance(purpose string, pct float64) bool {
	switch {
	case pct <= 0:
		return false
	case pct >= 100:
		return true
	}
	return r.Percent(purpose).Value < pct
}

// Intn returns a logged int in [0, n).
//
// Precondition: n > 0.
func (r *Roller) Intn(purpose string, n int) int {
	v := r.src.Intn(n)
	r.logger.Debug("dice roll",
		zap.String("purpose", purpose),
		zap.Int("n", n),
		zap.Int("value", v),
	)
	return v
}

func (r *Roller) log(res RollResult) {
	r.logger.Debug("dice roll",
		zap.String("purpose", res.Purpose),
		zap.Float64("low", res.Low),
		zap.Float64("high", res.High),
		zap.Float64("value", res.Value),
	)
}
