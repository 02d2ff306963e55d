package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lumisim/internal/game/component"
	"github.com/cory-johannsen/lumisim/internal/game/ecs"
)

// TimeSystem advances the world clock and clears elapsed action delays.
type TimeSystem struct {
	logger *zap.Logger
}

// NewTimeSystem creates a TimeSystem.
func NewTimeSystem(logger *zap.Logger) *TimeSystem {
	return &TimeSystem{logger: logger}
}

// Name implements ecs.System.
func (t *TimeSystem) Name() string { return "time" }

// Update advances the clock by dt and removes ActionDelay components that have elapsed.
//
// Postcondition: w.Now() increased by dt (when dt > 0).
func (t *TimeSystem) Update(w *ecs.World, dt time.Duration) {
	w.Advance(dt)
	now := w.Now()
	var done []ecs.Entity
	ecs.ForEach(w, component.ActionDelayKind, func(e ecs.Entity, d *component.ActionDelay) {
		if d.Until <= now {
			done = append(done, e)
		}
	})
	for _, e := range done {
		ecs.Remove(w, e, component.ActionDelayKind)
	}
}
