package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lumisim/internal/game/component"
	"github.com/cory-johannsen/lumisim/internal/game/dice"
	"github.com/cory-johannsen/lumisim/internal/game/ecs"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

// LagConfig models server lag extending buff expiry.
type LagConfig struct {
	Enabled bool
	Chance  float64       // percent chance a buff application is delayed
	Max     time.Duration // upper bound of the uniform extension
}

// BuffSystem is the only writer of Buffs.
type BuffSystem struct {
	roller *dice.Roller
	lag    LagConfig
	logger *zap.Logger
}

// NewBuffSystem creates a BuffSystem.
func NewBuffSystem(roller *dice.Roller, lag LagConfig, logger *zap.Logger) *BuffSystem {
	return &BuffSystem{roller: roller, lag: lag, logger: logger}
}

// Name implements ecs.System.
func (b *BuffSystem) Name() string { return "buff" }

// Apply adds or refreshes the buff name on e.
//
// The actual duration is spec.Duration scaled by the caster's buff-duration
// increase unless spec.DurationImmune. With lag modelling enabled, a buff that
// is not lag-immune may receive a uniform whole-millisecond extension in [0, Max].
// Re-applying a buff refreshes its timers and adds one stack up to MaxStacks.
//
// Precondition: name is non-empty.
// Postcondition: Returns the stored buff and true; false when e lacks Buffs.
func (b *BuffSystem) Apply(w *ecs.World, e ecs.Entity, name string, source skill.ID, spec skill.BuffSpec) (*component.Buff, bool) {
	buffs, ok := lookup(w, e, component.BuffsKind, b.logger, "buff.apply")
	if !ok {
		return nil, false
	}
	actual := spec.Duration
	if !spec.DurationImmune {
		if stats, ok := ecs.Get(w, e, component.StatsKind); ok {
			actual = time.Duration(float64(actual) * (1 + stats.BuffDuration/100))
		}
	}
	now := w.Now()
	maxStacks := max(spec.MaxStacks, 1)

	buf, exists := buffs.Get(name)
	if !exists {
		buf = &component.Buff{Name: name}
	}
	stacks := 1
	if exists {
		stacks = min(buf.Stacks+1, maxStacks)
	}
	*buf = component.Buff{
		Name:           name,
		Source:         source,
		BaseDuration:   spec.Duration,
		ActualDuration: actual,
		Start:          now,
		End:            now + actual,
		LagAdjustedEnd: now + actual,
		Stacks:         stacks,
		MaxStacks:      maxStacks,
		DurationImmune: spec.DurationImmune,
		LagImmune:      spec.LagImmune,
		Effects:        spec.Effects,
	}
	var ext time.Duration
	if b.lag.Enabled && !spec.LagImmune {
		buf.LagModeled = true
		if b.roller.Chance("server lag", b.lag.Chance) {
			ms := b.roller.Intn("server lag ms", max(int(b.lag.Max.Milliseconds()), 0)+1)
			ext = time.Duration(ms) * time.Millisecond
			buf.LagAdjustedEnd += ext
		}
	}
	buffs.Put(buf)

	w.Emit(EventBuffApplied, e, BuffApplied{
		Name:         name,
		Source:       source,
		Stacks:       stacks,
		Duration:     actual,
		Expiry:       buf.Expiry(),
		LagExtension: ext,
	})
	b.logger.Debug("buff applied",
		zap.String("buff", name),
		zap.Int("stacks", stacks),
		zap.Duration("expiry", buf.Expiry()),
	)
	return buf, true
}

// SetExpiry moves the end of buff name on e to end, keeping lag adjustment in step.
//
// Postcondition: Returns false if e has no such buff.
func (b *BuffSystem) SetExpiry(w *ecs.World, e ecs.Entity, name string, end time.Duration) bool {
	buffs, ok := ecs.Get(w, e, component.BuffsKind)
	if !ok {
		return false
	}
	buf, ok := buffs.Get(name)
	if !ok {
		return false
	}
	lag := buf.LagAdjustedEnd - buf.End
	buf.End = end
	buf.LagAdjustedEnd = end + lag
	buf.ActualDuration = end - buf.Start
	return true
}

// Remove deletes buff name from e and emits EventBuffExpired.
//
// Postcondition: Returns false if e has no such buff.
func (b *BuffSystem) Remove(w *ecs.World, e ecs.Entity, name string) bool {
	buffs, ok := ecs.Get(w, e, component.BuffsKind)
	if !ok {
		return false
	}
	buf, ok := buffs.Get(name)
	if !ok {
		return false
	}
	buffs.Remove(name)
	w.Emit(EventBuffExpired, e, BuffExpired{Name: name, Stacks: buf.Stacks, Active: w.Now() - buf.Start})
	return true
}

// Update removes every buff whose effective expiry has passed, emitting one
// EventBuffExpired per buff.
func (b *BuffSystem) Update(w *ecs.World, _ time.Duration) {
	now := w.Now()
	for _, e := range w.Query(component.BuffsKind.Kind()) {
		buffs, _ := ecs.Get(w, e, component.BuffsKind)
		for _, name := range buffs.Expired(now) {
			b.Remove(w, e, name)
		}
	}
}
