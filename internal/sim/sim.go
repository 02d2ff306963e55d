// Package sim assembles a World from configuration and drives it with a
// skill-selection policy.
package sim

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/lumisim/internal/config"
	"github.com/cory-johannsen/lumisim/internal/game/component"
	"github.com/cory-johannsen/lumisim/internal/game/dice"
	"github.com/cory-johannsen/lumisim/internal/game/ecs"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
	"github.com/cory-johannsen/lumisim/internal/game/system"
	"github.com/cory-johannsen/lumisim/internal/observability"
)

// TriggerAction is the policy choice that enters a pending Equilibrium in manual mode.
const TriggerAction skill.ID = "trigger_equilibrium"

// Policy picks the next action. An empty ID means wait.
type Policy interface {
	Choose(c CharacterSnapshot, s SimulationSnapshot) (skill.ID, error)
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(c CharacterSnapshot, s SimulationSnapshot) (skill.ID, error)

// Choose calls f.
func (f PolicyFunc) Choose(c CharacterSnapshot, s SimulationSnapshot) (skill.ID, error) {
	return f(c, s)
}

// Options override the collaborators New would otherwise build from configuration.
type Options struct {
	// Registry defaults to the embedded skill tables.
	Registry *skill.Registry
	// Source defaults to a seeded source when the configured seed is non-zero,
	// otherwise a cryptographic source.
	Source dice.Source
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Simulation is one character fighting one target in its own World.
type Simulation struct {
	ID      uuid.UUID
	world   *ecs.World
	systems *system.Systems
	reg     *skill.Registry
	caster  ecs.Entity
	target  ecs.Entity
	tick    time.Duration
	limit   time.Duration
	logger  *zap.Logger
}

// Result summarises a finished Run.
type Result struct {
	ID         uuid.UUID
	Elapsed    time.Duration
	Steps      int
	Total      float64
	Killed     bool
	TimeToKill time.Duration
}

// New builds a Simulation from cfg.
//
// Precondition: cfg must have passed Validate.
// Postcondition: Returns a Simulation at time zero or an error naming every
// unknown skill in the enhancement levels.
func New(cfg config.Config, opts Options) (*Simulation, error) {
	reg := opts.Registry
	if reg == nil {
		var err error
		if reg, err = skill.LoadEmbedded(); err != nil {
			return nil, err
		}
	}
	src := opts.Source
	if src == nil {
		if cfg.Simulation.Seed != 0 {
			src = dice.NewSeededSource(cfg.Simulation.Seed)
		} else {
			src = dice.NewCryptoSource()
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ch := cfg.Character
	tier, err := skill.ParseCooldownTier(ch.CooldownTier)
	if err != nil {
		return nil, fmt.Errorf("character.cooldown_tier: %w", err)
	}
	initial, err := skill.ParseState(ch.InitialState)
	if err != nil {
		return nil, fmt.Errorf("character.initial_state: %w", err)
	}
	mode := component.EquilibriumAuto
	if ch.EquilibriumMode == "manual" {
		mode = component.EquilibriumManual
	}

	id := uuid.New()
	logger = observability.ForRun(logger, id.String(), cfg.Simulation.Seed)
	learned, err := learnedFromConfig(reg, ch, logger)
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		ID:     id,
		world:  ecs.NewWorld(),
		reg:    reg,
		tick:   cfg.Simulation.Tick,
		limit:  cfg.Simulation.Duration,
		logger: logger,
	}
	s.systems = system.New(reg, dice.NewLoggedRoller(src, logger), system.LagConfig{
		Enabled: cfg.Lag.Enabled,
		Chance:  cfg.Lag.Chance,
		Max:     cfg.Lag.Max,
	}, logger)
	s.systems.Register(s.world)

	stats := ch.Stats(tier)

	w := s.world
	s.caster = w.CreateEntity()
	ecs.Add(w, s.caster, component.StatsKind, &stats)
	ecs.Add(w, s.caster, component.StateKind, component.NewState(initial, mode))
	ecs.Add(w, s.caster, component.GaugeKind, component.NewGauge(reg.Rules().MaxGauge))
	ecs.Add(w, s.caster, component.CooldownsKind, component.NewCooldowns())
	ecs.Add(w, s.caster, component.BuffsKind, component.NewBuffs())
	ecs.Add(w, s.caster, component.LedgerKind, component.NewDamageLedger())
	ecs.Add(w, s.caster, component.LearnedKind, learned)

	s.target = w.CreateEntity()
	ecs.Add(w, s.target, component.EnemyKind, component.NewEnemyStats(
		cfg.Target.Level, cfg.Target.MaxHP, cfg.Target.DefenseRate, cfg.Target.ElementalResist,
	))

	logger.Info("simulation created",
		zap.Stringer("initial_state", initial),
		zap.Stringer("mode", mode),
		zap.Duration("tick", s.tick),
		zap.Duration("duration", s.limit),
	)
	return s, nil
}

// learnedFromConfig applies configured enhancement levels. Levels for linked
// skills are ignored with a warning; unknown skill ids are errors.
func learnedFromConfig(reg *skill.Registry, ch config.CharacterConfig, logger *zap.Logger) (*component.Learned, error) {
	learned := component.NewLearned(reg)
	var errs []error
	for _, id := range sortedKeys(ch.Fifth) {
		if _, ok := reg.Get(skill.ID(id)); !ok {
			errs = append(errs, fmt.Errorf("character.fifth: unknown skill %q", id))
			continue
		}
		learned.SetFifth(skill.ID(id), ch.Fifth[id])
	}
	for _, id := range sortedKeys(ch.Sixth) {
		if _, ok := reg.Get(skill.ID(id)); !ok {
			errs = append(errs, fmt.Errorf("character.sixth: unknown skill %q", id))
			continue
		}
		if !learned.SetSixth(skill.ID(id), ch.Sixth[id]) {
			parent, _ := reg.Parent(skill.ID(id))
			logger.Warn("sixth-tier level of linked skill ignored",
				zap.String("skill", id),
				zap.String("follows", string(parent)),
			)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid enhancement levels: %w", errors.Join(errs...))
	}
	return learned, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, strings.Compare)
	return keys
}

// World returns the simulation's World for event subscription.
func (s *Simulation) World() *ecs.World { return s.world }

// Caster returns the character entity.
func (s *Simulation) Caster() ecs.Entity { return s.caster }

// Target returns the target entity.
func (s *Simulation) Target() ecs.Entity { return s.target }

// Registry returns the skill tables in use.
func (s *Simulation) Registry() *skill.Registry { return s.reg }

// Systems returns the simulation's systems.
func (s *Simulation) Systems() *system.Systems { return s.systems }

// Now returns the current simulation time.
func (s *Simulation) Now() time.Duration { return s.world.Now() }

// Step advances the world by one tick.
func (s *Simulation) Step() {
	s.world.Update(s.tick)
}

// Busy reports whether the character is still casting.
func (s *Simulation) Busy() bool {
	return s.world.Has(s.caster, component.ActionDelayKind.Kind())
}

// Done reports whether a finite-HP target has been defeated.
func (s *Simulation) Done() bool {
	enemy, ok := ecs.Get(s.world, s.target, component.EnemyKind)
	return ok && enemy.Dead()
}

// TryUseSkill uses id now if the character is not casting.
//
// Postcondition: Returns true iff the skill was used.
func (s *Simulation) TryUseSkill(id skill.ID) bool {
	if s.Busy() {
		return false
	}
	return s.systems.Skill.TryUseSkill(s.world, s.caster, s.target, id)
}

// TriggerEquilibrium enters a pending Equilibrium. It is how manual mode
// releases a full gauge.
//
// Postcondition: Returns false if nothing is pending.
func (s *Simulation) TriggerEquilibrium() bool {
	return s.systems.State.Trigger(s.world, s.caster)
}

// Run drives the simulation with p until duration has elapsed, a finite-HP
// target dies, or ctx is cancelled. Each step the policy acts first when the
// character is idle, then the world advances one tick. duration <= 0 uses the
// configured simulation length.
//
// Postcondition: Returns the run result; err is non-nil only on cancellation
// or a policy failure.
func (s *Simulation) Run(ctx context.Context, p Policy, duration time.Duration) (Result, error) {
	if duration <= 0 {
		duration = s.limit
	}
	res := Result{ID: s.ID}
	for s.Now() < duration && !s.Done() {
		if err := ctx.Err(); err != nil {
			return s.finish(res), fmt.Errorf("simulation cancelled at %s: %w", s.Now(), err)
		}
		if !s.Busy() {
			if err := s.act(p, duration); err != nil {
				return s.finish(res), err
			}
		}
		if s.Done() {
			break
		}
		s.Step()
		res.Steps++
	}
	return s.finish(res), nil
}

func (s *Simulation) act(p Policy, duration time.Duration) error {
	c, sim := s.Snapshot()
	sim.Duration = duration
	id, err := p.Choose(c, sim)
	if err != nil {
		return fmt.Errorf("policy at %s: %w", s.Now(), err)
	}
	switch id {
	case "":
	case TriggerAction:
		s.TriggerEquilibrium()
	default:
		if !s.TryUseSkill(id) {
			s.logger.Debug("policy choice rejected", zap.String("skill", string(id)))
		}
	}
	return nil
}

func (s *Simulation) finish(res Result) Result {
	res.Elapsed = s.Now()
	if ledger, ok := ecs.Get(s.world, s.caster, component.LedgerKind); ok {
		res.Total = ledger.Total()
	}
	if s.Done() {
		res.Killed = true
		res.TimeToKill = s.Now()
	}
	s.logger.Info("simulation finished",
		zap.Duration("elapsed", res.Elapsed),
		zap.Int("steps", res.Steps),
		zap.Float64("total", res.Total),
		zap.Bool("killed", res.Killed),
	)
	return res
}
