package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lumisim/internal/game/component"
	"github.com/cory-johannsen/lumisim/internal/game/dice"
	"github.com/cory-johannsen/lumisim/internal/game/ecs"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

// SkillDeps are the systems a skill use commits through.
type SkillDeps struct {
	State  *StateSystem
	Buff   *BuffSystem
	Gauge  *GaugeSystem
	Damage *DamageSystem
	Summon *SummonSystem
}

// SkillSystem is the only writer of Cooldowns and ActionDelay. It validates
// and commits skill uses and decays cooldowns every tick.
type SkillSystem struct {
	reg          *skill.Registry
	rules        skill.Rules
	roller       *dice.Roller
	deps         SkillDeps
	oncePerCycle []skill.ID
	logger       *zap.Logger
}

// NewSkillSystem creates a SkillSystem and registers its post-damage hooks
// on deps.Damage.
//
// Precondition: reg, roller, logger and every dependency must be non-nil.
func NewSkillSystem(reg *skill.Registry, roller *dice.Roller, deps SkillDeps, logger *zap.Logger) *SkillSystem {
	s := &SkillSystem{
		reg:    reg,
		rules:  reg.Rules(),
		roller: roller,
		deps:   deps,
		logger: logger,
	}
	for _, d := range reg.All() {
		if d.OncePerCycle {
			s.oncePerCycle = append(s.oncePerCycle, d.ID)
		}
	}
	deps.Damage.AddHook(s.fireIndirect)
	deps.Damage.AddHook(s.landingReduction)
	return s
}

// Name implements ecs.System.
func (s *SkillSystem) Name() string { return "skill" }

// Subscribe resets once-per-cycle usage and force-clears the entry-reset
// skill whenever a character enters Equilibrium.
func (s *SkillSystem) Subscribe(w *ecs.World) {
	w.On(EventEnteredEquilibrium, func(ev ecs.Event) {
		s.onEnteredEquilibrium(w, ev.Entity)
	})
}

// Update decays every cooldown by dt, accelerated while the cooldown
// acceleration buff is active.
//
// Postcondition: no cooldown increases.
func (s *SkillSystem) Update(w *ecs.World, dt time.Duration) {
	if dt <= 0 {
		return
	}
	for _, e := range w.Query(component.CooldownsKind.Kind()) {
		cds, _ := ecs.Get(w, e, component.CooldownsKind)
		elapsed := dt
		if s.rules.CooldownAccelerationBuff != "" {
			if buffs, ok := ecs.Get(w, e, component.BuffsKind); ok && buffs.Active(string(s.rules.CooldownAccelerationBuff)) {
				elapsed = time.Duration(float64(dt) * (1 + s.rules.CooldownAcceleration))
			}
		}
		cds.Tick(elapsed)
	}
}

// CanUse reports whether caster could use id now, without side effects.
func (s *SkillSystem) CanUse(w *ecs.World, caster ecs.Entity, id skill.ID) bool {
	def, _ := s.validate(w, caster, id)
	return def != nil
}

// TryUseSkill validates and commits one use of id by caster against target.
//
// A use fails without side effects when the skill is unknown or not directly
// usable, on cooldown, Equilibrium-only outside Equilibrium, once-per-cycle
// and already used this cycle, or would enter Equilibrium while already in it.
// Damaging skills also fail when target carries no EnemyStats. On success the cooldown starts (unless a reset roll clears it), EventSkillUsed
// is emitted and the skill's effect is committed through the owning system.
//
// Postcondition: Returns true iff the skill was used.
func (s *SkillSystem) TryUseSkill(w *ecs.World, caster, target ecs.Entity, id skill.ID) bool {
	def, reason := s.validate(w, caster, id)
	if def == nil {
		if reason != "" {
			s.logger.Debug("skill use rejected",
				zap.String("skill", string(id)),
				zap.String("reason", reason),
			)
		}
		return false
	}
	if def.Category.Damaging() {
		if _, ok := lookup(w, target, component.EnemyKind, s.logger, "skill.use"); !ok {
			return false
		}
	}
	st, _ := ecs.Get(w, caster, component.StateKind)
	learned, _ := ecs.Get(w, caster, component.LearnedKind)
	eff, ok := learned.Effective(id, st.Current)
	if !ok {
		return false
	}
	state := st.Current
	s.startCooldown(w, caster, def, eff)
	if def.ActionDelay > 0 {
		delay := &component.ActionDelay{Skill: id, Until: w.Now() + def.ActionDelay}
		if !ecs.Replace(w, caster, component.ActionDelayKind, delay) {
			ecs.Add(w, caster, component.ActionDelayKind, delay)
		}
	}

	switch def.Category {
	case skill.CategoryDirect:
		enhanced := eff.Element.Matches(state)
		res := s.deps.Damage.CalculateAndApplyDamage(w, caster, target, id, DamageOptions{})
		s.deps.Gauge.ChargeGauge(w, caster, id, enhanced, res.Missed)
		if def.ExtendsEquilibrium > 0 && state == skill.StateEquilibrium {
			s.deps.State.Extend(w, caster, def.ExtendsEquilibrium)
		}
	case skill.CategoryBuff:
		if def.Buff != nil {
			s.deps.Buff.Apply(w, caster, string(id), id, *def.Buff)
		}
	case skill.CategoryInstant:
		if def.EntersEquilibrium {
			s.deps.State.EnterEquilibrium(w, caster, true)
		}
	case skill.CategorySummon:
		s.deps.Summon.Spawn(w, caster, target, id)
	}
	return true
}

// validate returns the Def when caster may use id now, or nil and the reason it may not.
func (s *SkillSystem) validate(w *ecs.World, caster ecs.Entity, id skill.ID) (*skill.Def, string) {
	def, ok := s.reg.Get(id)
	if !ok {
		return nil, "unknown skill"
	}
	if !def.Category.Usable() {
		return nil, "not directly usable"
	}
	const op = "skill.use"
	st, ok := lookup(w, caster, component.StateKind, s.logger, op)
	if !ok {
		return nil, ""
	}
	cds, ok := lookup(w, caster, component.CooldownsKind, s.logger, op)
	if !ok {
		return nil, ""
	}
	if _, ok := lookup(w, caster, component.LearnedKind, s.logger, op); !ok {
		return nil, ""
	}
	switch {
	case !cds.Ready(id):
		return nil, "on cooldown"
	case def.EquilibriumOnly && !st.InEquilibrium():
		return nil, "requires equilibrium"
	case def.OncePerCycle && cds.Usage(id) > 0:
		return nil, "already used this cycle"
	case def.EntersEquilibrium && st.InEquilibrium():
		return nil, "already in equilibrium"
	}
	return def, ""
}

// startCooldown records the use and starts the adjusted cooldown, or leaves it
// at zero when the cooldown-reset roll succeeds.
func (s *SkillSystem) startCooldown(w *ecs.World, caster ecs.Entity, def *skill.Def, eff skill.Effective) {
	cds, _ := ecs.Get(w, caster, component.CooldownsKind)
	cd := eff.Cooldown
	var resetChance float64
	if stats, ok := ecs.Get(w, caster, component.StatsKind); ok {
		c := stats.Clamped()
		if !def.CooldownImmune {
			cd = skill.AdjustCooldown(cd, c.CooldownTier, c.CooldownReduction)
		}
		resetChance = c.CooldownResetChance
	}
	reset := false
	if cd > 0 && def.Category != skill.CategoryIndirect && s.roller.Chance("cooldown reset", resetChance) {
		cd = 0
		reset = true
	}
	cds.Start(def.ID, cd, w.Now())

	st, _ := ecs.Get(w, caster, component.StateKind)
	w.Emit(EventSkillUsed, caster, SkillUsed{
		Skill:    def.ID,
		State:    st.Current,
		Cooldown: cd,
		Indirect: def.Category == skill.CategoryIndirect,
	})
	if reset {
		w.Emit(EventCooldownReset, caster, CooldownReset{Skill: def.ID})
	}
	s.logger.Debug("skill used",
		zap.String("skill", string(def.ID)),
		zap.Stringer("state", st.Current),
		zap.Duration("cooldown", cd),
		zap.Bool("reset", reset),
	)
}

// fireIndirect auto-fires every ready indirect skill whose trigger matches
// a landed direct skill. Indirect skills never fire further skills and never
// charge the gauge.
func (s *SkillSystem) fireIndirect(w *ecs.World, res DamageResult) {
	if res.Indirect || res.Missed || res.Category != skill.CategoryDirect {
		return
	}
	cds, ok := ecs.Get(w, res.Caster, component.CooldownsKind)
	if !ok {
		return
	}
	learned, ok := ecs.Get(w, res.Caster, component.LearnedKind)
	if !ok {
		return
	}
	for _, def := range s.reg.Indirect() {
		if !def.Trigger.Matches(res.Element, res.Category, res.State) || !cds.Ready(def.ID) {
			continue
		}
		eff, ok := learned.Effective(def.ID, res.State)
		if !ok {
			continue
		}
		s.startCooldown(w, res.Caster, def, eff)
		s.deps.Damage.CalculateAndApplyDamage(w, res.Caster, res.Target, def.ID, DamageOptions{Indirect: true})
	}
}

// landingReduction shortens the configured skill's cooldown whenever an
// Equilibrium-exclusive skill deals damage.
func (s *SkillSystem) landingReduction(w *ecs.World, res DamageResult) {
	lr := s.rules.Landing
	if lr.Skill == "" || lr.Amount <= 0 || res.Missed || res.Total <= 0 {
		return
	}
	def, ok := s.reg.Get(res.Skill)
	if !ok || !def.EquilibriumOnly {
		return
	}
	cds, ok := ecs.Get(w, res.Caster, component.CooldownsKind)
	if !ok {
		return
	}
	if removed := cds.Reduce(lr.Skill, lr.Amount); removed > 0 {
		w.Emit(EventCooldownReduced, res.Caster, CooldownReduced{Skill: lr.Skill, Amount: removed, Cause: res.Skill})
	}
}

func (s *SkillSystem) onEnteredEquilibrium(w *ecs.World, e ecs.Entity) {
	cds, ok := ecs.Get(w, e, component.CooldownsKind)
	if !ok {
		return
	}
	cds.ResetUsage(s.oncePerCycle...)
	if id := s.rules.EquilibriumEntryReset; id != "" && cds.Clear(id) {
		w.Emit(EventCooldownReset, e, CooldownReset{Skill: id, Cause: skill.EquilibriumBuff})
	}
}
