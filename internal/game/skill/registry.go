package skill

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed data/luminous.yaml
var embeddedTables []byte

// Registry holds all known skill Defs keyed by ID together with the global
// Rules and the linked-skill edges. A Registry is immutable after construction.
type Registry struct {
	defs     map[ID]*Def
	rules    Rules
	parents  map[ID]ID   // child -> parent
	children map[ID][]ID // parent -> children
	grantsTo map[ID][]grantEdge
}

type grantEdge struct {
	from  ID
	bonus Curve
}

// Get returns the Def for id, or (nil, false) if not found.
func (r *Registry) Get(id ID) (*Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns a snapshot slice of all Defs ordered by ID.
func (r *Registry) All() []*Def {
	out := make([]*Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *Def) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return out
}

// Rules returns the global balance constants.
func (r *Registry) Rules() Rules { return r.rules }

// Parent returns the skill whose sixth-tier level id mirrors.
func (r *Registry) Parent(id ID) (ID, bool) {
	p, ok := r.parents[id]
	return p, ok
}

// Children returns the skills mirroring parent's sixth-tier level.
func (r *Registry) Children(parent ID) []ID {
	return slices.Clone(r.children[parent])
}

// Indirect returns the indirect skills in ID order.
func (r *Registry) Indirect() []*Def {
	var out []*Def
	for _, d := range r.All() {
		if d.Category == CategoryIndirect && d.Trigger != nil {
			out = append(out, d)
		}
	}
	return out
}

// LoadEmbedded parses the built-in skill tables.
//
// Postcondition: Returns a non-nil Registry, or an error if the tables are invalid.
func LoadEmbedded() (*Registry, error) {
	return Parse(embeddedTables)
}

// MustLoadEmbedded parses the built-in tables and panics on error.
func MustLoadEmbedded() *Registry {
	r, err := LoadEmbedded()
	if err != nil {
		panic("skill: embedded tables invalid: " + err.Error())
	}
	return r
}

// LoadFile reads and parses a skill table file.
//
// Precondition: path must be a readable YAML file.
// Postcondition: Returns a non-nil Registry, or an error describing the failure.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading skill tables %q: %w", path, err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	return reg, nil
}

// Parse decodes skill tables from YAML. Unknown fields are rejected.
//
// Postcondition: Returns a non-nil Registry, or an error listing every violation.
func Parse(data []byte) (*Registry, error) {
	var raw rawFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding skill tables: %w", err)
	}
	return raw.build()
}

type rawFile struct {
	Rules  rawRules  `yaml:"rules"`
	Links  []rawLink `yaml:"links"`
	Skills []rawDef  `yaml:"skills"`
}

type rawRules struct {
	MaxGauge                 int        `yaml:"max_gauge"`
	EquilibriumBaseSec       float64    `yaml:"equilibrium_base_sec"`
	EquilibriumBonusSec      float64    `yaml:"equilibrium_bonus_sec"`
	EquilibriumEntryReset    string     `yaml:"equilibrium_entry_reset"`
	LandingReduction         rawLanding `yaml:"landing_reduction"`
	CooldownAccelerationBuff string     `yaml:"cooldown_acceleration_buff"`
	CooldownAcceleration     float64    `yaml:"cooldown_acceleration"`
	MissChargeRatio          *float64   `yaml:"miss_charge_ratio"`
	FifthTierStep            *float64   `yaml:"fifth_tier_step"`
}

type rawLanding struct {
	Skill     string  `yaml:"skill"`
	AmountSec float64 `yaml:"amount_sec"`
}

type rawLink struct {
	Parent   string   `yaml:"parent"`
	Children []string `yaml:"children"`
}

type rawVariant struct {
	DamagePercent *float64 `yaml:"damage_percent"`
	HitCount      *int     `yaml:"hit_count"`
	CooldownSec   *float64 `yaml:"cooldown_sec"`
	GaugeCharge   *int     `yaml:"gauge_charge"`
	IgnoreDefense *float64 `yaml:"ignore_defense"`
}

type rawSixth struct {
	Damage        *Curve           `yaml:"damage"`
	DamageByState map[string]Curve `yaml:"damage_by_state"`
	CooldownSec   *Curve           `yaml:"cooldown_sec"`
	GaugeCharge   *Curve           `yaml:"gauge_charge"`
	IgnoreDefense *Curve           `yaml:"ignore_defense"`
	FinalDamage   *Curve           `yaml:"final_damage"`
}

type rawBuff struct {
	DurationSec        float64 `yaml:"duration_sec"`
	MaxStacks          int     `yaml:"max_stacks"`
	DurationImmune     bool    `yaml:"duration_immune"`
	LagImmune          bool    `yaml:"lag_immune"`
	DamagePercent      float64 `yaml:"damage_percent"`
	FinalDamagePercent float64 `yaml:"final_damage_percent"`
	BossDamagePercent  float64 `yaml:"boss_damage_percent"`
	CritRate           float64 `yaml:"crit_rate"`
	CritDamage         float64 `yaml:"crit_damage"`
	IgnoreDefense      float64 `yaml:"ignore_defense"`
}

type rawSummon struct {
	DurationSec float64 `yaml:"duration_sec"`
	DelaySec    float64 `yaml:"delay_sec"`
	IntervalSec float64 `yaml:"interval_sec"`
}

type rawTrigger struct {
	Elements   []string `yaml:"elements"`
	Categories []string `yaml:"categories"`
	States     []string `yaml:"states"`
}

type rawGrant struct {
	To    string `yaml:"to"`
	Bonus Curve  `yaml:"bonus"`
}

type rawDef struct {
	ID                  string                `yaml:"id"`
	Name                string                `yaml:"name"`
	Element             string                `yaml:"element"`
	Category            string                `yaml:"category"`
	DamagePercent       float64               `yaml:"damage_percent"`
	HitCount            int                   `yaml:"hit_count"`
	GaugeCharge         int                   `yaml:"gauge_charge"`
	EnhancedGaugeCharge int                   `yaml:"enhanced_gauge_charge"`
	CooldownSec         float64               `yaml:"cooldown_sec"`
	ActionDelaySec      float64               `yaml:"action_delay_sec"`
	IgnoreDefense       float64               `yaml:"ignore_defense"`
	CritRateBonus       float64               `yaml:"crit_rate_bonus"`
	EquilibriumOnly     bool                  `yaml:"equilibrium_only"`
	OncePerCycle        bool                  `yaml:"once_per_cycle"`
	CooldownImmune      bool                  `yaml:"cooldown_immune"`
	EntersEquilibrium   bool                  `yaml:"enters_equilibrium"`
	ExtendsEquilibrium  float64               `yaml:"extends_equilibrium_sec"`
	FifthTier           bool                  `yaml:"fifth_tier"`
	SixthTier           *rawSixth             `yaml:"sixth_tier"`
	Variants            map[string]rawVariant `yaml:"variants"`
	Trigger             *rawTrigger           `yaml:"trigger"`
	Buff                *rawBuff              `yaml:"buff"`
	Summon              *rawSummon            `yaml:"summon"`
	Grants              []rawGrant            `yaml:"grants"`
}

// Seconds converts fractional seconds to a Duration rounded to the millisecond.
func Seconds(s float64) time.Duration {
	return time.Duration(s*1000+0.5) * time.Millisecond
}

func (f rawFile) build() (*Registry, error) {
	var errs []error
	reg := &Registry{
		defs:     make(map[ID]*Def, len(f.Skills)),
		parents:  make(map[ID]ID),
		children: make(map[ID][]ID),
		grantsTo: make(map[ID][]grantEdge),
	}

	for i, rd := range f.Skills {
		def, err := rd.build()
		if err != nil {
			errs = append(errs, fmt.Errorf("skills[%d] (%s): %w", i, rd.ID, err))
			continue
		}
		if _, dup := reg.defs[def.ID]; dup {
			errs = append(errs, fmt.Errorf("skills[%d]: duplicate id %q", i, def.ID))
			continue
		}
		reg.defs[def.ID] = def
	}

	for _, def := range reg.defs {
		for _, g := range def.Grants {
			if _, ok := reg.defs[g.To]; !ok {
				errs = append(errs, fmt.Errorf("skill %q grants to unknown skill %q", def.ID, g.To))
				continue
			}
			reg.grantsTo[g.To] = append(reg.grantsTo[g.To], grantEdge{from: def.ID, bonus: g.Bonus})
		}
	}
	for to := range reg.grantsTo {
		slices.SortFunc(reg.grantsTo[to], func(a, b grantEdge) int { return strings.Compare(string(a.from), string(b.from)) })
	}

	for _, l := range f.Links {
		parent := ID(l.Parent)
		if _, ok := reg.defs[parent]; !ok {
			errs = append(errs, fmt.Errorf("link parent %q is not a known skill", l.Parent))
			continue
		}
		for _, c := range l.Children {
			child := ID(c)
			if _, ok := reg.defs[child]; !ok {
				errs = append(errs, fmt.Errorf("link child %q is not a known skill", c))
				continue
			}
			if child == parent {
				errs = append(errs, fmt.Errorf("skill %q cannot be linked to itself", c))
				continue
			}
			if _, ok := reg.parents[parent]; ok {
				errs = append(errs, fmt.Errorf("link parent %q is itself linked", l.Parent))
				continue
			}
			reg.parents[child] = parent
			reg.children[parent] = append(reg.children[parent], child)
		}
	}

	rules, err := f.Rules.build(reg)
	if err != nil {
		errs = append(errs, err)
	}
	reg.rules = rules

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid skill tables: %w", errors.Join(errs...))
	}
	return reg, nil
}

func (rr rawRules) build(reg *Registry) (Rules, error) {
	r := Rules{
		MaxGauge:                 rr.MaxGauge,
		EquilibriumBase:          Seconds(rr.EquilibriumBaseSec),
		EquilibriumBonus:         Seconds(rr.EquilibriumBonusSec),
		EquilibriumEntryReset:    ID(rr.EquilibriumEntryReset),
		Landing:                  LandingReduction{Skill: ID(rr.LandingReduction.Skill), Amount: Seconds(rr.LandingReduction.AmountSec)},
		CooldownAccelerationBuff: ID(rr.CooldownAccelerationBuff),
		CooldownAcceleration:     rr.CooldownAcceleration,
		MissChargeRatio:          0.5,
		FifthTierStep:            0.02,
	}
	if r.MaxGauge == 0 {
		r.MaxGauge = 10000
	}
	if r.EquilibriumBase == 0 {
		r.EquilibriumBase = 17 * time.Second
	}
	if rr.MissChargeRatio != nil {
		r.MissChargeRatio = *rr.MissChargeRatio
	}
	if rr.FifthTierStep != nil {
		r.FifthTierStep = *rr.FifthTierStep
	}

	var errs []string
	if r.MaxGauge <= 0 {
		errs = append(errs, fmt.Sprintf("rules.max_gauge must be > 0 (omit for 10000), got %d", r.MaxGauge))
	}
	if r.MissChargeRatio < 0 || r.MissChargeRatio > 1 {
		errs = append(errs, fmt.Sprintf("rules.miss_charge_ratio must be in [0, 1], got %g", r.MissChargeRatio))
	}
	for field, id := range map[string]ID{
		"rules.equilibrium_entry_reset":    r.EquilibriumEntryReset,
		"rules.landing_reduction.skill":    r.Landing.Skill,
		"rules.cooldown_acceleration_buff": r.CooldownAccelerationBuff,
	} {
		if id == "" {
			continue
		}
		if _, ok := reg.defs[id]; !ok {
			errs = append(errs, fmt.Sprintf("%s references unknown skill %q", field, id))
		}
	}
	if len(errs) > 0 {
		slices.Sort(errs)
		return r, errors.New(strings.Join(errs, "; "))
	}
	return r, nil
}

func (rd rawDef) build() (*Def, error) {
	if rd.ID == "" {
		return nil, errors.New("id must not be empty")
	}
	elem, err := ParseElement(rd.Element)
	if err != nil {
		return nil, err
	}
	cat, err := ParseCategory(rd.Category)
	if err != nil {
		return nil, err
	}
	def := &Def{
		ID:                  ID(rd.ID),
		Name:                rd.Name,
		Element:             elem,
		Category:            cat,
		DamagePercent:       rd.DamagePercent,
		HitCount:            rd.HitCount,
		GaugeCharge:         rd.GaugeCharge,
		EnhancedGaugeCharge: rd.EnhancedGaugeCharge,
		Cooldown:            Seconds(rd.CooldownSec),
		ActionDelay:         Seconds(rd.ActionDelaySec),
		IgnoreDefense:       rd.IgnoreDefense,
		CritRateBonus:       rd.CritRateBonus,
		EquilibriumOnly:     rd.EquilibriumOnly,
		OncePerCycle:        rd.OncePerCycle,
		CooldownImmune:      rd.CooldownImmune,
		EntersEquilibrium:   rd.EntersEquilibrium,
		ExtendsEquilibrium:  Seconds(rd.ExtendsEquilibrium),
		FifthTier:           rd.FifthTier,
	}
	if def.Name == "" {
		def.Name = rd.ID
	}
	if def.EnhancedGaugeCharge == 0 {
		def.EnhancedGaugeCharge = def.GaugeCharge
	}
	if cat.Damaging() && def.HitCount < 1 {
		return nil, fmt.Errorf("hit_count must be >= 1 for %s skills, got %d", cat, def.HitCount)
	}
	if def.Cooldown < 0 || def.GaugeCharge < 0 || def.DamagePercent < 0 {
		return nil, errors.New("cooldown_sec, gauge_charge and damage_percent must not be negative")
	}

	if len(rd.Variants) > 0 {
		def.Variants = make(map[State]Variant, len(rd.Variants))
		for name, rv := range rd.Variants {
			st, err := ParseState(name)
			if err != nil {
				return nil, fmt.Errorf("variants: %w", err)
			}
			v := Variant{
				DamagePercent: rv.DamagePercent,
				HitCount:      rv.HitCount,
				GaugeCharge:   rv.GaugeCharge,
				IgnoreDefense: rv.IgnoreDefense,
			}
			if rv.CooldownSec != nil {
				cd := Seconds(*rv.CooldownSec)
				v.Cooldown = &cd
			}
			def.Variants[st] = v
		}
	}

	if rs := rd.SixthTier; rs != nil {
		six := &SixthTier{
			DamagePercent: rs.Damage,
			Cooldown:      rs.CooldownSec,
			GaugeCharge:   rs.GaugeCharge,
			IgnoreDefense: rs.IgnoreDefense,
			FinalDamage:   rs.FinalDamage,
		}
		if len(rs.DamageByState) > 0 {
			six.DamageByState = make(map[State]Curve, len(rs.DamageByState))
			for name, c := range rs.DamageByState {
				st, err := ParseState(name)
				if err != nil {
					return nil, fmt.Errorf("sixth_tier.damage_by_state: %w", err)
				}
				six.DamageByState[st] = c
			}
		}
		def.Sixth = six
	}

	if rt := rd.Trigger; rt != nil {
		if cat != CategoryIndirect {
			return nil, fmt.Errorf("trigger is only valid on indirect skills, got %s", cat)
		}
		trig := &Trigger{}
		for _, n := range rt.Elements {
			e, err := ParseElement(n)
			if err != nil {
				return nil, fmt.Errorf("trigger: %w", err)
			}
			trig.Elements = append(trig.Elements, e)
		}
		for _, n := range rt.Categories {
			c, err := ParseCategory(n)
			if err != nil {
				return nil, fmt.Errorf("trigger: %w", err)
			}
			trig.Categories = append(trig.Categories, c)
		}
		for _, n := range rt.States {
			s, err := ParseState(n)
			if err != nil {
				return nil, fmt.Errorf("trigger: %w", err)
			}
			trig.States = append(trig.States, s)
		}
		def.Trigger = trig
	}

	if rb := rd.Buff; rb != nil {
		if cat != CategoryBuff {
			return nil, fmt.Errorf("buff is only valid on buff skills, got %s", cat)
		}
		stacks := rb.MaxStacks
		if stacks < 1 {
			stacks = 1
		}
		def.Buff = &BuffSpec{
			Duration:       Seconds(rb.DurationSec),
			MaxStacks:      stacks,
			DurationImmune: rb.DurationImmune,
			LagImmune:      rb.LagImmune,
			Effects: Effects{
				DamagePercent:      rb.DamagePercent,
				FinalDamagePercent: rb.FinalDamagePercent,
				BossDamagePercent:  rb.BossDamagePercent,
				CritRate:           rb.CritRate,
				CritDamage:         rb.CritDamage,
				IgnoreDefense:      rb.IgnoreDefense,
			},
		}
	} else if cat == CategoryBuff {
		return nil, errors.New("buff skills require a buff block")
	}

	if rsu := rd.Summon; rsu != nil {
		if cat != CategorySummon {
			return nil, fmt.Errorf("summon is only valid on summon skills, got %s", cat)
		}
		if rsu.IntervalSec <= 0 || rsu.DurationSec <= 0 {
			return nil, errors.New("summon.duration_sec and summon.interval_sec must be > 0")
		}
		def.Summon = &SummonSpec{
			Duration: Seconds(rsu.DurationSec),
			Delay:    Seconds(rsu.DelaySec),
			Interval: Seconds(rsu.IntervalSec),
		}
	} else if cat == CategorySummon {
		return nil, errors.New("summon skills require a summon block")
	}

	for _, g := range rd.Grants {
		def.Grants = append(def.Grants, Grant{To: ID(g.To), Bonus: g.Bonus})
	}
	return def, nil
}
