// Package report aggregates a simulation's event stream into a summary.
package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cory-johannsen/lumisim/internal/game/ecs"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
	"github.com/cory-johannsen/lumisim/internal/game/system"
)

// SkillSummary is the damage contributed by one skill.
type SkillSummary struct {
	Skill  skill.ID
	Casts  int
	Hits   int // damage instances, including summon attacks and indirect procs
	Crits  int
	Misses int
	Total  float64
	Share  float64 // fraction of the run total
}

// Window is one Equilibrium period. Open windows end at the summary time.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// BuffSummary is the uptime of one buff.
type BuffSummary struct {
	Name         string
	Applications int
	Uptime       time.Duration
}

// Summary is the aggregate of a run up to one point in time.
type Summary struct {
	Elapsed            time.Duration
	Total              float64
	DPS                float64
	Skills             []SkillSummary
	EquilibriumEntries int
	EquilibriumUptime  time.Duration
	Windows            []Window
	Buffs              []BuffSummary
}

type buffTrack struct {
	applications int
	uptime       time.Duration
	since        time.Duration
	active       bool
}

// Collector records one character's events as they are emitted.
type Collector struct {
	w       *ecs.World
	caster  ecs.Entity
	subs    map[ecs.EventType]ecs.HandlerID
	skills  map[skill.ID]*SkillSummary
	total   float64
	entries int
	inEq    bool
	eqSince time.Duration
	windows []Window
	buffs   map[string]*buffTrack
}

// NewCollector subscribes to w's events for caster.
//
// Precondition: w must be non-nil.
// Postcondition: Every later event emitted on caster is aggregated until Close.
func NewCollector(w *ecs.World, caster ecs.Entity) *Collector {
	c := &Collector{
		w:      w,
		caster: caster,
		subs:   make(map[ecs.EventType]ecs.HandlerID),
		skills: make(map[skill.ID]*SkillSummary),
		buffs:  make(map[string]*buffTrack),
	}
	handlers := map[ecs.EventType]ecs.Handler{
		system.EventDamageDealt:        c.onDamage,
		system.EventSkillUsed:          c.onSkillUsed,
		system.EventEnteredEquilibrium: c.onEntered,
		system.EventExitedEquilibrium:  c.onExited,
		system.EventBuffApplied:        c.onBuffApplied,
		system.EventBuffExpired:        c.onBuffExpired,
	}
	for t, fn := range handlers {
		c.subs[t] = w.On(t, c.forCaster(fn))
	}
	return c
}

// Close unsubscribes the collector. Summary keeps working on what was recorded.
func (c *Collector) Close() {
	for t, id := range c.subs {
		c.w.Off(t, id)
	}
	clear(c.subs)
}

func (c *Collector) forCaster(fn ecs.Handler) ecs.Handler {
	return func(ev ecs.Event) {
		if ev.Entity == c.caster {
			fn(ev)
		}
	}
}

func (c *Collector) skill(id skill.ID) *SkillSummary {
	s, ok := c.skills[id]
	if !ok {
		s = &SkillSummary{Skill: id}
		c.skills[id] = s
	}
	return s
}

func (c *Collector) onDamage(ev ecs.Event) {
	d, ok := ev.Payload.(system.DamageDealt)
	if !ok {
		return
	}
	s := c.skill(d.Skill)
	if d.Missed {
		s.Misses++
		return
	}
	s.Hits++
	if d.Critical {
		s.Crits++
	}
	s.Total += d.Total
	c.total += d.Total
}

func (c *Collector) onSkillUsed(ev ecs.Event) {
	if u, ok := ev.Payload.(system.SkillUsed); ok {
		c.skill(u.Skill).Casts++
	}
}

func (c *Collector) onEntered(ev ecs.Event) {
	c.entries++
	c.inEq = true
	c.eqSince = ev.Time
}

func (c *Collector) onExited(ev ecs.Event) {
	if !c.inEq {
		return
	}
	c.windows = append(c.windows, Window{Start: c.eqSince, End: ev.Time})
	c.inEq = false
}

func (c *Collector) onBuffApplied(ev ecs.Event) {
	b, ok := ev.Payload.(system.BuffApplied)
	if !ok {
		return
	}
	t, ok := c.buffs[b.Name]
	if !ok {
		t = &buffTrack{}
		c.buffs[b.Name] = t
	}
	t.applications++
	if !t.active {
		t.active = true
		t.since = ev.Time
	}
}

func (c *Collector) onBuffExpired(ev ecs.Event) {
	b, ok := ev.Payload.(system.BuffExpired)
	if !ok {
		return
	}
	if t, ok := c.buffs[b.Name]; ok && t.active {
		t.uptime += ev.Time - t.since
		t.active = false
	}
}

// Summary aggregates everything recorded up to the world's current time.
// Open Equilibrium windows and active buffs are counted up to now.
func (c *Collector) Summary() Summary {
	now := c.w.Now()
	s := Summary{
		Elapsed:            now,
		Total:              c.total,
		EquilibriumEntries: c.entries,
		Windows:            slices.Clone(c.windows),
	}
	if now > 0 {
		s.DPS = c.total / now.Seconds()
	}
	if c.inEq {
		s.Windows = append(s.Windows, Window{Start: c.eqSince, End: now})
	}
	for _, w := range s.Windows {
		s.EquilibriumUptime += w.End - w.Start
	}

	for _, sk := range c.skills {
		out := *sk
		if c.total > 0 {
			out.Share = sk.Total / c.total
		}
		s.Skills = append(s.Skills, out)
	}
	slices.SortFunc(s.Skills, func(a, b SkillSummary) int {
		if r := cmp.Compare(b.Total, a.Total); r != 0 {
			return r
		}
		return cmp.Compare(a.Skill, b.Skill)
	})

	for name, t := range c.buffs {
		up := t.uptime
		if t.active {
			up += now - t.since
		}
		s.Buffs = append(s.Buffs, BuffSummary{Name: name, Applications: t.applications, Uptime: up})
	}
	slices.SortFunc(s.Buffs, func(a, b BuffSummary) int { return cmp.Compare(a.Name, b.Name) })
	return s
}

// Uptime returns the fraction of the run Equilibrium was active.
func (s Summary) Uptime() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return s.EquilibriumUptime.Seconds() / s.Elapsed.Seconds()
}

// WriteText renders s as aligned plain-text tables with grouped digits.
func (s Summary) WriteText(w io.Writer) error {
	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "elapsed\t%s\t\n", s.Elapsed)
	p.Fprintf(tw, "total damage\t%.0f\t\n", s.Total)
	p.Fprintf(tw, "dps\t%.0f\t\n", s.DPS)
	p.Fprintf(tw, "equilibrium\t%d entries, %s (%.1f%%)\t\n", s.EquilibriumEntries, s.EquilibriumUptime, 100*s.Uptime())
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "skill\tcasts\thits\tcrits\tmisses\ttotal\tshare\t")
	for _, sk := range s.Skills {
		p.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%.0f\t%.1f%%\t\n",
			sk.Skill, sk.Casts, sk.Hits, sk.Crits, sk.Misses, sk.Total, 100*sk.Share)
	}
	if len(s.Buffs) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "buff\tapplications\tuptime\t")
		for _, b := range s.Buffs {
			fmt.Fprintf(tw, "%s\t%d\t%s\t\n", b.Name, b.Applications, b.Uptime)
		}
	}
	return tw.Flush()
}
