package component

import (
	"slices"
	"strings"
	"time"

	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

// Buff is one active timed effect.
type Buff struct {
	Name           string
	Source         skill.ID
	BaseDuration   time.Duration
	ActualDuration time.Duration // after buff-duration increase
	Start          time.Duration
	End            time.Duration
	LagAdjustedEnd time.Duration
	LagModeled     bool // LagAdjustedEnd is authoritative
	Stacks         int
	MaxStacks      int
	DurationImmune bool
	LagImmune      bool
	Effects        skill.Effects // per stack
}

// Expiry returns the effective expiry time.
func (b *Buff) Expiry() time.Duration {
	if b.LagModeled {
		return b.LagAdjustedEnd
	}
	return b.End
}

// Remaining returns the time left at now, floored at zero.
func (b *Buff) Remaining(now time.Duration) time.Duration {
	return max(0, b.Expiry()-now)
}

// Buffs is the buff table keyed by buff name. Removal is the only destructor.
type Buffs struct {
	active map[string]*Buff
}

// NewBuffs returns an empty table.
func NewBuffs() *Buffs {
	return &Buffs{active: make(map[string]*Buff)}
}

// Get returns the buff named name.
func (t *Buffs) Get(name string) (*Buff, bool) {
	b, ok := t.active[name]
	return b, ok
}

// Active reports whether name is present.
func (t *Buffs) Active(name string) bool {
	_, ok := t.active[name]
	return ok
}

// Put stores b under b.Name, replacing any previous entry.
//
// Precondition: b is non-nil with a non-empty Name.
func (t *Buffs) Put(b *Buff) {
	t.active[b.Name] = b
}

// Remove deletes name. Returns false if it was absent.
func (t *Buffs) Remove(name string) bool {
	if _, ok := t.active[name]; !ok {
		return false
	}
	delete(t.active, name)
	return true
}

// Expired returns, sorted, the names whose expiry is at or before now.
func (t *Buffs) Expired(now time.Duration) []string {
	var out []string
	for name, b := range t.active {
		if b.Expiry() <= now {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// All returns the active buffs ordered by name.
func (t *Buffs) All() []*Buff {
	out := make([]*Buff, 0, len(t.active))
	for _, b := range t.active {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b *Buff) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Len returns the number of active buffs.
func (t *Buffs) Len() int { return len(t.active) }
