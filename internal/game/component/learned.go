package component

import "github.com/cory-johannsen/lumisim/internal/game/skill"

// Enhancement level bounds.
const (
	MaxFifthLevel = 60
	MaxSixthLevel = 30
)

type effectiveKey struct {
	id    skill.ID
	state skill.State
}

// Learned holds the caster's enhancement levels and memoizes resolved skill data.
//
// Invariant: a linked child always reports its parent's sixth-tier level.
type Learned struct {
	reg   *skill.Registry
	fifth map[skill.ID]int
	sixth map[skill.ID]int
	cache map[effectiveKey]skill.Effective
}

// NewLearned returns a Learned with every level at zero.
//
// Precondition: reg must not be nil.
func NewLearned(reg *skill.Registry) *Learned {
	return &Learned{
		reg:   reg,
		fifth: make(map[skill.ID]int),
		sixth: make(map[skill.ID]int),
		cache: make(map[effectiveKey]skill.Effective),
	}
}

// Registry returns the skill tables levels are resolved against.
func (l *Learned) Registry() *skill.Registry { return l.reg }

// SetFifth sets the fifth-tier level of id, clamped to [0, MaxFifthLevel].
func (l *Learned) SetFifth(id skill.ID, level int) {
	l.fifth[id] = min(max(level, 0), MaxFifthLevel)
	clear(l.cache)
}

// SetSixth sets the sixth-tier level of id, clamped to [0, MaxSixthLevel].
//
// Postcondition: Returns false and changes nothing when id is a linked child;
// its level follows its parent.
func (l *Learned) SetSixth(id skill.ID, level int) bool {
	if _, linked := l.reg.Parent(id); linked {
		return false
	}
	l.sixth[id] = min(max(level, 0), MaxSixthLevel)
	clear(l.cache)
	return true
}

// Fifth returns the fifth-tier level of id.
func (l *Learned) Fifth(id skill.ID) int { return l.fifth[id] }

// Sixth returns the sixth-tier level of id, or of its parent when id is linked.
func (l *Learned) Sixth(id skill.ID) int {
	if p, linked := l.reg.Parent(id); linked {
		return l.sixth[p]
	}
	return l.sixth[id]
}

// Effective resolves id for use in state at the current levels.
//
// Postcondition: Returns (skill.Effective{}, false) if id is unknown.
func (l *Learned) Effective(id skill.ID, state skill.State) (skill.Effective, bool) {
	key := effectiveKey{id: id, state: state}
	if eff, ok := l.cache[key]; ok {
		return eff, true
	}
	eff, ok := l.reg.Resolve(id, state, l)
	if ok {
		l.cache[key] = eff
	}
	return eff, ok
}
