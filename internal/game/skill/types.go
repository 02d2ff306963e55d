// Package skill holds the immutable skill and enhancement tables and the
// pure functions that derive effective skill data from them.
package skill

import (
	"fmt"
	"strings"
)

// ID identifies a skill in the Registry.
type ID string

// State is the character's polarity state.
type State int

const (
	StateLight State = iota
	StateDark
	StateEquilibrium
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateLight:
		return "light"
	case StateDark:
		return "dark"
	case StateEquilibrium:
		return "equilibrium"
	default:
		return "unknown"
	}
}

// Opposite returns the other polarity. Equilibrium has no opposite and is returned unchanged.
func (s State) Opposite() State {
	switch s {
	case StateLight:
		return StateDark
	case StateDark:
		return StateLight
	default:
		return s
	}
}

// ParseState converts a lower-case name into a State.
func ParseState(name string) (State, error) {
	switch strings.ToLower(name) {
	case "light":
		return StateLight, nil
	case "dark":
		return StateDark, nil
	case "equilibrium":
		return StateEquilibrium, nil
	default:
		return 0, fmt.Errorf("unknown state %q", name)
	}
}

// Element is the polarity a skill belongs to.
type Element int

const (
	ElementNone Element = iota
	ElementLight
	ElementDark
	ElementEquilibrium
)

// String returns the lower-case element name.
func (e Element) String() string {
	switch e {
	case ElementNone:
		return "none"
	case ElementLight:
		return "light"
	case ElementDark:
		return "dark"
	case ElementEquilibrium:
		return "equilibrium"
	default:
		return "unknown"
	}
}

// Matches reports whether the element corresponds to state s.
// ElementNone matches no state.
func (e Element) Matches(s State) bool {
	switch e {
	case ElementLight:
		return s == StateLight
	case ElementDark:
		return s == StateDark
	case ElementEquilibrium:
		return s == StateEquilibrium
	default:
		return false
	}
}

// ParseElement converts a lower-case name into an Element. The empty string is ElementNone.
func ParseElement(name string) (Element, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return ElementNone, nil
	case "light":
		return ElementLight, nil
	case "dark":
		return ElementDark, nil
	case "equilibrium":
		return ElementEquilibrium, nil
	default:
		return 0, fmt.Errorf("unknown element %q", name)
	}
}

// Category is how a skill is activated and what it produces.
type Category int

const (
	CategoryDirect   Category = iota // cast by the player, deals damage
	CategoryIndirect                 // fires automatically after a matching direct skill
	CategoryBuff                     // applies a timed buff
	CategoryInstant                  // immediate non-damaging effect
	CategorySummon                   // spawns a periodic attacker
	CategoryPassive                  // never used; only grants bonuses
)

// String returns the lower-case category name.
func (c Category) String() string {
	switch c {
	case CategoryDirect:
		return "direct"
	case CategoryIndirect:
		return "indirect"
	case CategoryBuff:
		return "buff"
	case CategoryInstant:
		return "instant"
	case CategorySummon:
		return "summon"
	case CategoryPassive:
		return "passive"
	default:
		return "unknown"
	}
}

// Usable reports whether the category can be requested through a skill-use call.
func (c Category) Usable() bool {
	return c != CategoryIndirect && c != CategoryPassive
}

// Damaging reports whether skills of the category run the damage pipeline.
func (c Category) Damaging() bool {
	return c == CategoryDirect || c == CategoryIndirect || c == CategorySummon
}

// ParseCategory converts a lower-case name into a Category.
func ParseCategory(name string) (Category, error) {
	switch strings.ToLower(name) {
	case "direct":
		return CategoryDirect, nil
	case "indirect":
		return CategoryIndirect, nil
	case "buff":
		return CategoryBuff, nil
	case "instant":
		return CategoryInstant, nil
	case "summon":
		return CategorySummon, nil
	case "passive":
		return CategoryPassive, nil
	default:
		return 0, fmt.Errorf("unknown category %q", name)
	}
}

// CooldownTier is a discrete percentage cooldown reduction granted by gear.
type CooldownTier int

const (
	CooldownTierNone CooldownTier = iota
	CooldownTierLow
	CooldownTierMid
	CooldownTierHigh
)

// Percent returns the cooldown reduction percentage of the tier.
func (t CooldownTier) Percent() float64 {
	switch t {
	case CooldownTierLow:
		return 5
	case CooldownTierMid:
		return 10
	case CooldownTierHigh:
		return 15
	default:
		return 0
	}
}

// String returns the lower-case tier name.
func (t CooldownTier) String() string {
	switch t {
	case CooldownTierLow:
		return "low"
	case CooldownTierMid:
		return "mid"
	case CooldownTierHigh:
		return "high"
	default:
		return "none"
	}
}

// ParseCooldownTier converts a lower-case name into a CooldownTier. The empty string is CooldownTierNone.
func ParseCooldownTier(name string) (CooldownTier, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return CooldownTierNone, nil
	case "low":
		return CooldownTierLow, nil
	case "mid":
		return CooldownTierMid, nil
	case "high":
		return CooldownTierHigh, nil
	default:
		return 0, fmt.Errorf("unknown cooldown tier %q", name)
	}
}
