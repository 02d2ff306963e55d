// Package policy provides the built-in skill rotation.
package policy

import (
	"errors"
	"fmt"
	"slices"

	"github.com/cory-johannsen/lumisim/internal/game/component"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
	"github.com/cory-johannsen/lumisim/internal/sim"
)

// DefaultRotation is the priority order used when none is configured:
// buffs first, then cooldown skills, then Equilibrium finishers.
var DefaultRotation = []skill.ID{
	"dark_crescendo",
	"overload_mana",
	"arcane_flow",
	"liberation_orb",
	"baptism",
	"harmonic_paradox",
	"door_of_truth",
	"memorize",
	"absolute_kill",
}

// DefaultHeld lists skills the default rotation only uses during Equilibrium.
var DefaultHeld = []skill.ID{"harmonic_paradox"}

// Priority picks the first ready skill in a fixed order. When nothing in the
// order is ready it falls back to the filler whose element matches the
// current state, so the gauge charges its enhanced amount.
type Priority struct {
	order      []skill.ID
	held       map[skill.ID]bool
	lightFill  skill.ID
	darkFill   skill.ID
	memorizeID skill.ID
}

// NewPriority builds a Priority from configured ids. An empty order selects
// DefaultRotation and DefaultHeld.
//
// Precondition: reg must be non-nil.
// Postcondition: Returns an error naming every id that is unknown or not usable.
func NewPriority(reg *skill.Registry, order []string) (*Priority, error) {
	p := &Priority{held: make(map[skill.ID]bool)}
	if len(order) == 0 {
		p.order = slices.Clone(DefaultRotation)
		for _, id := range DefaultHeld {
			p.held[id] = true
		}
	} else {
		for _, id := range order {
			p.order = append(p.order, skill.ID(id))
		}
	}

	var errs []error
	for _, id := range p.order {
		def, ok := reg.Get(id)
		switch {
		case !ok:
			if len(order) == 0 {
				continue
			}
			errs = append(errs, fmt.Errorf("unknown skill %q", id))
		case !def.Category.Usable():
			errs = append(errs, fmt.Errorf("skill %q is %s and cannot be used", id, def.Category))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("policy priority: %w", errors.Join(errs...))
	}
	// Ids missing from custom tables are dropped from the default order.
	p.order = slices.DeleteFunc(p.order, func(id skill.ID) bool {
		_, ok := reg.Get(id)
		return !ok
	})

	for _, def := range reg.All() {
		if def.Category != skill.CategoryDirect || def.Cooldown > 0 || def.EquilibriumOnly {
			continue
		}
		switch def.Element {
		case skill.ElementLight:
			if p.lightFill == "" {
				p.lightFill = def.ID
			}
		case skill.ElementDark:
			if p.darkFill == "" {
				p.darkFill = def.ID
			}
		}
	}
	return p, nil
}

// Choose returns the next action for c.
//
// Postcondition: Returns sim.TriggerAction when a manual Equilibrium is
// pending, a ready skill id, or "" to wait.
func (p *Priority) Choose(c sim.CharacterSnapshot, _ sim.SimulationSnapshot) (skill.ID, error) {
	if c.PendingEquilibrium && c.Mode == component.EquilibriumManual {
		return sim.TriggerAction, nil
	}
	inEq := c.State == skill.StateEquilibrium
	for _, id := range p.order {
		if p.held[id] && !inEq {
			continue
		}
		if c.IsReady(id) {
			return id, nil
		}
	}
	fill := p.lightFill
	if c.State == skill.StateDark || (inEq && c.Next == skill.StateLight) {
		fill = p.darkFill
	}
	if fill != "" && c.IsReady(fill) {
		return fill, nil
	}
	return "", nil
}
