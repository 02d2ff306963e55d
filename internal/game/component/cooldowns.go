package component

import (
	"slices"
	"strings"
	"time"

	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

// CooldownEntry is one row of the cooldown table.
type CooldownEntry struct {
	Remaining  time.Duration
	Max        time.Duration
	LastUsed   time.Duration
	UsageCount int
}

// Cooldowns is the per-skill cooldown table.
//
// Invariant: every Remaining is in [0, Max].
type Cooldowns struct {
	entries map[skill.ID]*CooldownEntry
}

// NewCooldowns returns an empty table.
func NewCooldowns() *Cooldowns {
	return &Cooldowns{entries: make(map[skill.ID]*CooldownEntry)}
}

// Remaining returns the cooldown left on id; unknown skills are ready.
func (c *Cooldowns) Remaining(id skill.ID) time.Duration {
	if e, ok := c.entries[id]; ok {
		return e.Remaining
	}
	return 0
}

// Ready reports whether id is off cooldown.
func (c *Cooldowns) Ready(id skill.ID) bool { return c.Remaining(id) <= 0 }

// Usage returns the number of uses since the last usage reset.
func (c *Cooldowns) Usage(id skill.ID) int {
	if e, ok := c.entries[id]; ok {
		return e.UsageCount
	}
	return 0
}

// Entry returns a copy of the row for id.
func (c *Cooldowns) Entry(id skill.ID) (CooldownEntry, bool) {
	if e, ok := c.entries[id]; ok {
		return *e, true
	}
	return CooldownEntry{}, false
}

// Start records a use of id at now with the given cooldown.
//
// Postcondition: Remaining(id) == max(cd, 0); Usage(id) incremented.
func (c *Cooldowns) Start(id skill.ID, cd, now time.Duration) {
	if cd < 0 {
		cd = 0
	}
	e := c.entry(id)
	e.Remaining = cd
	e.Max = cd
	e.LastUsed = now
	e.UsageCount++
}

// Tick decays every cooldown by elapsed, flooring at zero.
//
// Postcondition: every Remaining is non-increasing.
func (c *Cooldowns) Tick(elapsed time.Duration) {
	if elapsed <= 0 {
		return
	}
	for _, e := range c.entries {
		e.Remaining = max(0, e.Remaining-elapsed)
	}
}

// Reduce shortens the cooldown of id by d and returns the amount removed.
func (c *Cooldowns) Reduce(id skill.ID, d time.Duration) time.Duration {
	e, ok := c.entries[id]
	if !ok || d <= 0 || e.Remaining <= 0 {
		return 0
	}
	removed := min(d, e.Remaining)
	e.Remaining -= removed
	return removed
}

// Clear sets the cooldown of id to zero. Returns true if it was running.
func (c *Cooldowns) Clear(id skill.ID) bool {
	e, ok := c.entries[id]
	if !ok || e.Remaining <= 0 {
		return false
	}
	e.Remaining = 0
	return true
}

// ResetUsage zeroes the usage counters of ids.
func (c *Cooldowns) ResetUsage(ids ...skill.ID) {
	for _, id := range ids {
		if e, ok := c.entries[id]; ok {
			e.UsageCount = 0
		}
	}
}

// IDs returns every skill with a row, sorted.
func (c *Cooldowns) IDs() []skill.ID {
	ids := make([]skill.ID, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b skill.ID) int { return strings.Compare(string(a), string(b)) })
	return ids
}

func (c *Cooldowns) entry(id skill.ID) *CooldownEntry {
	e, ok := c.entries[id]
	if !ok {
		e = &CooldownEntry{}
		c.entries[id] = e
	}
	return e
}
