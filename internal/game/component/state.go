package component

import (
	"time"

	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

// EquilibriumMode decides whether a filled gauge enters Equilibrium on its own.
type EquilibriumMode int

const (
	EquilibriumAuto EquilibriumMode = iota
	EquilibriumManual
)

// String returns "auto" or "manual".
func (m EquilibriumMode) String() string {
	if m == EquilibriumManual {
		return "manual"
	}
	return "auto"
}

// State is the character's polarity state machine record.
//
// Invariant: Current == StateEquilibrium iff an Equilibrium end time is set.
// Invariant: Next is never StateEquilibrium and, once Equilibrium is entered,
// differs from the state active immediately before.
type State struct {
	Current            skill.State
	Next               skill.State
	PendingEquilibrium bool
	Mode               EquilibriumMode
	Memorized          bool // the running Equilibrium came from the Memorize variant
	Entries            int  // completed Equilibrium entries

	end    time.Duration
	hasEnd bool
}

// NewState creates a State in initial polarity heading towards its opposite.
//
// Precondition: initial is StateLight or StateDark; StateEquilibrium is treated as StateLight.
func NewState(initial skill.State, mode EquilibriumMode) *State {
	if initial == skill.StateEquilibrium {
		initial = skill.StateLight
	}
	return &State{Current: initial, Next: initial.Opposite(), Mode: mode}
}

// InEquilibrium reports whether Equilibrium is active.
func (s *State) InEquilibrium() bool { return s.Current == skill.StateEquilibrium }

// EquilibriumEnd returns the Equilibrium end time, if Equilibrium is active.
func (s *State) EquilibriumEnd() (time.Duration, bool) { return s.end, s.hasEnd }

// BeginEquilibrium enters Equilibrium until end.
//
// Postcondition: Returns the state that was left and true; returns false and
// changes nothing if Equilibrium is already active.
func (s *State) BeginEquilibrium(end time.Duration, memorize bool) (skill.State, bool) {
	if s.InEquilibrium() {
		return s.Current, false
	}
	prev := s.Current
	s.Next = prev.Opposite()
	s.Current = skill.StateEquilibrium
	s.PendingEquilibrium = false
	s.Memorized = memorize
	s.end = end
	s.hasEnd = true
	s.Entries++
	return prev, true
}

// ExtendEquilibrium pushes the end time forward by d.
//
// Postcondition: Returns the new end time and true, or false if Equilibrium is not active or d <= 0.
func (s *State) ExtendEquilibrium(d time.Duration) (time.Duration, bool) {
	if !s.hasEnd || d <= 0 {
		return s.end, false
	}
	s.end += d
	return s.end, true
}

// FinishEquilibrium leaves Equilibrium for Next and flips Next.
//
// Postcondition: Returns the entered state and true, or false if Equilibrium was not active.
func (s *State) FinishEquilibrium() (skill.State, bool) {
	if !s.InEquilibrium() {
		return s.Current, false
	}
	entered := s.Next
	s.Current = entered
	s.Next = entered.Opposite()
	s.Memorized = false
	s.end = 0
	s.hasEnd = false
	return entered, true
}
