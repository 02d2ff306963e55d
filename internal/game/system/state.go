package system

import (
	"context"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/cory-johannsen/lumisim/internal/game/component"
	"github.com/cory-johannsen/lumisim/internal/game/ecs"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

// State machine event names.
const (
	transitionEnter     = "enter_equilibrium"
	transitionExitLight = "exit_to_light"
	transitionExitDark  = "exit_to_dark"
)

const enteredAtKey = "entered_at"

// polarityChange carries one transition's inputs into the machine callback and
// its outcome back out.
type polarityChange struct {
	state    *component.State
	end      time.Duration
	memorize bool
	left     skill.State
	entered  skill.State
}

// newPolarityMachine returns the Light/Dark/Equilibrium transition table
// positioned at initial. Light and Dark never transition directly. The
// machine commits every accepted transition to the State component carried
// in the event arguments.
func newPolarityMachine(initial skill.State) *fsm.FSM {
	light := skill.StateLight.String()
	dark := skill.StateDark.String()
	eq := skill.StateEquilibrium.String()
	return fsm.NewFSM(initial.String(), fsm.Events{
		{Name: transitionEnter, Src: []string{light, dark}, Dst: eq},
		{Name: transitionExitLight, Src: []string{eq}, Dst: light},
		{Name: transitionExitDark, Src: []string{eq}, Dst: dark},
	}, fsm.Callbacks{
		"enter_state": func(_ context.Context, ev *fsm.Event) {
			c := ev.Args[0].(*polarityChange)
			if ev.Dst == eq {
				c.left, _ = c.state.BeginEquilibrium(c.end, c.memorize)
				c.entered = skill.StateEquilibrium
				return
			}
			c.left = skill.StateEquilibrium
			c.entered, _ = c.state.FinishEquilibrium()
		},
	})
}

// StateSystem is the only writer of State. It moves characters into
// Equilibrium when their gauge is full and back out when it ends. Each
// character's polarity is owned by a transition machine; the State component
// is written only by that machine's callbacks.
type StateSystem struct {
	rules    skill.Rules
	buffs    *BuffSystem
	machines map[ecs.Entity]*fsm.FSM
	logger   *zap.Logger
}

// NewStateSystem creates a StateSystem.
//
// Precondition: buffs and logger must be non-nil.
func NewStateSystem(rules skill.Rules, buffs *BuffSystem, logger *zap.Logger) *StateSystem {
	return &StateSystem{
		rules:    rules,
		buffs:    buffs,
		machines: make(map[ecs.Entity]*fsm.FSM),
		logger:   logger,
	}
}

// Name implements ecs.System.
func (s *StateSystem) Name() string { return "state" }

// Subscribe drops a character's transition machine when its State component
// is removed, including on entity destruction.
func (s *StateSystem) Subscribe(w *ecs.World) {
	w.On(ecs.EventComponentRemoved, func(ev ecs.Event) {
		if ev.Kind == component.StateKind.Kind() {
			delete(s.machines, ev.Entity)
		}
	})
}

// Polarity returns the state held by e's transition machine.
//
// Postcondition: Returns false if no machine exists for e yet.
func (s *StateSystem) Polarity(e ecs.Entity) (skill.State, bool) {
	m, ok := s.machines[e]
	if !ok {
		return 0, false
	}
	st, err := skill.ParseState(m.Current())
	return st, err == nil
}

// Update ends Equilibrium for every character whose end time has been
// reached and, in auto mode, enters Equilibrium for pending characters.
func (s *StateSystem) Update(w *ecs.World, _ time.Duration) {
	now := w.Now()
	for _, e := range w.Query(component.StateKind.Kind()) {
		st, _ := ecs.Get(w, e, component.StateKind)
		if end, ok := st.EquilibriumEnd(); ok && now >= end {
			s.ExitEquilibrium(w, e)
			continue
		}
		if st.PendingEquilibrium && st.Mode == component.EquilibriumAuto {
			s.EnterEquilibrium(w, e, false)
		}
	}
}

// MarkPending flags e as ready for Equilibrium. In auto mode Equilibrium is
// entered immediately.
//
// Postcondition: Returns false when e is already in Equilibrium or lacks State.
func (s *StateSystem) MarkPending(w *ecs.World, e ecs.Entity) bool {
	if !s.SetPending(w, e) {
		return false
	}
	if st, _ := ecs.Get(w, e, component.StateKind); st.Mode == component.EquilibriumAuto {
		s.EnterEquilibrium(w, e, false)
	}
	return true
}

// SetPending flags e as ready for Equilibrium without entering it. Pending
// auto-mode characters enter on the next State or Gauge update.
//
// Postcondition: Returns false when e is already in Equilibrium or lacks State.
func (s *StateSystem) SetPending(w *ecs.World, e ecs.Entity) bool {
	st, ok := lookup(w, e, component.StateKind, s.logger, "state.set_pending")
	if !ok || s.machine(e, st).Cannot(transitionEnter) {
		return false
	}
	st.PendingEquilibrium = true
	return true
}

// Trigger enters Equilibrium for a pending character. It is the manual-mode
// counterpart of the automatic transition.
//
// Postcondition: Returns false if e is not pending or already in Equilibrium.
func (s *StateSystem) Trigger(w *ecs.World, e ecs.Entity) bool {
	st, ok := lookup(w, e, component.StateKind, s.logger, "state.trigger")
	if !ok || !st.PendingEquilibrium {
		return false
	}
	return s.EnterEquilibrium(w, e, false)
}

// EnterEquilibrium moves e into Equilibrium. The duration is the natural or
// Memorize length scaled by the character's buff-duration increase. Gauges
// are left untouched; the Equilibrium buff is applied with the same end time.
//
// Postcondition: Returns false and changes nothing if e is already in
// Equilibrium or lacks State or Stats.
func (s *StateSystem) EnterEquilibrium(w *ecs.World, e ecs.Entity, memorize bool) bool {
	st, ok := lookup(w, e, component.StateKind, s.logger, "state.enter")
	if !ok {
		return false
	}
	stats, ok := lookup(w, e, component.StatsKind, s.logger, "state.enter")
	if !ok {
		return false
	}
	now := w.Now()
	d := s.rules.EquilibriumDuration(stats.BuffDuration, memorize)
	change := &polarityChange{state: st, end: now + d, memorize: memorize}
	m := s.machine(e, st)
	if !s.fire(m, e, transitionEnter, change) {
		return false
	}
	m.SetMetadata(enteredAtKey, now)

	s.buffs.Apply(w, e, skill.EquilibriumBuff, skill.EquilibriumBuff, skill.BuffSpec{
		Duration:       d,
		MaxStacks:      1,
		DurationImmune: true,
		LagImmune:      true,
	})
	w.Emit(EventEnteredEquilibrium, e, EquilibriumEntered{
		From:     change.left,
		End:      now + d,
		Duration: d,
		Memorize: memorize,
	})
	s.logger.Debug("entered equilibrium",
		zap.Stringer("entity", e),
		zap.Stringer("from", change.left),
		zap.Duration("duration", d),
		zap.Bool("memorize", memorize),
	)
	return true
}

// ExitEquilibrium leaves Equilibrium for the character's next state and
// removes the Equilibrium buff.
//
// Postcondition: Returns false if e is not in Equilibrium.
func (s *StateSystem) ExitEquilibrium(w *ecs.World, e ecs.Entity) bool {
	st, ok := lookup(w, e, component.StateKind, s.logger, "state.exit")
	if !ok {
		return false
	}
	event := transitionExitLight
	if st.Next == skill.StateDark {
		event = transitionExitDark
	}
	change := &polarityChange{state: st}
	m := s.machine(e, st)
	if !s.fire(m, e, event, change) {
		return false
	}
	var lasted time.Duration
	if at, ok := m.Metadata(enteredAtKey); ok {
		lasted = w.Now() - at.(time.Duration)
		m.DeleteMetadata(enteredAtKey)
	}

	s.buffs.Remove(w, e, skill.EquilibriumBuff)
	w.Emit(EventExitedEquilibrium, e, EquilibriumExited{To: change.entered, Lasted: lasted})
	s.logger.Debug("exited equilibrium",
		zap.Stringer("entity", e),
		zap.Stringer("to", change.entered),
		zap.Duration("lasted", lasted),
	)
	return true
}

// Extend pushes the running Equilibrium end forward by d and moves the
// Equilibrium buff's expiry with it.
//
// Postcondition: Returns false if e is not in Equilibrium or d <= 0.
func (s *StateSystem) Extend(w *ecs.World, e ecs.Entity, d time.Duration) bool {
	st, ok := lookup(w, e, component.StateKind, s.logger, "state.extend")
	if !ok {
		return false
	}
	end, ok := st.ExtendEquilibrium(d)
	if !ok {
		return false
	}
	s.buffs.SetExpiry(w, e, skill.EquilibriumBuff, end)
	s.logger.Debug("equilibrium extended",
		zap.Stringer("entity", e),
		zap.Duration("by", d),
		zap.Duration("end", end),
	)
	return true
}

// machine returns e's transition machine, creating it at st's polarity on first use.
func (s *StateSystem) machine(e ecs.Entity, st *component.State) *fsm.FSM {
	m, ok := s.machines[e]
	if !ok {
		m = newPolarityMachine(st.Current)
		s.machines[e] = m
	}
	return m
}

// fire runs event on m. A transition the table does not allow is rejected
// without touching the State component.
func (s *StateSystem) fire(m *fsm.FSM, e ecs.Entity, event string, change *polarityChange) bool {
	if err := m.Event(context.Background(), event, change); err != nil {
		s.logger.Debug("state transition rejected",
			zap.Stringer("entity", e),
			zap.String("state", m.Current()),
			zap.String("event", event),
			zap.Error(err),
		)
		return false
	}
	return true
}
