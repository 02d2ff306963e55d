package component

import (
	"time"

	"github.com/cory-johannsen/lumisim/internal/game/ecs"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

// Summon is a timed periodic attacker. Its damage is attributed to Owner.
type Summon struct {
	Owner      ecs.Entity
	Target     ecs.Entity
	Skill      skill.ID
	Spawned    time.Duration
	ActiveAt   time.Duration // first attack may happen at or after this time
	EndsAt     time.Duration
	Interval   time.Duration
	NextAttack time.Duration
	Attacks    int
}

// ActionDelay marks a caster as busy casting until Until.
type ActionDelay struct {
	Skill skill.ID
	Until time.Duration
}
