package component

import (
	"slices"
	"time"

	"github.com/cory-johannsen/lumisim/internal/game/ecs"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
)

// DamageRecord is one committed damage instance.
type DamageRecord struct {
	Skill    skill.ID
	Amount   float64
	Time     time.Duration
	Critical bool
	Source   ecs.Entity // the entity that attacked; a summon or the caster
}

// DamageLedger is the append-only history of damage dealt by one caster.
//
// Invariant: Total() equals the sum of every recorded Amount.
type DamageLedger struct {
	records []DamageRecord
	total   float64
}

// NewDamageLedger returns an empty ledger.
func NewDamageLedger() *DamageLedger { return &DamageLedger{} }

// Record appends r and updates the running total.
func (l *DamageLedger) Record(r DamageRecord) {
	l.records = append(l.records, r)
	l.total += r.Amount
}

// Total returns the running damage total.
func (l *DamageLedger) Total() float64 { return l.total }

// Len returns the number of records.
func (l *DamageLedger) Len() int { return len(l.records) }

// Records returns a copy of the history in commit order.
func (l *DamageLedger) Records() []DamageRecord { return slices.Clone(l.records) }
