// Package component defines the data records attached to simulation entities
// and the methods that keep each record's invariants.
//
// Writers per kind: State (state system), Gauge (gauge system), Cooldowns
// (skill system), Buffs (buff system), DamageLedger and EnemyStats (damage
// system), Summon (summon system), ActionDelay (skill system sets, time
// system clears). Stats and Learned are written only during setup.
package component

import "github.com/cory-johannsen/lumisim/internal/game/ecs"

var (
	StatsKind       = ecs.NewKind[Stats]("stats")
	StateKind       = ecs.NewKind[State]("state")
	GaugeKind       = ecs.NewKind[Gauge]("gauge")
	CooldownsKind   = ecs.NewKind[Cooldowns]("cooldowns")
	BuffsKind       = ecs.NewKind[Buffs]("buffs")
	LedgerKind      = ecs.NewKind[DamageLedger]("damage_ledger")
	ActionDelayKind = ecs.NewKind[ActionDelay]("action_delay")
	LearnedKind     = ecs.NewKind[Learned]("learned")
	EnemyKind       = ecs.NewKind[EnemyStats]("enemy_stats")
	SummonKind      = ecs.NewKind[Summon]("summon")
)
