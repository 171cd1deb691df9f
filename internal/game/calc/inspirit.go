package calc

import (
	"math"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/status"
)

// Subject is a combatant an inspirit can act upon.
type Subject interface {
	StageSet() *Stages
	StatusSet() *status.Set
	HP() (current, max int)
	SetHP(current int)
}

// StatChange records one stage movement.
type StatChange struct {
	Stat catalog.Stat `json:"stat"`
	From int          `json:"from"`
	To   int          `json:"to"`
}

// HPDelta is the signed HP change on each side of a drain.
type HPDelta struct {
	Attacker int `json:"attacker"`
	Target   int `json:"target"`
}

// InspiritOutcome reports everything an inspirit changed.
type InspiritOutcome struct {
	StatChanges       []StatChange  `json:"stat_changes,omitempty"`
	StatusesInflicted []status.Kind `json:"statuses_inflicted,omitempty"`
	HPDelta           HPDelta       `json:"hp_delta"`
}

// ApplyInspirit applies def's effects in order. Stat and status effects land
// on target; Drain moves HP from target to caster. caster and target may be
// the same Subject for self-targeted inspirits.
//
// Precondition: caster and target must not be nil.
// Postcondition: stages stay within [MinStage, MaxStage]; HP stays within
// [0, max] for both subjects.
func ApplyInspirit(def catalog.InspiritDef, caster, target Subject) InspiritOutcome {
	var out InspiritOutcome
	for _, eff := range def.Effects {
		switch e := eff.(type) {
		case catalog.AllStatsDelta:
			for _, stat := range catalog.AllStats() {
				from, to := target.StageSet().Shift(stat, e.Stages)
				out.StatChanges = append(out.StatChanges, StatChange{Stat: stat, From: from, To: to})
			}
		case catalog.StatDelta:
			from, to := target.StageSet().Shift(e.Stat, e.Stages)
			out.StatChanges = append(out.StatChanges, StatChange{Stat: e.Stat, From: from, To: to})
		case catalog.InflictStatus:
			if err := target.StatusSet().Apply(e.Kind, e.Duration); err == nil {
				out.StatusesInflicted = append(out.StatusesInflicted, e.Kind)
			}
		case catalog.Drain:
			tCur, tMax := target.HP()
			amount := int(math.Floor(float64(tMax) * e.Fraction))
			if amount > tCur {
				amount = tCur
			}
			target.SetHP(tCur - amount)
			out.HPDelta.Target -= amount

			cCur, cMax := caster.HP()
			gain := amount
			if cCur+gain > cMax {
				gain = cMax - cCur
			}
			caster.SetHP(cCur + gain)
			out.HPDelta.Attacker += gain
		}
	}
	return out
}
