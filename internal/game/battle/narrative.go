package battle

import (
	"fmt"
	"strings"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/calc"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/element"
)

func (e *Engine) damageNarrative(actor, target *Combatant, move catalog.MoveDef, r *ActionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s uses %s", actor.Name, move.Name)
	if move.Element != element.None {
		fmt.Fprintf(&b, " (%s)", e.titler.String(move.Element.String()))
	}
	fmt.Fprintf(&b, " on %s for %d damage", target.Name, r.Damage)
	if r.Attack != nil && r.Attack.HitCount > 1 {
		fmt.Fprintf(&b, " over %d hits", r.Attack.HitCount)
	}
	b.WriteString(".")
	if r.Crit {
		b.WriteString(" Critical hit!")
	}
	if r.Guarded {
		fmt.Fprintf(&b, " %s guarded.", target.Name)
	}
	if r.Attack != nil && r.Attack.Multipliers.Moxie > 1 {
		b.WriteString(" Moxie doubles the blow!")
	}
	if r.TargetFainted {
		fmt.Fprintf(&b, " %s fainted!", target.Name)
	}
	return b.String()
}

func (e *Engine) inspiritNarrative(actor, target *Combatant, def catalog.InspiritDef, out calc.InspiritOutcome) string {
	var parts []string
	for _, sc := range out.StatChanges {
		parts = append(parts, fmt.Sprintf("%s %+d", strings.ToUpper(sc.Stat.String()), sc.To-sc.From))
	}
	for _, k := range out.StatusesInflicted {
		parts = append(parts, e.titler.String(string(k)))
	}
	if out.HPDelta.Target != 0 {
		parts = append(parts, fmt.Sprintf("drains %d HP", -out.HPDelta.Target))
	}
	var b strings.Builder
	if target == actor {
		fmt.Fprintf(&b, "%s inspirits itself with %s", actor.Name, def.Name)
	} else {
		fmt.Fprintf(&b, "%s inspirits %s with %s", actor.Name, target.Name, def.Name)
	}
	if len(parts) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(parts, ", "))
	}
	b.WriteString(".")
	if target.IsFainted() {
		fmt.Fprintf(&b, " %s fainted!", target.Name)
	}
	return b.String()
}
