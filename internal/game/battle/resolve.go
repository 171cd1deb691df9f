package battle

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/apperrors"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/calc"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/status"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/observability"
)

// resolveLocked executes both pending actions for the current turn.
//
// Precondition: e.mu is held and both sides have a pending action.
// Postcondition: pending actions are cleared; the phase is PhaseAwaitingActions
// for the next turn or PhaseEnded.
func (e *Engine) resolveLocked() ([]ActionResult, error) {
	if e.pending[SideA] == nil || e.pending[SideB] == nil {
		return nil, apperrors.New(apperrors.CodeEngineInvariant, "resolving with a missing pending action")
	}
	e.phase = PhaseResolving
	turn := e.turn
	actions := [2]Action{*e.pending[SideA], *e.pending[SideB]}
	e.pending = [2]*Action{}
	e.resolved++

	if results, done := e.resolveForfeits(turn, actions); done {
		return results, nil
	}

	var results []ActionResult
	for _, side := range e.turnOrder() {
		actor := e.rosters[side].Active()
		if actor.IsFainted() {
			e.logger.Debug("action voided",
				observability.Turn(turn),
				zap.Stringer("side", side),
				zap.String("actor", actor.Name),
			)
			continue
		}
		r := e.execute(turn, side, actions[side])
		e.appendLog(LogEntry{Turn: turn, Narrative: r.Narrative, Result: &r})
		results = append(results, r)
	}

	e.endOfTurn(turn)

	standingA := e.rosters[SideA].Standing()
	standingB := e.rosters[SideB].Standing()
	switch {
	case standingA == 0 && standingB == 0:
		e.appendLog(LogEntry{Turn: turn, Narrative: "Both teams are wiped out. The battle is a draw."})
		e.endLocked(WinnerDraw, "knockout")
	case standingB == 0:
		e.appendLog(LogEntry{Turn: turn, Narrative: "Side a wins!"})
		e.endLocked(WinnerA, "knockout")
	case standingA == 0:
		e.appendLog(LogEntry{Turn: turn, Narrative: "Side b wins!"})
		e.endLocked(WinnerB, "knockout")
	default:
		e.turn++
		e.phase = PhaseAwaitingActions
	}
	return results, nil
}

func (e *Engine) resolveForfeits(turn int, actions [2]Action) ([]ActionResult, bool) {
	fa := actions[SideA].Category == CategoryForfeit
	fb := actions[SideB].Category == CategoryForfeit
	if !fa && !fb {
		return nil, false
	}
	var results []ActionResult
	for _, side := range []Side{SideA, SideB} {
		if actions[side].Category != CategoryForfeit {
			continue
		}
		r := ActionResult{
			Turn:      turn,
			Side:      side,
			Actor:     e.rosters[side].Active().Name,
			Category:  CategoryForfeit,
			Success:   true,
			HitsToKO:  -1,
			Narrative: fmt.Sprintf("Side %s forfeits.", side),
		}
		e.appendLog(LogEntry{Turn: turn, Narrative: r.Narrative, Result: &r})
		results = append(results, r)
	}
	switch {
	case fa && fb:
		e.endLocked(WinnerDraw, "forfeit")
	case fa:
		e.endLocked(WinnerB, "forfeit")
	default:
		e.endLocked(WinnerA, "forfeit")
	}
	return results, true
}

// turnOrder puts the side with higher effective SPD first; ties go to A.
func (e *Engine) turnOrder() []Side {
	a, b := e.rosters[SideA].Active(), e.rosters[SideB].Active()
	if calc.Effective(b.Stats.SPD, b.Stages.SPD) > calc.Effective(a.Stats.SPD, a.Stages.SPD) {
		return []Side{SideB, SideA}
	}
	return []Side{SideA, SideB}
}

func (e *Engine) execute(turn int, side Side, a Action) ActionResult {
	actor := e.rosters[side].Active()
	r := ActionResult{
		Turn:       turn,
		Side:       side,
		Actor:      actor.Name,
		Category:   a.Category,
		MoveID:     a.MoveID,
		TargetSlot: a.TargetSlot,
		HitsToKO:   -1,
	}
	// Any action ends the guard the actor raised on an earlier turn.
	actor.Statuses.Remove(status.Guarding)

	if reason, lost := e.incapacitated(actor); lost {
		e.fail(&r, actor, apperrors.CodeIncapacitated, reason)
		return r
	}

	switch a.Category {
	case CategoryGuard:
		// Apply never fails for UntilConsumed.
		_ = actor.Statuses.Apply(status.Guarding, status.UntilConsumed)
		r.Success = true
		r.SoulAfter = actor.CurrentSoul
		r.Narrative = fmt.Sprintf("%s braces for impact.", actor.Name)
	case CategoryLoaf:
		r.Success = true
		r.SoulAfter = actor.CurrentSoul
		r.Narrative = fmt.Sprintf("%s is loafing around.", actor.Name)
	case CategoryInspirit:
		e.executeInspirit(side, actor, a, &r)
	default:
		e.executeDamage(side, actor, a, &r)
	}
	e.logger.Debug("action resolved",
		observability.Turn(turn),
		zap.Stringer("side", side),
		zap.Stringer("category", a.Category),
		zap.Bool("success", r.Success),
		zap.Int("damage", r.Damage),
	)
	return r
}

func (e *Engine) fail(r *ActionResult, actor *Combatant, code apperrors.Code, reason string) {
	r.Success = false
	r.Failure = &Failure{Code: code, Reason: reason}
	r.SoulAfter = actor.CurrentSoul
	r.Narrative = fmt.Sprintf("%s's %s failed: %s.", actor.Name, r.Category, reason)
}

func (e *Engine) executeDamage(side Side, actor *Combatant, a Action, r *ActionResult) {
	kind, _ := a.Category.MoveKind()
	if kind == catalog.KindSoultimate && actor.CurrentSoul < MaxSoul {
		e.fail(r, actor, apperrors.CodeInsufficientResource,
			fmt.Sprintf("soul meter at %d/%d", actor.CurrentSoul, MaxSoul))
		return
	}
	move, err := e.moves.GetMove(kind, a.MoveID)
	if err != nil {
		e.fail(r, actor, apperrors.CodeCatalogLookupFailed, lookupReason(err))
		return
	}
	r.MoveName = move.Name
	target, ok := e.rosters[side.Opponent()].Member(a.TargetSlot)
	if !ok {
		e.fail(r, actor, apperrors.CodeInvalidAction, fmt.Sprintf("no target in slot %d", a.TargetSlot))
		return
	}
	r.Target = target.Name
	if target.IsFainted() {
		e.fail(r, actor, apperrors.CodeInvalidAction, fmt.Sprintf("%s has already fainted", target.Name))
		return
	}

	in := calc.AttackInput{
		Move:                move,
		Attacker:            actor.Stats,
		AttackerStages:      actor.Stages,
		Defender:            target.Stats,
		DefenderStages:      target.Stages,
		DefenderResistances: target.Resistances,
		IsDefending:         target.Statuses.Has(status.Guarding),
		IsCrit:              e.calc.Chance(e.cfg.CritChancePercent),
		IsMoxieActive:       e.skills != nil && e.skills.MoxieActive(actor),
	}
	res := e.calc.Compute(in)
	hpBefore := target.CurrentHP
	total := res.Damage * res.HitCount
	applied := target.ApplyDamage(total)
	if kind == catalog.KindSoultimate {
		actor.CurrentSoul = 0
	}

	r.Success = true
	r.Attack = &res
	r.Damage = applied
	r.Crit = in.IsCrit
	r.Guarded = in.IsDefending
	r.HitsToKO = calc.HitsToKO(total, hpBefore)
	r.TargetHP = target.CurrentHP
	r.TargetMaxHP = target.MaxHP()
	r.TargetFainted = target.IsFainted()
	r.SoulAfter = actor.CurrentSoul
	r.Narrative = e.damageNarrative(actor, target, move, r)
}

func (e *Engine) executeInspirit(side Side, actor *Combatant, a Action, r *ActionResult) {
	def, err := e.moves.GetInspirit(a.MoveID)
	if err != nil {
		e.fail(r, actor, apperrors.CodeCatalogLookupFailed, lookupReason(err))
		return
	}
	r.MoveName = def.Name
	target := actor
	if def.Targets != catalog.TargetSelf {
		t, ok := e.rosters[side.Opponent()].Member(a.TargetSlot)
		if !ok {
			e.fail(r, actor, apperrors.CodeInvalidAction, fmt.Sprintf("no target in slot %d", a.TargetSlot))
			return
		}
		if t.IsFainted() {
			r.Target = t.Name
			e.fail(r, actor, apperrors.CodeInvalidAction, fmt.Sprintf("%s has already fainted", t.Name))
			return
		}
		target = t
	}
	out := calc.ApplyInspirit(def, actor, target)

	r.Success = true
	r.Target = target.Name
	r.Inspirit = &out
	r.Damage = -out.HPDelta.Target
	r.TargetHP = target.CurrentHP
	r.TargetMaxHP = target.MaxHP()
	r.TargetFainted = target.IsFainted()
	r.SoulAfter = actor.CurrentSoul
	r.Narrative = e.inspiritNarrative(actor, target, def, out)
}

func lookupReason(err error) string {
	if errors.Is(err, catalog.ErrNotFound) {
		return err.Error()
	}
	return "catalog unavailable: " + err.Error()
}

// Chances, in percent, that a status costs its holder the action.
const (
	paralysisLossPercent = 25
	confusionLossPercent = 33
)

// incapacitated reports whether a status stops actor from acting this turn.
func (e *Engine) incapacitated(actor *Combatant) (string, bool) {
	switch {
	case actor.Statuses.Has(status.Asleep):
		return actor.Name + " is fast asleep", true
	case actor.Statuses.Has(status.Paralyzed) && e.calc.Chance(paralysisLossPercent):
		return actor.Name + " is paralyzed and cannot move", true
	case actor.Statuses.Has(status.Confused) && e.calc.Chance(confusionLossPercent):
		return actor.Name + " is too confused to act", true
	}
	return "", false
}

// statusDamage returns the end-of-turn HP loss caused by c's statuses.
func statusDamage(c *Combatant) int {
	dmg := 0
	if c.Statuses.Has(status.Poisoned) {
		dmg += max(1, c.MaxHP()/8)
	}
	if c.Statuses.Has(status.Burned) {
		dmg += max(1, c.MaxHP()/16)
	}
	return dmg
}

// endOfTurn grants soul, applies status damage, ticks statuses and brings
// fresh combatants forward.
func (e *Engine) endOfTurn(turn int) {
	for _, side := range []Side{SideA, SideB} {
		roster := e.rosters[side]
		for _, c := range roster.Members {
			if c.IsFainted() {
				continue
			}
			c.GainSoul(e.cfg.SoulPerTurn)
			if dmg := statusDamage(c); dmg > 0 {
				lost := c.ApplyDamage(dmg)
				msg := fmt.Sprintf("%s takes %d damage from its condition.", c.Name, lost)
				if c.IsFainted() {
					msg += fmt.Sprintf(" %s fainted!", c.Name)
				}
				e.appendLog(LogEntry{Turn: turn, Narrative: msg})
			}
		}
		for _, c := range roster.Members {
			for _, k := range c.Statuses.Tick() {
				e.appendLog(LogEntry{Turn: turn, Narrative: fmt.Sprintf("%s is no longer affected by %s.", c.Name, k)})
			}
		}
		prev := roster.Active()
		if roster.promote() {
			e.appendLog(LogEntry{Turn: turn, Narrative: fmt.Sprintf("%s fainted. %s steps in for side %s.", prev.Name, roster.Active().Name, side)})
		}
	}
}
