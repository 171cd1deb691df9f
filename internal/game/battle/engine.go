package battle

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/apperrors"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/calc"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/observability"
)

// Config tunes the engine.
type Config struct {
	// LogWindow is how many recent log entries GetState returns.
	LogWindow int
	// SoulPerTurn is added to every standing combatant after each turn.
	SoulPerTurn int
	// CritChancePercent is the chance in [0, 100] that a damaging move crits.
	CritChancePercent int
}

// DefaultConfig returns the standard rules.
func DefaultConfig() Config {
	return Config{LogWindow: 10, SoulPerTurn: 10, CritChancePercent: 5}
}

// MoxieEvaluator decides whether a combatant's passive skill doubles its
// soultimate damage.
type MoxieEvaluator interface {
	MoxieActive(c *Combatant) bool
}

// Engine runs one battle between side A and side B. It is safe for
// concurrent use; SubmitAction calls from both sides are serialised so that
// a turn resolves exactly once.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	moves   catalog.Provider
	skills  MoxieEvaluator
	calc    *calc.Calculator
	logger  *zap.Logger
	titler  cases.Caser
	rosters [2]*Roster

	turn     int
	resolved int
	phase    Phase
	pending  [2]*Action
	log      []LogEntry
	winner   Winner
	reason   string
}

// NewEngine creates an engine awaiting actions for turn 1.
//
// Precondition: moves, src, logger, a and b must be non-nil. skills may be
// nil, in which case moxie is never active.
// Postcondition: Phase() == PhaseAwaitingActions and Turn() == 1.
func NewEngine(cfg Config, moves catalog.Provider, skills MoxieEvaluator, src calc.Source, logger *zap.Logger, a, b *Roster) (*Engine, error) {
	if moves == nil || src == nil || logger == nil {
		return nil, errors.New("battle engine requires a move provider, a random source and a logger")
	}
	if a == nil || b == nil {
		return nil, errors.New("battle engine requires two rosters")
	}
	if cfg.LogWindow <= 0 {
		cfg.LogWindow = DefaultConfig().LogWindow
	}
	if cfg.SoulPerTurn < 0 {
		return nil, fmt.Errorf("soul per turn must be >= 0, got %d", cfg.SoulPerTurn)
	}
	if cfg.CritChancePercent < 0 || cfg.CritChancePercent > 100 {
		return nil, fmt.Errorf("crit chance must be in [0, 100], got %d", cfg.CritChancePercent)
	}
	return &Engine{
		cfg:     cfg,
		moves:   moves,
		skills:  skills,
		calc:    calc.NewCalculator(src),
		logger:  logger,
		titler:  cases.Title(language.English),
		rosters: [2]*Roster{a, b},
		turn:    1,
		phase:   PhaseAwaitingActions,
	}, nil
}

// Turn returns the turn currently collecting actions, or the final turn once
// the battle has ended.
func (e *Engine) Turn() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.turn
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// IsOver reports whether the battle has ended.
func (e *Engine) IsOver() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase == PhaseEnded
}

// Winner returns the outcome, WinnerNone while the battle is ongoing.
func (e *Engine) Winner() Winner {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.winner
}

// HasPending reports whether side has an action stored for this turn.
func (e *Engine) HasPending(side Side) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending[side] != nil
}

// RosterView returns the public view of one side's roster.
func (e *Engine) RosterView(side Side) RosterView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rosters[side].View()
}

// SubmitAction stores action for side. If the opponent has already
// submitted, the turn resolves immediately and the full result is returned.
// A second submission by the same side before resolution replaces the first.
//
// Precondition: side is SideA or SideB.
// Postcondition: On error nothing is stored. A returned error carries an
// apperrors code: CodeSessionEnded after the battle is over, CodeInvalidAction
// or CodeCatalogLookupFailed for a malformed action, CodeEngineInvariant on
// an internal fault.
func (e *Engine) SubmitAction(side Side, action Action) (SubmitResult, error) {
	if side != SideA && side != SideB {
		return SubmitResult{}, apperrors.Newf(apperrors.CodeInvalidAction, "unknown side %d", int(side))
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase == PhaseEnded {
		return SubmitResult{}, apperrors.New(apperrors.CodeSessionEnded, "battle is over")
	}
	if e.phase != PhaseAwaitingActions {
		return SubmitResult{}, apperrors.Newf(apperrors.CodeEngineInvariant, "submission during phase %s", e.phase)
	}
	if err := e.validate(side, &action); err != nil {
		return SubmitResult{}, err
	}
	e.pending[side] = &action
	e.logger.Debug("action stored",
		observability.Turn(e.turn),
		zap.Stringer("side", side),
		zap.Stringer("category", action.Category),
		zap.String("move", action.MoveID),
	)

	if e.pending[side.Opponent()] == nil {
		return SubmitResult{Status: StatusWaiting, Side: side, Turn: e.turn}, nil
	}
	turn := e.turn
	results, err := e.resolveLocked()
	if err != nil {
		return SubmitResult{}, err
	}
	st := e.stateLocked()
	return SubmitResult{Status: StatusResolved, Side: side, Turn: turn, Results: results, State: &st}, nil
}

// validate rejects actions that can never execute, filling in a missing
// MoveID from the actor's moveset.
func (e *Engine) validate(side Side, a *Action) error {
	switch a.Category {
	case CategoryForfeit:
		return nil
	case CategoryAttack, CategoryTechnique, CategoryInspirit, CategorySoultimate, CategoryGuard, CategoryLoaf:
	default:
		return apperrors.Newf(apperrors.CodeInvalidAction, "unknown action category %d", int(a.Category))
	}

	own := e.rosters[side]
	if _, ok := own.Member(a.ActorSlot); !ok {
		return apperrors.Newf(apperrors.CodeInvalidAction, "actor slot %d out of range", a.ActorSlot).
			WithMetadata("slot", fmt.Sprint(a.ActorSlot))
	}
	if a.ActorSlot != own.ActiveSlot() {
		return apperrors.Newf(apperrors.CodeInvalidAction, "actor slot %d is not the active combatant (slot %d)", a.ActorSlot, own.ActiveSlot())
	}
	actor := own.Active()
	if a.Category == CategoryGuard || a.Category == CategoryLoaf {
		return nil
	}

	bound := actor.Moves.For(a.Category)
	if bound == "" {
		return apperrors.Newf(apperrors.CodeInvalidAction, "%s has no %s", actor.Name, a.Category)
	}
	if a.MoveID == "" {
		a.MoveID = bound
	}
	if a.MoveID != bound {
		return apperrors.Newf(apperrors.CodeInvalidAction, "move %q is not %s's %s", a.MoveID, actor.Name, a.Category)
	}

	selfTarget := false
	if kind, ok := a.Category.MoveKind(); ok {
		if _, err := e.moves.GetMove(kind, a.MoveID); err != nil {
			return lookupFailure(err)
		}
	} else {
		def, err := e.moves.GetInspirit(a.MoveID)
		if err != nil {
			return lookupFailure(err)
		}
		selfTarget = def.Targets == catalog.TargetSelf
	}
	if selfTarget {
		return nil
	}
	target, ok := e.rosters[side.Opponent()].Member(a.TargetSlot)
	if !ok {
		return apperrors.Newf(apperrors.CodeInvalidAction, "target slot %d out of range", a.TargetSlot).
			WithMetadata("slot", fmt.Sprint(a.TargetSlot))
	}
	if target.IsFainted() {
		return apperrors.Newf(apperrors.CodeInvalidAction, "target %s has already fainted", target.Name).
			WithMetadata("slot", fmt.Sprint(a.TargetSlot))
	}
	return nil
}

func lookupFailure(err error) error {
	return apperrors.Wrap(apperrors.CodeCatalogLookupFailed, "catalog lookup failed", err)
}

// Forfeit ends the battle immediately in favour of side's opponent. It
// reports false if the battle was already over.
func (e *Engine) Forfeit(side Side, reason string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhaseEnded {
		return false
	}
	e.appendLog(LogEntry{Turn: e.turn, Narrative: fmt.Sprintf("Side %s forfeits (%s).", side, reason)})
	e.pending = [2]*Action{}
	e.endLocked(winnerFor(side.Opponent()), reason)
	return true
}

// GetState returns the current snapshot with the most recent log entries.
func (e *Engine) GetState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) stateLocked() State {
	start := len(e.log) - e.cfg.LogWindow
	if start < 0 {
		start = 0
	}
	return State{
		Turn:   e.turn,
		Phase:  e.phase,
		Winner: e.winner,
		A:      e.rosters[SideA].View(),
		B:      e.rosters[SideB].View(),
		Log:    append([]LogEntry(nil), e.log[start:]...),
	}
}

// Summary returns the post-battle record with the full log.
func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Summary{
		Turns:  e.resolved,
		Winner: e.winner,
		Reason: e.reason,
		Log:    append([]LogEntry(nil), e.log...),
		Final:  e.stateLocked(),
	}
}

func (e *Engine) appendLog(entry LogEntry) {
	e.log = append(e.log, entry)
}

func (e *Engine) endLocked(w Winner, reason string) {
	e.phase = PhaseEnded
	e.winner = w
	e.reason = reason
	e.logger.Info("battle ended",
		zap.Stringer("winner", w),
		zap.String("reason", reason),
		zap.Int("turns", e.resolved),
	)
}
