package battle

import (
	"fmt"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/apperrors"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/calc"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/status"
)

// Phase is the engine's position in the turn cycle.
type Phase int

const (
	PhaseAwaitingActions Phase = iota
	PhaseResolving
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingActions:
		return "awaiting_actions"
	case PhaseResolving:
		return "resolving"
	case PhaseEnded:
		return "ended"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Winner is the outcome of a battle. WinnerNone means the battle is ongoing.
type Winner int

const (
	WinnerNone Winner = iota
	WinnerA
	WinnerB
	WinnerDraw
)

func winnerFor(s Side) Winner {
	if s == SideA {
		return WinnerA
	}
	return WinnerB
}

// Side returns the winning side, or false for a draw or an ongoing battle.
func (w Winner) Side() (Side, bool) {
	switch w {
	case WinnerA:
		return SideA, true
	case WinnerB:
		return SideB, true
	}
	return 0, false
}

func (w Winner) String() string {
	switch w {
	case WinnerNone:
		return "none"
	case WinnerA:
		return "a"
	case WinnerB:
		return "b"
	case WinnerDraw:
		return "draw"
	}
	return fmt.Sprintf("winner(%d)", int(w))
}

// MarshalText implements encoding.TextMarshaler.
func (w Winner) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

// Failure explains why an action had no effect.
type Failure struct {
	Code   apperrors.Code `json:"code"`
	Reason string         `json:"reason"`
}

// ActionResult reports what one executed action did.
type ActionResult struct {
	Turn          int                   `json:"turn"`
	Side          Side                  `json:"side"`
	Actor         string                `json:"actor"`
	Category      Category              `json:"category"`
	MoveID        string                `json:"move_id,omitempty"`
	MoveName      string                `json:"move_name,omitempty"`
	Success       bool                  `json:"success"`
	Failure       *Failure              `json:"failure,omitempty"`
	TargetSlot    int                   `json:"target_slot"`
	Target        string                `json:"target,omitempty"`
	Attack        *calc.AttackResult    `json:"attack,omitempty"`
	Damage        int                   `json:"damage"`
	Crit          bool                  `json:"crit"`
	Guarded       bool                  `json:"guarded"`
	HitsToKO      int                   `json:"hits_to_ko"`
	TargetHP      int                   `json:"target_hp"`
	TargetMaxHP   int                   `json:"target_max_hp"`
	TargetFainted bool                  `json:"target_fainted"`
	SoulAfter     int                   `json:"soul_after"`
	Inspirit      *calc.InspiritOutcome `json:"inspirit,omitempty"`
	Narrative     string                `json:"narrative"`
}

// LogEntry is one line of the battle log.
type LogEntry struct {
	Turn      int           `json:"turn"`
	Narrative string        `json:"narrative"`
	Result    *ActionResult `json:"result,omitempty"`
}

// CombatantView is the public-safe view of a Combatant.
type CombatantView struct {
	CatalogID   string          `json:"catalog_id"`
	Name        string          `json:"name"`
	CurrentHP   int             `json:"current_hp"`
	MaxHP       int             `json:"max_hp"`
	CurrentSoul int             `json:"current_soul"`
	Stages      calc.Stages     `json:"stages"`
	Statuses    []status.Active `json:"statuses"`
	Fainted     bool            `json:"fainted"`
}

// RosterView is the public-safe view of a Roster.
type RosterView struct {
	Active  int             `json:"active"`
	Members []CombatantView `json:"members"`
}

// View snapshots r.
func (r *Roster) View() RosterView {
	v := RosterView{Active: r.active, Members: make([]CombatantView, len(r.Members))}
	for i, c := range r.Members {
		v.Members[i] = CombatantView{
			CatalogID:   c.CatalogID,
			Name:        c.Name,
			CurrentHP:   c.CurrentHP,
			MaxHP:       c.MaxHP(),
			CurrentSoul: c.CurrentSoul,
			Stages:      c.Stages,
			Statuses:    c.Statuses.All(),
			Fainted:     c.IsFainted(),
		}
	}
	return v
}

// State is the snapshot broadcast after every resolved turn. Log holds only
// the most recent entries.
type State struct {
	Turn   int        `json:"turn"`
	Phase  Phase      `json:"phase"`
	Winner Winner     `json:"winner"`
	A      RosterView `json:"a"`
	B      RosterView `json:"b"`
	Log    []LogEntry `json:"log"`
}

// SubmitStatus distinguishes a stored action from a resolved turn.
type SubmitStatus int

const (
	StatusWaiting SubmitStatus = iota
	StatusResolved
)

func (s SubmitStatus) String() string {
	if s == StatusResolved {
		return "resolved"
	}
	return "waiting"
}

// MarshalText implements encoding.TextMarshaler.
func (s SubmitStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// SubmitResult is returned by SubmitAction. Results and State are set only
// when Status is StatusResolved.
type SubmitResult struct {
	Status  SubmitStatus   `json:"status"`
	Side    Side           `json:"side"`
	Turn    int            `json:"turn"`
	Results []ActionResult `json:"results,omitempty"`
	State   *State         `json:"state,omitempty"`
}

// Summary is the post-battle record, carrying the full log.
type Summary struct {
	Turns  int        `json:"turns"`
	Winner Winner     `json:"winner"`
	Reason string     `json:"reason"`
	Log    []LogEntry `json:"log"`
	Final  State      `json:"final"`
}
