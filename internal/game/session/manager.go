// Package session maps pairs of independently connecting participants onto
// battle engines and fans engine output out to both of them.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/apperrors"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/battle"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/calc"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/roster"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/observability"
)

// Config tunes session behaviour.
type Config struct {
	Battle battle.Config
	// EndedGrace is how long an ended session lingers before Sweep removes
	// it without acknowledgements.
	EndedGrace time.Duration
	// ActionTimeout forfeits a side that has not submitted within this long
	// of the turn opening. Zero disables it.
	ActionTimeout time.Duration
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	return Config{Battle: battle.DefaultConfig(), EndedGrace: 30 * time.Second}
}

// RosterBuilder turns a submitted team into battle-ready combatants.
type RosterBuilder interface {
	Validate(team roster.Team) error
	Build(team roster.Team) (*battle.Roster, error)
}

// JoinStatus distinguishes the two Join outcomes.
type JoinStatus int

const (
	JoinWaiting JoinStatus = iota
	JoinStarted
)

// JoinResult is returned by Join. Opponent and State are set only when
// Status is JoinStarted.
type JoinResult struct {
	Status   JoinStatus
	Side     battle.Side
	Opponent *battle.RosterView
	State    *battle.State
}

// battleSession is one match. mu serialises every operation on it.
type battleSession struct {
	id     string
	mu     sync.Mutex
	life   *lifecycle
	seats  [2]*Participant
	teams  [2]roster.Team
	engine *battle.Engine
	timer  *battle.ActionTimer
	acks   [2]bool
	logger *zap.Logger

	createdAt time.Time
	startedAt time.Time
	endedAt   time.Time
	// removed is set once the session has left the registry; a caller that
	// raced the removal must treat the session as not found.
	removed bool
}

func (s *battleSession) sideOf(participantID string) (battle.Side, bool) {
	for i, p := range s.seats {
		if p != nil && p.ID() == participantID {
			return battle.Side(i), true
		}
	}
	return 0, false
}

// Manager is the battle session registry. Distinct sessions never block
// each other: the registry lock only guards the map, and each session has
// its own lock. Lock order is session then registry.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*battleSession

	cfg      Config
	rosters  RosterBuilder
	moves    catalog.Provider
	skills   battle.MoxieEvaluator
	random   calc.Source
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager creates an empty Manager.
//
// Precondition: rosters, moves, random and logger must be non-nil. skills
// and recorder may be nil.
func NewManager(cfg Config, rosters RosterBuilder, moves catalog.Provider, skills battle.MoxieEvaluator, random calc.Source, recorder Recorder, logger *zap.Logger) *Manager {
	if cfg.EndedGrace <= 0 {
		cfg.EndedGrace = DefaultConfig().EndedGrace
	}
	return &Manager{
		sessions: make(map[string]*battleSession),
		cfg:      cfg,
		rosters:  rosters,
		moves:    moves,
		skills:   skills,
		random:   random,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Join seats p in sessionID. The first joiner creates the session and
// waits; the second resolves both rosters and starts the battle.
//
// Precondition: p must be non-nil.
// Postcondition: An invalid team returns CodeInvalidRoster and leaves the
// session unchanged. A third participant gets CodeSessionFull. Joining
// again while waiting is idempotent.
func (m *Manager) Join(sessionID string, p *Participant, team roster.Team) (JoinResult, error) {
	if sessionID == "" {
		return JoinResult{}, apperrors.New(apperrors.CodeSessionNotFound, "session id is required")
	}
	if err := m.rosters.Validate(team); err != nil {
		return JoinResult{}, err
	}
	for {
		s, created := m.getOrCreate(sessionID, p, team)
		if created {
			s.logger.Info("session created", observability.Participant(p.ID()))
			m.push(s, p, Event{Type: EventWaitingForOpponent, SessionID: sessionID, Payload: WaitingPayload{Side: battle.SideA}})
			return JoinResult{Status: JoinWaiting, Side: battle.SideA}, nil
		}
		res, retry, err := m.joinExisting(s, p, team)
		if retry {
			continue
		}
		return res, err
	}
}

func (m *Manager) getOrCreate(sessionID string, p *Participant, team roster.Team) (*battleSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		return s, false
	}
	s := &battleSession{
		id:        sessionID,
		life:      newLifecycle(),
		timer:     battle.NewActionTimer(),
		logger:    m.logger.With(observability.Session(sessionID)),
		createdAt: m.now(),
	}
	s.seats[battle.SideA] = p
	s.teams[battle.SideA] = append(roster.Team(nil), team...)
	m.sessions[sessionID] = s
	return s, true
}

func (m *Manager) joinExisting(s *battleSession, p *Participant, team roster.Team) (JoinResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return JoinResult{}, true, nil
	}
	if side, ok := s.sideOf(p.ID()); ok {
		if s.life.Current() == StatusAwaitingSecondParticipant {
			return JoinResult{Status: JoinWaiting, Side: side}, false, nil
		}
		return JoinResult{}, false, apperrors.New(apperrors.CodeSessionFull, "participant already joined")
	}
	if s.life.Current() != StatusAwaitingSecondParticipant {
		return JoinResult{}, false, apperrors.Newf(apperrors.CodeSessionFull, "session %s already has two participants", s.id)
	}

	rosterB, err := m.rosters.Build(team)
	if err != nil {
		return JoinResult{}, false, err
	}
	rosterA, err := m.rosters.Build(s.teams[battle.SideA])
	if err != nil {
		return JoinResult{}, false, fmt.Errorf("rebuilding waiting roster: %w", err)
	}
	engine, err := battle.NewEngine(m.cfg.Battle, m.moves, m.skills, m.random, s.logger, rosterA, rosterB)
	if err != nil {
		return JoinResult{}, false, apperrors.Wrap(apperrors.CodeEngineInvariant, "creating battle engine", err)
	}
	if !s.life.fire(transitionStart) {
		return JoinResult{}, false, apperrors.Newf(apperrors.CodeEngineInvariant, "cannot start session from %s", s.life.Current())
	}
	s.seats[battle.SideB] = p
	s.teams[battle.SideB] = append(roster.Team(nil), team...)
	s.engine = engine
	s.startedAt = m.now()
	s.logger.Info("battle started",
		zap.String("a", s.seats[battle.SideA].ID()),
		zap.String("b", p.ID()),
	)

	st := engine.GetState()
	for side, seat := range s.seats {
		opp := battle.Side(side).Opponent()
		m.push(s, seat, Event{Type: EventBattleStart, SessionID: s.id, Payload: StartPayload{
			Side:     battle.Side(side),
			Opponent: engine.RosterView(opp),
			State:    st,
		}})
	}
	m.armTimer(s)

	opponent := engine.RosterView(battle.SideA)
	return JoinResult{Status: JoinStarted, Side: battle.SideB, Opponent: &opponent, State: &st}, false, nil
}

// SubmitAction forwards action to the session's engine on behalf of
// participantID. A resolved turn is broadcast identically to both
// participants as action_result followed by state_update, and battle_end
// when the battle is over.
//
// Postcondition: Recoverable errors go only to the caller. CodeEngineInvariant
// ends the session and notifies both participants.
func (m *Manager) SubmitAction(sessionID, participantID string, action battle.Action) (battle.SubmitResult, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return battle.SubmitResult{}, err
	}
	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return battle.SubmitResult{}, apperrors.Newf(apperrors.CodeSessionNotFound, "session %s not found", sessionID)
	}
	side, ok := s.sideOf(participantID)
	if !ok {
		s.mu.Unlock()
		return battle.SubmitResult{}, apperrors.Newf(apperrors.CodeNotParticipant, "%s is not in session %s", participantID, sessionID)
	}
	res, rec, err := m.submitLocked(s, side, action)
	s.mu.Unlock()
	m.record(rec)
	return res, err
}

// submitLocked is the single submission path, shared by participants and
// the action timer.
//
// Precondition: s.mu is held.
func (m *Manager) submitLocked(s *battleSession, side battle.Side, action battle.Action) (battle.SubmitResult, *Record, error) {
	switch s.life.Current() {
	case StatusAwaitingSecondParticipant:
		return battle.SubmitResult{}, nil, apperrors.New(apperrors.CodeInvalidAction, "battle has not started")
	case StatusEnded:
		return battle.SubmitResult{}, nil, apperrors.New(apperrors.CodeSessionEnded, "battle is over")
	}

	res, err := safeSubmit(s.engine, side, action)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeEngineInvariant {
			m.abortLocked(s, err)
		}
		return battle.SubmitResult{}, nil, err
	}
	if res.Status == battle.StatusWaiting {
		return res, nil, nil
	}

	m.broadcast(s, Event{Type: EventActionResult, SessionID: s.id, Payload: ActionResultPayload{Turn: res.Turn, Results: res.Results}})
	if res.State != nil {
		m.broadcast(s, Event{Type: EventStateUpdate, SessionID: s.id, Payload: *res.State})
	}
	if s.engine.IsOver() {
		return res, m.finishLocked(s), nil
	}
	m.armTimer(s)
	return res, nil, nil
}

// safeSubmit converts an engine panic into an invariant error.
func safeSubmit(e *battle.Engine, side battle.Side, action battle.Action) (res battle.SubmitResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.Newf(apperrors.CodeEngineInvariant, "engine panic: %v", r)
		}
	}()
	return e.SubmitAction(side, action)
}

// abortLocked ends s after an invariant violation.
//
// Precondition: s.mu is held.
func (m *Manager) abortLocked(s *battleSession, cause error) {
	s.logger.Error("engine invariant violated; ending session", zap.Error(cause))
	if !s.life.fire(transitionEnd) {
		return
	}
	s.timer.Stop()
	s.endedAt = m.now()
	m.broadcast(s, ErrorEvent(s.id, apperrors.New(apperrors.CodeEngineInvariant, "internal error")))
	m.broadcast(s, Event{Type: EventBattleEnd, SessionID: s.id, Payload: EndPayload{Winner: battle.WinnerNone, Reason: "internal error"}})
}

// finishLocked moves an over battle to Ended, broadcasts battle_end and
// returns the record to persist.
//
// Precondition: s.mu is held and s.engine.IsOver().
func (m *Manager) finishLocked(s *battleSession) *Record {
	if !s.life.fire(transitionEnd) {
		return nil
	}
	s.timer.Stop()
	s.endedAt = m.now()
	sum := s.engine.Summary()
	m.broadcast(s, Event{Type: EventBattleEnd, SessionID: s.id, Payload: EndPayload{
		Winner: sum.Winner,
		Reason: sum.Reason,
		Turns:  sum.Turns,
	}})
	s.logger.Info("session ended",
		zap.Stringer("winner", sum.Winner),
		zap.String("reason", sum.Reason),
	)
	return &Record{
		ID:           uuid.New(),
		SessionID:    s.id,
		Participants: [2]string{s.seats[battle.SideA].ID(), s.seats[battle.SideB].ID()},
		Summary:      sum,
		StartedAt:    s.startedAt,
		EndedAt:      s.endedAt,
	}
}

// Leave removes participantID from sessionID. A waiting session is
// discarded silently. An active battle is forfeited to the opponent, who is
// notified. Leaving an ended session acknowledges it.
func (m *Manager) Leave(sessionID, participantID string) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return nil
	}
	side, ok := s.sideOf(participantID)
	if !ok {
		s.mu.Unlock()
		return apperrors.Newf(apperrors.CodeNotParticipant, "%s is not in session %s", participantID, sessionID)
	}

	var rec *Record
	switch s.life.Current() {
	case StatusAwaitingSecondParticipant:
		s.life.fire(transitionEnd)
		m.removeLocked(s)
		s.logger.Info("waiting session discarded", observability.Participant(participantID))
	case StatusActive:
		opp := side.Opponent()
		s.engine.Forfeit(side, "opponent left")
		m.push(s, s.seats[opp], Event{Type: EventOpponentLeft, SessionID: s.id, Payload: OpponentLeftPayload{Participant: participantID}})
		rec = m.finishLocked(s)
		m.ackLocked(s, side)
	case StatusEnded:
		m.ackLocked(s, side)
	}
	s.mu.Unlock()
	m.record(rec)
	return nil
}

// Ack acknowledges the terminal broadcast. Once both participants have
// acknowledged, the session is removed.
func (m *Manager) Ack(sessionID, participantID string) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return nil
	}
	side, ok := s.sideOf(participantID)
	if !ok {
		return apperrors.Newf(apperrors.CodeNotParticipant, "%s is not in session %s", participantID, sessionID)
	}
	if s.life.Current() != StatusEnded {
		return apperrors.New(apperrors.CodeInvalidAction, "battle is not over")
	}
	m.ackLocked(s, side)
	return nil
}

// Precondition: s.mu is held and s is Ended.
func (m *Manager) ackLocked(s *battleSession, side battle.Side) {
	s.acks[side] = true
	if s.acks[battle.SideA] && s.acks[battle.SideB] {
		m.removeLocked(s)
		s.logger.Debug("session removed after acknowledgements")
	}
}

// Chat relays message from participantID to the opponent.
func (m *Manager) Chat(sessionID, participantID, message string) error {
	if message == "" {
		return apperrors.New(apperrors.CodeInvalidAction, "chat message is empty")
	}
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	side, ok := s.sideOf(participantID)
	if !ok || s.removed {
		return apperrors.Newf(apperrors.CodeNotParticipant, "%s is not in session %s", participantID, sessionID)
	}
	if opp := s.seats[side.Opponent()]; opp != nil {
		m.push(s, opp, Event{Type: EventChatMessage, SessionID: s.id, Payload: ChatPayload{From: participantID, Message: message}})
	}
	return nil
}

// Status returns sessionID's lifecycle status.
func (m *Manager) Status(sessionID string) (Status, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.life.Current(), nil
}

// State returns the engine snapshot of an started session.
func (m *Manager) State(sessionID string) (battle.State, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return battle.State{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return battle.State{}, apperrors.New(apperrors.CodeInvalidAction, "battle has not started")
	}
	return s.engine.GetState(), nil
}

// Count returns the number of registered sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes every Ended session whose grace period has elapsed at now
// and returns how many it removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	candidates := make([]*battleSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		candidates = append(candidates, s)
	}
	m.mu.Unlock()

	removed := 0
	for _, s := range candidates {
		s.mu.Lock()
		if !s.removed && s.life.Current() == StatusEnded && !now.Before(s.endedAt.Add(m.cfg.EndedGrace)) {
			m.removeLocked(s)
			removed++
		}
		s.mu.Unlock()
	}
	if removed > 0 {
		m.logger.Debug("swept ended sessions", zap.Int("count", removed))
	}
	return removed
}

// Run sweeps every interval until ctx is done.
//
// Precondition: interval > 0.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(m.now())
		}
	}
}

func (m *Manager) lookup(sessionID string) (*battleSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeSessionNotFound, "session %s not found", sessionID)
	}
	return s, nil
}

// Precondition: s.mu is held.
func (m *Manager) removeLocked(s *battleSession) {
	s.removed = true
	s.timer.Stop()
	m.mu.Lock()
	if m.sessions[s.id] == s {
		delete(m.sessions, s.id)
	}
	m.mu.Unlock()
}

// armTimer opens the submission window for the engine's current turn.
//
// Precondition: s.mu is held and s is Active.
func (m *Manager) armTimer(s *battleSession) {
	if m.cfg.ActionTimeout <= 0 {
		return
	}
	turn := s.engine.Turn()
	s.timer.Arm(m.cfg.ActionTimeout, func() { m.onTimeout(s, turn) })
}

// onTimeout injects a forfeit for every side that has not submitted for
// turn. A stale deadline for an earlier turn does nothing.
func (m *Manager) onTimeout(s *battleSession, turn int) {
	s.mu.Lock()
	var rec *Record
	if !s.removed && s.life.Current() == StatusActive && s.engine.Turn() == turn {
		for _, side := range []battle.Side{battle.SideA, battle.SideB} {
			if s.engine.HasPending(side) || s.life.Current() != StatusActive {
				continue
			}
			s.logger.Info("action timeout; forfeiting", zap.Stringer("side", side), observability.Turn(turn))
			_, r, err := m.submitLocked(s, side, battle.Forfeit())
			if err != nil {
				s.logger.Warn("timeout forfeit rejected", zap.Error(err))
			}
			if r != nil {
				rec = r
			}
		}
	}
	s.mu.Unlock()
	m.record(rec)
}

// Precondition: s.mu is held.
func (m *Manager) broadcast(s *battleSession, ev Event) {
	for _, p := range s.seats {
		if p != nil {
			m.push(s, p, ev)
		}
	}
}

func (m *Manager) push(s *battleSession, p *Participant, ev Event) {
	if err := p.Push(ev); err != nil {
		s.logger.Warn("dropping event",
			observability.Participant(p.ID()),
			zap.String("type", string(ev.Type)),
			zap.Error(err),
		)
	}
}
