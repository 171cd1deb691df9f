package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/battle"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/session"
)

// ErrRecordNotFound is returned when a battle record lookup yields no results.
var ErrRecordNotFound = errors.New("battle record not found")

// StoredRecord is a battle_records row. Log is the raw JSON turn log.
type StoredRecord struct {
	ID           uuid.UUID
	SessionID    string
	Participants [2]string
	Winner       string
	Reason       string
	Turns        int
	Log          json.RawMessage
	StartedAt    time.Time
	EndedAt      time.Time
}

// BattleRecordRepository persists finished battles. It implements
// session.Recorder.
type BattleRecordRepository struct {
	db *pgxpool.Pool
}

// NewBattleRecordRepository creates a BattleRecordRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewBattleRecordRepository(db *pgxpool.Pool) *BattleRecordRepository {
	return &BattleRecordRepository{db: db}
}

// Record inserts rec. The full log is stored as JSONB.
//
// Precondition: rec.ID must be unique.
func (r *BattleRecordRepository) Record(ctx context.Context, rec session.Record) error {
	logJSON, err := json.Marshal(nonNil(rec.Summary.Log))
	if err != nil {
		return fmt.Errorf("encoding battle log: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO battle_records
		   (id, session_id, participant_a, participant_b, winner, reason, turns, log, started_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.SessionID, rec.Participants[battle.SideA], rec.Participants[battle.SideB],
		rec.Summary.Winner.String(), rec.Summary.Reason, rec.Summary.Turns, logJSON,
		rec.StartedAt, rec.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting battle record: %w", err)
	}
	return nil
}

// Get returns the record with the given id.
//
// Postcondition: Returns ErrRecordNotFound if no row matches.
func (r *BattleRecordRepository) Get(ctx context.Context, id uuid.UUID) (StoredRecord, error) {
	var s StoredRecord
	err := r.db.QueryRow(ctx,
		`SELECT id, session_id, participant_a, participant_b, winner, reason, turns, log, started_at, ended_at
		 FROM battle_records WHERE id = $1`, id,
	).Scan(&s.ID, &s.SessionID, &s.Participants[0], &s.Participants[1], &s.Winner, &s.Reason,
		&s.Turns, &s.Log, &s.StartedAt, &s.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StoredRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return StoredRecord{}, fmt.Errorf("querying battle record: %w", err)
	}
	return s, nil
}

// ListBySession returns every record for sessionID, newest first.
func (r *BattleRecordRepository) ListBySession(ctx context.Context, sessionID string) ([]StoredRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, participant_a, participant_b, winner, reason, turns, log, started_at, ended_at
		 FROM battle_records WHERE session_id = $1 ORDER BY ended_at DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying battle records: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (StoredRecord, error) {
		var s StoredRecord
		err := row.Scan(&s.ID, &s.SessionID, &s.Participants[0], &s.Participants[1], &s.Winner, &s.Reason,
			&s.Turns, &s.Log, &s.StartedAt, &s.EndedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning battle records: %w", err)
	}
	return out, nil
}
