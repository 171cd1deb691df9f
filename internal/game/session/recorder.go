package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/battle"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/observability"
)

// recordTimeout bounds one Recorder call.
const recordTimeout = 5 * time.Second

// Record is the persisted outcome of one finished battle.
type Record struct {
	ID           uuid.UUID
	SessionID    string
	Participants [2]string
	Summary      battle.Summary
	StartedAt    time.Time
	EndedAt      time.Time
}

// Recorder persists finished battles.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// record hands rec to the recorder. Failures are logged, never surfaced.
func (m *Manager) record(rec *Record) {
	if rec == nil || m.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := m.recorder.Record(ctx, *rec); err != nil {
		m.logger.Warn("failed to record battle",
			observability.Session(rec.SessionID),
			zap.Stringer("record", rec.ID),
			zap.Error(err),
		)
	}
}
