package observability

import "go.uber.org/zap"

// Log field keys shared by the session manager, engine and gateway.
const (
	KeySession     = "session"
	KeyParticipant = "participant"
	KeyTurn        = "turn"
)

// Session tags a log line with a battle session id.
func Session(id string) zap.Field { return zap.String(KeySession, id) }

// Participant tags a log line with a participant id.
func Participant(id string) zap.Field { return zap.String(KeyParticipant, id) }

// Turn tags a log line with a turn number.
func Turn(n int) zap.Field { return zap.Int(KeyTurn, n) }
