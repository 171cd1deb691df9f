package dice

import "go.uber.org/zap"

// Roller wraps a Source and logs every draw at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that draws from src and logs to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Intn draws from the wrapped Source, so a Roller is itself a Source.
func (r *Roller) Intn(n int) int {
	v := r.src.Intn(n)
	r.logger.Debug("dice roll",
		zap.Int("sides", n),
		zap.Int("result", v),
	)
	return v
}

// Percent reports whether a roll of d100 lands under chance.
//
// Postcondition: always false when chance <= 0, always true when chance >= 100.
func (r *Roller) Percent(chance int) bool {
	if chance <= 0 {
		return false
	}
	if chance >= 100 {
		return true
	}
	return r.Intn(100) < chance
}
