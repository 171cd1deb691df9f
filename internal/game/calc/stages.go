package calc

import "github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"

// Stage bounds for every modifiable stat.
const (
	MinStage = -6
	MaxStage = 6
)

const (
	minStageMultiplier = 0.25
	maxStageMultiplier = 4.0
)

// ClampStage bounds s to [MinStage, MaxStage].
func ClampStage(s int) int {
	if s < MinStage {
		return MinStage
	}
	if s > MaxStage {
		return MaxStage
	}
	return s
}

// StageMultiplier returns clamp(1 + 0.5*stage, 0.25, 4.0) for the clamped
// stage.
func StageMultiplier(stage int) float64 {
	m := 1 + float64(ClampStage(stage))*0.5
	if m < minStageMultiplier {
		return minStageMultiplier
	}
	if m > maxStageMultiplier {
		return maxStageMultiplier
	}
	return m
}

// Effective applies the stage multiplier to a base stat value.
func Effective(base, stage int) float64 {
	return float64(base) * StageMultiplier(stage)
}

// Stages holds the current stage of each modifiable stat.
type Stages struct {
	STR int `json:"str"`
	SPR int `json:"spr"`
	DEF int `json:"def"`
	SPD int `json:"spd"`
}

// Get returns the stage for stat.
func (s Stages) Get(stat catalog.Stat) int {
	switch stat {
	case catalog.StatSTR:
		return s.STR
	case catalog.StatSPR:
		return s.SPR
	case catalog.StatDEF:
		return s.DEF
	case catalog.StatSPD:
		return s.SPD
	}
	return 0
}

// Shift moves stat by delta, saturating at the stage bounds, and returns the
// stage before and after.
func (s *Stages) Shift(stat catalog.Stat, delta int) (from, to int) {
	var p *int
	switch stat {
	case catalog.StatSTR:
		p = &s.STR
	case catalog.StatSPR:
		p = &s.SPR
	case catalog.StatDEF:
		p = &s.DEF
	case catalog.StatSPD:
		p = &s.SPD
	default:
		return 0, 0
	}
	from = *p
	*p = ClampStage(*p + delta)
	return from, *p
}
