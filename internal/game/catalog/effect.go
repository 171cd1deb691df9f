package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/status"
)

// Effect is one typed outcome of an inspirit. The concrete types are
// StatDelta, AllStatsDelta, InflictStatus and Drain.
type Effect interface {
	isEffect()
	String() string
}

// StatDelta shifts one stat stage.
type StatDelta struct {
	Stat   Stat
	Stages int
}

// AllStatsDelta shifts all four stat stages by the same amount.
type AllStatsDelta struct {
	Stages int
}

// InflictStatus applies a timed status.
type InflictStatus struct {
	Kind     status.Kind
	Duration int
}

// Drain moves a fraction of the target's current HP to the caster.
type Drain struct {
	Fraction float64
}

func (StatDelta) isEffect() {}
func (AllStatsDelta) isEffect() {}
func (InflictStatus) isEffect() {}
func (Drain) isEffect() {}

func (e StatDelta) String() string { return fmt.Sprintf("%s%+d", e.Stat, e.Stages) }
func (e AllStatsDelta) String() string { return fmt.Sprintf("all%+d", e.Stages) }
func (e InflictStatus) String() string { return fmt.Sprintf("%s(%d)", e.Kind, e.Duration) }
func (e Drain) String() string { return fmt.Sprintf("drain(%.0f%%)", e.Fraction*100) }

// DefaultDrainFraction applies to a bare "drain" tag.
const DefaultDrainFraction = 0.25

// DefaultStatusDuration applies when an inspirit declares no duration.
const DefaultStatusDuration = 3

var (
	allTagRe   = regexp.MustCompile(`^all(up|down)(\d*)$`)
	statTagRe  = regexp.MustCompile(`^(str|spr|def|spd)(up|down)(\d*)$`)
	drainTagRe = regexp.MustCompile(`^drain(\d*)$`)
)

// ParseEffectTag converts a legacy effect tag such as "allUp", "defDown2",
// "drain25" or "poison" into a typed Effect. duration is used for status
// tags; a non-positive duration selects DefaultStatusDuration.
//
// Postcondition: Returns an error for any tag that does not parse; unknown
// tags are never silently ignored.
func ParseEffectTag(tag string, duration int) (Effect, error) {
	t := strings.ToLower(strings.TrimSpace(tag))
	if t == "" {
		return nil, fmt.Errorf("empty effect tag")
	}
	if m := allTagRe.FindStringSubmatch(t); m != nil {
		n, err := tier(m[2])
		if err != nil {
			return nil, fmt.Errorf("effect tag %q: %w", tag, err)
		}
		if m[1] == "down" {
			n = -n
		}
		return AllStatsDelta{Stages: n}, nil
	}
	if m := statTagRe.FindStringSubmatch(t); m != nil {
		stat, err := ParseStat(m[1])
		if err != nil {
			return nil, err
		}
		n, err := tier(m[3])
		if err != nil {
			return nil, fmt.Errorf("effect tag %q: %w", tag, err)
		}
		if m[2] == "down" {
			n = -n
		}
		return StatDelta{Stat: stat, Stages: n}, nil
	}
	if m := drainTagRe.FindStringSubmatch(t); m != nil {
		if m[1] == "" {
			return Drain{Fraction: DefaultDrainFraction}, nil
		}
		pct, err := strconv.Atoi(m[1])
		if err != nil || pct <= 0 || pct > 100 {
			return nil, fmt.Errorf("effect tag %q: drain percent must be in 1..100", tag)
		}
		return Drain{Fraction: float64(pct) / 100}, nil
	}
	kind, err := status.ParseKind(strings.TrimPrefix(t, "status:"))
	if err != nil {
		return nil, fmt.Errorf("effect tag %q: %w", tag, err)
	}
	if kind == status.Guarding {
		return nil, fmt.Errorf("effect tag %q: guarding is applied only by the guard action", tag)
	}
	if duration <= 0 {
		duration = DefaultStatusDuration
	}
	return InflictStatus{Kind: kind, Duration: duration}, nil
}

func tier(s string) (int, error) {
	if s == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 6 {
		return 0, fmt.Errorf("stage tier must be in 1..6, got %q", s)
	}
	return n, nil
}
