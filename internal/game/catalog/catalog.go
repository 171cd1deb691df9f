// Package catalog holds the read-only static game data referenced by battles:
// moves, inspirits, Yo-kai definitions, attitudes and equipment.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/element"
)

// ErrNotFound is wrapped by every lookup that misses.
var ErrNotFound = errors.New("catalog entry not found")

// MoveKind distinguishes the three damaging move tables.
type MoveKind int

const (
	KindAttack MoveKind = iota
	KindTechnique
	KindSoultimate
)

var kindNames = [...]string{
	KindAttack:     "attack",
	KindTechnique:  "technique",
	KindSoultimate: "soultimate",
}

func (k MoveKind) String() string {
	if k < KindAttack || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseMoveKind converts a case-insensitive name into a MoveKind.
func ParseMoveKind(s string) (MoveKind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == key {
			return MoveKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown move kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k MoveKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *MoveKind) UnmarshalText(b []byte) error {
	v, err := ParseMoveKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// MoveDef is a damaging move. BasePower is nil when the source data carried
// no power value.
type MoveDef struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Kind           MoveKind        `json:"kind"`
	BasePower      *int            `json:"base_power,omitempty"`
	Hits           int             `json:"hits"`
	Element        element.Element `json:"element"`
	SoulChargeLv1  int             `json:"soul_charge_lv1,omitempty"`
	SoulChargeLv10 int             `json:"soul_charge_lv10,omitempty"`
}

// Power returns the base power, treating a missing value as 0.
func (m MoveDef) Power() int {
	if m.BasePower == nil {
		return 0
	}
	return *m.BasePower
}

// HitCount returns the number of hits, never less than 1.
func (m MoveDef) HitCount() int {
	if m.Hits < 1 {
		return 1
	}
	return m.Hits
}

// Stat names one of the four stage-modifiable stats.
type Stat int

const (
	StatSTR Stat = iota
	StatSPR
	StatDEF
	StatSPD
)

var statNames = [...]string{
	StatSTR: "str",
	StatSPR: "spr",
	StatDEF: "def",
	StatSPD: "spd",
}

// AllStats returns the four stage-modifiable stats in canonical order.
func AllStats() []Stat {
	return []Stat{StatSTR, StatSPR, StatDEF, StatSPD}
}

func (s Stat) String() string {
	if s < StatSTR || int(s) >= len(statNames) {
		return fmt.Sprintf("stat(%d)", int(s))
	}
	return statNames[s]
}

// ParseStat converts a case-insensitive name into a Stat. "atk" and "spirit"
// style aliases from legacy data are accepted.
func ParseStat(s string) (Stat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "str", "strength", "atk", "attack":
		return StatSTR, nil
	case "spr", "spirit":
		return StatSPR, nil
	case "def", "defense", "defence":
		return StatDEF, nil
	case "spd", "speed":
		return StatSPD, nil
	}
	return 0, fmt.Errorf("unknown stat %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Stat) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stat) UnmarshalText(b []byte) error {
	v, err := ParseStat(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Stats is a full stat line.
type Stats struct {
	HP  int `json:"hp" yaml:"hp"`
	STR int `json:"str" yaml:"str"`
	SPR int `json:"spr" yaml:"spr"`
	DEF int `json:"def" yaml:"def"`
	SPD int `json:"spd" yaml:"spd"`
}

// Get returns the value of a stage-modifiable stat.
func (s Stats) Get(stat Stat) int {
	switch stat {
	case StatSTR:
		return s.STR
	case StatSPR:
		return s.SPR
	case StatDEF:
		return s.DEF
	case StatSPD:
		return s.SPD
	}
	return 0
}

// Add returns the field-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		HP:  s.HP + o.HP,
		STR: s.STR + o.STR,
		SPR: s.SPR + o.SPR,
		DEF: s.DEF + o.DEF,
		SPD: s.SPD + o.SPD,
	}
}

// FromArray builds Stats from [HP, STR, SPR, DEF, SPD].
func FromArray(v [5]int) Stats {
	return Stats{HP: v[0], STR: v[1], SPR: v[2], DEF: v[3], SPD: v[4]}
}

// InspiritTarget selects who an inspirit's stat and status effects land on.
type InspiritTarget string

const (
	TargetEnemy InspiritTarget = "enemy"
	TargetSelf  InspiritTarget = "self"
)

// InspiritDef is a non-damaging move whose effects mutate stat stages,
// statuses or HP.
type InspiritDef struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Targets InspiritTarget `json:"targets"`
	Effects []Effect       `json:"-"`
}

// YokaiDef is the static definition a roster member is built from.
type YokaiDef struct {
	ID             string
	Name           string
	Tribe          string
	Rank           string
	Base           Stats
	Resistances    element.Resistances
	AttackID       string
	TechniqueID    string
	InspiritID     string
	SoultimateID   string
	SkillID        string
	EquipmentSlots int
}

// AttitudeDef is a stat adjustment chosen per roster member.
type AttitudeDef struct {
	ID    string
	Name  string
	Boost Stats
}

// EquipmentDef is a held item granting flat stat bonuses.
type EquipmentDef struct {
	ID    string
	Name  string
	Bonus Stats
}

// Provider is the read-only lookup the battle engine resolves moves through.
type Provider interface {
	GetMove(kind MoveKind, id string) (MoveDef, error)
	GetInspirit(id string) (InspiritDef, error)
}

// IntakeSource adds the lookups roster intake needs on top of Provider.
type IntakeSource interface {
	Provider
	GetYokai(id string) (YokaiDef, error)
	GetAttitude(id string) (AttitudeDef, error)
	GetEquipment(id string) (EquipmentDef, error)
}
