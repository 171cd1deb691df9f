package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/element"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/status"
)

// File names read by LoadDirectory. Each file is optional.
const (
	MovesFile     = "moves.yaml"
	InspiritsFile = "inspirits.yaml"
	YokaiFile     = "yokai.yaml"
	AttitudesFile = "attitudes.yaml"
	EquipmentFile = "equipment.yaml"
)

// MoveRecord is the on-disk form of a MoveDef.
type MoveRecord struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Kind           string `yaml:"kind"`
	Power          *int   `yaml:"power,omitempty"`
	Hits           int    `yaml:"hits,omitempty"`
	Element        string `yaml:"element,omitempty"`
	SoulChargeLv1  int    `yaml:"soul_charge_lv1,omitempty"`
	SoulChargeLv10 int    `yaml:"soul_charge_lv10,omitempty"`
}

// EffectRecord is the on-disk form of a typed Effect.
type EffectRecord struct {
	Type     string  `yaml:"type" json:"type"` // stat_delta | all_stats_delta | inflict_status | drain
	Stat     string  `yaml:"stat,omitempty" json:"stat,omitempty"`
	Stages   int     `yaml:"stages,omitempty" json:"stages,omitempty"`
	Status   string  `yaml:"status,omitempty" json:"status,omitempty"`
	Duration int     `yaml:"duration,omitempty" json:"duration,omitempty"`
	Fraction float64 `yaml:"fraction,omitempty" json:"fraction,omitempty"`
}

// InspiritRecord is the on-disk form of an InspiritDef. Effects may be given
// as legacy tags, as typed records, or both.
type InspiritRecord struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Targets  string         `yaml:"targets,omitempty"`
	Duration int            `yaml:"duration,omitempty"`
	Tags     []string       `yaml:"tags,omitempty"`
	Effects  []EffectRecord `yaml:"effects,omitempty"`
}

// YokaiRecord is the on-disk form of a YokaiDef.
type YokaiRecord struct {
	ID             string             `yaml:"id"`
	Name           string             `yaml:"name"`
	Tribe          string             `yaml:"tribe,omitempty"`
	Rank           string             `yaml:"rank,omitempty"`
	Stats          Stats              `yaml:"stats"`
	Resistances    map[string]float64 `yaml:"resistances,omitempty"`
	Attack         string             `yaml:"attack,omitempty"`
	Technique      string             `yaml:"technique,omitempty"`
	Inspirit       string             `yaml:"inspirit,omitempty"`
	Soultimate     string             `yaml:"soultimate,omitempty"`
	Skill          string             `yaml:"skill,omitempty"`
	EquipmentSlots int                `yaml:"equipment_slots,omitempty"`
}

// AttitudeRecord is the on-disk form of an AttitudeDef.
type AttitudeRecord struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Boost Stats  `yaml:"boost"`
}

// EquipmentRecord is the on-disk form of an EquipmentDef.
type EquipmentRecord struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Bonus Stats  `yaml:"bonus"`
}

// Records is a complete catalog in on-disk form.
type Records struct {
	Moves     []MoveRecord
	Inspirits []InspiritRecord
	Yokai     []YokaiRecord
	Attitudes []AttitudeRecord
	Equipment []EquipmentRecord
}

// LoadDirectory reads the catalog files in dir and returns a validated
// Registry.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to
// parse, any entry is malformed, or any cross reference is dangling.
func LoadDirectory(dir string) (*Registry, error) {
	recs, err := ReadDirectory(dir)
	if err != nil {
		return nil, err
	}
	return recs.Build()
}

// ReadDirectory decodes the catalog files in dir without validating cross
// references. Missing files yield empty tables.
func ReadDirectory(dir string) (Records, error) {
	var recs Records
	info, err := os.Stat(dir)
	if err != nil {
		return recs, fmt.Errorf("reading catalog dir %q: %w", dir, err)
	}
	if !info.IsDir() {
		return recs, fmt.Errorf("catalog path %q is not a directory", dir)
	}
	files := []struct {
		name string
		dst  any
	}{
		{MovesFile, &recs.Moves},
		{InspiritsFile, &recs.Inspirits},
		{YokaiFile, &recs.Yokai},
		{AttitudesFile, &recs.Attitudes},
		{EquipmentFile, &recs.Equipment},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return recs, fmt.Errorf("reading %q: %w", path, err)
		}
		if err := decodeStrict(data, f.dst); err != nil {
			return recs, fmt.Errorf("parsing %q: %w", path, err)
		}
	}
	return recs, nil
}

func decodeStrict(data []byte, dst any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(dst)
}

// Encode marshals recs into file name to YAML bytes, ready to be written
// into a catalog directory.
func (recs Records) Encode() (map[string][]byte, error) {
	out := make(map[string][]byte, 5)
	tables := []struct {
		name string
		v    any
	}{
		{MovesFile, recs.Moves},
		{InspiritsFile, recs.Inspirits},
		{YokaiFile, recs.Yokai},
		{AttitudesFile, recs.Attitudes},
		{EquipmentFile, recs.Equipment},
	}
	for _, t := range tables {
		data, err := yaml.Marshal(t.v)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s: %w", t.name, err)
		}
		out[t.name] = data
	}
	return out, nil
}

// Build converts recs into a validated Registry.
func (recs Records) Build() (*Registry, error) {
	reg := NewRegistry()
	for _, m := range recs.Moves {
		def, err := m.toDef()
		if err != nil {
			return nil, err
		}
		if err := reg.RegisterMove(def); err != nil {
			return nil, err
		}
	}
	for _, in := range recs.Inspirits {
		def, err := in.toDef()
		if err != nil {
			return nil, err
		}
		if err := reg.RegisterInspirit(def); err != nil {
			return nil, err
		}
	}
	for _, y := range recs.Yokai {
		res, err := element.FromNames(y.Resistances)
		if err != nil {
			return nil, fmt.Errorf("yokai %q: %w", y.ID, err)
		}
		def := YokaiDef{
			ID:             y.ID,
			Name:           y.Name,
			Tribe:          y.Tribe,
			Rank:           y.Rank,
			Base:           y.Stats,
			Resistances:    res,
			AttackID:       y.Attack,
			TechniqueID:    y.Technique,
			InspiritID:     y.Inspirit,
			SoultimateID:   y.Soultimate,
			SkillID:        y.Skill,
			EquipmentSlots: y.EquipmentSlots,
		}
		if err := reg.RegisterYokai(def); err != nil {
			return nil, err
		}
	}
	for _, a := range recs.Attitudes {
		if err := reg.RegisterAttitude(AttitudeDef{ID: a.ID, Name: a.Name, Boost: a.Boost}); err != nil {
			return nil, err
		}
	}
	for _, e := range recs.Equipment {
		if err := reg.RegisterEquipment(EquipmentDef{ID: e.ID, Name: e.Name, Bonus: e.Bonus}); err != nil {
			return nil, err
		}
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	return reg, nil
}

func (m MoveRecord) toDef() (MoveDef, error) {
	kind, err := ParseMoveKind(m.Kind)
	if err != nil {
		return MoveDef{}, fmt.Errorf("move %q: %w", m.ID, err)
	}
	el, err := element.Parse(m.Element)
	if err != nil {
		return MoveDef{}, fmt.Errorf("move %q: %w", m.ID, err)
	}
	hits := m.Hits
	if hits == 0 {
		hits = 1
	}
	if kind == KindTechnique {
		hits = 1
	}
	return MoveDef{
		ID:             m.ID,
		Name:           m.Name,
		Kind:           kind,
		BasePower:      m.Power,
		Hits:           hits,
		Element:        el,
		SoulChargeLv1:  m.SoulChargeLv1,
		SoulChargeLv10: m.SoulChargeLv10,
	}, nil
}

func (in InspiritRecord) toDef() (InspiritDef, error) {
	def := InspiritDef{ID: in.ID, Name: in.Name, Targets: InspiritTarget(in.Targets)}
	for _, tag := range in.Tags {
		eff, err := ParseEffectTag(tag, in.Duration)
		if err != nil {
			return InspiritDef{}, fmt.Errorf("inspirit %q: %w", in.ID, err)
		}
		def.Effects = append(def.Effects, eff)
	}
	for _, r := range in.Effects {
		eff, err := r.toEffect(in.Duration)
		if err != nil {
			return InspiritDef{}, fmt.Errorf("inspirit %q: %w", in.ID, err)
		}
		def.Effects = append(def.Effects, eff)
	}
	return def, nil
}

func (r EffectRecord) toEffect(defaultDuration int) (Effect, error) {
	switch r.Type {
	case "stat_delta":
		stat, err := ParseStat(r.Stat)
		if err != nil {
			return nil, err
		}
		if r.Stages == 0 {
			return nil, errors.New("stat_delta: stages must be non-zero")
		}
		return StatDelta{Stat: stat, Stages: r.Stages}, nil
	case "all_stats_delta":
		if r.Stages == 0 {
			return nil, errors.New("all_stats_delta: stages must be non-zero")
		}
		return AllStatsDelta{Stages: r.Stages}, nil
	case "inflict_status":
		kind, err := status.ParseKind(r.Status)
		if err != nil {
			return nil, err
		}
		if kind == status.Guarding {
			return nil, errors.New("inflict_status: guarding is applied only by the guard action")
		}
		d := r.Duration
		if d <= 0 {
			d = defaultDuration
		}
		if d <= 0 {
			d = DefaultStatusDuration
		}
		return InflictStatus{Kind: kind, Duration: d}, nil
	case "drain":
		f := r.Fraction
		if f == 0 {
			f = DefaultDrainFraction
		}
		if f < 0 || f > 1 {
			return nil, fmt.Errorf("drain: fraction must be in (0, 1], got %v", f)
		}
		return Drain{Fraction: f}, nil
	}
	return nil, fmt.Errorf("unknown effect type %q", r.Type)
}

// EffectToRecord converts a typed Effect back into its on-disk form.
func EffectToRecord(e Effect) EffectRecord {
	switch v := e.(type) {
	case StatDelta:
		return EffectRecord{Type: "stat_delta", Stat: v.Stat.String(), Stages: v.Stages}
	case AllStatsDelta:
		return EffectRecord{Type: "all_stats_delta", Stages: v.Stages}
	case InflictStatus:
		return EffectRecord{Type: "inflict_status", Status: string(v.Kind), Duration: v.Duration}
	case Drain:
		return EffectRecord{Type: "drain", Fraction: v.Fraction}
	}
	return EffectRecord{}
}
