package legacy

import (
	"fmt"
	"os"
	"strings"

	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/element"
	"github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/importer"
)

var _ importer.Source = (*Source)(nil)

// Source implements importer.Source for the legacy JSON seed layout:
//
//	sourceDir/
//	  yokai.json        <- required
//	  attacks.json
//	  techniques.json
//	  soultimates.json
//	  inspirits.json
//	  attitudes.json
//	  equipment.json
//
// Legacy ids are replaced by ids derived from display names. References
// between tables are rewritten to match; a reference that cannot be resolved
// is dropped with a warning.
type Source struct{}

// NewSource constructs a Source.
func NewSource() *Source { return &Source{} }

// Load reads the legacy files in sourceDir.
//
// Precondition: sourceDir must contain yokai.json.
// Postcondition: returns a non-nil Result or a non-nil error.
func (s *Source) Load(sourceDir string) (*importer.Result, error) {
	if info, err := os.Stat(sourceDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("source directory %q not accessible", sourceDir)
	}
	yokai, err := readList[Yokai](sourceDir, YokaiFile, true)
	if err != nil {
		return nil, err
	}
	attacks, err := readList[Move](sourceDir, AttacksFile, false)
	if err != nil {
		return nil, err
	}
	techniques, err := readList[Move](sourceDir, TechniquesFile, false)
	if err != nil {
		return nil, err
	}
	soultimates, err := readList[Move](sourceDir, SoultimatesFile, false)
	if err != nil {
		return nil, err
	}
	inspirits, err := readList[Inspirit](sourceDir, InspiritsFile, false)
	if err != nil {
		return nil, err
	}
	attitudes, err := readList[Attitude](sourceDir, AttitudesFile, false)
	if err != nil {
		return nil, err
	}
	equipment, err := readList[Equipment](sourceDir, EquipmentFile, false)
	if err != nil {
		return nil, err
	}

	c := &converter{res: &importer.Result{}}
	attackIDs := c.moves(attacks, catalog.KindAttack)
	techniqueIDs := c.moves(techniques, catalog.KindTechnique)
	soultimateIDs := c.moves(soultimates, catalog.KindSoultimate)
	inspiritIDs := c.inspirits(inspirits)
	c.yokai(yokai, attackIDs, techniqueIDs, soultimateIDs, inspiritIDs)
	c.attitudes(attitudes)
	c.equipment(equipment)
	return c.res, nil
}

type converter struct {
	res *importer.Result
}

func (c *converter) warnf(format string, args ...any) {
	c.res.Warnings = append(c.res.Warnings, fmt.Sprintf(format, args...))
}

// moves converts one move table and returns legacy id to new id.
func (c *converter) moves(in []Move, kind catalog.MoveKind) map[string]string {
	ids := make(map[string]string, len(in))
	alloc := importer.NewIDAllocator()
	for _, m := range in {
		id := alloc.Allocate(m.Command, string(m.ID))
		if m.ID != "" {
			ids[string(m.ID)] = id
		}
		rec := catalog.MoveRecord{
			ID:   id,
			Name: nameOr(m.Command, id),
			Kind: kind.String(),
		}
		if el, err := element.Parse(string(m.Element)); err != nil {
			c.warnf("%s %q: %v; treated as non-elemental", kind, id, err)
		} else if el != element.None {
			rec.Element = el.String()
		}
		switch {
		case m.Lv10Power.Set:
			p := m.Lv10Power.Value
			rec.Power = &p
		case m.Lv1Power.Set:
			p := m.Lv1Power.Value
			rec.Power = &p
		}
		if rec.Power != nil && *rec.Power < 0 {
			c.warnf("%s %q: negative power %d clamped to 0", kind, id, *rec.Power)
			*rec.Power = 0
		}
		if m.Hits.Set && m.Hits.Value > 1 && kind != catalog.KindTechnique {
			rec.Hits = m.Hits.Value
		}
		if kind == catalog.KindSoultimate {
			rec.SoulChargeLv1 = m.Lv1SoulCharge.Value
			rec.SoulChargeLv10 = m.Lv10SoulCharge.Value
		}
		c.res.Records.Moves = append(c.res.Records.Moves, rec)
	}
	return ids
}

// inspirits converts inspirits.json. Targets are inferred: an inspirit whose
// tags all raise stats targets its user, everything else targets the enemy.
func (c *converter) inspirits(in []Inspirit) map[string]string {
	ids := make(map[string]string, len(in))
	alloc := importer.NewIDAllocator()
	for _, raw := range in {
		id := alloc.Allocate(raw.Command, string(raw.ID))
		var tags []string
		for _, tag := range raw.Effect {
			if _, err := catalog.ParseEffectTag(tag, 0); err != nil {
				c.warnf("inspirit %q: dropping tag: %v", id, err)
				continue
			}
			tags = append(tags, tag)
		}
		if len(tags) == 0 {
			c.warnf("inspirit %q: no usable effects; skipped", id)
			continue
		}
		if raw.ID != "" {
			ids[string(raw.ID)] = id
		}
		c.res.Records.Inspirits = append(c.res.Records.Inspirits, catalog.InspiritRecord{
			ID:      id,
			Name:    nameOr(raw.Command, id),
			Targets: string(inferTarget(tags)),
			Tags:    tags,
		})
	}
	return ids
}

func inferTarget(tags []string) catalog.InspiritTarget {
	for _, tag := range tags {
		eff, _ := catalog.ParseEffectTag(tag, 0)
		switch e := eff.(type) {
		case catalog.StatDelta:
			if e.Stages < 0 {
				return catalog.TargetEnemy
			}
		case catalog.AllStatsDelta:
			if e.Stages < 0 {
				return catalog.TargetEnemy
			}
		default:
			return catalog.TargetEnemy
		}
	}
	return catalog.TargetSelf
}

var elements = []string{"fire", "water", "electric", "earth", "wind", "ice"}

func (c *converter) yokai(in []Yokai, attacks, techniques, soultimates, inspirits map[string]string) {
	alloc := importer.NewIDAllocator()
	for _, y := range in {
		id := alloc.Allocate(y.Name, string(y.ID))
		rec := catalog.YokaiRecord{
			ID:    id,
			Name:  nameOr(y.Name, id),
			Tribe: strings.ToLower(string(y.Tribe)),
			Rank:  strings.ToUpper(string(y.Rank)),
			Stats: catalog.Stats{
				HP:  pick(y.HPB, y.HPA),
				STR: pick(y.STRB, y.STRA),
				SPR: pick(y.SPRB, y.SPRA),
				DEF: pick(y.DEFB, y.DEFA),
				SPD: pick(y.SPDB, y.SPDA),
			},
			EquipmentSlots: 1,
		}
		if rec.Stats.HP <= 0 {
			c.warnf("yokai %q: no HP; skipped", id)
			continue
		}
		if y.Equipment != nil && y.Equipment.Set {
			rec.EquipmentSlots = max(y.Equipment.Value, 0)
		}
		for i, v := range []*flexFloat{y.Fire, y.Water, y.Electric, y.Earth, y.Wind, y.Ice} {
			if v == nil || *v == 1 {
				continue
			}
			if *v < 0 {
				c.warnf("yokai %q: negative %s resistance ignored", id, elements[i])
				continue
			}
			if rec.Resistances == nil {
				rec.Resistances = make(map[string]float64)
			}
			rec.Resistances[elements[i]] = float64(*v)
		}
		rec.Attack = c.resolve(id, "attack", y.Attack, attacks)
		rec.Technique = c.resolve(id, "technique", y.Technique, techniques)
		rec.Soultimate = c.resolve(id, "soultimate", y.Soultimate, soultimates)
		rec.Inspirit = c.resolve(id, "inspirit", y.Inspirit, inspirits)
		if y.Skill != "" {
			rec.Skill = importer.NameToID(string(y.Skill))
		}
		c.res.Records.Yokai = append(c.res.Records.Yokai, rec)
	}
}

func (c *converter) resolve(yokai, field string, ref flexString, ids map[string]string) string {
	if ref == "" {
		return ""
	}
	if id, ok := ids[string(ref)]; ok {
		return id
	}
	c.warnf("yokai %q: %s %q not found; dropped", yokai, field, string(ref))
	return ""
}

func (c *converter) attitudes(in []Attitude) {
	alloc := importer.NewIDAllocator()
	for i, a := range in {
		id := alloc.Allocate(a.Name, fmt.Sprintf("attitude_%d", i+1))
		var v [5]int
		for j := 0; j < len(a.Boost) && j < len(v); j++ {
			v[j] = a.Boost[j].Value
		}
		if len(a.Boost) > len(v) {
			c.warnf("attitude %q: %d extra boost values ignored", id, len(a.Boost)-len(v))
		}
		c.res.Records.Attitudes = append(c.res.Records.Attitudes, catalog.AttitudeRecord{
			ID:    id,
			Name:  nameOr(a.Name, id),
			Boost: catalog.FromArray(v),
		})
	}
}

func (c *converter) equipment(in []Equipment) {
	alloc := importer.NewIDAllocator()
	for i, e := range in {
		id := alloc.Allocate(e.Name, fmt.Sprintf("equipment_%d", i+1))
		c.res.Records.Equipment = append(c.res.Records.Equipment, catalog.EquipmentRecord{
			ID:   id,
			Name: nameOr(e.Name, id),
			Bonus: catalog.Stats{
				STR: e.STR.Value,
				SPR: e.SPR.Value,
				DEF: e.DEF.Value,
				SPD: e.SPD.Value,
			},
		})
	}
}

func pick(primary, fallback flexInt) int {
	if primary.Set {
		return primary.Value
	}
	return fallback.Value
}

func nameOr(name, id string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return id
}
